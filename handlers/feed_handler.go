package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Sovan7777/spardha-26/feed"
	"github.com/gorilla/websocket"
)

type FeedHandler struct {
	hub      *feed.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewFeedHandler принимает список разрешённых Origin; "*" или пустой список разрешают всё.
func NewFeedHandler(hub *feed.Hub, allowedOrigins []string, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWs подключает администратора к живой ленте регистраций.
func (h *FeedHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту ошибкой.
		h.logger.WarnContext(r.Context(), "Feed upgrade failed", slog.Any("error", err))
		return
	}

	client := feed.NewClient(h.hub, conn, feed.AdminRoom)
	if !h.hub.Join(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.DebugContext(r.Context(), "Feed client connected", slog.String("room", feed.AdminRoom))
}
