package handlers

import (
	"net/http"
	"time"

	"github.com/Sovan7777/spardha-26/middleware"
	"github.com/Sovan7777/spardha-26/services"
)

type AdminHandler struct {
	adminService services.AdminService
	secureCookie bool
}

func NewAdminHandler(as services.AdminService, secureCookie bool) *AdminHandler {
	return &AdminHandler{adminService: as, secureCookie: secureCookie}
}

type adminLoginRequest struct {
	Passkey string `json:"passkey"`
}

// Login - adminLogin: {passkey} -> {success, message}. Неуспешный вход отвечает 401 с тем же телом.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.adminService.Login(r.Context(), req.Passkey)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	status := http.StatusUnauthorized
	if result.Success {
		status = http.StatusOK
		cookie := &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    result.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		}
		if result.ExpiresAt != nil {
			cookie.Expires = *result.ExpiresAt
		}
		http.SetCookie(w, cookie)
	}

	if err := writeJSON(w, status, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	if err := writeJSON(w, http.StatusOK, services.LoginResult{Success: true, Message: "Logged out."}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
