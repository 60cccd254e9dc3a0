package services

import (
	"time"

	"github.com/Sovan7777/spardha-26/models"
)

// EventPublisher pushes live events to admin dashboards. *feed.Hub implements it.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// TeamEvent - полезная нагрузка событий ленты, без персональных данных игроков.
type TeamEvent struct {
	TeamID    int               `json:"teamID"`
	Event     string            `json:"event"`
	College   string            `json:"college"`
	Status    models.TeamStatus `json:"status"`
	Players   int               `json:"players"`
	Amount    float64           `json:"amount"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func newTeamEvent(t *models.Team) TeamEvent {
	return TeamEvent{
		TeamID:    t.TeamID,
		Event:     t.Event,
		College:   t.College,
		Status:    t.Status,
		Players:   len(t.Players),
		Amount:    t.Amount,
		UpdatedAt: t.UpdatedAt,
	}
}
