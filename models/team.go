package models

import "time"

// Gender игрока, соответствует enum в схеме.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// TeamStatus - статус заявки, меняется только администратором.
type TeamStatus string

const (
	StatusPending  TeamStatus = "pending"
	StatusApproved TeamStatus = "approved"
	StatusRejected TeamStatus = "rejected"
)

// TeamEntity is the name the Team schema is registered under.
const TeamEntity = "Team"

func (s TeamStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Player is embedded into a Team and never stored on its own.
type Player struct {
	Name                string `json:"name" bson:"name" validate:"required"`
	Gender              Gender `json:"gender" bson:"gender" validate:"required,oneof=Male Female Other"`
	Mobile              string `json:"mobile" bson:"mobile" validate:"required,in_mobile"`
	PlayerIDCardPicPath string `json:"playerIdCardPicPath" bson:"playerIdCardPicPath" validate:"required"`
	IsCaptain           bool   `json:"isCaptain" bson:"isCaptain"`
}

type Team struct {
	TeamID                    int        `json:"teamID" bson:"teamID" db:"team_id" validate:"required,gt=0"`
	Event                     string     `json:"event" bson:"event" db:"event" validate:"required"`
	College                   string     `json:"college" bson:"college" db:"college" validate:"required"`
	Email                     string     `json:"email" bson:"email" db:"email" validate:"required,basic_email"`
	Players                   []Player   `json:"players" bson:"players" db:"players" validate:"min=1,dive"`
	UpiID                     string     `json:"upiId" bson:"upiId" db:"upi_id" validate:"required"`
	TransactionScreenshotPath *string    `json:"transactionScreenshotPath" bson:"transactionScreenshotPath" db:"transaction_screenshot_path"`
	IDCardPicPath             *string    `json:"idCardPicPath" bson:"idCardPicPath" db:"id_card_pic_path"`
	Password                  string     `json:"-" bson:"password" db:"password" validate:"required,min=6"`
	Amount                    float64    `json:"amount" bson:"amount" db:"amount" validate:"gte=0"`
	Status                    TeamStatus `json:"status" bson:"status" db:"status" validate:"required,oneof=pending approved rejected"`
	CreatedAt                 time.Time  `json:"createdAt" bson:"createdAt" db:"created_at"`
	UpdatedAt                 time.Time  `json:"updatedAt" bson:"updatedAt" db:"updated_at"`
}

// Captain возвращает капитана команды или nil.
func (t *Team) Captain() *Player {
	for i := range t.Players {
		if t.Players[i].IsCaptain {
			return &t.Players[i]
		}
	}
	return nil
}

type TeamFilter struct {
	Event  string
	Status *TeamStatus
	Page   int
	Limit  int
}

func (f TeamFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type TeamListResponse struct {
	Teams      []Team `json:"teams"`
	TotalCount int    `json:"total_count"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
}

// TeamStat - агрегат для отчёта (по статусу или по событию).
type TeamStat struct {
	Key    string  `json:"key"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}
