package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sovan7777/spardha-26/feed"
	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/repositories"
	"github.com/Sovan7777/spardha-26/utils"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// TeamStatusView - то, что видит сама команда при проверке статуса заявки.
type TeamStatusView struct {
	TeamID    int               `json:"teamID"`
	Event     string            `json:"event"`
	College   string            `json:"college"`
	Status    models.TeamStatus `json:"status"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type CheckStatusInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TeamService interface {
	GetTeam(ctx context.Context, teamID int) (*models.Team, error)
	ListTeams(ctx context.Context, filter models.TeamFilter) (models.TeamListResponse, error)
	UpdateStatus(ctx context.Context, teamID int, status models.TeamStatus) (*models.Team, error)
	CheckStatus(ctx context.Context, input CheckStatusInput) (*TeamStatusView, error)
}

type teamService struct {
	teamRepo  repositories.TeamRepository
	publisher EventPublisher
	metrics   *metrics.Collectors
	logger    *slog.Logger
}

func NewTeamService(teamRepo repositories.TeamRepository, publisher EventPublisher, collectors *metrics.Collectors, logger *slog.Logger) TeamService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if collectors == nil {
		collectors = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &teamService{teamRepo: teamRepo, publisher: publisher, metrics: collectors, logger: logger}
}

func (s *teamService) GetTeam(ctx context.Context, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return team, nil
}

func (s *teamService) ListTeams(ctx context.Context, filter models.TeamFilter) (models.TeamListResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	filter.Limit = min(filter.Limit, maxPageLimit)
	if filter.Status != nil && !filter.Status.Valid() {
		return models.TeamListResponse{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *filter.Status)
	}

	teams, total, err := s.teamRepo.List(ctx, filter)
	if err != nil {
		return models.TeamListResponse{}, err
	}
	return models.TeamListResponse{
		Teams:      teams,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

func (s *teamService) UpdateStatus(ctx context.Context, teamID int, status models.TeamStatus) (*models.Team, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	team, err := s.teamRepo.GetByTeamID(ctx, teamID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if team.Status == status {
		return team, nil
	}
	if !isValidStatusTransition(team.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, team.Status, status)
	}

	updated, err := s.teamRepo.UpdateStatus(ctx, teamID, team.Status, status)
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "Team status changed",
		slog.Int("team_id", teamID),
		slog.String("from", string(team.Status)),
		slog.String("to", string(status)))
	s.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	s.publisher.Publish(feed.EventTeamStatusChanged, newTeamEvent(updated))
	return updated, nil
}

// CheckStatus не раскрывает, существует ли email: при любой ошибке ответ одинаковый.
func (s *teamService) CheckStatus(ctx context.Context, input CheckStatusInput) (*TeamStatusView, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	team, err := s.teamRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(input.Password, team.Password) {
		return nil, ErrInvalidCredentials
	}

	return &TeamStatusView{
		TeamID:    team.TeamID,
		Event:     team.Event,
		College:   team.College,
		Status:    team.Status,
		UpdatedAt: team.UpdatedAt,
	}, nil
}

// Решение принимается один раз: pending -> approved|rejected.
func isValidStatusTransition(current, next models.TeamStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TeamStatus][]models.TeamStatus{
		models.StatusPending:  {models.StatusApproved, models.StatusRejected},
		models.StatusApproved: {},
		models.StatusRejected: {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}
