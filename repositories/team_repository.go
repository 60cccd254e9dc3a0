package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/jonboulle/clockwork"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamIDConflict    = errors.New("team id conflict")
	ErrTeamEmailConflict = errors.New("team email conflict")
	// ErrTeamStatusChanged - статус изменился между чтением и записью.
	ErrTeamStatusChanged = errors.New("team status changed concurrently")
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	GetByTeamID(ctx context.Context, teamID int) (*models.Team, error)
	GetByEmail(ctx context.Context, email string) (*models.Team, error)
	List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error)
	// UpdateStatus sets status to `to` only if the stored status is still `from`.
	UpdateStatus(ctx context.Context, teamID int, from, to models.TeamStatus) (*models.Team, error)
	StatsByStatus(ctx context.Context) ([]models.TeamStat, error)
	StatsByEvent(ctx context.Context) ([]models.TeamStat, error)
	NextTeamID(ctx context.Context) (int, error)
}

// teamHooks runs the write-time rules shared by every TeamRepository implementation.
type teamHooks struct {
	schema *models.Schema
	clock  clockwork.Clock
}

func newTeamHooks(clock clockwork.Clock) teamHooks {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return teamHooks{
		schema: models.DefaultRegistry.MustLookup(models.TeamEntity),
		clock:  clock,
	}
}

func (h teamHooks) beforeCreate(team *models.Team) error {
	if err := h.schema.Validate(team); err != nil {
		return err
	}
	now := h.clock.Now().UTC()
	team.CreatedAt = now
	team.UpdatedAt = now
	return nil
}

func (h teamHooks) beforeUpdate(team *models.Team) error {
	if err := h.schema.Validate(team); err != nil {
		return err
	}
	team.UpdatedAt = h.clock.Now().UTC()
	return nil
}

func (h teamHooks) checkStatus(to models.TeamStatus) error {
	if !to.Valid() {
		return &models.ValidationError{Errors: []models.FieldError{{
			Field:   "status",
			Rule:    models.RuleEnum,
			Message: fmt.Sprintf("%q is not a valid value for status", to),
		}}}
	}
	return nil
}

func teamIDConflict(teamID int) error {
	return fmt.Errorf("%w: %w", ErrTeamIDConflict, &models.DuplicateKeyError{Field: "teamID", Value: teamID})
}

func emailConflict(email string) error {
	return fmt.Errorf("%w: %w", ErrTeamEmailConflict, &models.DuplicateKeyError{Field: "email", Value: email})
}
