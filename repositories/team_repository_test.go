package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

var testStart = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func newTeam(id int, email string) *models.Team {
	return &models.Team{
		TeamID:  id,
		Event:   "Basketball",
		College: "IIT Bhubaneswar",
		Email:   email,
		Players: []models.Player{{
			Name:                "Kiran",
			Gender:              models.GenderFemale,
			Mobile:              "7012345678",
			PlayerIDCardPicPath: "registrations/basketball/k.jpg",
			IsCaptain:           true,
		}},
		UpiID:    "kiran@okaxis",
		Password: "hunter22",
		Amount:   0,
	}
}

func TestMemoryRepository_CreateSetsTimestampsAndDefaults(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	repo := NewMemoryTeamRepository(clock)
	ctx := context.Background()

	team := newTeam(1001, "a@college.in")
	team.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, team))

	assert.Equal(t, testStart, team.CreatedAt, "caller-supplied timestamps are overwritten")
	assert.Equal(t, testStart, team.UpdatedAt)
	assert.Equal(t, models.StatusPending, team.Status)

	got, err := repo.GetByTeamID(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, team.Email, got.Email)
}

func TestMemoryRepository_Uniqueness(t *testing.T) {
	repo := NewMemoryTeamRepository(clockwork.NewFakeClockAt(testStart))
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTeam(1, "first@x.in")))

	err := repo.Create(ctx, newTeam(1, "second@x.in"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTeamIDConflict)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.NotErrorIs(t, err, models.ErrValidation)

	err = repo.Create(ctx, newTeam(2, "first@x.in"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTeamEmailConflict)
	var dup *models.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "email", dup.Field)

	_, total, err := repo.List(ctx, models.TeamFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMemoryRepository_ConcurrentDuplicateCreate(t *testing.T) {
	repo := NewMemoryTeamRepository(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newTeam(7, "same@x.in"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrDuplicateKey)
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryRepository_CreateRejectsInvalid(t *testing.T) {
	repo := NewMemoryTeamRepository(nil)
	team := newTeam(3, "c@x.in")
	team.Players = nil

	err := repo.Create(context.Background(), team)
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = repo.GetByTeamID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestMemoryRepository_UpdateValidatesAndKeepsCreatedAt(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	repo := NewMemoryTeamRepository(clock)
	ctx := context.Background()

	team := newTeam(10, "u@x.in")
	require.NoError(t, repo.Create(ctx, team))

	clock.Advance(time.Hour)
	team.College = "  Updated College "
	team.CreatedAt = time.Time{}
	require.NoError(t, repo.Update(ctx, team))
	assert.Equal(t, testStart, team.CreatedAt)
	assert.Equal(t, testStart.Add(time.Hour), team.UpdatedAt)

	got, err := repo.GetByTeamID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Updated College", got.College)

	got.Amount = -1
	assert.ErrorIs(t, repo.Update(ctx, got), models.ErrValidation)

	missing := newTeam(99, "m@x.in")
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrTeamNotFound)
}

func TestMemoryRepository_UpdateEmailConflict(t *testing.T) {
	repo := NewMemoryTeamRepository(nil)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTeam(1, "one@x.in")))
	require.NoError(t, repo.Create(ctx, newTeam(2, "two@x.in")))

	second, err := repo.GetByTeamID(ctx, 2)
	require.NoError(t, err)
	second.Email = "one@x.in"
	assert.ErrorIs(t, repo.Update(ctx, second), ErrTeamEmailConflict)

	second.Email = "three@x.in"
	require.NoError(t, repo.Update(ctx, second))
	_, err = repo.GetByEmail(ctx, "two@x.in")
	assert.ErrorIs(t, err, ErrTeamNotFound)
	got, err := repo.GetByEmail(ctx, "three@x.in")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TeamID)
}

func TestMemoryRepository_UpdateStatus(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	repo := NewMemoryTeamRepository(clock)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTeam(5, "s@x.in")))

	clock.Advance(time.Minute)
	team, err := repo.UpdateStatus(ctx, 5, models.StatusPending, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, team.Status)
	assert.Equal(t, testStart.Add(time.Minute), team.UpdatedAt)

	_, err = repo.UpdateStatus(ctx, 5, models.StatusPending, models.StatusRejected)
	assert.ErrorIs(t, err, ErrTeamStatusChanged)

	_, err = repo.UpdateStatus(ctx, 5, models.StatusApproved, "archived")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = repo.UpdateStatus(ctx, 6, models.StatusPending, models.StatusApproved)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestMemoryRepository_ListFiltersAndPages(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testStart)
	repo := NewMemoryTeamRepository(clock)
	ctx := context.Background()

	for i, event := range []string{"Chess", "Chess", "Kabaddi", "Chess"} {
		team := newTeam(100+i, string(rune('a'+i))+"@x.in")
		team.Event = event
		team.Amount = 100
		require.NoError(t, repo.Create(ctx, team))
		clock.Advance(time.Second)
	}

	teams, total, err := repo.List(ctx, models.TeamFilter{Event: "Chess", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, teams, 2)
	assert.Equal(t, 103, teams[0].TeamID, "newest first")
	assert.Equal(t, 101, teams[1].TeamID)

	teams, _, err = repo.List(ctx, models.TeamFilter{Event: "Chess", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, 100, teams[0].TeamID)

	approved := models.StatusApproved
	teams, total, err = repo.List(ctx, models.TeamFilter{Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, teams)

	byEvent, err := repo.StatsByEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.TeamStat{
		{Key: "Chess", Count: 3, Amount: 300},
		{Key: "Kabaddi", Count: 1, Amount: 100},
	}, byEvent)

	byStatus, err := repo.StatsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.TeamStat{{Key: "pending", Count: 4, Amount: 400}}, byStatus)
}

func TestMemoryRepository_NextTeamID(t *testing.T) {
	repo := NewMemoryTeamRepository(nil)
	first, err := repo.NextTeamID(context.Background())
	require.NoError(t, err)
	second, err := repo.NextTeamID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, teamIDBase+1, first)
	assert.Equal(t, first+1, second)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	repo := NewMemoryTeamRepository(nil)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newTeam(1, "copy@x.in")))

	got, err := repo.GetByTeamID(ctx, 1)
	require.NoError(t, err)
	got.Players[0].Name = "mutated"

	again, err := repo.GetByTeamID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Kiran", again.Players[0].Name)
}

func TestMapTeamWriteError(t *testing.T) {
	team := newTeam(42, "dup@x.in")

	err := mapTeamWriteError(&pq.Error{Code: "23505", Constraint: "teams_email_key"}, team)
	assert.ErrorIs(t, err, ErrTeamEmailConflict)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)

	err = mapTeamWriteError(&pq.Error{Code: "23505", Constraint: "teams_team_id_key"}, team)
	assert.ErrorIs(t, err, ErrTeamIDConflict)

	err = mapTeamWriteError(&pq.Error{Code: "23514", Constraint: "teams_amount_check"}, team)
	assert.NotErrorIs(t, err, models.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "failed to write team 42")
}

func TestMapMongoWriteError(t *testing.T) {
	team := newTeam(42, "dup@x.in")
	dup := func(index string) error {
		return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
			Code:    11000,
			Message: "E11000 duplicate key error collection: spardha.teams index: " + index + " dup key",
		}}}
	}

	assert.ErrorIs(t, mapMongoWriteError(dup(emailIndex), team), ErrTeamEmailConflict)
	assert.ErrorIs(t, mapMongoWriteError(dup(teamIDIndex), team), ErrTeamIDConflict)
	assert.NotErrorIs(t, mapMongoWriteError(errors.New("boom"), team), models.ErrDuplicateKey)
}

func TestBuildTeamFilter(t *testing.T) {
	where, args := buildTeamFilter(models.TeamFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	status := models.StatusRejected
	where, args = buildTeamFilter(models.TeamFilter{Event: " Chess ", Status: &status})
	assert.Equal(t, " WHERE event = $1 AND status = $2", where)
	assert.Equal(t, []any{"Chess", models.StatusRejected}, args)
}
