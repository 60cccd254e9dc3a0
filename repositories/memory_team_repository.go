package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/jonboulle/clockwork"
)

// memoryTeamRepository keeps teams in process memory. It is used for local runs
// (DATABASE_URL=memory://) and by tests; it enforces the same uniqueness rules.
type memoryTeamRepository struct {
	mu      sync.RWMutex
	byID    map[int]*models.Team
	byEmail map[string]int
	seq     int
	hooks   teamHooks
}

func NewMemoryTeamRepository(clock clockwork.Clock) TeamRepository {
	return &memoryTeamRepository{
		byID:    make(map[int]*models.Team),
		byEmail: make(map[string]int),
		seq:     teamIDBase,
		hooks:   newTeamHooks(clock),
	}
}

func (r *memoryTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeCreate(team); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[team.TeamID]; ok {
		return teamIDConflict(team.TeamID)
	}
	if _, ok := r.byEmail[team.Email]; ok {
		return emailConflict(team.Email)
	}
	r.byID[team.TeamID] = cloneTeam(team)
	r.byEmail[team.Email] = team.TeamID
	return nil
}

func (r *memoryTeamRepository) Update(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeUpdate(team); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[team.TeamID]
	if !ok {
		return ErrTeamNotFound
	}
	if owner, ok := r.byEmail[team.Email]; ok && owner != team.TeamID {
		return emailConflict(team.Email)
	}

	delete(r.byEmail, stored.Email)
	team.CreatedAt = stored.CreatedAt
	r.byID[team.TeamID] = cloneTeam(team)
	r.byEmail[team.Email] = team.TeamID
	return nil
}

func (r *memoryTeamRepository) GetByTeamID(ctx context.Context, teamID int) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.byID[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	return cloneTeam(team), nil
}

func (r *memoryTeamRepository) GetByEmail(ctx context.Context, email string) (*models.Team, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrTeamNotFound
	}
	return r.GetByTeamID(ctx, id)
}

func (r *memoryTeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	r.mu.RLock()
	matched := make([]models.Team, 0, len(r.byID))
	event := strings.TrimSpace(filter.Event)
	for _, team := range r.byID {
		if event != "" && team.Event != event {
			continue
		}
		if filter.Status != nil && team.Status != *filter.Status {
			continue
		}
		matched = append(matched, *cloneTeam(team))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TeamID > matched[j].TeamID
	})

	total := len(matched)
	if filter.Limit > 0 {
		start := min(filter.Offset(), total)
		end := min(start+filter.Limit, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *memoryTeamRepository) UpdateStatus(ctx context.Context, teamID int, from, to models.TeamStatus) (*models.Team, error) {
	if err := r.hooks.checkStatus(to); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	team, ok := r.byID[teamID]
	if !ok {
		return nil, ErrTeamNotFound
	}
	if team.Status != from {
		return nil, ErrTeamStatusChanged
	}
	team.Status = to
	team.UpdatedAt = r.hooks.clock.Now().UTC()
	return cloneTeam(team), nil
}

func (r *memoryTeamRepository) StatsByStatus(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(func(t *models.Team) string { return string(t.Status) }), nil
}

func (r *memoryTeamRepository) StatsByEvent(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(func(t *models.Team) string { return t.Event }), nil
}

func (r *memoryTeamRepository) NextTeamID(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return r.seq, nil
}

func (r *memoryTeamRepository) stats(key func(*models.Team) string) []models.TeamStat {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byKey := make(map[string]*models.TeamStat)
	for _, team := range r.byID {
		k := key(team)
		s, ok := byKey[k]
		if !ok {
			s = &models.TeamStat{Key: k}
			byKey[k] = s
		}
		s.Count++
		s.Amount += team.Amount
	}

	stats := make([]models.TeamStat, 0, len(byKey))
	for _, s := range byKey {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })
	return stats
}

func cloneTeam(t *models.Team) *models.Team {
	c := *t
	c.Players = append([]models.Player(nil), t.Players...)
	if t.TransactionScreenshotPath != nil {
		v := *t.TransactionScreenshotPath
		c.TransactionScreenshotPath = &v
	}
	if t.IDCardPicPath != nil {
		v := *t.IDCardPicPath
		c.IDCardPicPath = &v
	}
	return &c
}
