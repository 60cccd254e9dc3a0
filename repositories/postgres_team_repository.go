package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
)

const teamColumns = `team_id, event, college, email, players, upi_id, transaction_screenshot_path,
		id_card_pic_path, password, amount, status, created_at, updated_at`

type postgresTeamRepository struct {
	db    *sql.DB
	hooks teamHooks
}

func NewPostgresTeamRepository(db *sql.DB, clock clockwork.Clock) TeamRepository {
	return &postgresTeamRepository{db: db, hooks: newTeamHooks(clock)}
}

func (r *postgresTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeCreate(team); err != nil {
		return err
	}
	players, err := json.Marshal(team.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}

	query := `
		INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.ExecContext(ctx, query,
		team.TeamID,
		team.Event,
		team.College,
		team.Email,
		string(players),
		team.UpiID,
		team.TransactionScreenshotPath,
		team.IDCardPicPath,
		team.Password,
		team.Amount,
		team.Status,
		team.CreatedAt,
		team.UpdatedAt,
	)
	if err != nil {
		return mapTeamWriteError(err, team)
	}
	return nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeUpdate(team); err != nil {
		return err
	}
	players, err := json.Marshal(team.Players)
	if err != nil {
		return fmt.Errorf("failed to encode players: %w", err)
	}

	// created_at не обновляется, возвращаем сохранённое значение.
	query := `
		UPDATE teams SET
			event = $1,
			college = $2,
			email = $3,
			players = $4,
			upi_id = $5,
			transaction_screenshot_path = $6,
			id_card_pic_path = $7,
			password = $8,
			amount = $9,
			status = $10,
			updated_at = $11
		WHERE team_id = $12
		RETURNING created_at`

	err = r.db.QueryRowContext(ctx, query,
		team.Event,
		team.College,
		team.Email,
		string(players),
		team.UpiID,
		team.TransactionScreenshotPath,
		team.IDCardPicPath,
		team.Password,
		team.Amount,
		team.Status,
		team.UpdatedAt,
		team.TeamID,
	).Scan(&team.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return mapTeamWriteError(err, team)
	}
	return nil
}

func (r *postgresTeamRepository) GetByTeamID(ctx context.Context, teamID int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_id = $1`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, teamID))
}

func (r *postgresTeamRepository) GetByEmail(ctx context.Context, email string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE email = $1`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresTeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	where, args := buildTeamFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM teams` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	query := `SELECT ` + teamColumns + ` FROM teams` + where + ` ORDER BY created_at DESC, team_id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		team, err := r.scanTeam(rows)
		if err != nil {
			return nil, 0, err
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

func (r *postgresTeamRepository) UpdateStatus(ctx context.Context, teamID int, from, to models.TeamStatus) (*models.Team, error) {
	if err := r.hooks.checkStatus(to); err != nil {
		return nil, err
	}

	query := `
		UPDATE teams SET status = $1, updated_at = $2
		WHERE team_id = $3 AND status = $4
		RETURNING ` + teamColumns

	team, err := r.scanTeam(r.db.QueryRowContext(ctx, query, to, r.hooks.clock.Now().UTC(), teamID, from))
	if err == nil {
		return team, nil
	}
	if !errors.Is(err, ErrTeamNotFound) {
		return nil, err
	}

	// Ни одна строка не обновлена: либо команды нет, либо статус уже другой.
	if _, getErr := r.GetByTeamID(ctx, teamID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrTeamStatusChanged
}

func (r *postgresTeamRepository) StatsByStatus(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(ctx, `SELECT status, COUNT(*), COALESCE(SUM(amount), 0) FROM teams GROUP BY status ORDER BY status`)
}

func (r *postgresTeamRepository) StatsByEvent(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(ctx, `SELECT event, COUNT(*), COALESCE(SUM(amount), 0) FROM teams GROUP BY event ORDER BY event`)
}

func (r *postgresTeamRepository) NextTeamID(ctx context.Context) (int, error) {
	var id int
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('team_id_seq')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate team id: %w", err)
	}
	return id, nil
}

func (r *postgresTeamRepository) stats(ctx context.Context, query string) ([]models.TeamStat, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query team stats: %w", err)
	}
	defer rows.Close()

	stats := make([]models.TeamStat, 0)
	for rows.Next() {
		var s models.TeamStat
		if err := rows.Scan(&s.Key, &s.Count, &s.Amount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *postgresTeamRepository) scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	var players []byte
	err := row.Scan(
		&team.TeamID,
		&team.Event,
		&team.College,
		&team.Email,
		&players,
		&team.UpiID,
		&team.TransactionScreenshotPath,
		&team.IDCardPicPath,
		&team.Password,
		&team.Amount,
		&team.Status,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	if err := json.Unmarshal(players, &team.Players); err != nil {
		return nil, fmt.Errorf("failed to decode players of team %d: %w", team.TeamID, err)
	}
	return &team, nil
}

func buildTeamFilter(filter models.TeamFilter) (string, []any) {
	var conds []string
	var args []any
	if event := strings.TrimSpace(filter.Event); event != "" {
		args = append(args, event)
		conds = append(conds, fmt.Sprintf("event = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func mapTeamWriteError(err error, team *models.Team) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		switch pqErr.Constraint {
		case "teams_team_id_key":
			return teamIDConflict(team.TeamID)
		case "teams_email_key":
			return emailConflict(team.Email)
		}
	}
	return fmt.Errorf("failed to write team %d: %w", team.TeamID, err)
}
