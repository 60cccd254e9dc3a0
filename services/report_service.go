package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/repositories"
	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

const (
	teamsSheet   = "Teams"
	summarySheet = "Summary"
)

var teamsHeader = []any{
	"Team ID", "Event", "College", "Email", "UPI ID", "Amount", "Status",
	"Player", "Gender", "Mobile", "Captain", "Player ID Card",
	"Transaction Screenshot", "ID Card", "Registered At",
}

type ReportSummary struct {
	TotalTeams  int               `json:"totalTeams"`
	TotalAmount float64           `json:"totalAmount"`
	ByStatus    []models.TeamStat `json:"byStatus"`
	ByEvent     []models.TeamStat `json:"byEvent"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

type ReportService interface {
	Summary(ctx context.Context) (*ReportSummary, error)
	ExportXLSX(ctx context.Context, w io.Writer) error
}

type reportService struct {
	teamRepo repositories.TeamRepository
	clock    clockwork.Clock
}

func NewReportService(teamRepo repositories.TeamRepository, clock clockwork.Clock) ReportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &reportService{teamRepo: teamRepo, clock: clock}
}

func (s *reportService) Summary(ctx context.Context) (*ReportSummary, error) {
	summary := &ReportSummary{GeneratedAt: s.clock.Now().UTC()}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.teamRepo.StatsByStatus(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load status stats: %w", err)
		}
		summary.ByStatus = stats
		return nil
	})
	g.Go(func() error {
		stats, err := s.teamRepo.StatsByEvent(gCtx)
		if err != nil {
			return fmt.Errorf("failed to load event stats: %w", err)
		}
		summary.ByEvent = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, st := range summary.ByStatus {
		summary.TotalTeams += st.Count
		summary.TotalAmount += st.Amount
	}
	return summary, nil
}

// ExportXLSX пишет книгу с листом команд (строка на игрока) и листом сводки.
func (s *reportService) ExportXLSX(ctx context.Context, w io.Writer) error {
	teams, _, err := s.teamRepo.List(ctx, models.TeamFilter{})
	if err != nil {
		return fmt.Errorf("failed to load teams for export: %w", err)
	}
	summary, err := s.Summary(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), teamsSheet); err != nil {
		return err
	}
	row := 1
	if err := setRow(f, teamsSheet, row, teamsHeader); err != nil {
		return err
	}
	for _, team := range teams {
		for _, p := range team.Players {
			row++
			cells := []any{
				team.TeamID, team.Event, team.College, team.Email, team.UpiID, team.Amount, string(team.Status),
				p.Name, string(p.Gender), p.Mobile, p.IsCaptain, p.PlayerIDCardPicPath,
				derefString(team.TransactionScreenshotPath), derefString(team.IDCardPicPath),
				team.CreatedAt.Format(time.RFC3339),
			}
			if err := setRow(f, teamsSheet, row, cells); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	row = 1
	if err := setRow(f, summarySheet, row, []any{"Group", "Key", "Teams", "Amount"}); err != nil {
		return err
	}
	for _, group := range []struct {
		name  string
		stats []models.TeamStat
	}{{"status", summary.ByStatus}, {"event", summary.ByEvent}} {
		for _, st := range group.stats {
			row++
			if err := setRow(f, summarySheet, row, []any{group.name, st.Key, st.Count, st.Amount}); err != nil {
				return err
			}
		}
	}
	row++
	if err := setRow(f, summarySheet, row, []any{"total", "", summary.TotalTeams, summary.TotalAmount}); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	axis, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, axis, &cells)
}
