package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Sovan7777/spardha-26/feed"
	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/repositories"
	"github.com/Sovan7777/spardha-26/storage"
	"github.com/Sovan7777/spardha-26/utils"
	"golang.org/x/sync/errgroup"
)

// Заглушки на время проверки кандидата: teamID выделяется и файлы загружаются только после неё.
const (
	draftTeamID     = 1
	draftUploadPath = "pending-upload"
)

const maxParallelUploads = 4

// ruleFile помечает нарушения ограничений на загружаемые файлы.
const ruleFile = "file"

type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type PlayerInput struct {
	Name      string      `json:"name"`
	Gender    string      `json:"gender"`
	Mobile    string      `json:"mobile"`
	IsCaptain bool        `json:"isCaptain"`
	IDCard    *FileUpload `json:"-"`
}

type RegisterTeamInput struct {
	Event    string        `json:"event"`
	College  string        `json:"college"`
	Email    string        `json:"email"`
	UpiID    string        `json:"upiId"`
	Password string        `json:"password"`
	Amount   *float64      `json:"amount"`
	Players  []PlayerInput `json:"players"`

	TransactionScreenshot *FileUpload `json:"-"`
	IDCardPic             *FileUpload `json:"-"`
}

type RegistrationService interface {
	Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error)
}

type registrationService struct {
	teamRepo       repositories.TeamRepository
	uploader       storage.FileUploader
	publisher      EventPublisher
	metrics        *metrics.Collectors
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewRegistrationService(
	teamRepo repositories.TeamRepository,
	uploader storage.FileUploader,
	publisher EventPublisher,
	collectors *metrics.Collectors,
	maxUploadBytes int64,
	logger *slog.Logger,
) RegistrationService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if collectors == nil {
		collectors = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationService{
		teamRepo:       teamRepo,
		uploader:       uploader,
		publisher:      publisher,
		metrics:        collectors,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// uploadJob - один файл заявки и место в команде, куда записать его путь.
type uploadJob struct {
	field string
	file  *FileUpload
	dst   *string
}

func (s *registrationService) Register(ctx context.Context, input RegisterTeamInput) (*models.Team, error) {
	team, jobs := buildDraft(input)

	// Проверяем кандидата до загрузки файлов и выделения teamID.
	if err := s.precheck(team, input, jobs); err != nil {
		s.metrics.RegistrationFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	teamID, err := s.teamRepo.NextTeamID(ctx)
	if err != nil {
		s.metrics.RegistrationFailures.WithLabelValues("storage").Inc()
		return nil, fmt.Errorf("failed to allocate team id: %w", err)
	}
	team.TeamID = teamID

	keys, err := s.uploadAll(ctx, team.Event, jobs)
	if err != nil {
		s.metrics.RegistrationFailures.WithLabelValues("upload").Inc()
		return nil, err
	}

	hash, err := utils.HashPassword(team.Password)
	if err != nil {
		s.cleanup(ctx, keys)
		s.metrics.RegistrationFailures.WithLabelValues("internal").Inc()
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	team.Password = hash

	if err := s.teamRepo.Create(ctx, team); err != nil {
		s.cleanup(ctx, keys)
		err = mapRepositoryError(err)
		s.metrics.RegistrationFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	s.logger.InfoContext(ctx, "Team registered",
		slog.Int("team_id", team.TeamID),
		slog.String("event", team.Event),
		slog.Int("players", len(team.Players)))
	s.metrics.Registrations.WithLabelValues(team.Event).Inc()
	s.publisher.Publish(feed.EventTeamRegistered, newTeamEvent(team))
	return team, nil
}

func buildDraft(input RegisterTeamInput) (*models.Team, []uploadJob) {
	team := &models.Team{
		TeamID:   draftTeamID,
		Event:    input.Event,
		College:  input.College,
		Email:    strings.TrimSpace(input.Email),
		UpiID:    input.UpiID,
		Password: input.Password,
		Status:   models.StatusPending,
		Players:  make([]models.Player, len(input.Players)),
	}
	if input.Amount != nil {
		team.Amount = *input.Amount
	}

	var jobs []uploadJob
	for i, p := range input.Players {
		team.Players[i] = models.Player{
			Name:      p.Name,
			Gender:    models.Gender(p.Gender),
			Mobile:    strings.TrimSpace(p.Mobile),
			IsCaptain: p.IsCaptain,
		}
		if p.IDCard != nil {
			team.Players[i].PlayerIDCardPicPath = draftUploadPath
			jobs = append(jobs, uploadJob{
				field: fmt.Sprintf("players[%d].playerIdCardPicPath", i),
				file:  p.IDCard,
				dst:   &team.Players[i].PlayerIDCardPicPath,
			})
		}
	}
	if input.TransactionScreenshot != nil {
		team.TransactionScreenshotPath = new(string)
		jobs = append(jobs, uploadJob{field: "transactionScreenshotPath", file: input.TransactionScreenshot, dst: team.TransactionScreenshotPath})
	}
	if input.IDCardPic != nil {
		team.IDCardPicPath = new(string)
		jobs = append(jobs, uploadJob{field: "idCardPicPath", file: input.IDCardPic, dst: team.IDCardPicPath})
	}
	return team, jobs
}

// precheck собирает все нарушения: правила схемы, обязательную сумму и ограничения на файлы.
func (s *registrationService) precheck(team *models.Team, input RegisterTeamInput, jobs []uploadJob) error {
	var fieldErrs []models.FieldError

	if err := models.ValidateTeam(team); err != nil {
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		fieldErrs = append(fieldErrs, verr.Errors...)
	}
	if len(input.Password) > utils.MaxPasswordBytes {
		fieldErrs = append(fieldErrs, models.FieldError{
			Field:   "password",
			Rule:    models.RuleMaxLength,
			Message: fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes),
		})
	}
	if input.Amount == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "amount", Rule: models.RuleRequired, Message: "amount is required"})
	}
	for _, job := range jobs {
		if err := s.checkFile(job.file); err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: job.field, Rule: ruleFile, Message: err.Error()})
		}
	}

	if len(fieldErrs) > 0 {
		return &models.ValidationError{Errors: fieldErrs}
	}
	return nil
}

func (s *registrationService) checkFile(f *FileUpload) error {
	if f.Reader == nil || f.Size == 0 {
		return fmt.Errorf("%s is empty", f.Filename)
	}
	if s.maxUploadBytes > 0 && f.Size > s.maxUploadBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrUploadTooLarge, f.Filename, s.maxUploadBytes)
	}
	ct := strings.ToLower(f.ContentType)
	if !strings.HasPrefix(ct, "image/") && ct != "application/pdf" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFileType, f.ContentType)
	}
	return nil
}

// uploadAll загружает файлы параллельно и записывает их пути в команду.
// On failure every object that did make it to storage is removed again.
func (s *registrationService) uploadAll(ctx context.Context, event string, jobs []uploadJob) ([]string, error) {
	keys := make([]string, len(jobs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			key := storage.ObjectKey(event, uploadName(job.file))
			res, err := s.uploader.Upload(gCtx, key, job.file.ContentType, job.file.Reader)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", job.field, err)
			}
			keys[i] = res.Key
			*job.dst = res.Location
			if res.Location == "" {
				*job.dst = res.Key
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.cleanup(ctx, keys)
		return nil, err
	}
	return keys, nil
}

func (s *registrationService) cleanup(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove orphaned upload", slog.String("key", key), slog.Any("error", err))
		}
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrDuplicateKey):
		return "duplicate"
	default:
		return "storage"
	}
}
