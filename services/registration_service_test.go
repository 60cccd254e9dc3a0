package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Sovan7777/spardha-26/feed"
	"github.com/Sovan7777/spardha-26/metrics"
	"github.com/Sovan7777/spardha-26/models"
	"github.com/Sovan7777/spardha-26/repositories"
	"github.com/Sovan7777/spardha-26/utils"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationFixture struct {
	svc       RegistrationService
	repo      repositories.TeamRepository
	uploader  *fakeUploader
	publisher *recordingPublisher
	metrics   *metrics.Collectors
}

func newRegistrationFixture(t *testing.T) registrationFixture {
	t.Helper()
	f := registrationFixture{
		repo:      repositories.NewMemoryTeamRepository(clockwork.NewFakeClock()),
		uploader:  newFakeUploader(),
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
	}
	f.svc = NewRegistrationService(f.repo, f.uploader, f.publisher, f.metrics, 1<<20, nil)
	return f
}

func validInput(email string) RegisterTeamInput {
	amount := 500.0
	return RegisterTeamInput{
		Event:    "Table Tennis",
		College:  " NIT Rourkela ",
		Email:    email,
		UpiID:    "team@okicici",
		Password: "secret123",
		Amount:   &amount,
		Players: []PlayerInput{
			{Name: "Asha", Gender: "Female", Mobile: "9876543210", IsCaptain: true, IDCard: image("asha.png")},
			{Name: "Ravi", Gender: "Male", Mobile: "8123456789", IDCard: image("ravi")},
		},
		TransactionScreenshot: image("payment.png"),
	}
}

func TestRegister_Success(t *testing.T) {
	f := newRegistrationFixture(t)

	team, err := f.svc.Register(context.Background(), validInput("captain@nitrkl.ac.in"))
	require.NoError(t, err)

	assert.Equal(t, 1001, team.TeamID)
	assert.Equal(t, "NIT Rourkela", team.College)
	assert.Equal(t, models.StatusPending, team.Status)
	assert.True(t, utils.CheckPasswordHash("secret123", team.Password), "password is stored hashed")
	assert.NotEqual(t, "secret123", team.Password)

	require.Len(t, team.Players, 2)
	for _, p := range team.Players {
		assert.True(t, strings.HasPrefix(p.PlayerIDCardPicPath, "https://files.spardha.test/registrations/table-tennis/"), p.PlayerIDCardPicPath)
	}
	assert.True(t, strings.HasSuffix(team.Players[1].PlayerIDCardPicPath, ".png"), "extension derived from content type")
	require.NotNil(t, team.TransactionScreenshotPath)
	assert.Contains(t, *team.TransactionScreenshotPath, "registrations/table-tennis/")
	assert.Nil(t, team.IDCardPicPath)
	assert.Equal(t, 3, f.uploader.Len())

	stored, err := f.repo.GetByEmail(context.Background(), "captain@nitrkl.ac.in")
	require.NoError(t, err)
	assert.Equal(t, team.TeamID, stored.TeamID)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, feed.EventTeamRegistered, events[0].Type)
	assert.Equal(t, 1001, events[0].Payload.(TeamEvent).TeamID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Registrations.WithLabelValues("Table Tennis")))
}

func TestRegister_ValidationHappensBeforeUploads(t *testing.T) {
	f := newRegistrationFixture(t)
	input := validInput("bad")
	input.Amount = nil
	input.Players[0].Mobile = "12345"
	input.Players[1].IDCard = nil
	input.TransactionScreenshot = &FileUpload{Filename: "notes.txt", ContentType: "text/plain", Size: 4, Reader: strings.NewReader("text")}

	_, err := f.svc.Register(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("email", models.RuleMatch))
	assert.True(t, verr.Has("amount", models.RuleRequired))
	assert.True(t, verr.Has("players[0].mobile", models.RuleMatch))
	assert.True(t, verr.Has("players[1].playerIdCardPicPath", models.RuleRequired))
	assert.True(t, verr.Has("transactionScreenshotPath", ruleFile))

	assert.Equal(t, 0, f.uploader.Len())
	assert.Empty(t, f.publisher.Events())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationFailures.WithLabelValues("validation")))

	// teamID не расходуется на невалидные заявки.
	next, err := f.repo.NextTeamID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1001, next)
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "72 bytes fits", password: strings.Repeat("a", utils.MaxPasswordBytes)},
		{name: "80 bytes rejected", password: strings.Repeat("a", 80), wantErr: true},
		{name: "multibyte counted in bytes", password: strings.Repeat("ж", 40), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRegistrationFixture(t)
			input := validInput("long@x.in")
			input.Password = tt.password

			_, err := f.svc.Register(context.Background(), input)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var verr *models.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.True(t, verr.Has("password", models.RuleMaxLength))
			assert.Equal(t, 0, f.uploader.Len())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationFailures.WithLabelValues("validation")))

			next, err := f.repo.NextTeamID(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1001, next)
		})
	}
}

func TestRegister_NoPlayers(t *testing.T) {
	f := newRegistrationFixture(t)
	input := validInput("solo@x.in")
	input.Players = nil

	_, err := f.svc.Register(context.Background(), input)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("players", models.RuleMinItems))
	assert.Equal(t, "At least one player required.", verr.Fields()["players"])
}

func TestRegister_FileTooLarge(t *testing.T) {
	f := newRegistrationFixture(t)
	input := validInput("big@x.in")
	input.Players[0].IDCard.Size = 2 << 20

	_, err := f.svc.Register(context.Background(), input)
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("players[0].playerIdCardPicPath", ruleFile))
	assert.Contains(t, verr.Fields()["players[0].playerIdCardPicPath"], "too large")
}

func TestRegister_DuplicateEmailCleansUploads(t *testing.T) {
	f := newRegistrationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, validInput("dup@x.in"))
	require.NoError(t, err)
	require.Equal(t, 3, f.uploader.Len())

	_, err = f.svc.Register(ctx, validInput("dup@x.in"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTeamEmailConflict)
	assert.ErrorIs(t, err, models.ErrDuplicateKey)
	assert.NotErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 3, f.uploader.Len(), "second registration's uploads are removed")
	assert.Len(t, f.publisher.Events(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationFailures.WithLabelValues("duplicate")))
}

func TestRegister_UploadFailureRollsBack(t *testing.T) {
	f := newRegistrationFixture(t)
	var calls atomic.Int32
	f.uploader.UploadFn = func(key string) error {
		if calls.Add(1) == 2 {
			return errors.New("r2 unavailable")
		}
		return nil
	}

	_, err := f.svc.Register(context.Background(), validInput("upload@x.in"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "r2 unavailable")
	assert.Equal(t, 0, f.uploader.Len())

	_, err = f.repo.GetByEmail(context.Background(), "upload@x.in")
	assert.ErrorIs(t, err, repositories.ErrTeamNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RegistrationFailures.WithLabelValues("upload")))
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "a.jpg", uploadName(&FileUpload{Filename: "a.jpg", ContentType: "image/png"}))
	assert.Equal(t, "scan.pdf", uploadName(&FileUpload{Filename: "scan", ContentType: "application/pdf"}))
	assert.Equal(t, "blob", uploadName(&FileUpload{Filename: "blob", ContentType: "text/plain"}))
}
