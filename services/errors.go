package services

import (
	"errors"
	"fmt"

	"github.com/Sovan7777/spardha-26/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrTeamNotFound = errors.New("team not found")

	// Конфликты уникальности
	ErrTeamIDConflict    = errors.New("team id is already taken")
	ErrTeamEmailConflict = errors.New("a team is already registered with this email")
	ErrStatusConflict    = errors.New("team status was changed by someone else, reload and retry")

	// Бизнес-правила
	ErrInvalidStatus           = errors.New("invalid team status")
	ErrInvalidStatusTransition = errors.New("invalid team status transition")
	ErrUploadTooLarge          = errors.New("uploaded file is too large")
	ErrUnsupportedFileType     = errors.New("unsupported file type")

	// Аутентификация
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("admin authentication required")
	ErrInvalidToken       = errors.New("invalid or expired admin token")
)

// mapRepositoryError переводит ошибки репозитория в ошибки сервисного слоя.
// Validation and duplicate-key errors stay reachable through errors.Is/As.
func mapRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrTeamEmailConflict):
		return fmt.Errorf("%w: %w", ErrTeamEmailConflict, err)
	case errors.Is(err, repositories.ErrTeamIDConflict):
		return fmt.Errorf("%w: %w", ErrTeamIDConflict, err)
	case errors.Is(err, repositories.ErrTeamStatusChanged):
		return ErrStatusConflict
	default:
		return err
	}
}
