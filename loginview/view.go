// Package loginview models the admin passkey login screen: the passkey input,
// the submit control with its busy label, the error slot and the navigation
// to the report page after a successful login.
package loginview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

const (
	LabelSubmit    = "Submit"
	LabelVerifying = "Verifying..."

	// MsgGenericError показывается, когда вызов adminLogin сам завершился ошибкой.
	MsgGenericError = "An error occurred while verifying the passkey."

	ReportRoute = "/report"
)

var ErrSubmitInFlight = errors.New("login submission already in progress")

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateFailed
	StateNavigated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateFailed:
		return "failed"
	case StateNavigated:
		return "navigated"
	default:
		return "unknown"
	}
}

// Result is what the adminLogin call reports back.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Authenticator interface {
	AdminLogin(ctx context.Context, passkey string) (Result, error)
}

type Navigator interface {
	Navigate(route string)
}

type View struct {
	auth   Authenticator
	nav    Navigator
	logger *slog.Logger

	mu      sync.Mutex
	passkey string
	errMsg  string
	state   State
}

func New(auth Authenticator, nav Navigator, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{auth: auth, nav: nav, logger: logger, state: StateIdle}
}

// SetPasskey mirrors typing into the passkey input.
func (v *View) SetPasskey(passkey string) {
	v.mu.Lock()
	v.passkey = passkey
	v.mu.Unlock()
}

// Submit отправляет passkey. Пока запрос в полёте, повторная отправка
// ничего не делает и возвращает ErrSubmitInFlight.
func (v *View) Submit(ctx context.Context, passkey string) error {
	v.mu.Lock()
	if v.state == StateSubmitting {
		v.mu.Unlock()
		return ErrSubmitInFlight
	}
	v.state = StateSubmitting
	v.errMsg = ""
	v.passkey = passkey
	v.mu.Unlock()

	res, err := v.auth.AdminLogin(ctx, passkey)

	v.mu.Lock()
	switch {
	case err != nil:
		v.logger.WarnContext(ctx, "Admin login call failed", "error", err)
		v.errMsg = MsgGenericError
		v.state = StateFailed
	case !res.Success:
		v.errMsg = res.Message
		v.state = StateFailed
	default:
		v.state = StateNavigated
	}
	navigate := v.state == StateNavigated && v.nav != nil
	v.mu.Unlock()

	// Navigator может читать состояние view, поэтому вызываем его без блокировки.
	if navigate {
		v.nav.Navigate(ReportRoute)
	}
	return nil
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View) Passkey() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.passkey
}

// ErrorMessage returns the text of the error slot; empty means nothing is shown.
func (v *View) ErrorMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}

func (v *View) SubmitDisabled() bool {
	return v.State() == StateSubmitting
}

func (v *View) SubmitLabel() string {
	if v.SubmitDisabled() {
		return LabelVerifying
	}
	return LabelSubmit
}
