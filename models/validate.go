package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	mobileRegex = regexp.MustCompile(`^[6-9]\d{9}$`)
	emailRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	validate = newValidator()
)

// Имена правил, которые попадают в FieldError.Rule.
const (
	RuleRequired  = "required"
	RuleEnum      = "enum"
	RuleMatch     = "match"
	RuleMinItems  = "min_items"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleMin       = "min"
	RulePositive  = "positive"
)

// ErrValidation matches any *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Rule))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields returns field -> message, the shape handlers send back on 422.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		out[fe.Field] = fe.Message
	}
	return out
}

// Has reports whether field failed the given rule.
func (e *ValidationError) Has(field, rule string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field && fe.Rule == rule {
			return true
		}
	}
	return false
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Field names in errors follow the stored document keys.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("bson"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("in_mobile", func(fl validator.FieldLevel) bool {
		return mobileRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	return v
}

// NormalizeTeam trims the text fields the schema declares as trimmed and fills defaults.
func NormalizeTeam(t *Team) {
	t.Event = strings.TrimSpace(t.Event)
	t.College = strings.TrimSpace(t.College)
	t.UpiID = strings.TrimSpace(t.UpiID)
	if t.Status == "" {
		t.Status = StatusPending
	}
	for i := range t.Players {
		t.Players[i].Name = strings.TrimSpace(t.Players[i].Name)
	}
}

// ValidateTeam normalizes t in place and checks every schema rule.
// It has no side effects besides normalization; a nil return means t can be persisted.
func ValidateTeam(t *Team) error {
	if t == nil {
		return &ValidationError{Errors: []FieldError{{Field: "team", Rule: RuleRequired, Message: "team is required"}}}
	}
	NormalizeTeam(t)

	err := validate.Struct(t)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate team: %w", err)
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, toFieldError(fe))
	}
	return out
}

// NewTeam is the Team factory: it returns a validated entity or a *ValidationError.
// Timestamps are left for the repository to set.
func NewTeam(candidate Team) (*Team, error) {
	team := candidate
	team.Players = append([]Player(nil), candidate.Players...)
	team.CreatedAt, team.UpdatedAt = time.Time{}, time.Time{}
	if err := ValidateTeam(&team); err != nil {
		return nil, err
	}
	return &team, nil
}

func toFieldError(fe validator.FieldError) FieldError {
	// Namespace looks like "Team.players[0].mobile"; drop the struct name.
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}

	rule := fe.Tag()
	var msg string
	switch fe.Tag() {
	case "required":
		rule = RuleRequired
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		rule = RuleEnum
		msg = fmt.Sprintf("%q is not a valid value for %s", fe.Value(), fe.Field())
	case "in_mobile":
		rule = RuleMatch
		msg = "mobile must be a 10-digit number starting with 6-9"
	case "basic_email":
		rule = RuleMatch
		msg = "email is not a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			rule = RuleMinItems
			msg = "At least one player required."
		} else {
			rule = RuleMinLength
			msg = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
	case "gte":
		rule = RuleMin
		msg = fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		rule = RulePositive
		msg = fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		msg = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return FieldError{Field: field, Rule: rule, Message: msg}
}
