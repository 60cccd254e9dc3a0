package models

import (
	"errors"
	"fmt"
	"sync"
)

// ValidateFunc checks a candidate record of one entity kind.
type ValidateFunc func(v any) error

// Schema is a registered entity: its name and write-time validator.
type Schema struct {
	Name     string
	Validate ValidateFunc
}

// Registry maps entity names to schemas. Registering the same name twice keeps
// the first schema, so repeated initialisation is harmless.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

var ErrSchemaNotRegistered = errors.New("schema not registered")

// DefaultRegistry is the process-wide registry, populated in init.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(TeamEntity, validateTeamAny)
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register returns the schema stored under name, creating it if absent.
func (r *Registry) Register(name string, fn ValidateFunc) *Schema {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.schemas[name]; ok {
		return s
	}
	s := &Schema{Name: name, Validate: fn}
	r.schemas[name] = s
	return s
}

func (r *Registry) Lookup(name string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotRegistered, name)
	}
	return s, nil
}

func (r *Registry) MustLookup(name string) *Schema {
	s, err := r.Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

func validateTeamAny(v any) error {
	switch t := v.(type) {
	case *Team:
		return ValidateTeam(t)
	case Team:
		return ValidateTeam(&t)
	default:
		return fmt.Errorf("%w: expected Team, got %T", ErrValidation, v)
	}
}

// ErrDuplicateKey matches any *DuplicateKeyError via errors.Is.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError is returned by the storage layer when a unique field collides.
type DuplicateKeyError struct {
	Field string
	Value any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s %v already exists", e.Field, e.Value)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}
