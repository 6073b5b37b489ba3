package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Pauses holds the per-module pause toggles.
type Pauses struct {
	Farming bool `json:"farming"`
	Staking bool `json:"staking"`
}

// Paused reports the toggle for the named module.
func (p Pauses) Paused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case ModuleFarming:
		return p.Farming
	case ModuleStaking:
		return p.Staking
	default:
		return false
	}
}

// Store provides typed accessors for persisted parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key. Values are marshalled as JSON.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, a zero-value
// configuration is returned.
func (s *Store) Pauses() (Pauses, error) {
	state, err := s.withState()
	if err != nil {
		return Pauses{}, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return Pauses{}, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// SetPaused flips a single module toggle.
func (s *Store) SetPaused(module string, paused bool) error {
	pauses, err := s.Pauses()
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(module)) {
	case ModuleFarming:
		pauses.Farming = paused
	case ModuleStaking:
		pauses.Staking = paused
	default:
		return fmt.Errorf("params: unknown module %q", module)
	}
	return s.SetPauses(pauses)
}

// IsPaused implements the engines' pause view. Read failures report the module
// as paused so a corrupt toggle never silently re-opens a module.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		return true
	}
	return pauses.Paused(module)
}
