// Package session keeps the "who is signed in" flags between dashboard runs.
//
// Two keys are stored: the serialized identity and the provider used. Their
// absence means signed out. Clearing only removes the keys; the caller decides
// how the UI reacts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"twinflow/internal/auth"
)

const (
	KeyAuth     = "twinflow_auth"
	KeyProvider = "twinflow_provider"
)

// FlagStore is the persisted key/value surface a Manager needs. Get must return an
// error matching notFound (see NewManager) for missing keys.
type FlagStore interface {
	GetFlag(ctx context.Context, key string) (string, error)
	SetFlag(ctx context.Context, key, value string) error
	DeleteFlag(ctx context.Context, key string) error
}

// Session is the signed-in state.
type Session struct {
	Identity auth.Identity
	Provider auth.Provider
}

// SignedIn reports whether the session holds a user.
func (s Session) SignedIn() bool {
	return s.Provider != "" && (s.Identity.Email != "" || s.Identity.Name != "")
}

// Manager loads, saves and clears the session flags.
type Manager struct {
	store    FlagStore
	notFound error
}

// NewManager returns a manager over store. notFound is the sentinel store returns
// for absent keys.
func NewManager(store FlagStore, notFound error) *Manager {
	return &Manager{store: store, notFound: notFound}
}

// Load reads the session. Missing or unreadable flags yield a signed-out session.
func (m *Manager) Load(ctx context.Context) (Session, error) {
	raw, err := m.store.GetFlag(ctx, KeyAuth)
	if err != nil {
		if m.isNotFound(err) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	prov, err := m.store.GetFlag(ctx, KeyProvider)
	if err != nil {
		if m.isNotFound(err) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal([]byte(raw), &s.Identity); err != nil {
		return Session{}, nil
	}
	p, err := auth.ParseProvider(prov)
	if err != nil {
		return Session{}, nil
	}
	s.Provider = p
	return s, nil
}

// Save writes both flags.
func (m *Manager) Save(ctx context.Context, s Session) error {
	if !s.SignedIn() {
		return errors.New("save session: no signed-in user")
	}
	raw, err := json.Marshal(s.Identity)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := m.store.SetFlag(ctx, KeyAuth, string(raw)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := m.store.SetFlag(ctx, KeyProvider, string(s.Provider)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear removes both flags.
func (m *Manager) Clear(ctx context.Context) error {
	var errs []error
	for _, k := range []string{KeyAuth, KeyProvider} {
		if err := m.store.DeleteFlag(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (m *Manager) isNotFound(err error) bool {
	return m.notFound != nil && errors.Is(err, m.notFound)
}
