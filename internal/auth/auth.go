// Package auth signs users into the dashboard with a password account or an OAuth provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoAccount          = errors.New("account not found")
	ErrAttemptPending     = errors.New("sign-in already in progress")
	ErrUnknownProvider    = errors.New("provider not configured")
	ErrStateMismatch      = errors.New("oauth state mismatch")
	ErrTimeout            = errors.New("sign-in timed out")
)

// MinPasswordLength applies to sign-up only.
const MinPasswordLength = 8

// Provider names how a user authenticated.
type Provider string

const (
	ProviderPassword  Provider = "password"
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// ParseProvider maps a stored or typed provider name.
func ParseProvider(v string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(v))); p {
	case ProviderPassword, ProviderGoogle, ProviderMicrosoft:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, v)
}

// Label is the provider name shown to users.
func (p Provider) Label() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderMicrosoft:
		return "Microsoft"
	case ProviderPassword:
		return "email"
	}
	return string(p)
}

// Identity is the signed-in user as the dashboard shows it.
type Identity struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Initials is the avatar fallback: the first letter of each word of the name.
func (i Identity) Initials() string {
	var b strings.Builder
	for _, w := range strings.Fields(i.Name) {
		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}
	if b.Len() == 0 && i.Email != "" {
		return strings.ToUpper(i.Email[:1])
	}
	return strings.ToUpper(b.String())
}

// Metadata is extra profile data supplied at sign-up.
type Metadata struct {
	DisplayName string
	AvatarURL   string
}

// Error is an authentication failure with a message fit to show the user verbatim.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func fail(msg string, err error) *Error {
	return &Error{Message: msg, Err: err}
}

// Message returns the user-facing text for err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return "Sign-in failed: " + err.Error()
}

// ResultKind tells what an asynchronous sign-in notification carries.
type ResultKind int

const (
	// ResultRedirect carries the provider URL the user must open.
	ResultRedirect ResultKind = iota
	ResultSignedIn
	ResultFailed
)

// Result is delivered on the notification channel while a redirect sign-in runs.
type Result struct {
	Kind     ResultKind
	Provider Provider
	URL      string
	Identity Identity
	Err      error
	At       time.Time
}

// Authenticator is the sign-in surface the dashboard depends on.
//
// SignInWithOAuth returns as soon as the redirect has started; the outcome
// arrives later on Results.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password string, meta Metadata) (Identity, error)
	SignInWithOAuth(ctx context.Context, p Provider) error
	Results() <-chan Result
}
