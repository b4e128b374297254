package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Account is a stored password login.
type Account struct {
	Email        string
	PasswordHash string
	DisplayName  string
	AvatarURL    string
	CreatedAt    time.Time
}

// AccountStore persists password accounts. FindAccount returns an error wrapping
// ErrNoAccount for unknown emails and CreateAccount one wrapping ErrEmailTaken
// for duplicates.
type AccountStore interface {
	CreateAccount(ctx context.Context, a Account) error
	FindAccount(ctx context.Context, email string) (Account, error)
}

// Accounts signs users up and in with email and password.
type Accounts struct {
	store AccountStore
	cost  int
	now   func() time.Time
}

// NewAccounts returns password auth backed by store.
func NewAccounts(store AccountStore) *Accounts {
	return &Accounts{store: store, cost: bcrypt.DefaultCost, now: time.Now}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fail("Enter a valid email address", ErrInvalidEmail)
	}
	return email, nil
}

// SignUp creates an account and returns its identity.
func (a *Accounts) SignUp(ctx context.Context, email, password string, meta Metadata) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if len(password) < MinPasswordLength {
		return Identity{}, fail(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength), ErrWeakPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Identity{}, fail("Could not create account", err)
	}
	name := strings.TrimSpace(meta.DisplayName)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	acct := Account{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  name,
		AvatarURL:    strings.TrimSpace(meta.AvatarURL),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return Identity{}, fail("An account with this email already exists", err)
		}
		return Identity{}, fail("Could not create account", err)
	}
	slog.Info("account created", "email", email)
	return acct.identity(), nil
}

// SignInWithPassword checks the password against the stored hash.
func (a *Accounts) SignInWithPassword(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	acct, err := a.store.FindAccount(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNoAccount) {
			return Identity{}, fail("Invalid email or password", ErrInvalidCredentials)
		}
		return Identity{}, fail("Could not sign in", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		slog.Debug("password mismatch", "email", email)
		return Identity{}, fail("Invalid email or password", ErrInvalidCredentials)
	}
	return acct.identity(), nil
}

func (a Account) identity() Identity {
	return Identity{Name: a.DisplayName, Email: a.Email, AvatarURL: a.AvatarURL}
}
