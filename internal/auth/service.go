package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTimeout bounds one sign-in attempt.
const DefaultTimeout = 5 * time.Minute

// Service is the Authenticator used by the dashboard. It allows a single attempt
// in flight and gives every attempt a deadline.
type Service struct {
	accounts *Accounts
	oauth    *OAuth
	timeout  time.Duration
	results  chan Result

	mu      sync.Mutex
	pending bool
}

var _ Authenticator = (*Service)(nil)

// NewService composes password and OAuth sign-in. oauth may be nil.
func NewService(accounts *Accounts, oauth *OAuth, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		accounts: accounts,
		oauth:    oauth,
		timeout:  timeout,
		results:  make(chan Result, 8),
	}
}

// Results is the notification channel for redirect sign-ins.
func (s *Service) Results() <-chan Result {
	return s.results
}

// Pending reports whether an attempt is in flight.
func (s *Service) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Service) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return fail("A sign-in attempt is already in progress", ErrAttemptPending)
	}
	s.pending = true
	return nil
}

func (s *Service) release() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (Identity, error) {
	return s.withAttempt(ctx, func(ctx context.Context) (Identity, error) {
		return s.accounts.SignInWithPassword(ctx, email, password)
	})
}

func (s *Service) SignUp(ctx context.Context, email, password string, meta Metadata) (Identity, error) {
	return s.withAttempt(ctx, func(ctx context.Context) (Identity, error) {
		return s.accounts.SignUp(ctx, email, password, meta)
	})
}

func (s *Service) withAttempt(ctx context.Context, fn func(context.Context) (Identity, error)) (Identity, error) {
	if err := s.acquire(); err != nil {
		return Identity{}, err
	}
	defer s.release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := fn(ctx)
	if err != nil {
		return Identity{}, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Identity{}, fail("Sign-in timed out. Please try again", ErrTimeout)
	}
	return id, nil
}

// SignInWithOAuth starts a redirect sign-in. The attempt stays pending until a
// signed-in or failed Result has been published on Results.
func (s *Service) SignInWithOAuth(ctx context.Context, p Provider) error {
	if err := s.acquire(); err != nil {
		return err
	}
	if s.oauth == nil {
		s.release()
		return fail("Sign-in with "+p.Label()+" is not configured", ErrUnknownProvider)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	err := s.oauth.Start(ctx, p, func(r Result) {
		if r.Kind != ResultRedirect {
			cancel()
			s.release()
		}
		s.results <- r
	})
	if err != nil {
		cancel()
		s.release()
		return err
	}
	return nil
}
