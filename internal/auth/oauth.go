package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

const (
	callbackPath = "/oauth2/callback"

	googleUserInfoURL    = "https://openidconnect.googleapis.com/v1/userinfo"
	microsoftUserInfoURL = "https://graph.microsoft.com/oidc/userinfo"
)

var defaultScopes = []string{"openid", "email", "profile"}

// OAuthClient is one provider's registered application.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	Scopes       []string
	UserInfoURL  string
}

// GoogleClient fills in Google's endpoints.
func GoogleClient(id, secret string) OAuthClient {
	return OAuthClient{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     google.Endpoint,
		Scopes:       defaultScopes,
		UserInfoURL:  googleUserInfoURL,
	}
}

// MicrosoftClient fills in the Microsoft identity platform endpoints for tenant.
// An empty tenant means "common".
func MicrosoftClient(id, secret, tenant string) OAuthClient {
	if tenant == "" {
		tenant = "common"
	}
	return OAuthClient{
		ClientID:     id,
		ClientSecret: secret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       defaultScopes,
		UserInfoURL:  microsoftUserInfoURL,
	}
}

// OAuth runs the authorization code flow with a loopback redirect listener.
type OAuth struct {
	clients      map[Provider]OAuthClient
	callbackAddr string
	httpClient   *http.Client
}

// NewOAuth returns a flow for the given providers. callbackAddr is the host:port the
// redirect listener binds; port 0 picks a free port.
func NewOAuth(callbackAddr string, clients map[Provider]OAuthClient) *OAuth {
	if callbackAddr == "" {
		callbackAddr = "127.0.0.1:0"
	}
	return &OAuth{
		clients:      clients,
		callbackAddr: callbackAddr,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether p has a client id.
func (o *OAuth) Configured(p Provider) bool {
	if o == nil {
		return false
	}
	c, ok := o.clients[p]
	return ok && c.ClientID != ""
}

type callback struct {
	code string
	err  error
}

// Start binds the redirect listener and publishes the authorization URL through emit,
// then waits in the background for the provider to redirect back. Exactly one
// terminal Result (signed in or failed) follows, unless Start itself fails.
func (o *OAuth) Start(ctx context.Context, p Provider, emit func(Result)) error {
	if !o.Configured(p) {
		return fail(fmt.Sprintf("Sign-in with %s is not configured", p.Label()), fmt.Errorf("%w: %s", ErrUnknownProvider, p))
	}
	client := o.clients[p]

	ln, err := net.Listen("tcp", o.callbackAddr)
	if err != nil {
		return fail("Could not start the sign-in listener", err)
	}

	cfg := &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     client.Endpoint,
		Scopes:       client.Scopes,
		RedirectURL:  fmt.Sprintf("http://%s%s", ln.Addr().String(), callbackPath),
	}
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callback, 1)
	r := chi.NewRouter()
	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var cb callback
		switch {
		case q.Get("state") != state:
			cb.err = ErrStateMismatch
		case q.Get("error") != "":
			cb.err = fmt.Errorf("provider returned %s: %s", q.Get("error"), q.Get("error_description"))
		case q.Get("code") == "":
			cb.err = errors.New("authorization code not found in redirect")
		default:
			cb.code = q.Get("code")
		}
		if cb.err != nil {
			http.Error(w, "Sign-in failed. Return to the dashboard.", http.StatusBadRequest)
		} else {
			fmt.Fprint(w, "Signed in. You can close this window.")
		}
		select {
		case results <- cb:
		default:
		}
	})

	server := &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case results <- callback{err: fmt.Errorf("callback server: %w", err)}:
			default:
			}
		}
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
	slog.Info("oauth redirect started", "provider", p, "redirect", cfg.RedirectURL)
	emit(Result{Kind: ResultRedirect, Provider: p, URL: authURL, At: time.Now()})

	go func() {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		var cb callback
		select {
		case cb = <-results:
		case <-ctx.Done():
			err := ctx.Err()
			if errors.Is(err, context.DeadlineExceeded) {
				emit(failed(p, fail("Sign-in timed out. Please try again", ErrTimeout)))
				return
			}
			emit(failed(p, fail("Sign-in cancelled", err)))
			return
		}
		if cb.err != nil {
			slog.Warn("oauth callback rejected", "provider", p, "error", cb.err)
			emit(failed(p, fail(fmt.Sprintf("Sign-in with %s failed", p.Label()), cb.err)))
			return
		}

		id, err := o.finish(ctx, cfg, client, cb.code, verifier)
		if err != nil {
			slog.Warn("oauth exchange failed", "provider", p, "error", err)
			emit(failed(p, fail(fmt.Sprintf("Sign-in with %s failed", p.Label()), err)))
			return
		}
		slog.Info("oauth sign-in complete", "provider", p, "email", id.Email)
		emit(Result{Kind: ResultSignedIn, Provider: p, Identity: id, At: time.Now()})
	}()
	return nil
}

func failed(p Provider, err error) Result {
	return Result{Kind: ResultFailed, Provider: p, Err: err, At: time.Now()}
}

type userInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (o *OAuth) finish(ctx context.Context, cfg *oauth2.Config, client OAuthClient, code, verifier string) (Identity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Identity{}, fmt.Errorf("exchange code: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.UserInfoURL, nil)
	if err != nil {
		return Identity{}, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("decode userinfo: %w", err)
	}
	id := Identity{Name: info.Name, Email: info.Email, AvatarURL: info.Picture}
	if id.Name == "" {
		id.Name = id.Email
	}
	return id, nil
}
