// Package session implements the client side of the taskboard auth protocol:
// login, signup, logout and the single-flight token refresh.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/taskboard-client/internal/serviceerr"
	"github.com/openkcm/taskboard-client/pkg/tokenstore"
)

const (
	DefaultRefreshTimeout = 10 * time.Second

	refreshFlightKey = "refresh"
)

// DefaultTokenAlgorithms are accepted when parsing access tokens for their
// claims. Signatures are never verified on the client.
var DefaultTokenAlgorithms = []string{"HS256", "RS256", "ES256"}

type Config struct {
	// BaseURL of the taskboard API, e.g. http://localhost:8000/.
	BaseURL string
	// RefreshTimeout bounds a refresh call. It is detached from the caller's
	// context so a cancelled request never aborts a refresh others wait on.
	RefreshTimeout  time.Duration
	TokenAlgorithms []string
}

type Manager struct {
	store      *tokenstore.Store
	httpClient *http.Client
	navigator  Navigator
	tracer     trace.Tracer

	baseURL        string
	refreshTimeout time.Duration
	jwsSigAlgs     []jose.SignatureAlgorithm

	flight singleflight.Group
}

// NewManager creates a session manager. The http client must not be wrapped
// by the request authorizer, since the auth endpoints are called directly.
func NewManager(cfg Config, store *tokenstore.Store, httpClient *http.Client, navigator Navigator) (*Manager, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	if store == nil {
		return nil, errors.New("token store is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if navigator == nil {
		navigator = noopNavigator{}
	}

	timeout := cfg.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}

	algNames := cfg.TokenAlgorithms
	if len(algNames) == 0 {
		algNames = DefaultTokenAlgorithms
	}
	algs := make([]jose.SignatureAlgorithm, 0, len(algNames))
	for _, alg := range algNames {
		algs = append(algs, jose.SignatureAlgorithm(alg))
	}

	return &Manager{
		store:          store,
		httpClient:     httpClient,
		navigator:      navigator,
		tracer:         otel.Tracer("github.com/openkcm/taskboard-client/pkg/session"),
		baseURL:        cfg.BaseURL,
		refreshTimeout: timeout,
		jwsSigAlgs:     algs,
	}, nil
}

func (m *Manager) Store() *tokenstore.Store {
	return m.store
}

// Login exchanges the credentials for a token pair, stores it together with
// the identity hint and navigates to the projects view.
func (m *Manager) Login(ctx context.Context, creds Credentials) (_ Tokens, err error) {
	ctx, span := m.tracer.Start(ctx, "session.Login")
	defer func() { endSpan(span, err) }()

	endpoint, err := m.endpoint("auth", "login")
	if err != nil {
		return Tokens{}, err
	}

	var tokens Tokens
	if err := m.call(ctx, http.MethodPost, endpoint, "", creds, &tokens); err != nil {
		return Tokens{}, fmt.Errorf("logging in: %w", err)
	}

	if err := m.store.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return Tokens{}, fmt.Errorf("storing login tokens: %w", err)
	}

	if err := m.store.SetIdentity(ctx, creds.Email); err != nil {
		slogctx.Warn(ctx, "Could not store the identity hint", "error", err)
	}

	slogctx.Info(ctx, "Logged in", "email", creds.Email)
	m.navigator.Navigate(ctx, ViewProjects)

	return tokens, nil
}

// Signup registers a new account and navigates to the login view. No
// session is created.
func (m *Manager) Signup(ctx context.Context, reg Registration) (err error) {
	ctx, span := m.tracer.Start(ctx, "session.Signup")
	defer func() { endSpan(span, err) }()

	endpoint, err := m.endpoint("auth", "signup")
	if err != nil {
		return err
	}

	if err := m.call(ctx, http.MethodPost, endpoint, "", reg, nil); err != nil {
		return fmt.Errorf("signing up: %w", err)
	}

	slogctx.Info(ctx, "Signed up", "email", reg.Email)
	m.navigator.Navigate(ctx, ViewLogin)

	return nil
}

// Refresh trades the stored refresh token for a new pair. Concurrent calls
// share a single request. On any failure the session is cleared, the login
// view is requested and the error wraps serviceerr.ErrRefreshFailed.
//
// The caller's context only bounds the wait. The refresh itself runs with
// the configured timeout.
func (m *Manager) Refresh(ctx context.Context) (Tokens, error) {
	ch := m.flight.DoChan(refreshFlightKey, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()

		return m.refresh(refreshCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		tokens, _ := res.Val.(Tokens)
		return tokens, nil
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) (_ Tokens, err error) {
	ctx, span := m.tracer.Start(ctx, "session.Refresh")
	defer func() { endSpan(span, err) }()

	refreshToken, ok, err := m.store.RefreshToken(ctx)
	if err != nil {
		m.endSession(ctx)
		return Tokens{}, fmt.Errorf("%w: %w", serviceerr.ErrRefreshFailed, err)
	}
	if !ok {
		slogctx.Warn(ctx, "No refresh token stored, ending session")
		m.endSession(ctx)
		return Tokens{}, fmt.Errorf("%w: %w", serviceerr.ErrRefreshFailed, serviceerr.ErrNoRefreshToken)
	}

	endpoint, err := m.endpoint("auth", "refresh")
	if err != nil {
		m.endSession(ctx)
		return Tokens{}, fmt.Errorf("%w: %w", serviceerr.ErrRefreshFailed, err)
	}

	var tokens Tokens
	if err := m.call(ctx, http.MethodGet, endpoint, refreshToken, nil, &tokens); err != nil {
		slogctx.Warn(ctx, "Could not refresh tokens, ending session", "error", err)
		m.endSession(ctx)
		return Tokens{}, fmt.Errorf("%w: %w", serviceerr.ErrRefreshFailed, err)
	}

	if err := m.store.SetTokens(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		slogctx.Warn(ctx, "Could not store refreshed tokens, ending session", "error", err)
		m.endSession(ctx)
		return Tokens{}, fmt.Errorf("%w: %w", serviceerr.ErrRefreshFailed, err)
	}

	slogctx.Debug(ctx, "Refreshed tokens")

	return tokens, nil
}

// Logout tells the backend to revoke the session and clears local state.
// Backend failures are logged and ignored, local state is always cleared.
func (m *Manager) Logout(ctx context.Context) (err error) {
	ctx, span := m.tracer.Start(ctx, "session.Logout")
	defer func() { endSpan(span, err) }()

	accessToken, ok, err := m.store.AccessToken(ctx)
	if err != nil {
		slogctx.Warn(ctx, "Could not read the access token for logout", "error", err)
	}

	if ok {
		if err := m.revoke(ctx, accessToken); err != nil {
			slogctx.Warn(ctx, "Logout request failed, clearing the session anyway", "error", err)
		}
	}

	clearErr := m.store.ClearTokens(context.WithoutCancel(ctx))
	m.navigator.Navigate(ctx, ViewLogin)
	if clearErr != nil {
		return fmt.Errorf("clearing session: %w", clearErr)
	}

	slogctx.Info(ctx, "Logged out")

	return nil
}

func (m *Manager) revoke(ctx context.Context, accessToken string) error {
	endpoint, err := m.endpoint("auth", "logout")
	if err != nil {
		return err
	}

	return m.call(ctx, http.MethodPost, endpoint, accessToken, nil, nil)
}

// AccessToken returns the stored access token.
func (m *Manager) AccessToken(ctx context.Context) (string, bool, error) {
	return m.store.AccessToken(ctx)
}

// IsAuthenticated reads the backend, unlike Authenticated which returns the
// last published flag.
func (m *Manager) IsAuthenticated(ctx context.Context) (bool, error) {
	return m.store.HasTokens(ctx)
}

func (m *Manager) Authenticated() bool {
	return m.store.Authenticated()
}

func (m *Manager) Subscribe() (<-chan bool, func()) {
	return m.store.Subscribe()
}

// Identity returns the email of the logged in user. The stored hint wins,
// the subject claim of the access token is the fallback.
func (m *Manager) Identity(ctx context.Context) (string, bool, error) {
	email, ok, err := m.store.Identity(ctx)
	if err != nil {
		return "", false, err
	}
	if ok {
		return email, true, nil
	}

	claims, ok, err := m.accessClaims(ctx)
	if err != nil || !ok || claims.Subject == "" {
		return "", false, err
	}

	return claims.Subject, true, nil
}

// AccessTokenExpiry returns the exp claim of the stored access token. The
// second value is false when there is no token or it carries no expiry.
func (m *Manager) AccessTokenExpiry(ctx context.Context) (time.Time, bool, error) {
	claims, ok, err := m.accessClaims(ctx)
	if err != nil || !ok || claims.Expiry == nil {
		return time.Time{}, false, err
	}

	return claims.Expiry.Time(), true, nil
}

func (m *Manager) accessClaims(ctx context.Context) (jwt.Claims, bool, error) {
	accessToken, ok, err := m.store.AccessToken(ctx)
	if err != nil || !ok {
		return jwt.Claims{}, false, err
	}

	token, err := jwt.ParseSigned(accessToken, m.jwsSigAlgs)
	if err != nil {
		return jwt.Claims{}, false, fmt.Errorf("parsing access token: %w", err)
	}

	var claims jwt.Claims
	if err := token.UnsafeClaimsWithoutVerification(&claims); err != nil {
		return jwt.Claims{}, false, fmt.Errorf("getting access token claims: %w", err)
	}

	return claims, true, nil
}

// endSession clears the store and requests the login view.
func (m *Manager) endSession(ctx context.Context) {
	if err := m.store.ClearTokens(context.WithoutCancel(ctx)); err != nil {
		slogctx.Error(ctx, "Could not clear the session", "error", err)
	}

	m.navigator.Navigate(ctx, ViewLogin)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
