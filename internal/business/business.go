package business

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/taskboard-client/internal/config"
	"github.com/openkcm/taskboard-client/pkg/authorizer"
	"github.com/openkcm/taskboard-client/pkg/session"
	"github.com/openkcm/taskboard-client/pkg/taskboard"
	"github.com/openkcm/taskboard-client/pkg/tokenstore"
	"github.com/openkcm/taskboard-client/pkg/tokenstore/file"
	"github.com/openkcm/taskboard-client/pkg/tokenstore/memory"
	tokenstorevalkey "github.com/openkcm/taskboard-client/pkg/tokenstore/valkey"
)

// App holds the wired client side of the taskboard: the token store, the
// session manager and the REST client authorized through it.
type App struct {
	Store   *tokenstore.Store
	Session *session.Manager
	Client  *taskboard.Client

	closeFn func()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// KeepAliveMain refreshes the tokens periodically until ctx is done.
func KeepAliveMain(ctx context.Context, cfg *config.Config) error {
	app, err := NewApp(ctx, cfg, LogNavigator{})
	if err != nil {
		return fmt.Errorf("failed to initialise the application: %w", err)
	}
	defer app.Close()

	interval := cfg.Refresher.Interval
	if interval <= 0 {
		interval = session.DefaultKeepAliveInterval
	}

	slogctx.Info(ctx, "Starting token keep alive", "interval", interval)

	return app.Session.KeepAlive(ctx, interval)
}

// WithApp adapts fn to the signature the command layer runs.
func WithApp(fn func(context.Context, *App) error) func(context.Context, *config.Config) error {
	return func(ctx context.Context, cfg *config.Config) error {
		app, err := NewApp(ctx, cfg, LogNavigator{})
		if err != nil {
			return fmt.Errorf("failed to initialise the application: %w", err)
		}
		defer app.Close()

		return fn(ctx, app)
	}
}

func NewApp(ctx context.Context, cfg *config.Config, navigator session.Navigator) (*App, error) {
	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening token store: %w", err)
	}

	sessManager, err := session.NewManager(session.Config{
		BaseURL:         cfg.API.BaseURL,
		RefreshTimeout:  cfg.Auth.RefreshTimeout,
		TokenAlgorithms: cfg.Auth.TokenAlgorithms,
	}, store, loadHTTPClient(cfg, nil), navigator)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("creating session manager: %w", err)
	}

	transport, err := authorizer.New(sessManager, http.DefaultTransport)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("creating request authorizer: %w", err)
	}

	client, err := taskboard.NewClient(cfg.API.BaseURL, loadHTTPClient(cfg, transport))
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("creating taskboard client: %w", err)
	}

	return &App{
		Store:   store,
		Session: sessManager,
		Client:  client,
		closeFn: closeFn,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (_ *tokenstore.Store, closeFn func(), _ error) {
	closeFn = func() {}

	var backend tokenstore.Backend
	switch cfg.TokenStore.Type {
	case "", config.TokenStoreFile:
		path, err := cfg.TokenStore.File.SessionPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving session file: %w", err)
		}
		backend = file.NewBackend(path)
	case config.TokenStoreValKey:
		valkeyClient, err := valkeyClientFromConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		backend = tokenstorevalkey.NewBackend(valkeyClient, cfg.TokenStore.ValKey.Prefix)
		closeFn = valkeyClient.Close
	case config.TokenStoreMemory:
		backend = memory.NewBackend()
	default:
		return nil, nil, fmt.Errorf("unknown token store type %q", cfg.TokenStore.Type)
	}

	store, err := tokenstore.Open(ctx, backend)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return store, closeFn, nil
}

func valkeyClientFromConfig(cfg *config.Config) (valkey.Client, error) {
	opts, err := config.MakeValkeyOptions(cfg.TokenStore.ValKey)
	if err != nil {
		return nil, fmt.Errorf("failed to make valkey options from config: %w", err)
	}

	valkeyClient, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

func loadHTTPClient(cfg *config.Config, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   cfg.API.Timeout,
		Transport: transport,
	}
}

// LogNavigator logs the view a command line session should move to.
type LogNavigator struct{}

func (LogNavigator) Navigate(ctx context.Context, view session.View) {
	switch view {
	case session.ViewLogin:
		slogctx.Info(ctx, "Not logged in, run `taskboard auth login`")
	default:
		slogctx.Debug(ctx, "Navigation requested", "view", view)
	}
}

var ErrNotLoggedIn = errors.New("not logged in")
