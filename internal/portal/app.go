package portal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wiko-cutlery/assistant-portal/internal/config"
	"github.com/wiko-cutlery/assistant-portal/internal/gateway"
	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
	"github.com/wiko-cutlery/assistant-portal/internal/service/session"
	"github.com/wiko-cutlery/assistant-portal/internal/service/transcript"
)

const (
	msgWelcome   = "Welcome back!"
	msgLoggedOut = "Logged out successfully"
)

// Options configures an App.
type Options struct {
	Config *config.Config
	// HTTPClient overrides the client built from Config.API.Timeout.
	HTTPClient *http.Client
	// Notifier receives every user-facing notification in addition to the log.
	Notifier notify.Notifier
	// Registerer is used when Config.API.Metrics is set. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// App wires the gateway client, the session store and the transcript
// synchronizer for one employee.
type App struct {
	cfg      *config.Config
	client   *gateway.Client
	notifier notify.Notifier

	Session    *session.Store
	Transcript *transcript.Synchronizer

	mu          sync.RWMutex
	contextType chat.ContextType
}

// Open builds an App and runs Start, so the auth status is resolved by the
// time it returns. A failed initial session load is logged, not returned.
func Open(ctx context.Context, opts Options) (*App, error) {
	app, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		log.Printf("[portal] initial session load failed: %v", err)
	}
	return app, nil
}

// New builds an App without contacting the API. Call Start before use, or
// use Open.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("portal: config is required")
	}

	var metrics *gateway.Metrics
	if cfg.API.Metrics {
		reg := opts.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m, err := gateway.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("portal: register metrics: %w", err)
		}
		metrics = m
	}

	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: opts.HTTPClient,
		Timeout:    cfg.API.Timeout,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	notifier := notify.Multi(notify.LogNotifier{Prefix: "[portal]"}, opts.Notifier)

	app := &App{
		cfg:         cfg,
		client:      client,
		notifier:    notifier,
		Session:     session.NewStore(client),
		Transcript:  transcript.New(client, notifier),
		contextType: cfg.Portal.DefaultContext.OrDefault(),
	}
	app.Session.Subscribe(app.onStateChange)
	return app, nil
}

// Client exposes the gateway for the one-shot tool calls.
func (a *App) Client() *gateway.Client {
	return a.client
}

// Notifier returns the App's notification sink.
func (a *App) Notifier() notify.Notifier {
	return a.notifier
}

// Start restores saved cookies, resolves the auth state and, for a known
// employee, loads the session list.
func (a *App) Start(ctx context.Context) error {
	if path := a.cfg.API.CookieFile; path != "" {
		if err := a.client.LoadCookies(path); err != nil {
			log.Printf("[portal] ignoring unreadable cookie file: %v", err)
		}
	}

	a.Session.Restore(ctx)
	if !a.Session.IsAuthenticated() {
		return nil
	}
	return a.loadWorkspace(ctx)
}

// Login authenticates and loads the employee's sessions.
func (a *App) Login(ctx context.Context, credentials auth.Credentials) auth.LoginResult {
	result := a.Session.Login(ctx, credentials)
	if !result.Success {
		return result
	}

	a.saveCookies()
	if user, ok := a.Session.User(); ok {
		log.Printf("[portal] %s (%s) logged in", user.Username, user.Department)
	}
	a.notifier.Notify(notify.LevelSuccess, msgWelcome)

	if err := a.loadWorkspace(ctx); err != nil {
		log.Printf("[portal] session list unavailable after login: %v", err)
	}
	return result
}

// Logout ends the server session and forgets all local state.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.Transcript.Reset()
	if path := a.cfg.API.CookieFile; path != "" {
		if err := gateway.ClearCookies(path); err != nil {
			log.Printf("[portal] %v", err)
		}
	}
	a.notifier.Notify(notify.LevelSuccess, msgLoggedOut)
}

// ContextType returns the context type applied to the next send.
func (a *App) ContextType() chat.ContextType {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.contextType
}

// SetContextType changes the context type for later sends.
func (a *App) SetContextType(ct chat.ContextType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contextType = ct.OrDefault()
}

// Send posts text to the active session using the current context type.
func (a *App) Send(ctx context.Context, text string) (*chat.Message, error) {
	return a.Transcript.SendMessage(ctx, text, a.ContextType())
}

// Close waits for background refreshes and persists cookies.
func (a *App) Close() {
	a.Transcript.Wait()
	if a.Session.IsAuthenticated() {
		a.saveCookies()
	}
}

// loadWorkspace refreshes the session list and selects the most recent
// session when none is active.
func (a *App) loadWorkspace(ctx context.Context) error {
	if err := a.Transcript.ListSessions(ctx); err != nil {
		return err
	}
	if _, ok := a.Transcript.Active(); ok {
		return nil
	}
	sessions := a.Transcript.Sessions()
	if len(sessions) == 0 {
		return nil
	}
	if err := a.Transcript.SelectSession(ctx, sessions[0]); err != nil && !errors.Is(err, transcript.ErrStale) {
		return err
	}
	return nil
}

func (a *App) onStateChange(state session.State) {
	if state == session.StateUnauthenticated {
		a.Transcript.Reset()
	}
}

func (a *App) saveCookies() {
	path := a.cfg.API.CookieFile
	if path == "" {
		return
	}
	if err := a.client.SaveCookies(path); err != nil {
		log.Printf("[portal] failed to save cookies: %v", err)
	}
}
