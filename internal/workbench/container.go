// Package workbench wires the services together and implements the user
// commands the host exposes.
package workbench

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/facebookgo/clock"
	"github.com/roeyazroel/linear-ide/internal/auth"
	"github.com/roeyazroel/linear-ide/internal/config"
	"github.com/roeyazroel/linear-ide/internal/credentials"
	"github.com/roeyazroel/linear-ide/internal/gitrepo"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/refresh"
	"github.com/roeyazroel/linear-ide/internal/tree"
	"github.com/roeyazroel/linear-ide/internal/webview"
)

// Notifier shows transient messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// PickItem is one choice of a picker.
type PickItem struct {
	Label  string
	Detail string
}

// Prompter asks the user for input. ok is false when the user dismisses it.
type Prompter interface {
	Pick(ctx context.Context, title string, items []PickItem) (index int, ok bool)
	Input(ctx context.Context, title string, secret bool) (value string, ok bool)
}

// Options configures a Container. Zero fields get working defaults.
type Options struct {
	Config        config.Config
	Store         credentials.Store
	ClientFactory auth.ClientFactory
	// Repository overrides opening Config.RepositoryPath.
	Repository gitrepo.Repository
	Clock      clock.Clock
	Notifier   Notifier
	Prompter   Prompter
	Surfaces   webview.SurfaceFactory
	OpenURL    func(url string) error
	CopyText   func(text string) error
}

// Container owns every service for one process. Build it with New, call
// Initialize once, and Dispose on shutdown.
type Container struct {
	cfg      config.Config
	notifier Notifier
	prompter Prompter
	openURL  func(string) error
	copyText func(string) error

	Auth      *auth.Service
	Issues    *issues.Service
	Tree      *tree.Provider
	Branches  *gitrepo.BranchService
	Webviews  *webview.Manager
	Scheduler *refresh.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	filter      issues.Filter
	unsubscribe []func()
	disposeOnce sync.Once
}

// New builds a Container. The filter starts from the configured default team.
func New(opts Options) *Container {
	cfg := opts.Config
	if opts.Store == nil {
		opts.Store = credentials.NewFileStore(cfg.CredentialsFile)
	}
	if opts.ClientFactory == nil {
		opts.ClientFactory = auth.LinearClientFactory(linearapi.ClientConfig{
			Endpoint: cfg.APIEndpoint,
			Timeout:  cfg.Timeout,
		})
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{}
	}
	if opts.Prompter == nil {
		opts.Prompter = noPrompter{}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = func(string) error { return errors.New("opening links is not supported here") }
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{
		cfg:      cfg,
		notifier: opts.Notifier,
		prompter: opts.Prompter,
		openURL:  opts.OpenURL,
		copyText: opts.CopyText,
		ctx:      ctx,
		cancel:   cancel,
		filter:   issues.Filter{TeamID: cfg.DefaultTeam},
	}

	c.Auth = auth.NewService(opts.Store, opts.ClientFactory)
	c.Issues = issues.NewService(c.Auth, issues.WithClock(opts.Clock), issues.WithPageSize(cfg.PageSize))
	c.Tree = tree.NewProvider(c.Issues, c.Filter, c.reportTreeError)
	c.Branches = gitrepo.NewBranchService(openRepository(opts.Repository, cfg.RepositoryPath), c.report)
	c.Scheduler = refresh.New(opts.Clock, c.Auth.IsAuthenticated, c.RefreshNow)
	if opts.Surfaces != nil {
		c.Webviews = webview.NewManager(ctx, opts.Surfaces, c.Issues, c)
	}
	return c
}

func openRepository(repo gitrepo.Repository, path string) gitrepo.Repository {
	if repo != nil {
		return repo
	}
	if path == "" {
		return nil
	}
	r, err := gitrepo.Open(path)
	if err != nil {
		logger.Warning("workbench: no git repository at %s: %v", path, err)
		return nil
	}
	return r
}

// Context is cancelled by Dispose.
func (c *Container) Context() context.Context {
	return c.ctx
}

// Config returns the active configuration.
func (c *Container) Config() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Initialize restores authentication and starts the refresh timer. A stored
// key that fails validation is reported, not returned.
func (c *Container) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.unsubscribe = append(c.unsubscribe, c.Auth.OnDidChange(func(bool) { c.RefreshNow() }))
	c.mu.Unlock()

	if err := c.Auth.Initialize(ctx); err != nil {
		if issues.KindOf(err) != issues.KindAuthentication {
			return err
		}
		c.report(err)
	}

	c.Scheduler.Configure(c.Config().AutoRefreshInterval)
	return nil
}

// Reconfigure applies a reloaded configuration: the refresh interval and,
// when the team filter still holds the old default, the new default team.
func (c *Container) Reconfigure(cfg config.Config) {
	c.mu.Lock()
	old := c.cfg
	c.cfg = cfg
	teamChanged := c.filter.TeamID == old.DefaultTeam && cfg.DefaultTeam != old.DefaultTeam
	if teamChanged {
		f := c.filter
		f.TeamID = cfg.DefaultTeam
		c.filter = f
	}
	c.mu.Unlock()

	if cfg.AutoRefreshInterval != old.AutoRefreshInterval {
		c.Scheduler.Configure(cfg.AutoRefreshInterval)
	}
	if teamChanged {
		c.Tree.Refresh()
	}
}

// Filter returns the active issue filter.
func (c *Container) Filter() issues.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SetFilter replaces the active filter and refreshes the tree.
func (c *Container) SetFilter(f issues.Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	logger.Debug("workbench: filter set to %s", f.Key())
	c.Tree.Refresh()
}

// RefreshNow drops cached issues and refreshes the tree.
func (c *Container) RefreshNow() {
	c.Issues.Invalidate()
	c.Tree.Refresh()
}

// Dispose stops the timer, closes every panel and cancels Context.
func (c *Container) Dispose() {
	c.disposeOnce.Do(func() {
		c.Scheduler.Stop()
		if c.Webviews != nil {
			c.Webviews.Dispose()
		}
		c.mu.Lock()
		for _, fn := range c.unsubscribe {
			fn()
		}
		c.unsubscribe = nil
		c.mu.Unlock()
		c.cancel()
	})
}

// report shows err to the user in terms of its kind.
func (c *Container) report(err error) {
	if err == nil {
		return
	}
	switch issues.KindOf(err) {
	case issues.KindAuthentication:
		c.notifier.Warn("Not signed in to Linear: " + err.Error())
	default:
		c.notifier.Error(err.Error())
	}
}

func (c *Container) reportTreeError(err error) {
	if errors.Is(err, issues.ErrNotAuthenticated) && !c.Auth.IsAuthenticated() {
		return
	}
	c.report(err)
}

// logNotifier is the Notifier used when the host supplies none.
type logNotifier struct{}

func (logNotifier) Info(msg string)  { logger.Info("notify: %s", msg) }
func (logNotifier) Warn(msg string)  { logger.Warning("notify: %s", msg) }
func (logNotifier) Error(msg string) { logger.Error("notify: %s", msg) }

// noPrompter dismisses every prompt.
type noPrompter struct{}

func (noPrompter) Pick(context.Context, string, []PickItem) (int, bool) { return 0, false }
func (noPrompter) Input(context.Context, string, bool) (string, bool)   { return "", false }
