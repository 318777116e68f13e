package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/belfry/internal/cache"
	"github.com/five82/belfry/internal/config"
	"github.com/five82/belfry/internal/device"
	"github.com/five82/belfry/internal/logging"
	"github.com/five82/belfry/internal/metrics"
	"github.com/five82/belfry/internal/notify"
	"github.com/five82/belfry/internal/prefs"
	"github.com/five82/belfry/internal/secret"
	"github.com/five82/belfry/internal/state"
	"github.com/five82/belfry/internal/ui"
)

// Options configure the belfry application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/belfry/prefs.toml
	Device     string // overrides the configured device address
	Debug      bool
	// Console mirrors log output. Leave nil for the dashboard.
	Console io.Writer
	// Notify also receives cache notifications when non-nil.
	Notify notify.Sink
}

// Env holds everything wired from the configuration. One-shot commands use
// it directly; Run adds pollers and the dashboard on top.
type Env struct {
	Config  config.Config
	Logger  *logging.Logger
	Client  *device.Client
	Cache   *cache.Cache
	Store   *state.Store
	Poller  *Poller
	Metrics *metrics.Recorder
	Feed    *notify.Feed
	Sink    notify.Sink
}

// Open loads configuration and builds the client stack.
func Open(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.Device != "" {
		cfg.Device = opts.Device
	}
	if opts.Debug {
		cfg.Debug = true
	}

	logger, err := logging.New(logging.Options{Dir: cfg.LogDir, Debug: cfg.Debug, Console: opts.Console})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	rec := metrics.New()
	clientOpts := []device.Option{
		device.WithTimeout(cfg.RequestTimeout),
		device.WithObserver(rec),
		device.WithLogger(logger.Logger),
	}
	password, err := secret.Get(cfg.Device, cfg.Username)
	switch {
	case err == nil:
		clientOpts = append(clientOpts, device.WithBasicAuth(cfg.Username, password))
	case errors.Is(err, secret.ErrNotFound):
		logger.Debug("no stored password, sending requests without auth", "device", cfg.Device)
	default:
		logger.Warn("keyring lookup failed", "err", err)
	}

	client, err := device.NewClient(cfg.Device, clientOpts...)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("init device client: %w", err)
	}

	feed := notify.NewFeed(50)
	sink := notify.Fanout{feed, notify.NewLogSink(logger.Logger)}
	if opts.Notify != nil {
		sink = append(sink, opts.Notify)
	}
	store := &state.Store{}

	env := &Env{
		Config: cfg,
		Logger: logger,
		Client: client,
		Cache: cache.New(client,
			cache.WithSink(sink),
			cache.WithLogger(logger.Logger),
			cache.WithObserver(rec),
		),
		Store:   store,
		Poller:  NewPoller(client, store, logger.Logger, rec, IntervalsFrom(cfg)),
		Metrics: rec,
		Feed:    feed,
		Sink:    sink,
	}
	logger.Debug("environment ready", "device", client.BaseURL(), "log", logger.Path())
	return env, nil
}

// Close waits for background cache loads and closes the log file.
func (e *Env) Close() error {
	e.Cache.Wait()
	return e.Logger.Close()
}

// Prime fetches the collections and one round of status before the first
// render. Failures are reported through the sink and are not fatal.
func (e *Env) Prime(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*e.Config.RequestTimeout)
	defer cancel()
	var g errgroup.Group
	g.Go(func() error {
		e.Poller.Refresh(ctx)
		return nil
	})
	g.Go(func() error {
		if err := e.Cache.LoadAll(ctx); err != nil {
			e.Logger.Warn("initial load failed", "err", err)
		}
		return nil
	})
	_ = g.Wait()
}

// Run boots the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Open(opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	env.Logger.Info("dashboard starting", "device", env.Client.BaseURL())
	env.Prime(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return env.Poller.Run(gctx) })
	if addr := env.Config.MetricsAddr; addr != "" {
		g.Go(func() error {
			if err := env.Metrics.Serve(gctx, addr, env.Logger.Logger); err != nil {
				env.Logger.Error("metrics server stopped", "err", err)
			}
			return nil
		})
	}

	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Device:    env.Client,
		Cache:     env.Cache,
		Store:     env.Store,
		Poller:    env.Poller,
		Feed:      env.Feed,
		Sink:      env.Sink,
		Logger:    env.Logger.Logger,
		DeviceURL: env.Client.BaseURL(),
		LogPath:   env.Logger.Path(),
		Tick:      ui.DefaultUIInterval,
		ThemeName: userPrefs.Theme,
		LastTab:   userPrefs.LastTab,
		PrefsPath: opts.PrefsPath,
	})

	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer waitCancel()
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case <-done:
	case <-waitCtx.Done():
		env.Logger.Warn("background tasks did not stop in time")
	}
	env.Logger.Info("dashboard stopped")
	return uiErr
}
