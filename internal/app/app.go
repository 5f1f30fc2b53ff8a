// Package app wires the notification engine together: config, logging,
// storage, dedup, dispatcher, senders and trigger sources.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campusflow/internal/channels"
	"campusflow/internal/config"
	"campusflow/internal/dedup"
	"campusflow/internal/dispatch"
	"campusflow/internal/event"
	"campusflow/internal/eventbus"
	"campusflow/internal/policy"
	"campusflow/internal/quiet"
	"campusflow/internal/storage"
	"campusflow/internal/trigger"
	logx "campusflow/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	log  logx.Logger
	logs *logx.Service

	store storage.Store
	deds  *dedup.Store
	bus   eventbus.Bus
	disp  *dispatch.Dispatcher

	scanner *trigger.ImminentScanner
	digest  *trigger.DigestCron
	watcher *trigger.CatalogWatcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	var st storage.Store
	if sc := cfg.Storage; sc != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", sc.BusyTimeout)
		if err != nil {
			return nil, err
		}
		st, err = storage.Open(storage.Config{
			Driver:      sc.Driver,
			Path:        sc.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
	}

	dedupOpts := []dedup.Option{}
	if st != nil && cfg.Dedup.PersistDedup {
		dedupOpts = append(dedupOpts, dedup.WithPersistence(st))
	}
	deds := dedup.New(dedupOpts...)

	gate, err := quiet.NewGate(cfg.QuietHours.Enabled, cfg.QuietHours.Start, cfg.QuietHours.End)
	if err != nil {
		return nil, err
	}
	opts, err := dispatchOptions(cfg)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	disp := dispatch.New(opts, gate, deds, log.With(logx.String("comp", "dispatch")), bus)

	chanLog := log.With(logx.String("comp", "sender"))
	disp.RegisterSender(channels.NewConsoleSender(policy.ChannelEmail, chanLog))
	disp.RegisterSender(channels.NewConsoleSender(policy.ChannelPush, chanLog))
	disp.RegisterSender(channels.Throttle(channels.NewConsoleSender(policy.ChannelMessaging, chanLog), 3))

	cat, err := event.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.Catalog.Path, err)
	}
	disp.SetCatalog(cat)

	tcfg, err := triggerConfig(cfg)
	if err != nil {
		return nil, err
	}
	trigLog := log.With(logx.String("comp", "trigger"))
	digest, err := trigger.NewDigestCron(tcfg, disp, trigLog)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   st,
		deds:    deds,
		bus:     bus,
		disp:    disp,
		scanner: trigger.NewImminentScanner(tcfg, disp, trigLog),
		digest:  digest,
	}
	if cfg.Catalog.Watch {
		a.watcher = trigger.NewCatalogWatcher(cfg.Catalog.Path, disp, trigLog)
	}
	return a, nil
}

func dispatchOptions(cfg *config.Config) (dispatch.Options, error) {
	banner, err := config.ParseDurationOrDefault("dedup.banner_ttl", cfg.Dedup.BannerTTL, 8*time.Second)
	if err != nil {
		return dispatch.Options{}, err
	}
	digest, err := config.ParseDurationOrDefault("dedup.digest_ttl", cfg.Dedup.DigestTTL, 24*time.Hour)
	if err != nil {
		return dispatch.Options{}, err
	}
	return dispatch.Options{
		BannerTTL: banner,
		DigestTTL: digest,
		Channels: dispatch.ChannelConfig{
			EmailEnabled:        cfg.Channels.Email,
			MessagingEnabled:    cfg.Channels.Messaging,
			MessagingUrgentOnly: cfg.Channels.MessagingUrgentOnly,
			PushEnabled:         cfg.Channels.Push,
		},
	}, nil
}

func triggerConfig(cfg *config.Config) (trigger.Config, error) {
	lead, err := config.ParseDurationField("triggers.imminent_lead", cfg.Triggers.ImminentLead)
	if err != nil {
		return trigger.Config{}, err
	}
	scan, err := config.ParseDurationField("triggers.scan_every", cfg.Triggers.ScanEvery)
	if err != nil {
		return trigger.Config{}, err
	}
	return trigger.Config{
		DigestCron:   cfg.Triggers.DigestCron,
		ImminentLead: lead,
		ScanEvery:    scan,
	}, nil
}

// Start launches the background loops. It returns immediately; loops run
// until Stop or the parent ctx is canceled.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	a.run(func() { a.disp.Run(runCtx) })
	a.run(func() { a.scanner.Run(runCtx) })
	a.run(func() { a.digest.Run(runCtx) })
	if a.watcher != nil {
		a.run(func() {
			if err := a.watcher.Run(runCtx); err != nil {
				a.log.Warn("catalog watcher stopped", logx.Err(err))
			}
		})
	}
	a.run(func() {
		if err := a.cfgm.Watch(runCtx); err != nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	})
	a.run(func() { a.reloadLoop(runCtx) })
	a.run(func() { a.busLog(runCtx) })

	a.log.Info("engine started", logx.String("config", a.cfgPath))
	return nil
}

func (a *App) run(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// reloadLoop applies published config updates to the live components.
// Catalog path and storage driver changes require a restart; everything else
// (logging, quiet hours, channels, TTLs) applies in place.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	gate, err := quiet.NewGate(cfg.QuietHours.Enabled, cfg.QuietHours.Start, cfg.QuietHours.End)
	if err != nil {
		a.log.Warn("reload: quiet hours rejected", logx.Err(err))
		return
	}
	opts, err := dispatchOptions(cfg)
	if err != nil {
		a.log.Warn("reload: dispatch options rejected", logx.Err(err))
		return
	}
	a.disp.Apply(opts, gate)
	a.log.Info("config applied")
}

// busLog mirrors dispatcher lifecycle events into the structured log.
func (a *App) busLog(ctx context.Context) {
	sub, unsub := a.bus.Subscribe(64)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			d, _ := e.Data.(dispatch.BusData)
			a.log.Debug(e.Type,
				logx.String("event", d.EventID),
				logx.String("reason", d.Reason),
				logx.String("channel", d.Channel),
				logx.String("error", d.Error),
			)
		}
	}
}

// Dispatcher exposes the engine core, mainly for embedding and tests.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.disp }

func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	if a.store != nil {
		_ = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
