// Package app wires configuration, storage, the remote store, the sync
// reconciler and the terminal front-end into one running program, and
// handles graceful shutdown.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/attendkeeper/internal/attendance"
	"github.com/dmitrijs2005/attendkeeper/internal/cli"
	"github.com/dmitrijs2005/attendkeeper/internal/config"
	"github.com/dmitrijs2005/attendkeeper/internal/device"
	"github.com/dmitrijs2005/attendkeeper/internal/exportsink"
	"github.com/dmitrijs2005/attendkeeper/internal/kv"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
	"github.com/dmitrijs2005/attendkeeper/internal/metrics"
	"github.com/dmitrijs2005/attendkeeper/internal/netx"
	"github.com/dmitrijs2005/attendkeeper/internal/reconcile"
	"github.com/dmitrijs2005/attendkeeper/internal/remote"
	"github.com/dmitrijs2005/attendkeeper/internal/remote/firestore"
	"github.com/dmitrijs2005/attendkeeper/internal/remote/postgres"
	"github.com/dmitrijs2005/attendkeeper/internal/settings"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	cli      *cli.App
	closers  []func() error
}

// NewApp opens every backend named by c. Anything opened before a failure
// is closed again.
func NewApp(ctx context.Context, c *config.Config) (_ *App, err error) {
	a := &App{config: c, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	logger, err := a.openLogger()
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	a.logger = logger

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	ledger := attendance.NewLedger(store, logger)
	if err := ledger.Load(ctx); err != nil {
		return nil, fmt.Errorf("ledger load error: %w", err)
	}

	st := settings.NewStore(store, logger)
	if err := st.Load(ctx); err != nil {
		return nil, fmt.Errorf("settings load error: %w", err)
	}

	deviceID, err := device.ID(ctx, store)
	if err != nil {
		return nil, err
	}

	rs, err := a.openRemote(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote store init error: %w", err)
	}

	sink, err := a.openSink(ctx)
	if err != nil {
		return nil, err
	}

	m := metrics.New(a.registry)

	// the reconciler needs its notifier before the front-end exists
	var front *cli.App
	rec := reconcile.New(reconcile.Deps{
		Ledger:      ledger,
		Remote:      rs,
		Settings:    st,
		Store:       store,
		DeviceID:    deviceID,
		Logger:      logger,
		Metrics:     m,
		MinInterval: c.SyncMinInterval,
		Notifier: func(out reconcile.Outcome, err error) {
			if front != nil {
				front.NotifySync(out, err)
			}
		},
	})
	if err := rec.LoadPending(ctx); err != nil {
		logger.Warn(ctx, "pending sync queue unreadable", "error", err)
	}

	front = cli.NewApp(cli.Deps{
		Ledger:       ledger,
		Settings:     st,
		Reconciler:   rec,
		Remote:       rs,
		Sink:         sink,
		Metrics:      m,
		Logger:       logger,
		ScanCooldown: c.ScanCooldown,
	})
	a.cli = front

	return a, nil
}

// openLogger writes to LogFile when set, stderr otherwise.
func (a *App) openLogger() (logging.Logger, error) {
	var w io.Writer = os.Stderr
	if a.config.LogFile != "" {
		f, err := os.OpenFile(a.config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, f.Close)
		w = f
	}
	return logging.New(w, a.config.LogLevel, a.config.LogFormat)
}

func (a *App) openStore(ctx context.Context) (kv.Store, error) {
	switch a.config.StoreBackend {
	case config.StoreRedis:
		client := kv.NewRedisClient(a.config.RedisAddr)
		rs := kv.NewRedisStore(client, a.config.RedisPrefix)
		a.closers = append(a.closers, rs.Close)
		if !rs.Healthy(ctx) {
			return nil, fmt.Errorf("redis at %s is not reachable", a.config.RedisAddr)
		}
		return rs, nil
	case config.StoreSQLite, "":
		db, err := kv.OpenSQLite(ctx, a.config.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return kv.NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.config.StoreBackend)
	}
}

// openRemote returns nil when sync is disabled.
func (a *App) openRemote(ctx context.Context) (remote.Store, error) {
	switch a.config.SyncBackend {
	case config.SyncNone, "":
		return nil, nil
	case config.SyncFirestore:
		fs, err := firestore.New(ctx, a.config.FirestoreProject, a.config.FirestoreCredentials, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, fs.Close)
		return fs, nil
	case config.SyncPostgres:
		db, err := postgres.Open(ctx, a.config.RemoteDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewStore(db, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown sync backend %q", a.config.SyncBackend)
	}
}

func (a *App) openSink(ctx context.Context) (exportsink.Sink, error) {
	fs, err := exportsink.NewFileSink(a.config.ExportDir, a.logger)
	if err != nil {
		return nil, err
	}
	if !a.config.S3Enabled() {
		return fs, nil
	}

	s3, err := exportsink.NewS3Sink(ctx, exportsink.S3Config{
		Bucket:       a.config.S3Bucket,
		Region:       a.config.S3Region,
		BaseEndpoint: a.config.S3BaseEndpoint,
		AccessKey:    a.config.S3AccessKey,
		SecretKey:    a.config.S3SecretKey,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("s3 export init error: %w", err)
	}
	return exportsink.Multi{fs, s3}, nil
}

func (a *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.config.MetricsAddr == "" {
		return
	}
	a.logger.Info(ctx, "serving metrics", "addr", a.config.MetricsAddr)
	if err := netx.Serve(ctx, a.config.MetricsAddr, metrics.HandlerFor(a.registry)); err != nil {
		a.logger.Error(ctx, "metrics server failed", "error", err)
	}
}

// Run blocks until the user quits or a signal arrives.
func (a *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	a.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		a.startMetricsServer(ctx)
	}()
	go func() {
		defer wg.Done()
		a.cli.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	a.cli.Run(ctx)

	cancelFunc()
	wg.Wait()
	a.Close()
}

// Close releases the backends in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}
