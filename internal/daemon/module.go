package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/mailsync/internal/api"
	"github.com/matheus3301/mailsync/internal/bus"
	"github.com/matheus3301/mailsync/internal/config"
	"github.com/matheus3301/mailsync/internal/fetchqueue"
	"github.com/matheus3301/mailsync/internal/lock"
	"github.com/matheus3301/mailsync/internal/logging"
	"github.com/matheus3301/mailsync/internal/outbox"
	"github.com/matheus3301/mailsync/internal/reconcile"
	"github.com/matheus3301/mailsync/internal/session"
	"github.com/matheus3301/mailsync/internal/status"
	"github.com/matheus3301/mailsync/internal/store"
	intsync "github.com/matheus3301/mailsync/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string         // optional override for testing; empty = use default
	Config      *config.Config // nil = defaults
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideFetchQueue,
			provideOutbox,
			provideReaper,
			provideReconciler,
			provideSyncEngine,
			provideSyncService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	if p.Config != nil {
		return p.Config
	}
	return config.Default()
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName, cfg.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired", zap.String("path", l.Path()))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideFetchQueue(cfg *config.Config, logger *zap.Logger) (fetchqueue.Queue, error) {
	q, err := fetchqueue.BuildFromDSN(cfg.FetchQueue.DSN, cfg.FetchQueue.Capacity)
	if err != nil {
		return nil, err
	}
	logger.Info("contact fetch queue ready", zap.String("backend", fmt.Sprintf("%T", q)))
	return q, nil
}

func provideOutbox(db *store.DB, b *bus.Bus, logger *zap.Logger) *outbox.Service {
	return outbox.NewService(db, b, logger.Named("outbox"))
}

func provideReaper(db *store.DB, cfg *config.Config, logger *zap.Logger) *outbox.Reaper {
	return outbox.NewReaper(db,
		time.Duration(cfg.Outbox.ReapIntervalSec)*time.Second,
		time.Duration(cfg.Outbox.RunningTimeoutSec)*time.Second,
		logger.Named("reaper"))
}

func provideReconciler(db *store.DB, ob *outbox.Service, q fetchqueue.Queue, cfg *config.Config, logger *zap.Logger) *reconcile.Engine {
	return reconcile.New(db, ob, q, logger.Named("reconcile"),
		reconcile.WithFetchBatchSize(cfg.Sync.FetchBatchSize))
}

func provideSyncEngine(rec *reconcile.Engine, b *bus.Bus, m *status.Machine, cfg *config.Config, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(rec, b, m, cfg.Sync.BusBuffer, logger.Named("sync"))
}

func provideSyncService(p Params, engine *intsync.Engine, ob *outbox.Service, q fetchqueue.Queue, m *status.Machine, b *bus.Bus, db *store.DB) *api.SyncService {
	return api.NewSyncService(p.SessionName, engine, ob, q, m, b, db)
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	db *store.DB,
	q fetchqueue.Queue,
	engine *intsync.Engine,
	reaper *outbox.Reaper,
	machine *status.Machine,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Start ingestion (subscribes to events.batch bus events).
			engine.Start(context.Background())
			reaper.Start(context.Background())

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()

			if err := machine.Transition(status.Ready); err != nil {
				return err
			}
			logger.Info("daemon ready")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := machine.Transition(status.Stopping); err != nil {
				logger.Warn("unexpected state on stop", zap.Error(err))
			}
			srv.Stop(ctx)
			engine.Stop()
			reaper.Stop()
			if err := q.Close(); err != nil {
				logger.Warn("error closing fetch queue", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
