package daemon

import (
	"context"
	"time"

	"github.com/matheus3301/chatdock/internal/api"
	"github.com/matheus3301/chatdock/internal/archive"
	"github.com/matheus3301/chatdock/internal/auth"
	"github.com/matheus3301/chatdock/internal/backend"
	"github.com/matheus3301/chatdock/internal/bus"
	"github.com/matheus3301/chatdock/internal/channel"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/config"
	"github.com/matheus3301/chatdock/internal/lock"
	"github.com/matheus3301/chatdock/internal/logging"
	"github.com/matheus3301/chatdock/internal/messenger"
	"github.com/matheus3301/chatdock/internal/session"
	"github.com/matheus3301/chatdock/internal/status"
	"github.com/matheus3301/chatdock/internal/store"
	"github.com/matheus3301/chatdock/internal/windows"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	SocketPath  string // optional override for testing; empty = use default
	ConfigPath  string // optional override; empty = ~/.chatdock/config.toml
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
			provideArchive,
			provideBackend,
			provideMessenger,
			provideWatcher,
			provideService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = session.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Path:    session.LogPath(p.SessionName),
		Session: p.SessionName,
		Level:   cfg.LogLevel,
		Console: true,
	})
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
	l, err := lock.Acquire(session.LockPath(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

// provideStore takes the lock so the archive is only opened by its owner.
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
	logger.Info("archive opened",
		zap.String("path", dbPath),
		zap.Uint("schema_from", result.From),
		zap.Uint("schema", result.Version),
		zap.Bool("migrated", result.Changed),
	)
	return db, nil
}

func provideArchive(db *store.DB, b *bus.Bus, logger *zap.Logger) *archive.Archive {
	return archive.New(db, b, logger.Named("archive"))
}

func provideBackend(cfg *config.Config) (*backend.Client, error) {
	return backend.New(backend.Options{
		BaseURL:           cfg.BackendURL,
		Timeout:           cfg.RequestTimeout.Duration,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

func provideMessenger(cfg *config.Config, client *backend.Client, arch *archive.Archive, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *messenger.Messenger {
	var m *messenger.Messenger
	conn := channel.New(channel.Options{
		URL:     cfg.SocketURL,
		Machine: machine,
		Sink:    func(kind chat.EventKind, payload any) { m.Deliver(kind, payload) },
		Logger:  logger.Named("channel"),
	})
	m = messenger.New(messenger.Options{
		Backend: client,
		Channel: conn,
		Archive: arch,
		Machine: machine,
		Bus:     b,
		Logger:  logger.Named("messenger"),
		Limits: windows.Limits{
			MaxExpanded:  cfg.MaxExpanded,
			MaxMinimized: cfg.MaxMinimized,
		},
		PollInterval:   cfg.PollInterval.Duration,
		SuppressWindow: cfg.SuppressWindow.Duration,
		RequestTimeout: cfg.RequestTimeout.Duration,
	})
	return m
}

func provideWatcher(p Params, m *messenger.Messenger, logger *zap.Logger) *auth.Watcher {
	return auth.NewWatcher(session.CredentialPath(p.SessionName), func(cred auth.Credential) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.SetCredential(ctx, cred); err != nil {
			logger.Error("failed to apply credential", zap.Error(err))
		}
	}, logger.Named("auth"))
}

func provideService(p Params, m *messenger.Messenger, b *bus.Bus, logger *zap.Logger) *api.Service {
	return api.NewService(p.SessionName, m, b, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, arch *archive.Archive, m *messenger.Messenger, watcher *auth.Watcher, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Archive first so it sees every event the messenger publishes.
			arch.Start(context.Background())
			m.Start(context.Background())

			// Applies the stored credential, which connects the channel.
			if err := watcher.Start(context.Background()); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			watcher.Stop()
			srv.Stop(ctx)
			m.Stop()
			arch.Stop()
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
