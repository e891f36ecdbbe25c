// Package app is the composition root: it turns a Config into a running HTTP
// server backed by the selected store, signing key and audit pipeline.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/ruby/userauth-service/internal/api"
	"github.com/ruby/userauth-service/internal/api/handler"
	"github.com/ruby/userauth-service/internal/core/ports"
	"github.com/ruby/userauth-service/internal/core/service"
	"github.com/ruby/userauth-service/internal/infrastructure/clock"
	"github.com/ruby/userauth-service/internal/infrastructure/config"
	"github.com/ruby/userauth-service/internal/infrastructure/db/memory"
	"github.com/ruby/userauth-service/internal/infrastructure/db/mongo"
	"github.com/ruby/userauth-service/internal/infrastructure/db/postgres"
	"github.com/ruby/userauth-service/internal/infrastructure/db/redis"
	"github.com/ruby/userauth-service/internal/infrastructure/queue"
	"github.com/ruby/userauth-service/internal/infrastructure/security"
	"github.com/ruby/userauth-service/pkg/logger"
)

// App owns every long-lived resource of the service.
type App struct {
	Echo        *echo.Echo
	AuthService *service.AuthService

	cfg        *config.Config
	log        zerolog.Logger
	dispatcher *queue.Dispatcher
	closers    []func(context.Context) error
}

type options struct {
	registry *prometheus.Registry
	clock    ports.Clock
}

// Option customises New.
type Option func(*options)

// WithMetricsRegistry registers HTTP metrics on reg instead of the default
// registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithClock replaces the system clock.
func WithClock(c ports.Clock) Option {
	return func(o *options) { o.clock = c }
}

// repositories is the set of adapters one store driver provides.
type repositories struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	sessions ports.SessionRepository
	audit    ports.AuditRepository
	ping     handler.Dependency
}

// New opens the store, resolves the signing key and wires the services and
// router. On error every resource opened so far is released.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...Option) (_ *App, err error) {
	o := options{clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = a.closeResources(context.Background())
		}
	}()

	repos, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	readiness := []handler.Dependency{repos.ping}

	var rdb *goredis.Client
	if cfg.UsesRedis() {
		rdb, err = redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		readiness = append(readiness, handler.Dependency{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}

	key, err := a.signingKey(ctx, rdb)
	if err != nil {
		return nil, err
	}
	codec, err := security.NewJWTCodec(key, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	var sink ports.AuditSink
	if cfg.Audit.Enabled {
		auditService := service.NewAuditService(repos.audit, logger.Named(log, "audit"))
		a.dispatcher = queue.NewDispatcher(cfg.Audit.Workers, auditService, logger.Named(log, "audit_dispatcher"))
		sink = a.dispatcher
	}

	serviceLog := logger.Named(log, "auth")
	a.AuthService = service.NewAuthService(service.AuthDeps{
		Users:       repos.users,
		Roles:       repos.roles,
		Hasher:      security.NewBcryptHasher(cfg.Auth.BcryptCost),
		Issuer:      service.NewTokenIssuer(codec, repos.sessions, o.clock, cfg.Auth.TokenTTL),
		Validator:   service.NewTokenValidator(codec, repos.sessions, o.clock, sink, serviceLog),
		Clock:       o.clock,
		Audit:       sink,
		Log:         serviceLog,
		DefaultRole: cfg.Auth.DefaultRole,
	})

	deps := api.RouterDeps{
		AuthService: a.AuthService,
		Cookie:      handler.CookieOptions{Secure: cfg.IsProduction(), TTL: cfg.Auth.TokenTTL},
		Readiness:   readiness,
		Log:         logger.Named(log, "http"),
	}
	if o.registry != nil {
		deps.Registerer = o.registry
		deps.Gatherer = o.registry
	}
	a.Echo = api.NewRouter(deps)

	return a, nil
}

// Start launches background workers. Workers stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.dispatcher != nil {
		a.dispatcher.Start(ctx)
	}
}

// Run serves HTTP on the configured port until the server is shut down.
func (a *App) Run() error {
	addr := ":" + a.cfg.Port
	a.log.Info().Str("addr", addr).Str("driver", a.cfg.DBDriver).Msg("http server starting")
	if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, drains the audit queue and closes the
// store connections, in that order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Echo != nil {
		if err := a.Echo.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if err := a.closeResources(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context) (*repositories, error) {
	switch a.cfg.DBDriver {
	case config.DriverMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: a.cfg.Mongo.URI, Database: a.cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		return mongoRepositories(db), nil

	case config.DriverPostgres:
		db, err := postgres.Open(ctx, a.cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		return postgresRepositories(db), nil

	case config.DriverMemory:
		a.log.Warn().Msg("using in-memory store: accounts and sessions are lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:    memory.NewUserRepository(store),
			roles:    memory.NewRoleRepository(store),
			sessions: memory.NewSessionRepository(store),
			audit:    memory.NewAuditRepository(store),
			ping:     handler.Dependency{Name: "memory", Ping: store.Ping},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.cfg.DBDriver)
}

func mongoRepositories(db *mongodriver.Database) *repositories {
	return &repositories{
		users:    mongo.NewUserRepository(db),
		roles:    mongo.NewRoleRepository(db),
		sessions: mongo.NewSessionRepository(db),
		audit:    mongo.NewAuditRepository(db),
		ping: handler.Dependency{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
		},
	}
}

func postgresRepositories(db *sql.DB) *repositories {
	return &repositories{
		users:    postgres.NewUserRepository(db),
		roles:    postgres.NewRoleRepository(db),
		sessions: postgres.NewSessionRepository(db),
		audit:    postgres.NewAuditRepository(db),
		ping:     handler.Dependency{Name: "postgres", Ping: db.PingContext},
	}
}

// signingKey resolves the HS256 key for the configured source.
func (a *App) signingKey(ctx context.Context, rdb *goredis.Client) ([]byte, error) {
	switch a.cfg.Auth.KeySource {
	case config.KeySourceStatic:
		return security.DecodeKey(a.cfg.Auth.SigningKey)
	case config.KeySourceRedis:
		return redis.NewSigningKeyStore(rdb, a.cfg.Redis.KeyName).GetOrCreate(ctx)
	default:
		a.log.Warn().Msg("using an ephemeral signing key: tokens do not survive a restart and are not accepted by other instances")
		return security.GenerateKey()
	}
}
