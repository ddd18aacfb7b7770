package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nats-io/nats.go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/acquisitions/acquisitions-api/docs"
	"github.com/acquisitions/acquisitions-api/internal/api"
	"github.com/acquisitions/acquisitions-api/internal/api/handler"
	"github.com/acquisitions/acquisitions-api/internal/api/metrics"
	"github.com/acquisitions/acquisitions-api/internal/api/middleware"
	"github.com/acquisitions/acquisitions-api/internal/api/session"
	"github.com/acquisitions/acquisitions-api/internal/core/credential"
	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
	"github.com/acquisitions/acquisitions-api/internal/core/service"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/classifier"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/db/memory"
	mongodb "github.com/acquisitions/acquisitions-api/internal/infrastructure/db/mongo"
	redisdb "github.com/acquisitions/acquisitions-api/internal/infrastructure/db/redis"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/messaging/natsbus"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/password"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/queue"
	"github.com/acquisitions/acquisitions-api/internal/infrastructure/ratelimit"
	"github.com/acquisitions/acquisitions-api/internal/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func osLookuper() envconfig.Lookuper {
	return envconfig.OsLookuper()
}

// App owns the HTTP server and every connection opened for it.
type App struct {
	cfg        *config.Config
	log        zerolog.Logger
	echo       *echo.Echo
	dispatcher *queue.Dispatcher
	closers    []func(context.Context) error
}

// loadAdmission resolves the budget table and classifier rules from env and
// the optional policy file.
func loadAdmission(cfg *config.Config) (domain.Budgets, classifier.RulesConfig, error) {
	var policy *config.AdmissionPolicy
	if cfg.Admission.PolicyFile != "" {
		p, err := config.LoadPolicy(cfg.Admission.PolicyFile)
		if err != nil {
			return nil, classifier.RulesConfig{}, err
		}
		policy = p
	}
	budgets, err := cfg.Admission.Budgets(policy)
	if err != nil {
		return nil, classifier.RulesConfig{}, err
	}
	return budgets, policy.Rules(), nil
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	readiness := map[string]handler.Check{}

	// --- MongoDB (users and/or audit) ---
	var db *mongo.Database
	if cfg.Mongo.UserStore == "mongo" || cfg.Audit.Sink == "mongo" {
		client, database, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  appName,
		})
		if err != nil {
			return nil, a.fail(err)
		}
		db = database
		a.closers = append(a.closers, client.Disconnect)
		readiness["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")
	}

	var users ports.UserRepository
	if cfg.Mongo.UserStore == "mongo" {
		repo := mongodb.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, a.fail(fmt.Errorf("ensure user indexes: %w", err))
		}
		users = repo
	} else {
		log.Warn().Msg("using in-memory user store; accounts are lost on restart")
		users = memory.NewUserRepository()
	}

	// --- Admission control ---
	budgets, rules, err := loadAdmission(cfg)
	if err != nil {
		return nil, a.fail(err)
	}

	var counter ports.WindowCounter = ratelimit.NewMemory()
	if cfg.Admission.Backend == "redis" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, a.fail(err)
		}
		a.closers = append(a.closers, closeRedis(rdb))
		readiness["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		counter = redisdb.NewWindowCounter(rdb)
	}

	var cls ports.Classifier
	if cfg.Admission.ClassifierURL != "" {
		cls = classifier.NewRemote(cfg.Admission.ClassifierURL, &http.Client{})
	} else {
		cls, err = classifier.NewRules(rules)
		if err != nil {
			return nil, a.fail(fmt.Errorf("admission rules: %w", err))
		}
	}

	engine, err := service.NewAdmissionEngine(budgets, metrics.InstrumentClassifier(cls), counter, cfg.Admission.ClassifierTimeout, log)
	if err != nil {
		return nil, a.fail(err)
	}

	// --- Audit sink ---
	var audit middleware.AuditSubmitter
	if sink, err := a.auditSink(db); err != nil {
		return nil, a.fail(err)
	} else if sink != nil {
		a.dispatcher = queue.NewDispatcher(cfg.Audit.Workers, sink, log)
		audit = a.dispatcher
	}

	// --- Identity ---
	codec := credential.New(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	carrier := session.NewCarrier(session.Options{
		Name:     cfg.Auth.CookieName,
		Secure:   !cfg.IsDevelopment(),
		SameSite: cfg.Auth.CookieSameSite,
		TTL:      codec.TTL(),
	})
	hasher := password.NewBcryptHasher(cfg.Auth.BcryptCost)

	a.echo = api.NewRouter(api.Dependencies{
		Log:             log,
		AuthService:     service.NewAuthService(users, hasher, codec, log, service.WithAdminSignUp(cfg.Auth.AllowAdminSignUp)),
		UserService:     service.NewUserService(users, log),
		Codec:           codec,
		Carrier:         carrier,
		Admission:       engine,
		AdmissionDryRun: cfg.Admission.Mode == "dry_run",
		PreAuthenticate: cfg.Admission.PreAuthenticate,
		Audit:           audit,
		TrustProxy:      cfg.TrustProxy,
		Readiness:       readiness,
		Swagger:         cfg.IsDevelopment(),
		Started:         time.Now(),
	})
	return a, nil
}

func (a *App) auditSink(db *mongo.Database) (ports.AuditSink, error) {
	switch a.cfg.Audit.Sink {
	case "mongo":
		repo := mongodb.NewAuditRepository(db, a.cfg.Audit.Retention)
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			return nil, fmt.Errorf("ensure audit indexes: %w", err)
		}
		return repo, nil
	case "nats":
		conn, err := natsbus.Connect(a.cfg.Audit.NATSURL, appName)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, drainNATS(conn))
		return natsbus.NewAuditPublisher(conn, a.cfg.Audit.NATSSubject), nil
	default:
		return nil, nil
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	if a.dispatcher != nil {
		a.dispatcher.Start(workerCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info().
			Str("addr", addr).
			Str("env", a.cfg.Env).
			Str("admission_mode", a.cfg.Admission.Mode).
			Str("admission_backend", a.cfg.Admission.Backend).
			Msg("server listening")
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("http shutdown")
	}
	stopWorkers()
	if a.dispatcher != nil {
		a.dispatcher.Wait()
	}
	a.close(shutdownCtx)
	a.log.Info().Msg("server stopped")
	return runErr
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn().Err(err).Msg("close dependency")
		}
	}
}

// fail releases whatever was opened before a startup error.
func (a *App) fail(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.close(ctx)
	return err
}

func closeRedis(rdb *goredis.Client) func(context.Context) error {
	return func(context.Context) error { return rdb.Close() }
}

func drainNATS(conn *nats.Conn) func(context.Context) error {
	return func(context.Context) error { return conn.Drain() }
}
