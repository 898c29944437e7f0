// Package app initializes and runs the journal service.
// It configures logging, storage, sessions, the completion client and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/moodjournal/internal/auth"
	"github.com/patric-chuzhbe/moodjournal/internal/completion"
	"github.com/patric-chuzhbe/moodjournal/internal/config"
	"github.com/patric-chuzhbe/moodjournal/internal/db/jsondb"
	"github.com/patric-chuzhbe/moodjournal/internal/db/memorystorage"
	"github.com/patric-chuzhbe/moodjournal/internal/db/mongodb"
	"github.com/patric-chuzhbe/moodjournal/internal/db/postgresdb"
	"github.com/patric-chuzhbe/moodjournal/internal/eventqueue"
	"github.com/patric-chuzhbe/moodjournal/internal/events"
	"github.com/patric-chuzhbe/moodjournal/internal/logger"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/router"
	"github.com/patric-chuzhbe/moodjournal/internal/service"
	"github.com/patric-chuzhbe/moodjournal/internal/session"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

type recordKeeper interface {
	InsertRecord(ctx context.Context, record *models.Record) error
	GetUserRecords(ctx context.Context, userID string) (models.Records, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	userKeeper
	recordKeeper
	pinger
	Close() error
}

const shutdownTimeout = 10 * time.Second

// App holds the configuration, HTTP handler and every resource that must be
// released on shutdown.
type App struct {
	cfg          *config.Config
	db           storage
	sessionStore session.Store
	publisher    *events.Publisher
	eventQueue   *eventqueue.Queue
	stopQueue    context.CancelFunc
	httpHandler  http.Handler
}

// New builds the App from a loaded configuration.
func New(cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	err = logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.UsesDefaultSessionSecret() {
		logger.Log.Warnw("Session cookies are signed with the built-in secret, set SESSION_SECRET_KEY or -s")
	}

	app.db, err = getStorageByType(cfg)
	if err != nil {
		return nil, err
	}

	app.sessionStore, err = getSessionStore(cfg)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	serviceOptions := []service.InitOption{}
	if cfg.RabbitMQURL != "" {
		app.publisher, err = events.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			app.closeResources()
			return nil, err
		}
		app.eventQueue = eventqueue.New(app.publisher, cfg.EventQueueCapacity, cfg.EventFlushInterval)
		queueCtx, stopQueue := context.WithCancel(context.Background())
		app.stopQueue = stopQueue
		app.eventQueue.Run(queueCtx)
		app.eventQueue.ListenErrors(func(err error) {
			logger.Log.Warnw("Error passed from the `app.eventQueue.ListenErrors()`", zap.Error(err))
		})
		serviceOptions = append(serviceOptions, service.WithPublisher(app.eventQueue))
	}

	theAuth, err := auth.New(
		app.db,
		session.NewManager(app.sessionStore, cfg.SessionMaxAge),
		cfg.SessionCookieName,
		[]byte(cfg.SessionSecretKey),
		cfg.SessionCookieSecure,
		cfg.BcryptCost,
	)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	journal := service.New(
		app.db,
		completion.New(
			cfg.CompletionURL,
			cfg.CompletionAPIKey,
			cfg.CompletionModel,
			cfg.CompletionTemperature,
			cfg.CompletionTimeout,
		),
		cfg.CompletionFailurePolicy,
		serviceOptions...,
	)

	app.httpHandler, err = router.New(journal, theAuth)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	return app, nil
}

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run serves HTTP until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// Serve serves HTTP until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing connections and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)
		closeErr := a.closeResources()
		if shutdownErr != nil {
			return fmt.Errorf("server shutdown error: %w", shutdownErr)
		}

		return closeErr

	case err := <-serverErrCh:
		a.closeResources()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	}
}

func (a *App) closeResources() error {
	var errs []error

	if a.eventQueue != nil {
		a.stopQueue()
		a.eventQueue.Wait()
		a.eventQueue = nil
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
		a.publisher = nil
	}
	if a.sessionStore != nil {
		errs = append(errs, a.sessionStore.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}

	return errors.Join(errs...)
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.MongoURI != "" {
		return models.StorageTypeMongo
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		logger.Log.Infow("using PostgreSQL storage")
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeMongo:
		logger.Log.Infow("using MongoDB storage", "database", cfg.MongoDBName)
		return mongodb.New(
			context.Background(),
			cfg.MongoURI,
			cfg.MongoDBName,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		logger.Log.Infow("using JSON file storage", "file", cfg.DBFileName)
		return jsondb.New(cfg.DBFileName)
	}

	logger.Log.Infow("using in-memory storage")
	return memorystorage.New()
}

func getSessionStore(cfg *config.Config) (session.Store, error) {
	if cfg.RedisAddr == "" {
		logger.Log.Infow("using in-memory session store")
		return session.NewMemoryStore(), nil
	}

	client, err := session.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Log.Errorw("Error calling the `session.NewRedisClient()`", zap.Error(err))
		return nil, err
	}
	logger.Log.Infow("using Redis session store", "addr", cfg.RedisAddr)

	return session.NewRedisStore(client), nil
}
