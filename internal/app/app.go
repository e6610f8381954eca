package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quiknotes/core/internal/config"
	"github.com/quiknotes/core/internal/database"
	"github.com/quiknotes/core/internal/docstore"
	"github.com/quiknotes/core/internal/middleware"
	"github.com/quiknotes/core/internal/modules/gateway"
	"github.com/quiknotes/core/internal/modules/notes"
	jwtpkg "github.com/quiknotes/core/internal/pkg/jwt"
	pkgredis "github.com/quiknotes/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	ds       docstore.Store
	hub      *gateway.Hub
	registry *notes.Registry
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// New initializes the application: config → DB → docstore → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.JWTSecret != "" {
		jwtpkg.SetSecret(cfg.JWTSecret)
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	ds, err := openDocstore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.RedisURL != "" {
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(corsConfig(cfg)))

	hub := gateway.NewHub(rc, logger, func(token string) (string, bool) {
		userID, err := middleware.ValidateToken(db, token)
		return userID, err == nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	registry := notes.NewRegistry(ctx, ds, cfg.QuietPeriod(), hub, logger)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		ds:       ds,
		hub:      hub,
		registry: registry,
		logger:   logger,
		cancel:   cancel,
	}
	app.registerRoutes()

	return app, nil
}

func openDocstore(cfg *config.AppConfig, logger *zap.Logger) (docstore.Store, error) {
	switch cfg.Docstore.Driver {
	case config.DriverMemory:
		return docstore.NewMemoryStore(), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		mdb, err := docstore.ConnectMongo(ctx, cfg.Docstore.URI, cfg.Docstore.Database)
		if err != nil {
			return nil, err
		}
		store := docstore.NewMongoStore(mdb, cfg.Docstore.Collection, logger)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines and live note sessions.
func (a *App) Shutdown() {
	a.registry.CloseAll()
	a.cancel()
}
