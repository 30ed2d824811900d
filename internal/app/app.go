package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"go-portfolio-cms/internal/config"
	"go-portfolio-cms/internal/database"
	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/handler"
	"go-portfolio-cms/internal/imaging"
	"go-portfolio-cms/internal/lifecycle"
	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/middleware"
	"go-portfolio-cms/internal/model"
	"go-portfolio-cms/internal/notify"
	"go-portfolio-cms/internal/repository"
	"go-portfolio-cms/internal/router"
	"go-portfolio-cms/internal/service"
	"go-portfolio-cms/internal/storage"
	"go-portfolio-cms/internal/suggest"
	"go-portfolio-cms/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// core is the part of the wiring shared by the server and the one-shot
// reap command.
type core struct {
	cfg     *config.Config
	db      *database.DB
	bus     *event.InMemoryBus
	metrics *metrics.Metrics
	files   *service.FileService
	bin     *service.RecycleBinService
}

func newCore(ctx context.Context, cfg *config.Config) (*core, error) {
	store, err := storage.New(cfg.UploadFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	bus := event.NewBus()
	m := metrics.New()

	files := service.NewFileService(store, imaging.NewNormalizer(cfg.ImageQuality, 0, cfg.ImageMaxPixels), service.FileServiceConfig{
		ImageExtensions: cfg.AllowedImageExtensions,
		PDFExtensions:   cfg.AllowedPDFExtensions,
		MaxBytes:        cfg.MaxContentLength,
	}, bus, m)

	entries := repository.NewRecycleBinRepository(db.Gorm)
	manager := lifecycle.NewManager(db.Gorm, entries, lifecycle.Options{
		HardDeleteOnPurge: cfg.PurgeHardDelete,
	}, service.LifecycleKinds(files)...)

	return &core{
		cfg:     cfg,
		db:      db,
		bus:     bus,
		metrics: m,
		files:   files,
		bin:     service.NewRecycleBinService(manager, entries, bus, m),
	}, nil
}

type App struct {
	server  *http.Server
	core    *core
	hub     *websocket.Hub
	reaper  *service.ExpiryReaper
	relay   *notify.Relay
	redis   *redis.Client
	stopHub context.CancelFunc
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	c, err := newCore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	gdb := c.db.Gorm

	authService, err := service.NewAuthService(cfg.AdminUsername, cfg.AdminPassword, cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		c.db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	articleRepo := repository.NewContentRepository[model.Article](gdb, model.ErrArticleNotFound, "created_at DESC, id DESC")
	skillRepo := repository.NewContentRepository[model.Skill](gdb, model.ErrSkillNotFound, "level DESC, id ASC")
	contactRepo := repository.NewContentRepository[model.Contact](gdb, model.ErrContactNotFound, "id ASC")
	commentRepo := repository.NewCommentRepository(gdb)

	limiter := service.NewCommentRateLimiter(cfg.CommentLimit, commentRepo, c.metrics)
	comments := service.NewCommentService(commentRepo, articleRepo, limiter, c.bus)
	avatars := service.NewAvatarService(gdb, repository.NewAvatarRepository(gdb), c.files, c.bin, c.bus)

	var suggester *handler.SuggestHandler
	if client, err := suggest.New(suggest.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIAPIURL}); err != nil {
		slog.Info("article suggestions disabled", "reason", err)
		suggester = handler.NewSuggestHandler(nil)
	} else {
		suggester = handler.NewSuggestHandler(client)
	}

	hub := websocket.NewHub(c.bus)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Health:     handler.NewHealthHandler(c.db),
		Auth:       handler.NewAuthHandler(authService),
		RecycleBin: handler.NewRecycleBinHandler(c.bin),
		Comments:   handler.NewCommentHandler(comments),
		Articles:   handler.NewArticleHandler(service.NewArticleService(articleRepo, c.bin, c.bus)),
		Skills:     handler.NewSkillHandler(service.NewSkillService(skillRepo, c.bin, c.bus)),
		Contacts:   handler.NewContactHandler(service.NewContactService(contactRepo, c.bin, c.bus)),
		Suggest:    suggester,
		Avatars:    handler.NewAvatarHandler(avatars, cfg.MaxContentLength),
		Files:      handler.NewFileHandler(c.files, cfg.MaxContentLength),
		Metrics:    c.metrics,
		Live:       hub.Handler(cfg.CORSOrigins),
	})

	a := &App{
		server: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           appRouter,
			ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
			WriteTimeout:      cfg.ServerWriteTimeout,
			IdleTimeout:       cfg.ServerIdleTimeout,
		},
		core:   c,
		hub:    hub,
		reaper: service.NewExpiryReaper(c.bin, cfg.RecycleBinRetentionDays, cfg.RecycleBinSweepInterval, c.metrics),
	}

	if cfg.RedisURL != "" {
		client, err := notify.Dial(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("change relay disabled", "error", err)
		} else {
			a.redis = client
			a.relay = notify.NewRelay(client, cfg.ChangeChannel, c.bus, c.metrics)
		}
	}

	return a, nil
}

// Run serves until ctx is cancelled, then shuts down: reaper first, then
// the HTTP server, then background subscribers and the database.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	a.stopHub = stopHub
	go a.hub.Run(hubCtx)

	if a.relay != nil {
		a.relay.Start(hubCtx)
	}

	a.reaper.Start(context.Background())

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func (a *App) shutdown() error {
	a.reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.stopHub()
	if a.relay != nil {
		a.relay.Wait()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.core.db.Close()

	slog.Info("server stopped")
	return shutdownErr
}

// RunReap performs a single expiry sweep and exits. It is meant for an
// external scheduler when the in-process reaper is not wanted.
func RunReap(ctx context.Context, cfg *config.Config) (model.SweepResult, error) {
	c, err := newCore(ctx, cfg)
	if err != nil {
		return model.SweepResult{}, err
	}
	defer c.db.Close()

	reaper := service.NewExpiryReaper(c.bin, cfg.RecycleBinRetentionDays, cfg.RecycleBinSweepInterval, c.metrics)
	return reaper.RunOnce(ctx)
}
