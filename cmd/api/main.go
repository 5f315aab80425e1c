package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/NeroQue/onboarding-flow-backend/internal/api"
	"github.com/NeroQue/onboarding-flow-backend/internal/config"
	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/player"
	"github.com/NeroQue/onboarding-flow-backend/internal/progress"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage/kv"
	"github.com/NeroQue/onboarding-flow-backend/pkg/parser"
	"github.com/NeroQue/onboarding-flow-backend/pkg/session"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
	"github.com/NeroQue/onboarding-flow-backend/pkg/util"
)

// main entry point - sets up everything and starts the server
func main() {
	os.Exit(start())
}

// start returns the exit code so deferred cleanup runs before the process exits
func start() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.LogMode, logger.Options{Redact: cfg.LogRedaction, HashSalt: cfg.LogHashSalt})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Server stopped with error", "error", err)
		return 1
	}
	log.Info("Server stopped")
	return 0
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	backend, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer backend.Close()
	log.Info("Store opened", "driver", cfg.StoreDriver, "namespace", cfg.StoreNamespace)

	ns := kv.WithNamespace(backend, cfg.StoreNamespace)
	courses := storage.NewCourseStore(ns, log)
	identity := storage.NewDeviceIdentity(ns, nil)
	reviews := storage.NewReviewLog(ns, log)
	tracker := progress.NewTracker(ns, log)
	tasks := task.NewManager()
	editors := session.NewStore[*services.EditorSession]("editor")
	players := session.NewStore[*services.PlayerSession]("player")

	// setup course import stuff
	importDir := util.GetImportDirectory(cfg.CoursesImportDir)
	courseParser := parser.NewCourseParser(importDir)
	if err := courseParser.ValidateBasePath(); err != nil {
		log.Warn("Import directory unusable, imports may fail", "dir", importDir, "error", err)
	} else {
		log.Info("Import directory configured", "dir", importDir)
	}

	gateway := newGateway(cfg, courses, log)

	gates := make([]models.StepType, 0, len(cfg.HardGates))
	for _, g := range cfg.HardGates {
		t := models.StepType(g)
		if !t.Valid() {
			return fmt.Errorf("PLAYER_HARD_GATES: unknown step type %q", g)
		}
		gates = append(gates, t)
	}
	playerCfg := player.Config{
		TransitionDelay:         cfg.TransitionDelay,
		HardGates:               gates,
		ResumeAtFirstIncomplete: cfg.ResumeAtFirstIncomplete,
	}

	server := api.NewServer(api.Services{
		Courses:  services.NewCourseService(courses, courseParser, tasks, cfg.PublicBaseURL, log),
		Settings: services.NewSettingsService(courses, identity, log),
		Editors:  services.NewEditorService(courses, editors, tasks, gateway, log),
		Players:  services.NewPlayerService(courses, identity, tracker, reviews, players, gateway, playerCfg, log),
		Admin:    services.NewAdminService(ns, courses, tracker, reviews, editors, players, tasks, log),
		Tasks:    tasks,
		Gateway:  gateway,
	}, log)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		tasks.CleanupRoutine(ctx, time.Hour, cfg.TaskRetention, func(n int) {
			log.Info("Cleaned old tasks", "count", n)
		})
		return nil
	})
	g.Go(func() error {
		interval := cfg.SessionTTL / 4
		if interval < time.Minute {
			interval = time.Minute
		}
		expired := func(kind string) func(int) {
			return func(n int) { log.Info("Expired idle sessions", "kind", kind, "count", n) }
		}
		go players.ExpireRoutine(ctx, interval, cfg.SessionTTL, expired("player"))
		editors.ExpireRoutine(ctx, interval, cfg.SessionTTL, expired("editor"))
		return nil
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return kv.NewMemoryStore(), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); !util.EnsureDirectoryExists(dir) {
			return nil, fmt.Errorf("cannot create directory %s", dir)
		}
		return kv.OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		return kv.OpenPostgres(ctx, cfg.DBURL)
	case config.DriverRedis:
		return kv.OpenRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// newGateway returns the Gemini client, or a gateway that refuses every call when no
// API key is configured
func newGateway(cfg config.Config, courses *storage.CourseStore, log *logger.Logger) generation.Gateway {
	// the concierge names whatever the admin last saved
	platform := func(ctx context.Context) string {
		settings, err := courses.LoadSettings(ctx)
		if err != nil {
			log.Warn("Failed to load settings for chat, using default platform name", "error", err)
			return ""
		}
		return settings.PlatformName
	}

	gw, err := generation.NewGemini(generation.GeminiConfig{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.GeminiBaseURL,
		TextModel:         cfg.TextModel,
		DocModel:          cfg.DocModel,
		ImageModel:        cfg.ImageModel,
		VideoModel:        cfg.VideoModel,
		VideoPollInterval: cfg.VideoPollInterval,
		PlatformName:      platform,
	}, log)
	if errors.Is(err, generation.ErrNotConfigured) {
		log.Warn("API_KEY not set, AI features are disabled")
		return generation.Unavailable{}
	}
	if err != nil {
		log.Warn("Generation gateway unavailable", "error", err)
		return generation.Unavailable{}
	}
	return gw
}
