package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-loader/internal/api/http"
	"github.com/mind-engage/mindengage-loader/internal/audit"
	auth "github.com/mind-engage/mindengage-loader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-loader/internal/config"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/db"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/logging"
	"github.com/mind-engage/mindengage-loader/internal/metrics"
	"github.com/mind-engage/mindengage-loader/internal/rbac"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	targets, err := content.LoadTargets(cfg.TargetsFile)
	if err != nil {
		logger.Fatal("targets", zap.String("file", cfg.TargetsFile), zap.Error(err))
	}

	m := metrics.NewProm(cfg.MetricsNamespace)

	// --- Handoff history (optional) ---
	var hist audit.Log = audit.Nop{}
	if cfg.HistoryDBDriver != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbh, err := db.Open(ctx, db.Driver(cfg.HistoryDBDriver), cfg.HistoryDBDSN)
		cancel()
		if err != nil {
			logger.Fatal("history db open failed", zap.String("driver", cfg.HistoryDBDriver), zap.Error(err))
		}
		defer dbh.Close()
		hist = audit.NewSQLLog(dbh)
	}

	store := session.NewInMemoryStore(session.Config{
		Targets:        targets,
		Form:           form.Options{Strict: cfg.StrictGating},
		InspectTimeout: cfg.InspectTimeout,
		Logger:         logger.Named("session"),
		Metrics:        m,
	})

	authSvc := auth.NewAuthService(cfg.AuthSecret, map[string]auth.Account{
		cfg.AdminUser: {Hash: cfg.AdminPassHash, Role: rbac.RoleAdmin},
	})

	r := api.NewRouter(api.Deps{
		Auth:            authSvc,
		Sessions:        store,
		Targets:         targets,
		History:         hist,
		Metrics:         m,
		MetricsHandler:  metrics.Handler(),
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins(),
		MaxArchiveBytes: cfg.MaxArchiveBytes,
		InspectTimeout:  cfg.InspectTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// idle sessions hold archive state in memory
	go session.RunSweeper(ctx, store, cfg.SessionIdleTTL, logger.Named("session"))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.Bool("strict_gating", cfg.StrictGating),
		zap.String("history", cfg.HistoryDBDriver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}
