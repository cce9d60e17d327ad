package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cs-portal/api"
	"cs-portal/dao"
	"cs-portal/internal/aiclient"
	"cs-portal/internal/config"
	"cs-portal/internal/logger"
	"cs-portal/route"
	"cs-portal/service"
	"cs-portal/view"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 35 * time.Second

func main() {
	configDir := os.Getenv("PORTAL_CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	aiClient := aiclient.NewClient(cfg.Classifier.BaseURL, cfg.Classifier.TimeoutDuration())
	zapLog.Info("starting portal",
		zap.String("environment", cfg.App.Environment),
		zap.String("classifier", aiClient.BaseURL()),
		zap.String("store", cfg.Store.Driver),
	)

	store, err := newStore(cfg.Store, zapLog)
	if err != nil {
		zapLog.Fatal("session store unavailable", zap.Error(err))
	}
	defer store.Close()

	catalog, err := view.LoadCatalog(cfg.Labels.File)
	if err != nil {
		zapLog.Warn("label catalog not loaded, using built-in labels", zap.Error(err))
		catalog = view.DefaultCatalog()
	}
	renderer, err := view.NewRenderer(catalog)
	if err != nil {
		zapLog.Fatal("parse templates", zap.Error(err))
	}

	formSvc := service.NewFormService(store, aiClient, log)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log))
	r.SetHTMLTemplate(renderer.Template())

	route.Register(r, api.NewFormHandler(formSvc, renderer, log), store, api.SessionOptions{
		CookieName: cfg.Session.CookieName,
		MaxAge:     cfg.Session.MaxAge,
		Secure:     cfg.Session.Secure,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLog.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("http shutdown", zap.Error(err))
	}
	// in-flight classifications still get to record their outcome
	if err := formSvc.Drain(ctx); err != nil {
		zapLog.Warn("classifications still in flight at exit", zap.Error(err))
	}
	zapLog.Info("stopped")
}

func newStore(cfg config.StoreConfig, log *zap.Logger) (dao.SessionStore, error) {
	if cfg.Driver != config.StoreRedis {
		return dao.NewMemoryStore(cfg.Redis.TTL()), nil
	}

	store := dao.NewRedisStore(dao.RedisOptions{
		Addr:       cfg.Redis.Address,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		KeyPrefix:  cfg.Redis.KeyPrefix,
		TTL:        cfg.Redis.TTL(),
		MaxRetries: cfg.Redis.MaxRetries,
	})
	err := retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return store.Ping(ctx)
	}, 5, time.Second, log, "redis connection")
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying",
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
