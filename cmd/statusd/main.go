// Command statusd is a headless status poller. It signs in to the identity
// provider as a machine user, keeps its session fresh through the shared
// session manager, and republishes a compact suite-status snapshot over HTTP.
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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/identity"
	"github.com/crewbase/crewbase/internal/logger"
	"github.com/crewbase/crewbase/internal/session"
)

type config struct {
	httpPort        string
	apiBaseURL      string
	identityBaseURL string
	identityAPIKey  string
	email           string
	password        string
	sessionFile     string
	pollInterval    time.Duration
	logLevel        string
}

func loadConfig() (config, error) {
	cfg := config{
		httpPort:        getEnv("STATUSD_PORT", "8081"),
		apiBaseURL:      getEnv("API_BASE_URL", "http://localhost:8080"),
		identityBaseURL: getEnv("IDENTITY_BASE_URL", "http://localhost:9999"),
		identityAPIKey:  getEnv("IDENTITY_API_KEY", ""),
		email:           getEnv("STATUSD_EMAIL", ""),
		password:        getEnv("STATUSD_PASSWORD", ""),
		sessionFile:     getEnv("STATUSD_SESSION_FILE", "statusd-session.json"),
		logLevel:        getEnv("LOG_LEVEL", "info"),
	}
	if cfg.email == "" || cfg.password == "" {
		return config{}, errors.New("STATUSD_EMAIL and STATUSD_PASSWORD are required")
	}

	interval, err := time.ParseDuration(getEnv("STATUSD_POLL_INTERVAL", "30s"))
	if err != nil {
		return config{}, err
	}
	cfg.pollInterval = interval
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(cfg.logLevel, "crewbase-statusd")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identityClient := identity.NewClient(cfg.identityBaseURL, cfg.identityAPIKey, nil)
	mgr := session.NewManager(session.NewFileStore(cfg.sessionFile), identityClient, zapLogger, session.Options{})

	// Reuse a previous session when one survives on disk, otherwise sign in.
	if status := mgr.CheckAuthStatus(ctx); !status.IsAuthenticated {
		user, pair, err := identityClient.SignIn(ctx, cfg.email, cfg.password)
		if err != nil {
			zapLogger.Fatal("sign in failed", zap.Error(err))
		}
		if err := mgr.Set(mgr.NewSession(user, pair)); err != nil {
			zapLogger.Fatal("persist session failed", zap.Error(err))
		}
		zapLogger.Info("signed in", zap.String("user_id", user.ID))
	}

	mgr.Start(ctx)
	defer mgr.Stop()

	p := newPoller(cfg.apiBaseURL, mgr, zapLogger)
	go p.run(ctx, cfg.pollInterval)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/status", p.handleStatus)

	srv := &http.Server{
		Addr:              ":" + cfg.httpPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("statusd listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if err := <-errCh; err != nil {
			zapLogger.Error("server error", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}
}
