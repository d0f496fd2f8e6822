package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/crewbase/crewbase/internal/config"
	"github.com/crewbase/crewbase/internal/httpserver"
	"github.com/crewbase/crewbase/internal/identity"
	"github.com/crewbase/crewbase/internal/migrations"
	"github.com/crewbase/crewbase/internal/repository"
	"github.com/crewbase/crewbase/internal/scm"
	"github.com/crewbase/crewbase/internal/seed"
	"github.com/crewbase/crewbase/internal/service"
	"github.com/crewbase/crewbase/internal/storage/postgres"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	httpServer *httpserver.Server
	db         *pgxpool.Pool
	repo       *repository.Repository
	svc        *service.Service
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}

	if err := migrations.Run(ctx, cfg.DatabaseURL, logger); err != nil {
		db.Close()
		return nil, err
	}

	repo := repository.New(db)
	scmClient := scm.NewClient(cfg.SCMBaseURL, cfg.SCMToken, cfg.SCMRepo, nil)
	identityClient := identity.NewClient(cfg.IdentityBaseURL, cfg.IdentityAPIKey, nil)

	svc := service.New(repo, scmClient, logger, cfg.HandoffTTL)

	if cfg.DemoMode {
		if err := seed.Apply(ctx, svc, cfg.DemoFixture, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	server := httpserver.New(cfg.HTTPPort, logger, svc, identityClient, httpserver.Options{
		WebhookSecret: cfg.WebhookSecret,
		SessionTTL:    cfg.SessionTTL,
	})

	return &App{
		cfg:        cfg,
		logger:     logger,
		httpServer: server,
		db:         db,
		repo:       repo,
		svc:        svc,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.purgeHandoffsLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.httpServer.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			return err
		}

		return <-errCh
	case err := <-errCh:
		return err
	}
}

// purgeHandoffsLoop sweeps expired handoff codes. Redemption already filters
// on expiry, so the sweep only keeps the table from growing.
func (a *App) purgeHandoffsLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.svc.PurgeExpiredHandoffs(ctx)
			if err != nil {
				a.logger.Warn("handoff purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.logger.Debug("purged expired handoff codes", zap.Int64("count", n))
			}
		}
	}
}
