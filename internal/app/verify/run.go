package verify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"verification-system/internal/app/verify/repository"
	"verification-system/internal/broadcast"
	"verification-system/internal/common/httpx"
	"verification-system/internal/common/logger"
	"verification-system/internal/config"
	"verification-system/internal/connections/database"
	"verification-system/internal/connections/rabbitmq"
	"verification-system/internal/dispatch"
	"verification-system/internal/pos"
	"verification-system/internal/timer"
	"verification-system/internal/verification"
)

// Run starts the verification service: report ingest over HTTP, the
// aggregator/dispatcher core, event broadcasting and kitchen-queue output.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	lg := logger.New("verification-service")

	agents, err := verification.NewAgents(cfg.Agents.Expected, cfg.Agents.Primary)
	if err != nil {
		return fmt.Errorf("agent config: %w", err)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer rmq.Close()
	if err := rmq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.RabbitMQ.Host})

	bc := broadcast.NewAMQP(rmq, "verification-service")
	timers := timer.New(bc, lg, time.Duration(cfg.Kitchen.TimerTickSeconds)*time.Second)
	posClient := pos.NewMock(lg)
	dispatcher := dispatch.NewDispatcher(dispatch.NewCounter(), bc, posClient, timers, lg)
	repo := repository.NewVerificationRepository(db)
	svc := NewService(verification.NewAggregator(agents), dispatcher, bc, broadcast.NewKitchenPublisher(rmq), repo, lg)

	srv := httpx.New(fmt.Sprintf(":%d", port), newMux(svc, lg))
	lg.Info("http_listening", map[string]any{"port": port})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		<-ctx.Done()
		timers.Shutdown()
		return nil
	})
	return g.Wait()
}
