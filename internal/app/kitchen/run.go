package kitchen

import (
	"context"
	"fmt"
	"time"

	"verification-system/internal/app/kitchen/repository"
	"verification-system/internal/broadcast"
	"verification-system/internal/common/logger"
	"verification-system/internal/config"
	"verification-system/internal/connections/database"
	"verification-system/internal/connections/rabbitmq"
)

// Run starts a kitchen worker against the configured database and broker.
func Run(ctx context.Context, cfg *config.Config, workerName string, orderTypes []string, prefetch int) error {
	lg := logger.New("kitchen-worker")

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	rmq, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return fmt.Errorf("rabbitmq connect: %w", err)
	}
	defer rmq.Close()
	if err := rmq.DeclareTopology(); err != nil {
		return fmt.Errorf("rabbitmq topology: %w", err)
	}

	worker := NewWorker(WorkerConfig{
		WorkerName:      workerName,
		OrderTypes:      orderTypes,
		Prefetch:        prefetch,
		Heartbeat:       time.Duration(cfg.Kitchen.HeartbeatIntervalSec) * time.Second,
		PrepareDineIn:   time.Duration(cfg.Kitchen.DineInSeconds) * time.Second,
		PreparePickup:   time.Duration(cfg.Kitchen.PickupSeconds) * time.Second,
		PrepareDelivery: time.Duration(cfg.Kitchen.DeliverySeconds) * time.Second,
	}, repository.NewKitchenRepository(db), rmq, broadcast.NewAMQP(rmq, "kitchen-worker"), lg)

	return worker.Run(ctx)
}
