package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"verification-system/internal/app/kitchen"
	"verification-system/internal/app/notify"
	"verification-system/internal/app/verify"
	"verification-system/internal/common/logger"
	"verification-system/internal/config"
)

func main() {
	mode := flag.String("mode", "", "verification-service | kitchen-worker | notification-subscriber")
	cfgPath := flag.String("config", "config.yml", "path to YAML config")
	port := flag.Int("port", 0, "verification-service: http port")
	workerName := flag.String("worker-name", "", "kitchen-worker: unique worker name")
	orderTypes := flag.String("order-types", "", "kitchen-worker: comma-separated order types to handle")
	prefetch := flag.Int("prefetch", 1, "kitchen-worker: RabbitMQ prefetch")
	flag.Parse()

	lg := logger.New("bootstrap")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	switch *mode {
	case "verification-service":
		if *port == 0 {
			*port = 3000
		}
		lg.Info("service_started", map[string]any{"service": "verification-service", "port": *port})
		if err := verify.Run(ctx, cfg, *port); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "kitchen-worker":
		if *workerName == "" {
			fmt.Fprintln(os.Stderr, "--worker-name is required for kitchen-worker")
			os.Exit(2)
		}
		lg.Info("service_started", map[string]any{"service": "kitchen-worker", "worker": *workerName})
		if err := kitchen.Run(ctx, cfg, *workerName, splitTypes(*orderTypes), *prefetch); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	case "notification-subscriber":
		lg.Info("service_started", map[string]any{"service": "notification-subscriber"})
		if err := notify.Run(ctx, cfg); err != nil {
			lg.Error("fatal", err, nil)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: verification-service | kitchen-worker | notification-subscriber")
		os.Exit(2)
	}
}

func splitTypes(csv string) []string {
	var out []string
	for _, t := range strings.Split(csv, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
