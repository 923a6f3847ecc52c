package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gearbelt/rental-engine/internal/config"
	kafkax "github.com/gearbelt/rental-engine/internal/kafka"
	"github.com/gearbelt/rental-engine/internal/metrics"
	"github.com/gearbelt/rental-engine/internal/payments"
	"github.com/gearbelt/rental-engine/internal/postgres"
	"github.com/gearbelt/rental-engine/internal/redisx"
	"github.com/gearbelt/rental-engine/internal/rental"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	m, meterProvider, err := metrics.Init(ctx, cfg.ServiceName+"-reconciler", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	reconciler := &payments.Reconciler{
		Store:       &rental.PaymentRepo{DB: db},
		Redis:       rdb,
		Metrics:     m,
		ServiceName: cfg.ServiceName + "-reconciler",
	}

	group := getenv("RECONCILER_GROUP", "payment-reconciler")
	workers := mustAtoi(os.Getenv("RECONCILER_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, rental.TopicPaymentEvents, workers)

	go func() {
		log.Printf("reconciler started: group=%s topic=%s workers=%d", group, rental.TopicPaymentEvents, workers)
		if err := cons.Start(ctx, reconciler.HandleGatewayEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down reconciler...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	if meterProvider != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = meterProvider.Shutdown(shutdownCtx)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil || i <= 0 {
		return def
	}
	return i
}
