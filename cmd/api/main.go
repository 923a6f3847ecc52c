package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gearbelt/rental-engine/internal/availability"
	"github.com/gearbelt/rental-engine/internal/checkout"
	"github.com/gearbelt/rental-engine/internal/config"
	"github.com/gearbelt/rental-engine/internal/httpx"
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

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	m, meterProvider, err := metrics.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	orderProd := kafkax.NewProducer(cfg.KafkaBrokers, rental.TopicOrderConfirmed, 1024)
	orderProd.Start(ctx)
	// The webhook relay is synchronous: the gateway only gets a 2xx once
	// the event is on the broker.
	paymentProd := kafkax.NewSyncProducer(cfg.KafkaBrokers, rental.TopicPaymentEvents)

	gateway := payments.NewClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)

	stockRepo := &rental.StockRepo{DB: db}
	cartRepo := &rental.CartRepo{DB: db}
	orderRepo := &rental.OrderRepo{DB: db}
	paymentRepo := &rental.PaymentRepo{DB: db}

	availSvc := &availability.Service{Stock: stockRepo, Redis: rdb, Metrics: m}
	checkoutSvc := &checkout.Service{
		Store:       &rental.CheckoutRepo{DB: db},
		Payments:    paymentRepo,
		Gateway:     gateway,
		Producer:    orderProd,
		Redis:       rdb,
		Metrics:     m,
		ServiceName: cfg.ServiceName,
	}
	reconciler := &payments.Reconciler{
		Store:       paymentRepo,
		Redis:       rdb,
		Metrics:     m,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.AvailabilityHandler{Avail: availSvc, DefaultStoreID: cfg.DefaultStoreID}).Register(router)
	(&httpx.CartHandler{Carts: cartRepo, Avail: availSvc, DefaultStoreID: cfg.DefaultStoreID}).Register(router)
	(&httpx.CheckoutHandler{Checkout: checkoutSvc}).Register(router)
	(&httpx.OrderHandler{Orders: orderRepo, Payments: paymentRepo, Gateway: gateway, Reconciler: reconciler, Redis: rdb}).Register(router)
	(&httpx.StockHandler{Stock: stockRepo}).Register(router)
	(&httpx.WebhookHandler{Secret: cfg.WebhookSecret, Producer: paymentProd, Metrics: m, ServiceName: cfg.ServiceName}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	if meterProvider != nil {
		_ = meterProvider.Shutdown(shutdownCtx)
	}
	orderProd.Close()
	_ = paymentProd.Close()
	cancel()
	orderProd.WaitClosed()
}
