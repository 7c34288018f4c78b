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

	"github.com/ariefcatur/widget-store/internal/auth"
	"github.com/ariefcatur/widget-store/internal/config"
	"github.com/ariefcatur/widget-store/internal/httpx"
	kafkax "github.com/ariefcatur/widget-store/internal/kafka"
	"github.com/ariefcatur/widget-store/internal/orders"
	"github.com/ariefcatur/widget-store/internal/payment"
	"github.com/ariefcatur/widget-store/internal/postgres"
	"github.com/ariefcatur/widget-store/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, int32(cfg.DBMaxConns))
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		log.Printf("redis unavailable, cache and rate limit degrade: %v", err)
	}

	// Kafka producers, one per topic
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	placed.Start(ctx)
	statusChanged := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	statusChanged.Start(ctx)

	var gateway payment.Gateway = payment.SandboxGateway{}
	if !cfg.PaymentSandbox {
		bt, err := payment.NewBraintreeGateway(cfg.BraintreeEnvironment, cfg.PaymentGatewayURL,
			cfg.BraintreeMerchantID, cfg.BraintreePublicKey, cfg.BraintreePrivateKey)
		if err != nil {
			log.Fatalf("payment gateway: %v", err)
		}
		gateway = bt
	} else {
		log.Println("payment sandbox enabled: no processor will be charged")
	}

	svc := &orders.Service{
		Store:          &orders.Repo{DB: db},
		Gateway:        gateway,
		PlacedEvents:   placed,
		StatusEvents:   statusChanged,
		PaymentTimeout: cfg.PaymentTimeout,
		ServiceName:    cfg.ServiceName,
	}

	router := httpx.NewRouter(auth.NewTokens(cfg.SecretKey), cfg.PaymentTimeout+15*time.Second)
	oh := &httpx.OrdersHandler{
		Service:  svc,
		Validate: orders.NewValidator(),
		Cache:    &redisx.OrderCache{RDB: rdb, TTL: cfg.OrderCacheTTL},
		Limiter: &redisx.RateLimiter{
			RDB:    rdb,
			Scope:  "orders",
			Limit:  cfg.OrderRateLimit,
			Window: cfg.OrderRateWindow,
		},
		PlaceTimeout: cfg.PaymentTimeout + 10*time.Second,
	}
	oh.Register(router)
	(&httpx.ProductsHandler{Service: svc}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.PaymentTimeout+5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	placed.Close()
	statusChanged.Close()
	placed.WaitClosed()
	statusChanged.WaitClosed()
}
