package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/widget-store/internal/config"
	kafkax "github.com/ariefcatur/widget-store/internal/kafka"
	"github.com/ariefcatur/widget-store/internal/orders"
	"github.com/ariefcatur/widget-store/internal/postgres"
	"github.com/ariefcatur/widget-store/internal/redisx"
	"github.com/ariefcatur/widget-store/internal/stockwatch"
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
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	alerts := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicProductLowStock, 1024)
	alerts.Start(ctx)

	name := cfg.ServiceName + "-stockwatch"
	svc := &stockwatch.Service{
		Products:    &orders.Repo{DB: db},
		Dedup:       &redisx.Dedup{RDB: rdb, Service: name},
		Alerts:      alerts,
		Threshold:   cfg.LowStockThreshold,
		ServiceName: name,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.StockwatchGroup, orders.TopicOrderPlaced, cfg.StockwatchWorkers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Printf("stockwatch consumer started: group=%s topic=%s workers=%d",
			cfg.StockwatchGroup, orders.TopicOrderPlaced, cfg.StockwatchWorkers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Println("shutting down consumer...")
	cancel()
	<-done
	alerts.Close()
	alerts.WaitClosed()
}
