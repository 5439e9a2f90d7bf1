package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orderflow/order-ingest-service/internal/config"
	"github.com/orderflow/order-ingest-service/internal/logger"
	"github.com/orderflow/order-ingest-service/internal/model"
	"github.com/orderflow/order-ingest-service/internal/publisher"
	"github.com/orderflow/order-ingest-service/internal/repo"
)

// The sweeper is the reconciliation half of the outbox: it republishes
// records the request path recorded but never announced, then marks them.
// Consumers dedupe by order id, so replaying an already-delivered event is
// harmless.
func main() {
	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}

	log, err := logger.NewLogger("order-sweeper")
	if err != nil {
		panic(fmt.Errorf("init logger: %w", err))
	}
	defer log.Sync()

	gdb, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	pub := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer pub.Close()

	repository := repo.NewRepository(gdb, nil, log)

	interval := time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	batch := cfg.Sweeper.BatchSize
	if batch <= 0 {
		batch = 100
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("order-sweeper started, interval=%s batch=%d", interval, batch)
	for range ticker.C {
		ctx := context.Background()
		recs, err := repository.ListUnannounced(ctx, batch)
		if err != nil {
			log.Errorf("list unannounced: %v", err)
			continue
		}
		for _, rec := range recs {
			evt := model.OutboxEvent{
				ID:        rec.ID,
				Timestamp: rec.Timestamp,
				Order:     json.RawMessage(rec.OrderData),
			}
			if err := pub.Publish(ctx, evt); err != nil {
				log.Errorf("republish %s: %v", rec.ID, err)
				continue
			}
			if err := repository.MarkAnnounced(ctx, rec.ID); err != nil {
				log.Errorf("mark announced %s: %v", rec.ID, err)
			} else {
				log.Infof("order %s announced", rec.ID)
			}
		}
	}
}
