// Worker consumes gate security events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"tenant-access-gate/backend/internal/config"
	"tenant-access-gate/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	lokiClient, err := loki.NewClient(cfg.LokiURL)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	topic := cfg.TelemetryKafkaTopic
	if topic == "" {
		topic = "gate-telemetry"
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "gate-telemetry-worker"
	}

	// Offsets are committed explicitly after a successful Loki push, so an
	// event that fails to ship is redelivered on restart.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  1 * time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	log.Printf("worker: consuming from %s (group %s), pushing to %s", topic, groupID, cfg.LokiURL)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("worker: stopped")
				return
			}
			log.Printf("worker: kafka fetch error: %v", err)
			continue
		}

		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		err = lokiClient.PushEventJSON(pushCtx, msg.Value)
		pushCancel()
		if err != nil {
			// Leave the offset uncommitted; the event is retried after restart.
			log.Printf("worker: loki push failed (tenant=%s offset=%d): %v", msg.Key, msg.Offset, err)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("worker: offset commit failed: %v", err)
		}
	}
}
