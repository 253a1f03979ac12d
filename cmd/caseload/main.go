// caseload publishes the fixture case library onto the ingestion topics so a
// ClickHouse-backed deployment can be seeded without the crawling pipeline.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"TickAttrib/internal/domain/models"
	"TickAttrib/internal/usecase"
	"TickAttrib/pkg/config"
	pkgkafka "TickAttrib/pkg/kafka"
	applogger "TickAttrib/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	caseID := flag.String("case", "", "publish a single case instead of the whole library")
	chunk := flag.Int("chunk", 200, "ticks per published batch")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("kafka.brokers is required (set KAFKA_BROKERS or kafka.brokers)")
	}

	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	lib, err := usecase.NewCaseLibrary(cfg.Cases.Dir, l)
	if err != nil {
		log.Fatalf("case library: %v", err)
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		log.Fatalf("kafka producer: %v", err)
	}
	defer func() { _ = producer.Close() }()

	ctx := context.Background()
	for _, meta := range lib.Cases() {
		if *caseID != "" && meta.CaseID != *caseID {
			continue
		}
		if err := publishCase(ctx, lib, producer, meta.CaseID, *chunk); err != nil {
			log.Fatalf("publish %s: %v", meta.CaseID, err)
		}
	}
}

func publishCase(ctx context.Context, lib *usecase.CaseLibrary, producer *pkgkafka.Producer, caseID string, chunk int) error {
	handle, err := lib.Open(ctx, caseID)
	if err != nil {
		return err
	}
	defer func() { _ = handle.Store.Close() }()

	ticks, err := handle.Store.Ticks(ctx, handle.Meta.Symbol, 0)
	if err != nil {
		return err
	}
	key := []byte(handle.Meta.Symbol)

	for start := 0; start < len(ticks); start += chunk {
		end := min(start+chunk, len(ticks))
		batch := usecase.TickBatch{CaseID: caseID, Ticks: ticks[start:end]}
		if err := producer.Publish(ctx, usecase.TopicTicks, key, batch); err != nil {
			return err
		}
	}

	// anchor on the first tick, the window is wide enough for any single
	// trading session
	var news []models.NewsItem
	if len(ticks) > 0 {
		news, err = handle.Store.AlignedNews(ctx, handle.Meta.Symbol, ticks[0].Timestamp, 24*time.Hour, 24*time.Hour)
		if err != nil {
			return err
		}
	}
	if len(news) > 0 {
		batch := usecase.NewsBatch{CaseID: caseID, News: news}
		if err := producer.Publish(ctx, usecase.TopicNews, key, batch); err != nil {
			return err
		}
	}

	log.Printf("published case=%s ticks=%d news=%d", caseID, len(ticks), len(news))
	return nil
}
