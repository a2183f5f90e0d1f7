package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/api"
	"termcheck/pkg/checker"
	"termcheck/pkg/config"
	"termcheck/pkg/importer"
)

func main() {
	var (
		configPath  string
		storageKind string
		seedPath    string
		httpAddr    string
		logLevel    string
		kafkaAddr   string
		kafkaTopic  string
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&storageKind, "storage", "", "Term store: memdb, postgres, mongo, sqlite, remote.")
	flag.StringVar(&seedPath, "seed", "", "Path to a JSON term data file imported on start.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	// Override config with flags if set
	if storageKind != "" {
		cfg.Storage = storageKind
	}
	if seedPath != "" {
		cfg.SeedPath = seedPath
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if kafkaAddr != "" {
		cfg.Kafka.Addr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.Kafka.Topic = kafkaTopic
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] invalid config: %v", err)
	}
	cfg.SetLogLevel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, closeDB, err := cfg.OpenStore(ctx)
	if err != nil {
		log.Fatalf("[server] failed to open term store: %v", err)
	}
	defer closeDB()

	if cfg.SeedPath != "" {
		if _, err := importer.Import(ctx, cfg.SeedPath, db); err != nil {
			log.Fatalf("[server] failed to seed term store: %v", err)
		}
	}

	chk, err := checker.New(db, cfg.CheckerOptions())
	if err != nil {
		log.Fatalf("[server] failed to create checker: %v", err)
	}
	if err := chk.Reload(ctx); err != nil {
		log.Errorf("[server] initial term index load failed, /check answers 503 until the next reload: %v", err)
	}

	var kafkaWriter *kafka.Writer
	if cfg.Kafka.Addr != "" {
		kafkaWriter = &kafka.Writer{
			Addr:      kafka.TCP(cfg.Kafka.Addr),
			Topic:     cfg.Kafka.Topic,
			BatchSize: cfg.Kafka.Batch,
		}
		defer kafkaWriter.Close()

		if err := createTopic(ctx, kafkaWriter.Addr.String(), kafkaWriter.Topic); err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	// A nil *kafka.Writer must not reach the API as a non-nil interface.
	var logWriter api.MessageWriter
	if kafkaWriter != nil {
		logWriter = kafkaWriter
	}
	a := api.New(cfg.ServiceName, db, chk, logWriter)

	var wg sync.WaitGroup
	if cfg.RefreshInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refresh(ctx, chk, cfg.RefreshInterval)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("[server] starting on %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cancel()
	wg.Wait()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}
}

// refresh reloads the term index every interval until ctx is cancelled.
func refresh(ctx context.Context, chk *checker.Checker, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		log.Info("[server] index refresher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := chk.Reload(ctx); err != nil {
				log.Warnf("[server] term index reload failed, keeping the previous index: %v", err)
			}
		}
	}
}

func createTopic(ctx context.Context, broker, topic string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
