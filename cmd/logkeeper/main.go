package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/logkeeper"
)

type Config struct {
	LogLevel     string   `toml:"logLevel"`
	KafkaBrokers []string `toml:"kafkaBrokers"`
	KafkaTopic   string   `toml:"kafkaTopic"`
	KafkaGroupID string   `toml:"kafkaGroupID"`

	ElasticSearchIndex string   `toml:"elasticSearchIndex"`
	ElasticSearchNodes []string `toml:"elasticSearchNodes"`

	NumWorkers int `toml:"numWorkers"`
}

func main() {
	var (
		configPath string
		logLevel   string
	)

	flag.StringVar(&configPath, "config", "cmd/logkeeper/config.toml", "Path to TOML config file")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.Parse()

	cfg := Config{LogLevel: "info", NumWorkers: 4}
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[logkeeper] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("[logkeeper] shutting down gracefully...")
		cancel()
	}()

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: cfg.ElasticSearchNodes})
	if err != nil {
		log.Fatalf("[logkeeper] error creating the client: %s", err)
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	defer r.Close()

	if err := logkeeper.New(es, cfg.ElasticSearchIndex, cfg.NumWorkers).Run(ctx, r); err != nil {
		log.Errorf("[logkeeper] %v", err)
	}
}
