package main

import (
	"context"
	"flag"

	log "github.com/sirupsen/logrus"

	"termcheck/pkg/config"
	"termcheck/pkg/importer"
)

func main() {
	var (
		configPath  string
		storageKind string
		dataPath    string
		logLevel    string
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&storageKind, "storage", "", "Term store: postgres, mongo, sqlite, remote.")
	flag.StringVar(&dataPath, "data", "", "Path to the JSON term data file.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("[importer] %v", err)
	}

	if storageKind != "" {
		cfg.Storage = storageKind
	}
	if dataPath != "" {
		cfg.SeedPath = dataPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[importer] invalid config: %v", err)
	}
	cfg.SetLogLevel()

	if cfg.SeedPath == "" {
		log.Fatal("[importer] no data file given, use -data")
	}
	if cfg.Storage == config.StorageMemDB {
		log.Warn("[importer] importing into the in-memory store, terms are lost on exit")
	}

	ctx := context.Background()
	db, closeDB, err := cfg.OpenStore(ctx)
	if err != nil {
		log.Fatalf("[importer] failed to open term store: %v", err)
	}
	defer closeDB()

	res, err := importer.Import(ctx, cfg.SeedPath, db)
	if err != nil {
		log.Errorf("[importer] %v", err)
		return
	}
	log.Infof("[importer] done: %d terms written to %s", len(res.Terms), cfg.Storage)
}
