// Package config holds the settings shared by the termcheck server and importer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/checker"
	"termcheck/pkg/storage"
	"termcheck/pkg/storage/mongo"
	"termcheck/pkg/storage/postgres"
	"termcheck/pkg/storage/rediscache"
	"termcheck/pkg/storage/remote"
)

const (
	StorageMemDB    = "memdb"
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageSQLite   = "sqlite"
	StorageRemote   = "remote"
)

type Config struct {
	ServiceName     string        `toml:"serviceName"`
	HTTPAddr        string        `toml:"httpAddr"`
	LogLevel        string        `toml:"logLevel"`
	Storage         string        `toml:"storage"`
	SeedPath        string        `toml:"seedPath"`
	Languages       []string      `toml:"languages"`
	FuzzyCutoff     float64       `toml:"fuzzyCutoff"`
	DisableFuzzy    bool          `toml:"disableFuzzy"`
	RefreshInterval time.Duration `toml:"refreshInterval"`

	Postgres postgres.Config   `toml:"postgres"`
	Mongo    mongo.Config      `toml:"mongo"`
	SQLite   SQLiteConfig      `toml:"sqlite"`
	Redis    rediscache.Config `toml:"redis"`
	Kafka    KafkaConfig       `toml:"kafka"`
	Remote   remote.Config     `toml:"remote"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

type KafkaConfig struct {
	Addr  string `toml:"addr"`
	Topic string `toml:"topic"`
	Batch int    `toml:"batch"`
}

func Default() Config {
	return Config{
		ServiceName:     "termcheck",
		HTTPAddr:        ":8077",
		LogLevel:        "info",
		Storage:         StorageMemDB,
		Languages:       []string{string(checker.English), string(checker.German)},
		FuzzyCutoff:     checker.DefaultFuzzyCutoff,
		RefreshInterval: 5 * time.Minute,
	}
}

// Load decodes the TOML file at path over the defaults. Database secrets are
// taken from the environment, never from the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	cfg.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	cfg.Mongo.Pass = os.Getenv("MONGO_PASS")

	return cfg, nil
}

// Validate reports the first invalid or missing parameter.
func (c *Config) Validate() error {
	if !strings.Contains(c.HTTPAddr, ":") {
		return fmt.Errorf("%w: httpAddr must be in the form 'host:port', got %q", storage.ErrConfParamMissing, c.HTTPAddr)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.FuzzyCutoff < 0 || c.FuzzyCutoff > 1 {
		return fmt.Errorf("fuzzyCutoff must be within [0, 1], got %v", c.FuzzyCutoff)
	}
	for _, l := range c.Languages {
		if _, err := checker.ParseLanguage(l); err != nil {
			return err
		}
	}
	if c.Kafka.Addr != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("%w: kafka.topic", storage.ErrConfParamMissing)
	}

	switch c.Storage {
	case StorageMemDB:
	case StoragePostgres:
		if !c.Postgres.IsValid() {
			return fmt.Errorf("%w: invalid postgres config: %s", storage.ErrConfParamMissing, c.Postgres)
		}
	case StorageMongo:
		return c.Mongo.Validate()
	case StorageSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%w: sqlite.path", storage.ErrConfParamMissing)
		}
	case StorageRemote:
		if c.Remote.URL == "" {
			return fmt.Errorf("%w: remote.url", storage.ErrConfParamMissing)
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	return nil
}

// CheckerOptions returns the checker settings of the config.
func (c *Config) CheckerOptions() checker.Options {
	return checker.Options{
		Languages:    c.Languages,
		FuzzyCutoff:  c.FuzzyCutoff,
		DisableFuzzy: c.DisableFuzzy,
	}
}

// SetLogLevel applies the configured level to the standard logger.
func (c *Config) SetLogLevel() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("[config] unknown log level %q, keeping %s", c.LogLevel, log.GetLevel())
		return
	}
	log.SetLevel(level)
}
