package mongo

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/mongo/options"

	"termcheck/pkg/storage"
)

type Config struct {
	Host   string `toml:"host"`
	Port   string `toml:"port"`
	DBName string `toml:"dbName"`
	User   string `toml:"user"`
	Pass   string `toml:"-"`
}

// NewConfig reads the connection parameters from MONGO_* environment variables.
func NewConfig() (*Config, error) {
	conf := &Config{
		Host:   os.Getenv("MONGO_HOST"),
		Port:   os.Getenv("MONGO_PORT"),
		DBName: os.Getenv("MONGO_DB_NAME"),
		User:   os.Getenv("MONGO_USER"),
		Pass:   os.Getenv("MONGO_PASS"),
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

// Validate reports the first missing mandatory parameter.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return fmt.Errorf("%w: MONGO_HOST", storage.ErrConfParamMissing)
	case c.Port == "":
		return fmt.Errorf("%w: MONGO_PORT", storage.ErrConfParamMissing)
	case c.DBName == "":
		return fmt.Errorf("%w: MONGO_DB_NAME", storage.ErrConfParamMissing)
	}
	return nil
}

func (c *Config) conString() string {
	if c.User != "" && c.Pass != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/", c.User, c.Pass, c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s/", c.Host, c.Port)
}

func (c *Config) Options() *options.ClientOptions {
	return options.Client().ApplyURI(c.conString())
}
