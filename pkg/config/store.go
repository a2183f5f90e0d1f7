package config

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"termcheck/pkg/storage"
	"termcheck/pkg/storage/memdb"
	"termcheck/pkg/storage/mongo"
	"termcheck/pkg/storage/postgres"
	"termcheck/pkg/storage/rediscache"
	"termcheck/pkg/storage/remote"
	"termcheck/pkg/storage/sqlite"
)

const connectTimeout = 10 * time.Second

// OpenStore connects the configured term store, wrapped in the redis cache
// when one is configured. The returned func releases every connection.
func (c *Config) OpenStore(ctx context.Context) (storage.Storage, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var (
		db      storage.Storage
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch c.Storage {
	case StorageMemDB:
		log.Info("[config] using in-memory term store")
		db = memdb.New()

	case StoragePostgres:
		pg, err := postgres.New(ctx, c.Postgres.ConString())
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pg.Close)
		if err := pg.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		if err := pg.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("postgres migration: %w", err)
		}
		log.Infof("[config] connected to postgres: %s", c.Postgres)
		db = pg

	case StorageMongo:
		m, err := mongo.New(ctx, &c.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { m.Close(context.Background()) })
		if err := m.Ping(ctx); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		log.Infof("[config] connected to mongo %s:%s/%s", c.Mongo.Host, c.Mongo.Port, c.Mongo.DBName)
		db = m

	case StorageSQLite:
		s, err := sqlite.Open(c.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { s.Close() })
		log.Infof("[config] using sqlite term store %s", c.SQLite.Path)
		db = s

	case StorageRemote:
		r, err := remote.New(c.Remote)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("[config] using remote term store %s", c.Remote.URL)
		db = r

	default:
		return nil, nil, fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.Redis.Addr != "" {
		client, err := c.Redis.NewClient()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		cache := rediscache.New(client, db, c.Redis.TTL, c.Redis.Prefix)
		closers = append(closers, func() { cache.Close() })
		if err := cache.Ping(ctx); err != nil {
			log.Warnf("[config] redis cache at %s not responding, requests fall through: %v", c.Redis.Addr, err)
		}
		db = cache
	}

	return db, closeAll, nil
}
