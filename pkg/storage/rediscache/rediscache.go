// Package rediscache decorates a term store with a redis read-through cache of
// the per-language term lists the checker reloads from.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const DefaultTTL = 10 * time.Minute

type Config struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"-"`
	DB       int           `toml:"db"`
	TTL      time.Duration `toml:"ttl"`
	Prefix   string        `toml:"prefix"`
}

// NewClient builds a redis client from the config. The password is read from
// REDIS_PASSWORD when not set.
func (c *Config) NewClient() (*redis.Client, error) {
	if c.Addr == "" {
		return nil, fmt.Errorf("%w: redis addr", storage.ErrConfParamMissing)
	}
	if c.Password == "" {
		c.Password = os.Getenv("REDIS_PASSWORD")
	}

	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}), nil
}

type Cache struct {
	client *redis.Client
	next   storage.Storage
	ttl    time.Duration
	prefix string
}

func New(client *redis.Client, next storage.Storage, ttl time.Duration, prefix string) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, next: next, ttl: ttl, prefix: prefix}
}

func (c *Cache) key(language string) string {
	return c.prefix + "terms:" + language
}

// Terms serves the language's term list from redis, falling back to the
// wrapped store on a miss. Redis failures are logged and never fail the call.
func (c *Cache) Terms(ctx context.Context, language string) ([]models.Term, error) {
	key := c.key(language)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var terms []models.Term
		if err := json.Unmarshal(raw, &terms); err == nil {
			log.Debugf("[rediscache] hit %s (%d terms)", key, len(terms))
			return terms, nil
		}
		log.Warnf("[rediscache] dropping undecodable entry %s", key)
	case errors.Is(err, redis.Nil):
	default:
		log.Warnf("[rediscache] get %s: %v", key, err)
	}

	terms, err := c.next.Terms(ctx, language)
	if err != nil {
		return nil, err
	}

	raw, err = json.Marshal(terms)
	if err != nil {
		return terms, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warnf("[rediscache] set %s: %v", key, err)
	}

	return terms, nil
}

func (c *Cache) Term(ctx context.Context, id uuid.UUID) (models.Term, error) {
	return c.next.Term(ctx, id)
}

func (c *Cache) Alternatives(ctx context.Context, id uuid.UUID) ([]models.Term, error) {
	return c.next.Alternatives(ctx, id)
}

// AddTerms writes through to the wrapped store and invalidates the cached
// lists of every language touched.
func (c *Cache) AddTerms(ctx context.Context, terms []models.Term) error {
	if err := c.next.AddTerms(ctx, terms); err != nil {
		return err
	}

	seen := make(map[string]bool)
	keys := make([]string, 0, 2)
	for _, t := range terms {
		if !seen[t.Language] {
			seen[t.Language] = true
			keys = append(keys, c.key(t.Language))
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warnf("[rediscache] invalidate %v: %v", keys, err)
	}

	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
