package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"testengine/backend/config"
	"testengine/backend/services/testsession"
)

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// AvailabilitySource reloads the flags that decide whether a test can be
// started, so a cached definition never outlives an unpublish.
type AvailabilitySource interface {
	RefreshAvailability(ctx context.Context, def *testsession.TestDefinition) error
}

// CachedDefinitions is a read-through cache in front of a DefinitionStore.
// Redis failures degrade to the underlying store; they never fail a read.
// Cached entries get their availability flags refreshed from next when it
// implements AvailabilitySource.
type CachedDefinitions struct {
	next   testsession.DefinitionStore
	flags  AvailabilitySource
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewCachedDefinitions(next testsession.DefinitionStore, client *redis.Client, ttl time.Duration, logger *log.Logger) *CachedDefinitions {
	c := &CachedDefinitions{next: next, client: client, ttl: ttl, logger: logger}
	if flags, ok := next.(AvailabilitySource); ok {
		c.flags = flags
	}
	return c
}

func definitionKey(testID uint) string {
	return fmt.Sprintf("testengine:definition:%d", testID)
}

func (c *CachedDefinitions) GetTestDefinition(ctx context.Context, testID uint) (*testsession.TestDefinition, error) {
	key := definitionKey(testID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var def testsession.TestDefinition
		if err := sonic.Unmarshal(raw, &def); err == nil {
			return c.revalidate(ctx, &def)
		}
		c.logger.Printf("definition cache: corrupt entry %s, reloading", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Printf("definition cache: get %s: %v", key, err)
	}

	def, err := c.next.GetTestDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}

	if payload, err := sonic.Marshal(def); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Printf("definition cache: set %s: %v", key, err)
		}
	}
	return def, nil
}

// revalidate applies the stored availability flags to a cached definition.
// A test that no longer exists is dropped from the cache.
func (c *CachedDefinitions) revalidate(ctx context.Context, def *testsession.TestDefinition) (*testsession.TestDefinition, error) {
	if c.flags == nil {
		return def, nil
	}
	err := c.flags.RefreshAvailability(ctx, def)
	switch {
	case err == nil:
		return def, nil
	case errors.Is(err, testsession.ErrTestNotFound):
		if err := c.Invalidate(ctx, def.ID); err != nil {
			c.logger.Printf("definition cache: drop %s: %v", definitionKey(def.ID), err)
		}
		return nil, err
	default:
		return nil, err
	}
}

// Invalidate drops the cached definition, for use after catalogue edits.
func (c *CachedDefinitions) Invalidate(ctx context.Context, testID uint) error {
	return c.client.Del(ctx, definitionKey(testID)).Err()
}
