// Package cache provides Redis-backed caching for the scope selector's
// club list. The cache degrades gracefully: with Redis unavailable every
// lookup is a miss and the console falls through to the club registry.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"license-console-service/internal/models"
)

// ClubCache caches the per-tenant club list in Redis
type ClubCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClubCache creates a new club cache instance
func NewClubCache(host string, port int, password string, db int, ttlSeconds int) (*ClubCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Return cache with nil client - will gracefully degrade to no caching
		return &ClubCache{
			client: nil,
			ttl:    time.Duration(ttlSeconds) * time.Second,
		}, nil
	}

	return &ClubCache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
	}, nil
}

func (c *ClubCache) cacheKey(tenantID string) string {
	return fmt.Sprintf("clubs:%s", tenantID)
}

// Get retrieves the cached club list for a tenant; a nil slice means miss
func (c *ClubCache) Get(ctx context.Context, tenantID string) ([]models.ClubInfo, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, c.cacheKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var clubs []models.ClubInfo
	if err := json.Unmarshal(data, &clubs); err != nil {
		return nil, err
	}

	return clubs, nil
}

// Set caches the club list for a tenant
func (c *ClubCache) Set(ctx context.Context, tenantID string, clubs []models.ClubInfo) error {
	if c.client == nil {
		return nil
	}

	data, err := json.Marshal(clubs)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, c.cacheKey(tenantID), data, c.ttl).Err()
}

// Invalidate removes a tenant's cached club list
func (c *ClubCache) Invalidate(ctx context.Context, tenantID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.cacheKey(tenantID)).Err()
}

// Close closes the Redis connection
func (c *ClubCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// IsAvailable returns true if the cache is available
func (c *ClubCache) IsAvailable() bool {
	return c.client != nil
}
