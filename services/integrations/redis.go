package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/upb/agency-backoffice/models"
)

const redisKeyPrefix = "integrations:"

// RedisTier shares tenant settings between API instances
type RedisTier struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTier creates a shared cache tier over an existing client
func NewRedisTier(client *redis.Client, ttl time.Duration) *RedisTier {
	return &RedisTier{client: client, ttl: ttl}
}

// Dial connects to Redis and verifies the connection
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func redisKey(orgID uuid.UUID) string {
	return redisKeyPrefix + orgID.String()
}

// Get reads a tenant's settings and how long the key has left to live;
// found is false on a miss. remaining is zero when the key has no expiry.
func (r *RedisTier) Get(ctx context.Context, orgID uuid.UUID) (settings models.IntegrationSettings, remaining time.Duration, found bool, err error) {
	key := redisKey(orgID)
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return settings, 0, false, fmt.Errorf("redis get failed: %w", err)
	}

	raw, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return settings, 0, false, nil
	}
	if err != nil {
		return settings, 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return settings, 0, false, fmt.Errorf("failed to decode cached settings: %w", err)
	}
	if d := ttl.Val(); d > 0 {
		remaining = d
	}
	return settings, remaining, true, nil
}

// Set stores a tenant's settings with the tier TTL
func (r *RedisTier) Set(ctx context.Context, orgID uuid.UUID, settings models.IntegrationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(orgID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete drops a tenant's cached settings
func (r *RedisTier) Delete(ctx context.Context, orgID uuid.UUID) error {
	if err := r.client.Del(ctx, redisKey(orgID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
