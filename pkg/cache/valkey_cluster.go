package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platformbuilds/alertdesk/internal/monitoring"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

type valkeyClusterImpl struct {
	client *redis.ClusterClient
	logger logger.Logger
	ttl    time.Duration
}

func NewValkeyCluster(nodes []string, password string, defaultTTL time.Duration, log logger.Logger) (Cache, error) {
	client := redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        nodes,
		Password:     password,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection to Valkey cluster
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey cluster: %w", err)
	}

	return &valkeyClusterImpl{
		client: client,
		logger: log,
		ttl:    defaultTTL,
	}, nil
}

func (v *valkeyClusterImpl) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := v.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		monitoring.RecordCacheOperation("get", "miss")
		return nil, ErrMiss
	case err != nil:
		monitoring.RecordCacheOperation("get", "error")
		return nil, err
	}
	monitoring.RecordCacheOperation("get", "hit")
	return b, nil
}

func (v *valkeyClusterImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = v.ttl
	}
	err = v.client.Set(ctx, key, data, ttl).Err()
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (v *valkeyClusterImpl) Delete(ctx context.Context, key string) error {
	return v.client.Del(ctx, key).Err()
}

// HealthCheck pings every shard.
func (v *valkeyClusterImpl) HealthCheck(ctx context.Context) error {
	return v.client.ForEachShard(ctx, func(ctx context.Context, shard *redis.Client) error {
		return shard.Ping(ctx).Err()
	})
}
