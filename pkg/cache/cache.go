package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores upstream responses. Implementations: single-node Valkey,
// Valkey cluster, an in-process map, and an auto-swapping wrapper that starts
// on the in-process map and upgrades once Valkey answers.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

func encodeValue(key string, value interface{}) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		return b, nil
	}
}
