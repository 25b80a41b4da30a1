package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/platformbuilds/alertdesk/internal/monitoring"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// ErrInMemory is reported by HealthCheck while Valkey is unreachable.
var ErrInMemory = errors.New("valkey unavailable: serving from in-memory cache")

type memEntry struct {
	data    []byte
	expires time.Time
}

// noopValkeyCache is a process-local fallback used when Valkey is unreachable.
// Entries honour their TTL but are not shared across replicas.
type noopValkeyCache struct {
	m      map[string]memEntry
	mu     sync.RWMutex
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

func NewNoopValkeyCache(defaultTTL time.Duration, log logger.Logger) Cache {
	log.Warn("Valkey cache unavailable; using in-memory fallback (noop)")
	return &noopValkeyCache{m: make(map[string]memEntry), ttl: defaultTTL, now: time.Now, logger: log}
}

func (n *noopValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	e, ok := n.m[key]
	n.mu.RUnlock()
	if !ok || (!e.expires.IsZero() && !n.now().Before(e.expires)) {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, ErrMiss
	}
	monitoring.RecordCacheOperation("get", "hit")
	return e.data, nil
}

func (n *noopValkeyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := encodeValue(key, value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = n.ttl
	}
	e := memEntry{data: b}
	if ttl > 0 {
		e.expires = n.now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = e
	n.mu.Unlock()
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (n *noopValkeyCache) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

// HealthCheck always reports degraded operation.
func (n *noopValkeyCache) HealthCheck(ctx context.Context) error { return ErrInMemory }
