package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// autoSwapCache starts on a fallback (the in-memory cache) and keeps dialing
// Valkey in the background. Once a dial succeeds every call is delegated to
// the real client.
type autoSwapCache struct {
	mu       sync.RWMutex
	current  Cache
	swapped  bool
	logger   logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newAutoSwapCache(fallback Cache, log logger.Logger, interval time.Duration, dialReal func() (Cache, error)) *autoSwapCache {
	a := &autoSwapCache{
		current: fallback,
		logger:  log,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				real, err := dialReal()
				if err != nil {
					a.logger.Warn("Valkey connection attempt failed; will retry", "error", err)
					continue
				}
				a.mu.Lock()
				a.current = real
				a.swapped = true
				a.mu.Unlock()
				a.logger.Info("Valkey connection established; switched from in-memory to real cache")
				return
			}
		}
	}()

	return a
}

// Stop stops the background connector.
func (a *autoSwapCache) Stop() { a.stopOnce.Do(func() { close(a.stopCh) }) }

func (a *autoSwapCache) active() Cache {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *autoSwapCache) Swapped() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.swapped
}

func (a *autoSwapCache) Get(ctx context.Context, key string) ([]byte, error) {
	return a.active().Get(ctx, key)
}

func (a *autoSwapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.active().Set(ctx, key, value, ttl)
}

func (a *autoSwapCache) Delete(ctx context.Context, key string) error {
	return a.active().Delete(ctx, key)
}

func (a *autoSwapCache) HealthCheck(ctx context.Context) error {
	return a.active().HealthCheck(ctx)
}

const dialInterval = 5 * time.Second

// NewAutoSwapForSingle upgrades from the in-memory cache to a single-node
// Valkey client when reachable.
func NewAutoSwapForSingle(addr string, db int, password string, ttl time.Duration, log logger.Logger) Cache {
	return newAutoSwapCache(NewNoopValkeyCache(ttl, log), log, dialInterval, func() (Cache, error) {
		return NewValkeySingle(addr, db, password, ttl, log)
	})
}

// NewAutoSwapForCluster upgrades from the in-memory cache to a Valkey cluster
// client when reachable.
func NewAutoSwapForCluster(nodes []string, password string, ttl time.Duration, log logger.Logger) Cache {
	return newAutoSwapCache(NewNoopValkeyCache(ttl, log), log, dialInterval, func() (Cache, error) {
		return NewValkeyCluster(nodes, password, ttl, log)
	})
}

// Connect tries Valkey once and falls back to an auto-swapping in-memory cache.
// A single node address uses the single-node client; more than one uses the
// cluster client.
func Connect(nodes []string, db int, password string, ttl time.Duration, log logger.Logger) Cache {
	if len(nodes) == 0 {
		return NewNoopValkeyCache(ttl, log)
	}
	if len(nodes) == 1 {
		c, err := NewValkeySingle(nodes[0], db, password, ttl, log)
		if err == nil {
			log.Info("Connected to Valkey single-node", "addr", nodes[0])
			return c
		}
		log.Warn("Valkey single-node unreachable at startup", "addr", nodes[0], "error", err)
		return NewAutoSwapForSingle(nodes[0], db, password, ttl, log)
	}
	c, err := NewValkeyCluster(nodes, password, ttl, log)
	if err == nil {
		log.Info("Connected to Valkey cluster", "nodes", nodes)
		return c
	}
	log.Warn("Valkey cluster unreachable at startup", "nodes", nodes, "error", err)
	return NewAutoSwapForCluster(nodes, password, ttl, log)
}
