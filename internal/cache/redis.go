// Package cache - обертка над redis, которая без redis работает как локальный кэш в памяти.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const blacklistPrefix = "blacklist:"

type Cache struct {
	client *redis.Client
	log    *zap.Logger

	// local используется, когда redis не настроен или недоступен при старте
	mu    sync.Mutex
	local map[string]localEntry

	warnedUnavailable atomic.Bool
}

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// New подключается к redis по URL. Пустой URL или неудачный ping дают локальный кэш.
func New(ctx context.Context, url string, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Cache{log: log, local: make(map[string]localEntry)}
	if url == "" {
		return c
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid REDIS_URL, using in-process cache", zap.Error(err))
		return c
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unavailable, using in-process cache", zap.Error(err))
		_ = client.Close()
		return c
	}

	c.client = client
	return c
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(client *redis.Client, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{client: client, log: log, local: make(map[string]localEntry)}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) warnUnavailableOnce(err error) {
	if c.warnedUnavailable.CompareAndSwap(false, true) {
		c.log.Warn("redis request failed", zap.Error(err))
	}
}

// Blacklist запрещает токен до истечения ttl.
func (c *Cache) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.set(ctx, blacklistPrefix+token, []byte("1"), ttl)
}

// IsBlacklisted возвращает ошибку, если redis не ответил; вызывающий решает, пропускать ли токен.
func (c *Cache) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := blacklistPrefix + token
	if !c.Enabled() {
		_, ok := c.getLocal(key)
		return ok, nil
	}
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.warnUnavailableOnce(err)
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return n > 0, nil
}

// GetJSON читает и декодирует значение. found=false, если ключа нет.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	var raw []byte
	if !c.Enabled() {
		v, ok := c.getLocal(key)
		if !ok {
			return false, nil
		}
		raw = v
	} else {
		b, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, nil
			}
			c.warnUnavailableOnce(err)
			return false, err
		}
		raw = b
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.set(ctx, key, b, ttl)
}

func (c *Cache) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if !c.Enabled() {
		c.mu.Lock()
		c.local[key] = localEntry{value: value, expiresAt: time.Now().Add(ttl)}
		c.mu.Unlock()
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.warnUnavailableOnce(err)
		return err
	}
	return nil
}

func (c *Cache) getLocal(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.local[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.local, key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
