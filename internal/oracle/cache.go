package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/thereayou/link/internal/cache"
	"github.com/thereayou/link/internal/matching"
	"go.uber.org/zap"
)

// Cached кэширует теги: для одного и того же события модель отвечает одинаково.
// Ранжирование и слоты зависят от меняющихся данных и не кэшируются.
type Cached struct {
	matching.Oracle
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCached(inner matching.Oracle, c *cache.Cache, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{Oracle: inner, cache: c, ttl: ttl, log: log}
}

func tagKey(req matching.TagRequest) string {
	h := sha256.New()
	h.Write([]byte(req.Title))
	h.Write([]byte{0})
	h.Write([]byte(req.Description))
	h.Write([]byte{0})
	h.Write([]byte(req.Type))
	return "oracle:tags:" + hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) SuggestTags(ctx context.Context, req matching.TagRequest) ([]string, error) {
	key := tagKey(req)

	var tags []string
	found, err := c.cache.GetJSON(ctx, key, &tags)
	if err != nil {
		c.log.Warn("tag cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		return tags, nil
	}

	tags, err = c.Oracle.SuggestTags(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := c.cache.SetJSON(ctx, key, tags, c.ttl); err != nil {
			c.log.Warn("tag cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return tags, nil
}

var _ matching.Oracle = (*Cached)(nil)
