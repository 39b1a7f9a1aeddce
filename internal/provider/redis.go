package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

// CachedProvider wraps a primary Provider with a Redis read-through quote
// cache. Position snapshots are never cached: each request asks the broker
// for a fresh one.
type CachedProvider struct {
	primary Provider
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedProvider creates a cached wrapper around a primary provider.
func NewCachedProvider(primary Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedProvider) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	key := quoteKey(ticker)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var q model.Quote
		if json.Unmarshal(data, &q) == nil {
			return q, nil
		}
	}

	// Cache miss: read from primary.
	q, err := s.primary.GetQuote(ctx, ticker)
	if err != nil {
		return model.Quote{}, err
	}

	if data, err := json.Marshal(q); err == nil {
		if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			slog.Warn("quote cache write failed", "ticker", ticker, "err", err)
		}
	}
	return q, nil
}

// --- Passthrough (not cached) ---

func (s *CachedProvider) GetOpenPositions(ctx context.Context) ([]contract.Raw, error) {
	return s.primary.GetOpenPositions(ctx)
}

func quoteKey(ticker string) string { return fmt.Sprintf("quote:%s", strings.ToUpper(ticker)) }
