// Package rediscache provides a caching decorator for market.Provider.
//
// Upstream market APIs are aggressively rate limited, so responses are stored
// as JSON under a namespaced key for a short TTL. Cache failures never fail a
// request: a broken cache degrades to a pass-through.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is used when New is given a non-positive TTL.
const DefaultTTL = 30 * time.Second

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("rediscache: miss")

// Store is the minimal key/value contract the decorator needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	Client *redis.Client
}

// Get implements Store.
func (s RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Set implements Store.
func (s RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

var _ market.Provider = (*Provider)(nil)

// Provider wraps another market.Provider with a read-through cache.
type Provider struct {
	next   market.Provider
	store  Store
	ttl    time.Duration
	prefix string
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithPrefix sets the key namespace. Defaults to "bit10:market:".
func WithPrefix(prefix string) Option {
	return func(p *Provider) {
		p.prefix = prefix
	}
}

// New wraps next with a cache backed by store.
func New(next market.Provider, store Store, ttl time.Duration, opts ...Option) *Provider {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	p := &Provider{next: next, store: store, ttl: ttl, prefix: "bit10:market:"}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Markets implements market.Provider.
func (p *Provider) Markets(ctx context.Context, limit int) ([]market.Asset, error) {
	return cached(ctx, p, "markets:"+strconv.Itoa(limit), func() ([]market.Asset, error) {
		return p.next.Markets(ctx, limit)
	})
}

// Coin implements market.Provider.
func (p *Provider) Coin(ctx context.Context, id string) (market.Asset, error) {
	return cached(ctx, p, "coin:"+id, func() (market.Asset, error) {
		return p.next.Coin(ctx, id)
	})
}

// SimplePrice implements market.Provider. The key is order-independent in ids.
func (p *Provider) SimplePrice(ctx context.Context, ids []string) (map[string]market.Quote, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return cached(ctx, p, "simple:"+strings.Join(sorted, ","), func() (map[string]market.Quote, error) {
		return p.next.SimplePrice(ctx, ids)
	})
}

func cached[T any](ctx context.Context, p *Provider, key string, fetch func() (T, error)) (T, error) {
	key = p.prefix + key
	if b, err := p.store.Get(ctx, key); err == nil {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			return v, nil
		}
		slog.Warn("rediscache: discarding undecodable entry", "key", key)
	} else if !errors.Is(err, ErrMiss) {
		slog.Warn("rediscache: get failed", "key", key, "err", err)
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("rediscache: encode %s: %w", key, err)
	}
	if err := p.store.Set(ctx, key, b, p.ttl); err != nil {
		slog.Warn("rediscache: set failed", "key", key, "err", err)
	}
	return v, nil
}
