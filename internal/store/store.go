// Package store holds the process-wide application state: market assets and
// their summary, the user's portfolio holdings, the voice session flags and
// the conversation log.
//
// State is published as immutable [Snapshot] values. Mutators derive a new
// snapshot from the current one under a mutex and notify subscribers; readers
// never observe a partially applied update.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/bit10voice/internal/observe"
	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/pkg/market"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNoAssets is recorded by [Store.Refresh] when the market source returned
// nothing.
var ErrNoAssets = errors.New("store: market source returned no assets")

// DefaultRefreshInterval is the period of [Store.Run] unless configured.
const DefaultRefreshInterval = time.Minute

// MarketSource lists the top assets. *marketdata.Client satisfies it.
type MarketSource interface {
	TopAssets(ctx context.Context, limit int) []market.Asset
}

// FallbackReporter is a [MarketSource] that can tell whether a listing is
// substitute data rather than live prices. *marketdata.Client satisfies it.
type FallbackReporter interface {
	FetchTopAssets(ctx context.Context, limit int) (assets []market.Asset, fallback bool)
}

// HoldingInput is a holding as entered by the user. Name and Icon are
// optional and derived from the matching asset when empty. Amount is
// nullable so that an omitted amount can be told apart from an explicit 0.
type HoldingInput struct {
	Symbol        string              `json:"symbol"`
	Name          string              `json:"name,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	PurchasePrice decimal.Decimal     `json:"purchase_price"`
	Icon          string              `json:"icon,omitempty"`
}

// Option configures a [Store].
type Option func(*Store)

// WithAggregator sets how the market summary is derived. Default:
// [market.PlaceholderAggregator].
func WithAggregator(a market.Aggregator) Option {
	return func(s *Store) { s.agg = a }
}

// WithLimit sets how many assets a refresh requests. Default: 10.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithRefreshInterval sets the period of [Store.Run]. Default: 60s.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.interval.Store(int64(d))
		}
	}
}

// WithMetrics records the holdings count on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the application state container. All methods are safe for
// concurrent use.
type Store struct {
	market  MarketSource
	agg     market.Aggregator
	limit   int
	metrics *observe.Metrics
	now     func() time.Time

	interval atomic.Int64
	retick   chan struct{}

	// refreshMu serialises refreshes so an older fetch never overwrites a
	// newer one.
	refreshMu sync.Mutex

	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan Snapshot
	nextID int
}

// New returns an empty Store that refreshes from src.
func New(src MarketSource, opts ...Option) *Store {
	s := &Store{
		market: src,
		agg:    market.PlaceholderAggregator{},
		limit:  10,
		now:    time.Now,
		subs:   make(map[int]chan Snapshot),
		retick: make(chan struct{}, 1),
	}
	s.interval.Store(int64(DefaultRefreshInterval))
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Valuation implements the interpreter's portfolio source over the current
// snapshot.
func (s *Store) Valuation() (portfolio.Valuation, bool) {
	return s.Snapshot().Valuation()
}

// Subscribe returns a channel that receives every snapshot published after
// the call, starting with the current one. A slow subscriber only sees the
// latest snapshot. cancel closes the channel and is idempotent.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.snap
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// update applies fn to the current snapshot and publishes the result.
func (s *Store) update(fn func(Snapshot) Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = fn(s.snap)
	for _, ch := range s.subs {
		publish(ch, s.snap)
	}
	return s.snap
}

// publish replaces any undelivered snapshot in ch with snap. Only update
// sends on subscriber channels, and it holds the lock, so the drain and the
// send cannot race with another sender.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// AddHolding validates in and appends it as a new holding. It declines,
// returning false, when the symbol is empty, the amount is missing or
// negative, or the purchase price is not positive. A zero amount is kept.
func (s *Store) AddHolding(in HoldingInput) (portfolio.Holding, bool) {
	symbol := strings.ToLower(strings.TrimSpace(in.Symbol))
	if symbol == "" || !in.Amount.Valid || in.Amount.Decimal.IsNegative() || !in.PurchasePrice.IsPositive() {
		return portfolio.Holding{}, false
	}

	var h portfolio.Holding
	snap := s.update(func(snap Snapshot) Snapshot {
		h = portfolio.Holding{
			ID:            uuid.NewString(),
			Symbol:        symbol,
			Name:          strings.TrimSpace(in.Name),
			Amount:        in.Amount.Decimal,
			PurchasePrice: in.PurchasePrice,
			Icon:          in.Icon,
			AddedAt:       s.now(),
		}
		if a, ok := portfolio.FindAsset(snap.Assets, symbol); ok {
			if h.Name == "" {
				h.Name = a.Name
			}
			if h.Icon == "" {
				h.Icon = a.Image
			}
		}
		if h.Name == "" {
			h.Name = strings.ToUpper(symbol)
		}
		return withHolding(snap, h)
	})
	s.recordHoldings(len(snap.Holdings))
	return h, true
}

// RemoveHolding deletes the holding with the given id. It reports whether a
// holding was removed; an unknown id leaves the state untouched.
func (s *Store) RemoveHolding(id string) bool {
	s.mu.Lock()
	_, ok := s.snap.Holding(id)
	s.mu.Unlock()
	if !ok {
		return false
	}

	removed := false
	snap := s.update(func(snap Snapshot) Snapshot {
		snap, removed = withoutHolding(snap, id)
		return snap
	})
	s.recordHoldings(len(snap.Holdings))
	return removed
}

// UpdateVoice merges p into the voice state.
func (s *Store) UpdateVoice(p VoicePatch) Voice {
	return s.update(func(snap Snapshot) Snapshot { return withVoice(snap, p) }).Voice
}

// AppendTurn adds one entry to the conversation log.
func (s *Store) AppendTurn(role Role, text string) Turn {
	t := Turn{ID: uuid.NewString(), Role: role, Text: text, At: s.now()}
	s.update(func(snap Snapshot) Snapshot { return withTurn(snap, t) })
	return t
}

// Refresh fetches the top assets and recomputes the summary. Loading is set
// for the duration of the call. On failure the error is recorded and the
// previous assets and summary are kept.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.update(func(snap Snapshot) Snapshot {
		snap.Loading = true
		return snap
	})

	var (
		assets   []market.Asset
		fallback bool
	)
	if fr, ok := s.market.(FallbackReporter); ok {
		assets, fallback = fr.FetchTopAssets(ctx, s.limit)
	} else {
		assets = s.market.TopAssets(ctx, s.limit)
	}
	err := ctx.Err()
	if err == nil && len(assets) == 0 {
		err = ErrNoAssets
	}
	if err != nil {
		s.update(func(snap Snapshot) Snapshot { return withFailure(snap, err) })
		observe.Logger(ctx).Warn("store: refresh failed, keeping previous market data", "err", err)
		return fmt.Errorf("store: refresh: %w", err)
	}

	summary := s.agg.Aggregate(assets)
	s.update(func(snap Snapshot) Snapshot { return withMarket(snap, assets, summary, fallback, s.now()) })
	observe.Logger(ctx).Debug("store: market data refreshed", "assets", len(assets), "fallback", fallback)
	return nil
}

// SetRefreshInterval changes the period used by [Store.Run]. Non-positive
// values are ignored. A running loop picks up the change immediately.
func (s *Store) SetRefreshInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.interval.Store(int64(d))
	select {
	case s.retick <- struct{}{}:
	default:
	}
}

// RefreshInterval returns the period used by [Store.Run].
func (s *Store) RefreshInterval() time.Duration {
	return time.Duration(s.interval.Load())
}

// Run refreshes immediately and then every refresh interval until ctx is
// done. Refresh failures are logged, not returned.
func (s *Store) Run(ctx context.Context) error {
	_ = s.Refresh(ctx)
	ticker := time.NewTicker(s.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.retick:
			ticker.Reset(s.RefreshInterval())
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *Store) recordHoldings(n int) {
	if s.metrics != nil {
		s.metrics.Holdings.Record(context.Background(), int64(n))
	}
}
