package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/bit10voice/pkg/market"
	marketmock "github.com/MrWong99/bit10voice/pkg/market/mock"
)

func TestMarketFallback_Markets(t *testing.T) {
	t.Parallel()

	primary := &marketmock.Provider{MarketsErr: errors.New("429 too many requests")}
	secondary := &marketmock.Provider{MarketsResult: []market.Asset{{ID: "bitcoin"}}}
	fb := NewMarketFallback(primary, "coingecko", FallbackConfig{})
	fb.AddFallback("coingecko-pro", secondary)

	assets, err := fb.Markets(context.Background(), 10)
	if err != nil {
		t.Fatalf("Markets: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "bitcoin" {
		t.Errorf("assets = %+v", assets)
	}
}

func TestMarketFallback_NotFoundIsAuthoritative(t *testing.T) {
	t.Parallel()

	primary := &marketmock.Provider{}
	secondary := &marketmock.Provider{CoinResult: map[string]market.Asset{"dogecoin": {ID: "dogecoin"}}}
	fb := NewMarketFallback(primary, "coingecko", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fb.AddFallback("coingecko-pro", secondary)

	for range 3 {
		if _, err := fb.Coin(context.Background(), "dogecoin"); !errors.Is(err, market.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if len(secondary.CoinCalls) != 0 {
		t.Errorf("secondary consulted %d times, want 0", len(secondary.CoinCalls))
	}
	if got := fb.States()["coingecko"]; got != StateClosed {
		t.Errorf("primary state = %v, want closed", got)
	}
}

func TestMarketFallback_SimplePrice(t *testing.T) {
	t.Parallel()

	primary := &marketmock.Provider{SimplePriceResult: map[string]market.Quote{"bitcoin": {Change24h: 2.34}}}
	fb := NewMarketFallback(primary, "coingecko", FallbackConfig{})
	q, err := fb.SimplePrice(context.Background(), []string{"bitcoin", "ethereum"})
	if err != nil {
		t.Fatalf("SimplePrice: %v", err)
	}
	if len(q) != 1 || q["bitcoin"].Change24h != 2.34 {
		t.Errorf("quotes = %+v", q)
	}
}
