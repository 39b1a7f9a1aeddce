package provider

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

// MemoryProvider holds manually entered quotes and positions. Used for
// testing and when no broker is configured.
type MemoryProvider struct {
	mu        sync.RWMutex
	quotes    map[string]model.Quote
	positions []contract.Raw
	listings  map[string]map[listingKey][]float64 // ticker → (expiry, type) → strikes
}

type listingKey struct {
	expiration string // YYYY-MM-DD
	typ        model.OptionType
}

// NewMemoryProvider creates an empty in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		quotes:   make(map[string]model.Quote),
		listings: make(map[string]map[listingKey][]float64),
	}
}

// SetQuote records the quote for q.Ticker, replacing any earlier one.
func (m *MemoryProvider) SetQuote(q model.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q.Source == "" {
		q.Source = "manual"
	}
	m.quotes[strings.ToUpper(q.Ticker)] = q
}

// AddPosition appends an open position.
func (m *MemoryProvider) AddPosition(raw contract.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.positions = append(m.positions, raw)
}

func (m *MemoryProvider) GetQuote(_ context.Context, ticker string) (model.Quote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quotes[strings.ToUpper(ticker)]
	if !ok {
		return model.Quote{}, ErrNoQuote
	}
	return q, nil
}

func (m *MemoryProvider) GetOpenPositions(_ context.Context) ([]contract.Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid external mutation.
	out := make([]contract.Raw, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

// AddListing records strikes listed for ticker at one expiration and type.
func (m *MemoryProvider) AddListing(ticker string, expiration time.Time, typ model.OptionType, strikes ...float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ticker = strings.ToUpper(ticker)
	if m.listings[ticker] == nil {
		m.listings[ticker] = make(map[listingKey][]float64)
	}
	k := listingKey{expiration: expiration.Format("2006-01-02"), typ: typ}
	m.listings[ticker][k] = sortedUnique(append(m.listings[ticker][k], strikes...))
}

func (m *MemoryProvider) GetExpirations(_ context.Context, ticker string) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listed, ok := m.listings[strings.ToUpper(ticker)]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoChain, ticker)
	}
	seen := make(map[string]bool)
	var dates []time.Time
	for k := range listed {
		if seen[k.expiration] {
			continue
		}
		seen[k.expiration] = true
		d, _ := time.Parse("2006-01-02", k.expiration)
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates, nil
}

func (m *MemoryProvider) GetStrikes(_ context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	strikes, ok := m.listings[strings.ToUpper(ticker)][listingKey{expiration: expiration.Format("2006-01-02"), typ: typ}]
	if !ok {
		return nil, fmt.Errorf("%w for %s %s %s", ErrNoChain, ticker, expiration.Format("2006-01-02"), typ)
	}
	return slices.Clone(strikes), nil
}
