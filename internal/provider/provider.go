// Package provider defines the market data and position feeds consumed by
// callers of the engine. Implementations include a broker REST client, a
// PostgreSQL snapshot of a broker feed, a Redis read-through cache, and an
// in-memory provider for manual entry and testing.
//
// The engine never depends on where values came from: a failed lookup is
// reported as ErrExternalDataUnavailable and the caller substitutes manually
// entered parameters.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

var (
	// ErrExternalDataUnavailable wraps every lookup failure.
	ErrExternalDataUnavailable = errors.New("provider: external data unavailable")

	// ErrNoQuote is returned when the provider has no quote for a ticker.
	ErrNoQuote = fmt.Errorf("%w: no quote", ErrExternalDataUnavailable)
)

// Provider is the data-fetch capability an analytics caller selects.
type Provider interface {
	// GetQuote returns the latest spot and implied volatility for ticker.
	GetQuote(ctx context.Context, ticker string) (model.Quote, error)

	// GetOpenPositions returns a one-shot snapshot of open option positions
	// as unvalidated contract input.
	GetOpenPositions(ctx context.Context) ([]contract.Raw, error)
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrExternalDataUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrExternalDataUnavailable, op, err)
}

// Fallback tries primary first and secondary when primary fails.
type Fallback struct {
	primary, secondary Provider
}

// NewFallback chains two providers.
func NewFallback(primary, secondary Provider) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	q, err := f.primary.GetQuote(ctx, ticker)
	if err == nil {
		return q, nil
	}
	q, err2 := f.secondary.GetQuote(ctx, ticker)
	if err2 != nil {
		return model.Quote{}, errors.Join(err, err2)
	}
	return q, nil
}

func (f *Fallback) GetOpenPositions(ctx context.Context) ([]contract.Raw, error) {
	ps, err := f.primary.GetOpenPositions(ctx)
	if err == nil {
		return ps, nil
	}
	ps, err2 := f.secondary.GetOpenPositions(ctx)
	if err2 != nil {
		return nil, errors.Join(err, err2)
	}
	return ps, nil
}
