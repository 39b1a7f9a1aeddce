package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/atmx/options-engine/internal/model"
)

// ErrNoChain is returned when no option chain is listed for a ticker.
var ErrNoChain = fmt.Errorf("%w: no option chain", ErrExternalDataUnavailable)

// ChainLookup lists the contracts traded on an underlying. Providers that
// can browse a chain implement it alongside Provider.
type ChainLookup interface {
	// GetExpirations returns listed expiration dates, earliest first.
	GetExpirations(ctx context.Context, ticker string) ([]time.Time, error)

	// GetStrikes returns the strikes listed for one expiration and type,
	// ascending.
	GetStrikes(ctx context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error)
}

// chainOf returns p's chain lookup, if it has one.
func chainOf(p Provider) (ChainLookup, bool) {
	c, ok := p.(ChainLookup)
	return c, ok
}

func (f *Fallback) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	var errs []error
	for _, p := range []Provider{f.primary, f.secondary} {
		c, ok := chainOf(p)
		if !ok {
			continue
		}
		dates, err := c.GetExpirations(ctx, ticker)
		if err == nil {
			return dates, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoChain
	}
	return nil, errors.Join(errs...)
}

func (f *Fallback) GetStrikes(ctx context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error) {
	var errs []error
	for _, p := range []Provider{f.primary, f.secondary} {
		c, ok := chainOf(p)
		if !ok {
			continue
		}
		strikes, err := c.GetStrikes(ctx, ticker, expiration, typ)
		if err == nil {
			return strikes, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoChain
	}
	return nil, errors.Join(errs...)
}

// --- Passthrough (not cached) ---

func (s *CachedProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	c, ok := chainOf(s.primary)
	if !ok {
		return nil, ErrNoChain
	}
	return c.GetExpirations(ctx, ticker)
}

func (s *CachedProvider) GetStrikes(ctx context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error) {
	c, ok := chainOf(s.primary)
	if !ok {
		return nil, ErrNoChain
	}
	return c.GetStrikes(ctx, ticker, expiration, typ)
}

// sortedUnique sorts xs ascending and drops repeats in place.
func sortedUnique(xs []float64) []float64 {
	slices.Sort(xs)
	return slices.Compact(xs)
}
