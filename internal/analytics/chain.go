package analytics

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/metrics"
	"github.com/atmx/options-engine/internal/model"
	"github.com/atmx/options-engine/internal/provider"
)

// MaxListedExpirations caps the expirations offered for one ticker.
const MaxListedExpirations = 12

// ExpirationsResponse is the body of GET /chain/{ticker}/expirations.
type ExpirationsResponse struct {
	Ticker      string   `json:"ticker"`
	StockPrice  *float64 `json:"stock_price"` // null when no quote is available
	Expirations []string `json:"expirations"`
}

// StrikesResponse is the body of GET /chain/{ticker}/strikes.
type StrikesResponse struct {
	Ticker     string           `json:"ticker"`
	Expiration string           `json:"expiration"`
	OptionType model.OptionType `json:"option_type"`
	Strikes    []float64        `json:"strikes"`
}

func (s *Service) chain(w http.ResponseWriter) (provider.ChainLookup, bool) {
	c, ok := s.provider.(provider.ChainLookup)
	if !ok {
		writeError(w, "no option chain provider configured", http.StatusServiceUnavailable)
	}
	return c, ok
}

// Expirations handles GET /api/v1/chain/{ticker}/expirations
// Lists the nearest expirations together with the current stock price so a
// client can prefill a contract form.
func (s *Service) Expirations(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))
	c, ok := s.chain(w)
	if !ok {
		return
	}

	ctx := r.Context()
	dates, err := c.GetExpirations(ctx, ticker)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("expirations").Inc()
		slog.Warn("expiration lookup failed", "ticker", ticker, "err", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	if len(dates) > MaxListedExpirations {
		dates = dates[:MaxListedExpirations]
	}

	resp := ExpirationsResponse{Ticker: ticker, Expirations: make([]string, len(dates))}
	for i, d := range dates {
		resp.Expirations[i] = d.Format("2006-01-02")
	}

	// The price is a convenience; the expirations stand on their own.
	if q, err := s.provider.GetQuote(ctx, ticker); err == nil {
		spot := round(q.SpotPrice, 2)
		resp.StockPrice = &spot
	} else {
		slog.Warn("quote unavailable for expirations", "ticker", ticker, "err", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Strikes handles GET /api/v1/chain/{ticker}/strikes?expiration=YYYY-MM-DD&option_type=call
func (s *Service) Strikes(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))

	expiration, err := contract.ParseExpiration(r.URL.Query().Get("expiration"))
	if err != nil {
		writeFieldError(w, err)
		return
	}
	typ := model.Call
	if t := r.URL.Query().Get("option_type"); t != "" {
		if typ, err = contract.ParseOptionType(t); err != nil {
			writeFieldError(w, err)
			return
		}
	}

	c, ok := s.chain(w)
	if !ok {
		return
	}
	strikes, err := c.GetStrikes(r.Context(), ticker, expiration, typ)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("strikes").Inc()
		slog.Warn("strike lookup failed", "ticker", ticker, "expiration", expiration.Format("2006-01-02"), "err", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, StrikesResponse{
		Ticker:     ticker,
		Expiration: expiration.Format("2006-01-02"),
		OptionType: typ,
		Strikes:    strikes,
	})
}
