package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/atmx/options-engine/internal/blackscholes"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/metrics"
	"github.com/atmx/options-engine/internal/model"
	"github.com/atmx/options-engine/internal/provider"
	"github.com/atmx/options-engine/internal/scenario"
	"github.com/atmx/options-engine/internal/watchdog"
)

// --- Request/Response types ---

// GreeksRequest is the JSON body for POST /greeks. Contract fields sit at
// the top level alongside the scenario settings.
type GreeksRequest struct {
	contract.Raw
	DaysHeld   int      `json:"days_held"`
	ThetaAlert *float64 `json:"theta_alert,omitempty"` // nil → default threshold
	Live       bool     `json:"live"`                  // fetch spot/IV/mark from the provider
}

// EstimateRequest is the JSON body for POST /estimate.
type EstimateRequest struct {
	contract.Raw
	DaysHeld  int     `json:"days_held"`
	StockMove float64 `json:"stock_move"` // dollars, signed
	Live      bool    `json:"live"`
}

// EstimateResponse is the linear first-order P&L estimate.
type EstimateResponse struct {
	ID           string  `json:"id"`
	Ticker       string  `json:"ticker"`
	Delta        float64 `json:"delta"`
	ThetaDaily   float64 `json:"theta_daily_dollars"`
	DaysHeld     int     `json:"days_held"`
	StockMove    float64 `json:"stock_move"`
	EstimatedPnL float64 `json:"estimated_pnl"`
}

// SimulateRequest is the JSON body for POST /simulate.
type SimulateRequest struct {
	contract.Raw
	Days          []int    `json:"days,omitempty"` // empty → configured decay days
	PriceRangePct *float64 `json:"price_range_pct,omitempty"`
	PointCount    *int     `json:"point_count,omitempty"`
	Live          bool     `json:"live"`
}

// SimulateResponse carries a time-decay matrix.
type SimulateResponse struct {
	ID          string                `json:"id"`
	Ticker      string                `json:"ticker"`
	Source      string                `json:"source"`
	PremiumPaid float64               `json:"premium_paid"`
	Matrix      model.TimeDecayMatrix `json:"matrix"`
}

// WatchdogRequest is the JSON body for POST /watchdog.
type WatchdogRequest struct {
	ThetaDollars *float64 `json:"theta_dollars"`
	Threshold    *float64 `json:"threshold,omitempty"`
	Ticker       string   `json:"ticker,omitempty"`
}

// PositionResult is one entry of the positions snapshot. Exactly one of
// Analysis and Error is set.
type PositionResult struct {
	Symbol   string                    `json:"symbol"`
	Analysis *Analysis                 `json:"analysis,omitempty"`
	Error    *contract.ValidationError `json:"error,omitempty"`
}

// --- HTTP Handlers ---

// Greeks handles POST /api/v1/greeks
func (s *Service) Greeks(w http.ResponseWriter, r *http.Request) {
	var req GreeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	threshold := -1.0
	if req.ThetaAlert != nil {
		if *req.ThetaAlert < 0 {
			writeFieldError(w, contract.Invalid("theta_alert", "must be non-negative"))
			return
		}
		threshold = *req.ThetaAlert
	}

	a, err := s.Analyze(r.Context(), req.Raw, req.DaysHeld, threshold, req.Live)
	if err != nil {
		writeFieldError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Estimate handles POST /api/v1/estimate
func (s *Service) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.DaysHeld < 0 {
		writeFieldError(w, contract.Invalid(contract.FieldDaysHeld, "must be non-negative"))
		return
	}

	start := time.Now()
	p, _, err := s.Prepare(r.Context(), req.Raw, req.Live)
	if err != nil {
		writeFieldError(w, err)
		return
	}

	g := blackscholes.Price(p)
	resp := EstimateResponse{
		ID:           uuid.New().String(),
		Ticker:       p.Ticker,
		Delta:        round(g.Delta, 4),
		ThetaDaily:   round(g.Theta, 2),
		DaysHeld:     req.DaysHeld,
		StockMove:    req.StockMove,
		EstimatedPnL: round(scenario.LinearEstimate(p, req.DaysHeld, req.StockMove), 2),
	}
	metrics.ObserveComputation("estimate", start)

	writeJSON(w, http.StatusOK, resp)
}

// Simulate handles POST /api/v1/simulate
// Builds P&L curves for each holding period on one shared price grid.
func (s *Service) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	days := req.Days
	if len(days) == 0 {
		days = s.settings.DecayDays
	}
	pct := s.settings.CurveRangePct
	if req.PriceRangePct != nil {
		pct = *req.PriceRangePct
	}
	n := s.settings.CurvePoints
	if req.PointCount != nil {
		n = *req.PointCount
	}

	start := time.Now()
	p, source, err := s.Prepare(r.Context(), req.Raw, req.Live)
	if err != nil {
		writeFieldError(w, err)
		return
	}

	m, err := scenario.BuildDecayMatrix(p, days, pct, n)
	if err != nil {
		writeFieldError(w, err)
		return
	}
	metrics.ObserveComputation("simulate", start)

	resp := SimulateResponse{
		ID:          uuid.New().String(),
		Ticker:      p.Ticker,
		Source:      source,
		PremiumPaid: p.PremiumPaid,
		Matrix:      roundMatrix(m),
	}

	slog.Info("decay matrix built",
		"id", resp.ID,
		"ticker", p.Ticker,
		"days", days,
		"points", n,
	)
	writeJSON(w, http.StatusOK, resp)
}

// Watchdog handles POST /api/v1/watchdog
func (s *Service) Watchdog(w http.ResponseWriter, r *http.Request) {
	var req WatchdogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ThetaDollars == nil {
		writeFieldError(w, contract.Invalid("theta_dollars", "required"))
		return
	}

	threshold := s.settings.DefaultThetaAlert
	if req.Threshold != nil {
		if *req.Threshold < 0 {
			writeFieldError(w, contract.Invalid("threshold", "must be non-negative"))
			return
		}
		threshold = *req.Threshold
	}

	start := time.Now()
	state := watchdog.Evaluate(*req.ThetaDollars, threshold)
	metrics.ObserveComputation("watchdog", start)
	s.alert(uuid.New().String(), req.Ticker, state)

	writeJSON(w, http.StatusOK, state)
}

// GetQuote handles GET /api/v1/quote/{ticker}
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if s.provider == nil {
		writeError(w, "no market data provider configured", http.StatusServiceUnavailable)
		return
	}

	q, err := s.provider.GetQuote(r.Context(), ticker)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("quote").Inc()
		slog.Warn("quote lookup failed", "ticker", ticker, "err", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Positions handles GET /api/v1/positions
// Analyses every open position independently. A position that fails
// validation is reported in place and does not fail the others.
func (s *Service) Positions(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, "no position provider configured", http.StatusServiceUnavailable)
		return
	}

	ctx := r.Context()
	raws, err := s.provider.GetOpenPositions(ctx)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("positions").Inc()
		slog.Warn("position snapshot failed", "err", err)
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	results := s.AnalyzePositions(ctx, raws)
	writeJSON(w, http.StatusOK, results)
}

// AnalyzePositions analyses raws concurrently, bounded by the configured
// worker count. Results keep the input order.
func (s *Service) AnalyzePositions(ctx context.Context, raws []contract.Raw) []PositionResult {
	results := make([]PositionResult, len(raws))

	var g errgroup.Group
	g.SetLimit(max(s.settings.PositionWorkers, 1))
	for i, raw := range raws {
		g.Go(func() error {
			res := PositionResult{Symbol: raw.Symbol}
			if res.Symbol == "" {
				res.Symbol = raw.Ticker
			}
			// Positions always take the live spot; the snapshot has none.
			a, err := s.Analyze(ctx, raw, 0, -1, true)
			if err != nil {
				var ve *contract.ValidationError
				if !errors.As(err, &ve) {
					ve = &contract.ValidationError{Field: contract.FieldSymbol, Reason: err.Error()}
				}
				res.Error = ve
			} else {
				res.Analysis = a
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()

	return results
}

// --- Helpers ---

// writeJSON encodes v before committing the status so an unencodable value
// becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("response encoding failed", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error: response not encodable"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeFieldError maps engine errors to responses. Validation errors name
// the offending field; unavailable market data is a gateway failure.
func writeFieldError(w http.ResponseWriter, err error) {
	var ve *contract.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": ve.Error(),
			"field": ve.Field,
		})
	case errors.Is(err, provider.ErrExternalDataUnavailable):
		writeError(w, err.Error(), http.StatusBadGateway)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
