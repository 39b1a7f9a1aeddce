// Package analytics runs the options engine on behalf of a caller: it fills
// in defaults and live market data, validates the contract, and assembles
// Greeks, P&L curves and watchdog state into one response. The HTTP handlers
// in this package and the greeks CLI both go through Service.Analyze.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/options-engine/internal/blackscholes"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/metrics"
	"github.com/atmx/options-engine/internal/model"
	"github.com/atmx/options-engine/internal/provider"
	"github.com/atmx/options-engine/internal/scenario"
	"github.com/atmx/options-engine/internal/watchdog"
)

// Settings are the defaults applied to requests that leave fields blank.
type Settings struct {
	DefaultRiskFreeRate float64
	DefaultIV           float64
	DefaultThetaAlert   float64
	DefaultDTE          int
	CurvePoints         int
	CurveRangePct       float64
	DecayDays           []int
	PositionWorkers     int
}

// DefaultSettings returns the settings used by the web application.
func DefaultSettings() Settings {
	return Settings{
		DefaultRiskFreeRate: 0.045,
		DefaultIV:           0.30,
		DefaultThetaAlert:   watchdog.DefaultThresholdDollars,
		DefaultDTE:          30,
		CurvePoints:         scenario.DefaultPointCount,
		CurveRangePct:       scenario.DefaultPriceRangePct,
		DecayDays:           scenario.DefaultDecayDays,
		PositionWorkers:     4,
	}
}

// SourceManual marks an analysis that used only caller-supplied inputs.
const SourceManual = "manual"

// Analysis is the full result for one contract.
type Analysis struct {
	ID             string              `json:"id"`
	Ticker         string              `json:"ticker"`
	OptionType     model.OptionType    `json:"option_type"`
	Source         string              `json:"source"`
	StockPrice     float64             `json:"stock_price"`
	Strike         float64             `json:"strike"`
	Sigma          float64             `json:"sigma"`
	RiskFreeRate   float64             `json:"r"`
	PremiumPaid    float64             `json:"premium_paid"`
	DTEDays        int                 `json:"dte_days"`
	TimeToExpiry   float64             `json:"time_to_expiry"`
	Expired        bool                `json:"expired"`
	Greeks         model.GreeksResult  `json:"greeks"`
	ThetaDaily     float64             `json:"theta_daily_dollars"`
	IntrinsicValue float64             `json:"intrinsic_value"`
	ExtrinsicValue float64             `json:"extrinsic_value"`
	Watchdog       model.WatchdogState `json:"watchdog"`
	Curve          model.PnLCurve      `json:"pnl_curve"`
}

// Service holds the collaborators shared by every computation. It keeps no
// per-request state.
type Service struct {
	provider provider.Provider // optional
	hub      *WSHub            // optional
	settings Settings
	now      func() time.Time
}

// NewService creates an analytics service. Pass nil for p to disable live
// quotes and broker positions, and nil for hub if alerts are not broadcast.
func NewService(p provider.Provider, hub *WSHub, settings Settings) *Service {
	return &Service{
		provider: p,
		hub:      hub,
		settings: settings,
		now:      time.Now,
	}
}

// SetClock replaces the clock used to measure time to expiry.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Settings returns the defaults this service applies.
func (s *Service) Settings() Settings {
	return s.settings
}

// Prepare fills blank fields of raw from a live quote (when live is set) and
// the configured defaults, then validates it. The returned source names where
// the market inputs came from.
func (s *Service) Prepare(ctx context.Context, raw contract.Raw, live bool) (model.ContractParameters, string, error) {
	source := SourceManual
	if live || raw.Spot.IsZero() {
		if src, ok := s.applyQuote(ctx, &raw); ok {
			source = src
		}
	}
	s.applyDefaults(&raw)

	p, err := contract.Validate(raw, s.now())
	if err != nil {
		var ve *contract.ValidationError
		if errors.As(err, &ve) {
			metrics.ValidationFailures.WithLabelValues(ve.Field).Inc()
		}
		return model.ContractParameters{}, source, err
	}
	if p.Expired() {
		metrics.ExpiredContracts.Inc()
	}
	return p, source, nil
}

// applyQuote overlays live market data on raw. A failed lookup is logged and
// the manual values are kept.
func (s *Service) applyQuote(ctx context.Context, raw *contract.Raw) (string, bool) {
	if s.provider == nil {
		return "", false
	}
	ticker := tickerOf(*raw)
	if ticker == "" {
		return "", false
	}

	q, err := s.provider.GetQuote(ctx, ticker)
	if err != nil {
		metrics.ProviderFailures.WithLabelValues("quote").Inc()
		slog.Warn("live quote unavailable, using manual inputs", "ticker", ticker, "err", err)
		return "", false
	}

	raw.Spot = contract.Number(q.SpotPrice)
	if q.ImpliedVolatility > 0 && raw.ImpliedVolatility.IsZero() {
		raw.ImpliedVolatility = contract.Number(q.ImpliedVolatility)
	}
	if q.Mark > 0 && raw.PremiumPaid.IsZero() {
		raw.PremiumPaid = contract.Number(q.Mark)
	}
	return q.Source, true
}

func (s *Service) applyDefaults(raw *contract.Raw) {
	if raw.RiskFreeRate.IsZero() {
		raw.RiskFreeRate = contract.Number(s.settings.DefaultRiskFreeRate)
	}
	if raw.ImpliedVolatility.IsZero() {
		raw.ImpliedVolatility = contract.Number(s.settings.DefaultIV)
	}
	if raw.Symbol == "" && strings.TrimSpace(raw.Expiration) == "" && raw.DTE.IsZero() && s.settings.DefaultDTE > 0 {
		raw.DTE = contract.Number(float64(s.settings.DefaultDTE))
	}
}

// tickerOf returns the underlying named by raw, reading it from the option
// symbol when the ticker field is blank.
func tickerOf(raw contract.Raw) string {
	if t := strings.TrimSpace(raw.Ticker); t != "" {
		return strings.ToUpper(t)
	}
	if raw.Symbol != "" {
		if sym, err := contract.ParseOptionSymbol(raw.Symbol); err == nil {
			return sym.Ticker
		}
	}
	return ""
}

// Analyze prices raw, builds its P&L curve for daysHeld and evaluates the
// watchdog against threshold. A negative threshold selects the default.
func (s *Service) Analyze(ctx context.Context, raw contract.Raw, daysHeld int, threshold float64, live bool) (*Analysis, error) {
	start := time.Now()

	if daysHeld < 0 {
		metrics.ValidationFailures.WithLabelValues(contract.FieldDaysHeld).Inc()
		return nil, contract.Invalid(contract.FieldDaysHeld, "must be non-negative")
	}
	if threshold < 0 {
		threshold = s.settings.DefaultThetaAlert
	}

	p, source, err := s.Prepare(ctx, raw, live)
	if err != nil {
		return nil, err
	}

	g := blackscholes.Price(p)
	curve, err := scenario.RepriceCurve(p, daysHeld, s.settings.CurveRangePct, s.settings.CurvePoints)
	if err != nil {
		return nil, err
	}
	state := watchdog.EvaluateGreeks(g, threshold)

	a := &Analysis{
		ID:             uuid.New().String(),
		Ticker:         p.Ticker,
		OptionType:     p.OptionType,
		Source:         source,
		StockPrice:     p.Spot,
		Strike:         p.Strike,
		Sigma:          p.ImpliedVolatility,
		RiskFreeRate:   p.RiskFreeRate,
		PremiumPaid:    p.PremiumPaid,
		DTEDays:        p.DaysToExpiry,
		TimeToExpiry:   round(p.TimeToExpiry, 6),
		Expired:        p.Expired(),
		Greeks:         roundGreeks(g),
		ThetaDaily:     round(g.Theta, 2),
		IntrinsicValue: round(blackscholes.IntrinsicValue(p.Spot, p.Strike, p.OptionType), 4),
		ExtrinsicValue: round(blackscholes.ExtrinsicValue(g.TheoreticalPrice, p.Spot, p.Strike, p.OptionType), 4),
		Watchdog:       state,
		Curve:          roundCurve(curve),
	}

	metrics.ObserveComputation("greeks", start)
	s.alert(a.ID, p.Ticker, state)

	slog.Info("greeks computed",
		"id", a.ID,
		"ticker", p.Ticker,
		"type", p.OptionType,
		"source", source,
		"price", a.Greeks.TheoreticalPrice,
		"theta", a.ThetaDaily,
		"expired", a.Expired,
		"alert", state.Triggered,
	)
	return a, nil
}

// alert broadcasts a triggered watchdog state to connected clients.
func (s *Service) alert(id, ticker string, state model.WatchdogState) {
	if !state.Triggered {
		return
	}
	metrics.WatchdogTriggers.Inc()
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(WSMessage{
		Type:          "theta_alert",
		ComputationID: id,
		Ticker:        ticker,
		ThetaDollars:  round(state.CurrentThetaDollars, 2),
		Threshold:     state.ThresholdDollars,
		Timestamp:     s.now().UTC(),
	})
}

// round rounds f half away from zero. NaN and infinities pass through.
func round(f float64, places int32) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return f
	}
	v, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return v
}

func roundGreeks(g model.GreeksResult) model.GreeksResult {
	return model.GreeksResult{
		Delta:            round(g.Delta, 4),
		Gamma:            round(g.Gamma, 4),
		Theta:            round(g.Theta, 4),
		Vega:             round(g.Vega, 4),
		Rho:              round(g.Rho, 4),
		TheoreticalPrice: round(g.TheoreticalPrice, 4),
	}
}

func roundCurve(c model.PnLCurve) model.PnLCurve {
	out := model.PnLCurve{DaysHeld: c.DaysHeld, Points: make([]model.PnLPoint, len(c.Points))}
	for i, pt := range c.Points {
		out.Points[i] = model.PnLPoint{
			StockPrice:  round(pt.StockPrice, 4),
			PnLDollars:  round(pt.PnLDollars, 2),
			OptionPrice: round(pt.OptionPrice, 4),
		}
	}
	return out
}

func roundMatrix(m model.TimeDecayMatrix) model.TimeDecayMatrix {
	out := model.TimeDecayMatrix{Days: m.Days, Curves: make(map[int]model.PnLCurve, len(m.Curves))}
	for d, c := range m.Curves {
		out.Curves[d] = roundCurve(c)
	}
	return out
}
