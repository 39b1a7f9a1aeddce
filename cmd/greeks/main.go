package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atmx/options-engine/internal/analytics"
	"github.com/atmx/options-engine/internal/config"
	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
	"github.com/atmx/options-engine/internal/provider"
	"github.com/atmx/options-engine/internal/scenario"
)

func main() {
	// Command-line flags
	ticker := flag.String("ticker", "", "Underlying ticker")
	symbol := flag.String("symbol", "", "OCC option symbol, e.g. AAPL250815C00150000")
	strike := flag.String("strike", "", "Strike price")
	spot := flag.String("spot", "", "Underlying price (fetched from the broker with --live)")
	iv := flag.String("iv", "", "Implied volatility as a decimal (default 0.30)")
	rate := flag.String("r", "", "Risk-free rate as a decimal (default from config)")
	expiration := flag.String("expiration", "", "Expiration date YYYY-MM-DD")
	dte := flag.String("dte", "", "Days to expiration when no date is given (default 30)")
	optType := flag.String("type", "call", "Option type: call or put")
	premium := flag.String("premium", "", "Premium paid per share")
	daysHeld := flag.Int("days-held", 0, "Holding period for the P&L curve")
	thetaAlert := flag.Float64("theta-alert", -1, "Watchdog threshold in dollars per day (default from config)")
	live := flag.Bool("live", false, "Fetch spot, IV and mark from the configured broker")
	decay := flag.Bool("decay", false, "Print the time-decay matrix instead of a single curve")
	format := flag.String("format", "table", "Output format (table or json)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var p provider.Provider
	if cfg.BrokerAPIBase != "" {
		p = provider.NewBrokerClient(cfg.BrokerAPIBase, cfg.BrokerAPIToken, cfg.BrokerTimeout)
	} else if *live {
		fmt.Fprintln(os.Stderr, "Error: --live requires BROKER_API_BASE")
		os.Exit(1)
	}

	settings := analytics.DefaultSettings()
	settings.DefaultRiskFreeRate = cfg.DefaultRiskFreeRate
	settings.DefaultThetaAlert = cfg.DefaultThetaAlert
	settings.CurvePoints = cfg.CurvePoints
	settings.CurveRangePct = cfg.CurveRangePct
	settings.DecayDays = cfg.DecayDays
	svc := analytics.NewService(p, nil, settings)

	raw := contract.Raw{
		Ticker:            *ticker,
		Symbol:            *symbol,
		Strike:            contract.Value(*strike),
		Spot:              contract.Value(*spot),
		ImpliedVolatility: contract.Value(*iv),
		RiskFreeRate:      contract.Value(*rate),
		Expiration:        *expiration,
		DTE:               contract.Value(*dte),
		OptionType:        *optType,
		PremiumPaid:       contract.Value(*premium),
	}
	if *symbol != "" && !isFlagSet("type") {
		raw.OptionType = ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *decay {
		runDecay(ctx, svc, raw, *live, *format)
		return
	}
	runGreeks(ctx, svc, raw, *daysHeld, *thetaAlert, *live, *format)
}

func runGreeks(ctx context.Context, svc *analytics.Service, raw contract.Raw, daysHeld int, threshold float64, live bool, format string) {
	a, err := svc.Analyze(ctx, raw, daysHeld, threshold, live)
	if err != nil {
		fail(err)
	}

	if format == "json" {
		printJSON(a)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s %s $%.2f\t(%s, %d DTE)\n", a.Ticker, a.OptionType, a.Strike, a.Source, a.DTEDays)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "Stock price\t$%.2f\n", a.StockPrice)
	fmt.Fprintf(w, "IV / r\t%.2f%% / %.2f%%\n", a.Sigma*100, a.RiskFreeRate*100)
	fmt.Fprintf(w, "Theoretical\t$%.4f\n", a.Greeks.TheoreticalPrice)
	fmt.Fprintf(w, "Intrinsic / extrinsic\t$%.4f / $%.4f\n", a.IntrinsicValue, a.ExtrinsicValue)
	fmt.Fprintf(w, "Delta\t%.4f\n", a.Greeks.Delta)
	fmt.Fprintf(w, "Gamma\t%.4f\n", a.Greeks.Gamma)
	fmt.Fprintf(w, "Theta\t$%.2f/day\n", a.ThetaDaily)
	fmt.Fprintf(w, "Vega\t%.4f\n", a.Greeks.Vega)
	fmt.Fprintf(w, "Rho\t%.4f\n", a.Greeks.Rho)
	if a.Expired {
		fmt.Fprintln(w, "Status\tEXPIRED (intrinsic value)")
	}
	alert := "ok"
	if a.Watchdog.Triggered {
		alert = "TRIGGERED"
	}
	fmt.Fprintf(w, "Theta watchdog\t%s (threshold $%.2f)\n", alert, a.Watchdog.ThresholdDollars)
	w.Flush()

	fmt.Printf("\nP&L after %d days (premium $%.2f)\n", a.Curve.DaysHeld, a.PremiumPaid)
	printCurve(a.Curve.Points)
}

func runDecay(ctx context.Context, svc *analytics.Service, raw contract.Raw, live bool, format string) {
	p, _, err := svc.Prepare(ctx, raw, live)
	if err != nil {
		fail(err)
	}
	s := svc.Settings()
	m, err := scenario.BuildDecayMatrix(p, s.DecayDays, s.CurveRangePct, s.CurvePoints)
	if err != nil {
		fail(err)
	}

	if format == "json" {
		printJSON(m)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"PRICE"}
	for _, d := range m.Days {
		header = append(header, fmt.Sprintf("DAY %d", d))
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")

	grid := m.Curves[m.Days[0]].Points
	for i := range grid {
		row := []string{fmt.Sprintf("$%.2f", grid[i].StockPrice)}
		for _, d := range m.Days {
			row = append(row, fmt.Sprintf("%.2f", m.Curves[d].Points[i].PnLDollars))
		}
		fmt.Fprintln(w, strings.Join(row, "\t")+"\t")
	}
	w.Flush()
}

func printCurve(points []model.PnLPoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PRICE\tOPTION\tP&L\t")
	for _, pt := range points {
		fmt.Fprintf(w, "$%.2f\t$%.4f\t%.2f\t\n", pt.StockPrice, pt.OptionPrice, pt.PnLDollars)
	}
	w.Flush()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func fail(err error) {
	report(os.Stderr, err)
	os.Exit(1)
}

// report writes err for the user, naming the flag behind a rejected field.
// Errors never go to stdout so JSON output stays parseable.
func report(w io.Writer, err error) {
	var ve *contract.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(w, "Error: --%s: %s\n", flagFor(ve.Field), ve.Reason)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// flagFor maps a contract field to the flag that sets it.
func flagFor(field string) string {
	switch field {
	case contract.FieldSpot:
		return "spot"
	case contract.FieldRate:
		return "r"
	case contract.FieldOptionType:
		return "type"
	case contract.FieldPremium:
		return "premium"
	case contract.FieldDaysHeld:
		return "days-held"
	default:
		return field
	}
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
