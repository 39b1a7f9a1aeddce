package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

// BrokerClient talks to a broker REST gateway using bearer token auth.
//
//	GET {base}/markets/quotes?symbols={ticker}
//	GET {base}/accounts/positions
//	GET {base}/markets/options/expirations?symbol={ticker}
//	GET {base}/markets/options/chains?symbol={ticker}&expiration={date}
type BrokerClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewBrokerClient creates a broker client for the given gateway.
func NewBrokerClient(baseURL, token string, timeout time.Duration) *BrokerClient {
	return &BrokerClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

type brokerQuote struct {
	Symbol    string   `json:"symbol"`
	Last      float64  `json:"last"`
	IV        *float64 `json:"iv"`
	Mark      *float64 `json:"mark"`
	Timestamp int64    `json:"trade_date"` // unix millis
}

type quotesResponse struct {
	Quotes struct {
		Quote brokerQuote `json:"quote"`
	} `json:"quotes"`
}

type brokerPosition struct {
	Symbol    string  `json:"symbol"`
	Quantity  float64 `json:"quantity"`
	CostBasis float64 `json:"cost_basis"` // total dollars paid
}

type positionsResponse struct {
	Positions struct {
		Position []brokerPosition `json:"position"`
	} `json:"positions"`
}

// GetQuote fetches the last trade and, when the gateway has one, the
// implied volatility for ticker.
func (c *BrokerClient) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	u := fmt.Sprintf("%s/markets/quotes?symbols=%s", c.baseURL, url.QueryEscape(strings.ToUpper(ticker)))

	var resp quotesResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return model.Quote{}, unavailable("quote "+ticker, err)
	}

	bq := resp.Quotes.Quote
	if bq.Symbol == "" || bq.Last <= 0 {
		return model.Quote{}, fmt.Errorf("%w for %s", ErrNoQuote, ticker)
	}

	q := model.Quote{
		Ticker:    bq.Symbol,
		SpotPrice: bq.Last,
		Source:    "broker",
		AsOf:      time.Now().UTC(),
	}
	if bq.IV != nil {
		q.ImpliedVolatility = *bq.IV
	}
	if bq.Mark != nil {
		q.Mark = *bq.Mark
	}
	if bq.Timestamp > 0 {
		q.AsOf = time.UnixMilli(bq.Timestamp).UTC()
	}
	return q, nil
}

// GetOpenPositions fetches open option positions. Equity positions are
// skipped. Premium paid is the per-share cost basis.
func (c *BrokerClient) GetOpenPositions(ctx context.Context) ([]contract.Raw, error) {
	var resp positionsResponse
	if err := c.get(ctx, c.baseURL+"/accounts/positions", &resp); err != nil {
		return nil, unavailable("positions", err)
	}

	var positions []contract.Raw
	for _, bp := range resp.Positions.Position {
		if _, err := contract.ParseOptionSymbol(bp.Symbol); err != nil {
			continue
		}
		raw := contract.Raw{Symbol: bp.Symbol}
		if bp.Quantity != 0 {
			perShare := math.Abs(bp.CostBasis) / math.Abs(bp.Quantity) / model.ContractMultiplier
			raw.PremiumPaid = contract.Number(perShare)
		}
		positions = append(positions, raw)
	}
	return positions, nil
}

type expirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

type chainResponse struct {
	Options struct {
		Option []struct {
			Symbol     string  `json:"symbol"`
			Strike     float64 `json:"strike"`
			OptionType string  `json:"option_type"` // "call" or "put"
		} `json:"option"`
	} `json:"options"`
}

// GetExpirations lists the expiration dates the gateway has for ticker.
func (c *BrokerClient) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	u := fmt.Sprintf("%s/markets/options/expirations?symbol=%s", c.baseURL, url.QueryEscape(strings.ToUpper(ticker)))

	var resp expirationsResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, unavailable("expirations "+ticker, err)
	}
	if len(resp.Expirations.Date) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoChain, ticker)
	}

	dates := make([]time.Time, 0, len(resp.Expirations.Date))
	for _, s := range resp.Expirations.Date {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, unavailable("expirations "+ticker, fmt.Errorf("bad date %q", s))
		}
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates, nil
}

// GetStrikes reads the chain for one expiration and keeps the strikes of
// the requested type.
func (c *BrokerClient) GetStrikes(ctx context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error) {
	date := expiration.Format("2006-01-02")
	u := fmt.Sprintf("%s/markets/options/chains?symbol=%s&expiration=%s",
		c.baseURL, url.QueryEscape(strings.ToUpper(ticker)), date)

	var resp chainResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, unavailable("chain "+ticker, err)
	}

	var strikes []float64
	for _, o := range resp.Options.Option {
		if strings.EqualFold(o.OptionType, string(typ)) && o.Strike > 0 {
			strikes = append(strikes, o.Strike)
		}
	}
	if len(strikes) == 0 {
		return nil, fmt.Errorf("%w for %s %s %s", ErrNoChain, ticker, date, typ)
	}
	return sortedUnique(strikes), nil
}

func (c *BrokerClient) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
