package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atmx/options-engine/internal/contract"
	"github.com/atmx/options-engine/internal/model"
)

// PostgresProvider reads a broker feed that an ingestion job mirrors into
// PostgreSQL. Prices are stored as NUMERIC and read back as text.
//
//	market_quotes(ticker, spot_price, implied_volatility, mark, source, as_of)
//	broker_positions(symbol, ticker, strike, expiration, option_type, premium_paid, opened_at)
//	option_listings(ticker, expiration, option_type, strike)
type PostgresProvider struct {
	pool *pgxpool.Pool
}

// NewPostgresProvider creates a PostgreSQL-backed provider.
func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (s *PostgresProvider) GetQuote(ctx context.Context, ticker string) (model.Quote, error) {
	var q model.Quote
	var spot string
	var iv, mark *string

	err := s.pool.QueryRow(ctx,
		`SELECT ticker, spot_price::TEXT, implied_volatility::TEXT, mark::TEXT, source, as_of
		 FROM market_quotes
		 WHERE ticker = $1
		 ORDER BY as_of DESC
		 LIMIT 1`, strings.ToUpper(ticker)).
		Scan(&q.Ticker, &spot, &iv, &mark, &q.Source, &q.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Quote{}, ErrNoQuote
	}
	if err != nil {
		return model.Quote{}, unavailable("get quote "+ticker, err)
	}

	q.SpotPrice = parseNumeric(&spot)
	q.ImpliedVolatility = parseNumeric(iv)
	q.Mark = parseNumeric(mark)
	return q, nil
}

func (s *PostgresProvider) GetOpenPositions(ctx context.Context) ([]contract.Raw, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol, ticker, strike::TEXT, expiration, option_type, premium_paid::TEXT
		 FROM broker_positions
		 ORDER BY opened_at`)
	if err != nil {
		return nil, unavailable("list positions", err)
	}
	defer rows.Close()

	var positions []contract.Raw
	for rows.Next() {
		var raw contract.Raw
		var strike string
		var premium *string
		var expiration time.Time
		if err := rows.Scan(&raw.Symbol, &raw.Ticker, &strike, &expiration, &raw.OptionType, &premium); err != nil {
			return nil, unavailable("scan position", err)
		}
		raw.Strike = contract.Value(strike)
		raw.PremiumPaid = nullableValue(premium)
		raw.Expiration = expiration.Format("2006-01-02")
		positions = append(positions, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list positions", err)
	}
	return positions, nil
}

func (s *PostgresProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT expiration
		 FROM option_listings
		 WHERE ticker = $1 AND expiration >= CURRENT_DATE
		 ORDER BY expiration`, strings.ToUpper(ticker))
	if err != nil {
		return nil, unavailable("list expirations", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, unavailable("list expirations", err)
	}
	if len(dates) == 0 {
		return nil, ErrNoChain
	}
	return dates, nil
}

func (s *PostgresProvider) GetStrikes(ctx context.Context, ticker string, expiration time.Time, typ model.OptionType) ([]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT strike::TEXT
		 FROM option_listings
		 WHERE ticker = $1 AND expiration = $2 AND UPPER(option_type) = $3
		 ORDER BY strike`, strings.ToUpper(ticker), expiration, string(typ))
	if err != nil {
		return nil, unavailable("list strikes", err)
	}
	texts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("list strikes", err)
	}
	if len(texts) == 0 {
		return nil, ErrNoChain
	}

	strikes := make([]float64, len(texts))
	for i := range texts {
		strikes[i] = parseNumeric(&texts[i])
	}
	return sortedUnique(strikes), nil
}
