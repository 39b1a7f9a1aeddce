// Package config loads service settings from the environment. A .env file in
// the working directory, when present, is read first; variables already set
// in the process environment take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/atmx/options-engine/internal/scenario"
)

// Config holds the runtime settings of the analytics service.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	QuoteCacheTTL  time.Duration
	BrokerAPIBase  string
	BrokerAPIToken string
	BrokerTimeout  time.Duration

	DefaultRiskFreeRate float64
	DefaultThetaAlert   float64
	CurvePoints         int
	CurveRangePct       float64
	DecayDays           []int
	PositionWorkers     int
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Port:                "8080",
		QuoteCacheTTL:       30 * time.Second,
		BrokerTimeout:       10 * time.Second,
		DefaultRiskFreeRate: 0.045,
		DefaultThetaAlert:   50,
		CurvePoints:         50,
		CurveRangePct:       0.30,
		DecayDays:           []int{0, 5, 10, 15, 20},
		PositionWorkers:     4,
	}
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Defaults()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	duration("QUOTE_CACHE_TTL", &c.QuoteCacheTTL)
	str("BROKER_API_BASE", &c.BrokerAPIBase)
	str("BROKER_API_TOKEN", &c.BrokerAPIToken)
	duration("BROKER_TIMEOUT", &c.BrokerTimeout)
	float("DEFAULT_RISK_FREE_RATE", &c.DefaultRiskFreeRate)
	float("DEFAULT_THETA_ALERT", &c.DefaultThetaAlert)
	integer("CURVE_POINTS", &c.CurvePoints)
	float("CURVE_RANGE_PCT", &c.CurveRangePct)
	integer("POSITION_WORKERS", &c.PositionWorkers)

	if v := strings.TrimSpace(getenv("DECAY_DAYS")); v != "" {
		days, err := parseDays(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: DECAY_DAYS: %w", err))
		} else {
			c.DecayDays = days
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch {
	case c.CurvePoints < 2 || c.CurvePoints > scenario.MaxPointCount:
		return fmt.Errorf("config: CURVE_POINTS must be between 2 and %d, got %d", scenario.MaxPointCount, c.CurvePoints)
	case len(c.DecayDays) > scenario.MaxDecayDays:
		return fmt.Errorf("config: DECAY_DAYS lists %d periods, at most %d allowed", len(c.DecayDays), scenario.MaxDecayDays)
	case c.CurveRangePct <= 0 || c.CurveRangePct >= 1:
		return fmt.Errorf("config: CURVE_RANGE_PCT must be in (0,1), got %v", c.CurveRangePct)
	case c.DefaultThetaAlert < 0:
		return fmt.Errorf("config: DEFAULT_THETA_ALERT must be non-negative, got %v", c.DefaultThetaAlert)
	case c.DefaultRiskFreeRate < 0:
		return fmt.Errorf("config: DEFAULT_RISK_FREE_RATE must be non-negative, got %v", c.DefaultRiskFreeRate)
	case c.PositionWorkers < 1:
		return fmt.Errorf("config: POSITION_WORKERS must be at least 1, got %d", c.PositionWorkers)
	}
	return nil
}

// parseDays parses a comma separated list such as "0,5,10".
func parseDays(s string) ([]int, error) {
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, fmt.Errorf("negative day %d", d)
		}
		days = append(days, d)
	}
	if len(days) == 0 {
		return nil, errors.New("no days")
	}
	return days, nil
}
