// Package config defines configuration for the arbitrage engine. Config is
// loaded from a YAML file with sensitive fields overridable via ARB_*
// environment variables.
//
// Structure and loading ported from 0xtitan6-polymarket-mm's
// internal/config package: viper + mapstructure over a nested struct,
// env-prefixed overrides for secrets, a Validate pass before use.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file's
// structure.
type Config struct {
	DSN             string                    `mapstructure:"dsn"`
	DefaultExchange string                    `mapstructure:"default_exchange"`
	App             AppConfig                 `mapstructure:"app"`
	Exchanges       map[string]VenueConfig    `mapstructure:"exchanges"`
	Strategies      map[string]StrategyConfig `mapstructure:"strategies"`
	Telegram        TelegramConfig            `mapstructure:"telegram"`
	Logging         LoggingConfig             `mapstructure:"logging"`
}

// AppConfig controls the scheduler's periodic tick.
type AppConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TransportConfig configures one venue's outbound request budget.
type TransportConfig struct {
	Requests int           `mapstructure:"requests"`
	Period   time.Duration `mapstructure:"period"`
	Burst    int           `mapstructure:"burst"`
}

// VenueConfig is one exchange's static configuration block.
type VenueConfig struct {
	APIKey       string             `mapstructure:"api_key"`
	APISecret    string             `mapstructure:"api_secret"`
	Fee          float64            `mapstructure:"fee"`
	DefaultPairs []string           `mapstructure:"default_pairs"`
	PairLimits   map[string]float64 `mapstructure:"pair_limits"`
	Transport    TransportConfig    `mapstructure:"transport"`
	Debounce     time.Duration      `mapstructure:"debounce"`
}

// StrategyConfig tunes one arbitrage strategy instance.
//
//   - Pair: the instrument this strategy searches for windows on.
//   - MinSpread/MaxSpread: the window's close/open thresholds: MaxSpread is
//     the direct width a window must beat to open, MinSpread the reversed
//     width at which an open pair is unwound.
//   - MaxSpendPart: the fraction of the available balances a single trade
//     may consume (see the get_max_spend safety factor).
//   - PlaceTimeout: how long a placed leg is polled for a closed status; a
//     leg still open at the deadline keeps its last reported status.
type StrategyConfig struct {
	Pair            string        `mapstructure:"pair"`
	Venues          []string      `mapstructure:"venues"`
	MinSpread       float64       `mapstructure:"min_spread"`
	MaxSpread       float64       `mapstructure:"max_spread"`
	MaxSpendPart    float64       `mapstructure:"max_spend_part"`
	PlaceTimeout    time.Duration `mapstructure:"place_timeout"`
	SleepAfterPlace time.Duration `mapstructure:"sleep_after_place"`
}

// TelegramConfig configures the operator-notification channel.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with ARB_*-prefixed env var
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if dsn := os.Getenv("ARB_DSN"); dsn != "" {
		cfg.DSN = dsn
	}
	if token := os.Getenv("ARB_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}

	return &cfg, nil
}

// Validate checks the fields the scheduler and strategies need before
// startup.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("dsn is required (set ARB_DSN)")
	}
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("at least one entry in exchanges is required")
	}
	if c.DefaultExchange != "" {
		if _, ok := c.Exchanges[c.DefaultExchange]; !ok {
			return fmt.Errorf("default_exchange %q is not in exchanges", c.DefaultExchange)
		}
	}
	if c.App.Interval <= 0 {
		return fmt.Errorf("app.interval must be > 0")
	}
	for name, ex := range c.Exchanges {
		if len(ex.DefaultPairs) == 0 {
			return fmt.Errorf("exchanges.%s.default_pairs must not be empty", name)
		}
	}
	for name, st := range c.Strategies {
		if st.Pair == "" {
			return fmt.Errorf("strategies.%s.pair is required", name)
		}
		if len(st.Venues) < 2 {
			return fmt.Errorf("strategies.%s.venues must list at least two venues", name)
		}
		if st.MaxSpendPart <= 0 || st.MaxSpendPart > 1 {
			return fmt.Errorf("strategies.%s.max_spend_part must be in (0, 1]", name)
		}
	}
	return nil
}
