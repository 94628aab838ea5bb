// cryptoarb runs the cross-exchange arbitrage engine: it watches
// configured venues for a profitable ask/bid spread, places a sized pair
// of orders against it, and reconciles pairs that didn't both fill.
//
// Usage:
//
//	cryptoarb execute --config config.yaml
//	cryptoarb balances --config config.yaml
//	cryptoarb place --config config.yaml --exchange=kraken --side=sell --amount=0.2 --pair=LTCUSD
//	cryptoarb prepare_arbitrage --config config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/app"
	"github.com/web3guy0/cryptoarb/internal/config"
	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/notify"
	"github.com/web3guy0/cryptoarb/internal/ops"
	"github.com/web3guy0/cryptoarb/internal/queue"
	"github.com/web3guy0/cryptoarb/internal/store"
	"github.com/web3guy0/cryptoarb/internal/strategy"
	"github.com/web3guy0/cryptoarb/internal/venue"
	"github.com/web3guy0/cryptoarb/internal/venue/binance"
	"github.com/web3guy0/cryptoarb/internal/venue/kraken"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

const version = "1.0.0"

// Exit codes, per the engine's external interface: 0 on a graceful
// shutdown, 1 on a config problem the operator needs to fix, 2 on a
// startup failure the engine couldn't recover from.
const (
	exitOK              = 0
	exitConfigError     = 1
	exitStartupFailure  = 2
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cryptoarb <execute|balances|place|prepare_arbitrage> [flags]")
		os.Exit(exitConfigError)
	}

	switch os.Args[1] {
	case "execute":
		os.Exit(runExecute(os.Args[2:]))
	case "balances":
		os.Exit(runBalances(os.Args[2:]))
	case "place":
		os.Exit(runPlace(os.Args[2:]))
	case "prepare_arbitrage":
		os.Exit(runPrepareArbitrage(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(exitConfigError)
	}
}

func loadConfig(args []string, fs *flag.FlagSet) (*config.Config, error) {
	path := fs.String("config", "config.yaml", "path to the YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Logging.Level != "" {
		if lvl, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return cfg, nil
}

func buildVenues(cfg *config.Config) (*venue.Venues, error) {
	var list []*venue.Venue
	for name, vc := range cfg.Exchanges {
		rl := session.RateLimit{Requests: vc.Transport.Requests, Period: vc.Transport.Period.Seconds(), Burst: vc.Transport.Burst}
		pairLimits := make(map[string]decimal.Decimal, len(vc.PairLimits))
		for pair, limit := range vc.PairLimits {
			pairLimits[pair] = decimal.NewFromFloat(limit)
		}
		vcfg := venue.Config{
			Name:         name,
			Fee:          vc.Fee,
			DefaultPairs: vc.DefaultPairs,
			PairLimits:   pairLimits,
			RateLimit:    rl,
			Debounce:     vc.Debounce,
		}

		var sess session.Session
		switch name {
		case "binance":
			sess = binance.New(binance.Config{APIKey: vc.APIKey, APISecret: vc.APISecret, RateLimit: rl}, log.Logger)
		case "kraken":
			sess = kraken.New(kraken.Config{APIKey: vc.APIKey, APISecret: vc.APISecret, RateLimit: rl}, log.Logger)
		default:
			return nil, fmt.Errorf("unsupported venue %q (supported: binance, kraken)", name)
		}
		list = append(list, venue.New(vcfg, sess, log.Logger))
	}
	return venue.NewVenues(list...), nil
}

func runExecute(args []string) int {
	fs := flag.NewFlagSet("execute", flag.ExitOnError)
	cfg, err := loadConfig(args, fs)
	if err != nil {
		log.Error().Err(err).Msg("execute: config error")
		return exitConfigError
	}

	venues, err := buildVenues(cfg)
	if err != nil {
		log.Error().Err(err).Msg("execute: venue setup failed")
		return exitStartupFailure
	}

	st, err := store.Open(cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("execute: store open failed")
		return exitStartupFailure
	}
	defer st.Close()

	notifier, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("execute: telegram notifier failed")
		return exitStartupFailure
	}

	q := queue.New(st)

	var strategies []*strategy.Arbitrage
	for name, sc := range cfg.Strategies {
		scfg := strategy.DefaultConfig()
		scfg.Pairs = []string{sc.Pair}
		if sc.MaxSpread > 0 {
			scfg.WindowDirectWidth = sc.MaxSpread
		}
		if sc.MinSpread > 0 {
			scfg.WindowReversedWidth = sc.MinSpread
		}
		if sc.MaxSpendPart > 0 {
			scfg.MaxSpendPart = sc.MaxSpendPart
		}
		if sc.PlaceTimeout > 0 {
			scfg.Trade.Timeout = sc.PlaceTimeout
		}
		if sc.SleepAfterPlace > 0 {
			scfg.Trade.SleepAfterPlaced = sc.SleepAfterPlace
		}

		strat, err := strategy.New(scfg, venues, q, st, notifier, log.Logger.With().Str("strategy", name).Logger())
		if err != nil {
			log.Error().Err(err).Str("strategy", name).Msg("execute: strategy setup failed")
			return exitStartupFailure
		}
		strategies = append(strategies, strat)
	}
	if len(strategies) == 0 {
		log.Error().Msg("execute: no strategies configured")
		return exitConfigError
	}

	a := app.New(venues, strategies[0], st, cfg.App.Interval, cfg.App.Timeout, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Msg("cryptoarb starting")
	if err := a.Run(ctx); err != nil {
		log.Error().Err(err).Msg("execute: run failed")
		return exitStartupFailure
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := a.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}
	return exitOK
}

func runBalances(args []string) int {
	fs := flag.NewFlagSet("balances", flag.ExitOnError)
	cfg, err := loadConfig(args, fs)
	if err != nil {
		log.Error().Err(err).Msg("balances: config error")
		return exitConfigError
	}
	venues, err := buildVenues(cfg)
	if err != nil {
		log.Error().Err(err).Msg("balances: venue setup failed")
		return exitStartupFailure
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := venues.RefreshBalances(ctx); err != nil {
		log.Error().Err(err).Msg("balances: refresh failed")
		return exitStartupFailure
	}
	fmt.Print(venues.BalancesString())
	return exitOK
}

func runPlace(args []string) int {
	fs := flag.NewFlagSet("place", flag.ExitOnError)
	exchange := fs.String("exchange", "", "venue name")
	side := fs.String("side", "", "buy or sell")
	amount := fs.Float64("amount", 0, "order amount in quote currency")
	pair := fs.String("pair", "", "currency pair, e.g. LTCUSD")
	price := fs.Float64("price", 0, "limit price (0 = market-safe price)")
	cfg, err := loadConfig(args, fs)
	if err != nil {
		log.Error().Err(err).Msg("place: config error")
		return exitConfigError
	}
	if *exchange == "" || *side == "" || *pair == "" || *amount <= 0 {
		log.Error().Msg("place: --exchange, --side, --pair and --amount are required")
		return exitConfigError
	}

	venues, err := buildVenues(cfg)
	if err != nil {
		log.Error().Err(err).Msg("place: venue setup failed")
		return exitStartupFailure
	}
	v, err := venues.Get(*exchange)
	if err != nil {
		log.Error().Err(err).Msg("place: unknown venue")
		return exitConfigError
	}

	orderSide := model.OrderSide(*side)
	if orderSide != model.Buy && orderSide != model.Sell {
		log.Error().Msg("place: --side must be buy or sell")
		return exitConfigError
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ops.Place(ctx, v, orderSide, *pair, *amount, *price); err != nil {
		log.Error().Err(err).Msg("place: order failed")
		return exitStartupFailure
	}
	fmt.Printf("Success. Balances after:\n%s", v.BalancesString())
	return exitOK
}

func runPrepareArbitrage(args []string) int {
	fs := flag.NewFlagSet("prepare_arbitrage", flag.ExitOnError)
	bottom := fs.Int("min", 20, "balance bottom margin in USD")
	top := fs.Int("max", 30, "balance top margin in USD")
	cfg, err := loadConfig(args, fs)
	if err != nil {
		log.Error().Err(err).Msg("prepare_arbitrage: config error")
		return exitConfigError
	}

	venues, err := buildVenues(cfg)
	if err != nil {
		log.Error().Err(err).Msg("prepare_arbitrage: venue setup failed")
		return exitStartupFailure
	}
	if err := venues.RefreshBalances(context.Background()); err != nil {
		log.Error().Err(err).Msg("prepare_arbitrage: refresh failed")
		return exitStartupFailure
	}

	var pairs []string
	for _, sc := range cfg.Strategies {
		pairs = append(pairs, sc.Pair)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	pcfg := ops.PrepareArbitrageConfig{
		BottomMargin: decimal.NewFromInt(int64(*bottom)),
		TopMargin:    decimal.NewFromInt(int64(*top)),
	}
	if err := ops.PrepareArbitrage(ctx, venues, pairs, pcfg, log.Logger); err != nil {
		log.Error().Err(err).Msg("prepare_arbitrage: failed")
		return exitStartupFailure
	}
	return exitOK
}
