// Package kraken implements session.Session against Kraken's REST API.
// Unlike the binance adapter it has no streaming support, so Subscribe
// falls back to polling FetchPair on an interval — a fallback the session
// contract explicitly allows for REST-only venues.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

const restBaseURL = "https://api.kraken.com"

// Config holds the credentials and rate-limit budget for a Kraken session.
type Config struct {
	APIKey    string
	APISecret string
	RateLimit session.RateLimit
	// PollInterval governs the Subscribe fallback's poll cadence.
	PollInterval time.Duration
}

// Session implements session.Session against Kraken.
type Session struct {
	cfg  Config
	http *session.HTTPTransport
	log  zerolog.Logger
}

// New builds a Kraken session.
func New(cfg Config, log zerolog.Logger) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	s := &Session{cfg: cfg, log: log.With().Str("venue", "kraken").Logger()}
	s.http = session.NewHTTPTransport("kraken", session.HTTPTransportConfig{
		BaseURL:   restBaseURL,
		RateLimit: cfg.RateLimit,
		Sign:      s.sign,
	})
	return s
}

func (s *Session) Name() string { return "kraken" }

// sign implements Kraken's HMAC-SHA512-over-SHA256(nonce+body) private
// endpoint signature scheme.
func (s *Session) sign(req *http.Request) error {
	if s.cfg.APIKey == "" {
		return nil
	}
	nonce := strconv.FormatInt(time.Now().UnixNano()/int64(time.Millisecond), 10)
	q := req.URL.Query()
	q.Set("nonce", nonce)
	req.URL.RawQuery = q.Encode()

	secret, err := base64.StdEncoding.DecodeString(s.cfg.APISecret)
	if err != nil {
		return fmt.Errorf("kraken: decode api secret: %w", err)
	}
	shaSum := sha256.Sum256([]byte(nonce + req.URL.RawQuery))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(req.URL.Path))
	mac.Write(shaSum[:])
	req.Header.Set("API-Key", s.cfg.APIKey)
	req.Header.Set("API-Sign", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return nil
}

func (s *Session) FetchBalances(ctx context.Context) (session.Balances, error) {
	data, err := s.http.Post(ctx, "/0/private/Balance", nil)
	if err != nil {
		return nil, fmt.Errorf("kraken: fetch balances: %w", err)
	}
	var resp struct {
		Error  []string                   `json:"error"`
		Result map[string]decimal.Decimal `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("kraken: decode balances: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken: %v", resp.Error)
	}
	return session.Balances(resp.Result), nil
}

func toKrakenPair(pair string) string {
	pn := model.ParsePairName(pair)
	return pn.Quote + pn.Base
}

func (s *Session) FetchPair(ctx context.Context, pair string) (session.TickerPoint, error) {
	kp := toKrakenPair(pair)
	data, err := s.http.Get(ctx, "/0/public/Ticker", "pair="+url.QueryEscape(kp))
	if err != nil {
		return session.TickerPoint{}, fmt.Errorf("kraken: fetch pair %s: %w", pair, err)
	}
	var resp struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Ask []string `json:"a"`
			Bid []string `json:"b"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.TickerPoint{}, fmt.Errorf("kraken: decode ticker %s: %w", pair, err)
	}
	if len(resp.Error) > 0 {
		return session.TickerPoint{}, fmt.Errorf("kraken: %v", resp.Error)
	}
	for _, entry := range resp.Result {
		ask, _ := strconv.ParseFloat(entry.Ask[0], 64)
		askVol, _ := strconv.ParseFloat(entry.Ask[2], 64)
		bid, _ := strconv.ParseFloat(entry.Bid[0], 64)
		bidVol, _ := strconv.ParseFloat(entry.Bid[2], 64)
		return session.TickerPoint{
			Pair: pair, AskPrice: ask, AskVolume: askVol,
			BidPrice: bid, BidVolume: bidVol, Timestamp: time.Now(),
		}, nil
	}
	return session.TickerPoint{}, fmt.Errorf("kraken: empty ticker response for %s", pair)
}

func (s *Session) Place(ctx context.Context, req session.PlaceRequest) (session.PlacedOrder, error) {
	v := url.Values{}
	v.Set("pair", toKrakenPair(req.Pair))
	v.Set("type", req.Side)
	v.Set("ordertype", req.Type)
	v.Set("volume", req.Quote.String())
	if req.Type == "limit" {
		v.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
	}
	v.Set("userref", req.ClientRef)

	data, err := s.http.Post(ctx, "/0/private/AddOrder?"+v.Encode(), nil)
	if err != nil {
		return session.PlacedOrder{}, fmt.Errorf("kraken: place order: %w", err)
	}
	var resp struct {
		Error  []string `json:"error"`
		Result struct {
			TxID []string `json:"txid"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.PlacedOrder{}, fmt.Errorf("kraken: decode place response: %w", err)
	}
	if len(resp.Error) > 0 {
		return session.PlacedOrder{}, fmt.Errorf("kraken: %v", resp.Error)
	}
	if len(resp.Result.TxID) == 0 {
		return session.PlacedOrder{}, fmt.Errorf("kraken: no txid returned")
	}
	return session.PlacedOrder{VenueOrderID: resp.Result.TxID[0], Status: "pending"}, nil
}

func (s *Session) Cancel(ctx context.Context, venueOrderID string) error {
	if venueOrderID == "" {
		return fmt.Errorf("kraken: cancel: empty venue order id")
	}
	v := url.Values{}
	v.Set("txid", venueOrderID)
	data, err := s.http.Post(ctx, "/0/private/CancelOrder?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("kraken: cancel %s: %w", venueOrderID, err)
	}
	var resp struct {
		Error []string `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err == nil && len(resp.Error) > 0 {
		return fmt.Errorf("kraken: %v", resp.Error)
	}
	return nil
}

func (s *Session) FetchStatus(ctx context.Context, venueOrderID string) (session.OrderStatus, error) {
	if venueOrderID == "" {
		return session.OrderStatus{}, fmt.Errorf("kraken: fetch status: empty venue order id")
	}
	v := url.Values{}
	v.Set("txid", venueOrderID)
	data, err := s.http.Post(ctx, "/0/private/QueryOrders?"+v.Encode(), nil)
	if err != nil {
		return session.OrderStatus{}, fmt.Errorf("kraken: fetch status %s: %w", venueOrderID, err)
	}
	var resp struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Status   string          `json:"status"`
			VolExec  decimal.Decimal `json:"vol_exec"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.OrderStatus{}, fmt.Errorf("kraken: decode status response: %w", err)
	}
	if len(resp.Error) > 0 {
		return session.OrderStatus{}, fmt.Errorf("kraken: %v", resp.Error)
	}
	entry, ok := resp.Result[venueOrderID]
	if !ok {
		return session.OrderStatus{}, fmt.Errorf("kraken: unknown order %s", venueOrderID)
	}
	return session.OrderStatus{VenueOrderID: venueOrderID, Status: entry.Status, FilledQuote: entry.VolExec}, nil
}

// Subscribe polls FetchPair on cfg.PollInterval since Kraken's public REST
// API is the only surface this adapter implements.
func (s *Session) Subscribe(ctx context.Context, pairs []string) (<-chan session.TickerPoint, error) {
	out := make(chan session.TickerPoint, 64)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, pair := range pairs {
					point, err := s.FetchPair(ctx, pair)
					if err != nil {
						s.log.Warn().Err(err).Str("pair", pair).Msg("poll failed")
						continue
					}
					select {
					case out <- point:
					default:
					}
				}
			}
		}
	}()
	return out, nil
}

func (s *Session) Close() error { return nil }
