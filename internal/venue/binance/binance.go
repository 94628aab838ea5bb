// Package binance implements session.Session against Binance's spot REST
// and websocket APIs. Ported in spirit from web3guy0-polybot's
// internal/binance client (REST + websocket split, reconnect loop), wired
// here into the session.Session contract instead of the teacher's
// callback-based price feed.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/cryptoarb/internal/model"
	"github.com/web3guy0/cryptoarb/internal/venue/session"
)

const (
	restBaseURL = "https://api.binance.com"
	wsBaseURL   = "wss://stream.binance.com:9443/ws"
)

// Config holds the credentials and rate-limit budget for a Binance
// session.
type Config struct {
	APIKey    string
	APISecret string
	RateLimit session.RateLimit
}

// Session implements session.Session against Binance.
type Session struct {
	cfg  Config
	http *session.HTTPTransport
	ws   *session.WebsocketTransport
	log  zerolog.Logger
}

// New builds a Binance session.
func New(cfg Config, log zerolog.Logger) *Session {
	s := &Session{cfg: cfg, log: log.With().Str("venue", "binance").Logger()}
	s.http = session.NewHTTPTransport("binance", session.HTTPTransportConfig{
		BaseURL:   restBaseURL,
		RateLimit: cfg.RateLimit,
		Sign:      s.sign,
	})
	s.ws = session.NewWebsocketTransport(wsBaseURL, nil, s.log)
	return s
}

func (s *Session) Name() string { return "binance" }

func (s *Session) sign(req *http.Request) error {
	if s.cfg.APIKey == "" {
		return nil
	}
	req.Header.Set("X-MBX-APIKEY", s.cfg.APIKey)
	q := req.URL.Query()
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	mac := hmac.New(sha256.New, []byte(s.cfg.APISecret))
	mac.Write([]byte(q.Encode()))
	q.Set("signature", hex.EncodeToString(mac.Sum(nil)))
	req.URL.RawQuery = q.Encode()
	return nil
}

type balanceEntry struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

func (s *Session) FetchBalances(ctx context.Context) (session.Balances, error) {
	data, err := s.http.Get(ctx, "/api/v3/account", "")
	if err != nil {
		return nil, fmt.Errorf("binance: fetch balances: %w", err)
	}
	var resp struct {
		Balances []balanceEntry `json:"balances"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("binance: decode balances: %w", err)
	}
	out := make(session.Balances, len(resp.Balances))
	for _, b := range resp.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		out[b.Asset] = free
	}
	return out, nil
}

func toBinanceSymbol(pair string) string {
	pn := model.ParsePairName(pair)
	return pn.Quote + pn.Base
}

func (s *Session) FetchPair(ctx context.Context, pair string) (session.TickerPoint, error) {
	symbol := toBinanceSymbol(pair)
	data, err := s.http.Get(ctx, "/api/v3/ticker/bookTicker", "symbol="+url.QueryEscape(symbol))
	if err != nil {
		return session.TickerPoint{}, fmt.Errorf("binance: fetch pair %s: %w", pair, err)
	}
	var resp struct {
		AskPrice string `json:"askPrice"`
		AskQty   string `json:"askQty"`
		BidPrice string `json:"bidPrice"`
		BidQty   string `json:"bidQty"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.TickerPoint{}, fmt.Errorf("binance: decode ticker %s: %w", pair, err)
	}
	ask, _ := strconv.ParseFloat(resp.AskPrice, 64)
	askVol, _ := strconv.ParseFloat(resp.AskQty, 64)
	bid, _ := strconv.ParseFloat(resp.BidPrice, 64)
	bidVol, _ := strconv.ParseFloat(resp.BidQty, 64)
	return session.TickerPoint{
		Pair:      pair,
		AskPrice:  ask,
		AskVolume: askVol,
		BidPrice:  bid,
		BidVolume: bidVol,
		Timestamp: time.Now(),
	}, nil
}

func (s *Session) Place(ctx context.Context, req session.PlaceRequest) (session.PlacedOrder, error) {
	v := url.Values{}
	v.Set("symbol", toBinanceSymbol(req.Pair))
	v.Set("side", fmt.Sprintf("%s", req.Side))
	v.Set("type", fmt.Sprintf("%s", req.Type))
	v.Set("quantity", req.Quote.String())
	if req.Type == "limit" {
		v.Set("price", strconv.FormatFloat(req.Price, 'f', -1, 64))
		v.Set("timeInForce", "GTC")
	}
	v.Set("newClientOrderId", req.ClientRef)

	data, err := s.http.Post(ctx, "/api/v3/order?"+v.Encode(), nil)
	if err != nil {
		return session.PlacedOrder{}, fmt.Errorf("binance: place order: %w", err)
	}
	var resp struct {
		OrderID int64  `json:"orderId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.PlacedOrder{}, fmt.Errorf("binance: decode place response: %w", err)
	}
	return session.PlacedOrder{
		VenueOrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:       resp.Status,
	}, nil
}

func (s *Session) Cancel(ctx context.Context, venueOrderID string) error {
	if venueOrderID == "" {
		return fmt.Errorf("binance: cancel: empty venue order id")
	}
	v := url.Values{}
	v.Set("orderId", venueOrderID)
	_, err := s.http.Post(ctx, "/api/v3/order?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("binance: cancel %s: %w", venueOrderID, err)
	}
	return nil
}

func (s *Session) FetchStatus(ctx context.Context, venueOrderID string) (session.OrderStatus, error) {
	if venueOrderID == "" {
		return session.OrderStatus{}, fmt.Errorf("binance: fetch status: empty venue order id")
	}
	data, err := s.http.Get(ctx, "/api/v3/order", "orderId="+url.QueryEscape(venueOrderID))
	if err != nil {
		return session.OrderStatus{}, fmt.Errorf("binance: fetch status %s: %w", venueOrderID, err)
	}
	var resp struct {
		Status          string `json:"status"`
		ExecutedQty     string `json:"executedQty"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return session.OrderStatus{}, fmt.Errorf("binance: decode status response: %w", err)
	}
	filled, _ := decimal.NewFromString(resp.ExecutedQty)
	return session.OrderStatus{
		VenueOrderID: venueOrderID,
		Status:       resp.Status,
		FilledQuote:  filled,
	}, nil
}

// Subscribe streams book-ticker updates for the given pairs over a
// combined websocket stream.
func (s *Session) Subscribe(ctx context.Context, pairs []string) (<-chan session.TickerPoint, error) {
	out := make(chan session.TickerPoint, 64)
	streams := make([]string, 0, len(pairs))
	symbolToPair := make(map[string]string, len(pairs))
	for _, p := range pairs {
		sym := toBinanceSymbol(p)
		streams = append(streams, fmt.Sprintf("%s@bookTicker", strings.ToLower(sym)))
		symbolToPair[sym] = p
	}

	if err := s.ws.Connect(ctx); err != nil {
		return nil, fmt.Errorf("binance: subscribe: %w", err)
	}
	if err := s.ws.Send(map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": streams,
		"id":     1,
	}); err != nil {
		return nil, fmt.Errorf("binance: subscribe request: %w", err)
	}

	go s.ws.RecvForever(ctx, func(data []byte) {
		var msg struct {
			Symbol   string `json:"s"`
			AskPrice string `json:"a"`
			AskQty   string `json:"A"`
			BidPrice string `json:"b"`
			BidQty   string `json:"B"`
		}
		if err := json.Unmarshal(data, &msg); err != nil || msg.Symbol == "" {
			return
		}
		pair, ok := symbolToPair[msg.Symbol]
		if !ok {
			return
		}
		ask, _ := strconv.ParseFloat(msg.AskPrice, 64)
		askVol, _ := strconv.ParseFloat(msg.AskQty, 64)
		bid, _ := strconv.ParseFloat(msg.BidPrice, 64)
		bidVol, _ := strconv.ParseFloat(msg.BidQty, 64)
		select {
		case out <- session.TickerPoint{
			Pair: pair, AskPrice: ask, AskVolume: askVol,
			BidPrice: bid, BidVolume: bidVol, Timestamp: time.Now(),
		}:
		default:
		}
	})

	go func() {
		<-ctx.Done()
		close(out)
	}()

	return out, nil
}

func (s *Session) Close() error {
	return s.ws.Close()
}
