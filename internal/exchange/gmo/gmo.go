// Package gmo implements the GMO Coin REST API: public market data plus the
// HMAC-signed private endpoints the bot trades through.
package gmo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/types"
)

const (
	defaultPublicURL  = "https://api.coin.z.com/public"
	defaultPrivateURL = "https://api.coin.z.com/private"

	// GMO needs a beat between order submission and the fill showing up in
	// the openPositions list.
	fillSettleWait = time.Second
)

type Params struct {
	Mode       string // DRY_RUN or LIVE
	APIKey     string
	APISecret  string
	PublicURL  string
	PrivateURL string
	Timeout    time.Duration
	Location   *time.Location
}

type Client struct {
	p        Params
	http     *http.Client
	notifier interfaces.Notifier
	now      func() time.Time
}

var _ interfaces.Exchange = (*Client)(nil)

func New(p Params, notifier interfaces.Notifier) *Client {
	if p.PublicURL == "" {
		p.PublicURL = defaultPublicURL
	}
	if p.PrivateURL == "" {
		p.PrivateURL = defaultPrivateURL
	}
	if p.Timeout == 0 {
		p.Timeout = 10 * time.Second
	}
	if p.Location == nil {
		p.Location = time.FixedZone("JST", 9*3600)
	}
	return &Client{
		p:        p,
		http:     &http.Client{Timeout: p.Timeout},
		notifier: notifier,
		now:      time.Now,
	}
}

// envelope is the common GMO response wrapper.
type envelope struct {
	Status   int             `json:"status"`
	Data     json.RawMessage `json:"data"`
	Messages []struct {
		MessageCode   string `json:"message_code"`
		MessageString string `json:"message_string"`
	} `json:"messages"`
}

func (c *Client) request(ctx context.Context, method, base, path, query, body string, signed bool) (json.RawMessage, error) {
	u := base + path
	if query != "" {
		u += "?" + query
	}

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	if signed {
		ts := apiTimestamp(c.now())
		req.Header.Set("API-KEY", c.p.APIKey)
		req.Header.Set("API-TIMESTAMP", ts)
		req.Header.Set("API-SIGN", sign(c.p.APISecret, ts, method, path, body))
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gmo %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("gmo %s %s: decode: %w", method, path, err)
	}
	if resp.StatusCode != http.StatusOK || env.Status != 0 || env.Data == nil {
		msg := ""
		if len(env.Messages) > 0 {
			msg = env.Messages[0].MessageString
		}
		return nil, fmt.Errorf("gmo %s %s: http %d status %d: %s", method, path, resp.StatusCode, env.Status, msg)
	}
	return env.Data, nil
}

func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"symbol": {symbol}}
	data, err := c.request(ctx, http.MethodGet, c.p.PublicURL, "/v1/ticker", q.Encode(), "", false)
	if err != nil {
		return 0, err
	}
	var tickers []struct {
		Ask string `json:"ask"`
	}
	if err := json.Unmarshal(data, &tickers); err != nil {
		return 0, fmt.Errorf("gmo ticker: %w", err)
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("gmo ticker: empty response for %s", symbol)
	}
	return strconv.ParseFloat(tickers[0].Ask, 64)
}

func (c *Client) AvailableCapital(ctx context.Context) (float64, error) {
	data, err := c.request(ctx, http.MethodGet, c.p.PrivateURL, "/v1/account/margin", "", "", true)
	if err != nil {
		return 0, err
	}
	var margin struct {
		AvailableAmount string `json:"availableAmount"`
	}
	if err := json.Unmarshal(data, &margin); err != nil {
		return 0, fmt.Errorf("gmo margin: %w", err)
	}
	return strconv.ParseFloat(margin.AvailableAmount, 64)
}

type rawPosition struct {
	PositionID int64  `json:"positionId"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Size       string `json:"size"`
	Price      string `json:"price"`
}

func (c *Client) OpenPositions(ctx context.Context, symbol string) ([]types.Position, error) {
	q := url.Values{"symbol": {symbol}, "page": {"1"}, "count": {"100"}}
	data, err := c.request(ctx, http.MethodGet, c.p.PrivateURL, "/v1/openPositions", q.Encode(), "", true)
	if err != nil {
		return nil, err
	}
	var page struct {
		List []rawPosition `json:"list"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("gmo openPositions: %w", err)
	}
	// A missing list means flat, not an error.
	out := make([]types.Position, 0, len(page.List))
	for _, rp := range page.List {
		size, _ := strconv.ParseFloat(rp.Size, 64)
		price, _ := strconv.ParseFloat(rp.Price, 64)
		out = append(out, types.Position{
			PositionID: rp.PositionID,
			Symbol:     rp.Symbol,
			Side:       rp.Side,
			Size:       size,
			Price:      price,
		})
	}
	return out, nil
}

// CloseAllPositions settles every open position with an opposing market
// close. Per-position close failures are logged and notified but do not fail
// the call; the next cycle reconciles against a fresh position read.
func (c *Client) CloseAllPositions(ctx context.Context, symbol string) error {
	positions, err := c.OpenPositions(ctx, symbol)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		c.notify(ctx, "no open positions to settle", interfaces.SeverityInfo)
		return nil
	}

	for _, pos := range positions {
		side := types.SideSell
		if pos.Side == types.SideSell {
			side = types.SideBuy
		}
		if err := c.closePosition(ctx, pos, side); err != nil {
			logger.ErrorWithErr(ctx, "Failed to close position", err,
				"symbol", pos.Symbol, "position_id", pos.PositionID, "side", pos.Side, "size", pos.Size)
			c.notify(ctx, fmt.Sprintf("failed to close %s position %d: %v", pos.Side, pos.PositionID, err), interfaces.SeverityError)
			continue
		}
		logger.Info(ctx, "Position settled", "symbol", pos.Symbol, "side", pos.Side, "size", pos.Size)
		c.notify(ctx, fmt.Sprintf("%s (%s) position settled", pos.Symbol, pos.Side), interfaces.SeverityInfo)
	}
	return nil
}

func (c *Client) closePosition(ctx context.Context, pos types.Position, side string) error {
	if c.p.Mode == "DRY_RUN" {
		logger.Info(ctx, "DRY_RUN close simulated", "position_id", pos.PositionID, "side", side)
		return nil
	}
	body, _ := json.Marshal(map[string]any{
		"symbol":        pos.Symbol,
		"side":          side,
		"executionType": "MARKET",
		"timeInForce":   "",
		"price":         "",
		"settlePosition": []map[string]any{
			{"positionId": pos.PositionID, "size": strconv.FormatFloat(pos.Size, 'f', -1, 64)},
		},
	})
	_, err := c.request(ctx, http.MethodPost, c.p.PrivateURL, "/v1/closeOrder", "", string(body), true)
	return err
}

func (c *Client) PlaceMarketOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if c.p.Mode == "DRY_RUN" {
		return types.OrderResp{
			OrderID: fmt.Sprintf("SIM-%d", c.now().UnixNano()),
			Status:  "SIMULATED",
			Message: "dry-run",
		}, nil
	}

	body, _ := json.Marshal(map[string]any{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"executionType": "MARKET",
		"timeInForce":   "FAK",
		"price":         "",
		"losscutPrice":  "",
		"size":          strconv.FormatFloat(req.Size, 'f', -1, 64),
	})
	data, err := c.request(ctx, http.MethodPost, c.p.PrivateURL, "/v1/order", "", string(body), true)
	if err != nil {
		return types.OrderResp{}, err
	}
	var orderID string
	if err := json.Unmarshal(data, &orderID); err != nil {
		// Some deployments return the id as a bare number.
		var n int64
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return types.OrderResp{}, fmt.Errorf("gmo order: %w", err)
		}
		orderID = strconv.FormatInt(n, 10)
	}

	// Report the entry price once the fill shows up.
	time.Sleep(fillSettleWait)
	if positions, perr := c.OpenPositions(ctx, req.Symbol); perr == nil && len(positions) > 0 {
		c.notify(ctx, fmt.Sprintf("%s %s at %.0f", req.Symbol, req.Side, positions[0].Price), interfaces.SeverityInfo)
	}

	return types.OrderResp{OrderID: orderID, Status: "PLACED", Message: "ok"}, nil
}

type rawKline struct {
	OpenTime string `json:"openTime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

// Candles fetches hourly klines for `days` consecutive date labels ending at
// endDate (YYYYMMDD), sorted ascending and deduplicated by open time.
func (c *Client) Candles(ctx context.Context, symbol, interval, endDate string, days int) ([]types.Candle, error) {
	cur, err := time.ParseInLocation("20060102", endDate, c.p.Location)
	if err != nil {
		return nil, fmt.Errorf("gmo klines: bad end date %q: %w", endDate, err)
	}

	var all []types.Candle
	for i := 0; i < days; i++ {
		day, err := c.fetchKlines(ctx, symbol, interval, cur.Format("20060102"))
		if err != nil {
			return nil, err
		}
		all = append(all, day...)
		cur = cur.AddDate(0, 0, -1)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Ts < all[j].Ts })
	deduped := all[:0]
	for _, bar := range all {
		if n := len(deduped); n > 0 && deduped[n-1].Ts == bar.Ts {
			deduped[n-1] = bar
			continue
		}
		deduped = append(deduped, bar)
	}
	return deduped, nil
}

func (c *Client) fetchKlines(ctx context.Context, symbol, interval, date string) ([]types.Candle, error) {
	q := url.Values{"symbol": {symbol}, "interval": {interval}, "date": {date}}
	data, err := c.request(ctx, http.MethodGet, c.p.PublicURL, "/v1/klines", q.Encode(), "", false)
	if err != nil {
		return nil, err
	}
	var raw []rawKline
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("gmo klines: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("gmo klines: no data for %s %s", symbol, date)
	}
	out := make([]types.Candle, 0, len(raw))
	for _, rk := range raw {
		ms, err := strconv.ParseInt(rk.OpenTime, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gmo klines: bad openTime %q: %w", rk.OpenTime, err)
		}
		o, _ := strconv.ParseFloat(rk.Open, 64)
		h, _ := strconv.ParseFloat(rk.High, 64)
		l, _ := strconv.ParseFloat(rk.Low, 64)
		cl, _ := strconv.ParseFloat(rk.Close, 64)
		v, _ := strconv.ParseFloat(rk.Volume, 64)
		out = append(out, types.Candle{Ts: ms / 1000, Open: o, High: h, Low: l, Close: cl, Vol: v})
	}
	return out, nil
}

// LastTradeOutcome reads the two most recent executions: index 0 is the
// settlement, index 1 the entry that opened the round-trip.
func (c *Client) LastTradeOutcome(ctx context.Context, symbol string) (types.TradeOutcome, error) {
	q := url.Values{"symbol": {symbol}, "page": {"1"}, "count": {"2"}}
	data, err := c.request(ctx, http.MethodGet, c.p.PrivateURL, "/v1/latestExecutions", q.Encode(), "", true)
	if err != nil {
		return types.TradeOutcome{}, err
	}
	var page struct {
		List []struct {
			ExecutionID int64  `json:"executionId"`
			Side        string `json:"side"`
			Price       string `json:"price"`
			LossGain    string `json:"lossGain"`
			Timestamp   string `json:"timestamp"`
		} `json:"list"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return types.TradeOutcome{}, fmt.Errorf("gmo executions: %w", err)
	}
	if len(page.List) < 2 {
		return types.TradeOutcome{}, fmt.Errorf("gmo executions: need 2 executions, got %d", len(page.List))
	}
	closeExec, entry := page.List[0], page.List[1]

	ts, err := time.Parse(time.RFC3339, entry.Timestamp)
	if err != nil {
		return types.TradeOutcome{}, fmt.Errorf("gmo executions: bad timestamp %q: %w", entry.Timestamp, err)
	}
	local := ts.In(c.p.Location)

	position := 1
	if entry.Side == types.SideSell {
		position = -1
	}
	orderPrice, _ := strconv.ParseInt(entry.Price, 10, 64)
	closePrice, _ := strconv.ParseInt(closeExec.Price, 10, 64)
	lossGain, _ := strconv.ParseInt(closeExec.LossGain, 10, 64)

	return types.TradeOutcome{
		ExecutionID: closeExec.ExecutionID,
		Date:        local.Format("2006-01-02") + fmt.Sprintf(" %d:00:00", local.Hour()),
		Position:    position,
		OrderPrice:  orderPrice,
		ClosePrice:  closePrice,
		LossGain:    lossGain,
	}, nil
}

func (c *Client) notify(ctx context.Context, msg, severity string) {
	if c.notifier != nil {
		c.notifier.Notify(ctx, msg, severity)
	}
}
