package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the REST client for the engine pull API
type Client struct {
	http *resty.Client
}

// NewClient creates a new engine REST client
func NewClient(apiURL string, timeout time.Duration) *Client {
	client := resty.New()
	client.SetBaseURL(apiURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	return &Client{http: client}
}

// SetSessionToken attaches the opaque engine credential to subsequent requests
func (c *Client) SetSessionToken(token string) {
	c.http.SetAuthToken(token)
}

// GetBalance fetches the account balance
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var out BalanceResponse
	if err := c.get(ctx, "/api/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

// GetBotStatus fetches the bot run state
func (c *Client) GetBotStatus(ctx context.Context) (*BotStatusResponse, error) {
	var out BotStatusResponse
	if err := c.get(ctx, "/api/bot/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPerformance fetches the metrics bag. Non-numeric fields the engine
// mixes into the payload (run flag, symbol) are dropped.
func (c *Client) GetPerformance(ctx context.Context) (Metrics, error) {
	var raw map[string]interface{}
	if err := c.get(ctx, "/api/performance/metrics", nil, &raw); err != nil {
		return nil, err
	}
	return MetricsFromPayload(raw), nil
}

// GetTradeHistory fetches recent trades, most recent first
func (c *Client) GetTradeHistory(ctx context.Context, limit int) ([]Trade, error) {
	var out TradeHistoryResponse
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if err := c.get(ctx, "/api/trades", params, &out); err != nil {
		return nil, err
	}
	return out.Trades, nil
}

// GetSignals fetches recent strategy signals, most recent first
func (c *Client) GetSignals(ctx context.Context, limit int) ([]Signal, error) {
	var out SignalsResponse
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if err := c.get(ctx, "/api/trades/signals", params, &out); err != nil {
		return nil, err
	}
	return out.Signals, nil
}

// StartBot asks the engine to start automated trading
func (c *Client) StartBot(ctx context.Context) (*CommandResponse, error) {
	var out CommandResponse
	if err := c.post(ctx, "/api/start", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopBot asks the engine to stop automated trading
func (c *Client) StopBot(ctx context.Context) (*CommandResponse, error) {
	var out CommandResponse
	if err := c.post(ctx, "/api/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteManualTrade places a one-shot trade in the given direction
func (c *Client) ExecuteManualTrade(ctx context.Context, direction string, amount float64) (*TradeReceipt, error) {
	var path string
	switch direction {
	case DirectionRise:
		path = "/api/manual/rise"
	case DirectionFall:
		path = "/api/manual/fall"
	default:
		return nil, fmt.Errorf("invalid trade direction %q", direction)
	}

	body := map[string]float64{"amount": amount}
	var out TradeReceipt
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	req := c.http.R().SetContext(ctx).SetResult(out)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("engine GET %s: %w", path, err)
	}
	if resp.IsError() {
		return apiError(path, resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("engine POST %s: %w", path, err)
	}
	if resp.IsError() {
		return apiError(path, resp)
	}
	return nil
}

// apiError extracts the engine error detail from a non-2xx response
func apiError(path string, resp *resty.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := fastJSON.Unmarshal(resp.Body(), &body); err == nil && body.Detail != "" {
		return fmt.Errorf("engine %s: status %d: %s", path, resp.StatusCode(), body.Detail)
	}
	return fmt.Errorf("engine %s: status %d", path, resp.StatusCode())
}
