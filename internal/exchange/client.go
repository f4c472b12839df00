package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"spotscheduler/internal/clock"
	"spotscheduler/internal/model"
)

const (
	ordersEndpoint  = "/api/v5/trade/order"
	balanceEndpoint = "/api/v5/account/balance"
	timeEndpoint    = "/api/v5/public/time"
)

// Client is a signed REST client against a live OKX-style spot exchange.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	clock   clock.Clock
}

// NewClient creates a Client. timeout bounds every request round-trip.
func NewClient(baseURL string, creds Credentials, timeout time.Duration, clk clock.Clock) *Client {
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
		clock:   clk,
	}
}

// Submit places o against the exchange. On success it fills in o.ID and sets
// o.State to Live; on a transport error or rejection it sets o.State to
// Failed and returns an error describing why.
func (c *Client) Submit(ctx context.Context, o *model.Order, expTimeoutSeconds int) error {
	body := map[string]string{
		"instId":  o.InstID,
		"tdMode":  o.TdMode,
		"clOrdId": o.ClOrdID,
		"side":    string(o.Side),
		"ordType": string(o.OrdType),
		"sz":      strconv.FormatFloat(o.Sz, 'f', -1, 64),
	}
	if o.OrdType == model.OrderTypeLimit || o.OrdType == model.OrderTypeIOC {
		body["px"] = strconv.FormatFloat(o.Px, 'f', -1, 64)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	headers := map[string]string{}
	if o.Side == model.SideBuy && expTimeoutSeconds > 0 {
		base := c.clock.Now()
		if st, err := c.ServerTime(ctx); err == nil {
			base = st
		}
		headers["expTime"] = strconv.FormatInt(base.Add(time.Duration(expTimeoutSeconds)*time.Second).UnixMilli(), 10)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, ordersEndpoint, raw, headers)
	if err != nil {
		o.State = model.StateFailed
		return err
	}
	if status >= 300 {
		o.State = model.StateFailed
		return fmt.Errorf("order submit rejected: status=%d body=%s", status, respBody)
	}

	var resp apiResponse[orderAck]
	if err := json.Unmarshal(respBody, &resp); err != nil {
		o.State = model.StateFailed
		return fmt.Errorf("decode order ack: %w", err)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		o.State = model.StateFailed
		return fmt.Errorf("order rejected: code=%s msg=%s", resp.Code, resp.Msg)
	}
	ack := resp.Data[0]
	if ack.SCode != "" && ack.SCode != "0" {
		o.State = model.StateFailed
		return fmt.Errorf("order rejected: sCode=%s sMsg=%s", ack.SCode, ack.SMsg)
	}
	o.ID = ack.OrdID
	o.State = model.StateLive
	return nil
}

// PollState fetches the current state of o from the exchange.
func (c *Client) PollState(ctx context.Context, o *model.Order) (model.OrderState, error) {
	if o.ID == "" {
		return o.State, fmt.Errorf("cannot poll order with empty exchange id")
	}
	path := fmt.Sprintf("%s?instId=%s&ordId=%s", ordersEndpoint, o.InstID, o.ID)
	respBody, status, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return model.StateCancelled, err
	}
	if status >= 300 {
		return model.StateCancelled, fmt.Errorf("poll order failed: status=%d", status)
	}
	var resp apiResponse[orderDetail]
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Data) == 0 {
		return model.StateCancelled, fmt.Errorf("decode order detail: %w", err)
	}
	return toOrderState(resp.Data[0].State), nil
}

// Balance returns the available balance of currency ccy.
func (c *Client) Balance(ctx context.Context, ccy string) (float64, error) {
	path := fmt.Sprintf("%s?ccy=%s", balanceEndpoint, ccy)
	respBody, status, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return 0, err
	}
	if status >= 300 {
		return 0, fmt.Errorf("balance query failed: status=%d", status)
	}
	var resp apiResponse[balancePayload]
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Data) == 0 || len(resp.Data[0].Details) == 0 {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	var avail float64
	fmt.Sscanf(resp.Data[0].Details[0].AvailBal, "%f", &avail)
	return avail, nil
}

// ServerTime returns the exchange's current time, used to compute expTime
// headers relative to exchange clock rather than local clock skew.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, timeEndpoint, nil, nil)
	if err != nil {
		return time.Time{}, err
	}
	if status >= 300 {
		return time.Time{}, fmt.Errorf("server time query failed: status=%d", status)
	}
	var resp apiResponse[serverTime]
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Data) == 0 {
		return time.Time{}, fmt.Errorf("decode server time: %w", err)
	}
	ms, err := strconv.ParseInt(resp.Data[0].TS, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, extraHeaders map[string]string) ([]byte, int, error) {
	ts := Timestamp(c.clock.Now())
	sig := Sign(c.creds.APISecret, ts, method, path, string(body))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", c.creds.APIKey)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.creds.Passphrase)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-SIGN", sig)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return respBody, resp.StatusCode, nil
}
