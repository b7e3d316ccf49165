package satellite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoEndpoint is returned when every candidate endpoint failed.
var ErrNoEndpoint = errors.New("no satellite endpoint answered")

const maxBody = 1 << 20

// statusPaths are tried in order to find the status object in a reply.
var statusPaths = []string{"result.dishGetStatus", "result", "dishGetStatus"}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
}

// Client is a thin JSON-RPC client for the terminal's local status API.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// NewClient creates a client; timeout bounds each endpoint attempt.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		http:    &http.Client{},
		timeout: timeout,
	}
}

// GetStatus asks each endpoint ("host:port") in order and returns the first
// status object that parses, together with the endpoint that served it.
func (c *Client) GetStatus(ctx context.Context, endpoints []string) (DishStatus, string, error) {
	if len(endpoints) == 0 {
		return DishStatus{}, "", ErrNoEndpoint
	}
	var errs []error
	for _, ep := range endpoints {
		st, err := c.getStatus(ctx, ep)
		if err == nil {
			return st, ep, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", ep, err))
		if ctx.Err() != nil {
			break
		}
	}
	return DishStatus{}, "", fmt.Errorf("%w: %w", ErrNoEndpoint, errors.Join(errs...))
}

func (c *Client) getStatus(ctx context.Context, endpoint string) (DishStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.postJSON(ctx, "http://"+endpoint+"/", rpcRequest{JSONRPC: "2.0", ID: 1, Method: "get_status"})
	if err != nil {
		return DishStatus{}, err
	}
	return ParseStatus(body)
}

func (c *Client) postJSON(ctx context.Context, url string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if msg != "" {
			return nil, fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return nil, fmt.Errorf("request failed: %s", res.Status)
	}
	return data, nil
}

// ParseStatus locates the status object in a reply and extracts the fields
// that are present. Fields of the wrong type are skipped.
func ParseStatus(body []byte) (DishStatus, error) {
	if !gjson.ValidBytes(body) {
		return DishStatus{}, fmt.Errorf("invalid JSON reply")
	}
	if e := gjson.GetBytes(body, "error"); e.Exists() && e.Type != gjson.Null {
		return DishStatus{}, fmt.Errorf("rpc error: %s", e.Get("message").String())
	}

	var obj gjson.Result
	for _, p := range statusPaths {
		r := gjson.GetBytes(body, p)
		if r.IsObject() {
			obj = r
			break
		}
	}
	if !obj.Exists() {
		return DishStatus{}, fmt.Errorf("status object not found")
	}

	var st DishStatus
	st.PopPingLatencyMs = number(obj, "popPingLatencyMs")
	st.SNR = number(obj, "snr")
	st.SecondsToNonemptySlot = number(obj, "secondsToFirstNonemptySlot")
	st.PopPingDropRate = number(obj, "popPingDropRate")
	st.CurrentlyObstructed = boolean(obj, "obstructionStats.currentlyObstructed")
	st.FractionObstructed = number(obj, "obstructionStats.fractionObstructed")
	st.Heating = boolean(obj, "alerts.isHeating")
	st.DownlinkBps = number(obj, "downlinkThroughputBps")
	st.UplinkBps = number(obj, "uplinkThroughputBps")
	return st, nil
}

func number(obj gjson.Result, path string) *float64 {
	r := obj.Get(path)
	if r.Type != gjson.Number {
		return nil
	}
	v := r.Float()
	return &v
}

func boolean(obj gjson.Result, path string) *bool {
	r := obj.Get(path)
	if !r.IsBool() {
		return nil
	}
	v := r.Bool()
	return &v
}
