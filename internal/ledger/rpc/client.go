// Package rpc is a thin typed binding to an EVM-style ledger's JSON-RPC
// surface. Calls are blocking round-trips bounded by the configured per-call
// timeout; the caller decides how failures propagate.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
)

// LedgerClient is the RPC surface the sync core depends on.
type LedgerClient interface {
	GetBlockNumber(ctx context.Context) (int64, error)
	GetBlockByNumber(ctx context.Context, blockNumber int64) (*Block, error)
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*TransactionReceipt, error)
	Call(ctx context.Context, msg CallMsg) (string, error)
	SendTransaction(ctx context.Context, msg CallMsg) (string, error)
	WaitForReceipt(ctx context.Context, hash string) (*TransactionReceipt, error)
}

type Client struct {
	httpClient   *http.Client
	rpcURL       string
	requestID    atomic.Int64
	limiter      *rate.Limiter
	callTimeout  time.Duration
	waitTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ LedgerClient = (*Client)(nil)

type Option func(*Client)

// WithRateLimit installs a client-side token bucket in front of every call,
// admitting rps requests per second with the given burst capacity.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithCallTimeout bounds each RPC round-trip. A stalled node surfaces as a
// deadline error instead of blocking the caller indefinitely.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) { c.callTimeout = d }
}

// WithReceiptPollInterval sets the polling cadence of WaitForReceipt.
func WithReceiptPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithReceiptWaitTimeout bounds the total time WaitForReceipt polls for a
// transaction to mine. Without it a sent-but-never-mined transaction would
// block its caller forever.
func WithReceiptWaitTimeout(d time.Duration) Option {
	return func(c *Client) { c.waitTimeout = d }
}

func NewClient(rpcURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		rpcURL:       rpcURL,
		callTimeout:  30 * time.Second,
		waitTimeout:  2 * time.Minute,
		pollInterval: 500 * time.Millisecond,
		logger:       logger.With("component", "ledger_rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(method string, params []interface{}) Request {
	return Request{
		JSONRPC: "2.0",
		ID:      int(c.requestID.Add(1)),
		Method:  method,
		Params:  params,
	}
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.waitForSlot(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.doCall(ctx, method, params)
	metrics.RPCCallLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	metrics.RPCCallsTotal.WithLabelValues(method, classifyError(err)).Inc()
	return result, err
}

func (c *Client) doCall(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := c.newRequest(method, params)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
