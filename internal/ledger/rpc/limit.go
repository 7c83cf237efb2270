package rpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zs0c131y/TrustVault-sub000/internal/metrics"
)

// waitForSlot blocks until the client-side token bucket admits one call, or
// ctx is done. Reserve guarantees exactly one token is consumed per call.
func (c *Client) waitForSlot(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	r := c.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate limit: cannot reserve token")
	}
	delay := r.Delay()
	if delay > 0 {
		metrics.RPCRateLimitWaits.Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			r.Cancel()
			return fmt.Errorf("rate limit wait: %w", ctx.Err())
		}
	}
	return nil
}

// classifyError buckets an RPC failure for the call-status metric label.
func classifyError(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "revert"):
		return "revert"
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "internal server error"):
		return "server_error"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "network is unreachable") || strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "broken pipe") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "client_error"
	}
}
