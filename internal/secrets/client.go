// Package secrets leases credentials from a local secrets daemon. Failures
// are classified into "daemon unreachable" vs "lease denied" so the caller
// can surface an actionable fix.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sentinel errors for lease failures.
var (
	// ErrUnreachable means the secrets daemon did not answer at all.
	ErrUnreachable = errors.New("secrets daemon unreachable")
	// ErrLeaseDenied means the daemon answered but refused the lease.
	ErrLeaseDenied = errors.New("secret lease denied")
)

// LeaseScheme prefixes config values that must be resolved through the daemon.
const LeaseScheme = "lease://"

// Client talks to the local secrets daemon over HTTP.
type Client struct {
	base   string
	http   *http.Client
	logger *zap.Logger
}

// New creates a lease client. addr is the daemon base URL, e.g.
// http://127.0.0.1:7437.
func New(addr string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:   strings.TrimRight(addr, "/"),
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Lease fetches the secret value stored at path.
func (c *Client) Lease(ctx context.Context, path string) (string, error) {
	u := fmt.Sprintf("%s/v1/lease?path=%s", c.base, url.QueryEscape(path))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build lease request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %d", ErrLeaseDenied, path, resp.StatusCode)
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response: %s", ErrLeaseDenied, err.Error())
	}
	if body.Value == "" {
		return "", fmt.Errorf("%w: empty value for %s", ErrLeaseDenied, path)
	}

	c.logger.Debug("leased secret", zap.String("path", path))
	return body.Value, nil
}

// Resolve passes plain values through and leases values carrying the
// lease:// scheme. A nil client with a lease:// value is a denied lease.
func Resolve(ctx context.Context, c *Client, value string) (string, error) {
	path, ok := strings.CutPrefix(value, LeaseScheme)
	if !ok {
		return value, nil
	}
	if c == nil {
		return "", fmt.Errorf("%w: no secrets daemon configured for %s", ErrLeaseDenied, path)
	}
	return c.Lease(ctx, path)
}
