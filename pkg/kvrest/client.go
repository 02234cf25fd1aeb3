// Package kvrest talks to a Redis-compatible key-value store exposed over
// HTTP (Upstash-style REST gateway). Each command is POSTed as a JSON array
// and the reply arrives as {"result": ...} or {"error": "..."}.
package kvrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/ikkim/inventory-backend/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 5 * time.Second
	retryDelay     = 200 * time.Millisecond
	maxAttempts    = 2
)

// ErrCommand is returned when the gateway rejects a command.
var ErrCommand = errors.New("kv command rejected")

type Options struct {
	URL       string
	Token     string
	Timeout   time.Duration // per request
	RateLimit float64       // requests per second, 0 disables limiting
}

type Client struct {
	url     string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1)
	}
	return &Client{
		url:     strings.TrimRight(opts.URL, "/"),
		token:   opts.Token,
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

type reply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Do sends one command. Transport failures and 5xx replies are retried once;
// rejected commands are not.
func (c *Client) Do(ctx context.Context, args ...string) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	var (
		result    json.RawMessage
		permanent error
	)
	err = repeater.NewDefault(maxAttempts, retryDelay).Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			permanent = err
			return nil
		}
		res, retry, err := c.send(ctx, body)
		if err != nil && !retry {
			permanent = err
			return nil
		}
		if err != nil {
			logger.Warn("KV request failed, retrying", map[string]interface{}{
				"command": args[0],
				"error":   err.Error(),
			})
			return err
		}
		result = res
		return nil
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		return nil, fmt.Errorf("kv %s: %w", args[0], err)
	}
	return result, nil
}

// send performs a single round trip and reports whether a failure is worth retrying.
func (c *Client) send(ctx context.Context, body []byte) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	var r reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode reply (status %d): %w", resp.StatusCode, err)
	}
	if r.Error != "" {
		return nil, false, fmt.Errorf("%w: %s", ErrCommand, r.Error)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, false, fmt.Errorf("%w: status %d", ErrCommand, resp.StatusCode)
	}
	return r.Result, false, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	raw, err := c.Do(ctx, "GET", key)
	if err != nil {
		return "", false, err
	}
	var val *string
	if err := json.Unmarshal(raw, &val); err != nil {
		return "", false, err
	}
	if val == nil {
		return "", false, nil
	}
	return *val, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	_, err := c.Do(ctx, "SET", key, value)
	return err
}

func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	return c.integer(ctx, append([]string{"DEL"}, keys...)...)
}

func (c *Client) SAdd(ctx context.Context, key string, members ...string) error {
	_, err := c.Do(ctx, append([]string{"SADD", key}, members...)...)
	return err
}

func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	_, err := c.Do(ctx, append([]string{"SREM", key}, members...)...)
	return err
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.strings(ctx, "SMEMBERS", key)
}

func (c *Client) RPush(ctx context.Context, key string, values ...string) error {
	_, err := c.Do(ctx, append([]string{"RPUSH", key}, values...)...)
	return err
}

func (c *Client) LRem(ctx context.Context, key, value string) (int64, error) {
	return c.integer(ctx, "LREM", key, "0", value)
}

func (c *Client) LRange(ctx context.Context, key string) ([]string, error) {
	return c.strings(ctx, "LRANGE", key, "0", "-1")
}

// Ping checks that the gateway is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, "PING")
	return err
}

func (c *Client) integer(ctx context.Context, args ...string) (int64, error) {
	raw, err := c.Do(ctx, args...)
	if err != nil {
		return 0, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("kv %s: unexpected reply %s", args[0], raw)
	}
	return strconv.ParseInt(n.String(), 10, 64)
}

func (c *Client) strings(ctx context.Context, args ...string) ([]string, error) {
	raw, err := c.Do(ctx, args...)
	if err != nil {
		return nil, err
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("kv %s: unexpected reply %s", args[0], raw)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
