// Package endpoint fetches review statuses from the remote API.
package endpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hwbot/internal/failure"
	"hwbot/internal/response"
	"hwbot/pkg/logx"
)

const (
	DefaultURL        = "https://practicum.yandex.ru/api/user_api/homework_statuses/"
	DefaultAuthScheme = "OAuth"
	DefaultTimeout    = 30 * time.Second

	// maxBody caps how much of a reply is read.
	maxBody = 4 << 20
)

type Config struct {
	URL        string
	Token      string
	AuthScheme string
	Timeout    time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	if strings.TrimSpace(cfg.AuthScheme) == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}
}

// Fetch performs one GET with from_date=cursor and returns the decoded body.
// Transport errors and any non-200 status are EndpointUnreachable; an
// undecodable body is MalformedResponse.
func (c *Client) Fetch(ctx context.Context, cursor int64) (any, error) {
	const op = "endpoint.Fetch"
	reqID := uuid.NewString()
	start := time.Now()

	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, failure.Wrap(failure.EndpointUnreachable, op, err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(cursor, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, failure.Wrap(failure.EndpointUnreachable, op, err)
	}
	req.Header.Set("Authorization", c.cfg.AuthScheme+" "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", logx.String("req_id", reqID), logx.Err(err),
			logx.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, failure.Wrap(failure.EndpointUnreachable, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, failure.Wrap(failure.EndpointUnreachable, op, err)
	}

	c.log.Debug("response",
		logx.String("req_id", reqID),
		logx.Int("status", resp.StatusCode),
		logx.Int("bytes", len(body)),
		logx.Int64("cursor", cursor),
		logx.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, failure.Newf(failure.EndpointUnreachable, op, "http %d", resp.StatusCode)
	}
	v, err := response.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}
