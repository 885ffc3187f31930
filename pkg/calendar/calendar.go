// Package calendar is a client for the TianAPI lunar calendar lookup, which
// converts a solar date into its lunar date and the sexagenary stem-branch
// strings for the year, month and day.
//
// Every call performs exactly one HTTP GET. Nothing is retried or cached.
package calendar

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/logger"
)

const (
	// DefaultEndpoint is the TianAPI lunar lookup URL.
	DefaultEndpoint = "https://apis.tianapi.com/lunar/index"

	// DefaultTimeout bounds a single lookup round trip.
	DefaultTimeout = 15 * time.Second

	dateLayout = "2006-01-02"
)

// Config holds the calendar client configuration.
type Config struct {
	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	// APIKey is sent as the "key" query parameter.
	APIKey string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for lookups.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client looks up lunar calendar data for solar dates.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient returns a calendar client.
func NewClient(cfg Config, opts ...Option) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SolarToLunar returns the lunar date for the calendar day of date.
func (c *Client) SolarToLunar(ctx context.Context, date time.Time) (bazi.LunarDate, error) {
	const op = "solar to lunar"

	res, err := c.fetch(ctx, op, date)
	if err != nil {
		return bazi.LunarDate{}, err
	}

	lunar, err := res.lunar()
	if err != nil {
		return bazi.LunarDate{}, &GatewayError{Op: op, Msg: "malformed result", Err: err}
	}

	return lunar, nil
}

// GanZhi returns the year, month and day stem-branch strings for the
// calendar day of date.
func (c *Client) GanZhi(ctx context.Context, date time.Time) (bazi.GanZhi, error) {
	const op = "ganzhi"

	res, err := c.fetch(ctx, op, date)
	if err != nil {
		return bazi.GanZhi{}, err
	}

	gz, ok := res.ganZhi()
	if !ok {
		return bazi.GanZhi{}, &GatewayError{Op: op, Msg: "incomplete stem-branch data"}
	}

	return gz, nil
}

// Lookup returns both the lunar date and the stem-branch strings from a single
// request.
func (c *Client) Lookup(ctx context.Context, date time.Time) (Result, error) {
	const op = "lookup"

	res, err := c.fetch(ctx, op, date)
	if err != nil {
		return Result{}, err
	}

	lunar, err := res.lunar()
	if err != nil {
		return Result{}, &GatewayError{Op: op, Msg: "malformed result", Err: err}
	}

	gz, ok := res.ganZhi()
	if !ok {
		return Result{}, &GatewayError{Op: op, Msg: "incomplete stem-branch data"}
	}

	return Result{
		Lunar:          lunar,
		GanZhi:         gz,
		LunarMonthName: res.LunarMonth,
		LunarDayName:   res.LunarDay,
	}, nil
}

// fetch performs one lookup and validates the response envelope.
func (c *Client) fetch(ctx context.Context, op string, date time.Time) (*lunarResult, error) {
	day := date.Format(dateLayout)

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &GatewayError{Op: op, Msg: "invalid endpoint", Err: err}
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("date", day)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &GatewayError{Op: op, Msg: "creating request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("calendar lookup", "op", op, "date", day)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Msg: string(body)}
	}

	var payload lunarResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &GatewayError{Op: op, Msg: "decoding response", Err: err}
	}

	if payload.Code != successCode {
		msg := payload.Msg
		if msg == "" {
			msg = "request rejected"
		}
		return nil, &GatewayError{Op: op, Code: payload.Code, Msg: msg}
	}

	if payload.Result == nil {
		return nil, &GatewayError{Op: op, Msg: "response has no result"}
	}

	c.logger.Debug("calendar lookup complete",
		"op", op,
		"date", day,
		"lunar_date", payload.Result.LunarDate,
		"lunar_month", payload.Result.LunarMonth,
	)

	return payload.Result, nil
}
