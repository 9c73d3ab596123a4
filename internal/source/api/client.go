// Package api reads analytics from, and writes records to, the remote
// expense REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"spese-analytics/internal/analytics"
	"spese-analytics/internal/core"
	"spese-analytics/internal/source"
	"spese-analytics/internal/validation"
)

var _ source.Source = (*Client)(nil)

// StatusError is returned for non-2xx responses. Its message is the response
// body, or "request failed: <status>" when the body is empty.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return fmt.Sprintf("request failed: %d", e.Status)
}

// ErrInvalidPayload marks an upstream response that decoded but failed
// validation.
var ErrInvalidPayload = errors.New("invalid upstream payload")

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the pooled default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPClient(timeout),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          50,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: timeout,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string, params analytics.Params) string {
	q := analytics.Build(params)
	if q == "" {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + q
}

// do sends the request and returns the body of a 2xx response. Responses
// are never cached.
func (c *Client) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params analytics.Params, dst any) error {
	data, err := c.do(ctx, http.MethodGet, c.url(path, params), nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w: %v", path, ErrInvalidPayload, err)
	}
	return nil
}

func (c *Client) ReadBreakdown(ctx context.Context, r core.ResolvedRange) (core.AnalyticsBreakdown, error) {
	var dto breakdownDTO
	if err := c.getJSON(ctx, "/analytics", analytics.RangeParams(r), &dto); err != nil {
		return core.AnalyticsBreakdown{}, err
	}
	if err := validation.Struct(dto); err != nil {
		return core.AnalyticsBreakdown{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return dto.toCore(), nil
}

// ReadTimeseries returns the daily series in the order sent. A point without
// a total is rejected; everything else is left for callers to normalize.
func (c *Client) ReadTimeseries(ctx context.Context, r core.ResolvedRange) ([]core.TimeseriesPoint, error) {
	var dto []timeseriesPointDTO
	if err := c.getJSON(ctx, "/analytics/timeseries", analytics.RangeParams(r), &dto); err != nil {
		return nil, err
	}
	points := make([]core.TimeseriesPoint, 0, len(dto))
	for i, p := range dto {
		if p.Total == nil {
			return nil, &analytics.MalformedPointError{Index: i, Date: p.Date, Reason: "missing total"}
		}
		points = append(points, core.TimeseriesPoint{Date: p.Date, Total: *p.Total})
	}
	return points, nil
}

func (c *Client) ReadStats(ctx context.Context) (core.Stats, error) {
	var st core.Stats
	if err := c.getJSON(ctx, "/stats", nil, &st); err != nil {
		return core.Stats{}, err
	}
	return st, nil
}

func (c *Client) ReadCategoryTrend(ctx context.Context, category string, t core.TrendType) ([]core.CategoryTrendPoint, error) {
	params := analytics.Params{
		{Key: "category", Value: category},
		{Key: "type", Value: string(t)},
	}
	var points []core.CategoryTrendPoint
	if err := c.getJSON(ctx, "/analytics/category-trend", params, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (c *Client) ListRecent(ctx context.Context, limit int) ([]core.Expense, error) {
	var dto struct {
		Items []expenseDTO `json:"items"`
	}
	if err := c.getJSON(ctx, "/expenses", analytics.Params{{Key: "limit", Value: limit}}, &dto); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(dto.Items))
	for _, it := range dto.Items {
		out = append(out, it.toCore())
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	data, err := c.do(ctx, http.MethodPost, c.url("/expenses", nil), expenseFromCore(e))
	if err != nil {
		return core.Expense{}, err
	}
	var created expenseDTO
	if err := json.Unmarshal(data, &created); err != nil {
		return core.Expense{}, fmt.Errorf("decode created expense: %w", err)
	}
	return created.toCore(), nil
}

func (c *Client) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	_, err := c.do(ctx, http.MethodPut, c.url("/expenses/"+pathEscape(id), nil), expenseFromCore(e))
	return err
}

func (c *Client) SetIncome(ctx context.Context, in core.Income) error {
	body := incomeDTO{Amount: in.Amount.Float(), Source: in.Source, Month: in.Month}
	_, err := c.do(ctx, http.MethodPost, c.url("/income", nil), body)
	return err
}

// ExportMonth returns the CSV document produced upstream.
func (c *Client) ExportMonth(ctx context.Context, month string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, c.url("/expenses/export", analytics.Params{{Key: "month", Value: month}}), nil)
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.url("/health", nil), nil)
	return err
}
