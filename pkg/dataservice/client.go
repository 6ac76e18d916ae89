// Package dataservice is the HTTP client for the hospital Data Service, the
// system of record for donor clinical data and blood inventory. All reads go
// through a rate limiter and a circuit breaker; when the breaker is open,
// cached data is served where available so forecasting can degrade instead of
// failing outright.
package dataservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

const userAgent = "blood-supply-forecaster/1.0"

// maxFetchRecords bounds full-dataset pagination against an upstream that
// ignores the limit parameter.
const maxFetchRecords = 500000

// Client handles interactions with the Data Service REST API. It implements
// domain.ClinicalDataSource.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker

	retryCount   int
	retryBackoff time.Duration
	pageSize     int

	cache  *Cache
	logger *logrus.Logger
}

// NewClient creates a new Data Service client. The cache may be nil, which
// disables the read-through tier and the breaker-open fallback.
func NewClient(cfg domain.DataServiceConfig, cache *Cache, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 1
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimit:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		breaker:      newBreaker("DataService", logger),
		retryCount:   cfg.RetryCount,
		retryBackoff: cfg.RetryBackoff,
		pageSize:     cfg.PageSize,
		cache:        cache,
		logger:       logger,
	}
}

func newBreaker(name string, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Data Service circuit breaker state changed")
		},
	})
}

// WithBaseURL returns a client targeting a different Data Service base URL
// with the same resilience settings. The returned client carries a fresh
// circuit breaker; the override target's health is independent of the
// default's. Used for per-request data_service_url overrides.
func (c *Client) WithBaseURL(raw string) (*Client, error) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, &domain.InvalidParameterError{
			Parameter: "data_service_url",
			Value:     raw,
			Reason:    "must be an absolute http or https URL",
		}
	}

	clone := *c
	clone.baseURL = strings.TrimRight(raw, "/")
	clone.breaker = newBreaker(parsed.Host, c.logger)
	return &clone, nil
}

// RecordQuery selects one page of donor records.
type RecordQuery struct {
	Skip              int
	Limit             int
	BloodType         *domain.BloodType
	EligibilityStatus *domain.EligibilityStatus
}

// FetchDonorRecordsPage retrieves a single page of donor clinical records
// with optional blood-type and eligibility filters applied upstream.
func (c *Client) FetchDonorRecordsPage(ctx context.Context, query RecordQuery) ([]domain.DonorClinicalRecord, error) {
	if query.Limit <= 0 {
		query.Limit = c.pageSize
	}
	if query.Skip < 0 {
		query.Skip = 0
	}

	params := url.Values{}
	params.Set("skip", strconv.Itoa(query.Skip))
	params.Set("limit", strconv.Itoa(query.Limit))
	if query.BloodType != nil {
		params.Set("blood_type", query.BloodType.String())
	}
	if query.EligibilityStatus != nil {
		params.Set("eligibility_status", query.EligibilityStatus.String())
	}

	body, err := c.getJSON(ctx, "clinical-data", c.baseURL+"/clinical-data?"+params.Encode())
	if err != nil {
		return nil, &domain.DataServiceUnavailableError{Endpoint: "clinical-data", Err: err}
	}

	records, err := decodeRecords(body)
	if err != nil {
		return nil, &domain.DataServiceUnavailableError{Endpoint: "clinical-data", Err: err}
	}
	return records, nil
}

// FetchDonorRecords retrieves the full donor record set, paginating until the
// upstream returns a short page. A nil blood type fetches all types.
func (c *Client) FetchDonorRecords(ctx context.Context, bloodType *domain.BloodType) ([]domain.DonorClinicalRecord, error) {
	scope := "all"
	if bloodType != nil {
		scope = bloodType.String()
	}

	if cached, ok := c.cache.GetDonorRecords(ctx, scope); ok {
		return cached, nil
	}

	var records []domain.DonorClinicalRecord
	skip := 0
	for {
		page, err := c.FetchDonorRecordsPage(ctx, RecordQuery{Skip: skip, Limit: c.pageSize, BloodType: bloodType})
		if err != nil {
			if fallback, ok := c.breakerFallbackRecords(ctx, scope, err); ok {
				return fallback, nil
			}
			return nil, err
		}

		records = append(records, page...)
		if len(page) < c.pageSize {
			break
		}
		if len(records) >= maxFetchRecords {
			return nil, &domain.DataServiceUnavailableError{
				Endpoint: "clinical-data",
				Err:      fmt.Errorf("pagination did not terminate after %d records", len(records)),
			}
		}
		skip += c.pageSize
	}

	c.cache.SetDonorRecords(ctx, scope, records)
	return records, nil
}

// FetchInventory retrieves the current stock position for every blood type.
func (c *Client) FetchInventory(ctx context.Context) ([]domain.InventorySnapshot, error) {
	if cached, ok := c.cache.GetInventory(ctx); ok {
		return cached, nil
	}

	body, err := c.getJSON(ctx, "inventory", c.baseURL+"/inventory")
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			if cached, ok := c.cache.GetInventory(ctx); ok {
				c.logger.Warn("Data Service circuit open, serving cached inventory")
				return cached, nil
			}
		}
		return nil, &domain.DataServiceUnavailableError{Endpoint: "inventory", Err: err}
	}

	snapshots, err := decodeInventory(body)
	if err != nil {
		return nil, &domain.DataServiceUnavailableError{Endpoint: "inventory", Err: err}
	}

	c.cache.SetInventory(ctx, snapshots)
	return snapshots, nil
}

// Healthy probes the Data Service health endpoint. The probe bypasses the
// circuit breaker so that health reporting reflects the upstream itself.
func (c *Client) Healthy(ctx context.Context) bool {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return false
	}
	_, err := c.doOnce(ctx, c.baseURL+"/health")
	return err == nil
}

// BreakerState exposes the circuit state for health reporting.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// BreakerCounts exposes the circuit counters for health reporting.
func (c *Client) BreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// breakerFallbackRecords serves cached donor records when the fetch failed
// because the circuit is open.
func (c *Client) breakerFallbackRecords(ctx context.Context, scope string, err error) ([]domain.DonorClinicalRecord, bool) {
	if !errors.Is(err, gobreaker.ErrOpenState) {
		return nil, false
	}
	cached, ok := c.cache.GetDonorRecords(ctx, scope)
	if !ok {
		return nil, false
	}
	c.logger.Warn("Data Service circuit open, serving cached donor records")
	return cached, true
}

// getJSON performs a GET with rate limiting, circuit breaking and bounded
// retries. Client errors (4xx) and an open circuit are returned immediately;
// network failures and 5xx responses are retried with linear backoff.
func (c *Client) getJSON(ctx context.Context, endpoint, requestURL string) ([]byte, error) {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doOnce(ctx, requestURL)
		})
		if err == nil {
			return result.([]byte), nil
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}
		if !retryable(err) {
			return nil, err
		}
		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": endpoint,
			"attempt":  attempt + 1,
		}).Warn("Data Service request failed")
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryCount+1, lastErr)
}

// doOnce executes a single GET request and returns the response body.
func (c *Client) doOnce(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode, body: truncateBody(body)}
	}
	return body, nil
}

// statusError preserves the HTTP status so the retry loop can tell client
// errors from server errors.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("Data Service returned status %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

// recordEnvelope is the paged response shape some Data Service deployments
// use in place of a bare JSON list.
type recordEnvelope struct {
	Items []domain.DonorClinicalRecord `json:"items"`
	Total int                          `json:"total"`
}

// decodeRecords accepts either a bare JSON list of donor records or an
// {items, total} envelope.
func decodeRecords(body []byte) ([]domain.DonorClinicalRecord, error) {
	var list []domain.DonorClinicalRecord
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope recordEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse clinical-data response: %w", err)
	}
	return envelope.Items, nil
}

type inventoryEnvelope struct {
	Items []domain.InventorySnapshot `json:"items"`
	Total int                        `json:"total"`
}

func decodeInventory(body []byte) ([]domain.InventorySnapshot, error) {
	var list []domain.InventorySnapshot
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope inventoryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse inventory response: %w", err)
	}
	return envelope.Items, nil
}
