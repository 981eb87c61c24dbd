// Package backend is the HTTP client for the diabetes backend contract:
// sync upload, coverage checks, dashboard reads, and insight generation.
// Every request goes through the shared endpoint resolver; transport
// failures invalidate the resolved URL so the next call re-probes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/claude/glucosync/internal/endpoint"
	"github.com/claude/glucosync/internal/models"
)

const (
	// TimeoutShort covers quick/incremental/refresh syncs and all reads.
	TimeoutShort = 60 * time.Second
	// TimeoutFull covers full-historical syncs, which upload years of
	// samples in a single unbatched POST.
	TimeoutFull = 15 * time.Minute

	readTimeout = 30 * time.Second
)

// Client talks to the backend REST API.
type Client struct {
	resolver   *endpoint.Resolver
	httpClient *http.Client
	apiKey     string
	backoff    Backoff
	log        *slog.Logger

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client over the shared resolver.
func New(resolver *endpoint.Resolver, apiKey string, log *slog.Logger) *Client {
	return &Client{
		resolver:   resolver,
		httpClient: &http.Client{},
		apiKey:     apiKey,
		backoff:    DefaultBackoff,
		log:        log,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SyncHealthData POSTs a complete sync payload. The call is attempted up to
// maxAttempts times with exponential backoff on timeout, network failure,
// or 5xx; 4xx is surfaced immediately. A recognized schema-mismatch error
// body degrades to a soft success with zero records (logged, not hidden).
func (c *Client) SyncHealthData(ctx context.Context, payload models.SyncPayload, timeout time.Duration, maxAttempts int) (*models.SyncResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling sync payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.backoff.Delay(attempt-1)); err != nil {
				return nil, err
			}
			c.log.Info("retrying sync", "attempt", attempt, "sync_type", payload.SyncType)
		}

		resp, err := c.postSync(ctx, body, timeout)
		if err == nil {
			return resp, nil
		}
		if !models.Retryable(err) {
			return nil, err
		}
		lastErr = err
		c.log.Warn("sync attempt failed", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) postSync(ctx context.Context, body []byte, timeout time.Duration) (*models.SyncResponse, error) {
	base, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		base+"/api/sync-dashboard-health-data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.resolver.Invalidate()
		return nil, classifyTransportErr(err)
	}
	defer httpResp.Body.Close()

	respBody, _ := io.ReadAll(httpResp.Body)

	if httpResp.StatusCode != http.StatusOK {
		if models.IsSchemaMismatch(string(respBody)) {
			// Known non-fatal shape drift on the server side. The
			// user-visible operation completes; telemetry keeps the trace.
			c.log.Warn("schema mismatch from backend, degrading to soft success",
				"status", httpResp.StatusCode, "body", string(respBody))
			return &models.SyncResponse{
				RecordsSynced: 0,
				Message:       "schema mismatch ignored (soft success)",
			}, nil
		}
		return nil, &models.StatusError{Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var resp models.SyncResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("decoding sync response: %w", err)
	}
	return &resp, nil
}

// classifyTransportErr maps a transport failure onto the error taxonomy.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrNetworkUnreachable, err)
}

// get resolves the endpoint, issues a GET, and decodes the JSON response
// into out. Transport failures invalidate the resolver cache.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	base, err := c.resolver.Resolve(ctx)
	if err != nil {
		return err
	}

	u := base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	reqCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.resolver.Invalidate()
		return classifyTransportErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &models.StatusError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// Coverage fetches per-kind data coverage for the user.
func (c *Client) Coverage(ctx context.Context, userID string) (*models.CoverageReport, error) {
	params := url.Values{"user_id": {userID}}
	var report models.CoverageReport
	if err := c.get(ctx, "/api/debug-health-data", params, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CheckFirstTime asks the backend whether the user has ever completed a
// sync. Cheaper than the full coverage query; coverage stays authoritative.
func (c *Client) CheckFirstTime(ctx context.Context, userID string) (*models.FirstTimeCheck, error) {
	params := url.Values{"user_id": {userID}}
	var check models.FirstTimeCheck
	if err := c.get(ctx, "/api/check-first-time-sync", params, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// Dashboard fetches the glucose/sleep/activity summary for the display
// window. tzOffset is the client's UTC offset in minutes.
func (c *Client) Dashboard(ctx context.Context, userID string, days, tzOffset int) (*models.DashboardSummary, error) {
	params := url.Values{
		"user_id":   {userID},
		"days":      {strconv.Itoa(days)},
		"tz_offset": {strconv.Itoa(tzOffset)},
	}
	var summary models.DashboardSummary
	if err := c.get(ctx, "/api/diabetes-dashboard", params, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Insights calls the backend's insight generation endpoint.
func (c *Client) Insights(ctx context.Context) (*models.InsightsResponse, error) {
	var resp models.InsightsResponse
	if err := c.get(ctx, "/api/insights", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearAllHealthData wipes the user's remote health data.
func (c *Client) ClearAllHealthData(ctx context.Context, userID string) (string, error) {
	base, err := c.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return "", fmt.Errorf("marshaling clear request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		base+"/api/clear-all-health-data", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating clear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.resolver.Invalidate()
		return "", classifyTransportErr(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", &models.StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decoding clear response: %w", err)
	}
	return out.Message, nil
}
