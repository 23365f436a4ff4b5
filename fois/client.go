package fois

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/railradar/locotrack/config"
)

const detailOption = "RTIS_CURRENT_LOCO_RPTG"

// Client fetches the locomotive directory and per-locomotive detail
// payloads. Detail fetches share a rate limiter and a circuit breaker
// so a dead upstream short-circuits instead of timing out one
// locomotive at a time.
type Client struct {
	httpClient   *http.Client
	directoryURL string
	detailURL    string
	userAgent    string
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a Client from the upstream configuration.
func NewClient(cfg config.UpstreamConfig) *Client {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = config.DefaultRateLimitRPS
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultTimeoutMS) * time.Millisecond
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		directoryURL: cfg.DirectoryURL,
		detailURL:    cfg.DetailURL,
		userAgent:    cfg.UserAgent,
		limiter:      rate.NewLimiter(rate.Limit(rps), rps),
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "fois-detail",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
		}),
	}
}

// FetchDirectory fetches the list of currently active locomotives.
// A failure here is fatal to the collection cycle: there is nothing to
// enumerate without it.
func (c *Client) FetchDirectory(ctx context.Context) ([]DirectoryEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.directoryURL,
		strings.NewReader("action=refresh_data"))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch directory: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, c.directoryURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}
	var dir directoryResponse
	if err := json.Unmarshal(body, &dir); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return dir.LocoData, nil
}

// FetchDetail fetches the current FOIS/RTIS report for one locomotive
// and returns the raw payload. The identification header is attached
// because the upstream rejects default client identifiers.
func (c *Client) FetchDetail(ctx context.Context, locoNo int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.breaker.Execute(func() ([]byte, error) {
		return c.fetchDetail(ctx, locoNo)
	})
}

func (c *Client) fetchDetail(ctx context.Context, locoNo int) ([]byte, error) {
	q := url.Values{}
	q.Set("Optn", detailOption)
	q.Set("Loco", strconv.Itoa(locoNo))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.detailURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch loco %d: %w", locoNo, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for loco %d", resp.StatusCode, locoNo)
	}

	return io.ReadAll(resp.Body)
}
