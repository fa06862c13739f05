package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/codyseavey/basket-tracker/internal/metrics"
)

const (
	defaultFetchTimeout   = 10 * time.Second
	defaultUserAgent      = "Mozilla/5.0"
	defaultFetchCacheSize = 256
	maxBodyBytes          = 8 << 20
)

// FetcherConfig configures a ReturnFetcher
type FetcherConfig struct {
	Timeout   time.Duration // per request
	UserAgent string
	Interval  time.Duration // minimum spacing between requests, 0 disables pacing
	CacheTTL  time.Duration // 0 disables the cache
	CacheSize int
	Client    *http.Client // optional, Timeout is applied when nil
}

// FetchResult is the outcome of one fetch. A failed fetch has a zero
// return and a Warning; it is never an error.
type FetchResult struct {
	ReturnPercent float64 `json:"return_percent"`
	Warning       string  `json:"warning,omitempty"`
	Cached        bool    `json:"cached,omitempty"`
}

// ReturnSource yields a return percentage for a source URL
type ReturnSource interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// ReturnFetcher scrapes a percentage return from a web page
type ReturnFetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	cache     *expirable.LRU[string, float64]
	log       zerolog.Logger

	// Stats (reset at midnight)
	mu             sync.Mutex
	requestsToday  int
	failuresToday  int
	cacheHitsToday int
	lastStatsDay   time.Time
	lastWarning    string
	lastWarningAt  time.Time
}

// FetcherStatus reports today's fetch counters
type FetcherStatus struct {
	RequestsToday  int       `json:"requests_today"`
	FailuresToday  int       `json:"failures_today"`
	CacheHitsToday int       `json:"cache_hits_today"`
	CacheEnabled   bool      `json:"cache_enabled"`
	CachedURLs     int       `json:"cached_urls"`
	LastWarning    string    `json:"last_warning,omitempty"`
	LastWarningAt  time.Time `json:"last_warning_at,omitempty"`
}

// NewReturnFetcher creates a fetcher
func NewReturnFetcher(cfg FetcherConfig, log zerolog.Logger) *ReturnFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultFetchTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	f := &ReturnFetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		log:       log.With().Str("component", "return_fetcher").Logger(),
	}

	if cfg.Interval > 0 {
		f.limiter = rate.NewLimiter(rate.Every(cfg.Interval), 1)
	}
	if cfg.CacheTTL > 0 {
		size := cfg.CacheSize
		if size <= 0 {
			size = defaultFetchCacheSize
		}
		f.cache = expirable.NewLRU[string, float64](size, nil, cfg.CacheTTL)
	}

	return f
}

// Fetch returns the first percentage found on the page at url, or 0 with a
// warning when the page cannot be fetched or holds no percentage.
func (f *ReturnFetcher) Fetch(ctx context.Context, url string) FetchResult {
	f.resetDailyStatsIfNeeded()

	if f.cache != nil {
		if v, ok := f.cache.Get(url); ok {
			metrics.FetchCacheHits.Inc()
			f.mu.Lock()
			f.cacheHitsToday++
			f.mu.Unlock()
			return FetchResult{ReturnPercent: v, Cached: true}
		}
		metrics.FetchCacheMisses.Inc()
	}

	start := time.Now()
	v, result, err := f.fetch(ctx, url)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	metrics.FetchRequestsTotal.WithLabelValues(result).Inc()

	f.mu.Lock()
	f.requestsToday++
	f.mu.Unlock()

	if err != nil {
		warning := fmt.Sprintf("Fetch error for URL: %s: %v", url, err)
		f.log.Warn().Str("url", url).Str("result", result).Err(err).Msg("Return fetch failed, using 0")

		f.mu.Lock()
		f.failuresToday++
		f.lastWarning = warning
		f.lastWarningAt = time.Now()
		f.mu.Unlock()

		return FetchResult{Warning: warning}
	}

	if f.cache != nil {
		f.cache.Add(url, v)
	}
	return FetchResult{ReturnPercent: v}
}

var errNoPercent = errors.New("no percentage found in page")

// fetch performs the request; result is the metrics label
func (f *ReturnFetcher) fetch(ctx context.Context, url string) (float64, string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, "cancelled", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "http_error", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "http_error", fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return 0, "status", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, "read_error", fmt.Errorf("failed to read body: %w", err)
	}

	v, ok := ExtractReturnPercent(string(body))
	if !ok {
		return 0, "no_match", errNoPercent
	}
	return v, "ok", nil
}

// Invalidate drops every cached return so the next fetch goes to the network
func (f *ReturnFetcher) Invalidate() {
	if f.cache != nil {
		f.cache.Purge()
		f.log.Debug().Msg("Return cache purged")
	}
}

// resetDailyStatsIfNeeded resets the daily counters at midnight
func (f *ReturnFetcher) resetDailyStatsIfNeeded() {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if f.lastStatsDay.Before(today) {
		f.requestsToday = 0
		f.failuresToday = 0
		f.cacheHitsToday = 0
		f.lastStatsDay = today
	}
}

// Status returns today's counters
func (f *ReturnFetcher) Status() FetcherStatus {
	f.resetDailyStatsIfNeeded()

	f.mu.Lock()
	defer f.mu.Unlock()

	status := FetcherStatus{
		RequestsToday:  f.requestsToday,
		FailuresToday:  f.failuresToday,
		CacheHitsToday: f.cacheHitsToday,
		CacheEnabled:   f.cache != nil,
		LastWarning:    f.lastWarning,
		LastWarningAt:  f.lastWarningAt,
	}
	if f.cache != nil {
		status.CachedURLs = f.cache.Len()
	}
	return status
}
