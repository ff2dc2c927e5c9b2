// Package fetch is the HTTP client used for map data: settings, texture
// tables and tiles. Requests are rate limited and go through a circuit
// breaker so a dead map server does not get hammered by the tile loaders.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/metrics"
)

// ErrNotFound is returned for 404 and 204 responses.
var ErrNotFound = errors.New("fetch: not found")

const maxErrorBodySize = 1024

// Client fetches map data.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[[]byte]
	userAgent string
	log       *zap.Logger
}

// New creates a client from network settings. A nil httpClient gets a
// default one with cfg.Timeout.
func New(cfg config.NetworkConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		log:       logger.Named("fetch"),
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 10
	}
	name := "map-data"
	metrics.BreakerState.WithLabelValues(name).Set(0)

	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a missing tile or an abandoned request says nothing about
			// the server's health
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Info("circuit breaker state change",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return c
}

// GetBytes fetches url and returns the body. kind labels metrics
// ("tile", "settings", ...).
//
// Once the request is admitted it runs to completion even if ctx is
// cancelled, so the server-side transfer is not aborted halfway; callers
// check ctx themselves after decoding.
func (c *Client) GetBytes(ctx context.Context, kind, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(context.WithoutCancel(ctx), url)
	})
	metrics.RecordFetch(kind, time.Since(start), ignoreNotFound(err))

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		return nil, err
	}
	return body, nil
}

// GetJSON fetches url and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, kind, url string, v any) error {
	body, err := c.GetBytes(ctx, kind, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	default:
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("request %s failed with status %d: %s", url, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// CacheToken returns a random query token used to bypass HTTP caches when
// map data changes.
func CacheToken() string {
	return strconv.Itoa(rand.IntN(1_000_001))
}
