// Package mapproxy serves map data from several map servers under one
// origin: GET /maps/{server}/{map}/* is fetched from
// <server base>/maps/{map}/* and streamed back.
package mapproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Response headers copied from the upstream.
var passHeaders = []string{
	"Content-Type",
	"Content-Encoding",
	"Content-Length",
	"Cache-Control",
	"ETag",
	"Last-Modified",
}

// Request headers forwarded to the upstream.
var forwardHeaders = []string{
	"Accept-Encoding",
	"If-None-Match",
	"If-Modified-Since",
}

// upstream is one map server and the breaker guarding it.
type upstream struct {
	base *url.URL
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// Proxy routes map data requests to upstream map servers.
type Proxy struct {
	upstreams      map[string]*upstream
	client         *http.Client
	userAgent      string
	requestsPerMin int
	log            *zap.Logger
}

// New creates a proxy. Upstream base URLs must be absolute http or https
// URLs. A nil httpClient gets a default one with network.Timeout.
func New(cfg config.ProxyConfig, network config.NetworkConfig, httpClient *http.Client) (*Proxy, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: network.Timeout}
	}

	p := &Proxy{
		upstreams:      make(map[string]*upstream, len(cfg.Upstreams)),
		client:         httpClient,
		userAgent:      network.UserAgent,
		requestsPerMin: cfg.RequestsPerMin,
		log:            logger.Named("mapproxy"),
	}
	for id, raw := range cfg.Upstreams {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("upstream %q: %w", id, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("upstream %q: %q is not an http(s) URL", id, raw)
		}
		u.Path = strings.TrimSuffix(u.Path, "/")
		p.upstreams[id] = &upstream{base: u, cb: p.newBreaker("proxy-"+id, network)}
	}
	return p, nil
}

// newBreaker trips after network.BreakerFailures consecutive transport
// errors. Upstream status codes, including 5xx, are passed through and do
// not count.
func (p *Proxy) newBreaker(name string, network config.NetworkConfig) *gobreaker.CircuitBreaker[*http.Response] {
	failures := network.BreakerFailures
	if failures == 0 {
		failures = 10
	}
	metrics.BreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     network.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			// a client hanging up is not the upstream's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Info("circuit breaker state change",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
}

// Handler returns the proxy's routes.
func (p *Proxy) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if p.requestsPerMin > 0 {
			r.Use(httprate.Limit(p.requestsPerMin, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Get("/maps/{server}/{map}/*", p.serveMap)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (p *Proxy) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	p.log.Info("map proxy listening", zap.String("addr", addr), zap.Int("upstreams", len(p.upstreams)))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("map proxy: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("map proxy shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

func (p *Proxy) serveMap(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	mapID := chi.URLParam(r, "map")
	path := chi.URLParam(r, "*")

	up, ok := p.upstreams[server]
	if !ok {
		p.fail(w, "unknown", http.StatusNotFound, "unknown map server")
		return
	}
	if !validSegment(mapID) || !validPath(path) {
		p.fail(w, server, http.StatusBadRequest, "invalid map path")
		return
	}

	target := *up.base
	target.Path = up.base.Path + "/maps/" + mapID + "/" + path
	target.RawPath = ""
	target.RawQuery = r.URL.RawQuery

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		p.fail(w, server, http.StatusBadRequest, "invalid map path")
		return
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	for _, h := range forwardHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := up.cb.Execute(func() (*http.Response, error) {
		return p.client.Do(req)
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		p.log.Warn("upstream request failed",
			zap.String("server", server),
			zap.String("url", target.String()),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))
		p.fail(w, server, http.StatusBadGateway, "map server unavailable")
		return
	}
	defer resp.Body.Close()

	for _, h := range passHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.log.Debug("copy response", zap.String("server", server), zap.Error(err))
	}
	metrics.ProxyRequests.WithLabelValues(server, strconv.Itoa(resp.StatusCode)).Inc()
}

func (p *Proxy) fail(w http.ResponseWriter, server string, status int, msg string) {
	metrics.ProxyRequests.WithLabelValues(server, strconv.Itoa(status)).Inc()
	http.Error(w, msg, status)
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "." || seg == ".." || strings.Contains(seg, `\`) {
			return false
		}
	}
	return true
}
