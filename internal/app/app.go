// Package app runs the desktop viewer: window, renderer and the update
// loop streaming one map.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/controls"
	"github.com/nosadnile/bluemap-go/internal/engine/camera"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/internal/engine/renderer"
	"github.com/nosadnile/bluemap-go/internal/engine/window"
	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/metrics"
	"github.com/nosadnile/bluemap-go/internal/viewer"
	"github.com/nosadnile/bluemap-go/internal/world"
)

const (
	title = "BlueMap"

	cameraNear = 0.1
	cameraFar  = 10000
)

// App is the viewer application.
type App struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Dispatcher
	viewer   *viewer.Viewer
	client   *fetch.Client
	log      *zap.Logger
}

// New creates the window, renderer and viewer.
func New(cfg *config.Config) (*App, error) {
	a := &App{
		cfg:    cfg,
		client: fetch.New(cfg.Network, nil),
		log:    logger.Named("app"),
	}

	a.log.Info("initializing viewer",
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.String("map", cfg.Map.DataURL),
	)

	var err error
	a.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// the renderer needs the GL context of the window
	dw, dh := a.window.DrawableSize()
	a.renderer, err = renderer.New(renderer.Config{Width: dw, Height: dh})
	if err != nil {
		a.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	ww, wh := a.window.GetSize()
	a.input = input.NewDispatcher(ww, wh)
	cam := camera.NewCombinedCamera(cfg.View.FOV, float64(ww)/float64(wh), cameraNear, cameraFar, 0)
	a.viewer = viewer.New(cam, a.input, viewer.Options{
		HiresViewDistance:  cfg.View.HiresDistance,
		LowresViewDistance: cfg.View.LowresDistance,
		TileCacheHash:      tileCacheHash(cfg.Map.TileCacheHash),
		OnInteraction:      a.interaction,
	})

	kind, err := controls.ParseKind(cfg.Controls.Scheme)
	if err != nil {
		a.Close()
		return nil, err
	}
	scheme, err := controls.New(kind, cfg.Controls)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.viewer.Controls().SetScheme(scheme)

	p := &pointer{
		surface: a.window,
		capture: func() bool { return kind == controls.KindFreeFlight },
		onClick: a.viewer.HandleMapInteraction,
		onQuit:  func() { a.running = false },
	}
	a.input.Subscribe(p.handle)
	a.input.Subscribe(a.handle)

	a.log.Info("viewer initialized", zap.String("controls", string(kind)))
	return a, nil
}

// Run loads the configured map and runs the frame loop until the window
// is closed or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Metrics.Listen != "" {
		go a.serveMetrics(ctx, a.cfg.Metrics.Listen)
	}

	m := world.NewMap(world.IDFromURL(a.cfg.Map.DataURL), a.cfg.Map.DataURL, a.client, world.Options{Scene: a.renderer})
	if err := a.viewer.SwitchMap(ctx, m); err != nil {
		return err
	}
	a.window.SetTitle(title + " - " + m.Settings().Name)

	a.running = true
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	a.log.Info("starting frame loop")

	for a.running && ctx.Err() == nil {
		now := time.Now()
		dt := now.Sub(lastTime)
		lastTime = now

		if a.window.PollEvents(a.input) {
			break
		}

		a.viewer.Update(float64(dt) / float64(time.Millisecond))

		a.renderer.Begin(m.Settings().SkyColor)
		a.renderer.DrawMap(a.viewer.Camera(), a.viewer.Map())
		a.window.SwapBuffers()

		metrics.FrameDuration.Observe(time.Since(now).Seconds())

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("hires", m.Hires().Len()),
				zap.Int("meshes", a.renderer.Meshes()),
			)
			if a.cfg.Window.ShowFPS {
				a.window.SetTitle(fmt.Sprintf("%s - %s (%d fps)", title, m.Settings().Name, frameCount))
			}
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

// Close releases the map and all window resources.
func (a *App) Close() {
	a.log.Info("closing viewer")

	if a.viewer != nil {
		a.viewer.Close()
	}
	if a.renderer != nil {
		a.renderer.Forget()
		a.renderer.Close()
	}
	if a.window != nil {
		a.window.Close()
	}
}

func (a *App) handle(e input.Event) {
	if _, ok := e.(input.ResizeEvent); ok {
		a.renderer.Resize(a.window.DrawableSize())
	}
}

func (a *App) interaction(in viewer.Interaction) {
	if !in.Hit {
		return
	}
	a.log.Info("map clicked",
		zap.Stringer("tile", in.Tile),
		zap.Float64("x", in.Point.X),
		zap.Float64("y", in.Point.Y),
		zap.Float64("z", in.Point.Z),
	)
}

func (a *App) serveMetrics(ctx context.Context, addr string) {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	a.log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Warn("metrics server stopped", zap.Error(err))
	}
}

// tileCacheHash returns the configured hash, or a random token when zero.
func tileCacheHash(configured int) string {
	if configured == 0 {
		return fetch.CacheToken()
	}
	return strconv.Itoa(configured)
}
