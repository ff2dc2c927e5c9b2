package tiles

import (
	"context"
	"errors"
	"image/color"
	"time"

	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/metrics"
)

const (
	// MapSize is the edge length of the occupancy mask in tiles.
	MapSize = 100
	// MapHalfSize is the mask offset of the center tile.
	MapHalfSize = MapSize / 2

	// MaxConcurrentLoads caps fetches in flight per manager.
	MaxConcurrentLoads = 8
	// SaturatedBackoff is how long a saturated pump waits before it
	// re-checks when no fetch completes.
	SaturatedBackoff = time.Second
)

// Scene receives tile models as they are attached and released.
type Scene interface {
	Add(m Model)
	Remove(m Model)
}

type nopScene struct{}

func (nopScene) Add(Model)    {}
func (nopScene) Remove(Model) {}

// Options configures a Manager.
type Options struct {
	// Name labels logs and metrics, e.g. "hires" or "lowres.1".
	Name string
	// Scene gets models on load and loses them on unload. Optional.
	Scene Scene
	// OnTileLoad and OnTileUnload are called on the update goroutine.
	OnTileLoad   func(*Tile)
	OnTileUnload func(*Tile)
}

// Manager keeps one layer of tiles loaded around a center tile.
type Manager struct {
	name   string
	loader Loader
	scene  Scene
	log    *zap.Logger

	onTileLoad   func(*Tile)
	onTileUnload func(*Tile)

	tiles   map[Coord]*Tile
	failed  map[Coord]struct{}
	tileMap *TileMap

	center       Coord
	viewX, viewZ int
	unloaded     bool

	loading int
	armed   bool
	retryAt time.Time
	done    chan result

	now func() time.Time
}

// NewManager creates a manager in the unloaded state. Nothing is fetched
// until the first LoadAroundTile.
func NewManager(loader Loader, opts Options) *Manager {
	scene := opts.Scene
	if scene == nil {
		scene = nopScene{}
	}
	name := opts.Name
	if name == "" {
		name = "tiles"
	}

	return &Manager{
		name:         name,
		loader:       loader,
		scene:        scene,
		log:          logger.Named("tiles").Named(name),
		onTileLoad:   opts.OnTileLoad,
		onTileUnload: opts.OnTileUnload,
		tiles:        make(map[Coord]*Tile),
		failed:       make(map[Coord]struct{}),
		tileMap:      NewTileMap(MapSize, MapSize),
		viewX:        1,
		viewZ:        1,
		unloaded:     true,
		// at most MaxConcurrentLoads fetches are ever outstanding, so
		// senders never block even if nobody drains the channel
		done: make(chan result, MaxConcurrentLoads),
		now:  time.Now,
	}
}

// LoadAroundTile moves the view window to (x, z) with the given view
// distances in tiles and resumes loading. Tiles that left the window are
// unloaded. A view distance of zero or less unloads everything.
func (m *Manager) LoadAroundTile(x, z, viewX, viewZ int) {
	m.unloaded = false

	shrank := viewX < m.viewX || viewZ < m.viewZ
	m.viewX, m.viewZ = viewX, viewZ

	if viewX <= 0 || viewZ <= 0 {
		m.removeAllTiles()
		m.armed = false
		return
	}

	if shrank || x != m.center.X || z != m.center.Z {
		m.center = Coord{X: x, Z: z}
		m.removeFarTiles()

		m.tileMap.SetAll(Empty)
		for _, t := range m.tiles {
			if t.Loaded() {
				m.markTile(t, Loaded)
			}
		}
	}

	clear(m.failed)

	m.armed = true
	m.pump()
}

// Update applies finished fetches and starts new ones. It never blocks and
// must be called from the goroutine that owns the manager, once per frame.
// Coordinates that failed during an earlier tick are retried; a failure is
// never retried within the tick that reported it.
func (m *Manager) Update() {
	if len(m.failed) > 0 {
		clear(m.failed)
		if !m.unloaded && m.viewX > 0 && m.viewZ > 0 {
			m.armed = true
		}
	}
	m.tick()
}

func (m *Manager) tick() {
drain:
	for {
		select {
		case r := <-m.done:
			m.complete(r)
		default:
			break drain
		}
	}

	if m.armed && (m.loading < MaxConcurrentLoads || !m.now().Before(m.retryAt)) {
		m.pump()
	}
}

// Settle blocks until every tile in the window has been attempted and no
// fetch is in flight, or ctx is done. Failed coordinates are not retried
// while settling. It is for headless use; interactive callers use Update.
func (m *Manager) Settle(ctx context.Context) error {
	for {
		m.tick()
		if m.loading == 0 {
			if !m.armed {
				return nil
			}
			continue
		}

		select {
		case r := <-m.done:
			m.complete(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unload releases every tile and stops loading until the next
// LoadAroundTile. Fetches still in flight are discarded when they finish.
func (m *Manager) Unload() {
	m.unloaded = true
	m.armed = false
	m.removeAllTiles()
}

func (m *Manager) pump() {
	for m.loading < MaxConcurrentLoads {
		if m.unloaded || !m.loadNextTile() {
			m.armed = false
			return
		}
	}
	m.retryAt = m.now().Add(SaturatedBackoff)
}

// loadNextTile walks a square spiral out from the center and starts the
// first tile in the window that is not yet tracked.
func (m *Manager) loadNextTile() bool {
	x, z := 0, 0
	d, n := 1, 1
	limit := 2*max(m.viewX, m.viewZ) + 1

	for n <= limit {
		for 2*x*d < n {
			if m.tryLoadTile(m.center.X+x, m.center.Z+z) {
				return true
			}
			x += d
		}
		for 2*z*d < n {
			if m.tryLoadTile(m.center.X+x, m.center.Z+z) {
				return true
			}
			z += d
		}
		d = -d
		n++
	}
	return false
}

func (m *Manager) tryLoadTile(x, z int) bool {
	if abs(x-m.center.X) > m.viewX || abs(z-m.center.Z) > m.viewZ {
		return false
	}

	c := Coord{X: x, Z: z}
	if _, ok := m.tiles[c]; ok {
		return false
	}
	if _, ok := m.failed[c]; ok {
		return false
	}

	t := newTile(c, m.handleLoadedTile, m.handleUnloadedTile)
	if err := t.load(context.Background(), m.loader, m.done); err != nil {
		return false
	}
	m.tiles[c] = t
	m.loading++
	metrics.TilesInFlight.WithLabelValues(m.name).Inc()
	return true
}

func (m *Manager) complete(r result) {
	m.loading--
	metrics.TilesInFlight.WithLabelValues(m.name).Dec()
	m.armed = true

	c := r.tile.Coord()
	err := r.tile.finish(r.model, r.err)
	metrics.RecordTileLoad(m.name, err, ErrEmpty, ErrCancelled)

	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled):
		if m.tiles[c] == r.tile {
			delete(m.tiles, c)
		}
	case errors.Is(err, ErrEmpty):
		// tracked without a model so it is not fetched again while in view
		m.log.Debug("tile has no content", zap.Stringer("tile", c), zap.Error(err))
	default:
		m.log.Warn("failed to load tile", zap.Stringer("tile", c), zap.Error(err))
		if m.tiles[c] == r.tile {
			delete(m.tiles, c)
			m.failed[c] = struct{}{}
		}
	}
}

func (m *Manager) removeFarTiles() {
	for c, t := range m.tiles {
		if abs(c.X-m.center.X) > m.viewX || abs(c.Z-m.center.Z) > m.viewZ {
			t.Unload()
			delete(m.tiles, c)
		}
	}
}

func (m *Manager) removeAllTiles() {
	for c, t := range m.tiles {
		t.Unload()
		delete(m.tiles, c)
	}
	m.tileMap.SetAll(Empty)
}

func (m *Manager) handleLoadedTile(t *Tile) {
	m.markTile(t, Loaded)
	m.scene.Add(t.Model())
	metrics.TilesLoaded.WithLabelValues(m.name).Inc()

	if m.onTileLoad != nil {
		m.onTileLoad(t)
	}
}

func (m *Manager) handleUnloadedTile(t *Tile) {
	m.markTile(t, Empty)
	m.scene.Remove(t.Model())
	metrics.TilesLoaded.WithLabelValues(m.name).Dec()

	if m.onTileUnload != nil {
		m.onTileUnload(t)
	}
}

func (m *Manager) markTile(t *Tile, state color.Gray) {
	m.tileMap.SetTile(t.X()-m.center.X+MapHalfSize, t.Z()-m.center.Z+MapHalfSize, state)
}

// Name returns the layer name.
func (m *Manager) Name() string { return m.name }

// Tile returns the tracked tile at (x, z).
func (m *Manager) Tile(x, z int) (*Tile, bool) {
	t, ok := m.tiles[Coord{X: x, Z: z}]
	return t, ok
}

// Tiles returns the tracked tiles in no particular order.
func (m *Manager) Tiles() []*Tile {
	out := make([]*Tile, 0, len(m.tiles))
	for _, t := range m.tiles {
		out = append(out, t)
	}
	return out
}

// Len returns the number of tracked tiles, loaded or not.
func (m *Manager) Len() int { return len(m.tiles) }

// InFlight returns the number of running fetches.
func (m *Manager) InFlight() int { return m.loading }

// Center returns the current center tile.
func (m *Manager) Center() Coord { return m.center }

// ViewDistance returns the view distances in tiles.
func (m *Manager) ViewDistance() (int, int) { return m.viewX, m.viewZ }

// Unloaded reports whether the manager is stopped.
func (m *Manager) Unloaded() bool { return m.unloaded }

// TileMap returns the occupancy mask.
func (m *Manager) TileMap() *TileMap { return m.tileMap }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
