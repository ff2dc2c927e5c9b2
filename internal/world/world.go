// Package world holds a loaded map: its settings, block materials and the
// hires and lowres tile layers streamed around the camera.
package world

import (
	"context"
	"errors"
	"fmt"
	gomath "math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nosadnile/bluemap-go/internal/engine/picking"
	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// ErrNotLoaded is returned by operations that need a loaded map.
var ErrNotLoaded = errors.New("world: map not loaded")

// Fetcher is the part of fetch.Client a map needs.
type Fetcher interface {
	tileloader.Getter
	GetJSON(ctx context.Context, kind, url string, v any) error
}

// TileEvent reports a tile attached to or released from a layer.
type TileEvent struct {
	Layer tileloader.Kind
	// LOD is 0 for hires tiles.
	LOD  int
	Tile *tiles.Tile
}

// Options configures a Map.
type Options struct {
	Scene        tiles.Scene
	OnTileLoad   func(TileEvent)
	OnTileUnload func(TileEvent)
}

// Map is one world of a map server.
type Map struct {
	settings Settings
	client   Fetcher
	opts     Options
	log      *zap.Logger

	materials []*Material
	hires     *tiles.Manager
	lowres    []*tiles.Manager
}

// NewMap creates an unloaded map. dataURL is the map's base URL and must
// end with a slash.
func NewMap(id, dataURL string, client Fetcher, opts Options) *Map {
	return &Map{
		settings: DefaultSettings(id, dataURL),
		client:   client,
		opts:     opts,
		log:      logger.Named("world").With(zap.String("map", id)),
	}
}

// Load fetches the map's settings and textures and creates its tile
// layers. Any previous state is unloaded first. tileCacheHash is appended
// to tile URLs so a re-render on the server invalidates cached tiles.
func (m *Map) Load(ctx context.Context, tileCacheHash string) error {
	m.Unload()

	var settings settingsDocument
	var textures []textureDocument

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url := m.settings.SettingsURL() + "?" + fetch.CacheToken()
		if err := m.client.GetJSON(gctx, "settings", url, &settings); err != nil {
			return fmt.Errorf("load settings.json for map %s: %w", m.settings.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		url := m.settings.TexturesURL() + "?" + fetch.CacheToken()
		body, err := m.client.GetBytes(gctx, "textures", url)
		if err != nil {
			return fmt.Errorf("load textures.json for map %s: %w", m.settings.ID, err)
		}
		textures, err = parseTextures(body)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	m.settings.merge(&settings)

	materials, errs := buildMaterials(textures)
	for _, err := range errs {
		m.log.Debug("texture not decoded", zap.Error(err))
	}
	m.materials = materials

	s := m.settings
	m.hires = tiles.NewManager(
		tileloader.NewHires(m.client, s.DataURL+"tiles/0/", s.Hires, tileCacheHash),
		tiles.Options{
			Name:         string(tileloader.KindHires),
			Scene:        m.opts.Scene,
			OnTileLoad:   m.tileHandler(m.opts.OnTileLoad, tileloader.KindHires, 0),
			OnTileUnload: m.tileHandler(m.opts.OnTileUnload, tileloader.KindHires, 0),
		},
	)

	lowresSettings := tileloader.LowresSettings{TileSize: s.Lowres.TileSize, LODFactor: s.Lowres.LODFactor}
	m.lowres = make([]*tiles.Manager, s.Lowres.LODCount)
	for i := range m.lowres {
		lod := i + 1
		m.lowres[i] = tiles.NewManager(
			tileloader.NewLowres(m.client, s.DataURL+"tiles/", lowresSettings, lod, tileCacheHash),
			tiles.Options{
				Name:         fmt.Sprintf("%s.%d", tileloader.KindLowres, lod),
				Scene:        m.opts.Scene,
				OnTileLoad:   m.tileHandler(m.opts.OnTileLoad, tileloader.KindLowres, lod),
				OnTileUnload: m.tileHandler(m.opts.OnTileUnload, tileloader.KindLowres, lod),
			},
		)
	}

	m.log.Info("map loaded",
		zap.String("name", s.Name),
		zap.Int("textures", len(materials)),
		zap.Int("lods", s.Lowres.LODCount))
	return nil
}

func (m *Map) tileHandler(fn func(TileEvent), layer tileloader.Kind, lod int) func(*tiles.Tile) {
	if fn == nil {
		return nil
	}
	return func(t *tiles.Tile) {
		fn(TileEvent{Layer: layer, LOD: lod, Tile: t})
	}
}

// IsLoaded reports whether Load succeeded and Unload has not been called.
func (m *Map) IsLoaded() bool {
	return m.hires != nil
}

// LoadMapArea centers every layer on world position (x, z). View
// distances are in blocks. It does nothing while the map is not loaded.
func (m *Map) LoadMapArea(x, z, hiresViewDistance, lowresViewDistance float64) {
	if !m.IsLoaded() {
		return
	}
	s := m.settings

	for i := len(m.lowres) - 1; i >= 0; i-- {
		scale := tileloader.LODScale(s.Lowres.LODFactor, i+1)
		lx := floorDiv(x, s.Lowres.TileSize.X*scale)
		lz := floorDiv(z, s.Lowres.TileSize.Z*scale)
		vx := floorDiv(lowresViewDistance, s.Lowres.TileSize.X)
		vz := floorDiv(lowresViewDistance, s.Lowres.TileSize.Z)
		m.lowres[i].LoadAroundTile(lx, lz, vx, vz)
	}

	hx := floorDiv(x-s.Hires.Translate.X, s.Hires.TileSize.X)
	hz := floorDiv(z-s.Hires.Translate.Z, s.Hires.TileSize.Z)
	vx := floorDiv(hiresViewDistance, s.Hires.TileSize.X)
	vz := floorDiv(hiresViewDistance, s.Hires.TileSize.Z)
	m.hires.LoadAroundTile(hx, hz, vx, vz)
}

// TerrainHeightAt returns the terrain height at (x, z) from the loaded
// tiles, preferring hires geometry over lowres height maps. ok is false
// when no loaded tile covers the position.
func (m *Map) TerrainHeightAt(x, z float64) (height float64, ok bool) {
	if !m.IsLoaded() {
		return 0, false
	}
	s := m.settings

	hx := floorDiv(x-s.Hires.Translate.X, s.Hires.TileSize.X)
	hz := floorDiv(z-s.Hires.Translate.Z, s.Hires.TileSize.Z)
	if t, found := m.hires.Tile(hx, hz); found {
		if mesh, isMesh := t.Model().(*tileloader.Mesh); isMesh && mesh.Geometry != nil {
			ray := picking.Ray{
				Origin:    math.Vec3{X: x, Y: 300, Z: z},
				Direction: math.Vec3{Y: -1},
			}
			hit, ok := ray.IntersectMesh(mesh.Geometry.Positions(), mesh.Geometry.Index, mesh.Position, mesh.Scale, 1, 300)
			if ok {
				return hit.Point.Y, true
			}
		}
	}

	for i, lm := range m.lowres {
		scale := tileloader.LODScale(s.Lowres.LODFactor, i+1)
		sx := s.Lowres.TileSize.X * scale
		sz := s.Lowres.TileSize.Z * scale
		tx := floorDiv(x, sx)
		tz := floorDiv(z, sz)

		t, found := lm.Tile(tx, tz)
		if !found {
			continue
		}
		lt, isLowres := t.Model().(*tileloader.LowresTile)
		if !isLowres {
			continue
		}

		px := int(gomath.Floor((x - float64(tx)*sx) / scale))
		pz := int(gomath.Floor((z - float64(tz)*sz) / scale))
		if h, ok := lt.HeightAt(px, pz); ok {
			return h, true
		}
	}

	return 0, false
}

// Update applies finished tile fetches on every layer. Call once per
// frame from the goroutine that owns the map.
func (m *Map) Update() {
	if !m.IsLoaded() {
		return
	}
	for _, lm := range m.lowres {
		lm.Update()
	}
	m.hires.Update()
}

// Settle waits until every layer has finished loading its window.
func (m *Map) Settle(ctx context.Context) error {
	if !m.IsLoaded() {
		return ErrNotLoaded
	}
	for _, lm := range m.lowres {
		if err := lm.Settle(ctx); err != nil {
			return err
		}
	}
	return m.hires.Settle(ctx)
}

// Unload releases all tiles and materials.
func (m *Map) Unload() {
	if m.hires != nil {
		m.hires.Unload()
		m.hires = nil
	}
	for _, lm := range m.lowres {
		lm.Unload()
	}
	m.lowres = nil

	for _, mat := range m.materials {
		mat.Dispose()
	}
	m.materials = nil
}

// Settings returns the merged settings.
func (m *Map) Settings() Settings { return m.settings }

// ID returns the map id.
func (m *Map) ID() string { return m.settings.ID }

// Materials returns the hires block materials, indexed by the material
// index of geometry groups.
func (m *Map) Materials() []*Material { return m.materials }

// Hires returns the hires layer, or nil while unloaded.
func (m *Map) Hires() *tiles.Manager { return m.hires }

// Lowres returns the lowres layers, finest first.
func (m *Map) Lowres() []*tiles.Manager { return m.lowres }

func floorDiv(v, size float64) int {
	return int(gomath.Floor(v / size))
}
