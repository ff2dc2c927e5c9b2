// Package viewer ties a camera, its controls and the active map together.
package viewer

import (
	"context"
	"fmt"
	gomath "math"

	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/controls"
	"github.com/nosadnile/bluemap-go/internal/engine/camera"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/internal/engine/picking"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/internal/world"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// hiresCutoff is the camera distance beyond which hires tiles are not loaded.
const hiresCutoff = 1000

// Interaction describes a click on the map.
type Interaction struct {
	ScreenX, ScreenY float64
	Ray              picking.Ray

	// Hit is false when the click missed every loaded hires tile.
	Hit   bool
	Point math.Vec3
	Tile  tiles.Coord
}

// Options configures a Viewer.
type Options struct {
	// View distances in blocks.
	HiresViewDistance  float64
	LowresViewDistance float64
	TileCacheHash      string
	OnInteraction      func(Interaction)
}

// Viewer owns the camera, the controls manager and the active map. All
// methods must be called from the goroutine running the update loop.
type Viewer struct {
	camera   *camera.CombinedCamera
	input    *input.Dispatcher
	controls *controls.Manager
	current  *world.Map

	hiresViewDistance  float64
	lowresViewDistance float64

	loadedHiresViewDistance  float64
	loadedLowresViewDistance float64

	tileCacheHash string
	onInteraction func(Interaction)

	unsubscribe func()
	log         *zap.Logger
}

// New creates a viewer driving cam from in.
func New(cam *camera.CombinedCamera, in *input.Dispatcher, opts Options) *Viewer {
	v := &Viewer{
		camera:                   cam,
		input:                    in,
		hiresViewDistance:        opts.HiresViewDistance,
		lowresViewDistance:       opts.LowresViewDistance,
		loadedHiresViewDistance:  opts.HiresViewDistance,
		loadedLowresViewDistance: opts.LowresViewDistance,
		tileCacheHash:            opts.TileCacheHash,
		onInteraction:            opts.OnInteraction,
		log:                      logger.Named("viewer"),
	}
	if w, h := in.Size(); w > 0 && h > 0 {
		cam.SetAspect(float64(w) / float64(h))
	}
	v.unsubscribe = in.Subscribe(v.handle)
	v.controls = controls.NewManager(v, cam, in)
	return v
}

// Controls returns the controls manager.
func (v *Viewer) Controls() *controls.Manager { return v.controls }

// Camera returns the viewer camera.
func (v *Viewer) Camera() *camera.CombinedCamera { return v.camera }

// Map returns the active map or nil.
func (v *Viewer) Map() *world.Map { return v.current }

// HasMap reports whether a loaded map is active.
func (v *Viewer) HasMap() bool {
	return v.current != nil && v.current.IsLoaded()
}

// LoadedViewDistances returns the view distances of the last map area load.
func (v *Viewer) LoadedViewDistances() (hires, lowres float64) {
	return v.loadedHiresViewDistance, v.loadedLowresViewDistance
}

// SetViewDistances changes the configured view distances and reloads the
// area around the camera target.
func (v *Viewer) SetViewDistances(hires, lowres float64) {
	v.hiresViewDistance, v.lowresViewDistance = hires, lowres
	p := v.controls.Position
	v.LoadMapArea(p.X, p.Z)
}

// SwitchMap unloads the active map, loads m and centers the camera on its
// start position. On error no map is active.
func (v *Viewer) SwitchMap(ctx context.Context, m *world.Map) error {
	if v.current != nil {
		v.current.Unload()
		v.current = nil
	}
	if m == nil {
		return nil
	}

	if err := m.Load(ctx, v.tileCacheHash); err != nil {
		return fmt.Errorf("switch to map %s: %w", m.ID(), err)
	}
	v.current = m

	start := m.Settings().StartPos
	v.controls.Position = math.Vec3{X: start.X, Y: v.controls.Position.Y, Z: start.Z}
	if y, ok := m.TerrainHeightAt(start.X, start.Z); ok {
		v.controls.Position.Y = y
	}
	v.controls.UpdateCamera()
	v.LoadMapArea(start.X, start.Z)

	v.log.Info("map switched", zap.String("map", m.ID()))
	return nil
}

// LoadMapArea loads the active map around (x, z). Hires tiles are skipped
// while the camera is far out.
func (v *Viewer) LoadMapArea(x, z float64) {
	if !v.HasMap() {
		return
	}
	hires := v.hiresViewDistance
	if v.controls != nil && v.controls.Distance() >= hiresCutoff {
		hires = 0
	}
	v.loadedHiresViewDistance = hires
	v.loadedLowresViewDistance = v.lowresViewDistance
	v.current.LoadMapArea(x, z, hires, v.lowresViewDistance)
}

// Update advances the controls by deltaMs and applies finished tile loads.
func (v *Viewer) Update(deltaMs float64) {
	var terrain controls.Terrain
	if v.HasMap() {
		terrain = v.current
	}
	v.controls.Update(deltaMs, terrain)

	if v.current != nil {
		v.current.Update()
	}
}

// HandleMapInteraction casts a ray through the given screen position and
// reports the closest loaded hires tile it hits.
func (v *Viewer) HandleMapInteraction(screenX, screenY float64) {
	w, h := v.input.Size()
	if w <= 0 || h <= 0 {
		return
	}
	ray := picking.ScreenToRay(screenX, screenY, float64(w), float64(h), v.camera.ViewProjection().Inverse())

	in := Interaction{ScreenX: screenX, ScreenY: screenY, Ray: ray}
	if v.HasMap() {
		in.Hit, in.Point, in.Tile = v.pick(ray)
	}

	v.log.Debug("map interaction",
		zap.Float64("x", screenX),
		zap.Float64("y", screenY),
		zap.Bool("hit", in.Hit))

	if v.onInteraction != nil {
		v.onInteraction(in)
	}
}

func (v *Viewer) pick(ray picking.Ray) (bool, math.Vec3, tiles.Coord) {
	var (
		found bool
		point math.Vec3
		coord tiles.Coord
	)
	// the ray starts on the near plane
	best := gomath.Inf(1)
	far := v.camera.Far()

	for _, t := range v.current.Hires().Tiles() {
		mesh, ok := t.Model().(*tileloader.Mesh)
		if !ok || mesh.Geometry == nil {
			continue
		}
		hit, ok := ray.IntersectMesh(mesh.Geometry.Positions(), mesh.Geometry.Index, mesh.Position, mesh.Scale, 0, far)
		if !ok || hit.Distance >= best {
			continue
		}
		best = hit.Distance
		found, point, coord = true, hit.Point, t.Coord()
	}
	return found, point, coord
}

// Close unloads the active map and detaches from input.
func (v *Viewer) Close() {
	v.controls.SetScheme(nil)
	if v.current != nil {
		v.current.Unload()
		v.current = nil
	}
	if v.unsubscribe != nil {
		v.unsubscribe()
		v.unsubscribe = nil
	}
}

func (v *Viewer) handle(e input.Event) {
	if r, ok := e.(input.ResizeEvent); ok && r.Width > 0 && r.Height > 0 {
		v.camera.SetAspect(float64(r.Width) / float64(r.Height))
		v.camera.UpdateProjection()
	}
}
