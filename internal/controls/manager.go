// Package controls turns input into camera motion. A Manager owns the
// camera target state and derives the camera pose from it; a Scheme
// (map or free-flight) changes that state from input events.
package controls

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/engine/camera"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

const (
	maxDeltaMs     = 50
	initialDeltaMs = 16
	poleEpsilon    = 0.0001

	// orthoMinDistance is how far an orthographic camera is pulled back.
	orthoMinDistance = 300
	// lowresDistance switches map-area triggering to lowres view distance.
	lowresDistance = 300
	// hiresReloadDistance forces a map update when zooming in past it.
	hiresReloadDistance = 1000
)

// Terrain answers height queries. A *world.Map satisfies it.
type Terrain interface {
	TerrainHeightAt(x, z float64) (float64, bool)
}

// Viewer is the map viewer a Manager drives.
type Viewer interface {
	// HasMap reports whether a map is active.
	HasMap() bool
	// LoadedViewDistances returns the hires and lowres view distances in
	// blocks the current tiles were requested with.
	LoadedViewDistances() (hires, lowres float64)
	LoadMapArea(x, z float64)
	HandleMapInteraction(screenX, screenY float64)
}

// Scheme is a set of input handlers that move the camera target.
type Scheme interface {
	// Start subscribes the scheme to m's input.
	Start(m *Manager)
	// Stop unsubscribes it.
	Stop()
	// Update applies pending motion. deltaMs is the smoothed frame time.
	Update(deltaMs float64, terrain Terrain)
}

type state struct {
	position math.Vec3
	rotation float64
	angle    float64
	distance float64
	ortho    float64
	tilt     float64
}

// Manager holds the camera target: the position looked at, the rotation
// around the vertical axis (0 is north), the angle from straight down, the
// distance from the target and the orthographic blend. Not safe for
// concurrent use.
type Manager struct {
	Position math.Vec3
	Rotation float64
	Angle    float64
	Tilt     float64

	viewer Viewer
	camera *camera.CombinedCamera
	input  *input.Dispatcher
	scheme Scheme

	last state

	lastMapUpdatePosition math.Vec3
	lastMapUpdateDistance float64

	averageDeltaMs float64

	moved  map[int]func(*Manager)
	nextID int
}

// NewManager creates a manager looking straight down at the origin from
// 300 blocks and positions cam accordingly.
func NewManager(viewer Viewer, cam *camera.CombinedCamera, in *input.Dispatcher) *Manager {
	m := &Manager{
		viewer:         viewer,
		camera:         cam,
		input:          in,
		averageDeltaMs: initialDeltaMs,
		moved:          make(map[int]func(*Manager)),
	}

	m.last = m.snapshot()
	m.lastMapUpdatePosition = m.Position
	m.lastMapUpdateDistance = m.Distance()

	m.SetDistance(300)
	m.SetOrtho(0)
	m.UpdateCamera()
	return m
}

// Distance returns the camera distance from the target.
func (m *Manager) Distance() float64 { return m.camera.Distance() }

// SetDistance sets the camera distance from the target.
func (m *Manager) SetDistance(d float64) { m.camera.SetDistance(d) }

// Ortho returns the orthographic blend in [0, 1].
func (m *Manager) Ortho() float64 { return m.camera.Ortho() }

// SetOrtho sets the orthographic blend.
func (m *Manager) SetOrtho(o float64) { m.camera.SetOrtho(o) }

// Camera returns the driven camera.
func (m *Manager) Camera() *camera.CombinedCamera { return m.camera }

// Input returns the dispatcher schemes subscribe to.
func (m *Manager) Input() *input.Dispatcher { return m.input }

// Scheme returns the active scheme or nil.
func (m *Manager) Scheme() Scheme { return m.scheme }

// SetScheme stops the active scheme and starts s. A nil s leaves no
// scheme active.
func (m *Manager) SetScheme(s Scheme) {
	if m.scheme != nil {
		m.scheme.Stop()
	}
	m.scheme = s
	if s != nil {
		s.Start(m)
	}
}

// OnCameraMoved registers fn to run whenever UpdateCamera moves the camera.
func (m *Manager) OnCameraMoved(fn func(*Manager)) (unsubscribe func()) {
	id := m.nextID
	m.nextID++
	m.moved[id] = fn
	return func() { delete(m.moved, id) }
}

// Update advances the active scheme by deltaMs milliseconds and updates
// the camera. Frame times are clamped to 50ms and averaged so a single
// slow frame does not make the controls jump.
func (m *Manager) Update(deltaMs float64, terrain Terrain) {
	deltaMs = min(deltaMs, maxDeltaMs)
	m.averageDeltaMs = m.averageDeltaMs*0.9 + deltaMs*0.1

	if m.scheme != nil {
		m.scheme.Update(m.averageDeltaMs, terrain)
	}
	m.UpdateCamera()
}

// AverageDeltaMs returns the smoothed frame time.
func (m *Manager) AverageDeltaMs() float64 { return m.averageDeltaMs }

// UpdateCamera recomputes the camera pose and clip planes if the target
// state changed, then asks the viewer to load the map around the target
// once it moved far enough.
func (m *Manager) UpdateCamera() {
	changed := m.snapshot() != m.last

	if changed {
		m.Rotation = wrapRotation(m.Rotation)
		m.last = m.snapshot()
		m.positionCamera()

		for _, fn := range m.moved {
			fn(m)
		}
	}

	if m.viewer == nil || !m.viewer.HasMap() {
		return
	}

	trigger := 1.0
	if changed {
		hires, lowres := m.viewer.LoadedViewDistances()
		if m.Distance() > lowresDistance {
			trigger = lowres * 0.5
		} else {
			trigger = hires * 0.5
		}
	}

	if gomath.Abs(m.lastMapUpdatePosition.X-m.Position.X) >= trigger ||
		gomath.Abs(m.lastMapUpdatePosition.Z-m.Position.Z) >= trigger ||
		(m.Distance() < hiresReloadDistance && m.lastMapUpdateDistance > hiresReloadDistance) {
		m.lastMapUpdatePosition = m.Position
		m.lastMapUpdateDistance = m.Distance()
		m.viewer.LoadMapArea(m.Position.X, m.Position.Z)
	}
}

// HandleMapInteraction forwards a click at screen coordinates to the viewer.
func (m *Manager) HandleMapInteraction(screenX, screenY float64) {
	if m.viewer != nil {
		m.viewer.HandleMapInteraction(screenX, screenY)
	}
}

func (m *Manager) snapshot() state {
	return state{
		position: m.Position,
		rotation: m.Rotation,
		angle:    m.Angle,
		distance: m.Distance(),
		ortho:    m.Ortho(),
		tilt:     m.Tilt,
	}
}

func (m *Manager) positionCamera() {
	angle := m.Angle
	switch {
	case gomath.Abs(angle) <= poleEpsilon:
		angle = poleEpsilon
	case gomath.Abs(gomath.Pi-gomath.Abs(angle)) <= poleEpsilon:
		angle -= gomath.Copysign(poleEpsilon, angle)
	}

	distance := m.Distance()
	if gomath.Abs(distance) <= poleEpsilon {
		distance = poleEpsilon
	}
	if m.Ortho() > 0 {
		distance = math.Lerp(distance, max(distance, orthoMinDistance), gomath.Pow(m.Ortho(), 8))
	}

	// 0 is north
	dir := math.Vec3{X: gomath.Sin(m.Rotation), Z: -gomath.Cos(m.Rotation)}
	axis := math.Vec3{Y: 1}.Cross(dir)
	dir = math.QuatFromAxisAngle(axis, gomath.Pi/2-angle).Rotate(dir).Scale(distance)

	roll := 0.0
	if m.Tilt+angle < 0 {
		roll = gomath.Pi
	}
	m.camera.SetPose(m.Position.Sub(dir), m.Position, roll)

	near, far := clipPlanes(distance, m.Ortho(), m.Angle)
	m.camera.SetNear(near)
	m.camera.SetFar(far)
	if m.camera.NeedsUpdate() {
		m.camera.UpdateProjection()
	}
}

// clipPlanes picks near and far planes that keep depth precision around
// the target.
func clipPlanes(distance, ortho, angle float64) (near, far float64) {
	switch {
	case ortho <= 0:
		near = math.Clamp(distance/1000, 0.01, 1)
		far = math.Clamp(distance*2, max(near+1, 2000), distance+5000)
		if far-near > 10000 {
			near = far - 10000
		}
	case angle == 0:
		near, far = 1, distance+300
	default:
		near, far = 1, 100000
	}
	return near, far
}

// wrapRotation maps r into (-π, π]. NaN and infinities become 0.
func wrapRotation(r float64) float64 {
	if gomath.IsNaN(r) || gomath.IsInf(r, 0) {
		return 0
	}
	r = gomath.Remainder(r, 2*gomath.Pi)
	if r <= -gomath.Pi {
		r = gomath.Pi
	}
	return r
}
