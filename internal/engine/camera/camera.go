// Package camera provides the viewer's hybrid perspective/orthographic camera.
package camera

import (
	gomath "math"

	"github.com/nosadnile/bluemap-go/pkg/math"
)

// CombinedCamera blends a perspective and an orthographic projection.
// At Ortho 0 it is a plain perspective camera, at Ortho 1 a plain
// orthographic one sized so the plane at Distance keeps its apparent size.
type CombinedCamera struct {
	fov      float64 // vertical, degrees
	aspect   float64
	near     float64
	far      float64
	zoom     float64
	ortho    float64
	distance float64

	needsUpdate bool
	projection  math.Mat4

	position math.Vec3
	view     math.Mat4
}

// NewCombinedCamera creates a camera. fov is the vertical field of view in degrees.
func NewCombinedCamera(fov, aspect, near, far, ortho float64) *CombinedCamera {
	c := &CombinedCamera{
		fov:         fov,
		aspect:      aspect,
		near:        near,
		far:         far,
		zoom:        1,
		ortho:       ortho,
		distance:    1,
		needsUpdate: true,
		view:        math.Identity(),
	}
	c.UpdateProjection()
	return c
}

// FOV returns the vertical field of view in degrees.
func (c *CombinedCamera) FOV() float64 { return c.fov }

// Aspect returns width/height.
func (c *CombinedCamera) Aspect() float64 { return c.aspect }

// Near returns the near plane distance.
func (c *CombinedCamera) Near() float64 { return c.near }

// Far returns the far plane distance.
func (c *CombinedCamera) Far() float64 { return c.far }

// Zoom returns the zoom factor.
func (c *CombinedCamera) Zoom() float64 { return c.zoom }

// Ortho returns the orthographic blend factor in [0, 1].
func (c *CombinedCamera) Ortho() float64 { return c.ortho }

// Distance returns the distance used to size the orthographic volume.
func (c *CombinedCamera) Distance() float64 { return c.distance }

// SetFOV sets the vertical field of view in degrees.
func (c *CombinedCamera) SetFOV(v float64) { c.set(&c.fov, v) }

// SetAspect sets width/height.
func (c *CombinedCamera) SetAspect(v float64) { c.set(&c.aspect, v) }

// SetNear sets the near plane distance.
func (c *CombinedCamera) SetNear(v float64) { c.set(&c.near, v) }

// SetFar sets the far plane distance.
func (c *CombinedCamera) SetFar(v float64) { c.set(&c.far, v) }

// SetZoom sets the zoom factor.
func (c *CombinedCamera) SetZoom(v float64) { c.set(&c.zoom, v) }

// SetOrtho sets the orthographic blend factor.
func (c *CombinedCamera) SetOrtho(v float64) { c.set(&c.ortho, v) }

// SetDistance sets the orthographic sizing distance.
func (c *CombinedCamera) SetDistance(v float64) { c.set(&c.distance, v) }

func (c *CombinedCamera) set(field *float64, v float64) {
	if *field != v {
		*field = v
		c.needsUpdate = true
	}
}

// NeedsUpdate reports whether the projection is stale.
func (c *CombinedCamera) NeedsUpdate() bool { return c.needsUpdate }

// IsOrthographic reports whether the camera is fully orthographic.
func (c *CombinedCamera) IsOrthographic() bool { return c.ortho >= 1 }

// UpdateProjection recomputes the projection if an input changed.
func (c *CombinedCamera) UpdateProjection() {
	if !c.needsUpdate {
		return
	}

	tan := gomath.Tan(0.5 * c.fov * gomath.Pi / 180)

	top := c.near * tan / c.zoom
	height := 2 * top
	width := c.aspect * height
	left := -0.5 * width
	perspective := math.Frustum(left, left+width, top-height, top, c.near, c.far)

	orthoTop := gomath.Max(c.distance, 0.0001) * tan / c.zoom
	orthoHeight := 2 * orthoTop
	orthoWidth := c.aspect * orthoHeight
	orthoLeft := -0.5 * orthoWidth
	orthographic := math.Ortho(orthoLeft, orthoLeft+orthoWidth, orthoTop-orthoHeight, orthoTop, c.near, c.far)

	c.projection = perspective.Blend(orthographic, BlendFactor(c.ortho))
	c.needsUpdate = false
}

// BlendFactor maps the ortho setting onto the projection weight. The curve
// stays near perspective for most of the range and snaps to orthographic
// close to 1.
func BlendFactor(ortho float64) float64 {
	return -gomath.Pow(ortho-1, 6) + 1
}

// Projection returns the current projection matrix.
func (c *CombinedCamera) Projection() math.Mat4 {
	c.UpdateProjection()
	return c.projection
}

// SetPose places the camera at eye looking at target, then rolls it
// around its viewing axis.
func (c *CombinedCamera) SetPose(eye, target math.Vec3, roll float64) {
	c.position = eye
	c.view = math.RotateZ(-roll).Mul(math.LookAt(eye, target, math.Vec3{Y: 1}))
}

// Position returns the camera's world position.
func (c *CombinedCamera) Position() math.Vec3 { return c.position }

// View returns the view matrix.
func (c *CombinedCamera) View() math.Mat4 { return c.view }

// ViewProjection returns projection * view.
func (c *CombinedCamera) ViewProjection() math.Mat4 {
	return c.Projection().Mul(c.view)
}
