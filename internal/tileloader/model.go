// Package tileloader fetches and decodes the two kinds of map tiles:
// hires tiles are JSON buffer geometries, lowres tiles are PNG height and
// color maps.
package tileloader

import (
	"context"
	"image"

	"github.com/nosadnile/bluemap-go/pkg/math"
)

// Kind tells hires and lowres tile models apart.
type Kind string

const (
	KindHires  Kind = "hires"
	KindLowres Kind = "lowres"
)

// Getter is the part of fetch.Client the loaders need.
type Getter interface {
	GetBytes(ctx context.Context, kind, url string) ([]byte, error)
}

// Attribute is one vertex attribute of a buffer geometry.
type Attribute struct {
	ItemSize   int       `json:"itemSize"`
	Type       string    `json:"type"`
	Array      []float32 `json:"array"`
	Normalized bool      `json:"normalized"`
}

// Count returns the number of vertices the attribute covers.
func (a Attribute) Count() int {
	if a.ItemSize <= 0 {
		return 0
	}
	return len(a.Array) / a.ItemSize
}

// Group is a range of indices drawn with one material.
type Group struct {
	Start         int `json:"start"`
	Count         int `json:"count"`
	MaterialIndex int `json:"materialIndex"`
}

// Geometry is a decoded hires tile mesh.
type Geometry struct {
	Attributes map[string]Attribute
	Index      []uint32
	Groups     []Group
}

// Positions returns the flat xyz position array, or nil.
func (g *Geometry) Positions() []float32 {
	return g.Attributes["position"].Array
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return g.Attributes["position"].Count()
}

// Mesh is a loaded hires tile.
type Mesh struct {
	Geometry *Geometry
	Position math.Vec3
	Scale    math.Vec3
	URL      string

	// Release frees GPU buffers created for the mesh. Set by the renderer.
	Release func()
}

// Kind returns KindHires.
func (m *Mesh) Kind() Kind { return KindHires }

// Dispose releases the geometry.
func (m *Mesh) Dispose() {
	if m.Release != nil {
		m.Release()
		m.Release = nil
	}
	m.Geometry = nil
}

// LowresTile is a loaded lowres tile: a flat grid of (tileSize+1)² vertices
// whose heights and colors come from Image.
type LowresTile struct {
	Image    *image.RGBA
	LOD      int
	TileSize math.Vec3
	Position math.Vec3
	Scale    math.Vec3
	URL      string

	// Release frees the texture created for the tile. Set by the renderer.
	Release func()
}

// Kind returns KindLowres.
func (t *LowresTile) Kind() Kind { return KindLowres }

// Dispose releases the texture.
func (t *LowresTile) Dispose() {
	if t.Release != nil {
		t.Release()
		t.Release = nil
	}
	t.Image = nil
}

// HeightAt decodes the terrain height stored for the block at pixel
// offset (px, pz) inside the tile. The height map sits below the color map,
// one row past the tile edge.
func (t *LowresTile) HeightAt(px, pz int) (float64, bool) {
	if t.Image == nil {
		return 0, false
	}
	p := image.Point{X: px, Y: pz + int(t.TileSize.Z) + 1}
	if !p.In(t.Image.Rect) {
		return 0, false
	}
	c := t.Image.RGBAAt(p.X, p.Y)
	return decodeHeight(c.G, c.B), true
}

func decodeHeight(g, b uint8) float64 {
	h := float64(g)*256 + float64(b)
	if h >= 32768 {
		return -(65535 - h)
	}
	return h
}
