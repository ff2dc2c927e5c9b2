// Package terrain turns decoded map tiles into vertex data ready for GPU
// upload. It has no GL dependency so meshes can be built and checked
// anywhere.
package terrain

// Vertex is one interleaved mesh vertex.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Color    [4]float32
	// Light holds sunlight, blocklight and ambient occlusion in [0, 1].
	Light [3]float32
}

// MaterialGroup is a range of indices drawn with one material.
type MaterialGroup struct {
	MaterialIndex int
	StartIndex    int32
	IndexCount    int32
}

// Mesh holds vertex data ready for GPU upload, in tile-local space.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Groups   []MaterialGroup
	Bounds   Bounds
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

func emptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
}

var defaultLight = [3]float32{1, 0, 1}
