package terrain

import (
	"fmt"
	gomath "math"

	"github.com/nosadnile/bluemap-go/internal/tileloader"
)

// maxLightLevel is the brightest Minecraft light level.
const maxLightLevel = 15

// BuildHires packs a hires tile geometry into an interleaved mesh.
// Missing optional attributes fall back to an upward normal, white color
// and full sunlight. An unindexed geometry gets a sequential index, and a
// geometry without groups is drawn with material 0.
func BuildHires(g *tileloader.Geometry) (*Mesh, error) {
	pos, ok := g.Attributes["position"]
	if !ok || pos.ItemSize != 3 {
		return nil, fmt.Errorf("hires mesh: missing position attribute")
	}
	n := pos.Count()

	read := func(name string, size int) ([]float32, error) {
		a, ok := g.Attributes[name]
		if !ok {
			return nil, nil
		}
		if a.ItemSize != size || a.Count() < n {
			return nil, fmt.Errorf("hires mesh: attribute %s has %d values of size %d, want %d of size %d",
				name, a.Count(), a.ItemSize, n, size)
		}
		return a.Array, nil
	}

	normal, err := read("normal", 3)
	if err != nil {
		return nil, err
	}
	color, err := read("color", 3)
	if err != nil {
		return nil, err
	}
	uv, err := read("uv", 2)
	if err != nil {
		return nil, err
	}
	ao, err := read("ao", 1)
	if err != nil {
		return nil, err
	}
	sun, err := read("sunlight", 1)
	if err != nil {
		return nil, err
	}
	block, err := read("blocklight", 1)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{
		Vertices: make([]Vertex, n),
		Bounds:   emptyBounds(),
	}
	for i := range mesh.Vertices {
		v := Vertex{
			Position: [3]float32{pos.Array[i*3], pos.Array[i*3+1], pos.Array[i*3+2]},
			Normal:   [3]float32{0, 1, 0},
			Color:    [4]float32{1, 1, 1, 1},
			Light:    defaultLight,
		}
		if normal != nil {
			v.Normal = [3]float32{normal[i*3], normal[i*3+1], normal[i*3+2]}
		}
		if color != nil {
			v.Color = [4]float32{color[i*3], color[i*3+1], color[i*3+2], 1}
		}
		if uv != nil {
			v.TexCoord = [2]float32{uv[i*2], uv[i*2+1]}
		}
		if sun != nil {
			v.Light[0] = sun[i] / maxLightLevel
		}
		if block != nil {
			v.Light[1] = block[i] / maxLightLevel
		}
		if ao != nil {
			v.Light[2] = ao[i]
		}
		mesh.Vertices[i] = v
		updateBounds(&mesh.Bounds, v.Position)
	}

	if g.Index != nil {
		for _, idx := range g.Index {
			if int(idx) >= n {
				return nil, fmt.Errorf("hires mesh: index %d out of range for %d vertices", idx, n)
			}
		}
		mesh.Indices = g.Index
	} else {
		mesh.Indices = make([]uint32, n)
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}

	total := len(mesh.Indices)
	for _, grp := range g.Groups {
		start := min(max(grp.Start, 0), total)
		count := min(max(grp.Count, 0), total-start)
		if count == 0 {
			continue
		}
		mesh.Groups = append(mesh.Groups, MaterialGroup{
			MaterialIndex: grp.MaterialIndex,
			StartIndex:    int32(start),
			IndexCount:    int32(count),
		})
	}
	if len(g.Groups) == 0 && total > 0 {
		mesh.Groups = []MaterialGroup{{StartIndex: 0, IndexCount: int32(total)}}
	}

	return mesh, nil
}

// BuildLowres builds the height grid of a lowres tile: (size+1)² vertices
// one block apart, heights and colors read from the tile image. Normals
// are averaged over the faces sharing a vertex.
func BuildLowres(t *tileloader.LowresTile) *Mesh {
	sx, sz := int(t.TileSize.X), int(t.TileSize.Z)
	w := sx + 1

	mesh := &Mesh{
		Vertices: make([]Vertex, w*(sz+1)),
		Indices:  make([]uint32, 0, sx*sz*6),
		Bounds:   emptyBounds(),
	}

	for z := 0; z <= sz; z++ {
		for x := 0; x <= sx; x++ {
			h, _ := t.HeightAt(x, z)
			v := Vertex{
				Position: [3]float32{float32(x), float32(h), float32(z)},
				Color:    [4]float32{1, 1, 1, 1},
				Light:    defaultLight,
			}
			if t.Image != nil {
				c := t.Image.RGBAAt(x, z)
				v.Color = [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1}
			}
			mesh.Vertices[z*w+x] = v
			updateBounds(&mesh.Bounds, v.Position)
		}
	}

	normals := make([][3]float32, len(mesh.Vertices))
	addFace := func(a, b, c uint32) {
		mesh.Indices = append(mesh.Indices, a, b, c)
		pa, pb, pc := mesh.Vertices[a].Position, mesh.Vertices[b].Position, mesh.Vertices[c].Position
		n := cross(sub(pb, pa), sub(pc, pa))
		for _, i := range [3]uint32{a, b, c} {
			normals[i] = add(normals[i], n)
		}
	}
	for z := 0; z < sz; z++ {
		for x := 0; x < sx; x++ {
			i := uint32(z*w + x)
			// counter-clockwise seen from above (+y)
			addFace(i, i+uint32(w), i+1)
			addFace(i+1, i+uint32(w), i+uint32(w)+1)
		}
	}
	for i := range mesh.Vertices {
		mesh.Vertices[i].Normal = normalize(normals[i])
	}

	if len(mesh.Indices) > 0 {
		mesh.Groups = []MaterialGroup{{StartIndex: 0, IndexCount: int32(len(mesh.Indices))}}
	}
	return mesh
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float32) [3]float32 {
	l := float32(gomath.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l < 0.0001 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
