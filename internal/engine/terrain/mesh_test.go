package terrain

import (
	"image"
	"image/color"
	"testing"

	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

func quad() *tileloader.Geometry {
	return &tileloader.Geometry{
		Attributes: map[string]tileloader.Attribute{
			"position": {ItemSize: 3, Array: []float32{0, 64, 0, 32, 64, 0, 0, 64, 32, 32, 65, 32}},
		},
		Index: []uint32{0, 2, 1, 1, 2, 3},
	}
}

func TestBuildHiresDefaults(t *testing.T) {
	mesh, err := BuildHires(quad())
	if err != nil {
		t.Fatalf("BuildHires: %v", err)
	}
	if len(mesh.Vertices) != 4 || len(mesh.Indices) != 6 {
		t.Fatalf("vertices %d indices %d, want 4 6", len(mesh.Vertices), len(mesh.Indices))
	}
	v := mesh.Vertices[3]
	if v.Position != [3]float32{32, 65, 32} {
		t.Errorf("position = %v", v.Position)
	}
	if v.Normal != [3]float32{0, 1, 0} || v.Color != [4]float32{1, 1, 1, 1} || v.Light != defaultLight {
		t.Errorf("defaults = %+v", v)
	}
	if len(mesh.Groups) != 1 || mesh.Groups[0] != (MaterialGroup{IndexCount: 6}) {
		t.Errorf("groups = %+v", mesh.Groups)
	}
	if mesh.Bounds.Min != [3]float32{0, 64, 0} || mesh.Bounds.Max != [3]float32{32, 65, 32} {
		t.Errorf("bounds = %+v", mesh.Bounds)
	}
}

func TestBuildHiresAttributes(t *testing.T) {
	g := quad()
	g.Attributes["color"] = tileloader.Attribute{ItemSize: 3, Array: make([]float32, 12)}
	g.Attributes["uv"] = tileloader.Attribute{ItemSize: 2, Array: []float32{0, 0, 1, 0, 0, 1, 1, 1}}
	g.Attributes["sunlight"] = tileloader.Attribute{ItemSize: 1, Array: []float32{15, 15, 15, 0}}
	g.Attributes["blocklight"] = tileloader.Attribute{ItemSize: 1, Array: []float32{0, 0, 0, 15}}
	g.Attributes["ao"] = tileloader.Attribute{ItemSize: 1, Array: []float32{1, 1, 1, 0.5}}
	g.Groups = []tileloader.Group{
		{Start: 0, Count: 3, MaterialIndex: 2},
		{Start: 3, Count: 100, MaterialIndex: 5},
		{Start: 50, Count: 3, MaterialIndex: 7},
	}

	mesh, err := BuildHires(g)
	if err != nil {
		t.Fatalf("BuildHires: %v", err)
	}
	v := mesh.Vertices[3]
	if v.TexCoord != [2]float32{1, 1} || v.Color != [4]float32{0, 0, 0, 1} {
		t.Errorf("uv %v color %v", v.TexCoord, v.Color)
	}
	if v.Light != [3]float32{0, 1, 0.5} {
		t.Errorf("light = %v, want [0 1 0.5]", v.Light)
	}

	want := []MaterialGroup{
		{MaterialIndex: 2, StartIndex: 0, IndexCount: 3},
		{MaterialIndex: 5, StartIndex: 3, IndexCount: 3},
	}
	if len(mesh.Groups) != len(want) {
		t.Fatalf("groups = %+v, want %+v", mesh.Groups, want)
	}
	for i := range want {
		if mesh.Groups[i] != want[i] {
			t.Errorf("group %d = %+v, want %+v", i, mesh.Groups[i], want[i])
		}
	}
}

func TestBuildHiresUnindexed(t *testing.T) {
	g := quad()
	g.Index = nil
	mesh, err := BuildHires(g)
	if err != nil {
		t.Fatalf("BuildHires: %v", err)
	}
	if len(mesh.Indices) != 4 || mesh.Indices[3] != 3 {
		t.Errorf("indices = %v", mesh.Indices)
	}
}

func TestBuildHiresNoVertices(t *testing.T) {
	g := &tileloader.Geometry{Attributes: map[string]tileloader.Attribute{
		"position": {ItemSize: 3},
	}}
	mesh, err := BuildHires(g)
	if err != nil {
		t.Fatalf("BuildHires: %v", err)
	}
	if len(mesh.Vertices) != 0 || len(mesh.Indices) != 0 || len(mesh.Groups) != 0 {
		t.Errorf("mesh = %+v, want empty", mesh)
	}

	g.Index = []uint32{0, 1, 2}
	g.Groups = []tileloader.Group{{Start: 0, Count: 3}}
	if _, err := BuildHires(g); err == nil {
		t.Error("BuildHires accepted indices without vertices")
	}
}

func TestBuildHiresErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *tileloader.Geometry)
	}{
		{"no position", func(g *tileloader.Geometry) { delete(g.Attributes, "position") }},
		{"index out of range", func(g *tileloader.Geometry) { g.Index = []uint32{0, 1, 4} }},
		{"short normals", func(g *tileloader.Geometry) {
			g.Attributes["normal"] = tileloader.Attribute{ItemSize: 3, Array: []float32{0, 1, 0}}
		}},
		{"wrong uv size", func(g *tileloader.Geometry) {
			g.Attributes["uv"] = tileloader.Attribute{ItemSize: 3, Array: make([]float32, 12)}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := quad()
			tt.mutate(g)
			if _, err := BuildHires(g); err == nil {
				t.Error("BuildHires succeeded")
			}
		})
	}
}

func TestBuildLowres(t *testing.T) {
	// 2x2 blocks: a 3x3 color map above a 3x3 height map
	img := image.NewRGBA(image.Rect(0, 0, 3, 6))
	for z := range 3 {
		for x := range 3 {
			img.Set(x, z, color.RGBA{R: 255, G: 0, B: 51, A: 255})
			img.Set(x, z+3, color.RGBA{G: 0, B: 64, A: 255})
		}
	}
	img.Set(2, 2+3, color.RGBA{G: 0, B: 66, A: 255})

	tile := &tileloader.LowresTile{
		Image:    img,
		TileSize: math.Vec3{X: 2, Z: 2},
	}
	mesh := BuildLowres(tile)

	if len(mesh.Vertices) != 9 || len(mesh.Indices) != 24 {
		t.Fatalf("vertices %d indices %d, want 9 24", len(mesh.Vertices), len(mesh.Indices))
	}
	if p := mesh.Vertices[4].Position; p != [3]float32{1, 64, 1} {
		t.Errorf("center vertex = %v", p)
	}
	if p := mesh.Vertices[8].Position; p != [3]float32{2, 66, 2} {
		t.Errorf("corner vertex = %v", p)
	}
	if c := mesh.Vertices[0].Color; c != [4]float32{1, 0, 0.2, 1} {
		t.Errorf("color = %v", c)
	}
	// the flat corner faces up
	if n := mesh.Vertices[0].Normal; n != [3]float32{0, 1, 0} {
		t.Errorf("flat normal = %v", n)
	}
	// the raised corner tilts away from +x and +z
	if n := mesh.Vertices[8].Normal; n[0] >= 0 || n[2] >= 0 || n[1] <= 0 {
		t.Errorf("slope normal = %v", n)
	}
	if mesh.Bounds.Max[1] != 66 || mesh.Bounds.Min[1] != 64 {
		t.Errorf("bounds = %+v", mesh.Bounds)
	}
}
