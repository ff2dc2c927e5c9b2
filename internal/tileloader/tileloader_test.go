package tileloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

type fakeGetter struct {
	bodies map[string][]byte
	err    error
	urls   []string
}

func (g *fakeGetter) GetBytes(_ context.Context, _, url string) ([]byte, error) {
	g.urls = append(g.urls, url)
	if g.err != nil {
		return nil, g.err
	}
	b, ok := g.bodies[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, fetch.ErrNotFound)
	}
	return b, nil
}

const hiresTileJSON = `{
	"tileGeometry": {
		"type": "BufferGeometry",
		"data": {
			"attributes": {
				"position": {"itemSize": 3, "type": "Float32Array", "array": [0,10,0, 2,10,0, 0,10,2], "normalized": false},
				"color": {"itemSize": 3, "type": "Float32Array", "array": [1,1,1, 1,1,1, 1,1,1], "normalized": false}
			},
			"index": {"type": "Uint16Array", "array": [0, 2, 1]},
			"groups": [{"start": 0, "count": 3, "materialIndex": 4}]
		}
	}
}`

var testHires = HiresSettings{
	TileSize:  math.Vec3{X: 32, Z: 32},
	Scale:     math.Vec3{X: 1, Z: 1},
	Translate: math.Vec3{X: 2, Z: 2},
}

func TestHiresLoad(t *testing.T) {
	g := &fakeGetter{bodies: map[string][]byte{
		"http://map/tiles/0/x1/z-2.json?42": []byte(hiresTileJSON),
	}}
	l := NewHires(g, "http://map/tiles/0/", testHires, "42")

	model, err := l.Load(context.Background(), 1, -2)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mesh, ok := model.(*Mesh)
	if !ok {
		t.Fatalf("model is %T, want *Mesh", model)
	}

	if mesh.Kind() != KindHires {
		t.Errorf("Kind = %v", mesh.Kind())
	}
	if want := (math.Vec3{X: 34, Z: -62}); mesh.Position != want {
		t.Errorf("Position = %v, want %v", mesh.Position, want)
	}
	if want := (math.Vec3{X: 1, Y: 1, Z: 1}); mesh.Scale != want {
		t.Errorf("Scale = %v, want %v", mesh.Scale, want)
	}
	if mesh.URL != "http://map/tiles/0/x1/z-2.json" {
		t.Errorf("URL = %q", mesh.URL)
	}
	if mesh.Geometry.VertexCount() != 3 {
		t.Errorf("VertexCount = %d, want 3", mesh.Geometry.VertexCount())
	}
	if len(mesh.Geometry.Index) != 3 || mesh.Geometry.Index[1] != 2 {
		t.Errorf("Index = %v", mesh.Geometry.Index)
	}
	if len(mesh.Geometry.Groups) != 1 || mesh.Geometry.Groups[0].MaterialIndex != 4 {
		t.Errorf("Groups = %+v", mesh.Geometry.Groups)
	}

	released := 0
	mesh.Release = func() { released++ }
	mesh.Dispose()
	mesh.Dispose()
	if released != 1 || mesh.Geometry != nil {
		t.Errorf("released %d times, geometry %v", released, mesh.Geometry)
	}
}

func TestHiresEmpty(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no geometry", `{}`},
		{"null geometry", `{"tileGeometry": null}`},
		{"wrong type", `{"tileGeometry": {"type": "Geometry"}}`},
		{"missing type", `{"tileGeometry": {"data": {}}}`},
		{"broken json", `{broken`},
		{"geometry not an object", `{"tileGeometry": "abc"}`},
		{"no position", `{"tileGeometry": {"type": "BufferGeometry", "data": {
			"attributes": {"color": {"itemSize": 3, "array": [1,1,1]}}}}}`},
		{"no attributes with index", `{"tileGeometry": {"type": "BufferGeometry", "data": {
			"attributes": {}, "index": {"array": [0, 1, 2]}}}}`},
		{"no vertices", `{"tileGeometry": {"type": "BufferGeometry", "data": {
			"attributes": {"position": {"itemSize": 3, "array": []}}}}}`},
		{"index out of range", `{"tileGeometry": {"type": "BufferGeometry", "data": {
			"attributes": {"position": {"itemSize": 3, "array": [0,0,0, 1,0,0, 0,0,1]}},
			"index": {"array": [0, 1, 3]}}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGetter{bodies: map[string][]byte{"t/x0/z0.json?0": []byte(tt.body)}}
			_, err := NewHires(g, "t/", testHires, "0").Load(context.Background(), 0, 0)
			if !errors.Is(err, tiles.ErrEmpty) {
				t.Errorf("err = %v, want ErrEmpty", err)
			}
		})
	}
}

func TestHiresErrors(t *testing.T) {
	g := &fakeGetter{bodies: map[string][]byte{}}
	if _, err := NewHires(g, "t/", testHires, "0").Load(context.Background(), 5, 5); !errors.Is(err, tiles.ErrEmpty) {
		t.Errorf("not found err = %v, want ErrEmpty", err)
	}

	transport := errors.New("connection refused")
	g = &fakeGetter{err: transport}
	_, err := NewHires(g, "t/", testHires, "0").Load(context.Background(), 0, 0)
	if !errors.Is(err, transport) || errors.Is(err, tiles.ErrEmpty) {
		t.Errorf("transport err = %v", err)
	}
}

func TestHiresCancelledAfterFetch(t *testing.T) {
	g := &fakeGetter{bodies: map[string][]byte{"t/x0/z0.json?0": []byte(hiresTileJSON)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHires(g, "t/", testHires, "0").Load(ctx, 0, 0)
	if !errors.Is(err, tiles.ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

// encodeLowres builds a tile image with the given height stored for block
// (px, pz).
func encodeLowres(t *testing.T, size, px, pz int, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size+1, 2*(size+1)))
	h := uint16(int16(height))
	img.Set(px, pz+size+1, color.NRGBA{G: uint8(h >> 8), B: uint8(h), A: 0xff})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestLowresLoad(t *testing.T) {
	settings := LowresSettings{TileSize: math.Vec3{X: 32, Z: 32}, LODFactor: 5}
	g := &fakeGetter{bodies: map[string][]byte{
		"m/tiles/2/x-1/z3.png?7": encodeLowres(t, 32, 4, 6, 70),
	}}
	l := NewLowres(g, "m/tiles/", settings, 2, "7")

	model, err := l.Load(context.Background(), -1, 3)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tile, ok := model.(*LowresTile)
	if !ok {
		t.Fatalf("model is %T, want *LowresTile", model)
	}

	if tile.Kind() != KindLowres || tile.LOD != 2 {
		t.Errorf("Kind = %v LOD = %d", tile.Kind(), tile.LOD)
	}
	if want := (math.Vec3{X: -160, Z: 480}); tile.Position != want {
		t.Errorf("Position = %v, want %v", tile.Position, want)
	}
	if want := (math.Vec3{X: 5, Y: 1, Z: 5}); tile.Scale != want {
		t.Errorf("Scale = %v, want %v", tile.Scale, want)
	}
	if h, ok := tile.HeightAt(4, 6); !ok || h != 70 {
		t.Errorf("HeightAt = %v %v, want 70 true", h, ok)
	}
	if _, ok := tile.HeightAt(4, 100); ok {
		t.Error("HeightAt outside the image should fail")
	}

	tile.Dispose()
	if _, ok := tile.HeightAt(4, 6); ok {
		t.Error("HeightAt after Dispose should fail")
	}
}

func TestLowresNotFound(t *testing.T) {
	g := &fakeGetter{bodies: map[string][]byte{}}
	_, err := NewLowres(g, "m/tiles/", LowresSettings{TileSize: math.Vec3{X: 32, Z: 32}, LODFactor: 5}, 1, "0").
		Load(context.Background(), 0, 0)
	if !errors.Is(err, tiles.ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestDecodeHeight(t *testing.T) {
	tests := []struct {
		g, b uint8
		want float64
	}{
		{0, 0, 0},
		{0, 64, 64},
		{1, 0, 256},
		{0x7f, 0xff, 32767},
		{0x80, 0x00, -32767},
		{0xff, 0xff, 0},
		{0xff, 0xfe, -1},
	}
	for _, tt := range tests {
		if got := decodeHeight(tt.g, tt.b); got != tt.want {
			t.Errorf("decodeHeight(%d, %d) = %v, want %v", tt.g, tt.b, got, tt.want)
		}
	}
}

func TestLODScale(t *testing.T) {
	if LODScale(5, 1) != 1 || LODScale(5, 2) != 5 || LODScale(5, 3) != 25 {
		t.Error("unexpected LOD scales")
	}
}
