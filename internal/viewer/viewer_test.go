package viewer

import (
	"context"
	"errors"
	"fmt"
	gomath "math"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/controls"
	"github.com/nosadnile/bluemap-go/internal/engine/camera"
	"github.com/nosadnile/bluemap-go/internal/engine/input"
	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/internal/world"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

const base = "http://maps/world/"

type fakeFetcher struct {
	bodies map[string][]byte
}

func (f *fakeFetcher) GetBytes(_ context.Context, _, url string) ([]byte, error) {
	url, _, _ = strings.Cut(url, "?")
	b, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("%s: %w", url, fetch.ErrNotFound)
	}
	return b, nil
}

func (f *fakeFetcher) GetJSON(ctx context.Context, kind, url string, v any) error {
	b, err := f.GetBytes(ctx, kind, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// flat hires tile at y=64 covering x and z in [2, 34)
const hiresTile = `{"tileGeometry": {"type": "BufferGeometry", "data": {
	"attributes": {"position": {"itemSize": 3, "type": "Float32Array",
		"array": [0,64,0, 32,64,0, 0,64,32, 32,64,32]}},
	"index": {"type": "Uint16Array", "array": [0,2,1, 1,2,3]}
}}}`

func newTestMap() *world.Map {
	f := &fakeFetcher{bodies: map[string][]byte{
		base + "settings.json":      []byte(`{"startPos": [16, 16], "lowres": {"lodCount": 1}}`),
		base + "textures.json":      []byte(`[]`),
		base + "tiles/0/x0/z0.json": []byte(hiresTile),
	}}
	return world.NewMap("world", base, f, world.Options{})
}

func newTestViewer(opts Options) *Viewer {
	in := input.NewDispatcher(800, 600)
	cam := camera.NewCombinedCamera(75, 1, 0.1, 10000, 0)
	if opts.HiresViewDistance == 0 {
		opts.HiresViewDistance = 64
	}
	if opts.LowresViewDistance == 0 {
		opts.LowresViewDistance = 320
	}
	return New(cam, in, opts)
}

func settle(t *testing.T, v *Viewer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.Map().Settle(ctx); err != nil {
		t.Fatalf("Settle: %v", err)
	}
}

func TestSwitchMap(t *testing.T) {
	v := newTestViewer(Options{})
	defer v.Close()

	if v.HasMap() {
		t.Fatal("HasMap before SwitchMap")
	}
	if err := v.SwitchMap(context.Background(), newTestMap()); err != nil {
		t.Fatalf("SwitchMap: %v", err)
	}
	if !v.HasMap() {
		t.Fatal("HasMap after SwitchMap = false")
	}

	p := v.Controls().Position
	if p.X != 16 || p.Z != 16 {
		t.Errorf("controls position = %v, want start (16, 16)", p)
	}
	if c := v.Map().Hires().Center(); c != (tiles.Coord{}) {
		t.Errorf("hires center = %v, want x0z0", c)
	}
	if vx, vz := v.Map().Hires().ViewDistance(); vx != 2 || vz != 2 {
		t.Errorf("hires view = %d %d, want 2 2", vx, vz)
	}

	settle(t, v)
	tile, ok := v.Map().Hires().Tile(0, 0)
	if !ok || !tile.Loaded() {
		t.Error("start tile not loaded")
	}

	// switching away unloads the previous map
	old := v.Map()
	if err := v.SwitchMap(context.Background(), nil); err != nil {
		t.Fatalf("SwitchMap(nil): %v", err)
	}
	if v.HasMap() || old.IsLoaded() {
		t.Error("previous map still loaded")
	}
}

func TestSwitchMapError(t *testing.T) {
	v := newTestViewer(Options{})
	defer v.Close()

	m := world.NewMap("missing", "http://maps/missing/", &fakeFetcher{}, world.Options{})
	err := v.SwitchMap(context.Background(), m)
	if !errors.Is(err, fetch.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if v.HasMap() || v.Map() != nil {
		t.Error("failed map became active")
	}
}

func TestLoadMapAreaDistances(t *testing.T) {
	v := newTestViewer(Options{HiresViewDistance: 96, LowresViewDistance: 640})
	defer v.Close()
	if err := v.SwitchMap(context.Background(), newTestMap()); err != nil {
		t.Fatalf("SwitchMap: %v", err)
	}

	if h, l := v.LoadedViewDistances(); h != 96 || l != 640 {
		t.Errorf("loaded distances = %v %v, want 96 640", h, l)
	}

	// far out the hires layer is dropped
	v.Controls().SetDistance(5000)
	v.LoadMapArea(0, 0)
	if h, l := v.LoadedViewDistances(); h != 0 || l != 640 {
		t.Errorf("loaded distances far out = %v %v, want 0 640", h, l)
	}
	if n := v.Map().Hires().Len(); n != 0 {
		t.Errorf("hires tiles far out = %d, want 0", n)
	}

	v.Controls().SetDistance(300)
	v.SetViewDistances(32, 320)
	if vx, _ := v.Map().Hires().ViewDistance(); vx != 1 {
		t.Errorf("hires view after SetViewDistances = %d, want 1", vx)
	}
}

func TestUpdateFollowsTerrain(t *testing.T) {
	v := newTestViewer(Options{})
	defer v.Close()
	if err := v.SwitchMap(context.Background(), newTestMap()); err != nil {
		t.Fatalf("SwitchMap: %v", err)
	}
	settle(t, v)

	v.Controls().SetScheme(controls.NewMapControls(config.ControlsConfig{}))
	for range 500 {
		v.Update(16)
	}
	if y := v.Controls().Position.Y; y != 64 {
		t.Errorf("target height = %v, want 64", y)
	}
}

func TestHandleMapInteraction(t *testing.T) {
	var got []Interaction
	v := newTestViewer(Options{OnInteraction: func(in Interaction) { got = append(got, in) }})
	defer v.Close()

	// without a map the click is still reported, as a miss
	v.HandleMapInteraction(400, 300)
	if len(got) != 1 || got[0].Hit {
		t.Fatalf("interactions without map = %+v", got)
	}

	if err := v.SwitchMap(context.Background(), newTestMap()); err != nil {
		t.Fatalf("SwitchMap: %v", err)
	}
	settle(t, v)

	c := v.Controls()
	c.Position = math.Vec3{X: 16, Y: 64, Z: 16}
	c.Angle = 0
	c.SetDistance(100)
	c.UpdateCamera()

	v.HandleMapInteraction(400, 300)
	if len(got) != 2 {
		t.Fatalf("interactions = %d, want 2", len(got))
	}
	in := got[1]
	if !in.Hit {
		t.Fatal("center click missed the tile below the camera")
	}
	if in.Tile != (tiles.Coord{}) {
		t.Errorf("hit tile = %v, want x0z0", in.Tile)
	}
	if gomath.Abs(in.Point.Y-64) > 1e-3 || gomath.Abs(in.Point.X-16) > 0.1 || gomath.Abs(in.Point.Z-16) > 0.1 {
		t.Errorf("hit point = %v, want ~(16, 64, 16)", in.Point)
	}

	// looking straight down, a corner click lands far outside the loaded tile
	c.Position = math.Vec3{X: 500, Y: 64, Z: 500}
	c.UpdateCamera()
	v.HandleMapInteraction(0, 0)
	if got[2].Hit {
		t.Errorf("click over empty area hit %v", got[2].Point)
	}
}

func TestResizeUpdatesAspect(t *testing.T) {
	v := newTestViewer(Options{})
	defer v.Close()

	if a := v.Camera().Aspect(); gomath.Abs(a-800.0/600) > 1e-9 {
		t.Errorf("aspect = %v, want 4/3", a)
	}
	v.Controls().Input().Dispatch(input.ResizeEvent{Width: 1000, Height: 500})
	if a := v.Camera().Aspect(); a != 2 {
		t.Errorf("aspect after resize = %v, want 2", a)
	}
}
