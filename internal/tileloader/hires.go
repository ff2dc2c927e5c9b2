package tileloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// HiresSettings places hires tiles in the world.
type HiresSettings struct {
	TileSize  math.Vec3
	Scale     math.Vec3
	Translate math.Vec3
}

// Hires loads hires tiles from <tilePath><path>.json.
type Hires struct {
	client    Getter
	tilePath  string
	settings  HiresSettings
	cacheHash string
}

// NewHires creates a hires loader. tilePath must end with a slash.
func NewHires(client Getter, tilePath string, settings HiresSettings, cacheHash string) *Hires {
	return &Hires{
		client:    client,
		tilePath:  tilePath,
		settings:  settings,
		cacheHash: cacheHash,
	}
}

type tileDocument struct {
	TileGeometry *geometryDocument `json:"tileGeometry"`
}

type geometryDocument struct {
	Type string `json:"type"`
	Data struct {
		Attributes map[string]Attribute `json:"attributes"`
		Index      *struct {
			Array []uint32 `json:"array"`
		} `json:"index"`
		Groups []Group `json:"groups"`
	} `json:"data"`
}

// Load implements tiles.Loader.
func (h *Hires) Load(ctx context.Context, x, z int) (tiles.Model, error) {
	url := h.tilePath + tiles.PathFromCoords(x, z) + ".json"

	body, err := h.client.GetBytes(ctx, string(KindHires), url+"?"+h.cacheHash)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, tiles.ErrEmpty
		}
		return nil, err
	}

	var doc tileDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode hires tile %s: %w", tiles.ErrEmpty, url, err)
	}
	if doc.TileGeometry == nil || doc.TileGeometry.Type != "BufferGeometry" {
		return nil, tiles.ErrEmpty
	}

	if ctx.Err() != nil {
		return nil, tiles.ErrCancelled
	}

	geom := &Geometry{
		Attributes: doc.TileGeometry.Data.Attributes,
		Groups:     doc.TileGeometry.Data.Groups,
	}
	if idx := doc.TileGeometry.Data.Index; idx != nil {
		geom.Index = idx.Array
	}
	pos, ok := geom.Attributes["position"]
	if !ok || pos.ItemSize != 3 || pos.Count() == 0 {
		return nil, fmt.Errorf("%w: hires tile %s has no vertices", tiles.ErrEmpty, url)
	}
	for _, i := range geom.Index {
		if int(i) >= pos.Count() {
			return nil, fmt.Errorf("%w: hires tile %s indexes vertex %d of %d", tiles.ErrEmpty, url, i, pos.Count())
		}
	}

	s := h.settings
	return &Mesh{
		Geometry: geom,
		Position: math.Vec3{
			X: float64(x)*s.TileSize.X + s.Translate.X,
			Z: float64(z)*s.TileSize.Z + s.Translate.Z,
		},
		Scale: math.Vec3{X: s.Scale.X, Y: 1, Z: s.Scale.Z},
		URL:   url,
	}, nil
}
