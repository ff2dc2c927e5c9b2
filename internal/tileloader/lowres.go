package tileloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	gomath "math"

	"golang.org/x/image/draw"

	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// LowresSettings describes the lowres pyramid.
type LowresSettings struct {
	TileSize  math.Vec3
	LODFactor float64
}

// Lowres loads one level of detail from <tilesPath><lod>/<path>.png.
type Lowres struct {
	client    Getter
	tilesPath string
	settings  LowresSettings
	lod       int
	cacheHash string
}

// NewLowres creates a loader for level lod (1 is the finest).
func NewLowres(client Getter, tilesPath string, settings LowresSettings, lod int, cacheHash string) *Lowres {
	return &Lowres{
		client:    client,
		tilesPath: tilesPath,
		settings:  settings,
		lod:       lod,
		cacheHash: cacheHash,
	}
}

// LODScale returns the world size of one lowres pixel at lod.
func LODScale(lodFactor float64, lod int) float64 {
	return gomath.Pow(lodFactor, float64(lod-1))
}

// Load implements tiles.Loader.
func (l *Lowres) Load(ctx context.Context, x, z int) (tiles.Model, error) {
	url := fmt.Sprintf("%s%d/%s.png", l.tilesPath, l.lod, tiles.PathFromCoords(x, z))

	body, err := l.client.GetBytes(ctx, string(KindLowres), url+"?"+l.cacheHash)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return nil, tiles.ErrEmpty
		}
		return nil, err
	}

	src, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode lowres tile %s: %w", url, err)
	}

	if ctx.Err() != nil {
		return nil, tiles.ErrCancelled
	}

	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		b := src.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	scale := LODScale(l.settings.LODFactor, l.lod)
	ts := l.settings.TileSize
	return &LowresTile{
		Image:    rgba,
		LOD:      l.lod,
		TileSize: ts,
		Position: math.Vec3{
			X: float64(x) * ts.X * scale,
			Z: float64(z) * ts.Z * scale,
		},
		Scale: math.Vec3{X: scale, Y: 1, Z: scale},
		URL:   url,
	}, nil
}
