package world

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/image/draw"
)

// ErrInvalidTextures is returned when textures.json is not an array.
var ErrInvalidTextures = errors.New("world: textures.json is not an array")

const dataURLPrefix = "data:image/png;base64,"

// Material is one hires block texture.
type Material struct {
	ResourcePath string
	Color        [4]float64
	Opaque       bool
	Transparent  bool
	Mipmaps      bool
	Image        *image.RGBA

	// Release frees the GPU texture. Set by the renderer.
	Release func()
}

// Dispose releases the texture.
func (m *Material) Dispose() {
	if m.Release != nil {
		m.Release()
		m.Release = nil
	}
	m.Image = nil
}

type textureDocument struct {
	ResourcePath    string    `json:"resourcePath"`
	Color           []float64 `json:"color"`
	HalfTransparent bool      `json:"halfTransparent"`
	Texture         string    `json:"texture"`
}

// parseTextures decodes textures.json.
func parseTextures(body []byte) ([]textureDocument, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidTextures
	}
	var docs []textureDocument
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTextures, err)
	}
	return docs, nil
}

// buildMaterials creates one material per texture entry. Textures that
// fail to decode leave Image nil and are drawn untextured.
func buildMaterials(docs []textureDocument) ([]*Material, []error) {
	materials := make([]*Material, len(docs))
	var errs []error

	for i, d := range docs {
		color := [4]float64{}
		if len(d.Color) >= 4 {
			copy(color[:], d.Color[:4])
		}

		m := &Material{
			ResourcePath: d.ResourcePath,
			Color:        color,
			Opaque:       color[3] == 1,
			Transparent:  d.HalfTransparent,
		}
		m.Mipmaps = m.Opaque || m.Transparent

		img, err := decodeDataURL(d.Texture)
		if err != nil {
			errs = append(errs, fmt.Errorf("texture %d (%s): %w", i, d.ResourcePath, err))
		}
		m.Image = img
		materials[i] = m
	}
	return materials, errs
}

func decodeDataURL(s string) (*image.RGBA, error) {
	payload, ok := strings.CutPrefix(s, dataURLPrefix)
	if !ok {
		return nil, fmt.Errorf("not a png data url")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	src, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}
