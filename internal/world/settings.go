package world

import (
	gomath "math"
	"net/url"
	"path"
	"strings"

	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// LowresSettings describes the lowres level-of-detail pyramid.
type LowresSettings struct {
	TileSize  math.Vec3
	LODFactor float64
	LODCount  int
}

// Settings is a map's metadata after merging settings.json onto defaults.
type Settings struct {
	ID           string
	Name         string
	Sorting      int
	DataURL      string
	StartPos     math.Vec3
	SkyColor     [3]float64
	AmbientLight float64
	Hires        tileloader.HiresSettings
	Lowres       LowresSettings
}

// DefaultSettings returns the settings used for anything settings.json
// leaves out.
func DefaultSettings(id, dataURL string) Settings {
	return Settings{
		ID:      id,
		Name:    id,
		Sorting: 1000000,
		DataURL: dataURL,
		Hires: tileloader.HiresSettings{
			TileSize:  math.Vec3{X: 32, Z: 32},
			Scale:     math.Vec3{X: 1, Z: 1},
			Translate: math.Vec3{X: 2, Z: 2},
		},
		Lowres: LowresSettings{
			TileSize:  math.Vec3{X: 32, Z: 32},
			LODFactor: 5,
			LODCount:  3,
		},
	}
}

// IDFromURL names a map after the last path segment of its data URL.
func IDFromURL(dataURL string) string {
	p := dataURL
	if u, err := url.Parse(dataURL); err == nil {
		p = u.Path
	}
	id := path.Base(strings.TrimSuffix(p, "/"))
	if id == "." || id == "/" || id == "" {
		return "map"
	}
	return id
}

// SettingsURL returns the location of settings.json.
func (s Settings) SettingsURL() string { return s.DataURL + "settings.json" }

// TexturesURL returns the location of textures.json.
func (s Settings) TexturesURL() string { return s.DataURL + "textures.json" }

type settingsDocument struct {
	Name         string    `json:"name"`
	Sorting      *float64  `json:"sorting"`
	StartPos     []float64 `json:"startPos"`
	SkyColor     []float64 `json:"skyColor"`
	AmbientLight float64   `json:"ambientLight"`
	Hires        struct {
		TileSize  []float64 `json:"tileSize"`
		Scale     []float64 `json:"scale"`
		Translate []float64 `json:"translate"`
	} `json:"hires"`
	Lowres struct {
		TileSize  []float64 `json:"tileSize"`
		LODFactor *float64  `json:"lodFactor"`
		LODCount  *int      `json:"lodCount"`
	} `json:"lowres"`
}

// merge applies the fields doc sets onto s.
func (s *Settings) merge(doc *settingsDocument) {
	if doc.Name != "" {
		s.Name = doc.Name
	}
	if doc.Sorting != nil && *doc.Sorting == gomath.Trunc(*doc.Sorting) {
		s.Sorting = int(*doc.Sorting)
	}
	mergeXZ(&s.StartPos, doc.StartPos)
	if len(doc.SkyColor) >= 3 {
		s.SkyColor = [3]float64{doc.SkyColor[0], doc.SkyColor[1], doc.SkyColor[2]}
	}
	if doc.AmbientLight != 0 {
		s.AmbientLight = doc.AmbientLight
	}

	mergeXZ(&s.Hires.TileSize, doc.Hires.TileSize)
	mergeXZ(&s.Hires.Scale, doc.Hires.Scale)
	mergeXZ(&s.Hires.Translate, doc.Hires.Translate)

	mergeXZ(&s.Lowres.TileSize, doc.Lowres.TileSize)
	if doc.Lowres.LODFactor != nil {
		s.Lowres.LODFactor = *doc.Lowres.LODFactor
	}
	if doc.Lowres.LODCount != nil {
		s.Lowres.LODCount = *doc.Lowres.LODCount
	}
}

// mergeXZ reads a [x, z] pair.
func mergeXZ(dst *math.Vec3, arr []float64) {
	if len(arr) < 2 {
		return
	}
	dst.X = arr[0]
	dst.Z = arr[1]
}
