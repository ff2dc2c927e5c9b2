package tiles

import (
	"image"
	"image/color"
)

// Cell states of a TileMap.
var (
	Empty  = color.Gray{Y: 0x00}
	Loaded = color.Gray{Y: 0xff}
)

// TileMap is the occupancy mask of a layer: one pixel per tile around the
// current center, white where a tile is loaded. The renderer samples it to
// hide lower-detail layers underneath loaded tiles.
type TileMap struct {
	img   *image.Gray
	dirty bool
}

// NewTileMap creates an all-empty mask.
func NewTileMap(width, height int) *TileMap {
	return &TileMap{
		img:   image.NewGray(image.Rect(0, 0, width, height)),
		dirty: true,
	}
}

// SetAll fills the whole mask.
func (m *TileMap) SetAll(state color.Gray) {
	for i := range m.img.Pix {
		m.img.Pix[i] = state.Y
	}
	m.dirty = true
}

// SetTile sets one cell. Cells outside the mask are ignored.
func (m *TileMap) SetTile(x, z int, state color.Gray) {
	if !(image.Point{X: x, Y: z}).In(m.img.Rect) {
		return
	}
	m.img.SetGray(x, z, state)
	m.dirty = true
}

// At returns the state of a cell; cells outside the mask are Empty.
func (m *TileMap) At(x, z int) color.Gray {
	return m.img.GrayAt(x, z)
}

// Count returns the number of Loaded cells.
func (m *TileMap) Count() int {
	n := 0
	for _, v := range m.img.Pix {
		if v == Loaded.Y {
			n++
		}
	}
	return n
}

// Image exposes the raster for texture upload.
func (m *TileMap) Image() *image.Gray {
	return m.img
}

// TakeDirty reports whether the mask changed since the last call.
func (m *TileMap) TakeDirty() bool {
	d := m.dirty
	m.dirty = false
	return d
}
