package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/nosadnile/bluemap-go/internal/engine/camera"
	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/internal/world"
	"github.com/nosadnile/bluemap-go/pkg/math"
)

// Mask locates the tile mask of a finer layer in world space. Y of the
// vectors holds the world z axis.
type Mask struct {
	Map       *tiles.TileMap
	Center    tiles.Coord
	TileSize  math.Vec2
	Translate math.Vec2
}

// Layer is one tile layer in draw order.
type Layer struct {
	Kind    tileloader.Kind
	LOD     int
	Manager *tiles.Manager
	// Mask is nil for the hires layer.
	Mask *Mask
}

// Layers returns the layers of a loaded map in draw order: lowres from
// coarsest to finest, then hires. Every lowres layer is masked by the
// next finer one.
func Layers(m *world.Map) []Layer {
	if m == nil || !m.IsLoaded() {
		return nil
	}
	s := m.Settings()
	lowres := m.Lowres()

	hiresMask := &Mask{
		Map:       m.Hires().TileMap(),
		Center:    m.Hires().Center(),
		TileSize:  math.Vec2{X: s.Hires.TileSize.X, Y: s.Hires.TileSize.Z},
		Translate: math.Vec2{X: s.Hires.Translate.X, Y: s.Hires.Translate.Z},
	}

	layers := make([]Layer, 0, len(lowres)+1)
	for i := len(lowres) - 1; i >= 0; i-- {
		mask := hiresMask
		if i > 0 {
			finer := lowres[i-1]
			scale := tileloader.LODScale(s.Lowres.LODFactor, i)
			mask = &Mask{
				Map:      finer.TileMap(),
				Center:   finer.Center(),
				TileSize: math.Vec2{X: s.Lowres.TileSize.X * scale, Y: s.Lowres.TileSize.Z * scale},
			}
		}
		layers = append(layers, Layer{
			Kind:    tileloader.KindLowres,
			LOD:     i + 1,
			Manager: lowres[i],
			Mask:    mask,
		})
	}
	return append(layers, Layer{Kind: tileloader.KindHires, Manager: m.Hires()})
}

// DrawMap draws every layer of m as seen from cam. Materials are uploaded
// whenever the map's material set changes.
func (r *Renderer) DrawMap(cam *camera.CombinedCamera, m *world.Map) {
	if m == nil || !m.IsLoaded() {
		return
	}
	if mats := m.Materials(); !sameMaterials(r.drawn, mats) {
		r.SetMaterials(mats)
		r.drawn = mats
	}

	s := m.Settings()
	vp := cam.ViewProjection().Float32()

	for _, l := range Layers(m) {
		if l.Kind == tileloader.KindHires {
			r.drawHires(vp, l, float32(s.AmbientLight))
			continue
		}
		r.drawLowres(vp, l, float32(s.AmbientLight))
	}
}

// Forget drops the materials of the last drawn map. Call after unloading it.
func (r *Renderer) Forget() {
	r.drawn = nil
	r.clearMaterials()
}

func (r *Renderer) drawLowres(vp [16]float32, l Layer, ambient float32) {
	p := r.lowres
	p.Use()
	p.SetMat4("uViewProjection", vp)
	p.SetFloat("uSunlight", 1)
	p.SetFloat("uAmbient", ambient)

	if l.Mask != nil {
		gl.ActiveTexture(gl.TEXTURE1)
		gl.BindTexture(gl.TEXTURE_2D, r.maskTexture(l.Mask.Map))
		p.SetInt("uMask", 1)
		p.SetInt("uHasMask", 1)
		p.SetVec2("uMaskTileSize", float32(l.Mask.TileSize.X), float32(l.Mask.TileSize.Y))
		p.SetVec2("uMaskTranslate", float32(l.Mask.Translate.X), float32(l.Mask.Translate.Y))
		p.SetVec2("uMaskCenter", float32(l.Mask.Center.X), float32(l.Mask.Center.Z))
		p.SetFloat("uMaskSize", float32(tiles.MapSize))
	} else {
		p.SetInt("uHasMask", 0)
	}

	for _, t := range l.Manager.Tiles() {
		lt, ok := t.Model().(*tileloader.LowresTile)
		if !ok {
			continue
		}
		g := r.meshes[lt]
		if g == nil || g.vao == 0 {
			continue
		}
		p.SetMat4("uModel", modelMatrix(lt.Position, lt.Scale))
		gl.BindVertexArray(g.vao)
		for _, grp := range g.groups {
			gl.DrawElementsWithOffset(gl.TRIANGLES, grp.IndexCount, gl.UNSIGNED_INT, uintptr(grp.StartIndex)*4)
		}
	}
	gl.BindVertexArray(0)
}

func (r *Renderer) drawHires(vp [16]float32, l Layer, ambient float32) {
	p := r.hires
	p.Use()
	p.SetMat4("uViewProjection", vp)
	p.SetFloat("uSunlight", 1)
	p.SetFloat("uAmbient", ambient)
	p.SetInt("uTexture", 0)
	gl.ActiveTexture(gl.TEXTURE0)

	meshes := l.Manager.Tiles()

	// opaque groups first, then transparent ones blended over them
	for _, transparent := range []bool{false, true} {
		if transparent {
			gl.Enable(gl.BLEND)
			gl.DepthMask(false)
		}
		for _, t := range meshes {
			mesh, ok := t.Model().(*tileloader.Mesh)
			if !ok {
				continue
			}
			g := r.meshes[mesh]
			if g == nil || g.vao == 0 {
				continue
			}
			p.SetMat4("uModel", modelMatrix(mesh.Position, mesh.Scale))
			gl.BindVertexArray(g.vao)
			for _, grp := range g.groups {
				mat := r.material(grp.MaterialIndex)
				if mat.transparent != transparent {
					continue
				}
				p.SetVec4("uMaterialColor", mat.color)
				if mat.texture != 0 {
					gl.BindTexture(gl.TEXTURE_2D, mat.texture)
					p.SetInt("uHasTexture", 1)
				} else {
					p.SetInt("uHasTexture", 0)
				}
				gl.DrawElementsWithOffset(gl.TRIANGLES, grp.IndexCount, gl.UNSIGNED_INT, uintptr(grp.StartIndex)*4)
			}
		}
	}
	gl.DepthMask(true)
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(0)
}

func sameMaterials(a, b []*world.Material) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || a[0] == b[0]
}

var fallbackMaterial = gpuMaterial{color: [4]float32{1, 1, 1, 1}}

func (r *Renderer) material(i int) gpuMaterial {
	if i < 0 || i >= len(r.materials) {
		return fallbackMaterial
	}
	return r.materials[i]
}

// maskTexture returns the texture mirroring tm, uploading it when the
// mask changed.
func (r *Renderer) maskTexture(tm *tiles.TileMap) uint32 {
	tex, ok := r.masks[tm]
	if !ok {
		gl.GenTextures(1, &tex)
		gl.BindTexture(gl.TEXTURE_2D, tex)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		r.masks[tm] = tex
	} else {
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}

	if tm.TakeDirty() || !ok {
		img := tm.Image()
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.R8,
			int32(img.Rect.Dx()), int32(img.Rect.Dy()), 0,
			gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	}
	return tex
}

func modelMatrix(pos, scale math.Vec3) [16]float32 {
	return math.Translate(pos.X, pos.Y, pos.Z).Mul(math.Scale(scale.X, scale.Y, scale.Z)).Float32()
}
