// Package renderer draws map tiles with OpenGL. It is the tile scene: tile
// models are uploaded when a layer attaches them and freed when they are
// disposed.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/nosadnile/bluemap-go/internal/engine/shader"
	"github.com/nosadnile/bluemap-go/internal/engine/terrain"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/tileloader"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/internal/world"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// gpuMesh is an uploaded tile mesh.
type gpuMesh struct {
	vao, vbo, ebo uint32
	groups        []terrain.MaterialGroup
}

// gpuMaterial is an uploaded block material.
type gpuMaterial struct {
	texture     uint32
	color       [4]float32
	transparent bool
}

// Renderer handles all OpenGL rendering. Every method must be called on
// the thread owning the GL context.
type Renderer struct {
	config Config

	hires  *shader.Program
	lowres *shader.Program

	meshes    map[tiles.Model]*gpuMesh
	materials []gpuMaterial
	masks     map[*tiles.TileMap]uint32
	drawn     []*world.Material

	log *zap.Logger
}

// New creates a renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		meshes: make(map[tiles.Model]*gpuMesh),
		masks:  make(map[*tiles.TileMap]uint32),
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	var err error
	r.hires, err = shader.New(tileVertexShader, hiresFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("hires program: %w", err)
	}
	r.lowres, err = shader.New(tileVertexShader, lowresFragmentShader)
	if err != nil {
		r.hires.Delete()
		return nil, fmt.Errorf("lowres program: %w", err)
	}

	return r, nil
}

// Close frees every GPU resource still held.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	for m, g := range r.meshes {
		deleteMesh(g)
		delete(r.meshes, m)
	}
	r.clearMaterials()
	for tm, tex := range r.masks {
		gl.DeleteTextures(1, &tex)
		delete(r.masks, tm)
	}
	r.hires.Delete()
	r.lowres.Delete()
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin clears the frame to the sky color.
func (r *Renderer) Begin(sky [3]float64) {
	gl.ClearColor(float32(sky[0]), float32(sky[1]), float32(sky[2]), 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Meshes returns the number of uploaded tile meshes.
func (r *Renderer) Meshes() int { return len(r.meshes) }

// Add uploads a tile model. It implements tiles.Scene.
func (r *Renderer) Add(m tiles.Model) {
	if _, ok := r.meshes[m]; ok {
		return
	}

	var (
		mesh *terrain.Mesh
		err  error
	)
	switch t := m.(type) {
	case *tileloader.Mesh:
		if t.Geometry == nil {
			return
		}
		mesh, err = terrain.BuildHires(t.Geometry)
	case *tileloader.LowresTile:
		mesh = terrain.BuildLowres(t)
	default:
		return
	}
	if err != nil {
		r.log.Warn("tile mesh rejected", zap.Error(err))
		return
	}

	g := uploadMesh(mesh)
	r.meshes[m] = g
	release := func() {
		deleteMesh(g)
		delete(r.meshes, m)
	}
	switch t := m.(type) {
	case *tileloader.Mesh:
		t.Release = release
	case *tileloader.LowresTile:
		t.Release = release
	}
}

// Remove is called when a layer detaches a model. GPU memory is freed
// when the model is disposed.
func (r *Renderer) Remove(tiles.Model) {}

// SetMaterials uploads the block materials of a map, replacing the
// previous set.
func (r *Renderer) SetMaterials(mats []*world.Material) {
	r.clearMaterials()
	r.materials = make([]gpuMaterial, len(mats))

	for i, mat := range mats {
		gm := gpuMaterial{
			color:       [4]float32{float32(mat.Color[0]), float32(mat.Color[1]), float32(mat.Color[2]), float32(mat.Color[3])},
			transparent: mat.Transparent,
		}
		if img := mat.Image; img != nil {
			gl.GenTextures(1, &gm.texture)
			gl.BindTexture(gl.TEXTURE_2D, gm.texture)
			gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
				int32(img.Rect.Dx()), int32(img.Rect.Dy()), 0,
				gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
			gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
			if mat.Mipmaps {
				gl.GenerateMipmap(gl.TEXTURE_2D)
				gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST_MIPMAP_LINEAR)
			} else {
				gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
			}
			tex := gm.texture
			mat.Release = func() { gl.DeleteTextures(1, &tex) }
		}
		r.materials[i] = gm
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	r.log.Debug("materials uploaded", zap.Int("count", len(mats)))
}

// clearMaterials forgets the current materials. Textures belong to the
// materials and are freed when the map disposes them.
func (r *Renderer) clearMaterials() {
	r.materials = nil
}

func uploadMesh(mesh *terrain.Mesh) *gpuMesh {
	g := &gpuMesh{groups: mesh.Groups}
	if len(mesh.Vertices) == 0 || len(mesh.Indices) == 0 {
		return g
	}

	gl.GenVertexArrays(1, &g.vao)
	gl.BindVertexArray(g.vao)

	stride := int32(unsafe.Sizeof(terrain.Vertex{}))
	gl.GenBuffers(1, &g.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &g.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	attribs := []struct {
		size   int32
		offset uintptr
	}{
		{3, unsafe.Offsetof(terrain.Vertex{}.Position)},
		{3, unsafe.Offsetof(terrain.Vertex{}.Normal)},
		{2, unsafe.Offsetof(terrain.Vertex{}.TexCoord)},
		{4, unsafe.Offsetof(terrain.Vertex{}.Color)},
		{3, unsafe.Offsetof(terrain.Vertex{}.Light)},
	}
	for i, a := range attribs {
		gl.VertexAttribPointerWithOffset(uint32(i), a.size, gl.FLOAT, false, stride, a.offset)
		gl.EnableVertexAttribArray(uint32(i))
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return g
}

func deleteMesh(g *gpuMesh) {
	if g.vao != 0 {
		gl.DeleteVertexArrays(1, &g.vao)
		g.vao = 0
	}
	if g.vbo != 0 {
		gl.DeleteBuffers(1, &g.vbo)
		g.vbo = 0
	}
	if g.ebo != 0 {
		gl.DeleteBuffers(1, &g.ebo)
		g.ebo = 0
	}
}
