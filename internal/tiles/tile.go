// Package tiles streams map tiles around a moving center.
//
// A Manager keeps the tiles inside a rectangular view window loaded,
// fetching them nearest-first with at most MaxConcurrentLoads requests in
// flight. All Manager and Tile state is owned by the goroutine that calls
// LoadAroundTile and Update; fetch goroutines only run the Loader and hand
// their result back through a channel.
package tiles

import (
	"context"
	"errors"
)

var (
	// ErrEmpty means there is no content at a coordinate. It is a normal
	// outcome and is never retried while the tile stays in view.
	ErrEmpty = errors.New("tiles: no content at coordinate")

	// ErrCancelled means the tile was unloaded before its content arrived.
	ErrCancelled = errors.New("tiles: load cancelled")

	// ErrAlreadyLoading is returned by Tile.Load while a load is in flight.
	ErrAlreadyLoading = errors.New("tiles: tile is already loading")
)

// Model is loaded tile content. Dispose releases its resources and must be
// called exactly once by the tile's owner.
type Model interface {
	Dispose()
}

// Loader fetches and decodes the content of one tile. It runs on its own
// goroutine. Implementations return ErrEmpty when there is nothing at the
// coordinate and ErrCancelled when ctx was cancelled before the content
// was ready; any returned model is owned by the caller.
type Loader interface {
	Load(ctx context.Context, x, z int) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, x, z int) (Model, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, x, z int) (Model, error) {
	return f(ctx, x, z)
}

// Tile is one grid cell of a layer and its content, if loaded.
type Tile struct {
	coord    Coord
	model    Model
	loading  bool
	unloaded bool
	cancel   context.CancelFunc

	onLoad   func(*Tile)
	onUnload func(*Tile)
}

// result is a finished fetch on its way back to the owning goroutine.
type result struct {
	tile  *Tile
	model Model
	err   error
}

func newTile(c Coord, onLoad, onUnload func(*Tile)) *Tile {
	return &Tile{
		coord:    c,
		unloaded: true,
		onLoad:   onLoad,
		onUnload: onUnload,
	}
}

// Coord returns the tile's grid coordinate.
func (t *Tile) Coord() Coord { return t.coord }

// X returns the grid x coordinate.
func (t *Tile) X() int { return t.coord.X }

// Z returns the grid z coordinate.
func (t *Tile) Z() int { return t.coord.Z }

// Model returns the attached content or nil.
func (t *Tile) Model() Model { return t.model }

// Loaded reports whether content is attached.
func (t *Tile) Loaded() bool { return t.model != nil }

// Loading reports whether a fetch is in flight.
func (t *Tile) Loading() bool { return t.loading }

// Unloaded reports whether the tile was unloaded (or never loaded).
func (t *Tile) Unloaded() bool { return t.unloaded }

// load starts fetching the tile's content. The outcome is sent to done and
// must be applied with finish on the owning goroutine.
func (t *Tile) load(ctx context.Context, loader Loader, done chan<- result) error {
	if t.loading {
		return ErrAlreadyLoading
	}
	t.loading = true

	t.Unload()
	t.unloaded = false

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	c := t.coord
	go func() {
		model, err := loader.Load(ctx, c.X, c.Z)
		if err == nil && model == nil {
			err = ErrEmpty
		}
		done <- result{tile: t, model: model, err: err}
	}()
	return nil
}

// finish applies a fetch outcome. A model that arrives after Unload is
// disposed instead of attached.
func (t *Tile) finish(model Model, err error) error {
	t.loading = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	if err != nil {
		if model != nil {
			model.Dispose()
		}
		if t.unloaded && !errors.Is(err, ErrCancelled) {
			return errors.Join(ErrCancelled, err)
		}
		return err
	}

	if t.unloaded {
		model.Dispose()
		return ErrCancelled
	}

	t.model = model
	if t.onLoad != nil {
		t.onLoad(t)
	}
	return nil
}

// Unload releases the tile's content and cancels a running fetch.
// It is idempotent.
func (t *Tile) Unload() {
	t.unloaded = true
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	if t.model != nil {
		if t.onUnload != nil {
			t.onUnload(t)
		}
		t.model.Dispose()
		t.model = nil
	}
}
