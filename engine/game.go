package engine

import (
	"github.com/spaghettifunk/tremor/engine/assets"
	"github.com/spaghettifunk/tremor/engine/renderer"
)

// Game is the scene layer the engine drives. Render records the draws of
// one frame through the backend.
type Game struct {
	Name         string
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnRender     renderer.DrawFunc
	FnShutdown   Shutdown
}

type Initialize func(backend renderer.RendererBackend, assets *assets.AssetManager) error
type Update func(deltaTime float64) error
type Shutdown func(backend renderer.RendererBackend) error
