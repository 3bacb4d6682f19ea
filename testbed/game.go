package testbed

import (
	m "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine"
	"github.com/spaghettifunk/tremor/engine/assets"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/math"
	"github.com/spaghettifunk/tremor/engine/renderer"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

const (
	checkerSize  = 64
	checkerCell  = 8
	gradientSize = 32

	// The optional texture loaded from the asset directory.
	logoTexture = "logo.png"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32
	angle  float32

	checker  *metadata.Image
	gradient *metadata.Image
	logo     *metadata.Image

	additive  vk.Pipeline
	blended2D vk.Pipeline
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			Name:  "Tremor Testbed",
			State: &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Initialize(backend renderer.RendererBackend, am *assets.AssetManager) error {
	state := g.State.(*gameState)
	state.width, state.height = backend.FrameSize()

	state.checker = uploadRGBA(backend, 0, checkerSize, checkerSize, true, true, checkerboard(checkerSize, checkerCell))
	state.gradient = uploadRGBA(backend, 1, gradientSize, gradientSize, false, false, gradient(gradientSize))

	if img, err := am.LoadImage(logoTexture); err == nil {
		state.logo = uploadRGBA(backend, 0, img.Width, img.Height, false, false, img.Pixels)
	} else {
		core.LogDebug("testbed: %s not loaded: %s", logoTexture, err)
	}

	state.additive = backend.FindPipeline(metadata.PipelineDef{
		ShaderType:  metadata.SHADER_TYPE_MULTI_TEXTURE_ADD,
		StateBits:   metadata.GLS_DEFAULT,
		FaceCulling: metadata.CT_TWO_SIDED,
	})
	state.blended2D = backend.FindPipeline(metadata.PipelineDef{
		ShaderType:  metadata.SHADER_TYPE_SINGLE_TEXTURE,
		StateBits:   metadata.GLS_DEPTHTEST_DISABLE | metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA,
		FaceCulling: metadata.CT_TWO_SIDED,
	})

	core.LogInfo("testbed ready: %d pipelines, %d images", backend.PipelineCount(), backend.ImageCount())
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.angle = float32(m.Mod(float64(state.angle)+deltaTime, 2*m.Pi))
	return nil
}

func (g *TestGame) Render(backend renderer.RendererBackend, deltaTime float64) error {
	state := g.State.(*gameState)
	state.width, state.height = backend.FrameSize()

	// 3D pass: a rotating triangle, checkerboard plus gradient.
	backend.SetDrawState(perspectiveState(state.width, state.height, state.angle))
	backend.ClearAttachments(metadata.CLEAR_DEPTH|metadata.CLEAR_COLOR, [4]float32{0.1, 0.1, 0.15, 1})
	backend.BindImage(0, state.checker)
	backend.BindImage(1, state.gradient)
	backend.BindGeometry(triangle(), []uint32{0, 1, 2})
	backend.ShadeGeometry(state.additive, &metadata.ShadeInput{
		Colors:       whiteColors(3),
		TexCoords0:   [][2]float32{{0, 0}, {4, 0}, {2, 4}},
		TexCoords1:   [][2]float32{{0, 0}, {1, 0}, {0.5, 1}},
		Multitexture: true,
		Indexed:      true,
	})

	// 2D pass: a quad in the top left corner.
	quadImage := state.checker
	if state.logo != nil {
		quadImage = state.logo
	}
	backend.SetDrawState(metadata.DrawState{Projection2D: true})
	backend.BindImage(0, quadImage)
	backend.BindGeometry(quad(16, 16, 128, 128), []uint32{0, 1, 2, 2, 1, 3})
	backend.ShadeGeometry(state.blended2D, &metadata.ShadeInput{
		Colors:     [][4]uint8{{255, 255, 255, 255}, {255, 255, 255, 255}, {255, 255, 255, 160}, {255, 255, 255, 160}},
		TexCoords0: [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
		DepthRange: metadata.DEPTH_RANGE_FORCE_ZERO,
		Indexed:    true,
	})
	return nil
}

func (g *TestGame) Shutdown(backend renderer.RendererBackend) error {
	backend.ReleaseResources()
	return nil
}

func uploadRGBA(backend renderer.RendererBackend, tmu int, width, height uint32, mipmap, repeat bool, pixels []byte) *metadata.Image {
	levels := uint32(1)
	if mipmap {
		pixels = withMipChain(pixels, width, height)
		levels = mipLevelCount(width, height)
	}
	backend.BindImage(tmu, nil)
	image := backend.CreateImage(width, height, vk.FormatR8g8b8a8Unorm, levels, repeat)
	if image == nil {
		return nil
	}
	backend.UploadImageData(image, width, height, mipmap, pixels, 4)
	return image
}

func perspectiveState(width, height uint32, angle float32) metadata.DrawState {
	aspect := float32(width) / float32(max(height, 1))
	projection := math.NewMat4Perspective(math.DegToRad(70), aspect, 4, 1024)
	model := math.NewMat4EulerY(angle).Mul(math.NewMat4Translation(math.NewVec3(0, 0, -64)))

	return metadata.DrawState{
		View: metadata.ViewParms{
			ViewportWidth:    int32(width),
			ViewportHeight:   int32(height),
			ProjectionMatrix: projection.Data,
			ZFar:             1024,
		},
		Or: metadata.Orientation{ModelMatrix: model.Data},
	}
}

func triangle() [][4]float32 {
	return [][4]float32{
		{-24, -20, 0, 1},
		{24, -20, 0, 1},
		{0, 24, 0, 1},
	}
}

// quad lists the corners of a screen rectangle in pixels: top left, top
// right, bottom left, bottom right.
func quad(x, y, w, h float32) [][4]float32 {
	return [][4]float32{
		{x, y, 0, 1},
		{x + w, y, 0, 1},
		{x, y + h, 0, 1},
		{x + w, y + h, 0, 1},
	}
}

func whiteColors(n int) [][4]uint8 {
	colors := make([][4]uint8, n)
	for i := range colors {
		colors[i] = [4]uint8{255, 255, 255, 255}
	}
	return colors
}

// checkerboard returns size*size RGBA pixels alternating white and grey
// every cell pixels.
func checkerboard(size, cell int) []byte {
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(96)
			if (x/cell+y/cell)%2 == 0 {
				v = 255
			}
			i := (y*size + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = v, v, v, 255
		}
	}
	return pixels
}

// gradient returns size*size RGBA pixels going from red at the left to
// blue at the right.
func gradient(size int) []byte {
	pixels := make([]byte, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float32(x) / float32(max(size-1, 1))
			i := (y*size + x) * 4
			pixels[i] = byte(255 * (1 - t))
			pixels[i+1] = 0
			pixels[i+2] = byte(255 * t)
			pixels[i+3] = 255
		}
	}
	return pixels
}

func mipLevelCount(width, height uint32) uint32 {
	levels := uint32(1)
	for width > 1 || height > 1 {
		width = max(width/2, 1)
		height = max(height/2, 1)
		levels++
	}
	return levels
}

/**
 * @brief Appends every mip level of an RGBA image to its base level. Each
 * level averages 2x2 blocks of the previous one.
 */
func withMipChain(base []byte, width, height uint32) []byte {
	out := append([]byte(nil), base...)
	level := base
	w, h := width, height
	for w > 1 || h > 1 {
		nw, nh := max(w/2, 1), max(h/2, 1)
		next := make([]byte, nw*nh*4)
		for y := uint32(0); y < nh; y++ {
			for x := uint32(0); x < nw; x++ {
				for c := uint32(0); c < 4; c++ {
					sum := 0
					for _, p := range [4][2]uint32{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
						sx := min(2*x+p[0], w-1)
						sy := min(2*y+p[1], h-1)
						sum += int(level[(sy*w+sx)*4+c])
					}
					next[(y*nw+x)*4+c] = byte(sum / 4)
				}
			}
		}
		out = append(out, next...)
		level, w, h = next, nw, nh
	}
	return out
}
