package vulkan

import (
	"github.com/spaghettifunk/tremor/engine/math"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// screenRect is a viewport or scissor rectangle in framebuffer pixels with
// the origin at the top left.
type screenRect struct {
	X, Y          int32
	Width, Height uint32
}

type viewportParams struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

/**
 * @brief Computes the model view projection matrix of the current draw.
 * 2D draws map pixel coordinates over the whole screen. 3D draws convert the
 * GL style projection to clip depth in [0, 1] with y pointing down.
 * @param state The draw state.
 * @param width The framebuffer width.
 * @param height The framebuffer height.
 * @param zNear The near clip distance.
 */
func mvpTransform(state *metadata.DrawState, width, height uint32, zNear float32) [16]float32 {
	if state.Projection2D {
		return [16]float32{
			2 / float32(width), 0, 0, 0,
			0, 2 / float32(height), 0, 0,
			0, 0, 1, 0,
			-1, -1, 0, 1,
		}
	}

	p := state.View.ProjectionMatrix
	zFar := state.View.ZFar
	proj := math.Mat4{Data: p}
	proj.Data[5] = -p[5]
	proj.Data[10] = -zFar / (zFar - zNear)
	proj.Data[14] = -zFar * zNear / (zFar - zNear)

	modelView := math.Mat4{Data: state.Or.ModelMatrix}
	return modelView.Mul(proj).Data
}

/**
 * @brief Builds the vertex stage push constants of the current draw: the
 * MVP and, for portal views, the eye space transform and the eye space
 * clipping plane.
 * @return The push constant words and the number of bytes to push.
 */
func pushConstants(state *metadata.DrawState, width, height uint32, zNear float32) ([32]float32, uint32) {
	var out [32]float32
	mvp := mvpTransform(state, width, height, zNear)
	copy(out[:16], mvp[:])
	if !state.View.IsPortal {
		return out, MVP_PUSH_CONSTANTS_SIZE
	}

	// Rows of the model view matrix, as a column major mat3x4.
	for i := 0; i < 12; i++ {
		out[16+i] = state.Or.ModelMatrix[(i%4)*4+i/4]
	}

	view := state.View.Or
	plane := state.View.PortalPlane
	eye := [4]float32{
		view.Axis[0].Dot(plane.Normal),
		view.Axis[1].Dot(plane.Normal),
		view.Axis[2].Dot(plane.Normal),
		plane.Normal.Dot(view.Origin) - plane.Dist,
	}
	// Same axis flip the model view matrix carries.
	out[28] = -eye[1]
	out[29] = eye[2]
	out[30] = -eye[0]
	out[31] = eye[3]
	return out, PUSH_CONSTANTS_SIZE
}

// viewportRect is the whole screen for 2D draws, the view's viewport
// flipped to a top left origin otherwise.
func viewportRect(state *metadata.DrawState, width, height uint32) screenRect {
	if state.Projection2D {
		return screenRect{Width: width, Height: height}
	}
	v := state.View
	return screenRect{
		X:      v.ViewportX,
		Y:      int32(height) - (v.ViewportY + v.ViewportHeight),
		Width:  uint32(v.ViewportWidth),
		Height: uint32(v.ViewportHeight),
	}
}

// scissorRect is the viewport rectangle clipped to the screen.
func scissorRect(state *metadata.DrawState, width, height uint32) screenRect {
	r := viewportRect(state, width, height)
	x0 := math.Clamp(int64(r.X), 0, int64(width))
	y0 := math.Clamp(int64(r.Y), 0, int64(height))
	x1 := math.Clamp(int64(r.X)+int64(r.Width), x0, int64(width))
	y1 := math.Clamp(int64(r.Y)+int64(r.Height), y0, int64(height))
	return screenRect{
		X:      int32(x0),
		Y:      int32(y0),
		Width:  uint32(x1 - x0),
		Height: uint32(y1 - y0),
	}
}

func depthRange(r metadata.DepthRange) (minDepth, maxDepth float32) {
	switch r {
	case metadata.DEPTH_RANGE_FORCE_ZERO:
		return 0, 0
	case metadata.DEPTH_RANGE_FORCE_ONE:
		return 1, 1
	case metadata.DEPTH_RANGE_WEAPON:
		return 0, 0.3
	}
	return 0, 1
}

func viewportFor(state *metadata.DrawState, r metadata.DepthRange, width, height uint32) viewportParams {
	rect := viewportRect(state, width, height)
	minDepth, maxDepth := depthRange(r)
	return viewportParams{
		X:        float32(rect.X),
		Y:        float32(rect.Y),
		Width:    float32(rect.Width),
		Height:   float32(rect.Height),
		MinDepth: minDepth,
		MaxDepth: maxDepth,
	}
}
