package metadata

import "github.com/spaghettifunk/tremor/engine/math"

type DepthRange uint8

const (
	DEPTH_RANGE_NORMAL DepthRange = iota
	/** @brief Everything is drawn at the near plane. */
	DEPTH_RANGE_FORCE_ZERO
	/** @brief Everything is drawn at the far plane. */
	DEPTH_RANGE_FORCE_ONE
	/** @brief The first person weapon is squeezed into the nearest 30% of depth. */
	DEPTH_RANGE_WEAPON
)

/** @brief A position and basis, with the matching GL style model view matrix. */
type Orientation struct {
	Origin math.Vec3
	Axis   [3]math.Vec3
	/** @brief Column major model view matrix, as produced by the scene layer. */
	ModelMatrix [16]float32
}

/** @brief Parameters of the view being rendered. */
type ViewParms struct {
	/** @brief World to eye orientation of the camera. */
	Or Orientation

	ViewportX      int32
	ViewportY      int32
	ViewportWidth  int32
	ViewportHeight int32

	/** @brief GL convention projection: clip depth in [-1, 1], y up. */
	ProjectionMatrix [16]float32
	ZFar             float32

	/** @brief Portal and mirror views clip geometry against PortalPlane. */
	IsPortal    bool
	PortalPlane math.Plane
}

/**
 * @brief Transform state of the current draw call.
 */
type DrawState struct {
	/** @brief 2D draws use a pixel space orthographic projection over the whole screen. */
	Projection2D bool
	View         ViewParms
	/** @brief Orientation of the entity being drawn. ModelMatrix is the model view matrix. */
	Or         Orientation
	DepthRange DepthRange
}
