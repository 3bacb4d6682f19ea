package math

type Vec2 struct {
	X float32
	Y float32
}

type Vec3 struct {
	X float32
	Y float32
	Z float32
}

type Vec4 struct {
	X float32
	Y float32
	Z float32
	W float32
}

/** @brief a 4x4 matrix, stored row by row. */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/** @brief A plane in normal/distance form: dot(Normal, p) == Dist for every point p on it. */
type Plane struct {
	Normal Vec3
	Dist   float32
}

/** @brief Represents the extents of a 2d object. */
type Extents2D struct {
	/** @brief The minimum extents of the object. */
	Min Vec2
	/** @brief The maximum extents of the object. */
	Max Vec2
}
