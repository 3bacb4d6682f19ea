package metadata

// StateBits packs the blend, depth, polygon mode and alpha test state of a
// shader stage.
type StateBits uint32

const (
	GLS_SRCBLEND_ZERO                StateBits = 0x00000001
	GLS_SRCBLEND_ONE                 StateBits = 0x00000002
	GLS_SRCBLEND_DST_COLOR           StateBits = 0x00000003
	GLS_SRCBLEND_ONE_MINUS_DST_COLOR StateBits = 0x00000004
	GLS_SRCBLEND_SRC_ALPHA           StateBits = 0x00000005
	GLS_SRCBLEND_ONE_MINUS_SRC_ALPHA StateBits = 0x00000006
	GLS_SRCBLEND_DST_ALPHA           StateBits = 0x00000007
	GLS_SRCBLEND_ONE_MINUS_DST_ALPHA StateBits = 0x00000008
	GLS_SRCBLEND_ALPHA_SATURATE      StateBits = 0x00000009
	GLS_SRCBLEND_BITS                StateBits = 0x0000000f

	GLS_DSTBLEND_ZERO                StateBits = 0x00000010
	GLS_DSTBLEND_ONE                 StateBits = 0x00000020
	GLS_DSTBLEND_SRC_COLOR           StateBits = 0x00000030
	GLS_DSTBLEND_ONE_MINUS_SRC_COLOR StateBits = 0x00000040
	GLS_DSTBLEND_SRC_ALPHA           StateBits = 0x00000050
	GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA StateBits = 0x00000060
	GLS_DSTBLEND_DST_ALPHA           StateBits = 0x00000070
	GLS_DSTBLEND_ONE_MINUS_DST_ALPHA StateBits = 0x00000080
	GLS_DSTBLEND_BITS                StateBits = 0x000000f0

	GLS_DEPTHMASK_TRUE StateBits = 0x00000100

	GLS_POLYMODE_LINE StateBits = 0x00001000

	GLS_DEPTHTEST_DISABLE StateBits = 0x00010000
	GLS_DEPTHFUNC_EQUAL   StateBits = 0x00020000

	GLS_ATEST_GT_0  StateBits = 0x10000000
	GLS_ATEST_LT_80 StateBits = 0x20000000
	GLS_ATEST_GE_80 StateBits = 0x40000000
	GLS_ATEST_BITS  StateBits = 0x70000000

	GLS_DEFAULT = GLS_DEPTHMASK_TRUE
)

type CullType uint8

const (
	CT_FRONT_SIDED CullType = iota
	CT_BACK_SIDED
	CT_TWO_SIDED
)

/** @brief The fragment shader family a pipeline is built with. */
type ShaderType uint8

const (
	SHADER_TYPE_SINGLE_TEXTURE ShaderType = iota
	SHADER_TYPE_MULTI_TEXTURE_MUL
	SHADER_TYPE_MULTI_TEXTURE_ADD
)

// Multitexture reports whether the family samples a second texture and
// therefore needs the second texture coordinate stream.
func (s ShaderType) Multitexture() bool {
	return s == SHADER_TYPE_MULTI_TEXTURE_MUL || s == SHADER_TYPE_MULTI_TEXTURE_ADD
}

/** @brief The stencil shadow pass a pipeline participates in. */
type ShadowPhase uint8

const (
	SHADOW_PHASE_DISABLED ShadowPhase = iota
	/** @brief Shadow volume edges are rendered into the stencil buffer. */
	SHADOW_PHASE_EDGES
	/** @brief A full screen quad darkens pixels whose stencil is non zero. */
	SHADOW_PHASE_FULLSCREEN_QUAD
)

/**
 * @brief Value type key fully describing a graphics pipeline. Two
 * descriptors compare equal exactly when every field is equal, and the
 * pipeline built from a descriptor depends on nothing else.
 */
type PipelineDef struct {
	ShaderType     ShaderType
	StateBits      StateBits
	FaceCulling    CullType
	PolygonOffset  bool
	ClippingPlane  bool
	Mirror         bool
	LinePrimitives bool
	ShadowPhase    ShadowPhase
}
