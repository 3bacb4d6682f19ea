package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// Alpha test function values of the fragment shader specialization constant.
const (
	ALPHA_TEST_NONE  int32 = 0
	ALPHA_TEST_GT_0  int32 = 1
	ALPHA_TEST_LT_80 int32 = 2
	ALPHA_TEST_GE_80 int32 = 3
)

// blendState is the color blend setup of the single color attachment.
type blendState struct {
	Enabled bool
	Src     vk.BlendFactor
	Dst     vk.BlendFactor
}

// depthStencilState is the depth and stencil setup of a pipeline. Front and
// back faces share the same stencil operations.
type depthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare vk.CompareOp

	StencilTest    bool
	StencilFail    vk.StencilOp
	StencilPass    vk.StencilOp
	StencilZFail   vk.StencilOp
	StencilCompare vk.CompareOp
}

type vertexBinding struct {
	Binding uint32
	Stride  uint32
	Format  vk.Format
}

func shaderModulesFor(def metadata.PipelineDef) (vertex, fragment shaderModuleID, err error) {
	multi := def.ShaderType.Multitexture()
	switch {
	case !multi && !def.ClippingPlane:
		vertex = SHADER_SINGLE_TEXTURE_VERT
	case !multi && def.ClippingPlane:
		vertex = SHADER_SINGLE_TEXTURE_CLIP_VERT
	case multi && !def.ClippingPlane:
		vertex = SHADER_MULTI_TEXTURE_VERT
	default:
		vertex = SHADER_MULTI_TEXTURE_CLIP_VERT
	}

	switch def.ShaderType {
	case metadata.SHADER_TYPE_SINGLE_TEXTURE:
		fragment = SHADER_SINGLE_TEXTURE_FRAG
	case metadata.SHADER_TYPE_MULTI_TEXTURE_MUL:
		fragment = SHADER_MULTI_TEXTURE_MUL_FRAG
	case metadata.SHADER_TYPE_MULTI_TEXTURE_ADD:
		fragment = SHADER_MULTI_TEXTURE_ADD_FRAG
	default:
		return 0, 0, fmt.Errorf("shader type %d: %w", def.ShaderType, core.ErrUnsupportedState)
	}
	return vertex, fragment, nil
}

// alphaTestFunc selects the fragment shader's alpha test. ok is false when
// no alpha test is requested and the specialization constant is not set.
func alphaTestFunc(bits metadata.StateBits) (fn int32, ok bool, err error) {
	switch bits & metadata.GLS_ATEST_BITS {
	case 0:
		return ALPHA_TEST_NONE, false, nil
	case metadata.GLS_ATEST_GT_0:
		return ALPHA_TEST_GT_0, true, nil
	case metadata.GLS_ATEST_LT_80:
		return ALPHA_TEST_LT_80, true, nil
	case metadata.GLS_ATEST_GE_80:
		return ALPHA_TEST_GE_80, true, nil
	}
	return 0, false, fmt.Errorf("alpha test bits 0x%x: %w", uint32(bits&metadata.GLS_ATEST_BITS), core.ErrUnsupportedState)
}

func polygonMode(bits metadata.StateBits) vk.PolygonMode {
	if bits&metadata.GLS_POLYMODE_LINE != 0 {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

func cullMode(culling metadata.CullType, mirror bool) (vk.CullModeFlagBits, error) {
	switch culling {
	case metadata.CT_TWO_SIDED:
		return vk.CullModeNone, nil
	case metadata.CT_FRONT_SIDED:
		if mirror {
			return vk.CullModeFrontBit, nil
		}
		return vk.CullModeBackBit, nil
	case metadata.CT_BACK_SIDED:
		if mirror {
			return vk.CullModeBackBit, nil
		}
		return vk.CullModeFrontBit, nil
	}
	return 0, fmt.Errorf("face culling %d: %w", culling, core.ErrUnsupportedState)
}

func depthStencilFor(def metadata.PipelineDef) depthStencilState {
	ds := depthStencilState{
		DepthTest:    def.StateBits&metadata.GLS_DEPTHTEST_DISABLE == 0,
		DepthWrite:   def.StateBits&metadata.GLS_DEPTHMASK_TRUE != 0,
		DepthCompare: vk.CompareOpLessOrEqual,
	}
	if def.StateBits&metadata.GLS_DEPTHFUNC_EQUAL != 0 {
		ds.DepthCompare = vk.CompareOpEqual
	}

	switch def.ShadowPhase {
	case metadata.SHADOW_PHASE_EDGES:
		ds.StencilTest = true
		ds.StencilFail = vk.StencilOpKeep
		ds.StencilZFail = vk.StencilOpKeep
		ds.StencilCompare = vk.CompareOpAlways
		ds.StencilPass = vk.StencilOpDecrementAndClamp
		if def.FaceCulling == metadata.CT_FRONT_SIDED {
			ds.StencilPass = vk.StencilOpIncrementAndClamp
		}
	case metadata.SHADOW_PHASE_FULLSCREEN_QUAD:
		ds.StencilTest = true
		ds.StencilFail = vk.StencilOpKeep
		ds.StencilPass = vk.StencilOpKeep
		ds.StencilZFail = vk.StencilOpKeep
		ds.StencilCompare = vk.CompareOpNotEqual
	}
	return ds
}

func srcBlendFactor(bits metadata.StateBits) (vk.BlendFactor, error) {
	switch bits & metadata.GLS_SRCBLEND_BITS {
	case metadata.GLS_SRCBLEND_ZERO:
		return vk.BlendFactorZero, nil
	case metadata.GLS_SRCBLEND_ONE:
		return vk.BlendFactorOne, nil
	case metadata.GLS_SRCBLEND_DST_COLOR:
		return vk.BlendFactorDstColor, nil
	case metadata.GLS_SRCBLEND_ONE_MINUS_DST_COLOR:
		return vk.BlendFactorOneMinusDstColor, nil
	case metadata.GLS_SRCBLEND_SRC_ALPHA:
		return vk.BlendFactorSrcAlpha, nil
	case metadata.GLS_SRCBLEND_ONE_MINUS_SRC_ALPHA:
		return vk.BlendFactorOneMinusSrcAlpha, nil
	case metadata.GLS_SRCBLEND_DST_ALPHA:
		return vk.BlendFactorDstAlpha, nil
	case metadata.GLS_SRCBLEND_ONE_MINUS_DST_ALPHA:
		return vk.BlendFactorOneMinusDstAlpha, nil
	case metadata.GLS_SRCBLEND_ALPHA_SATURATE:
		return vk.BlendFactorSrcAlphaSaturate, nil
	}
	return 0, fmt.Errorf("src blend bits 0x%x: %w", uint32(bits&metadata.GLS_SRCBLEND_BITS), core.ErrUnsupportedState)
}

func dstBlendFactor(bits metadata.StateBits) (vk.BlendFactor, error) {
	switch bits & metadata.GLS_DSTBLEND_BITS {
	case metadata.GLS_DSTBLEND_ZERO:
		return vk.BlendFactorZero, nil
	case metadata.GLS_DSTBLEND_ONE:
		return vk.BlendFactorOne, nil
	case metadata.GLS_DSTBLEND_SRC_COLOR:
		return vk.BlendFactorSrcColor, nil
	case metadata.GLS_DSTBLEND_ONE_MINUS_SRC_COLOR:
		return vk.BlendFactorOneMinusSrcColor, nil
	case metadata.GLS_DSTBLEND_SRC_ALPHA:
		return vk.BlendFactorSrcAlpha, nil
	case metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA:
		return vk.BlendFactorOneMinusSrcAlpha, nil
	case metadata.GLS_DSTBLEND_DST_ALPHA:
		return vk.BlendFactorDstAlpha, nil
	case metadata.GLS_DSTBLEND_ONE_MINUS_DST_ALPHA:
		return vk.BlendFactorOneMinusDstAlpha, nil
	}
	return 0, fmt.Errorf("dst blend bits 0x%x: %w", uint32(bits&metadata.GLS_DSTBLEND_BITS), core.ErrUnsupportedState)
}

/**
 * @brief Decodes the blend bits. Blending is enabled when either factor is
 * given; a missing half then fails as an unknown factor.
 */
func blendFor(bits metadata.StateBits) (blendState, error) {
	if bits&(metadata.GLS_SRCBLEND_BITS|metadata.GLS_DSTBLEND_BITS) == 0 {
		return blendState{}, nil
	}
	src, err := srcBlendFactor(bits)
	if err != nil {
		return blendState{}, err
	}
	dst, err := dstBlendFactor(bits)
	if err != nil {
		return blendState{}, err
	}
	return blendState{Enabled: true, Src: src, Dst: dst}, nil
}

func topologyFor(def metadata.PipelineDef) vk.PrimitiveTopology {
	if def.LinePrimitives {
		return vk.PrimitiveTopologyLineList
	}
	return vk.PrimitiveTopologyTriangleList
}

// vertexBindings lists one binding per stream: position, color, first and,
// for multitexture pipelines, second texture coordinates. Attribute
// locations equal binding numbers.
func vertexBindings(multitexture bool) []vertexBinding {
	bindings := []vertexBinding{
		{Binding: 0, Stride: uint32(XYZ_ELEMENT_SIZE), Format: vk.FormatR32g32b32Sfloat},
		{Binding: 1, Stride: uint32(COLOR_ELEMENT_SIZE), Format: vk.FormatR8g8b8a8Unorm},
		{Binding: 2, Stride: uint32(ST_ELEMENT_SIZE), Format: vk.FormatR32g32Sfloat},
	}
	if multitexture {
		bindings = append(bindings, vertexBinding{Binding: 3, Stride: uint32(ST_ELEMENT_SIZE), Format: vk.FormatR32g32Sfloat})
	}
	return bindings
}

// colorWriteMask is empty while shadow volume edges only touch the stencil.
func colorWriteMask(def metadata.PipelineDef) vk.ColorComponentFlags {
	if def.ShadowPhase == metadata.SHADOW_PHASE_EDGES {
		return 0
	}
	return vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit)
}
