package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingPipelineCache() (*PipelineCache, *[]metadata.PipelineDef, *[]vk.Pipeline) {
	var built []metadata.PipelineDef
	var destroyed []vk.Pipeline
	pc := newPipelineCache(
		func(def metadata.PipelineDef) (vk.Pipeline, error) {
			built = append(built, def)
			return vk.Pipeline(fakeHandle()), nil
		},
		func(p vk.Pipeline) { destroyed = append(destroyed, p) },
	)
	return pc, &built, &destroyed
}

func TestPipelineCacheMemoizes(t *testing.T) {
	pc, built, _ := newCountingPipelineCache()

	def := metadata.PipelineDef{StateBits: metadata.GLS_DEFAULT, FaceCulling: metadata.CT_FRONT_SIDED}
	first, err := pc.Find(def)
	require.NoError(t, err)
	second, err := pc.Find(def)
	require.NoError(t, err)
	assert.True(t, first == second, "the cached pipeline is returned")
	assert.Len(t, *built, 1)

	// A single differing field builds another pipeline.
	mirrored := def
	mirrored.Mirror = true
	third, err := pc.Find(mirrored)
	require.NoError(t, err)
	assert.False(t, first == third, "a different descriptor gets its own pipeline")
	assert.Equal(t, 2, pc.Len())

	got, ok := pc.Def(third)
	require.True(t, ok)
	assert.Equal(t, mirrored, got)
}

func TestPipelineCacheCapacity(t *testing.T) {
	pc, _, _ := newCountingPipelineCache()
	for i := 0; i < MAX_VK_PIPELINES; i++ {
		_, err := pc.Find(metadata.PipelineDef{StateBits: metadata.StateBits(i)})
		require.NoError(t, err)
	}
	_, err := pc.Find(metadata.PipelineDef{StateBits: metadata.StateBits(MAX_VK_PIPELINES)})
	assert.ErrorIs(t, err, core.ErrCapacityExhausted)

	// Cached descriptors still resolve when the cache is full.
	_, err = pc.Find(metadata.PipelineDef{StateBits: 1})
	assert.NoError(t, err)
}

func TestPipelineCacheBuildErrorIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	pc := newPipelineCache(func(metadata.PipelineDef) (vk.Pipeline, error) {
		calls++
		return nil, boom
	}, func(vk.Pipeline) {})

	_, err := pc.Find(metadata.PipelineDef{})
	assert.ErrorIs(t, err, boom)
	_, err = pc.Find(metadata.PipelineDef{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, pc.Len())
}

func TestPipelineCacheRelease(t *testing.T) {
	pc, _, destroyed := newCountingPipelineCache()
	for i := 0; i < 3; i++ {
		_, err := pc.Find(metadata.PipelineDef{StateBits: metadata.StateBits(i)})
		require.NoError(t, err)
	}
	pc.Release()
	assert.Len(t, *destroyed, 3)
	assert.Equal(t, 0, pc.Len())
	assert.Zero(t, pc.CompileTime())
}

func TestSamplerCache(t *testing.T) {
	var params []samplerParams
	destroyed := 0
	sc := newSamplerCache(func(p samplerParams) (vk.Sampler, error) {
		params = append(params, p)
		return vk.Sampler(fakeHandle()), nil
	}, func(vk.Sampler) { destroyed++ })

	def := metadata.SamplerDef{Repeat: true, MagFilter: metadata.GL_LINEAR, MinFilter: metadata.GL_LINEAR_MIPMAP_LINEAR}
	a, err := sc.Find(def)
	require.NoError(t, err)
	b, err := sc.Find(def)
	require.NoError(t, err)
	assert.True(t, a == b, "the cached sampler is returned")
	require.Len(t, params, 1)
	assert.Equal(t, vk.SamplerAddressModeRepeat, params[0].AddressMode)

	_, err = sc.Find(metadata.SamplerDef{MagFilter: metadata.GL_NEAREST_MIPMAP_NEAREST, MinFilter: metadata.GL_LINEAR})
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
	assert.Equal(t, 1, sc.Len())

	sc.Release()
	assert.Equal(t, 1, destroyed)
	assert.Equal(t, 0, sc.Len())
}

func TestSamplerCacheCapacity(t *testing.T) {
	sc := newSamplerCache(func(samplerParams) (vk.Sampler, error) {
		return vk.Sampler(fakeHandle()), nil
	}, func(vk.Sampler) {})

	filters := []metadata.GLFilter{
		metadata.GL_NEAREST, metadata.GL_LINEAR,
		metadata.GL_NEAREST_MIPMAP_NEAREST, metadata.GL_LINEAR_MIPMAP_NEAREST,
		metadata.GL_NEAREST_MIPMAP_LINEAR, metadata.GL_LINEAR_MIPMAP_LINEAR,
	}
	// 2 wrap modes x 2 mag filters x 6 min filters = 24 distinct samplers.
	for _, repeat := range []bool{false, true} {
		for _, mag := range []metadata.GLFilter{metadata.GL_NEAREST, metadata.GL_LINEAR} {
			for _, min := range filters {
				_, err := sc.Find(metadata.SamplerDef{Repeat: repeat, MagFilter: mag, MinFilter: min})
				require.NoError(t, err)
			}
		}
	}
	assert.Equal(t, 24, sc.Len())
	assert.LessOrEqual(t, sc.Len(), MAX_VK_SAMPLERS)
}

func TestSamplerParams(t *testing.T) {
	p, err := samplerParamsFor(metadata.SamplerDef{MagFilter: metadata.GL_NEAREST, MinFilter: metadata.GL_NEAREST})
	require.NoError(t, err)
	assert.Equal(t, vk.FilterNearest, p.MinFilter)
	assert.Equal(t, float32(0.25), p.MaxLod)
	assert.Equal(t, vk.SamplerAddressModeClampToEdge, p.AddressMode)

	p, err = samplerParamsFor(metadata.SamplerDef{MagFilter: metadata.GL_LINEAR, MinFilter: metadata.GL_NEAREST_MIPMAP_LINEAR})
	require.NoError(t, err)
	assert.Equal(t, vk.FilterNearest, p.MinFilter)
	assert.Equal(t, vk.SamplerMipmapModeLinear, p.MipmapMode)
	assert.Equal(t, float32(12), p.MaxLod)

	_, err = samplerParamsFor(metadata.SamplerDef{MagFilter: metadata.GL_LINEAR, MinFilter: 0x1234})
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
}

func TestImageSamplerDef(t *testing.T) {
	def := imageSamplerDef(false, true, metadata.GL_NEAREST_MIPMAP_NEAREST, metadata.GL_NEAREST)
	assert.Equal(t, metadata.SamplerDef{Repeat: true, MagFilter: metadata.GL_LINEAR, MinFilter: metadata.GL_LINEAR}, def)

	def = imageSamplerDef(true, false, metadata.GL_NEAREST_MIPMAP_NEAREST, metadata.GL_NEAREST)
	assert.Equal(t, metadata.SamplerDef{MagFilter: metadata.GL_NEAREST, MinFilter: metadata.GL_NEAREST_MIPMAP_NEAREST}, def)
}

func TestShaderModulesFor(t *testing.T) {
	cases := []struct {
		def      metadata.PipelineDef
		vertex   shaderModuleID
		fragment shaderModuleID
	}{
		{metadata.PipelineDef{}, SHADER_SINGLE_TEXTURE_VERT, SHADER_SINGLE_TEXTURE_FRAG},
		{metadata.PipelineDef{ClippingPlane: true}, SHADER_SINGLE_TEXTURE_CLIP_VERT, SHADER_SINGLE_TEXTURE_FRAG},
		{metadata.PipelineDef{ShaderType: metadata.SHADER_TYPE_MULTI_TEXTURE_MUL}, SHADER_MULTI_TEXTURE_VERT, SHADER_MULTI_TEXTURE_MUL_FRAG},
		{metadata.PipelineDef{ShaderType: metadata.SHADER_TYPE_MULTI_TEXTURE_ADD, ClippingPlane: true}, SHADER_MULTI_TEXTURE_CLIP_VERT, SHADER_MULTI_TEXTURE_ADD_FRAG},
	}
	for _, c := range cases {
		vertex, fragment, err := shaderModulesFor(c.def)
		require.NoError(t, err)
		assert.Equal(t, c.vertex, vertex)
		assert.Equal(t, c.fragment, fragment)
	}

	_, _, err := shaderModulesFor(metadata.PipelineDef{ShaderType: 7})
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
}

func TestAlphaTestFunc(t *testing.T) {
	fn, ok, err := alphaTestFunc(metadata.GLS_DEFAULT)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, ALPHA_TEST_NONE, fn)

	fn, ok, err = alphaTestFunc(metadata.GLS_ATEST_GE_80 | metadata.GLS_DEPTHMASK_TRUE)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ALPHA_TEST_GE_80, fn)

	_, _, err = alphaTestFunc(metadata.GLS_ATEST_GT_0 | metadata.GLS_ATEST_LT_80)
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
}

func TestCullModeFlipsForMirrors(t *testing.T) {
	cases := []struct {
		cull   metadata.CullType
		mirror bool
		want   vk.CullModeFlagBits
	}{
		{metadata.CT_FRONT_SIDED, false, vk.CullModeBackBit},
		{metadata.CT_FRONT_SIDED, true, vk.CullModeFrontBit},
		{metadata.CT_BACK_SIDED, false, vk.CullModeFrontBit},
		{metadata.CT_BACK_SIDED, true, vk.CullModeBackBit},
		{metadata.CT_TWO_SIDED, true, vk.CullModeNone},
	}
	for _, c := range cases {
		got, err := cullMode(c.cull, c.mirror)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
	_, err := cullMode(9, false)
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
}

func TestDepthStencilFor(t *testing.T) {
	ds := depthStencilFor(metadata.PipelineDef{StateBits: metadata.GLS_DEPTHMASK_TRUE})
	assert.True(t, ds.DepthTest)
	assert.True(t, ds.DepthWrite)
	assert.Equal(t, vk.CompareOpLessOrEqual, ds.DepthCompare)
	assert.False(t, ds.StencilTest)

	ds = depthStencilFor(metadata.PipelineDef{StateBits: metadata.GLS_DEPTHTEST_DISABLE | metadata.GLS_DEPTHFUNC_EQUAL})
	assert.False(t, ds.DepthTest)
	assert.False(t, ds.DepthWrite)
	assert.Equal(t, vk.CompareOpEqual, ds.DepthCompare)

	front := depthStencilFor(metadata.PipelineDef{FaceCulling: metadata.CT_FRONT_SIDED, ShadowPhase: metadata.SHADOW_PHASE_EDGES})
	back := depthStencilFor(metadata.PipelineDef{FaceCulling: metadata.CT_BACK_SIDED, ShadowPhase: metadata.SHADOW_PHASE_EDGES})
	assert.True(t, front.StencilTest)
	assert.Equal(t, vk.StencilOpIncrementAndClamp, front.StencilPass)
	assert.Equal(t, vk.StencilOpDecrementAndClamp, back.StencilPass)
	assert.Equal(t, vk.CompareOpAlways, front.StencilCompare)

	quad := depthStencilFor(metadata.PipelineDef{ShadowPhase: metadata.SHADOW_PHASE_FULLSCREEN_QUAD})
	assert.Equal(t, vk.CompareOpNotEqual, quad.StencilCompare)
	assert.Equal(t, vk.StencilOpKeep, quad.StencilPass)
}

func TestBlendFor(t *testing.T) {
	b, err := blendFor(metadata.GLS_DEPTHMASK_TRUE)
	require.NoError(t, err)
	assert.False(t, b.Enabled)

	b, err = blendFor(metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA)
	require.NoError(t, err)
	assert.Equal(t, blendState{Enabled: true, Src: vk.BlendFactorSrcAlpha, Dst: vk.BlendFactorOneMinusSrcAlpha}, b)

	_, err = blendFor(metadata.GLS_SRCBLEND_ONE)
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
	_, err = blendFor(metadata.GLS_SRCBLEND_BITS | metadata.GLS_DSTBLEND_ONE)
	assert.ErrorIs(t, err, core.ErrUnsupportedState)
}

func TestFixedFunctionHelpers(t *testing.T) {
	assert.Equal(t, vk.PolygonModeLine, polygonMode(metadata.GLS_POLYMODE_LINE))
	assert.Equal(t, vk.PolygonModeFill, polygonMode(metadata.GLS_DEFAULT))
	assert.Equal(t, vk.PrimitiveTopologyLineList, topologyFor(metadata.PipelineDef{LinePrimitives: true}))
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, topologyFor(metadata.PipelineDef{}))

	assert.Len(t, vertexBindings(false), 3)
	multi := vertexBindings(true)
	require.Len(t, multi, 4)
	assert.Equal(t, uint32(3), multi[3].Binding)
	assert.Equal(t, uint32(XYZ_ELEMENT_SIZE), multi[0].Stride)

	assert.Zero(t, colorWriteMask(metadata.PipelineDef{ShadowPhase: metadata.SHADOW_PHASE_EDGES}))
	assert.NotZero(t, colorWriteMask(metadata.PipelineDef{}))
}

func TestStandardPipelines(t *testing.T) {
	var defs []metadata.PipelineDef
	var sp StandardPipelines
	require.NoError(t, sp.create(func(def metadata.PipelineDef) (vk.Pipeline, error) {
		defs = append(defs, def)
		return vk.Pipeline(fakeHandle()), nil
	}))
	// skybox, 4 shadow volumes, shadow finish, 2x3x2 fog and dlight, 6 debug
	assert.Len(t, defs, 1+4+1+12+12+6)

	// Every standard descriptor maps to valid fixed-function state.
	for _, def := range defs {
		_, _, err := shaderModulesFor(def)
		require.NoError(t, err)
		_, _, err = alphaTestFunc(def.StateBits)
		require.NoError(t, err)
		_, err = blendFor(def.StateBits)
		require.NoError(t, err, "%+v", def)
		_, err = cullMode(def.FaceCulling, def.Mirror)
		require.NoError(t, err)
	}

	assert.NotNil(t, sp.Skybox)
	assert.NotNil(t, sp.Fog[1][metadata.CT_TWO_SIDED][1])

	destroyed := 0
	sp.destroy(func(vk.Pipeline) { destroyed++ })
	assert.Equal(t, len(defs), destroyed)
	assert.Nil(t, sp.ImagesDebug)
}

func TestStandardPipelinesStopAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	var sp StandardPipelines
	calls := 0
	err := sp.create(func(metadata.PipelineDef) (vk.Pipeline, error) {
		calls++
		if calls == 3 {
			return nil, boom
		}
		return vk.Pipeline(fakeHandle()), nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	destroyed := 0
	sp.destroy(func(vk.Pipeline) { destroyed++ })
	assert.Equal(t, 2, destroyed)
}
