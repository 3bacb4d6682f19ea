package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// StandardPipelines are built at initialization, outside the pipeline
// cache, and live as long as the device.
type StandardPipelines struct {
	Skybox vk.Pipeline

	// Indexed by [front sided, back sided][mirror].
	ShadowVolume [2][2]vk.Pipeline
	ShadowFinish vk.Pipeline

	// Indexed by [depth func equal, always][cull type][polygon offset].
	Fog    [2][3][2]vk.Pipeline
	DLight [2][3][2]vk.Pipeline

	TrisDebug           vk.Pipeline
	TrisMirrorDebug     vk.Pipeline
	NormalsDebug        vk.Pipeline
	SurfaceDebugSolid   vk.Pipeline
	SurfaceDebugOutline vk.Pipeline
	ImagesDebug         vk.Pipeline
}

// each visits every standard pipeline slot with the descriptor it is built from.
func (sp *StandardPipelines) each(visit func(def metadata.PipelineDef, slot *vk.Pipeline)) {
	visit(metadata.PipelineDef{
		ShaderType:  metadata.SHADER_TYPE_SINGLE_TEXTURE,
		FaceCulling: metadata.CT_FRONT_SIDED,
	}, &sp.Skybox)

	shadowCulls := [2]metadata.CullType{metadata.CT_FRONT_SIDED, metadata.CT_BACK_SIDED}
	for i, cull := range shadowCulls {
		for j, mirror := range [2]bool{false, true} {
			visit(metadata.PipelineDef{
				ShaderType:  metadata.SHADER_TYPE_SINGLE_TEXTURE,
				FaceCulling: cull,
				Mirror:      mirror,
				ShadowPhase: metadata.SHADOW_PHASE_EDGES,
			}, &sp.ShadowVolume[i][j])
		}
	}
	visit(metadata.PipelineDef{
		ShaderType:  metadata.SHADER_TYPE_SINGLE_TEXTURE,
		StateBits:   metadata.GLS_DEPTHMASK_TRUE | metadata.GLS_SRCBLEND_DST_COLOR | metadata.GLS_DSTBLEND_ZERO,
		FaceCulling: metadata.CT_FRONT_SIDED,
		ShadowPhase: metadata.SHADOW_PHASE_FULLSCREEN_QUAD,
	}, &sp.ShadowFinish)

	fogStates := [2]metadata.StateBits{
		metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA | metadata.GLS_DEPTHFUNC_EQUAL,
		metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA,
	}
	dlightStates := [2]metadata.StateBits{
		metadata.GLS_SRCBLEND_DST_COLOR | metadata.GLS_DSTBLEND_ONE | metadata.GLS_DEPTHFUNC_EQUAL,
		metadata.GLS_SRCBLEND_DST_COLOR | metadata.GLS_DSTBLEND_ONE,
	}
	for i := range fogStates {
		for cull := metadata.CT_FRONT_SIDED; cull <= metadata.CT_TWO_SIDED; cull++ {
			for k, offset := range [2]bool{false, true} {
				def := metadata.PipelineDef{
					ShaderType:    metadata.SHADER_TYPE_SINGLE_TEXTURE,
					FaceCulling:   cull,
					PolygonOffset: offset,
				}
				def.StateBits = fogStates[i]
				visit(def, &sp.Fog[i][cull][k])
				def.StateBits = dlightStates[i]
				visit(def, &sp.DLight[i][cull][k])
			}
		}
	}

	visit(metadata.PipelineDef{
		StateBits:   metadata.GLS_POLYMODE_LINE | metadata.GLS_DEPTHMASK_TRUE,
		FaceCulling: metadata.CT_FRONT_SIDED,
	}, &sp.TrisDebug)
	visit(metadata.PipelineDef{
		StateBits:   metadata.GLS_POLYMODE_LINE | metadata.GLS_DEPTHMASK_TRUE,
		FaceCulling: metadata.CT_BACK_SIDED,
	}, &sp.TrisMirrorDebug)
	visit(metadata.PipelineDef{
		StateBits:      metadata.GLS_DEPTHMASK_TRUE,
		FaceCulling:    metadata.CT_FRONT_SIDED,
		LinePrimitives: true,
	}, &sp.NormalsDebug)
	visit(metadata.PipelineDef{
		StateBits:   metadata.GLS_DEPTHMASK_TRUE | metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA,
		FaceCulling: metadata.CT_FRONT_SIDED,
	}, &sp.SurfaceDebugSolid)
	visit(metadata.PipelineDef{
		StateBits:      metadata.GLS_DEPTHMASK_TRUE | metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA,
		FaceCulling:    metadata.CT_FRONT_SIDED,
		LinePrimitives: true,
	}, &sp.SurfaceDebugOutline)
	visit(metadata.PipelineDef{
		StateBits:   metadata.GLS_DEPTHTEST_DISABLE | metadata.GLS_SRCBLEND_SRC_ALPHA | metadata.GLS_DSTBLEND_ONE_MINUS_SRC_ALPHA,
		FaceCulling: metadata.CT_FRONT_SIDED,
	}, &sp.ImagesDebug)
}

/**
 * @brief Builds every standard pipeline with build.
 * @return The first build error; slots built before it are kept for destroy.
 */
func (sp *StandardPipelines) create(build func(metadata.PipelineDef) (vk.Pipeline, error)) error {
	var firstErr error
	count := 0
	sp.each(func(def metadata.PipelineDef, slot *vk.Pipeline) {
		if firstErr != nil {
			return
		}
		p, err := build(def)
		if err != nil {
			firstErr = err
			return
		}
		*slot = p
		count++
	})
	if firstErr == nil {
		core.LogDebug("created %d standard pipelines", count)
	}
	return firstErr
}

func (sp *StandardPipelines) destroy(destroy func(vk.Pipeline)) {
	sp.each(func(_ metadata.PipelineDef, slot *vk.Pipeline) {
		if *slot != nil {
			destroy(*slot)
			*slot = nil
		}
	})
}
