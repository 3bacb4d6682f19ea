package vulkan

import (
	"fmt"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/containers"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// PipelineCache memoizes graphics pipelines by descriptor and accumulates
// the time spent building them.
type PipelineCache struct {
	pipelines *containers.Arena[metadata.PipelineDef, vk.Pipeline]
	build     func(metadata.PipelineDef) (vk.Pipeline, error)
	destroy   func(vk.Pipeline)
	clock     *core.Clock
}

func newPipelineCache(build func(metadata.PipelineDef) (vk.Pipeline, error), destroy func(vk.Pipeline)) *PipelineCache {
	return &PipelineCache{
		pipelines: containers.NewArena[metadata.PipelineDef, vk.Pipeline]("pipelines", MAX_VK_PIPELINES),
		build:     build,
		destroy:   destroy,
		clock:     core.NewClock(),
	}
}

// NewPipelineCache creates a cache building pipelines for the main render pass.
func NewPipelineCache(context *VulkanContext) *PipelineCache {
	return newPipelineCache(
		func(def metadata.PipelineDef) (vk.Pipeline, error) { return createGraphicsPipeline(context, def) },
		func(p vk.Pipeline) { vk.DestroyPipeline(context.Device.LogicalDevice, p, context.Allocator) },
	)
}

/**
 * @brief Returns the pipeline built from def, building it on first use.
 * Only builds count towards the compile time.
 */
func (pc *PipelineCache) Find(def metadata.PipelineDef) (vk.Pipeline, error) {
	return pc.pipelines.FindOrCreate(def, func(def metadata.PipelineDef) (vk.Pipeline, error) {
		pc.clock.Start()
		defer pc.clock.Stop()
		return pc.build(def)
	})
}

// Def returns the descriptor a cached pipeline was built from.
func (pc *PipelineCache) Def(pipeline vk.Pipeline) (metadata.PipelineDef, bool) {
	var def metadata.PipelineDef
	found := false
	pc.pipelines.Each(func(_ containers.Handle, key metadata.PipelineDef, p vk.Pipeline) {
		if !found && p == pipeline {
			def, found = key, true
		}
	})
	return def, found
}

func (pc *PipelineCache) Len() int {
	return pc.pipelines.Len()
}

func (pc *PipelineCache) CompileTime() time.Duration {
	return pc.clock.Total()
}

func (pc *PipelineCache) Release() {
	pc.pipelines.Each(func(_ containers.Handle, _ metadata.PipelineDef, p vk.Pipeline) {
		pc.destroy(p)
	})
	pc.pipelines.Reset()
	pc.clock.Reset()
}

/**
 * @brief Builds the graphics pipeline described by def for the main render
 * pass. Viewport, scissor and depth bias are dynamic.
 */
func createGraphicsPipeline(context *VulkanContext, def metadata.PipelineDef) (vk.Pipeline, error) {
	vertexID, fragmentID, err := shaderModulesFor(def)
	if err != nil {
		return nil, err
	}
	alphaFunc, alphaTest, err := alphaTestFunc(def.StateBits)
	if err != nil {
		return nil, err
	}
	cull, err := cullMode(def.FaceCulling, def.Mirror)
	if err != nil {
		return nil, err
	}
	blend, err := blendFor(def.StateBits)
	if err != nil {
		return nil, err
	}
	ds := depthStencilFor(def)

	var fragmentSpecialization []vk.SpecializationInfo
	if alphaTest {
		fragmentSpecialization = []vk.SpecializationInfo{{
			MapEntryCount: 1,
			PMapEntries: []vk.SpecializationMapEntry{{
				ConstantID: 0,
				Offset:     0,
				Size:       4,
			}},
			DataSize: 4,
			PData:    unsafe.Pointer(&alphaFunc),
		}}
	}
	stages := []vk.PipelineShaderStageCreateInfo{
		shaderStage(vk.ShaderStageVertexBit, context.Shaders.Get(vertexID), nil),
		shaderStage(vk.ShaderStageFragmentBit, context.Shaders.Get(fragmentID), fragmentSpecialization),
	}

	// Vertex input
	bindings := vertexBindings(def.ShaderType.Multitexture())
	bindingDescriptions := make([]vk.VertexInputBindingDescription, len(bindings))
	attributeDescriptions := make([]vk.VertexInputAttributeDescription, len(bindings))
	for i, b := range bindings {
		bindingDescriptions[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex,
		}
		attributeDescriptions[i] = vk.VertexInputAttributeDescription{
			Location: b.Binding,
			Binding:  b.Binding,
			Format:   b.Format,
			Offset:   0,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topologyFor(def),
		PrimitiveRestartEnable: vk.False,
	}

	// Viewport and scissor are set per draw.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             polygonMode(def.StateBits),
		CullMode:                vk.CullModeFlags(cull),
		// Clockwise winding is front facing.
		FrontFace:       vk.FrontFaceClockwise,
		DepthBiasEnable: vkBool(def.PolygonOffset),
		LineWidth:       1.0,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples:  vk.SampleCount1Bit,
		SampleShadingEnable:   vk.False,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	stencilOp := vk.StencilOpState{
		FailOp:      ds.StencilFail,
		PassOp:      ds.StencilPass,
		DepthFailOp: ds.StencilZFail,
		CompareOp:   ds.StencilCompare,
		CompareMask: 255,
		WriteMask:   255,
		Reference:   0,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vkBool(ds.DepthTest),
		DepthWriteEnable:      vkBool(ds.DepthWrite),
		DepthCompareOp:        ds.DepthCompare,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vkBool(ds.StencilTest),
		Front:                 stencilOp,
		Back:                  stencilOp,
		MinDepthBounds:        0,
		MaxDepthBounds:        1,
	}

	colorBlendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vkBool(blend.Enabled),
		SrcColorBlendFactor: blend.Src,
		DstColorBlendFactor: blend.Dst,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: blend.Src,
		DstAlphaBlendFactor: blend.Dst,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      colorWriteMask(def),
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachment},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateDepthBias,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              context.PipelineLayout,
		RenderPass:          context.MainRenderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := vulkanError("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pipelines)); err != nil {
		return nil, fmt.Errorf("pipeline %+v: %w", def, err)
	}
	return pipelines[0], nil
}

// createGammaPipeline builds the compute pipeline of the gamma pass.
func createGammaPipeline(context *VulkanContext) error {
	createInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              shaderStage(vk.ShaderStageComputeBit, context.Shaders.Get(SHADER_GAMMA_COMP), nil),
		Layout:             context.GammaPipelineLayout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}
	pipelines := make([]vk.Pipeline, 1)
	if err := vulkanError("vkCreateComputePipelines", vk.CreateComputePipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.ComputePipelineCreateInfo{createInfo},
		context.Allocator,
		pipelines)); err != nil {
		return err
	}
	context.GammaPipeline = pipelines[0]
	return nil
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
