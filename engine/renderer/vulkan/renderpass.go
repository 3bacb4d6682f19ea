package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Format of the offscreen color target the scene is rendered into.
const OUTPUT_IMAGE_FORMAT = vk.FormatR8g8b8a8Unorm

type VulkanRenderpass struct {
	Handle  vk.RenderPass
	Width   uint32
	Height  uint32
	Depth   float32
	Stencil uint32
}

/**
 * @brief Creates the main render pass: the offscreen color target, whose
 * contents are fully overwritten every frame, and a depth/stencil attachment
 * cleared on load. The color target ends up readable by the gamma pass.
 */
func RenderpassCreate(context *VulkanContext, width, height uint32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		Width:   width,
		Height:  height,
		Depth:   1.0,
		Stencil: 0,
	}

	attachmentDescriptions := []vk.AttachmentDescription{
		{
			Format:         OUTPUT_IMAGE_FORMAT,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
		},
		{
			Format:         context.Device.DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpClear,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachmentReference,
		PDepthStencilAttachment: &depthAttachmentReference,
	}

	dependencies := []vk.SubpassDependency{
		{
			// The previous frame's gamma pass must be done reading the target.
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	if err := vulkanError("vkCreateRenderPass", vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &outRenderpass.Handle)); err != nil {
		return nil, err
	}
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) Destroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// Begin starts the render pass over the whole framebuffer, clearing depth
// and stencil.
func (vr *VulkanRenderpass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer vk.Framebuffer) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0, 0, 0, 1})
	clearValues[1].SetDepthStencil(vr.Depth, vr.Stencil)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: vr.Width, Height: vr.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
