package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// drawCall is everything ShadeGeometry records for one draw.
type drawCall struct {
	Pipeline       vk.Pipeline
	Shade          ShadeOffsets
	DescriptorSets []vk.DescriptorSet
	Scissor        screenRect
	Viewport       viewportParams

	DepthBias    bool
	BiasConstant float32
	BiasSlope    float32

	Indexed bool
	// Index count when Indexed, vertex count otherwise.
	Count uint32
}

// frameDevice is the part of the device the frame controller drives: the
// frame fence, the swapchain, the frame command buffer and the graphics
// queue.
type frameDevice interface {
	WaitFrameFence(timeoutNs uint64) error
	ResetFrameFence() error
	AcquireImage() (uint32, error)
	// BeginRecording starts the command buffer and the render pass for the
	// presentable image imageIndex.
	BeginRecording(imageIndex uint32) error
	ClearAttachments(attachments []vk.ClearAttachment, rect screenRect)
	BindGeometry(bound BoundGeometry, push []float32, pushSize uint32)
	Draw(call drawCall)
	// EndRecording closes the render pass, records the gamma pass and ends
	// the command buffer.
	EndRecording(gamma [3]uint32) error
	Submit(imageIndex uint32) error
	Present(imageIndex uint32) error
	WaitIdle() error
}

// contextFrameDevice records into the objects of a VulkanContext.
type contextFrameDevice struct {
	context *VulkanContext
}

func (d contextFrameDevice) WaitFrameFence(timeoutNs uint64) error {
	return d.context.FrameFence.Wait(d.context, timeoutNs)
}

func (d contextFrameDevice) ResetFrameFence() error {
	return d.context.FrameFence.Reset(d.context)
}

func (d contextFrameDevice) AcquireImage() (uint32, error) {
	return d.context.Swapchain.AcquireNextImage(d.context, d.context.ImageAcquired)
}

func (d contextFrameDevice) BeginRecording(imageIndex uint32) error {
	context := d.context
	context.ImageIndex = imageIndex
	writeGammaTarget(context, context.Swapchain.Views[imageIndex])

	if err := context.CommandBuffer.Begin(true); err != nil {
		return err
	}
	context.MainRenderpass.Begin(context.CommandBuffer, context.Framebuffer.Handle)
	return nil
}

func (d contextFrameDevice) ClearAttachments(attachments []vk.ClearAttachment, rect screenRect) {
	clearRect := vk.ClearRect{
		Rect: vk.Rect2D{
			Offset: vk.Offset2D{X: rect.X, Y: rect.Y},
			Extent: vk.Extent2D{Width: rect.Width, Height: rect.Height},
		},
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdClearAttachments(d.context.CommandBuffer.Handle, uint32(len(attachments)), attachments, 1, []vk.ClearRect{clearRect})
}

func (d contextFrameDevice) BindGeometry(bound BoundGeometry, push []float32, pushSize uint32) {
	context := d.context
	cb := context.CommandBuffer.Handle
	vk.CmdBindVertexBuffers(cb, 0, 1, []vk.Buffer{context.Geometry.VertexBuffer}, []vk.DeviceSize{vk.DeviceSize(bound.XYZOffset)})
	vk.CmdBindIndexBuffer(cb, context.Geometry.IndexBuffer, vk.DeviceSize(bound.IndexOffset), vk.IndexTypeUint32)
	vk.CmdPushConstants(cb, context.PipelineLayout, vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, pushSize, unsafe.Pointer(&push[0]))
}

func (d contextFrameDevice) Draw(call drawCall) {
	context := d.context
	cb := context.CommandBuffer.Handle

	vertexBuffer := context.Geometry.VertexBuffer
	buffers := []vk.Buffer{vertexBuffer, vertexBuffer, vertexBuffer}
	offsets := []vk.DeviceSize{
		vk.DeviceSize(call.Shade.Offsets[0]),
		vk.DeviceSize(call.Shade.Offsets[1]),
		vk.DeviceSize(call.Shade.Offsets[2]),
	}
	vk.CmdBindVertexBuffers(cb, 1, call.Shade.Bindings, buffers[:call.Shade.Bindings], offsets[:call.Shade.Bindings])

	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, context.PipelineLayout, 0, uint32(len(call.DescriptorSets)),
		call.DescriptorSets, 0, nil)
	vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, call.Pipeline)

	vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: call.Scissor.X, Y: call.Scissor.Y},
		Extent: vk.Extent2D{Width: call.Scissor.Width, Height: call.Scissor.Height},
	}})
	v := call.Viewport
	vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
		X:        v.X,
		Y:        v.Y,
		Width:    v.Width,
		Height:   v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}})
	if call.DepthBias {
		vk.CmdSetDepthBias(cb, call.BiasConstant, 0, call.BiasSlope)
	}

	if call.Indexed {
		vk.CmdDrawIndexed(cb, call.Count, 1, 0, 0, 0)
	} else {
		vk.CmdDraw(cb, call.Count, 1, 0, 0)
	}
}

func (d contextFrameDevice) EndRecording(gamma [3]uint32) error {
	context := d.context
	context.MainRenderpass.End(context.CommandBuffer)
	recordGammaPass(context, context.CommandBuffer.Handle, gamma)
	return context.CommandBuffer.End()
}

// Submit waits for the acquired image at the compute stage only: the render
// pass dependency already orders the color writes before the gamma pass.
func (d contextFrameDevice) Submit(imageIndex uint32) error {
	context := d.context
	cb := context.CommandBuffer
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{context.ImageAcquired},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{context.RenderingFinished[imageIndex]},
	}
	if err := vulkanError("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, context.FrameFence.Handle)); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	return nil
}

func (d contextFrameDevice) Present(imageIndex uint32) error {
	context := d.context
	return context.Swapchain.Present(context, context.RenderingFinished[imageIndex], imageIndex)
}

func (d contextFrameDevice) WaitIdle() error {
	return vulkanError("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.context.Device.LogicalDevice))
}
