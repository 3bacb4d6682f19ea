package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func NewVulkanCommandBuffer(context *VulkanContext, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := vulkanError("vkAllocateCommandBuffers", vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, buffers)); err != nil {
		return nil, err
	}
	return &VulkanCommandBuffer{
		Handle: buffers[0],
		State:  COMMAND_BUFFER_STATE_READY,
	}, nil
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	if v.Handle != nil {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
	}
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if err := vulkanError("vkBeginCommandBuffer", vk.BeginCommandBuffer(v.Handle, &beginInfo)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := vulkanError("vkEndCommandBuffer", vk.EndCommandBuffer(v.Handle)); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

/**
 * @brief Records commands into a one-shot command buffer, submits it and
 * waits for the queue to drain. The command buffer is freed on every path.
 * @param context The context holding the pool and the queue.
 * @param recorder Records the commands.
 */
func RecordAndRun(context *VulkanContext, recorder func(cb vk.CommandBuffer)) error {
	cb, err := NewVulkanCommandBuffer(context, context.CommandPool)
	if err != nil {
		return err
	}
	defer cb.Free(context, context.CommandPool)

	if err := cb.Begin(true); err != nil {
		return err
	}
	recorder(cb.Handle)
	if err := cb.End(); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if err := vulkanError("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence)); err != nil {
		return err
	}
	cb.UpdateSubmitted()
	return vulkanError("vkQueueWaitIdle", vk.QueueWaitIdle(context.Device.GraphicsQueue))
}

// RecordImageLayoutTransition moves every mip level of image from oldLayout
// to newLayout, making srcAccess visible to dstAccess.
func RecordImageLayoutTransition(cb vk.CommandBuffer, image vk.Image, aspect vk.ImageAspectFlagBits,
	srcAccess vk.AccessFlagBits, oldLayout vk.ImageLayout,
	dstAccess vk.AccessFlagBits, newLayout vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     vk.RemainingMipLevels,
			BaseArrayLayer: 0,
			LayerCount:     vk.RemainingArrayLayers,
		},
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// RecordBufferMemoryBarrier makes srcAccess writes to buffer visible to dstAccess.
func RecordBufferMemoryBarrier(cb vk.CommandBuffer, buffer vk.Buffer,
	srcStage, dstStage vk.PipelineStageFlagBits,
	srcAccess, dstAccess vk.AccessFlagBits) {
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(srcAccess),
		DstAccessMask:       vk.AccessFlags(dstAccess),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              buffer,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
	vk.CmdPipelineBarrier(cb,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage),
		0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}
