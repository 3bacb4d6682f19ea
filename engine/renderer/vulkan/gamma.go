package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/math"
)

// gammaGroupCounts is the dispatch size covering a width x height frame with
// GAMMA_GROUP_SIZE square workgroups.
func gammaGroupCounts(width, height uint32) (uint32, uint32) {
	return math.CeilDiv(width, GAMMA_GROUP_SIZE), math.CeilDiv(height, GAMMA_GROUP_SIZE)
}

// gammaPushConstants are {width, height, identity}. The table is only applied
// when gamma is done in the shader and hardware gamma is not ignored.
func gammaPushConstants(width, height uint32, shaderGamma, ignoreHWGamma bool) [3]uint32 {
	identity := uint32(1)
	if shaderGamma && !ignoreHWGamma {
		identity = 0
	}
	return [3]uint32{width, height, identity}
}

/**
 * @brief Builds the lookup table for the given gamma value. Entry i maps the
 * channel value i/255 to (i/255)^(1/gamma).
 */
func GammaTable(gamma float32) [GAMMA_TABLE_SIZE]float32 {
	var table [GAMMA_TABLE_SIZE]float32
	for i := range table {
		v := float64(i) / float64(GAMMA_TABLE_SIZE-1)
		if gamma != 1 {
			v = stdmath.Pow(v, 1/float64(gamma))
		}
		table[i] = math.Clamp(float32(v), 0, 1)
	}
	return table
}

func gammaTableBytes(table [GAMMA_TABLE_SIZE]float32) []byte {
	data := make([]byte, 0, GAMMA_TABLE_SIZE*4)
	for _, v := range table {
		data = binary.LittleEndian.AppendUint32(data, stdmath.Float32bits(v))
	}
	return data
}

func createGammaBuffer(context *VulkanContext) error {
	buffer, err := NewVulkanBuffer(context, GAMMA_TABLE_SIZE*4,
		vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return err
	}
	context.GammaBuffer = buffer
	return nil
}

/**
 * @brief Replaces the contents of the gamma buffer. Waits for the device to
 * go idle since the buffer may be read by a frame in flight.
 */
func updateGammaTable(context *VulkanContext, staging *StagingBuffer, table [GAMMA_TABLE_SIZE]float32) error {
	if err := vulkanError("vkDeviceWaitIdle", vk.DeviceWaitIdle(context.Device.LogicalDevice)); err != nil {
		return err
	}
	if err := staging.EnsureCapacity(GAMMA_TABLE_SIZE * 4); err != nil {
		return err
	}
	if err := staging.Upload(gammaTableBytes(table)); err != nil {
		return err
	}

	return RecordAndRun(context, func(cb vk.CommandBuffer) {
		RecordBufferMemoryBarrier(cb, staging.Handle(),
			vk.PipelineStageHostBit, vk.PipelineStageTransferBit,
			vk.AccessHostWriteBit, vk.AccessTransferReadBit)

		region := vk.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      vk.DeviceSize(GAMMA_TABLE_SIZE * 4),
		}
		vk.CmdCopyBuffer(cb, staging.Handle(), context.GammaBuffer.Handle, 1, []vk.BufferCopy{region})

		RecordBufferMemoryBarrier(cb, context.GammaBuffer.Handle,
			vk.PipelineStageTransferBit, vk.PipelineStageComputeShaderBit,
			vk.AccessTransferWriteBit, vk.AccessShaderReadBit)
	})
}

// recordGammaPass writes the gamma corrected output image into the
// presentable image acquired for this frame.
func recordGammaPass(context *VulkanContext, cb vk.CommandBuffer, pushConstants [3]uint32) {
	image := context.Swapchain.Images[context.ImageIndex]
	RecordImageLayoutTransition(cb, image, vk.ImageAspectColorBit,
		0, vk.ImageLayoutUndefined,
		vk.AccessShaderWriteBit, vk.ImageLayoutGeneral)

	groupsX, groupsY := gammaGroupCounts(pushConstants[0], pushConstants[1])
	vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointCompute, context.GammaPipelineLayout, 0, 1,
		[]vk.DescriptorSet{context.GammaDescriptorSet}, 0, nil)
	vk.CmdPushConstants(cb, context.GammaPipelineLayout, vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		0, GAMMA_PUSH_CONSTANTS_SIZE, unsafe.Pointer(&pushConstants[0]))
	vk.CmdBindPipeline(cb, vk.PipelineBindPointCompute, context.GammaPipeline)
	vk.CmdDispatch(cb, groupsX, groupsY, 1)

	RecordImageLayoutTransition(cb, image, vk.ImageAspectColorBit,
		vk.AccessShaderWriteBit, vk.ImageLayoutGeneral,
		0, vk.ImageLayoutPresentSrc)
}
