package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// VulkanBuffer is a buffer bound to its own dedicated allocation.
type VulkanBuffer struct {
	Handle     vk.Buffer
	Memory     vk.DeviceMemory
	Size       uint64
	Usage      vk.BufferUsageFlagBits
	mappedData unsafe.Pointer
	context    *VulkanContext
}

func NewVulkanBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlagBits, properties vk.MemoryPropertyFlagBits) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		Size:  size,
		Usage: usage,
	}
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := vulkanError("vkCreateBuffer", vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &buffer.Handle)); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &requirements)
	requirements.Deref()

	memoryIndex, err := context.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, fmt.Errorf("buffer of %d bytes: %w", size, err)
	}
	memory, err := deviceMemory{context}.AllocateMemory(uint64(requirements.Size), memoryIndex)
	if err != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, buffer.Handle, context.Allocator)
		return nil, err
	}
	buffer.Memory = memory
	if err := vulkanError("vkBindBufferMemory", vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0)); err != nil {
		buffer.Destroy(context)
		return nil, err
	}
	buffer.context = context
	return buffer, nil
}

// Map maps the whole allocation and returns it as a byte slice. The mapping
// lives until Destroy.
func (vb *VulkanBuffer) Map() ([]byte, error) {
	if vb.mappedData == nil {
		var data unsafe.Pointer
		if err := vulkanError("vkMapMemory", vk.MapMemory(vb.context.Device.LogicalDevice, vb.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data)); err != nil {
			return nil, err
		}
		vb.mappedData = data
	}
	return unsafe.Slice((*byte)(vb.mappedData), vb.Size), nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.mappedData != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.mappedData = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
}
