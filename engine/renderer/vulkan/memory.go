package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/math"
)

// MemoryRequirements mirrors the fields of vk.MemoryRequirements the
// allocator consumes.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// chunkDevice is the slice of the device the chunk allocator talks to.
type chunkDevice interface {
	FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlagBits) (uint32, error)
	AllocateMemory(size uint64, memoryTypeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(memory vk.DeviceMemory)
}

// MemoryChunk is one fixed-size device allocation that image resources are
// sub-allocated from with a bump pointer.
type MemoryChunk struct {
	Memory          vk.DeviceMemory
	MemoryTypeIndex uint32
	Used            uint64
}

// Allocation is where an image was placed.
type Allocation struct {
	Memory vk.DeviceMemory
	Offset uint64
	Chunk  int
}

// ChunkAllocator packs image memory into at most MAX_IMAGE_CHUNKS chunks of
// IMAGE_CHUNK_SIZE bytes. Nothing is ever freed individually; Release drops
// every chunk at once.
type ChunkAllocator struct {
	device    chunkDevice
	chunkSize uint64
	maxChunks int
	chunks    []MemoryChunk
}

func NewChunkAllocator(device chunkDevice) *ChunkAllocator {
	return &ChunkAllocator{
		device:    device,
		chunkSize: IMAGE_CHUNK_SIZE,
		maxChunks: MAX_IMAGE_CHUNKS,
		chunks:    make([]MemoryChunk, 0, MAX_IMAGE_CHUNKS),
	}
}

/**
 * @brief Places a region satisfying req in the first chunk with room for it
 * at the aligned bump offset, allocating a new device-local chunk if none fits.
 * @param req The memory requirements reported for the image.
 * @return The placement, or an error for oversized requests, an exhausted
 * chunk table or a failed device allocation.
 */
func (a *ChunkAllocator) Allocate(req MemoryRequirements) (Allocation, error) {
	if req.Size > a.chunkSize {
		return Allocation{}, fmt.Errorf("image needs %d bytes, chunk size is %d: %w", req.Size, a.chunkSize, core.ErrCapacityExhausted)
	}

	memoryTypeIndex, err := a.device.FindMemoryIndex(req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return Allocation{}, err
	}

	for i := range a.chunks {
		chunk := &a.chunks[i]
		if chunk.MemoryTypeIndex != memoryTypeIndex {
			continue
		}
		offset := math.AlignUp(chunk.Used, req.Alignment)
		if offset+req.Size <= a.chunkSize {
			chunk.Used = offset + req.Size
			return Allocation{Memory: chunk.Memory, Offset: offset, Chunk: i}, nil
		}
	}

	if len(a.chunks) >= a.maxChunks {
		return Allocation{}, fmt.Errorf("image chunks: %w (%d chunks)", core.ErrCapacityExhausted, a.maxChunks)
	}
	memory, err := a.device.AllocateMemory(a.chunkSize, memoryTypeIndex)
	if err != nil {
		return Allocation{}, err
	}
	a.chunks = append(a.chunks, MemoryChunk{
		Memory:          memory,
		MemoryTypeIndex: memoryTypeIndex,
		Used:            req.Size,
	})
	core.LogDebug("allocated image memory chunk %d (%d bytes)", len(a.chunks)-1, a.chunkSize)
	return Allocation{Memory: memory, Offset: 0, Chunk: len(a.chunks) - 1}, nil
}

func (a *ChunkAllocator) Chunks() []MemoryChunk {
	return a.chunks
}

// Release frees every chunk. Images placed in them must already be destroyed.
func (a *ChunkAllocator) Release() {
	for _, chunk := range a.chunks {
		a.device.FreeMemory(chunk.Memory)
	}
	a.chunks = a.chunks[:0]
}

// deviceMemory adapts the device to chunkDevice and hostBufferDevice.
type deviceMemory struct {
	context *VulkanContext
}

func (d deviceMemory) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlagBits) (uint32, error) {
	return d.context.FindMemoryIndex(typeFilter, propertyFlags)
}

func (d deviceMemory) AllocateMemory(size uint64, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryTypeIndex,
	}
	var memory vk.DeviceMemory
	if err := vulkanError("vkAllocateMemory", vk.AllocateMemory(d.context.Device.LogicalDevice, &allocInfo, d.context.Allocator, &memory)); err != nil {
		return nil, err
	}
	return memory, nil
}

func (d deviceMemory) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.context.Device.LogicalDevice, memory, d.context.Allocator)
}

func (d deviceMemory) CreateHostBuffer(size uint64) (HostBuffer, error) {
	buffer, err := NewVulkanBuffer(d.context, size, vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return HostBuffer{}, err
	}
	mapped, err := buffer.Map()
	if err != nil {
		buffer.Destroy(d.context)
		return HostBuffer{}, err
	}
	return HostBuffer{Buffer: buffer.Handle, Mapped: mapped, owner: buffer}, nil
}

func (d deviceMemory) DestroyHostBuffer(b HostBuffer) {
	if b.owner != nil {
		b.owner.Destroy(d.context)
	}
}
