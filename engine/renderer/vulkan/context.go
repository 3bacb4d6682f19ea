package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/containers"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// VulkanContext owns every object created at initialization and destroyed at
// shutdown. Nothing else creates or destroys the device, the swapchain or
// the render pass.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	CommandPool   vk.CommandPool
	CommandBuffer *VulkanCommandBuffer

	ImageAcquired     vk.Semaphore
	RenderingFinished []vk.Semaphore
	FrameFence        *VulkanFence

	// Offscreen color target the scene renders into, read by the gamma pass.
	OutputImage *VulkanImage
	DepthImage  *VulkanImage

	MainRenderpass *VulkanRenderpass
	Framebuffer    *VulkanFramebuffer

	DescriptorPool      vk.DescriptorPool
	SetLayout           vk.DescriptorSetLayout
	PipelineLayout      vk.PipelineLayout
	GammaDescriptorPool vk.DescriptorPool
	GammaSetLayout      vk.DescriptorSetLayout
	GammaPipelineLayout vk.PipelineLayout
	GammaDescriptorSet  vk.DescriptorSet
	GammaPipeline       vk.Pipeline
	GammaBuffer         *VulkanBuffer

	Shaders  *ShaderModules
	Geometry *GeometryBuffers

	Standard StandardPipelines

	// Index of the presentable image acquired for the current frame.
	ImageIndex uint32

	Active bool
}

// FindMemoryIndex returns the first memory type allowed by typeFilter that
// has every bit of propertyFlags.
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlagBits) (uint32, error) {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (vk.MemoryPropertyFlagBits(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: type filter 0x%x, properties 0x%x", core.ErrNoMemoryType, typeFilter, uint32(propertyFlags))
}

// World holds the resources created on demand by the scene layer. It is
// zeroed at startup and by ReleaseResources, never partially.
type World struct {
	Chunks    *ChunkAllocator
	Images    *containers.Arena[vk.Image, *metadata.Image]
	Samplers  *SamplerCache
	Pipelines *PipelineCache
	Staging   *StagingBuffer

	// Descriptor sets of the images bound to texture units 0 and 1.
	CurrentDescriptorSets [2]vk.DescriptorSet
	// Set by every draw and cleared at frame start.
	DirtyDepthAttachment bool
}

func newWorld(chunks *ChunkAllocator, samplers *SamplerCache, pipelines *PipelineCache, staging *StagingBuffer) *World {
	return &World{
		Chunks:    chunks,
		Images:    containers.NewArena[vk.Image, *metadata.Image]("images", MAX_VK_IMAGES),
		Samplers:  samplers,
		Pipelines: pipelines,
		Staging:   staging,
	}
}
