package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// VulkanImage is an attachment image with memory of its own. Sampled images
// live in chunk memory and are described by metadata.Image instead.
type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	Format vk.Format
}

// mipRegion is one mip level inside a packed upload.
type mipRegion struct {
	Level  uint32
	Width  uint32
	Height uint32
	Offset uint64
	Size   uint64
}

/**
 * @brief Lays out the mip chain of a packed pixel upload.
 *
 * Each level halves both dimensions, never below 1, and follows the previous
 * one without padding. Without mipmapping only the base level is produced.
 *
 * @return The regions and the total byte size.
 */
func mipRegions(width, height uint32, mipmap bool, bytesPerPixel int) ([]mipRegion, uint64) {
	var regions []mipRegion
	var offset uint64
	w, h := width, height
	for level := uint32(0); ; level++ {
		size := uint64(w) * uint64(h) * uint64(bytesPerPixel)
		regions = append(regions, mipRegion{Level: level, Width: w, Height: h, Offset: offset, Size: size})
		offset += size
		if !mipmap || (w == 1 && h == 1) {
			break
		}
		w = max(w/2, 1)
		h = max(h/2, 1)
	}
	return regions, offset
}

func createImageView(context *VulkanContext, image vk.Image, format vk.Format, aspect vk.ImageAspectFlagBits, mipLevels uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := vulkanError("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

func newImage(context *VulkanContext, width, height, mipLevels uint32, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlagBits, initialLayout vk.ImageLayout) (vk.Image, error) {
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        tiling,
		Usage:         vk.ImageUsageFlags(usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: initialLayout,
	}
	var image vk.Image
	if err := vulkanError("vkCreateImage", vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &image)); err != nil {
		return nil, err
	}
	return image, nil
}

func imageMemoryRequirements(context *VulkanContext, image vk.Image) MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image, &requirements)
	requirements.Deref()
	return MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}
}

// allocateDedicated gives image an allocation of its own with the given
// memory properties.
func allocateDedicated(context *VulkanContext, image vk.Image, properties vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	req := imageMemoryRequirements(context, image)
	memoryIndex, err := context.FindMemoryIndex(req.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}
	memory, err := deviceMemory{context}.AllocateMemory(req.Size, memoryIndex)
	if err != nil {
		return nil, err
	}
	if err := vulkanError("vkBindImageMemory", vk.BindImageMemory(context.Device.LogicalDevice, image, memory, 0)); err != nil {
		vk.FreeMemory(context.Device.LogicalDevice, memory, context.Allocator)
		return nil, err
	}
	return memory, nil
}

/**
 * @brief Creates an optimal tiling attachment image with dedicated device
 * local memory and a view covering it.
 */
func AttachmentImageCreate(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlagBits, aspect vk.ImageAspectFlagBits) (*VulkanImage, error) {
	handle, err := newImage(context, width, height, 1, format, vk.ImageTilingOptimal, usage, vk.ImageLayoutUndefined)
	if err != nil {
		return nil, err
	}
	image := &VulkanImage{Handle: handle, Width: width, Height: height, Format: format}
	if image.Memory, err = allocateDedicated(context, handle, vk.MemoryPropertyDeviceLocalBit); err != nil {
		image.Destroy(context)
		return nil, err
	}
	if image.View, err = createImageView(context, handle, format, aspect, 1); err != nil {
		image.Destroy(context)
		return nil, err
	}
	return image, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
}

/**
 * @brief Creates a sampled image in chunk memory, its view and descriptor set.
 *
 * The descriptor set is written with the sampler picked for (mipmapped,
 * repeat) and becomes the current set of texture unit tmu.
 */
func createSampledImage(context *VulkanContext, world *World, width, height, mipLevels uint32, format vk.Format, repeat bool, sampler vk.Sampler, tmu int) (*metadata.Image, error) {
	if world.Images.Full() {
		return nil, fmt.Errorf("images: %w (%d entries)", core.ErrCapacityExhausted, world.Images.Cap())
	}

	handle, err := newImage(context, width, height, mipLevels, format, vk.ImageTilingOptimal,
		vk.ImageUsageSampledBit|vk.ImageUsageTransferDstBit, vk.ImageLayoutUndefined)
	if err != nil {
		return nil, err
	}
	image := &metadata.Image{
		Width:     width,
		Height:    height,
		MipLevels: mipLevels,
		Repeat:    repeat,
		Format:    format,
		Handle:    handle,
	}

	allocation, err := world.Chunks.Allocate(imageMemoryRequirements(context, handle))
	if err != nil {
		destroySampledImage(context, image)
		return nil, err
	}
	if err := vulkanError("vkBindImageMemory", vk.BindImageMemory(context.Device.LogicalDevice, handle, allocation.Memory, vk.DeviceSize(allocation.Offset))); err != nil {
		destroySampledImage(context, image)
		return nil, err
	}

	if image.View, err = createImageView(context, handle, format, vk.ImageAspectColorBit, mipLevels); err != nil {
		destroySampledImage(context, image)
		return nil, err
	}
	if image.DescriptorSet, err = allocateDescriptorSet(context, context.DescriptorPool, context.SetLayout); err != nil {
		destroySampledImage(context, image)
		return nil, err
	}
	writeImageDescriptor(context, image.DescriptorSet, image.View, sampler)

	if _, err := world.Images.Append(handle, image); err != nil {
		destroySampledImage(context, image)
		return nil, err
	}
	world.CurrentDescriptorSets[tmu] = image.DescriptorSet
	return image, nil
}

// destroySampledImage releases the image and its view. The descriptor set
// goes back with the pool reset and the memory with the chunks.
func destroySampledImage(context *VulkanContext, image *metadata.Image) {
	if image.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, image.View, context.Allocator)
		image.View = nil
	}
	if image.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, image.Handle, context.Allocator)
		image.Handle = nil
	}
}

/**
 * @brief Copies packed pixels, base level first, into every mip level of
 * image through the staging buffer and leaves it shader readable.
 */
func uploadImageData(context *VulkanContext, staging *StagingBuffer, image vk.Image, width, height uint32, mipmap bool, pixels []byte, bytesPerPixel int) error {
	regions, total := mipRegions(width, height, mipmap, bytesPerPixel)
	if uint64(len(pixels)) < total {
		return fmt.Errorf("%w: %d bytes of pixels for a %dx%d upload of %d bytes", core.ErrInvalidInput, len(pixels), width, height, total)
	}
	if err := staging.EnsureCapacity(total); err != nil {
		return err
	}
	if err := staging.Upload(pixels[:total]); err != nil {
		return err
	}

	copies := make([]vk.BufferImageCopy, 0, len(regions))
	for _, region := range regions {
		copies = append(copies, vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(region.Offset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       region.Level,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: region.Width, Height: region.Height, Depth: 1},
		})
	}

	return RecordAndRun(context, func(cb vk.CommandBuffer) {
		RecordBufferMemoryBarrier(cb, staging.Handle(),
			vk.PipelineStageHostBit, vk.PipelineStageTransferBit,
			vk.AccessHostWriteBit, vk.AccessTransferReadBit)
		RecordImageLayoutTransition(cb, image, vk.ImageAspectColorBit,
			0, vk.ImageLayoutUndefined,
			vk.AccessTransferWriteBit, vk.ImageLayoutTransferDstOptimal)
		vk.CmdCopyBufferToImage(cb, staging.Handle(), image, vk.ImageLayoutTransferDstOptimal, uint32(len(copies)), copies)
		RecordImageLayoutTransition(cb, image, vk.ImageAspectColorBit,
			vk.AccessTransferWriteBit, vk.ImageLayoutTransferDstOptimal,
			vk.AccessShaderReadBit, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}
