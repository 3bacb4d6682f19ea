package vulkan

import (
	"fmt"
	"strings"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

// Surface formats a readback channel swap can be configured for.
var swizzleFormatNames = map[string]vk.Format{
	"B8G8R8A8_SRGB":    vk.FormatB8g8r8a8Srgb,
	"B8G8R8A8_UNORM":   vk.FormatB8g8r8a8Unorm,
	"B8G8R8A8_SNORM":   vk.FormatB8g8r8a8Snorm,
	"B8G8R8A8_USCALED": vk.FormatB8g8r8a8Uscaled,
	"B8G8R8A8_UINT":    vk.FormatB8g8r8a8Uint,
}

// parseSwizzleFormats resolves the configured format names. Names are
// matched without case and an optional VK_FORMAT_ prefix.
func parseSwizzleFormats(names []string) ([]vk.Format, error) {
	formats := make([]vk.Format, 0, len(names))
	for _, name := range names {
		key := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "VK_FORMAT_")
		format, ok := swizzleFormatNames[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown swizzle format %q", core.ErrInvalidInput, name)
		}
		formats = append(formats, format)
	}
	return formats, nil
}

func containsFormat(formats []vk.Format, format vk.Format) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}

// blitSupported reports whether the surface format can be blitted from with
// optimal tiling and R8G8B8A8_UNORM blitted to with linear tiling.
func blitSupported(surfaceOptimal, rgbaLinear vk.FormatFeatureFlags) bool {
	return vk.FormatFeatureFlagBits(surfaceOptimal)&vk.FormatFeatureBlitSrcBit != 0 &&
		vk.FormatFeatureFlagBits(rgbaLinear)&vk.FormatFeatureBlitDstBit != 0
}

/**
 * @brief Copies height rows of width RGBA pixels out of a mapped linear
 * image, turning them upside down: the top source row lands at the end of
 * dst.
 *
 * @param dst The output, width*height*4 bytes.
 * @param src The mapped image memory.
 * @param offset The offset of the first row in src.
 * @param rowPitch The distance between rows in src.
 */
func copyRowsFlipped(dst, src []byte, width, height int, offset, rowPitch uint64) {
	rowBytes := width * 4
	for y := 0; y < height; y++ {
		start := offset + uint64(y)*rowPitch
		out := (height - 1 - y) * rowBytes
		copy(dst[out:out+rowBytes], src[start:start+uint64(rowBytes)])
	}
}

// swapRedBlue exchanges the first and third byte of every 4 byte pixel.
func swapRedBlue(pixels []byte) {
	for i := 0; i+3 < len(pixels); i += 4 {
		pixels[i], pixels[i+2] = pixels[i+2], pixels[i]
	}
}

func formatFeatures(context *VulkanContext, format vk.Format) vk.FormatProperties {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(context.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	return properties
}

/**
 * @brief Reads the presentable image of the last frame back as bottom-up
 * RGBA rows.
 *
 * The device is drained first. The image is copied into a temporary linear
 * image with a blit when the formats allow it and with a raw copy otherwise;
 * a raw copy of a surface format listed in swizzle gets its red and blue
 * channels swapped. The temporary image is always destroyed before return.
 */
func readPixels(context *VulkanContext, swizzle []vk.Format) ([]byte, error) {
	device := context.Device.LogicalDevice
	width, height := context.FramebufferWidth, context.FramebufferHeight

	if err := vulkanError("vkDeviceWaitIdle", vk.DeviceWaitIdle(device)); err != nil {
		return nil, err
	}

	image, err := newImage(context, width, height, 1, vk.FormatR8g8b8a8Unorm, vk.ImageTilingLinear,
		vk.ImageUsageTransferDstBit, vk.ImageLayoutUndefined)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyImage(device, image, context.Allocator)

	memory, err := allocateDedicated(context, image, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer vk.FreeMemory(device, memory, context.Allocator)

	source := context.Swapchain.Images[context.ImageIndex]
	surfaceFormat := context.Device.SurfaceFormat.Format
	blit := blitSupported(
		formatFeatures(context, surfaceFormat).OptimalTilingFeatures,
		formatFeatures(context, vk.FormatR8g8b8a8Unorm).LinearTilingFeatures,
	)

	subresource := vk.ImageSubresourceLayers{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:       0,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	err = RecordAndRun(context, func(cb vk.CommandBuffer) {
		RecordImageLayoutTransition(cb, source, vk.ImageAspectColorBit,
			vk.AccessMemoryReadBit, vk.ImageLayoutPresentSrc,
			vk.AccessTransferReadBit, vk.ImageLayoutTransferSrcOptimal)
		RecordImageLayoutTransition(cb, image, vk.ImageAspectColorBit,
			0, vk.ImageLayoutUndefined,
			vk.AccessTransferWriteBit, vk.ImageLayoutGeneral)

		if blit {
			corners := [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(width), Y: int32(height), Z: 1}}
			region := vk.ImageBlit{
				SrcSubresource: subresource,
				SrcOffsets:     corners,
				DstSubresource: subresource,
				DstOffsets:     corners,
			}
			vk.CmdBlitImage(cb, source, vk.ImageLayoutTransferSrcOptimal, image, vk.ImageLayoutGeneral,
				1, []vk.ImageBlit{region}, vk.FilterNearest)
		} else {
			region := vk.ImageCopy{
				SrcSubresource: subresource,
				DstSubresource: subresource,
				Extent:         vk.Extent3D{Width: width, Height: height, Depth: 1},
			}
			vk.CmdCopyImage(cb, source, vk.ImageLayoutTransferSrcOptimal, image, vk.ImageLayoutGeneral,
				1, []vk.ImageCopy{region})
		}
	})
	if err != nil {
		return nil, err
	}

	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(device, image, &vk.ImageSubresource{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		MipLevel:   0,
		ArrayLayer: 0,
	}, &layout)
	layout.Deref()

	var data unsafe.Pointer
	if err := vulkanError("vkMapMemory", vk.MapMemory(device, memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data)); err != nil {
		return nil, err
	}
	defer vk.UnmapMemory(device, memory)

	mappedSize := uint64(layout.Offset) + uint64(layout.RowPitch)*uint64(height)
	pixels := make([]byte, int(width)*int(height)*4)
	copyRowsFlipped(pixels, unsafe.Slice((*byte)(data), mappedSize), int(width), int(height),
		uint64(layout.Offset), uint64(layout.RowPitch))

	if !blit && containsFormat(swizzle, surfaceFormat) {
		swapRedBlue(pixels)
	}
	return pixels, nil
}
