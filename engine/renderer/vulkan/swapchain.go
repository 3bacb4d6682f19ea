package vulkan

import (
	"fmt"
	stdmath "math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/math"
)

const (
	DEFAULT_SWAPCHAIN_WIDTH  uint32 = 640
	DEFAULT_SWAPCHAIN_HEIGHT uint32 = 480
)

// The gamma pass writes the presentable images directly and the readback
// path copies out of them.
const swapchainImageUsage = vk.ImageUsageStorageBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit

type VulkanSwapchain struct {
	Handle        vk.Swapchain
	SurfaceFormat vk.SurfaceFormat
	PresentMode   vk.PresentMode
	Extent        vk.Extent2D
	ImageCount    uint32
	Images        []vk.Image
	Views         []vk.ImageView
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

/**
 * @brief Picks the present mode and the matching image count.
 *
 * With vsync off MAILBOX wins, then IMMEDIATE. FIFO_RELAXED is preferred over
 * plain FIFO otherwise. MAILBOX asks for one image more than the minimum so
 * that acquiring never waits on presentation.
 *
 * @param vsync The vsync preference.
 * @param modes The present modes reported by the surface.
 * @param minCount The minimum image count of the surface.
 * @param maxCount The maximum image count of the surface, 0 when unbounded.
 * @return The present mode and the image count to request.
 */
func choosePresentMode(vsync bool, modes []vk.PresentMode, minCount, maxCount uint32) (vk.PresentMode, uint32) {
	supported := func(mode vk.PresentMode) bool {
		for _, m := range modes {
			if m == mode {
				return true
			}
		}
		return false
	}

	mode := vk.PresentModeFifo
	count := minCount
	switch {
	case !vsync && supported(vk.PresentModeMailbox):
		mode = vk.PresentModeMailbox
		count = minCount + 1
	case !vsync && supported(vk.PresentModeImmediate):
		mode = vk.PresentModeImmediate
	case supported(vk.PresentModeFifoRelaxed):
		mode = vk.PresentModeFifoRelaxed
	}

	if maxCount > 0 && count > maxCount {
		count = maxCount
	}
	if count > MAX_SWAPCHAIN_IMAGES {
		count = MAX_SWAPCHAIN_IMAGES
	}
	return mode, count
}

// chooseExtent returns current unless the surface lets the swapchain decide,
// in which case the default resolution is clamped into [min, max].
func chooseExtent(current, min, max vk.Extent2D) vk.Extent2D {
	if current.Width != stdmath.MaxUint32 {
		return current
	}
	return vk.Extent2D{
		Width:  math.Clamp(DEFAULT_SWAPCHAIN_WIDTH, min.Width, max.Width),
		Height: math.Clamp(DEFAULT_SWAPCHAIN_HEIGHT, min.Height, max.Height),
	}
}

// chooseSurfaceFormat falls back to R8G8B8A8_UNORM when the surface accepts
// any format, otherwise the first reported format is used.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, error) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, fmt.Errorf("%w: surface reports no formats", core.ErrSurfaceUsage)
	}
	if len(formats) == 1 && formats[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{
			Format:     vk.FormatR8g8b8a8Unorm,
			ColorSpace: vk.ColorSpaceSrgbNonlinear,
		}, nil
	}
	return formats[0], nil
}

func checkSurfaceUsage(supported vk.ImageUsageFlags) error {
	flags := vk.ImageUsageFlagBits(supported)
	if flags&vk.ImageUsageTransferSrcBit == 0 {
		return fmt.Errorf("%w: VK_IMAGE_USAGE_TRANSFER_SRC_BIT", core.ErrSurfaceUsage)
	}
	if flags&vk.ImageUsageTransferDstBit == 0 {
		return fmt.Errorf("%w: VK_IMAGE_USAGE_TRANSFER_DST_BIT", core.ErrSurfaceUsage)
	}
	return nil
}

func presentModeName(mode vk.PresentMode) string {
	switch mode {
	case vk.PresentModeImmediate:
		return "IMMEDIATE"
	case vk.PresentModeMailbox:
		return "MAILBOX"
	case vk.PresentModeFifo:
		return "FIFO"
	case vk.PresentModeFifoRelaxed:
		return "FIFO_RELAXED"
	}
	return fmt.Sprintf("present mode %d", mode)
}

// SwapchainCreate builds the presentable image chain for the context surface
// and a view for every image.
func SwapchainCreate(context *VulkanContext, vsync bool) (*VulkanSwapchain, error) {
	support, err := querySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	caps := support.Capabilities

	if err := checkSurfaceUsage(caps.SupportedUsageFlags); err != nil {
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		SurfaceFormat: context.Device.SurfaceFormat,
		Extent:        chooseExtent(caps.CurrentExtent, caps.MinImageExtent, caps.MaxImageExtent),
	}

	var imageCount uint32
	swapchain.PresentMode, imageCount = choosePresentMode(vsync, support.PresentModes, caps.MinImageCount, caps.MaxImageCount)
	core.LogInfo("Swapchain: %s, %d images, %dx%d", presentModeName(swapchain.PresentMode), imageCount, swapchain.Extent.Width, swapchain.Extent.Height)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.SurfaceFormat.Format,
		ImageColorSpace:  swapchain.SurfaceFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(swapchainImageUsage),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      swapchain.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, vulkanError("vkCreateSwapchainKHR", res)
	}
	swapchain.Handle = swapchainHandle

	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}
	if swapchain.ImageCount > MAX_SWAPCHAIN_IMAGES {
		swapchain.Destroy(context)
		return nil, fmt.Errorf("%w: %d swapchain images, at most %d supported", core.ErrCapacityExhausted, swapchain.ImageCount, MAX_SWAPCHAIN_IMAGES)
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		swapchain.Destroy(context)
		return nil, vulkanError("vkGetSwapchainImagesKHR", res)
	}

	swapchain.Views = make([]vk.ImageView, 0, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		view, err := createImageView(context, swapchain.Images[i], swapchain.SurfaceFormat.Format, vk.ImageAspectColorBit, 1)
		if err != nil {
			swapchain.Destroy(context)
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	core.LogInfo("Swapchain created successfully.")
	return swapchain, nil
}

// Destroy is only called during shutdown, after the device went idle.
func (vs *VulkanSwapchain) Destroy(context *VulkanContext) {
	for _, view := range vs.Views {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	vs.Views = nil
	vs.Images = nil
	vs.ImageCount = 0

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}

// AcquireNextImage blocks until a presentable image is available and signals
// semaphore once it may be written.
func (vs *VulkanSwapchain) AcquireNextImage(context *VulkanContext, semaphore vk.Semaphore) (uint32, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(context.Device.LogicalDevice, vs.Handle, vk.MaxUint64, semaphore, vk.NullFence, &imageIndex)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, vulkanError("vkAcquireNextImageKHR", res)
	}
	return imageIndex, nil
}

// Present queues imageIndex for display once renderingFinished is signaled.
func (vs *VulkanSwapchain) Present(context *VulkanContext, renderingFinished vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderingFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	res := vk.QueuePresent(context.Device.GraphicsQueue, &presentInfo)
	if res != vk.Success && res != vk.Suboptimal {
		return vulkanError("vkQueuePresentKHR", res)
	}
	return nil
}
