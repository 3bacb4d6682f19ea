package vulkan

import (
	"errors"
	stdmath "math"
	"runtime"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeFifoRelaxed, vk.PresentModeMailbox, vk.PresentModeImmediate}

	mode, count := choosePresentMode(false, all, 2, 3)
	assert.Equal(t, vk.PresentModeMailbox, mode)
	assert.Equal(t, uint32(3), count)

	// MAILBOX's extra image is clamped to the surface maximum.
	mode, count = choosePresentMode(false, []vk.PresentMode{vk.PresentModeMailbox}, 3, 3)
	assert.Equal(t, vk.PresentModeMailbox, mode)
	assert.Equal(t, uint32(3), count)

	// 0 means no maximum.
	_, count = choosePresentMode(false, []vk.PresentMode{vk.PresentModeMailbox}, 3, 0)
	assert.Equal(t, uint32(4), count)

	mode, count = choosePresentMode(false, []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, 2, 8)
	assert.Equal(t, vk.PresentModeImmediate, mode)
	assert.Equal(t, uint32(2), count)

	mode, _ = choosePresentMode(true, all, 2, 8)
	assert.Equal(t, vk.PresentModeFifoRelaxed, mode)

	mode, count = choosePresentMode(true, []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, 2, 8)
	assert.Equal(t, vk.PresentModeFifo, mode)
	assert.Equal(t, uint32(2), count)

	_, count = choosePresentMode(true, nil, 16, 0)
	assert.Equal(t, MAX_SWAPCHAIN_IMAGES, count)
}

func TestChooseExtent(t *testing.T) {
	current := vk.Extent2D{Width: 1280, Height: 720}
	assert.Equal(t, current, chooseExtent(current, vk.Extent2D{}, vk.Extent2D{}))

	undefined := vk.Extent2D{Width: stdmath.MaxUint32, Height: stdmath.MaxUint32}
	got := chooseExtent(undefined, vk.Extent2D{Width: 1, Height: 1}, vk.Extent2D{Width: 4096, Height: 4096})
	assert.Equal(t, vk.Extent2D{Width: DEFAULT_SWAPCHAIN_WIDTH, Height: DEFAULT_SWAPCHAIN_HEIGHT}, got)

	got = chooseExtent(undefined, vk.Extent2D{Width: 800, Height: 100}, vk.Extent2D{Width: 1024, Height: 400})
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 400}, got)
}

func TestChooseSurfaceFormat(t *testing.T) {
	_, err := chooseSurfaceFormat(nil)
	assert.ErrorIs(t, err, core.ErrSurfaceUsage)

	format, err := chooseSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined}})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, format.Format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, format.ColorSpace)

	reported := []vk.SurfaceFormat{
		{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	format, err = chooseSurfaceFormat(reported)
	require.NoError(t, err)
	assert.Equal(t, reported[0], format)
}

func TestCheckSurfaceUsage(t *testing.T) {
	both := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageColorAttachmentBit)
	assert.NoError(t, checkSurfaceUsage(both))

	err := checkSurfaceUsage(vk.ImageUsageFlags(vk.ImageUsageTransferDstBit))
	assert.ErrorIs(t, err, core.ErrSurfaceUsage)
	assert.Contains(t, err.Error(), "TRANSFER_SRC")

	err = checkSurfaceUsage(vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit))
	assert.ErrorIs(t, err, core.ErrSurfaceUsage)
	assert.Equal(t, core.SeverityFatal, severityOf(err))
}

func TestPresentModeName(t *testing.T) {
	assert.Equal(t, "MAILBOX", presentModeName(vk.PresentModeMailbox))
	assert.Equal(t, "FIFO_RELAXED", presentModeName(vk.PresentModeFifoRelaxed))
}

func TestClampDeviceIndex(t *testing.T) {
	index, clamped := clampDeviceIndex(1, 2)
	assert.Equal(t, 1, index)
	assert.False(t, clamped)

	index, clamped = clampDeviceIndex(2, 2)
	assert.Equal(t, 0, index)
	assert.True(t, clamped)

	index, clamped = clampDeviceIndex(-1, 3)
	assert.Equal(t, 0, index)
	assert.True(t, clamped)
}

func TestPickQueueFamily(t *testing.T) {
	families := []vk.QueueFamilyProperties{
		{QueueFlags: vk.QueueFlags(vk.QueueComputeBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit)},
		{QueueFlags: vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)},
	}

	index, err := pickQueueFamily(families, func(uint32) (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)

	index, err = pickQueueFamily(families, func(i uint32) (bool, error) { return i == 2, nil })
	require.NoError(t, err)
	assert.Equal(t, uint32(2), index)

	_, err = pickQueueFamily(families, func(i uint32) (bool, error) { return i == 0, nil })
	assert.ErrorIs(t, err, core.ErrNoQueueFamily)

	boom := errors.New("boom")
	_, err = pickQueueFamily(families, func(uint32) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestMissingFeatures(t *testing.T) {
	assert.Equal(t,
		[]string{"shaderClipDistance", "fillModeNonSolid", "shaderStorageImageWriteWithoutFormat"},
		missingFeatures(vk.PhysicalDeviceFeatures{}))

	assert.Empty(t, missingFeatures(vk.PhysicalDeviceFeatures{
		ShaderClipDistance:                   vk.True,
		FillModeNonSolid:                     vk.True,
		ShaderStorageImageWriteWithoutFormat: vk.True,
	}))
}

func TestChooseDepthFormat(t *testing.T) {
	attachment := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	supports := func(formats ...vk.Format) func(vk.Format) vk.FormatFeatureFlags {
		return func(format vk.Format) vk.FormatFeatureFlags {
			for _, f := range formats {
				if f == format {
					return attachment
				}
			}
			return 0
		}
	}

	format, stencil, err := chooseDepthFormat(0, supports(vk.FormatD32Sfloat))
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD32Sfloat, format)
	assert.Equal(t, 0, stencil)

	format, stencil, err = chooseDepthFormat(4, supports(vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint))
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD24UnormS8Uint, format)
	assert.Equal(t, 8, stencil)

	format, _, err = chooseDepthFormat(8, supports(vk.FormatD32SfloatS8Uint))
	require.NoError(t, err)
	assert.Equal(t, vk.FormatD32SfloatS8Uint, format)

	_, _, err = chooseDepthFormat(8, supports(vk.FormatD32Sfloat))
	assert.ErrorIs(t, err, core.ErrNoDepthFormat)
}

func TestMissingNames(t *testing.T) {
	assert.Empty(t, missingNames([]string{"a", "b"}, []string{"b", "a", "c"}))
	assert.Equal(t, []string{"x", "z"}, missingNames([]string{"x", "a", "z"}, []string{"a"}))
}

func TestInstanceExtensions(t *testing.T) {
	extensions := instanceExtensions([]string{vk.KhrSurfaceExtensionName, "VK_KHR_xcb_surface"}, false)
	require.GreaterOrEqual(t, len(extensions), 2)
	assert.Equal(t, vk.KhrSurfaceExtensionName, extensions[0])
	assert.Equal(t, "VK_KHR_xcb_surface", extensions[1])
	assert.NotContains(t, extensions[1:], vk.KhrSurfaceExtensionName)
	assert.NotContains(t, extensions, vk.ExtDebugReportExtensionName)

	debug := instanceExtensions(nil, true)
	assert.Contains(t, debug, vk.ExtDebugReportExtensionName)
	if runtime.GOOS == "darwin" {
		assert.Contains(t, debug, "VK_KHR_portability_enumeration")
	}
}

func TestMipRegions(t *testing.T) {
	regions, total := mipRegions(4, 2, true, 4)
	require.Len(t, regions, 3)
	assert.Equal(t, mipRegion{Level: 0, Width: 4, Height: 2, Offset: 0, Size: 32}, regions[0])
	assert.Equal(t, mipRegion{Level: 1, Width: 2, Height: 1, Offset: 32, Size: 8}, regions[1])
	assert.Equal(t, mipRegion{Level: 2, Width: 1, Height: 1, Offset: 40, Size: 4}, regions[2])
	assert.Equal(t, uint64(44), total)

	regions, total = mipRegions(64, 64, false, 4)
	require.Len(t, regions, 1)
	assert.Equal(t, uint64(64*64*4), total)

	regions, _ = mipRegions(1, 1, true, 4)
	assert.Len(t, regions, 1)
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", VulkanResultString(vk.Success))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", VulkanResultString(vk.ErrorDeviceLost))
	assert.Equal(t, "VkResult(-12345)", VulkanResultString(vk.Result(-12345)))

	assert.NoError(t, vulkanError("vkQueueSubmit", vk.Success))
	err := vulkanError("vkQueueSubmit", vk.ErrorOutOfDeviceMemory)
	assert.ErrorIs(t, err, core.ErrVulkan)
	assert.Contains(t, err.Error(), "vkQueueSubmit")
	assert.Contains(t, err.Error(), "VK_ERROR_OUT_OF_DEVICE_MEMORY")
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, core.SeverityDrop, severityOf(core.ErrCapacityExhausted))
	assert.Equal(t, core.SeverityDrop, severityOf(errNotRecording))
	assert.Equal(t, core.SeverityDrop, severityOf(errors.Join(errors.New("pipeline"), core.ErrUnsupportedState)))
	assert.Equal(t, core.SeverityFatal, severityOf(core.ErrFenceTimeout))
	assert.Equal(t, core.SeverityFatal, severityOf(errors.New("unknown")))
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "name\x00", VulkanSafeString("name"))
	assert.Equal(t, "name\x00", VulkanSafeString("name\x00"))
	assert.Equal(t, "\x00", VulkanSafeString(""))
}
