package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	QueueFamilyIndex uint32
	GraphicsQueue    vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	SurfaceFormat vk.SurfaceFormat
	DepthFormat   vk.Format
	// 8 when the depth format carries a stencil aspect, 0 otherwise.
	StencilBits int

	Name string
}

type DeviceRequirements struct {
	// Index of the physical device to use.
	GPU int
	// Stencil bits requested by the configuration; 0 disables stencil.
	StencilBits int
}

var requiredDeviceExtensions = []string{vk.KhrSwapchainExtensionName}

// clampDeviceIndex returns requested when it names an existing device and 0
// otherwise. The boolean reports whether the index was replaced.
func clampDeviceIndex(requested, count int) (int, bool) {
	if requested < 0 || requested >= count {
		return 0, true
	}
	return requested, false
}

/**
 * @brief Finds the first queue family that supports graphics and can present
 * to the surface.
 *
 * @param families The queue family properties of the physical device.
 * @param presents Reports whether the family at the given index can present.
 * @return The family index or ErrNoQueueFamily.
 */
func pickQueueFamily(families []vk.QueueFamilyProperties, presents func(index uint32) (bool, error)) (uint32, error) {
	for i := range families {
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit == 0 {
			continue
		}
		ok, err := presents(uint32(i))
		if err != nil {
			return 0, err
		}
		if ok {
			return uint32(i), nil
		}
	}
	return 0, core.ErrNoQueueFamily
}

// missingFeatures lists the required features the device does not report.
func missingFeatures(features vk.PhysicalDeviceFeatures) []string {
	var missing []string
	if features.ShaderClipDistance != vk.True {
		missing = append(missing, "shaderClipDistance")
	}
	if features.FillModeNonSolid != vk.True {
		missing = append(missing, "fillModeNonSolid")
	}
	if features.ShaderStorageImageWriteWithoutFormat != vk.True {
		missing = append(missing, "shaderStorageImageWriteWithoutFormat")
	}
	return missing
}

/**
 * @brief Selects the depth attachment format.
 *
 * Formats with a stencil aspect are only considered when stencil bits are
 * requested, in which case the stencil size is forced to 8.
 *
 * @param stencilBits The requested stencil bits.
 * @param optimalFeatures Returns the optimal tiling features of a format.
 * @return The depth format and the effective stencil bits.
 */
func chooseDepthFormat(stencilBits int, optimalFeatures func(vk.Format) vk.FormatFeatureFlags) (vk.Format, int, error) {
	candidates := []vk.Format{vk.FormatX8D24UnormPack32, vk.FormatD32Sfloat}
	if stencilBits > 0 {
		candidates = []vk.Format{vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint}
		stencilBits = 8
	}
	flags := vk.FormatFeatureDepthStencilAttachmentBit
	for _, format := range candidates {
		if vk.FormatFeatureFlagBits(optimalFeatures(format))&flags == flags {
			return format, stencilBits, nil
		}
	}
	return vk.FormatUndefined, 0, core.ErrNoDepthFormat
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	var support VulkanSwapchainSupportInfo

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return support, vulkanError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", res)
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return support, vulkanError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
			return support, vulkanError("vkGetPhysicalDeviceSurfaceFormatsKHR", res)
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return support, vulkanError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
	}
	if presentModeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes); res != vk.Success {
			return support, vulkanError("vkGetPhysicalDeviceSurfacePresentModesKHR", res)
		}
	}
	return support, nil
}

func deviceExtensionNames(physicalDevice vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success {
		return nil, vulkanError("vkEnumerateDeviceExtensionProperties", res)
	}
	properties := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, properties); res != vk.Success {
			return nil, vulkanError("vkEnumerateDeviceExtensionProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, cString(properties[i].ExtensionName[:]))
	}
	return names, nil
}

func selectPhysicalDevice(context *VulkanContext, requested int, sink core.ErrorSink) (vk.PhysicalDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		return nil, vulkanError("vkEnumeratePhysicalDevices", res)
	}
	if physicalDeviceCount == 0 {
		return nil, core.ErrNoDevice
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		return nil, vulkanError("vkEnumeratePhysicalDevices", res)
	}

	index, clamped := clampDeviceIndex(requested, int(physicalDeviceCount))
	if clamped {
		sink.Warn("gpu %d is too large (%d devices available), selecting device 0", requested, physicalDeviceCount)
	}
	return physicalDevices[index], nil
}

func logDeviceInfo(device *VulkanDevice) {
	core.LogInfo("Selected device: '%s'.", device.Name)
	switch device.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version(device.Properties.DriverVersion).Major(),
		vk.Version(device.Properties.DriverVersion).Minor(),
		vk.Version(device.Properties.DriverVersion).Patch(),
	)
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(device.Properties.ApiVersion).Major(),
		vk.Version(device.Properties.ApiVersion).Minor(),
		vk.Version(device.Properties.ApiVersion).Patch(),
	)

	for j := 0; j < int(device.Memory.MemoryHeapCount); j++ {
		device.Memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(device.Memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(device.Memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}
}

/**
 * @brief Negotiates the physical device and creates the logical device, its
 * graphics queue and the command pool.
 *
 * The surface must exist already. On success context.Device and
 * context.CommandPool are populated.
 */
func DeviceCreate(context *VulkanContext, requirements DeviceRequirements, sink core.ErrorSink) error {
	physicalDevice, err := selectPhysicalDevice(context, requirements.GPU, sink)
	if err != nil {
		return err
	}

	device := &VulkanDevice{PhysicalDevice: physicalDevice}
	vk.GetPhysicalDeviceProperties(physicalDevice, &device.Properties)
	device.Properties.Deref()
	vk.GetPhysicalDeviceFeatures(physicalDevice, &device.Features)
	device.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &device.Memory)
	device.Memory.Deref()
	device.Name = cString(device.Properties.DeviceName[:])
	logDeviceInfo(device)

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, queueFamilies)
	for i := range queueFamilies {
		queueFamilies[i].Deref()
	}
	device.QueueFamilyIndex, err = pickQueueFamily(queueFamilies, func(index uint32) (bool, error) {
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, index, context.Surface, &supportsPresent); res != vk.Success {
			return false, vulkanError("vkGetPhysicalDeviceSurfaceSupportKHR", res)
		}
		return supportsPresent == vk.True, nil
	})
	if err != nil {
		return err
	}
	core.LogDebug("Graphics Family Index: %d", device.QueueFamilyIndex)

	support, err := querySwapchainSupport(physicalDevice, context.Surface)
	if err != nil {
		return err
	}
	if device.SurfaceFormat, err = chooseSurfaceFormat(support.Formats); err != nil {
		return err
	}

	available, err := deviceExtensionNames(physicalDevice)
	if err != nil {
		return err
	}
	if missing := missingNames(requiredDeviceExtensions, available); len(missing) > 0 {
		return fmt.Errorf("%w: %v", core.ErrMissingExtension, missing)
	}
	extensionNames := append([]string{}, requiredDeviceExtensions...)
	if len(missingNames([]string{"VK_KHR_portability_subset"}, available)) == 0 {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	if missing := missingFeatures(device.Features); len(missing) > 0 {
		return fmt.Errorf("%w: %v", core.ErrMissingFeature, missing)
	}

	device.DepthFormat, device.StencilBits, err = chooseDepthFormat(requirements.StencilBits, func(format vk.Format) vk.FormatFeatureFlags {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(physicalDevice, format, &properties)
		properties.Deref()
		return properties.OptimalTilingFeatures
	})
	if err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")
	deviceFeatures := vk.PhysicalDeviceFeatures{
		ShaderClipDistance:                   vk.True,
		FillModeNonSolid:                     vk.True,
		ShaderStorageImageWriteWithoutFormat: vk.True,
	}
	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: device.QueueFamilyIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(physicalDevice, &deviceCreateInfo, context.Allocator, &logicalDevice); res != vk.Success {
		return vulkanError("vkCreateDevice", res)
	}
	device.LogicalDevice = logicalDevice
	context.Device = device
	core.LogInfo("Logical device created.")

	var queue vk.Queue
	vk.GetDeviceQueue(device.LogicalDevice, device.QueueFamilyIndex, 0, &queue)
	device.GraphicsQueue = queue

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: device.QueueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit | vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(device.LogicalDevice, &poolCreateInfo, context.Allocator, &pool); res != vk.Success {
		return vulkanError("vkCreateCommandPool", res)
	}
	context.CommandPool = pool
	core.LogInfo("Graphics command pool created.")

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	if context.Device == nil {
		return
	}
	context.Device.GraphicsQueue = nil

	core.LogInfo("Destroying command pools...")
	if context.CommandPool != nil {
		vk.DestroyCommandPool(context.Device.LogicalDevice, context.CommandPool, context.Allocator)
		context.CommandPool = nil
	}

	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	context.Device.PhysicalDevice = nil
	context.Device = nil
}
