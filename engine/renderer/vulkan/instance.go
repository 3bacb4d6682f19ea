package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// missingNames returns the entries of required that are not in available,
// in the order they were required.
func missingNames(required, available []string) []string {
	present := make(map[string]struct{}, len(available))
	for _, name := range available {
		present[name] = struct{}{}
	}
	var missing []string
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// instanceExtensions lists the instance extensions for the given window
// extensions. VK_KHR_surface is always first.
func instanceExtensions(windowExtensions []string, debug bool) []string {
	extensions := []string{vk.KhrSurfaceExtensionName}
	for _, name := range windowExtensions {
		if name != vk.KhrSurfaceExtensionName {
			extensions = append(extensions, name)
		}
	}
	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
	}
	return extensions
}

func availableInstanceExtensions() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceExtensionProperties("", &count, nil); res != vk.Success {
		return nil, vulkanError("vkEnumerateInstanceExtensionProperties", res)
	}
	properties := make([]vk.ExtensionProperties, count)
	if count > 0 {
		if res := vk.EnumerateInstanceExtensionProperties("", &count, properties); res != vk.Success {
			return nil, vulkanError("vkEnumerateInstanceExtensionProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range properties {
		properties[i].Deref()
		names = append(names, cString(properties[i].ExtensionName[:]))
	}
	return names, nil
}

func availableLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return nil, vulkanError("vkEnumerateInstanceLayerProperties", res)
	}
	layers := make([]vk.LayerProperties, count)
	if count > 0 {
		if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
			return nil, vulkanError("vkEnumerateInstanceLayerProperties", res)
		}
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, cString(layers[i].LayerName[:]))
	}
	return names, nil
}

/**
 * @brief Loads the Vulkan entry points and creates the instance.
 *
 * With debug on the validation layer is enabled and a debug report callback
 * routes validation messages into the engine logger.
 */
func InstanceCreate(context *VulkanContext, appName string, window Window, debug bool) error {
	procAddr := window.InstanceProcAddress()
	if procAddr == nil {
		return fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrVulkan)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return fmt.Errorf("%w: %s", core.ErrVulkan, err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Tremor"),
	}

	requiredExtensions := instanceExtensions(window.RequiredInstanceExtensions(), debug)
	available, err := availableInstanceExtensions()
	if err != nil {
		return err
	}
	if missing := missingNames(requiredExtensions, available); len(missing) > 0 {
		return fmt.Errorf("%w: %v", core.ErrMissingExtension, missing)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(requiredExtensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(requiredExtensions),
	}
	if runtime.GOOS == "darwin" {
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		available, err := availableLayers()
		if err != nil {
			return err
		}
		layers = []string{validationLayerName}
		if missing := missingNames(layers, available); len(missing) > 0 {
			return fmt.Errorf("%w: validation layer %v", core.ErrMissingExtension, missing)
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, context.Allocator, &instance); res != vk.Success {
		return vulkanError("vkCreateInstance", res)
	}
	context.Instance = instance
	if err := vk.InitInstance(context.Instance); err != nil {
		return fmt.Errorf("%w: %s", core.ErrVulkan, err)
	}
	core.LogInfo("Vulkan Instance created.")

	if debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			return vulkanError("vkCreateDebugReportCallbackEXT", res)
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func InstanceDestroy(context *VulkanContext) {
	if context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(context.Instance, context.debugMessenger, context.Allocator)
		context.debugMessenger = vk.NullDebugReportCallback
	}
	if context.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(context.Instance, context.Surface, context.Allocator)
		context.Surface = vk.NullSurface
	}
	if context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
