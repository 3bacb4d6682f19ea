package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

type shaderModuleID int

const (
	SHADER_SINGLE_TEXTURE_VERT shaderModuleID = iota
	SHADER_SINGLE_TEXTURE_CLIP_VERT
	SHADER_MULTI_TEXTURE_VERT
	SHADER_MULTI_TEXTURE_CLIP_VERT
	SHADER_SINGLE_TEXTURE_FRAG
	SHADER_MULTI_TEXTURE_MUL_FRAG
	SHADER_MULTI_TEXTURE_ADD_FRAG
	SHADER_GAMMA_COMP
	SHADER_MODULE_COUNT
)

// Asset names of the compiled shaders, indexed by shaderModuleID.
var shaderNames = [SHADER_MODULE_COUNT]string{
	"single_texture.vert",
	"single_texture_clipping_plane.vert",
	"multi_texture.vert",
	"multi_texture_clipping_plane.vert",
	"single_texture.frag",
	"multi_texture_mul.frag",
	"multi_texture_add.frag",
	"gamma.comp",
}

// ShaderSource provides SPIR-V bytecode by asset name.
type ShaderSource interface {
	LoadShader(name string) ([]uint32, error)
}

// ShaderModules are the modules every pipeline is built from. They are
// created once at initialization.
type ShaderModules struct {
	modules [SHADER_MODULE_COUNT]vk.ShaderModule
}

func NewShaderModules(context *VulkanContext, source ShaderSource) (*ShaderModules, error) {
	sm := &ShaderModules{}
	for id, name := range shaderNames {
		code, err := source.LoadShader(name)
		if err != nil {
			sm.Destroy(context)
			return nil, fmt.Errorf("shader %s: %w", name, err)
		}
		module, err := newShaderModule(context, code)
		if err != nil {
			sm.Destroy(context)
			return nil, fmt.Errorf("shader %s: %w", name, err)
		}
		sm.modules[id] = module
	}
	core.LogDebug("created %d shader modules", len(sm.modules))
	return sm, nil
}

func newShaderModule(context *VulkanContext, code []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var module vk.ShaderModule
	if err := vulkanError("vkCreateShaderModule", vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module)); err != nil {
		return nil, err
	}
	return module, nil
}

func (sm *ShaderModules) Get(id shaderModuleID) vk.ShaderModule {
	return sm.modules[id]
}

func (sm *ShaderModules) Destroy(context *VulkanContext) {
	for i, module := range sm.modules {
		if module != nil {
			vk.DestroyShaderModule(context.Device.LogicalDevice, module, context.Allocator)
			sm.modules[i] = nil
		}
	}
}

func shaderStage(stage vk.ShaderStageFlagBits, module vk.ShaderModule, specialization []vk.SpecializationInfo) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:               vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:               stage,
		Module:              module,
		PName:               VulkanSafeString("main"),
		PSpecializationInfo: specialization,
	}
}
