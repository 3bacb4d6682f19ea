package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Binding slots of the gamma compute pass.
const (
	GAMMA_BINDING_SOURCE uint32 = iota
	GAMMA_BINDING_TARGET
	GAMMA_BINDING_TABLE
)

/**
 * @brief Creates the descriptor set layouts, pools and pipeline layouts
 * shared by every graphics pipeline and by the gamma compute pass.
 */
func createDescriptorObjects(context *VulkanContext) error {
	device := context.Device.LogicalDevice

	// One combined image sampler per image resource.
	imageBindings := []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
	}}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(imageBindings)),
		PBindings:    imageBindings,
	}
	if err := vulkanError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &context.SetLayout)); err != nil {
		return err
	}

	gammaBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         GAMMA_BINDING_SOURCE,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		},
		{
			Binding:         GAMMA_BINDING_TARGET,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		},
		{
			Binding:         GAMMA_BINDING_TABLE,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageComputeBit),
		},
	}
	gammaLayoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(gammaBindings)),
		PBindings:    gammaBindings,
	}
	if err := vulkanError("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &gammaLayoutInfo, context.Allocator, &context.GammaSetLayout)); err != nil {
		return err
	}

	imagePoolSizes := []vk.DescriptorPoolSize{{
		Type:            vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: MAX_DRAWIMAGES,
	}}
	imagePoolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       MAX_DRAWIMAGES,
		PoolSizeCount: uint32(len(imagePoolSizes)),
		PPoolSizes:    imagePoolSizes,
	}
	if err := vulkanError("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &imagePoolInfo, context.Allocator, &context.DescriptorPool)); err != nil {
		return err
	}

	gammaPoolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: 1},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 1},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1},
	}
	gammaPoolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(gammaPoolSizes)),
		PPoolSizes:    gammaPoolSizes,
	}
	if err := vulkanError("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &gammaPoolInfo, context.Allocator, &context.GammaDescriptorPool)); err != nil {
		return err
	}

	// Two texture units, both sampled through the image layout.
	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         2,
		PSetLayouts:            []vk.DescriptorSetLayout{context.SetLayout, context.SetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
			Offset:     0,
			Size:       PUSH_CONSTANTS_SIZE,
		}},
	}
	if err := vulkanError("vkCreatePipelineLayout", vk.CreatePipelineLayout(device, &pipelineLayoutInfo, context.Allocator, &context.PipelineLayout)); err != nil {
		return err
	}

	gammaPipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{context.GammaSetLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges: []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageComputeBit),
			Offset:     0,
			Size:       GAMMA_PUSH_CONSTANTS_SIZE,
		}},
	}
	if err := vulkanError("vkCreatePipelineLayout", vk.CreatePipelineLayout(device, &gammaPipelineLayoutInfo, context.Allocator, &context.GammaPipelineLayout)); err != nil {
		return err
	}

	set, err := allocateDescriptorSet(context, context.GammaDescriptorPool, context.GammaSetLayout)
	if err != nil {
		return err
	}
	context.GammaDescriptorSet = set
	return nil
}

func destroyDescriptorObjects(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if context.GammaPipelineLayout != nil {
		vk.DestroyPipelineLayout(device, context.GammaPipelineLayout, context.Allocator)
		context.GammaPipelineLayout = nil
	}
	if context.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, context.PipelineLayout, context.Allocator)
		context.PipelineLayout = nil
	}
	// Sets are freed with their pools.
	if context.GammaDescriptorPool != nil {
		vk.DestroyDescriptorPool(device, context.GammaDescriptorPool, context.Allocator)
		context.GammaDescriptorPool = nil
		context.GammaDescriptorSet = nil
	}
	if context.DescriptorPool != nil {
		vk.DestroyDescriptorPool(device, context.DescriptorPool, context.Allocator)
		context.DescriptorPool = nil
	}
	if context.GammaSetLayout != nil {
		vk.DestroyDescriptorSetLayout(device, context.GammaSetLayout, context.Allocator)
		context.GammaSetLayout = nil
	}
	if context.SetLayout != nil {
		vk.DestroyDescriptorSetLayout(device, context.SetLayout, context.Allocator)
		context.SetLayout = nil
	}
}

func allocateDescriptorSet(context *VulkanContext, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if err := vulkanError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &set)); err != nil {
		return nil, err
	}
	return set, nil
}

// writeImageDescriptor points the image's combined sampler at view and sampler.
func writeImageDescriptor(context *VulkanContext, set vk.DescriptorSet, view vk.ImageView, sampler vk.Sampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      0,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     sampler,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// writeGammaSource binds the offscreen color image and the gamma table.
func writeGammaSource(context *VulkanContext) {
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          context.GammaDescriptorSet,
			DstBinding:      GAMMA_BINDING_SOURCE,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo: []vk.DescriptorImageInfo{{
				ImageView:   context.OutputImage.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          context.GammaDescriptorSet,
			DstBinding:      GAMMA_BINDING_TABLE,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: context.GammaBuffer.Handle,
				Offset: 0,
				Range:  vk.DeviceSize(vk.WholeSize),
			}},
		},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}

// writeGammaTarget binds the presentable image acquired for this frame.
func writeGammaTarget(context *VulkanContext, view vk.ImageView) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          context.GammaDescriptorSet,
		DstBinding:      GAMMA_BINDING_TARGET,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutGeneral,
		}},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
