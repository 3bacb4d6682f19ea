package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/containers"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// samplerParams is the Vulkan translation of a SamplerDef.
type samplerParams struct {
	MagFilter   vk.Filter
	MinFilter   vk.Filter
	MipmapMode  vk.SamplerMipmapMode
	MaxLod      float32
	AddressMode vk.SamplerAddressMode
}

/**
 * @brief Translates GL filter names to Vulkan sampler parameters.
 * Non-mipmapped minification clamps the LOD at 0.25 so that only the base
 * level is ever sampled.
 */
func samplerParamsFor(def metadata.SamplerDef) (samplerParams, error) {
	p := samplerParams{AddressMode: vk.SamplerAddressModeClampToEdge}
	if def.Repeat {
		p.AddressMode = vk.SamplerAddressModeRepeat
	}

	switch def.MagFilter {
	case metadata.GL_NEAREST:
		p.MagFilter = vk.FilterNearest
	case metadata.GL_LINEAR:
		p.MagFilter = vk.FilterLinear
	default:
		return samplerParams{}, fmt.Errorf("mag filter 0x%x: %w", uint32(def.MagFilter), core.ErrUnsupportedState)
	}

	p.MaxLod = 12
	switch def.MinFilter {
	case metadata.GL_NEAREST:
		p.MinFilter, p.MipmapMode, p.MaxLod = vk.FilterNearest, vk.SamplerMipmapModeNearest, 0.25
	case metadata.GL_LINEAR:
		p.MinFilter, p.MipmapMode, p.MaxLod = vk.FilterLinear, vk.SamplerMipmapModeNearest, 0.25
	case metadata.GL_NEAREST_MIPMAP_NEAREST:
		p.MinFilter, p.MipmapMode = vk.FilterNearest, vk.SamplerMipmapModeNearest
	case metadata.GL_LINEAR_MIPMAP_NEAREST:
		p.MinFilter, p.MipmapMode = vk.FilterLinear, vk.SamplerMipmapModeNearest
	case metadata.GL_NEAREST_MIPMAP_LINEAR:
		p.MinFilter, p.MipmapMode = vk.FilterNearest, vk.SamplerMipmapModeLinear
	case metadata.GL_LINEAR_MIPMAP_LINEAR:
		p.MinFilter, p.MipmapMode = vk.FilterLinear, vk.SamplerMipmapModeLinear
	default:
		return samplerParams{}, fmt.Errorf("min filter 0x%x: %w", uint32(def.MinFilter), core.ErrUnsupportedState)
	}
	return p, nil
}

// imageSamplerDef is the sampler an image binding uses: the configured
// texture mode for mipmapped images, bilinear otherwise.
func imageSamplerDef(mipmapped, repeat bool, minFilter, magFilter metadata.GLFilter) metadata.SamplerDef {
	if !mipmapped {
		return metadata.SamplerDef{Repeat: repeat, MagFilter: metadata.GL_LINEAR, MinFilter: metadata.GL_LINEAR}
	}
	return metadata.SamplerDef{Repeat: repeat, MagFilter: magFilter, MinFilter: minFilter}
}

// SamplerCache memoizes samplers by descriptor. Samplers live until Release.
type SamplerCache struct {
	samplers *containers.Arena[metadata.SamplerDef, vk.Sampler]
	create   func(samplerParams) (vk.Sampler, error)
	destroy  func(vk.Sampler)
}

func newSamplerCache(create func(samplerParams) (vk.Sampler, error), destroy func(vk.Sampler)) *SamplerCache {
	return &SamplerCache{
		samplers: containers.NewArena[metadata.SamplerDef, vk.Sampler]("samplers", MAX_VK_SAMPLERS),
		create:   create,
		destroy:  destroy,
	}
}

// NewSamplerCache creates a cache building samplers on the context's device.
func NewSamplerCache(context *VulkanContext) *SamplerCache {
	return newSamplerCache(
		func(p samplerParams) (vk.Sampler, error) { return createSampler(context, p) },
		func(s vk.Sampler) { vk.DestroySampler(context.Device.LogicalDevice, s, context.Allocator) },
	)
}

/**
 * @brief Returns the sampler matching def, creating it on first use.
 * @return The sampler, or an error for unknown filters or a full cache.
 */
func (sc *SamplerCache) Find(def metadata.SamplerDef) (vk.Sampler, error) {
	return sc.samplers.FindOrCreate(def, func(def metadata.SamplerDef) (vk.Sampler, error) {
		params, err := samplerParamsFor(def)
		if err != nil {
			return nil, err
		}
		return sc.create(params)
	})
}

func (sc *SamplerCache) Len() int {
	return sc.samplers.Len()
}

func (sc *SamplerCache) Release() {
	sc.samplers.Each(func(_ containers.Handle, _ metadata.SamplerDef, s vk.Sampler) {
		sc.destroy(s)
	})
	sc.samplers.Reset()
}

func createSampler(context *VulkanContext, p samplerParams) (vk.Sampler, error) {
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               p.MagFilter,
		MinFilter:               p.MinFilter,
		MipmapMode:              p.MipmapMode,
		AddressModeU:            p.AddressMode,
		AddressModeV:            p.AddressMode,
		AddressModeW:            p.AddressMode,
		MipLodBias:              0,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  p.MaxLod,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var sampler vk.Sampler
	if err := vulkanError("vkCreateSampler", vk.CreateSampler(context.Device.LogicalDevice, &createInfo, context.Allocator, &sampler)); err != nil {
		return nil, err
	}
	return sampler, nil
}
