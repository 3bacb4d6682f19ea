package vulkan

import (
	"fmt"
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/config"
	"github.com/spaghettifunk/tremor/engine/containers"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// Window is the windowing collaborator: it loads the Vulkan loader, names
// the surface extensions it needs and creates the drawable surface.
type Window interface {
	InstanceProcAddress() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (uint32, uint32)
}

type VulkanRenderer struct {
	appName     string
	FrameNumber uint64
	context     *VulkanContext
	world       *World

	cfg  config.Renderer
	sink core.ErrorSink

	minFilter metadata.GLFilter
	magFilter metadata.GLFilter
	swizzle   []vk.Format

	state      metadata.DrawState
	frameState FrameState
	frames     frameDevice
	// Texture unit CreateImage binds new images to.
	currentTMU int
}

func New(appName string, cfg config.Renderer, sink core.ErrorSink) *VulkanRenderer {
	if sink == nil {
		sink = core.LogSink{}
	}
	return &VulkanRenderer{
		appName: appName,
		context: &VulkanContext{
			Allocator: nil,
		},
		cfg:  cfg,
		sink: sink,
	}
}

// fail hands err to the sink with the severity its kind calls for.
func (vr *VulkanRenderer) fail(op string, err error) {
	vr.sink.Error(severityOf(err), "%s: %s", op, err)
}

/**
 * @brief Creates the device context: instance, surface, device, swapchain,
 * synchronization objects, attachments, render pass, descriptor objects,
 * geometry and gamma buffers, shader modules and the pipelines built at
 * startup. Failures are fatal and reported to the sink.
 */
func (vr *VulkanRenderer) Initialize(window Window, shaders ShaderSource) error {
	if err := vr.initialize(window, shaders); err != nil {
		vr.sink.Error(core.SeverityFatal, "Initialize: %s", err)
		return err
	}
	return nil
}

func (vr *VulkanRenderer) initialize(window Window, shaders ShaderSource) error {
	context := vr.context

	minFilter, magFilter, ok := metadata.TextureModeFilters(vr.cfg.TextureMode)
	if !ok {
		return fmt.Errorf("%w: texture mode %q", core.ErrInvalidInput, vr.cfg.TextureMode)
	}
	vr.minFilter, vr.magFilter = minFilter, magFilter
	swizzle, err := parseSwizzleFormats(vr.cfg.SwizzleFormats)
	if err != nil {
		return err
	}
	vr.swizzle = swizzle

	if err := InstanceCreate(context, vr.appName, window, vr.cfg.Debug); err != nil {
		return err
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateSurface(context.Instance)
	if err != nil {
		return fmt.Errorf("failed to create window surface: %w", err)
	}
	context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(context, DeviceRequirements{GPU: vr.cfg.GPU, StencilBits: vr.cfg.StencilBits}, vr.sink); err != nil {
		return err
	}

	swapchain, err := SwapchainCreate(context, vr.cfg.VSync)
	if err != nil {
		return err
	}
	context.Swapchain = swapchain
	context.FramebufferWidth = swapchain.Extent.Width
	context.FramebufferHeight = swapchain.Extent.Height

	if err := vr.createSyncObjects(); err != nil {
		return err
	}

	if context.CommandBuffer, err = NewVulkanCommandBuffer(context, context.CommandPool); err != nil {
		return err
	}

	if err := vr.createAttachments(); err != nil {
		return err
	}

	if context.MainRenderpass, err = RenderpassCreate(context, context.FramebufferWidth, context.FramebufferHeight); err != nil {
		return err
	}
	context.Framebuffer, err = FramebufferCreate(context, context.MainRenderpass,
		context.FramebufferWidth, context.FramebufferHeight,
		[]vk.ImageView{context.OutputImage.View, context.DepthImage.View})
	if err != nil {
		return err
	}

	if err := createDescriptorObjects(context); err != nil {
		return err
	}

	if context.Geometry, err = NewGeometryBuffers(context); err != nil {
		return err
	}

	vr.world = newWorld(
		NewChunkAllocator(deviceMemory{context}),
		NewSamplerCache(context),
		NewPipelineCache(context),
		NewStagingBuffer(deviceMemory{context}),
	)

	if err := createGammaBuffer(context); err != nil {
		return err
	}
	if err := updateGammaTable(context, vr.world.Staging, GammaTable(vr.cfg.Gamma)); err != nil {
		return err
	}
	writeGammaSource(context)

	if context.Shaders, err = NewShaderModules(context, shaders); err != nil {
		return err
	}
	if err := createGammaPipeline(context); err != nil {
		return err
	}
	if err := context.Standard.create(func(def metadata.PipelineDef) (vk.Pipeline, error) {
		return createGraphicsPipeline(context, def)
	}); err != nil {
		return err
	}

	vr.frames = contextFrameDevice{context}
	vr.frameState = FRAME_STATE_IDLE
	context.Active = true
	core.LogInfo("Vulkan renderer initialized successfully.")
	return nil
}

func (vr *VulkanRenderer) createSyncObjects() error {
	context := vr.context
	var err error
	if context.ImageAcquired, err = newSemaphore(context); err != nil {
		return err
	}
	context.RenderingFinished = make([]vk.Semaphore, 0, context.Swapchain.ImageCount)
	for i := uint32(0); i < context.Swapchain.ImageCount; i++ {
		semaphore, err := newSemaphore(context)
		if err != nil {
			return err
		}
		context.RenderingFinished = append(context.RenderingFinished, semaphore)
	}
	// Signaled so the first frame does not wait.
	context.FrameFence, err = NewFence(context, true)
	return err
}

func newSemaphore(context *VulkanContext) (vk.Semaphore, error) {
	createInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if err := vulkanError("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &createInfo, context.Allocator, &semaphore)); err != nil {
		return vk.NullSemaphore, err
	}
	return semaphore, nil
}

// createAttachments creates the offscreen color target and the depth image,
// the latter left in its attachment layout.
func (vr *VulkanRenderer) createAttachments() error {
	context := vr.context
	width, height := context.FramebufferWidth, context.FramebufferHeight

	var err error
	context.OutputImage, err = AttachmentImageCreate(context, width, height, vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageColorAttachmentBit|vk.ImageUsageSampledBit, vk.ImageAspectColorBit)
	if err != nil {
		return err
	}

	depthAspect := vk.ImageAspectDepthBit
	if context.Device.StencilBits > 0 {
		depthAspect |= vk.ImageAspectStencilBit
	}
	context.DepthImage, err = AttachmentImageCreate(context, width, height, context.Device.DepthFormat,
		vk.ImageUsageDepthStencilAttachmentBit, depthAspect)
	if err != nil {
		return err
	}
	return RecordAndRun(context, func(cb vk.CommandBuffer) {
		RecordImageLayoutTransition(cb, context.DepthImage.Handle, depthAspect,
			0, vk.ImageLayoutUndefined,
			vk.AccessDepthStencilAttachmentReadBit|vk.AccessDepthStencilAttachmentWriteBit,
			vk.ImageLayoutDepthStencilAttachmentOptimal)
	})
}

// waitIdle drains the device and reports a failure to the sink as op.
func (vr *VulkanRenderer) waitIdle(op string) bool {
	frames := vr.frames
	if frames == nil {
		frames = contextFrameDevice{vr.context}
	}
	if err := frames.WaitIdle(); err != nil {
		vr.fail(op, err)
		return false
	}
	return true
}

/**
 * @brief Releases every world resource, then destroys the device context in
 * reverse creation order. The renderer is inactive afterwards.
 */
func (vr *VulkanRenderer) Shutdown() {
	context := vr.context
	if context.Device != nil && context.Device.LogicalDevice != nil {
		vr.waitIdle("Shutdown")
	}
	if vr.world != nil {
		vr.releaseResources()
	}
	context.Active = false

	if context.Device != nil && context.Device.LogicalDevice != nil {
		device := context.Device.LogicalDevice
		context.Standard.destroy(func(p vk.Pipeline) {
			vk.DestroyPipeline(device, p, context.Allocator)
		})
		if context.GammaPipeline != nil {
			vk.DestroyPipeline(device, context.GammaPipeline, context.Allocator)
			context.GammaPipeline = nil
		}
		if context.Shaders != nil {
			context.Shaders.Destroy(context)
			context.Shaders = nil
		}
		if context.GammaBuffer != nil {
			context.GammaBuffer.Destroy(context)
			context.GammaBuffer = nil
		}
		if context.Geometry != nil {
			context.Geometry.Destroy(context)
			context.Geometry = nil
		}
		destroyDescriptorObjects(context)

		core.LogDebug("Destroying Vulkan framebuffer and renderpass...")
		if context.Framebuffer != nil {
			context.Framebuffer.Destroy(context)
			context.Framebuffer = nil
		}
		if context.MainRenderpass != nil {
			context.MainRenderpass.Destroy(context)
			context.MainRenderpass = nil
		}
		if context.DepthImage != nil {
			context.DepthImage.Destroy(context)
			context.DepthImage = nil
		}
		if context.OutputImage != nil {
			context.OutputImage.Destroy(context)
			context.OutputImage = nil
		}

		if context.CommandBuffer != nil {
			context.CommandBuffer.Free(context, context.CommandPool)
			context.CommandBuffer = nil
		}

		core.LogDebug("Destroying sync objects...")
		if context.FrameFence != nil {
			context.FrameFence.Destroy(context)
			context.FrameFence = nil
		}
		for _, semaphore := range context.RenderingFinished {
			vk.DestroySemaphore(device, semaphore, context.Allocator)
		}
		context.RenderingFinished = nil
		if context.ImageAcquired != vk.NullSemaphore {
			vk.DestroySemaphore(device, context.ImageAcquired, context.Allocator)
			context.ImageAcquired = vk.NullSemaphore
		}

		core.LogDebug("Destroying Vulkan swapchain...")
		if context.Swapchain != nil {
			context.Swapchain.Destroy(context)
			context.Swapchain = nil
		}
		DeviceDestroy(context)
	}
	InstanceDestroy(context)
	vr.world = nil
	vr.frameState = FRAME_STATE_IDLE
	core.LogInfo("Vulkan renderer shut down.")
}

/**
 * @brief Drops every resource the scene layer created: image memory chunks,
 * the staging buffer, samplers, cached pipelines and images. The standard
 * pipelines are kept. Must not be called while a frame is recorded.
 */
func (vr *VulkanRenderer) ReleaseResources() {
	if !vr.context.Active {
		return
	}
	if vr.frameState != FRAME_STATE_IDLE {
		vr.fail("ReleaseResources", fmt.Errorf("%w: resources released while %s", core.ErrInvalidInput, vr.frameState))
		return
	}
	if !vr.waitIdle("ReleaseResources") {
		return
	}
	if err := vr.releaseResources(); err != nil {
		vr.fail("ReleaseResources", err)
	}
}

func (vr *VulkanRenderer) releaseResources() error {
	context := vr.context
	world := vr.world

	world.Images.Each(func(_ containers.Handle, _ vk.Image, image *metadata.Image) {
		destroySampledImage(context, image)
	})
	world.Chunks.Release()
	world.Staging.Release()
	world.Samplers.Release()
	world.Pipelines.Release()

	vr.world = newWorld(world.Chunks, world.Samplers, world.Pipelines, world.Staging)
	if context.Geometry != nil {
		context.Geometry.Stream.Reset()
	}
	if context.DescriptorPool != nil {
		return vulkanError("vkResetDescriptorPool", vk.ResetDescriptorPool(context.Device.LogicalDevice, context.DescriptorPool, 0))
	}
	return nil
}

/**
 * @brief Creates a sampled image of the given size and format in chunk
 * memory. Its descriptor set is written with the sampler matching the mip
 * count and wrap mode and becomes current for the selected texture unit.
 */
func (vr *VulkanRenderer) CreateImage(width, height uint32, format vk.Format, mipLevels uint32, repeat bool) *metadata.Image {
	if !vr.context.Active {
		return nil
	}
	sampler, err := vr.world.Samplers.Find(imageSamplerDef(mipLevels > 1, repeat, vr.minFilter, vr.magFilter))
	if err != nil {
		vr.fail("CreateImage", err)
		return nil
	}
	image, err := createSampledImage(vr.context, vr.world, width, height, mipLevels, format, repeat, sampler, vr.currentTMU)
	if err != nil {
		vr.fail("CreateImage", err)
		return nil
	}
	return image
}

// UploadImageData fills image with packed pixels, every mip level after the
// base one when mipmap is set.
func (vr *VulkanRenderer) UploadImageData(image *metadata.Image, width, height uint32, mipmap bool, pixels []byte, bytesPerPixel int) {
	if !vr.context.Active {
		return
	}
	if image == nil {
		vr.fail("UploadImageData", fmt.Errorf("%w: nil image", core.ErrInvalidInput))
		return
	}
	if err := uploadImageData(vr.context, vr.world.Staging, image.Handle, width, height, mipmap, pixels, bytesPerPixel); err != nil {
		vr.fail("UploadImageData", err)
	}
}

// UpdateImageBinding rewrites set to sample view with the sampler matching
// mipmap and repeat.
func (vr *VulkanRenderer) UpdateImageBinding(set vk.DescriptorSet, view vk.ImageView, mipmap, repeat bool) {
	if !vr.context.Active {
		return
	}
	sampler, err := vr.world.Samplers.Find(imageSamplerDef(mipmap, repeat, vr.minFilter, vr.magFilter))
	if err != nil {
		vr.fail("UpdateImageBinding", err)
		return
	}
	writeImageDescriptor(vr.context, set, view, sampler)
}

// BindImage selects texture unit tmu and makes image its current image.
func (vr *VulkanRenderer) BindImage(tmu int, image *metadata.Image) {
	if !vr.context.Active {
		return
	}
	if tmu < 0 || tmu >= len(vr.world.CurrentDescriptorSets) {
		vr.fail("BindImage", fmt.Errorf("%w: texture unit %d", core.ErrInvalidInput, tmu))
		return
	}
	vr.currentTMU = tmu
	if image != nil {
		vr.world.CurrentDescriptorSets[tmu] = image.DescriptorSet
	}
}

// FindPipeline returns the pipeline for def, building it on first use.
func (vr *VulkanRenderer) FindPipeline(def metadata.PipelineDef) vk.Pipeline {
	if !vr.context.Active {
		return vk.NullPipeline
	}
	pipeline, err := vr.world.Pipelines.Find(def)
	if err != nil {
		vr.fail("FindPipeline", err)
		return vk.NullPipeline
	}
	return pipeline
}

func (vr *VulkanRenderer) FindSampler(def metadata.SamplerDef) vk.Sampler {
	if !vr.context.Active {
		return nil
	}
	sampler, err := vr.world.Samplers.Find(def)
	if err != nil {
		vr.fail("FindSampler", err)
		return nil
	}
	return sampler
}

// StandardPipelines returns the pipelines built at initialization.
func (vr *VulkanRenderer) StandardPipelines() *StandardPipelines {
	return &vr.context.Standard
}

// SetDrawState replaces the view and transform used by the next draws.
func (vr *VulkanRenderer) SetDrawState(state metadata.DrawState) {
	vr.state = state
}

/**
 * @brief Reads the last presented frame back as bottom-up RGBA rows. Nil when
 * inactive or on failure.
 */
func (vr *VulkanRenderer) ReadPixels() []byte {
	if !vr.context.Active {
		return nil
	}
	if vr.frameState != FRAME_STATE_IDLE {
		vr.fail("ReadPixels", fmt.Errorf("%w: readback while %s", core.ErrInvalidInput, vr.frameState))
		return nil
	}
	pixels, err := readPixels(vr.context, vr.swizzle)
	if err != nil {
		vr.fail("ReadPixels", err)
		return nil
	}
	return pixels
}

// UpdateGammaTable replaces the lookup table applied by the gamma pass.
func (vr *VulkanRenderer) UpdateGammaTable(table [GAMMA_TABLE_SIZE]float32) {
	if !vr.context.Active {
		return
	}
	if err := updateGammaTable(vr.context, vr.world.Staging, table); err != nil {
		vr.fail("UpdateGammaTable", err)
	}
}

/**
 * @brief Applies the settings that can change at runtime: polygon offset,
 * gamma, the gamma toggles, the texture mode and the swizzle formats. The
 * rest only take effect after a restart.
 */
func (vr *VulkanRenderer) ApplyConfig(cfg config.Renderer) {
	old := vr.cfg
	if cfg.VSync != old.VSync || cfg.GPU != old.GPU || cfg.StencilBits != old.StencilBits || cfg.Debug != old.Debug {
		core.LogWarn("vsync, gpu, stencil_bits and debug changes apply on restart")
	}

	if minFilter, magFilter, ok := metadata.TextureModeFilters(cfg.TextureMode); ok {
		vr.minFilter, vr.magFilter = minFilter, magFilter
	} else {
		core.LogWarn("unknown texture mode %q, keeping %q", cfg.TextureMode, old.TextureMode)
		cfg.TextureMode = old.TextureMode
	}
	if swizzle, err := parseSwizzleFormats(cfg.SwizzleFormats); err == nil {
		vr.swizzle = swizzle
	} else {
		core.LogWarn("%s, keeping the previous swizzle formats", err)
		cfg.SwizzleFormats = old.SwizzleFormats
	}

	// Restart-only settings keep describing the running device.
	cfg.VSync, cfg.GPU, cfg.StencilBits, cfg.Debug = old.VSync, old.GPU, old.StencilBits, old.Debug
	vr.cfg = cfg

	if cfg.Gamma != old.Gamma {
		vr.UpdateGammaTable(GammaTable(cfg.Gamma))
	}
	core.LogInfo("renderer settings reloaded")
}

func (vr *VulkanRenderer) Active() bool {
	return vr.context.Active
}

func (vr *VulkanRenderer) FrameSize() (uint32, uint32) {
	return vr.context.FramebufferWidth, vr.context.FramebufferHeight
}

func (vr *VulkanRenderer) PipelineCompileTime() time.Duration {
	if vr.world == nil {
		return 0
	}
	return vr.world.Pipelines.CompileTime()
}

func (vr *VulkanRenderer) PipelineCount() int {
	if vr.world == nil {
		return 0
	}
	return vr.world.Pipelines.Len()
}

func (vr *VulkanRenderer) SamplerCount() int {
	if vr.world == nil {
		return 0
	}
	return vr.world.Samplers.Len()
}

func (vr *VulkanRenderer) ImageCount() int {
	if vr.world == nil {
		return 0
	}
	return vr.world.Images.Len()
}

func (vr *VulkanRenderer) ChunkCount() int {
	if vr.world == nil {
		return 0
	}
	return len(vr.world.Chunks.Chunks())
}

// DirtyDepthAttachment reports whether anything was drawn since the frame began.
func (vr *VulkanRenderer) DirtyDepthAttachment() bool {
	return vr.world != nil && vr.world.DirtyDepthAttachment
}
