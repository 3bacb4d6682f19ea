package renderer

import (
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/config"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
	"github.com/spaghettifunk/tremor/engine/renderer/vulkan"
)

// RendererBackend is the API the scene layer draws through. Errors never
// come back from it: they go to the backend's error sink.
type RendererBackend interface {
	Initialize(window vulkan.Window, shaders vulkan.ShaderSource) error
	Shutdown()
	ReleaseResources()
	ApplyConfig(cfg config.Renderer)

	BeginFrame()
	EndFrame()
	ClearAttachments(flags metadata.ClearFlags, rgba [4]float32)
	SetDrawState(state metadata.DrawState)
	BindGeometry(xyz [][4]float32, indexes []uint32)
	ShadeGeometry(pipeline vk.Pipeline, in *metadata.ShadeInput)

	CreateImage(width, height uint32, format vk.Format, mipLevels uint32, repeat bool) *metadata.Image
	UploadImageData(image *metadata.Image, width, height uint32, mipmap bool, pixels []byte, bytesPerPixel int)
	UpdateImageBinding(set vk.DescriptorSet, view vk.ImageView, mipmap, repeat bool)
	BindImage(tmu int, image *metadata.Image)
	FindPipeline(def metadata.PipelineDef) vk.Pipeline
	FindSampler(def metadata.SamplerDef) vk.Sampler
	StandardPipelines() *vulkan.StandardPipelines

	ReadPixels() []byte
	UpdateGammaTable(table [vulkan.GAMMA_TABLE_SIZE]float32)

	Active() bool
	FrameSize() (uint32, uint32)
	PipelineCompileTime() time.Duration
	PipelineCount() int
	SamplerCount() int
	ImageCount() int
	ChunkCount() int
	DirtyDepthAttachment() bool
}

var _ RendererBackend = (*vulkan.VulkanRenderer)(nil)
