package metadata

import vk "github.com/goki/vulkan"

/**
 * @brief Per vertex attributes of one shading pass. Every slice must hold
 * one entry per vertex previously given to BindGeometry.
 */
type ShadeInput struct {
	Colors     [][4]uint8
	TexCoords0 [][2]float32
	/** @brief Only read when Multitexture is set. */
	TexCoords1   [][2]float32
	Multitexture bool

	DepthRange    DepthRange
	PolygonOffset bool
	/** @brief Draw with the bound index range rather than the vertex count. */
	Indexed bool
}

/**
 * @brief An image resource: GPU image, its view and the descriptor set that
 * samples it.
 */
type Image struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Repeat    bool
	Format    vk.Format

	Handle        vk.Image
	View          vk.ImageView
	DescriptorSet vk.DescriptorSet
}

// ClearFlags select the attachments cleared by ClearAttachments.
type ClearFlags uint8

const (
	CLEAR_DEPTH ClearFlags = 1 << iota
	CLEAR_COLOR
)
