package vulkan

const (
	/** @brief Upper bound of presentable images requested from the swapchain. */
	MAX_SWAPCHAIN_IMAGES uint32 = 8

	/** @brief Capacity of the image resource table. */
	MAX_VK_IMAGES = 2048
	/** @brief Combined image sampler descriptors available to image resources. */
	MAX_DRAWIMAGES = 2048
	/** @brief Capacity of the sampler cache. */
	MAX_VK_SAMPLERS = 32
	/** @brief Capacity of the pipeline cache. */
	MAX_VK_PIPELINES = 1024

	/** @brief Size of one device memory chunk backing image resources. */
	IMAGE_CHUNK_SIZE uint64 = 32 * 1024 * 1024
	/** @brief Maximum number of image memory chunks. */
	MAX_IMAGE_CHUNKS = 16
)

// Geometry stream layout. The vertex buffer holds one region per attribute
// stream; the index buffer lives in the same allocation after it.
const (
	VERTEX_CHUNK_SIZE uint64 = 512 * 1024

	XYZ_SIZE   = 4 * VERTEX_CHUNK_SIZE
	COLOR_SIZE = 1 * VERTEX_CHUNK_SIZE
	ST0_SIZE   = 2 * VERTEX_CHUNK_SIZE
	ST1_SIZE   = 2 * VERTEX_CHUNK_SIZE

	XYZ_OFFSET   uint64 = 0
	COLOR_OFFSET        = XYZ_OFFSET + XYZ_SIZE
	ST0_OFFSET          = COLOR_OFFSET + COLOR_SIZE
	ST1_OFFSET          = ST0_OFFSET + ST0_SIZE

	VERTEX_BUFFER_SIZE = XYZ_SIZE + COLOR_SIZE + ST0_SIZE + ST1_SIZE
	INDEX_BUFFER_SIZE  = 2 * 1024 * 1024
)

// Element sizes of the geometry streams, in bytes.
const (
	XYZ_ELEMENT_SIZE   uint64 = 16
	COLOR_ELEMENT_SIZE uint64 = 4
	ST_ELEMENT_SIZE    uint64 = 8
	INDEX_ELEMENT_SIZE uint64 = 4
)

const (
	/** @brief Frame fence wait budget. Exceeding it means the GPU hung. */
	FENCE_TIMEOUT_NS uint64 = 1e9

	GAMMA_TABLE_SIZE = 256
	/** @brief Work group edge of the gamma compute shader. */
	GAMMA_GROUP_SIZE uint32 = 8

	/** @brief Push constant bytes: MVP, eye transform and clipping plane. */
	PUSH_CONSTANTS_SIZE uint32 = 128
	/** @brief Push constant bytes when no clipping plane is used. */
	MVP_PUSH_CONSTANTS_SIZE uint32 = 64
	/** @brief Push constant bytes of the gamma pass: width, height, identity. */
	GAMMA_PUSH_CONSTANTS_SIZE uint32 = 12
)
