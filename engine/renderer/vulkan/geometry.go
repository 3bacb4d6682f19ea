package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/math"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// GeometryStream appends per-draw vertex and index data into persistently
// mapped memory. The cursors only grow during a frame and are rewound by
// Reset at frame start, so data written for earlier draws stays intact until
// the GPU consumed it.
type GeometryStream struct {
	vertexData []byte
	indexData  []byte

	xyzElements     uint64
	colorSTElements uint64
	indexOffset     uint64

	// Vertex and index counts of the geometry bound last.
	vertexCount int
	indexCount  int
}

// BoundGeometry are the buffer offsets the geometry of a draw was written at.
type BoundGeometry struct {
	XYZOffset   uint64
	IndexOffset uint64
}

// ShadeOffsets are the vertex buffer offsets of the color and texture
// coordinate streams of one shading pass, ordered by binding starting at 1.
type ShadeOffsets struct {
	Offsets  [3]uint64
	Bindings uint32
}

func NewGeometryStream(vertexData, indexData []byte) *GeometryStream {
	return &GeometryStream{vertexData: vertexData, indexData: indexData}
}

/**
 * @brief Appends positions and indexes of the next draw.
 * @param xyz Positions, the fourth component is padding.
 * @param indexes 32-bit indexes into xyz.
 * @return The offsets the data was written at, or ErrStreamOverflow.
 */
func (g *GeometryStream) WriteGeometry(xyz [][4]float32, indexes []uint32) (BoundGeometry, error) {
	xyzBytes := uint64(len(xyz)) * XYZ_ELEMENT_SIZE
	if g.xyzElements*XYZ_ELEMENT_SIZE+xyzBytes > XYZ_SIZE {
		return BoundGeometry{}, fmt.Errorf("vertex buffer overflow (xyz): %w", core.ErrStreamOverflow)
	}
	indexBytes := uint64(len(indexes)) * INDEX_ELEMENT_SIZE
	if g.indexOffset+indexBytes > INDEX_BUFFER_SIZE {
		return BoundGeometry{}, fmt.Errorf("index buffer overflow: %w", core.ErrStreamOverflow)
	}

	bound := BoundGeometry{
		XYZOffset:   XYZ_OFFSET + g.xyzElements*XYZ_ELEMENT_SIZE,
		IndexOffset: g.indexOffset,
	}
	copy(g.vertexData[bound.XYZOffset:], asBytes(xyz))
	copy(g.indexData[bound.IndexOffset:], asBytes(indexes))

	g.xyzElements += uint64(len(xyz))
	g.indexOffset += indexBytes
	g.vertexCount = len(xyz)
	g.indexCount = len(indexes)
	return bound, nil
}

/**
 * @brief Appends the colors and texture coordinates of one shading pass of
 * the geometry bound last.
 */
func (g *GeometryStream) WriteShade(in *metadata.ShadeInput) (ShadeOffsets, error) {
	n := g.vertexCount
	if len(in.Colors) != n || len(in.TexCoords0) != n || (in.Multitexture && len(in.TexCoords1) != n) {
		return ShadeOffsets{}, fmt.Errorf("shade input does not match %d bound vertices: %w", n, core.ErrInvalidInput)
	}
	count := uint64(n)
	end := g.colorSTElements + count
	if end*COLOR_ELEMENT_SIZE > COLOR_SIZE {
		return ShadeOffsets{}, fmt.Errorf("vertex buffer overflow (color): %w", core.ErrStreamOverflow)
	}
	if end*ST_ELEMENT_SIZE > ST0_SIZE {
		return ShadeOffsets{}, fmt.Errorf("vertex buffer overflow (st0): %w", core.ErrStreamOverflow)
	}
	if in.Multitexture && end*ST_ELEMENT_SIZE > ST1_SIZE {
		return ShadeOffsets{}, fmt.Errorf("vertex buffer overflow (st1): %w", core.ErrStreamOverflow)
	}

	out := ShadeOffsets{
		Offsets: [3]uint64{
			COLOR_OFFSET + g.colorSTElements*COLOR_ELEMENT_SIZE,
			ST0_OFFSET + g.colorSTElements*ST_ELEMENT_SIZE,
			ST1_OFFSET + g.colorSTElements*ST_ELEMENT_SIZE,
		},
		Bindings: 2,
	}
	copy(g.vertexData[out.Offsets[0]:], asBytes(in.Colors))
	copy(g.vertexData[out.Offsets[1]:], asBytes(in.TexCoords0))
	if in.Multitexture {
		copy(g.vertexData[out.Offsets[2]:], asBytes(in.TexCoords1))
		out.Bindings = 3
	}
	g.colorSTElements = end
	return out, nil
}

// Reset rewinds every cursor. Only valid once the previous frame completed.
func (g *GeometryStream) Reset() {
	g.xyzElements = 0
	g.colorSTElements = 0
	g.indexOffset = 0
}

// Cursors returns the position, color/texcoord and index cursors in bytes
// from the start of their regions.
func (g *GeometryStream) Cursors() (xyz, colorST, index uint64) {
	return g.xyzElements * XYZ_ELEMENT_SIZE, g.colorSTElements * COLOR_ELEMENT_SIZE, g.indexOffset
}

func (g *GeometryStream) VertexCount() uint32 {
	return uint32(g.vertexCount)
}

func (g *GeometryStream) IndexCount() uint32 {
	return uint32(g.indexCount)
}

// asBytes reinterprets a slice of plain values as its backing bytes.
func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// GeometryBuffers are the vertex and index buffers of the geometry stream,
// bound to one host-coherent allocation that stays mapped for the lifetime
// of the device.
type GeometryBuffers struct {
	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	Memory       vk.DeviceMemory
	Stream       *GeometryStream
}

func NewGeometryBuffers(context *VulkanContext) (*GeometryBuffers, error) {
	device := context.Device.LogicalDevice
	gb := &GeometryBuffers{}

	createBuffer := func(size uint64, usage vk.BufferUsageFlagBits, out *vk.Buffer) error {
		info := vk.BufferCreateInfo{
			SType:       vk.StructureTypeBufferCreateInfo,
			Size:        vk.DeviceSize(size),
			Usage:       vk.BufferUsageFlags(usage),
			SharingMode: vk.SharingModeExclusive,
		}
		return vulkanError("vkCreateBuffer", vk.CreateBuffer(device, &info, context.Allocator, out))
	}
	if err := createBuffer(VERTEX_BUFFER_SIZE, vk.BufferUsageVertexBufferBit, &gb.VertexBuffer); err != nil {
		return nil, err
	}
	if err := createBuffer(INDEX_BUFFER_SIZE, vk.BufferUsageIndexBufferBit, &gb.IndexBuffer); err != nil {
		gb.Destroy(context)
		return nil, err
	}

	var vbReq, ibReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, gb.VertexBuffer, &vbReq)
	vbReq.Deref()
	vk.GetBufferMemoryRequirements(device, gb.IndexBuffer, &ibReq)
	ibReq.Deref()

	indexBufferOffset := math.AlignUp(uint64(vbReq.Size), uint64(ibReq.Alignment))
	memoryIndex, err := context.FindMemoryIndex(vbReq.MemoryTypeBits&ibReq.MemoryTypeBits,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		gb.Destroy(context)
		return nil, fmt.Errorf("geometry buffers: %w", err)
	}
	gb.Memory, err = deviceMemory{context}.AllocateMemory(indexBufferOffset+uint64(ibReq.Size), memoryIndex)
	if err != nil {
		gb.Destroy(context)
		return nil, err
	}
	if err := vulkanError("vkBindBufferMemory", vk.BindBufferMemory(device, gb.VertexBuffer, gb.Memory, 0)); err != nil {
		gb.Destroy(context)
		return nil, err
	}
	if err := vulkanError("vkBindBufferMemory", vk.BindBufferMemory(device, gb.IndexBuffer, gb.Memory, vk.DeviceSize(indexBufferOffset))); err != nil {
		gb.Destroy(context)
		return nil, err
	}

	var data unsafe.Pointer
	if err := vulkanError("vkMapMemory", vk.MapMemory(device, gb.Memory, 0, vk.DeviceSize(vk.WholeSize), 0, &data)); err != nil {
		gb.Destroy(context)
		return nil, err
	}
	gb.Stream = NewGeometryStream(
		unsafe.Slice((*byte)(data), VERTEX_BUFFER_SIZE),
		unsafe.Slice((*byte)(unsafe.Add(data, indexBufferOffset)), INDEX_BUFFER_SIZE),
	)
	return gb, nil
}

func (gb *GeometryBuffers) Destroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if gb.Stream != nil {
		vk.UnmapMemory(device, gb.Memory)
		gb.Stream = nil
	}
	if gb.VertexBuffer != nil {
		vk.DestroyBuffer(device, gb.VertexBuffer, context.Allocator)
		gb.VertexBuffer = nil
	}
	if gb.IndexBuffer != nil {
		vk.DestroyBuffer(device, gb.IndexBuffer, context.Allocator)
		gb.IndexBuffer = nil
	}
	if gb.Memory != nil {
		vk.FreeMemory(device, gb.Memory, context.Allocator)
		gb.Memory = nil
	}
}
