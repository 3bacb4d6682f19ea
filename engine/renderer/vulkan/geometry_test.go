package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream() (*GeometryStream, []byte, []byte) {
	vertexData := make([]byte, VERTEX_BUFFER_SIZE)
	indexData := make([]byte, INDEX_BUFFER_SIZE)
	return NewGeometryStream(vertexData, indexData), vertexData, indexData
}

func shadeFor(n int, multitexture bool) *metadata.ShadeInput {
	in := &metadata.ShadeInput{
		Colors:       make([][4]uint8, n),
		TexCoords0:   make([][2]float32, n),
		Multitexture: multitexture,
	}
	if multitexture {
		in.TexCoords1 = make([][2]float32, n)
	}
	return in
}

func TestGeometryStreamAppends(t *testing.T) {
	g, vertexData, indexData := newTestStream()

	first, err := g.WriteGeometry([][4]float32{{1, 2, 3, 0}, {4, 5, 6, 0}}, []uint32{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, BoundGeometry{XYZOffset: XYZ_OFFSET, IndexOffset: 0}, first)

	second, err := g.WriteGeometry([][4]float32{{7, 8, 9, 0}}, []uint32{0})
	require.NoError(t, err)
	assert.Equal(t, XYZ_OFFSET+2*XYZ_ELEMENT_SIZE, second.XYZOffset)
	assert.Equal(t, 3*INDEX_ELEMENT_SIZE, second.IndexOffset)
	assert.Equal(t, uint32(1), g.VertexCount())
	assert.Equal(t, uint32(1), g.IndexCount())

	// The first draw is left intact.
	assert.Equal(t, float32(4), stdmath.Float32frombits(binary.LittleEndian.Uint32(vertexData[16:])))
	assert.Equal(t, float32(7), stdmath.Float32frombits(binary.LittleEndian.Uint32(vertexData[32:])))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(indexData[8:]))

	xyz, _, index := g.Cursors()
	assert.Equal(t, 3*XYZ_ELEMENT_SIZE, xyz)
	assert.Equal(t, 4*INDEX_ELEMENT_SIZE, index)
}

func TestGeometryStreamShade(t *testing.T) {
	g, vertexData, _ := newTestStream()
	_, err := g.WriteGeometry(make([][4]float32, 3), nil)
	require.NoError(t, err)

	in := shadeFor(3, false)
	in.Colors[1] = [4]uint8{10, 20, 30, 40}
	single, err := g.WriteShade(in)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), single.Bindings)
	assert.Equal(t, COLOR_OFFSET, single.Offsets[0])
	assert.Equal(t, ST0_OFFSET, single.Offsets[1])
	assert.Equal(t, []byte{10, 20, 30, 40}, vertexData[COLOR_OFFSET+4:COLOR_OFFSET+8])

	// A second pass over the same geometry is appended.
	multi, err := g.WriteShade(shadeFor(3, true))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), multi.Bindings)
	assert.Equal(t, COLOR_OFFSET+3*COLOR_ELEMENT_SIZE, multi.Offsets[0])
	assert.Equal(t, ST1_OFFSET+3*ST_ELEMENT_SIZE, multi.Offsets[2])

	_, colorST, _ := g.Cursors()
	assert.Equal(t, 6*COLOR_ELEMENT_SIZE, colorST)
}

func TestGeometryStreamShadeMismatch(t *testing.T) {
	g, _, _ := newTestStream()
	_, err := g.WriteGeometry(make([][4]float32, 4), nil)
	require.NoError(t, err)

	_, err = g.WriteShade(shadeFor(3, false))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	in := shadeFor(4, true)
	in.TexCoords1 = in.TexCoords1[:2]
	_, err = g.WriteShade(in)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestGeometryStreamExactCapacity(t *testing.T) {
	g, _, _ := newTestStream()
	capacity := int(XYZ_SIZE / XYZ_ELEMENT_SIZE)

	_, err := g.WriteGeometry(make([][4]float32, capacity), make([]uint32, INDEX_BUFFER_SIZE/INDEX_ELEMENT_SIZE))
	require.NoError(t, err)

	_, err = g.WriteGeometry(make([][4]float32, 1), nil)
	assert.ErrorIs(t, err, core.ErrStreamOverflow)
	assert.Equal(t, core.SeverityDrop, severityOf(err))

	_, err = g.WriteGeometry(nil, []uint32{0})
	assert.ErrorIs(t, err, core.ErrStreamOverflow)
}

func TestGeometryStreamShadeOverflow(t *testing.T) {
	g, _, _ := newTestStream()
	perDraw := int(COLOR_SIZE / COLOR_ELEMENT_SIZE / 2)
	_, err := g.WriteGeometry(make([][4]float32, perDraw), nil)
	require.NoError(t, err)

	_, err = g.WriteShade(shadeFor(perDraw, true))
	require.NoError(t, err)
	_, err = g.WriteShade(shadeFor(perDraw, true))
	require.NoError(t, err)
	_, err = g.WriteShade(shadeFor(perDraw, false))
	assert.ErrorIs(t, err, core.ErrStreamOverflow)
}

func TestGeometryStreamReset(t *testing.T) {
	g, _, _ := newTestStream()
	_, err := g.WriteGeometry(make([][4]float32, 8), make([]uint32, 12))
	require.NoError(t, err)
	_, err = g.WriteShade(shadeFor(8, false))
	require.NoError(t, err)

	g.Reset()
	xyz, colorST, index := g.Cursors()
	assert.Zero(t, xyz)
	assert.Zero(t, colorST)
	assert.Zero(t, index)

	bound, err := g.WriteGeometry(make([][4]float32, 1), []uint32{0})
	require.NoError(t, err)
	assert.Equal(t, BoundGeometry{XYZOffset: XYZ_OFFSET}, bound)
}

func TestAsBytes(t *testing.T) {
	assert.Nil(t, asBytes([]uint32(nil)))
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, asBytes([]uint32{1, 2}))
	assert.Len(t, asBytes([][4]float32{{}, {}}), 32)
}
