package vulkan

import (
	"testing"

	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkAllocatorBumpsWithAlignment(t *testing.T) {
	device := &fakeChunkDevice{}
	a := NewChunkAllocator(device)

	first, err := a.Allocate(MemoryRequirements{Size: 100, Alignment: 256})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.Offset)
	assert.Equal(t, 0, first.Chunk)

	second, err := a.Allocate(MemoryRequirements{Size: 100, Alignment: 256})
	require.NoError(t, err)
	assert.Equal(t, uint64(256), second.Offset)
	assert.True(t, first.Memory == second.Memory, "both allocations share the chunk memory")
	assert.Len(t, device.allocated, 1)
	assert.Equal(t, uint64(356), a.Chunks()[0].Used)
}

func TestChunkAllocatorOpensNewChunkWhenFull(t *testing.T) {
	device := &fakeChunkDevice{}
	a := NewChunkAllocator(device)

	_, err := a.Allocate(MemoryRequirements{Size: IMAGE_CHUNK_SIZE - 16, Alignment: 1})
	require.NoError(t, err)
	next, err := a.Allocate(MemoryRequirements{Size: 32, Alignment: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, next.Chunk)
	assert.Equal(t, uint64(0), next.Offset)
	require.Len(t, device.allocated, 2)
	assert.False(t, device.allocated[0] == device.allocated[1])
	assert.True(t, next.Memory == device.allocated[1])

	// The first chunk still takes what fits.
	small, err := a.Allocate(MemoryRequirements{Size: 16, Alignment: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, small.Chunk)
	assert.Equal(t, IMAGE_CHUNK_SIZE-16, small.Offset)
}

func TestChunkAllocatorExactFit(t *testing.T) {
	a := NewChunkAllocator(&fakeChunkDevice{})
	alloc, err := a.Allocate(MemoryRequirements{Size: IMAGE_CHUNK_SIZE, Alignment: 4})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), alloc.Offset)
}

func TestChunkAllocatorRejectsOversizedRequests(t *testing.T) {
	device := &fakeChunkDevice{}
	a := NewChunkAllocator(device)
	_, err := a.Allocate(MemoryRequirements{Size: IMAGE_CHUNK_SIZE + 1, Alignment: 1})
	assert.ErrorIs(t, err, core.ErrCapacityExhausted)
	assert.Empty(t, device.allocated)
}

func TestChunkAllocatorChunkLimit(t *testing.T) {
	a := NewChunkAllocator(&fakeChunkDevice{})
	for i := 0; i < MAX_IMAGE_CHUNKS; i++ {
		_, err := a.Allocate(MemoryRequirements{Size: IMAGE_CHUNK_SIZE, Alignment: 1})
		require.NoError(t, err)
	}
	_, err := a.Allocate(MemoryRequirements{Size: 1, Alignment: 1})
	assert.ErrorIs(t, err, core.ErrCapacityExhausted)
	assert.Equal(t, core.SeverityDrop, severityOf(err))
}

func TestChunkAllocatorSeparatesMemoryTypes(t *testing.T) {
	device := &fakeChunkDevice{memoryIndex: 1}
	a := NewChunkAllocator(device)
	_, err := a.Allocate(MemoryRequirements{Size: 64, Alignment: 1})
	require.NoError(t, err)

	device.memoryIndex = 2
	other, err := a.Allocate(MemoryRequirements{Size: 64, Alignment: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Chunk)
	assert.Equal(t, uint32(2), a.Chunks()[1].MemoryTypeIndex)
}

func TestChunkAllocatorRelease(t *testing.T) {
	device := &fakeChunkDevice{}
	a := NewChunkAllocator(device)
	for i := 0; i < 3; i++ {
		_, err := a.Allocate(MemoryRequirements{Size: IMAGE_CHUNK_SIZE, Alignment: 1})
		require.NoError(t, err)
	}
	a.Release()
	assert.Empty(t, a.Chunks())
	assert.Equal(t, memoryIDs(device.allocated), memoryIDs(device.freed))

	alloc, err := a.Allocate(MemoryRequirements{Size: 8, Alignment: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, alloc.Chunk)
}

func TestChunkAllocatorMemoryTypeError(t *testing.T) {
	a := NewChunkAllocator(&fakeChunkDevice{findErr: core.ErrNoMemoryType})
	_, err := a.Allocate(MemoryRequirements{Size: 8, Alignment: 1})
	assert.ErrorIs(t, err, core.ErrNoMemoryType)
	assert.Equal(t, core.SeverityFatal, severityOf(err))
}

func TestStagingBufferGrowsOnly(t *testing.T) {
	device := &fakeHostBufferDevice{}
	s := NewStagingBuffer(device)
	assert.Equal(t, uint64(0), s.Size())

	require.NoError(t, s.EnsureCapacity(1024))
	require.NoError(t, s.EnsureCapacity(512))
	require.NoError(t, s.EnsureCapacity(1024))
	assert.Equal(t, []uint64{1024}, device.created)

	require.NoError(t, s.EnsureCapacity(4096))
	assert.Equal(t, []uint64{1024, 4096}, device.created)
	assert.Equal(t, []uint64{1024}, device.destroyed)
	assert.Equal(t, uint64(4096), s.Size())
}

func TestStagingBufferUpload(t *testing.T) {
	device := &fakeHostBufferDevice{}
	s := NewStagingBuffer(device)

	require.NoError(t, s.Upload([]byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, s.current.Mapped)
	assert.NotNil(t, s.Handle())

	s.Release()
	assert.Equal(t, uint64(0), s.Size())
	assert.Equal(t, []uint64{4}, device.destroyed)

	// Releasing twice does not destroy anything more.
	s.Release()
	assert.Len(t, device.destroyed, 1)
}
