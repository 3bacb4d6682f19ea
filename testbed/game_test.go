package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerboard(t *testing.T) {
	pixels := checkerboard(16, 4)
	require.Len(t, pixels, 16*16*4)

	at := func(x, y int) byte { return pixels[(y*16+x)*4] }
	assert.Equal(t, byte(255), at(0, 0))
	assert.Equal(t, byte(96), at(4, 0))
	assert.Equal(t, byte(96), at(0, 4))
	assert.Equal(t, byte(255), at(5, 5))
	assert.Equal(t, byte(255), pixels[3])
}

func TestGradientEnds(t *testing.T) {
	pixels := gradient(8)
	assert.Equal(t, []byte{255, 0, 0, 255}, pixels[0:4])
	last := (7) * 4
	assert.Equal(t, []byte{0, 0, 255, 255}, pixels[last:last+4])
}

func TestMipChain(t *testing.T) {
	assert.Equal(t, uint32(1), mipLevelCount(1, 1))
	assert.Equal(t, uint32(7), mipLevelCount(64, 64))
	assert.Equal(t, uint32(3), mipLevelCount(4, 1))

	base := checkerboard(4, 1)
	chain := withMipChain(base, 4, 4)
	// 4x4 + 2x2 + 1x1
	require.Len(t, chain, (16+4+1)*4)
	assert.Equal(t, base, chain[:len(base)])

	// Every 2x2 block of a one pixel checkerboard averages to the same grey.
	grey := byte((255 + 96 + 96 + 255) / 4)
	assert.Equal(t, grey, chain[16*4])
	assert.Equal(t, byte(255), chain[16*4+3])
}

func TestQuadCorners(t *testing.T) {
	q := quad(10, 20, 30, 40)
	assert.Equal(t, [4]float32{10, 20, 0, 1}, q[0])
	assert.Equal(t, [4]float32{40, 60, 0, 1}, q[3])
}

func TestPerspectiveStateIsThreeDimensional(t *testing.T) {
	state := perspectiveState(800, 600, 0)
	assert.False(t, state.Projection2D)
	assert.Equal(t, int32(800), state.View.ViewportWidth)
	assert.Equal(t, float32(-64), state.Or.ModelMatrix[14])
}
