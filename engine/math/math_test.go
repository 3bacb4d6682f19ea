package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, uint32(480), Clamp(uint32(480), 100, 1000))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUp(uint64(0), 256))
	assert.Equal(t, uint64(256), AlignUp(uint64(1), 256))
	assert.Equal(t, uint64(256), AlignUp(uint64(256), 256))
	assert.Equal(t, uint64(512), AlignUp(uint64(257), 256))
	assert.Equal(t, uint64(13), AlignUp(uint64(13), 0))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(101), CeilDiv(uint32(801), 8))
	assert.Equal(t, uint32(75), CeilDiv(uint32(600), 8))
	assert.Equal(t, 1, CeilDiv(1, 8))
}

func TestMat4MulIdentity(t *testing.T) {
	a := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, a, a.Mul(NewMat4Identity()))
	assert.Equal(t, a, NewMat4Identity().Mul(a))
}

func TestMat4MulRowMajor(t *testing.T) {
	var a, b Mat4
	for i := 0; i < 16; i++ {
		a.Data[i] = float32(i)
		b.Data[i] = float32(i % 4)
	}
	out := a.Mul(b)
	// row 1 of a is 4,5,6,7 and column 2 of b is all 2s.
	assert.Equal(t, float32(2*(4+5+6+7)), out.Data[1*4+2])
}

func TestTransposed(t *testing.T) {
	a := NewMat4Translation(NewVec3(1, 2, 3)).Transposed()
	assert.Equal(t, float32(1), a.Data[3])
	assert.Equal(t, float32(2), a.Data[7])
	assert.Equal(t, float32(3), a.Data[11])
}

func TestVectorOps(t *testing.T) {
	x := NewVec3(1, 0, 0)
	y := NewVec3(0, 1, 0)
	assert.Equal(t, NewVec3(0, 0, 1), x.Cross(y))
	assert.Equal(t, float32(0), x.Dot(y))
	assert.InDelta(t, 1.0, NewVec3(3, 4, 0).Normalized().Length(), 1e-6)

	p := Plane{Normal: NewVec3(0, 0, 1), Dist: 2}
	assert.Equal(t, float32(3), p.DistanceTo(NewVec3(7, 7, 5)))
}
