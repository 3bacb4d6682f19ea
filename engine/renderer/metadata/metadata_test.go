package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextureModeFilters(t *testing.T) {
	min, mag, ok := TextureModeFilters("gl_linear_mipmap_nearest")
	assert.True(t, ok)
	assert.Equal(t, GL_LINEAR_MIPMAP_NEAREST, min)
	assert.Equal(t, GL_LINEAR, mag)

	min, mag, ok = TextureModeFilters("GL_NEAREST_MIPMAP_LINEAR")
	assert.True(t, ok)
	assert.Equal(t, GL_NEAREST_MIPMAP_LINEAR, min)
	assert.Equal(t, GL_NEAREST, mag)

	_, _, ok = TextureModeFilters("GL_ANISOTROPIC")
	assert.False(t, ok)
}

func TestPipelineDefEquality(t *testing.T) {
	a := PipelineDef{StateBits: GLS_DEFAULT, FaceCulling: CT_FRONT_SIDED}
	b := a
	assert.Equal(t, a, b)
	assert.True(t, a == b)

	b.Mirror = true
	assert.False(t, a == b)
}

func TestShaderTypeMultitexture(t *testing.T) {
	assert.False(t, SHADER_TYPE_SINGLE_TEXTURE.Multitexture())
	assert.True(t, SHADER_TYPE_MULTI_TEXTURE_MUL.Multitexture())
	assert.True(t, SHADER_TYPE_MULTI_TEXTURE_ADD.Multitexture())
}
