package loaders

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesToBytecode(t *testing.T) {
	code, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, code)

	_, err = bytesToBytecode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, core.ErrShaderSize)

	_, err = bytesToBytecode(nil)
	assert.ErrorIs(t, err, core.ErrShaderSize)
}

func TestBinaryLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamma.comp.spv")
	require.NoError(t, os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07}, 0o644))

	res, err := (&BinaryLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, "gamma.comp", res.Name)
	assert.Equal(t, uint64(4), res.DataSize)
	assert.Equal(t, []uint32{0x07230203}, res.Data)

	res, err = (&BinaryLoader{}).Load(path, metadata.ResourceTypeShader, map[string]string{"name": "gamma"})
	require.NoError(t, err)
	assert.Equal(t, "gamma", res.Name)
}

func TestTextureLoaderLoad(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "two.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	res, err := (&TextureLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	data := res.Data.(*metadata.ImageResourceData)
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint32(1), data.Height)
	assert.Equal(t, uint8(4), data.ChannelCount)
	assert.Equal(t, []uint8{255, 0, 0, 255, 0, 0, 255, 255}, data.Pixels)
}
