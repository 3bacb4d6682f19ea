package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverridesDefaults(t *testing.T) {
	data := []byte(`
[window]
width = 801
height = 600

[renderer]
vsync = false
gpu = 3
shadows = 2
offset_factor = -2.5
texture_mode = "GL_LINEAR_MIPMAP_LINEAR"
swizzle_formats = ["B8G8R8A8_UNORM"]
`)
	cfg := Default()
	require.NoError(t, Parse(data, cfg))

	assert.Equal(t, uint32(801), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.Equal(t, "Tremor", cfg.Window.Name)
	assert.False(t, cfg.Renderer.VSync)
	assert.Equal(t, 3, cfg.Renderer.GPU)
	assert.Equal(t, 2, cfg.Renderer.Shadows)
	assert.Equal(t, float32(-2.5), cfg.Renderer.OffsetFactor)
	assert.Equal(t, []string{"B8G8R8A8_UNORM"}, cfg.Renderer.SwizzleFormats)
	assert.Equal(t, float32(4), cfg.Renderer.ZNear)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"shadows":      "[renderer]\nshadows = 3\n",
		"texture mode": "[renderer]\ntexture_mode = \"GL_CUBIC\"\n",
		"znear":        "[renderer]\nznear = 0.0\n",
		"gamma":        "[renderer]\ngamma = -1.0\n",
		"window":       "[window]\nwidth = 0\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Parse([]byte(data), Default()))
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Renderer.Shadows = 1
	data, err := cfg.Encode()
	require.NoError(t, err)

	back := Default()
	require.NoError(t, Parse(data, back))
	assert.Equal(t, cfg, back)
}

func TestWatcherDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tremor.toml")
	require.NoError(t, os.WriteFile(path, []byte("[renderer]\ngamma = 1.0\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[renderer]\ngamma = 1.4\n"), 0o644))

	// the truncate and the write may arrive as separate events
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates():
			if cfg.Renderer.Gamma > 1.3 {
				assert.InDelta(t, 1.4, cfg.Renderer.Gamma, 1e-6)
				return
			}
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}
}

func TestWatcherReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tremor.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[renderer]\nshadows = 9\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-w.Updates():
		case err := <-w.Errors():
			assert.Error(t, err)
			return
		case <-deadline:
			t.Fatal("no error delivered")
		}
	}
}

func TestReplaceKeepsNewest(t *testing.T) {
	ch := make(chan int, 1)
	replace(ch, 1)
	replace(ch, 2)
	assert.Equal(t, 2, <-ch)
}
