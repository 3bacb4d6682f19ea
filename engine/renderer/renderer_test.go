package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/tremor/engine/assets"
	"github.com/spaghettifunk/tremor/engine/systems"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	RendererBackend

	active bool
	calls  []string
	pixels []byte
}

func (f *fakeBackend) Active() bool                       { return f.active }
func (f *fakeBackend) BeginFrame()                        { f.calls = append(f.calls, "begin") }
func (f *fakeBackend) EndFrame()                          { f.calls = append(f.calls, "end") }
func (f *fakeBackend) FrameSize() (uint32, uint32)        { return 2, 1 }
func (f *fakeBackend) PipelineCount() int                 { return 0 }
func (f *fakeBackend) PipelineCompileTime() time.Duration { return 0 }
func (f *fakeBackend) ReadPixels() []byte {
	f.calls = append(f.calls, "read")
	return f.pixels
}

func TestDrawFrameOrder(t *testing.T) {
	backend := &fakeBackend{active: true}
	r := New(backend, nil)

	err := r.DrawFrame(func(b RendererBackend, deltaTime float64) error {
		backend.calls = append(backend.calls, "draw")
		return nil
	}, 0.016)
	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "draw", "end"}, backend.calls)
}

func TestDrawFrameEndsFrameOnError(t *testing.T) {
	backend := &fakeBackend{active: true}
	r := New(backend, nil)

	boom := errors.New("boom")
	err := r.DrawFrame(func(RendererBackend, float64) error { return boom }, 0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"begin", "end"}, backend.calls)
}

func TestDrawFrameInactive(t *testing.T) {
	backend := &fakeBackend{}
	r := New(backend, nil)

	require.NoError(t, r.DrawFrame(func(RendererBackend, float64) error {
		t.Fatal("draw called while inactive")
		return nil
	}, 0))
	assert.Empty(t, backend.calls)
}

func TestScreenshotAfterFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	backend := &fakeBackend{active: true, pixels: make([]byte, 2*1*4)}
	r := New(backend, assets.NewScreenshotWriter(dir))

	r.RequestScreenshot()
	require.NoError(t, r.DrawFrame(func(RendererBackend, float64) error { return nil }, 0))
	assert.Equal(t, []string{"begin", "end", "read"}, backend.calls)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Only the requested frame is captured.
	backend.calls = nil
	require.NoError(t, r.DrawFrame(func(RendererBackend, float64) error { return nil }, 0))
	assert.Equal(t, []string{"begin", "end"}, backend.calls)
}

func TestScreenshotOnJobSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	backend := &fakeBackend{active: true, pixels: make([]byte, 2*1*4)}
	r := New(backend, assets.NewScreenshotWriter(dir))

	js, err := systems.NewJobSystem(1, 1)
	require.NoError(t, err)
	r.UseJobs(js)

	r.RequestScreenshot()
	require.NoError(t, r.DrawFrame(func(RendererBackend, float64) error { return nil }, 0))
	require.NoError(t, js.Shutdown())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
