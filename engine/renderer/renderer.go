package renderer

import (
	"time"

	"github.com/spaghettifunk/tremor/engine/assets"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/systems"
)

// Frames between two frame time reports.
const METRICS_LOG_INTERVAL = 600

// DrawFunc records the draws of one frame.
type DrawFunc func(backend RendererBackend, deltaTime float64) error

// Renderer runs frames on a backend and handles the per-frame chores around
// them: metrics and screenshots.
type Renderer struct {
	backend     RendererBackend
	metrics     *core.FrameMetrics
	screenshots *assets.ScreenshotWriter
	jobs        *systems.JobSystem

	screenshotRequested bool
	frames              uint64
}

func New(backend RendererBackend, screenshots *assets.ScreenshotWriter) *Renderer {
	return &Renderer{
		backend:     backend,
		metrics:     core.NewFrameMetrics(),
		screenshots: screenshots,
	}
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

// UseJobs moves screenshot encoding off the frame loop onto js.
func (r *Renderer) UseJobs(js *systems.JobSystem) {
	r.jobs = js
}

func (r *Renderer) Metrics() *core.FrameMetrics {
	return r.metrics
}

// RequestScreenshot captures the next completed frame.
func (r *Renderer) RequestScreenshot() {
	r.screenshotRequested = true
}

/**
 * @brief Begins a frame, lets draw record into it and ends it. A pending
 * screenshot is taken once the frame was presented.
 */
func (r *Renderer) DrawFrame(draw DrawFunc, deltaTime float64) error {
	if !r.backend.Active() {
		return nil
	}
	start := time.Now()

	r.backend.BeginFrame()
	if err := draw(r.backend, deltaTime); err != nil {
		// The frame still has to be submitted to leave the backend idle.
		r.backend.EndFrame()
		return err
	}
	r.backend.EndFrame()

	r.metrics.Update(time.Since(start))
	r.frames++
	if r.frames%METRICS_LOG_INTERVAL == 0 {
		core.LogDebug("frame time %.2fms, %.0f fps, %d pipelines (%s compiling)",
			r.metrics.FrameTime(), r.metrics.FPS(), r.backend.PipelineCount(), r.backend.PipelineCompileTime())
	}

	if r.screenshotRequested {
		r.screenshotRequested = false
		return r.takeScreenshot()
	}
	return nil
}

func (r *Renderer) takeScreenshot() error {
	if r.screenshots == nil {
		return nil
	}
	pixels := r.backend.ReadPixels()
	if pixels == nil {
		return nil
	}
	width, height := r.backend.FrameSize()
	if r.jobs == nil {
		path, err := r.screenshots.Write(pixels, width, height)
		if err == nil {
			core.LogInfo("wrote %s", path)
		}
		return err
	}
	return r.jobs.Submit(systems.JobTask{
		Name: "screenshot",
		OnStart: func() (interface{}, error) {
			return r.screenshots.Write(pixels, width, height)
		},
		OnComplete: func(path interface{}) {
			core.LogInfo("wrote %s", path)
		},
	})
}

func (r *Renderer) Shutdown() {
	r.backend.Shutdown()
}
