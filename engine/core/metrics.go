package core

import "time"

const AVG_COUNT = 30

// FrameMetrics keeps a rolling frame time average and a once-per-second FPS
// sample. It is owned by the frame loop.
type FrameMetrics struct {
	counter     int
	times       [AVG_COUNT]float64
	avg         float64
	frames      int
	accumulated float64
	fps         float64
}

func NewFrameMetrics() *FrameMetrics {
	return &FrameMetrics{}
}

func (m *FrameMetrics) Update(frameElapsed time.Duration) {
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	m.times[m.counter] = frameMS
	if m.counter == AVG_COUNT-1 {
		m.avg = 0
		for i := 0; i < AVG_COUNT; i++ {
			m.avg += m.times[i]
		}
		m.avg /= AVG_COUNT
	}
	m.counter = (m.counter + 1) % AVG_COUNT

	m.accumulated += frameMS
	if m.accumulated > 1000 {
		m.fps = float64(m.frames)
		m.accumulated -= 1000
		m.frames = 0
	}
	m.frames++
}

func (m *FrameMetrics) FPS() float64 {
	return m.fps
}

// FrameTime is the average frame time in milliseconds.
func (m *FrameMetrics) FrameTime() float64 {
	return m.avg
}
