package core

import (
	"errors"
	"fmt"
)

var (
	ErrCapacityExhausted = errors.New("fixed capacity exhausted")
	ErrStreamOverflow    = errors.New("geometry stream overflow")
	ErrUnsupportedState  = errors.New("unsupported render state")
	ErrMissingExtension  = errors.New("required extension not available")
	ErrMissingFeature    = errors.New("required device feature not available")
	ErrNoDevice          = errors.New("no vulkan capable device found")
	ErrNoQueueFamily     = errors.New("no queue family with graphics and present support")
	ErrNoMemoryType      = errors.New("no memory type with requested properties")
	ErrNoDepthFormat     = errors.New("no supported depth format")
	ErrSurfaceUsage      = errors.New("surface lacks required image usage")
	ErrFenceTimeout      = errors.New("frame fence wait timed out")
	ErrShaderSize        = errors.New("shader bytecode size is not a multiple of 4")
	ErrInvalidInput      = errors.New("invalid draw input")
	ErrVulkan            = errors.New("vulkan call failed")
)

// Severity selects how the sink treats an error. Both tiers end the process
// with the default sink.
type Severity int

const (
	// SeverityFatal is raised by initialization and device level failures.
	SeverityFatal Severity = iota
	// SeverityDrop is raised by exhausted tables, stream overflows and invalid
	// state bits coming from the scene layer.
	SeverityDrop
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityDrop:
		return "drop"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ErrorSink receives the unrecoverable errors of the renderer and the
// non-fatal configuration notices.
type ErrorSink interface {
	Error(severity Severity, format string, args ...interface{})
	Warn(format string, args ...interface{})
}

// LogSink is the process-ending ErrorSink backed by the engine logger.
type LogSink struct{}

func (LogSink) Error(severity Severity, format string, args ...interface{}) {
	LogFatal("[%s] "+format, append([]interface{}{severity}, args...)...)
}

func (LogSink) Warn(format string, args ...interface{}) {
	LogWarn(format, args...)
}
