package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/config"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// handleStore backs the fake handles the tests hand out. Handles are only
// compared, never dereferenced.
var handleStore [1 << 12]uint64
var nextHandle int

func fakeHandle() unsafe.Pointer {
	nextHandle++
	return unsafe.Pointer(&handleStore[nextHandle%len(handleStore)])
}

// memoryIDs lists the addresses of handles so that slices of them compare
// by identity. testify compares pointers by the values they point to, and
// every Vulkan handle points to the same empty struct type.
func memoryIDs(handles []vk.DeviceMemory) []uintptr {
	ids := make([]uintptr, len(handles))
	for i, h := range handles {
		ids[i] = uintptr(unsafe.Pointer(h))
	}
	return ids
}

type fakeChunkDevice struct {
	memoryIndex uint32
	findErr     error
	allocated   []vk.DeviceMemory
	freed       []vk.DeviceMemory
}

func (d *fakeChunkDevice) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlagBits) (uint32, error) {
	return d.memoryIndex, d.findErr
}

func (d *fakeChunkDevice) AllocateMemory(size uint64, memoryTypeIndex uint32) (vk.DeviceMemory, error) {
	memory := vk.DeviceMemory(fakeHandle())
	d.allocated = append(d.allocated, memory)
	return memory, nil
}

func (d *fakeChunkDevice) FreeMemory(memory vk.DeviceMemory) {
	d.freed = append(d.freed, memory)
}

type fakeHostBufferDevice struct {
	created   []uint64
	destroyed []uint64
}

func (d *fakeHostBufferDevice) CreateHostBuffer(size uint64) (HostBuffer, error) {
	d.created = append(d.created, size)
	return HostBuffer{Buffer: vk.Buffer(fakeHandle()), Mapped: make([]byte, size)}, nil
}

func (d *fakeHostBufferDevice) DestroyHostBuffer(b HostBuffer) {
	d.destroyed = append(d.destroyed, uint64(len(b.Mapped)))
}

type sinkReport struct {
	Severity core.Severity
	Message  string
}

type recordingSink struct {
	errors   []sinkReport
	warnings []string
}

func (s *recordingSink) Error(severity core.Severity, format string, args ...interface{}) {
	s.errors = append(s.errors, sinkReport{Severity: severity, Message: fmt.Sprintf(format, args...)})
}

func (s *recordingSink) Warn(format string, args ...interface{}) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// fakeFrameDevice records the frame commands in call order.
type fakeFrameDevice struct {
	calls      []string
	imageIndex uint32
	draws      []drawCall
	pushSizes  []uint32
	clears     [][]vk.ClearAttachment
	gamma      [3]uint32

	fenceErr   error
	acquireErr error
	idleErr    error
}

func (d *fakeFrameDevice) WaitFrameFence(timeoutNs uint64) error {
	d.calls = append(d.calls, "wait fence")
	return d.fenceErr
}

func (d *fakeFrameDevice) ResetFrameFence() error {
	d.calls = append(d.calls, "reset fence")
	return nil
}

func (d *fakeFrameDevice) AcquireImage() (uint32, error) {
	d.calls = append(d.calls, "acquire")
	return d.imageIndex, d.acquireErr
}

func (d *fakeFrameDevice) BeginRecording(imageIndex uint32) error {
	d.calls = append(d.calls, fmt.Sprintf("begin %d", imageIndex))
	return nil
}

func (d *fakeFrameDevice) ClearAttachments(attachments []vk.ClearAttachment, rect screenRect) {
	d.calls = append(d.calls, "clear")
	d.clears = append(d.clears, attachments)
}

func (d *fakeFrameDevice) BindGeometry(bound BoundGeometry, push []float32, pushSize uint32) {
	d.calls = append(d.calls, "bind")
	d.pushSizes = append(d.pushSizes, pushSize)
}

func (d *fakeFrameDevice) Draw(call drawCall) {
	d.calls = append(d.calls, "draw")
	d.draws = append(d.draws, call)
}

func (d *fakeFrameDevice) EndRecording(gamma [3]uint32) error {
	d.calls = append(d.calls, "end")
	d.gamma = gamma
	return nil
}

func (d *fakeFrameDevice) Submit(imageIndex uint32) error {
	d.calls = append(d.calls, fmt.Sprintf("submit %d", imageIndex))
	return nil
}

func (d *fakeFrameDevice) Present(imageIndex uint32) error {
	d.calls = append(d.calls, fmt.Sprintf("present %d", imageIndex))
	return nil
}

func (d *fakeFrameDevice) WaitIdle() error {
	d.calls = append(d.calls, "wait idle")
	return d.idleErr
}

// newFakeRenderer returns an active renderer whose frames go to frames and
// whose world objects live in host memory.
func newFakeRenderer(frames *fakeFrameDevice) (*VulkanRenderer, *recordingSink) {
	sink := &recordingSink{}
	vr := New("test", config.Default().Renderer, sink)
	vr.context.Active = true
	vr.context.FramebufferWidth, vr.context.FramebufferHeight = 640, 480
	vr.context.Geometry = &GeometryBuffers{
		Stream: NewGeometryStream(make([]byte, VERTEX_BUFFER_SIZE), make([]byte, INDEX_BUFFER_SIZE)),
	}
	vr.world = newWorld(
		NewChunkAllocator(&fakeChunkDevice{}),
		newSamplerCache(func(samplerParams) (vk.Sampler, error) { return vk.Sampler(fakeHandle()), nil }, func(vk.Sampler) {}),
		newPipelineCache(func(metadata.PipelineDef) (vk.Pipeline, error) { return vk.Pipeline(fakeHandle()), nil }, func(vk.Pipeline) {}),
		NewStagingBuffer(&fakeHostBufferDevice{}),
	)
	vr.frames = frames
	return vr, sink
}
