package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

// HostBuffer is a persistently mapped, host-coherent transfer source.
type HostBuffer struct {
	Buffer vk.Buffer
	Mapped []byte
	owner  *VulkanBuffer
}

type hostBufferDevice interface {
	CreateHostBuffer(size uint64) (HostBuffer, error)
	DestroyHostBuffer(b HostBuffer)
}

// StagingBuffer is the single upload buffer shared by every transfer. It only
// ever grows; callers must make sure the previous transfer completed before
// writing into it again.
type StagingBuffer struct {
	device  hostBufferDevice
	current HostBuffer
	size    uint64
}

func NewStagingBuffer(device hostBufferDevice) *StagingBuffer {
	return &StagingBuffer{device: device}
}

/**
 * @brief Makes the buffer hold at least size bytes. A smaller or equal
 * request is a no-op, a larger one replaces the buffer with one of exactly
 * size bytes.
 */
func (s *StagingBuffer) EnsureCapacity(size uint64) error {
	if size <= s.size {
		return nil
	}
	next, err := s.device.CreateHostBuffer(size)
	if err != nil {
		return err
	}
	if s.size > 0 {
		s.device.DestroyHostBuffer(s.current)
	}
	core.LogDebug("staging buffer resized %d -> %d bytes", s.size, size)
	s.current = next
	s.size = size
	return nil
}

// Upload grows the buffer to fit data and copies it to the start.
func (s *StagingBuffer) Upload(data []byte) error {
	if err := s.EnsureCapacity(uint64(len(data))); err != nil {
		return err
	}
	copy(s.current.Mapped, data)
	return nil
}

func (s *StagingBuffer) Size() uint64 {
	return s.size
}

func (s *StagingBuffer) Handle() vk.Buffer {
	return s.current.Buffer
}

// Release destroys the buffer. The next EnsureCapacity allocates a new one.
func (s *StagingBuffer) Release() {
	if s.size > 0 {
		s.device.DestroyHostBuffer(s.current)
	}
	s.current = HostBuffer{}
	s.size = 0
}
