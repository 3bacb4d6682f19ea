package platform

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Key identifies the keys the engine reacts to.
type Key int

const (
	KEY_UNKNOWN Key = iota
	KEY_ESCAPE
	KEY_F12
)

// KeyHandler is called for every key press.
type KeyHandler func(key Key)

type Platform struct {
	Window *glfw.Window

	onKey KeyHandler
}

func New() *Platform {
	return &Platform{
		Window: nil,
	}
}

func (p *Platform) Startup(applicationName string, x, y int32, width, height uint32) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return fmt.Errorf("glfw: vulkan is not supported")
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create window: %w", err)
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	startTime = glfw.GetTime()
	core.LogInfo("window %q created (%dx%d)", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events and reports whether the
// window is still open.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// RequestClose makes the next PumpMessages report a closed window.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

func (p *Platform) SetKeyHandler(handler KeyHandler) {
	p.onKey = handler
}

// GetAbsoluteTime returns the seconds elapsed since the window was created.
func (p *Platform) GetAbsoluteTime() float64 {
	return glfw.GetTime() - startTime
}

func (p *Platform) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (p *Platform) InstanceProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (p *Platform) RequiredInstanceExtensions() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.Window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, err
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

func (p *Platform) FramebufferSize() (uint32, uint32) {
	width, height := p.Window.GetFramebufferSize()
	return uint32(width), uint32(height)
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press || p.onKey == nil {
		return
	}
	p.onKey(translateKey(key))
}

func translateKey(key glfw.Key) Key {
	switch key {
	case glfw.KeyEscape:
		return KEY_ESCAPE
	case glfw.KeyF12:
		return KEY_F12
	}
	return KEY_UNKNOWN
}
