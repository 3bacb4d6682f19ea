package engine

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/tremor/engine/assets"
	"github.com/spaghettifunk/tremor/engine/config"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/platform"
	"github.com/spaghettifunk/tremor/engine/renderer"
	"github.com/spaghettifunk/tremor/engine/renderer/vulkan"
	"github.com/spaghettifunk/tremor/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

const (
	JOB_WORKERS    = 2
	JOB_QUEUE_SIZE = 8
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	cfg          *config.Config
	watcher      *config.Watcher
	isRunning    bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     *renderer.Renderer
	jobSystem    *systems.JobSystem
	clock        *core.Clock
	lastTime     time.Duration
}

// New wires the engine for g. When configPath is not empty the file is
// watched and runtime-safe renderer settings are applied between frames.
func New(g *Game, cfg *config.Config, configPath string) (*Engine, error) {
	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}

	var watcher *config.Watcher
	if configPath != "" {
		if watcher, err = config.NewWatcher(configPath); err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
			watcher = nil
		}
	}

	js, err := systems.NewJobSystem(JOB_WORKERS, JOB_QUEUE_SIZE)
	if err != nil {
		return nil, err
	}

	backend := vulkan.New(g.Name, cfg.Renderer, core.LogSink{})
	r := renderer.New(backend, assets.NewScreenshotWriter(cfg.Renderer.ScreenshotDir))
	r.UseJobs(js)
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		cfg:          cfg,
		watcher:      watcher,
		platform:     platform.New(),
		assetManager: am,
		renderer:     r,
		jobSystem:    js,
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	w := e.cfg.Window
	if err := e.platform.Startup(w.Name, w.X, w.Y, w.Width, w.Height); err != nil {
		return err
	}
	e.platform.SetKeyHandler(e.onKey)

	if err := e.assetManager.Initialize(e.cfg.Renderer.AssetDir); err != nil {
		return fmt.Errorf("assets: %w", err)
	}

	backend := e.renderer.Backend()
	if err := backend.Initialize(e.platform, e.assetManager); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(backend, e.assetManager); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.lastTime = 0

	for e.isRunning {
		if !e.platform.PumpMessages() {
			e.isRunning = false
			break
		}
		e.applyConfigUpdates()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				e.isRunning = false
				break
			}
		}

		if err := e.renderer.DrawFrame(e.gameInstance.FnRender, delta); err != nil {
			core.LogError("Game render failed, shutting down: %s", err)
			e.isRunning = false
			break
		}

		// Update last time
		e.lastTime = currentTime
	}
	return nil
}

// applyConfigUpdates drains pending configuration reloads. It only runs
// between frames.
func (e *Engine) applyConfigUpdates() {
	if e.watcher == nil {
		return
	}
	select {
	case cfg := <-e.watcher.Updates():
		if cfg.Log.Level != e.cfg.Log.Level {
			if level, err := core.ParseLogLevel(cfg.Log.Level); err == nil {
				core.SetLogLevel(level)
			}
		}
		e.renderer.Backend().ApplyConfig(cfg.Renderer)
		e.cfg = cfg
	case err := <-e.watcher.Errors():
		core.LogWarn("keeping the current configuration: %s", err)
	default:
	}
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	if e.watcher != nil {
		e.watcher.Close()
	}
	backend := e.renderer.Backend()
	if e.gameInstance.FnShutdown != nil && backend.Active() {
		if err := e.gameInstance.FnShutdown(backend); err != nil {
			core.LogError(err.Error())
		}
	}
	e.renderer.Shutdown()
	if err := e.jobSystem.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.assetManager.Close(); err != nil {
		core.LogError(err.Error())
	}
	return e.platform.Shutdown()
}

// Stop makes Run return after the current frame. Safe to call from any
// goroutine.
func (e *Engine) Stop() {
	e.platform.RequestClose()
}

func (e *Engine) onKey(key platform.Key) {
	switch key {
	case platform.KEY_ESCAPE:
		core.LogInfo("escape pressed, shutting down.")
		e.platform.RequestClose()
	case platform.KEY_F12:
		e.renderer.RequestScreenshot()
	}
}
