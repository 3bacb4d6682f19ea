/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/tremor/engine"
	"github.com/spaghettifunk/tremor/engine/config"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/testbed"
)

func main() {
	configPath := flag.String("config", "tremor.toml", "path of the TOML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("could not load the configuration: %s", err)
	}
	level, err := core.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		core.LogWarn("%s, using info", err)
	}
	core.SetLogLevel(level)

	tb := testbed.NewTestGame()
	if cfg.Window.Name == "" {
		cfg.Window.Name = tb.Name
	}

	e, err := engine.New(tb.Game, cfg, *configPath)
	if err != nil {
		core.LogFatal("could not create the engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("could not initialize the engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the main loop on the first signal
	go func() {
		<-sigCh
		e.Stop()
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogError("engine stopped: %s", err)
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
	}
}
