package config

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/tremor/engine/core"
)

// Watcher reloads the configuration file whenever it changes on disk and
// hands the new value to the frame loop through Updates.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	updates  chan *Config
	errors   chan error
	done     chan struct{}
	isClosed bool
}

func NewWatcher(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatch.Close()
		return nil, err
	}
	// editors replace files on save, so the directory is watched
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		updates:  make(chan *Config, 1),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
	go w.start()
	return w, nil
}

// Updates delivers the latest successfully parsed configuration. Only the
// newest pending value is kept.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Errors delivers reload failures (parse or validation errors).
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return nil
}

func (w *Watcher) start() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				core.LogError("config reload failed: %s", err)
				replace(w.errors, err)
				continue
			}
			core.LogInfo("config %s reloaded", w.path)
			replace(w.updates, cfg)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())
			replace(w.errors, err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// replace puts v into the one slot channel, evicting any unread value.
func replace[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
