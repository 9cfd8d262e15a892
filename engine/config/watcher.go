package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/core"
)

// Watcher reloads the settings file when it changes and fires
// EVENT_CODE_SETTINGS_RELOADED with the new settings as the event object.
// A file that fails to parse is logged and the previous settings stay.
type Watcher struct {
	path   string
	events *core.EventBus

	mu      sync.RWMutex
	current *Settings

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher loads path and starts watching it.
func NewWatcher(path string, events *core.EventBus) (*Watcher, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create settings watcher")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	// Editors replace the file on save, so the directory is watched.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watch %s", filepath.Dir(abs))
	}
	w := &Watcher{
		path:     abs,
		events:   events,
		current:  s,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) Current() *Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("settings watcher: %s", err)
		case <-w.done:
			return
		}
	}
}

// Reload reads the file again and publishes the result.
func (w *Watcher) Reload() error {
	s, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = s
	w.mu.Unlock()

	core.LogInfo("settings reloaded from %s", w.path)
	if w.events != nil {
		w.events.Fire(core.EVENT_CODE_SETTINGS_RELOADED, w, core.EventContext{Object: s})
	}
	return nil
}

func (w *Watcher) reload() {
	if err := w.Reload(); err != nil {
		core.LogError("keeping previous settings: %s", err)
	}
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.fsnotify.Close()
		w.wg.Wait()
	})
	return err
}
