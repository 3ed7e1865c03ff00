package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/livecap/livecap-core/pkg/vad"
)

// Tuning holds the VAD and translation parameters a deployment may want
// to adjust without a restart.
type Tuning struct {
	VAD                vad.Config `yaml:"vad"`
	TranslationTimeout float64    `yaml:"translation_timeout_sec"`
}

// TuningLoader loads Tuning from a YAML file and, via Watch, hot-reloads
// it whenever the file changes on disk.
type TuningLoader struct {
	path string

	mu      sync.RWMutex
	current Tuning
}

// NewTuningLoader creates a loader for the YAML file at path. It does not
// load the file; call Load first.
func NewTuningLoader(path string) *TuningLoader {
	return &TuningLoader{path: path, current: Tuning{VAD: vad.DefaultConfig()}}
}

// Load reads and parses the tuning file, replacing the current snapshot
// on success. A missing file is not an error: the existing (or default)
// snapshot is kept.
func (l *TuningLoader) Load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read tuning file %q: %w", l.path, err)
	}

	t := Tuning{VAD: vad.DefaultConfig()}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("config: parse tuning file %q: %w", l.path, err)
	}

	l.mu.Lock()
	l.current = t
	l.mu.Unlock()
	return nil
}

// Current returns the most recently loaded tuning snapshot.
func (l *TuningLoader) Current() Tuning {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Watch reloads the tuning file whenever it is written or recreated,
// until done is closed. It runs on the calling goroutine.
func (l *TuningLoader) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config: watch dir %q: %w", dir, err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != l.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := l.Load(); err != nil {
					slog.Warn("config: reloading tuning file failed", "path", l.path, "err", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
