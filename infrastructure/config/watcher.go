package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainconfig "github.com/felixgeelhaar/modelcache/domain/config"
	"github.com/felixgeelhaar/modelcache/infrastructure/logging"
)

// ReloadCallback is called after the configuration file is reloaded.
// Callbacks receive both the old and new configuration so they can
// apply only the tunables that changed.
type ReloadCallback func(oldConfig, newConfig *domainconfig.CacheConfig)

// Watcher watches a configuration file and reloads it on change.
type Watcher struct {
	path     string
	loader   *Loader
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.RWMutex
	config    *domainconfig.CacheConfig
	callbacks []ReloadCallback

	stop chan struct{}
	done chan struct{}
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce delay applied to file events.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLoader sets the loader used for reloads.
func WithLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = l
	}
}

// NewWatcher loads the configuration file and starts watching it for
// changes. Reloads that fail to parse or validate keep the previous
// configuration.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		loader:   NewLoader(),
		debounce: 500 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := w.loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	w.config = cfg

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrWatchFailed, err)
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("%w: %v", domainconfig.ErrWatchFailed, err)
	}
	w.watcher = fw

	go w.watchLoop()
	return w, nil
}

// Config returns the current configuration.
func (w *Watcher) Config() *domainconfig.CacheConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnReload registers a callback invoked after a successful reload.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Close stops watching the configuration file.
func (w *Watcher) Close() error {
	select {
	case <-w.stop:
		return nil
	default:
	}
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				// Editors save in bursts, reload once per burst.
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.reload)
			}

			// Some editors replace the file on save, which drops the watch.
			if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				go w.rewatch()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().
				Add(logging.Component("config")).
				Add(logging.ErrorField(err)).
				Msg("config watcher error")
		}
	}
}

func (w *Watcher) rewatch() {
	for i := 0; i < 50; i++ {
		select {
		case <-w.stop:
			return
		case <-time.After(100 * time.Millisecond):
		}
		if _, err := os.Stat(w.path); err == nil {
			if err := w.watcher.Add(w.path); err == nil {
				w.reload()
			}
			return
		}
	}
	logging.Warn().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("config file was not recreated")
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload failed, keeping previous config")
		return
	}

	w.mu.Lock()
	old := w.config
	w.config = cfg
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("configuration reloaded")

	for _, cb := range callbacks {
		cb(old, cfg)
	}
}
