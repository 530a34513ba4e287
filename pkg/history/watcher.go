package history

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher observes the history directory for records rewritten by another
// process instance and notifies the store. Session records are rewritten
// whole on every save, so a debounce window collapses the write bursts.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   zerolog.Logger
	onChange func()
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
}

// NewWatcher creates a watcher over the store's history directory. onChange
// fires after the debounce window; callers typically pass store.Invalidate.
func NewWatcher(historyDir string, logger zerolog.Logger, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		logger:   logger,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}

	if err := fsw.Add(historyDir); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()

	logger.Info().Str("dir", historyDir).Msg("History watcher started")

	return w, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			name := filepath.Base(event.Name)
			if !strings.HasPrefix(name, "sessions_") || !strings.HasSuffix(name, ".json") {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				w.logger.Debug().
					Str("file", name).
					Str("op", event.Op.String()).
					Msg("Session record changed on disk")

				w.scheduleNotify()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("History watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) scheduleNotify() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if w.onChange != nil {
			w.onChange()
		}
	})
}
