// Package watch turns filesystem activity under the transcript roots
// into debounced refresh requests.
package watch

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the
// callback fires. Transcript files are appended in bursts; one refresh
// per burst is enough.
const DefaultDebounce = 2 * time.Second

// Watcher watches the roots recursively and invokes onChange once per
// burst of .jsonl activity. Directories created later are picked up and
// watched too.
type Watcher struct {
	roots    []string
	debounce time.Duration
	onChange func()
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer

	fsw  *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(roots []string, debounce time.Duration, onChange func(), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		roots:    roots,
		debounce: debounce,
		onChange: onChange,
		log:      logger,
		stop:     make(chan struct{}),
	}
}

// Start registers the existing directory tree and begins delivering
// events. Roots that do not exist yet are skipped; the periodic refresh
// covers them until they appear.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.fsw = fsw

	for _, root := range w.roots {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		w.addTree(root)
	}

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop ends event delivery and cancels any pending callback.
func (w *Watcher) Stop() {
	close(w.stop)
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch error", "err", err)
		case <-w.stop:
			w.fsw.Close()
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// New project directory: watch it, and assume transcript
			// writes follow shortly.
			w.addTree(event.Name)
			w.arm()
			return
		}
	}
	if filepath.Ext(event.Name) != ".jsonl" {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.arm()
	}
}

// arm starts the debounce countdown, restarting it if already running.
func (w *Watcher) arm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if aerr := w.fsw.Add(path); aerr != nil {
				w.log.Debug("watch add failed", "dir", path, "err", aerr)
			}
		}
		return nil
	})
}
