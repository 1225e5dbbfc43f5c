// Package watch re-runs a callback when scene files change on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultPatterns matches scene files.
var DefaultPatterns = []string{"*.yaml", "*.yml"}

// DefaultDelay is how long changes are collected before the callback runs.
const DefaultDelay = 100 * time.Millisecond

// FileWatcher monitors directories and triggers a callback with the files
// that changed
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	dirs      []string
	patterns  []string
	onChange  func([]string) error
	logger    *zap.Logger
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// Options configures a FileWatcher
type Options struct {
	Patterns []string      // File name globs, DefaultPatterns when empty
	Delay    time.Duration // Debounce delay, DefaultDelay when zero
	Logger   *zap.Logger   // Defaults to a no-op logger
}

// NewFileWatcher creates a watcher over dirs
func NewFileWatcher(dirs []string, onChange func([]string) error, opts Options) (*FileWatcher, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("at least one directory is required")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change callback is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(opts.Delay),
		dirs:      dirs,
		patterns:  opts.Patterns,
		onChange:  onChange,
		logger:    opts.Logger,
		stopChan:  make(chan struct{}),
	}

	fw.debouncer.SetCallback(func(files []string) {
		if err := fw.onChange(files); err != nil {
			fw.logger.Warn("handling file changes failed", zap.Error(err))
		}
	})

	return fw, nil
}

// Start begins watching the directories
func (fw *FileWatcher) Start() error {
	for _, dir := range fw.dirs {
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fw.logger.Debug("watching directory", zap.String("dir", dir))
	}

	fw.wg.Add(1)
	go fw.watch()

	return nil
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.stopChan)
		fw.wg.Wait()
		fw.debouncer.Stop()
		err = fw.watcher.Close()
	})
	return err
}

// watch is the main event loop
func (fw *FileWatcher) watch() {
	defer fw.wg.Done()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if fw.shouldIgnore(event.Name) {
				continue
			}

			// Only handle Write and Create events
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && fw.matchesPattern(event.Name) {
				fw.logger.Debug("file changed", zap.String("file", event.Name))
				fw.debouncer.Add(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("watch error", zap.Error(err))

		case <-fw.stopChan:
			return
		}
	}
}

// shouldIgnore skips hidden files and editor backups
func (fw *FileWatcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

// matchesPattern checks if a file matches any of the watch patterns
func (fw *FileWatcher) matchesPattern(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range fw.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Debouncer collects file changes and triggers callbacks after a delay
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add adds a file and restarts the delay
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush triggers the callback with the accumulated files, sorted
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels any pending flush
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
