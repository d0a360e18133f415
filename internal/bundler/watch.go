package bundler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long the watcher waits after the last change
// before recompiling.
const DebounceInterval = 300 * time.Millisecond

type compileFunc func(ctx context.Context) (*Stats, error)

// watching recompiles on filesystem changes. The loop runs compiles one at a
// time; changes seen during a compile schedule exactly one more.
type watching struct {
	results chan CompileResult
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
	watcher *fsnotify.Watcher
}

func startWatch(ctx context.Context, dirs []string, compile compileFunc) (*watching, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if st, statErr := os.Stat(dir); statErr != nil || !st.IsDir() {
			continue
		}
		addDirsRecursive(fw, dir)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &watching{
		results: make(chan CompileResult),
		cancel:  cancel,
		done:    make(chan struct{}),
		watcher: fw,
	}
	go w.loop(ctx, compile)
	return w, nil
}

func (w *watching) Results() <-chan CompileResult { return w.results }

func (w *watching) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		<-w.done
		err = w.watcher.Close()
	})
	return err
}

func (w *watching) loop(ctx context.Context, compile compileFunc) {
	defer close(w.done)
	defer close(w.results)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !w.compileOnce(ctx, compile) {
				return
			}
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if shouldIgnoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					addDirsRecursive(w.watcher, ev.Name)
				}
			}
			slog.Debug("File change detected", "path", ev.Name, "op", ev.Op.String())
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(DebounceInterval)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

// compileOnce runs compile and delivers the result. It reports false when the
// watch ended before the result could be delivered.
func (w *watching) compileOnce(ctx context.Context, compile compileFunc) bool {
	start := time.Now()
	stats, err := compile(ctx)
	if ctx.Err() != nil {
		return false
	}
	res := CompileResult{Stats: stats, Err: err, Duration: time.Since(start)}
	select {
	case w.results <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || (path != root && strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("watch add failed", "dir", path, "error", err)
			}
		}
		return nil
	})
}

// shouldIgnoreEvent reports whether a change to path is editor noise.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}

func resolveUnder(root, dir string) string {
	if filepath.IsAbs(dir) || root == "" {
		return dir
	}
	return filepath.Join(root, dir)
}
