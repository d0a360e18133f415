package bundler

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/river-cli/river/internal/raw"
)

// Fake is an in-memory Bundler. Each compile returns the next queued stats
// (the last one repeats) and writes Files into the configured output path.
type Fake struct {
	mu      sync.Mutex
	Stats   []*Stats
	Err     error
	Files   map[string]string
	Configs []*raw.Config
	// CloseAfterFirst ends every watch stream right after its first compile.
	CloseAfterFirst bool
	watchers        []*fakeWatching
}

var _ Bundler = (*Fake)(nil)

func (f *Fake) Run(_ context.Context, cfg *raw.Config) (*Stats, error) {
	return f.compile(cfg)
}

func (f *Fake) Watch(ctx context.Context, cfg *raw.Config) (Watching, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &fakeWatching{results: make(chan CompileResult, 16), cancel: cancel}
	f.mu.Lock()
	f.watchers = append(f.watchers, w)
	f.mu.Unlock()

	stats, err := f.compile(cfg)
	w.send(CompileResult{Stats: stats, Err: err})
	if f.CloseAfterFirst {
		w.close()
		return w, nil
	}
	go func() {
		<-ctx.Done()
		w.close()
	}()
	return w, nil
}

// Recompile emits another compile result to every open watch.
func (f *Fake) Recompile() {
	f.mu.Lock()
	watchers := append([]*fakeWatching(nil), f.watchers...)
	var cfg *raw.Config
	if n := len(f.Configs); n > 0 {
		cfg = f.Configs[n-1]
	}
	f.mu.Unlock()
	stats, err := f.compile(cfg)
	for _, w := range watchers {
		w.send(CompileResult{Stats: stats, Err: err})
	}
}

// Calls returns the number of compiles so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Configs)
}

// Last returns the most recently compiled config.
func (f *Fake) Last() *raw.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Configs) == 0 {
		return nil
	}
	return f.Configs[len(f.Configs)-1]
}

func (f *Fake) compile(cfg *raw.Config) (*Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configs = append(f.Configs, cfg.Clone())
	if f.Err != nil {
		return nil, f.Err
	}
	if cfg != nil && cfg.Output.Path != "" {
		for name, content := range f.Files {
			path := filepath.Join(cfg.Output.Path, name)
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, err
			}
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				return nil, err
			}
		}
	}
	if len(f.Stats) == 0 {
		return &Stats{}, nil
	}
	s := f.Stats[0]
	if len(f.Stats) > 1 {
		f.Stats = f.Stats[1:]
	}
	return s, nil
}

type fakeWatching struct {
	mu      sync.Mutex
	results chan CompileResult
	cancel  context.CancelFunc
	closed  bool
}

func (w *fakeWatching) Results() <-chan CompileResult { return w.results }

func (w *fakeWatching) Close() error {
	w.cancel()
	w.close()
	return nil
}

func (w *fakeWatching) send(r CompileResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.results <- r
	}
}

func (w *fakeWatching) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.results)
	}
}
