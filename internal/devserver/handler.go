package devserver

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzhttp"

	"github.com/river-cli/river/internal/plugin"
)

// MetricsPath serves the Prometheus metrics of the session.
const MetricsPath = "/__river/metrics"

// handler routes dev-server requests: project hooks first, then the
// hot-reload socket, compiled output, proxies, the history fallback and
// finally the public directory.
type handler struct {
	baseURL   string
	outputDir string
	publicDir string
	hooks     *http.ServeMux
	hasHooks  bool
	proxies   Proxies
	hub       http.Handler
	metrics   http.Handler
	public    http.Handler
	logger    *slog.Logger
}

type handlerOptions struct {
	BaseURL   string
	OutputDir string
	PublicDir string
	Hooks     []plugin.DevServerFunc
	Proxies   Proxies
	Hub       http.Handler
	Metrics   http.Handler
	Compress  bool
	Logger    *slog.Logger
}

func newHandler(opts handlerOptions) http.Handler {
	h := &handler{
		baseURL:   opts.BaseURL,
		outputDir: opts.OutputDir,
		publicDir: opts.PublicDir,
		hooks:     http.NewServeMux(),
		hasHooks:  len(opts.Hooks) > 0,
		proxies:   opts.Proxies,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		public:    http.FileServer(http.Dir(opts.PublicDir)),
		logger:    opts.Logger,
	}
	if h.baseURL == "" {
		h.baseURL = "/"
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	for _, hook := range opts.Hooks {
		hook(h.hooks)
	}
	var out http.Handler = h
	if opts.Compress {
		out = gzhttp.GzipHandler(h)
	}
	return withMiddleware(h.logger, out)
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.hasHooks {
		if hook, pattern := h.hooks.Handler(r); pattern != "" {
			hook.ServeHTTP(w, r)
			return
		}
	}

	p := r.URL.Path
	switch {
	case p == SocketPath || strings.HasPrefix(p, SocketPath+"/"):
		if h.hub != nil {
			h.hub.ServeHTTP(w, r)
			return
		}
	case p == OverlayPath:
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		_, _ = w.Write([]byte(OverlayScript))
		return
	case p == MetricsPath && h.metrics != nil:
		h.metrics.ServeHTTP(w, r)
		return
	}

	if file, ok := h.outputFile(p); ok {
		h.serveFile(w, r, file)
		return
	}
	if proxy := h.proxies.Find(r); proxy != nil {
		proxy.ServeHTTP(w, r)
		return
	}
	if isNavigation(r) {
		if index := filepath.Join(h.outputDir, "index.html"); fileExists(index) {
			h.serveFile(w, r, index)
			return
		}
	}
	h.public.ServeHTTP(w, r)
}

// outputFile maps a request path under baseUrl onto the compiled output.
func (h *handler) outputFile(p string) (string, bool) {
	if h.outputDir == "" || !strings.HasPrefix(p, h.baseURL) {
		return "", false
	}
	rel := strings.TrimPrefix(p, h.baseURL)
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel = path.Join(rel, "index.html")
	}
	clean := path.Clean("/" + rel)
	file := filepath.Join(h.outputDir, filepath.FromSlash(clean))
	if !fileExists(file) {
		return "", false
	}
	return file, true
}

func (h *handler) serveFile(w http.ResponseWriter, r *http.Request, file string) {
	if !strings.HasSuffix(file, ".html") {
		http.ServeFile(w, r, file)
		return
	}
	data, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "cannot read "+filepath.Base(file), http.StatusInternalServerError)
		return
	}
	if injected, err := InjectScript(data, OverlayPath); err == nil {
		data = injected
	} else {
		h.logger.Debug("Overlay injection skipped", slog.String("file", file), slog.String("error", err.Error()))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(data)
}

// isNavigation reports whether r is a browser page load that the history
// fallback should answer.
func isNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if !acceptsHTML(r) {
		return false
	}
	return !strings.Contains(path.Base(r.URL.Path), ".")
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
