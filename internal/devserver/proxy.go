package devserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// SocketPath is the hot-reload endpoint. It is never proxied.
const SocketPath = "/sockjs-node"

// ProxyOptions configure one proxied path.
type ProxyOptions struct {
	Target       string            `mapstructure:"target"`
	ChangeOrigin *bool             `mapstructure:"changeOrigin"`
	WS           bool              `mapstructure:"ws"`
	PathRewrite  map[string]string `mapstructure:"pathRewrite"`
}

// ProxyRule forwards matching requests to a target.
type ProxyRule struct {
	// Context is the path prefix the rule applies to. Empty for the string
	// shorthand, which uses Match instead.
	Context string
	Options ProxyOptions
	Match   func(r *http.Request) bool
	handler http.Handler
}

// ServeHTTP forwards r.
func (p *ProxyRule) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Proxies is an ordered rule list.
type Proxies []*ProxyRule

// Find returns the first rule matching r.
func (ps Proxies) Find(r *http.Request) *ProxyRule {
	for _, p := range ps {
		if p.Match(r) {
			return p
		}
	}
	return nil
}

// PrepareProxy builds proxy rules from the devServer.proxy option. A string
// forwards every request that is neither a public file, the hot-reload
// socket nor an HTML navigation. A map configures one rule per path prefix,
// applied in sorted prefix order with longer prefixes first.
func PrepareProxy(spec any, publicDir string, logger *slog.Logger) (Proxies, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		opts := ProxyOptions{Target: v, WS: true}
		rule, err := newProxyRule("", opts, logger)
		if err != nil {
			return nil, err
		}
		rule.Match = func(r *http.Request) bool {
			if r.Method != http.MethodGet {
				return true
			}
			return mayProxy(r.URL.Path, publicDir) && !acceptsHTML(r)
		}
		return Proxies{rule}, nil
	case map[string]any:
		contexts := make([]string, 0, len(v))
		for k := range v {
			contexts = append(contexts, k)
		}
		sort.Slice(contexts, func(i, j int) bool {
			if len(contexts[i]) != len(contexts[j]) {
				return len(contexts[i]) > len(contexts[j])
			}
			return contexts[i] < contexts[j]
		})
		rules := make(Proxies, 0, len(contexts))
		for _, ctxPath := range contexts {
			var opts ProxyOptions
			if target, ok := v[ctxPath].(string); ok {
				opts.Target = target
			} else if err := mapstructure.Decode(v[ctxPath], &opts); err != nil {
				return nil, foundationerrors.ConfigError("invalid devServer.proxy entry").
					WithContext("context", ctxPath).WithCause(err).Build()
			}
			rule, err := newProxyRule(ctxPath, opts, logger)
			if err != nil {
				return nil, err
			}
			prefix := ctxPath
			rule.Match = func(r *http.Request) bool {
				return strings.HasPrefix(r.URL.Path, prefix)
			}
			rules = append(rules, rule)
		}
		return rules, nil
	default:
		return nil, foundationerrors.ConfigError("When specified, \"proxy\" must be a string or an object.").
			WithContext("proxy", fmt.Sprintf("%T", spec)).Build()
	}
}

func newProxyRule(ctxPath string, opts ProxyOptions, logger *slog.Logger) (*ProxyRule, error) {
	if opts.Target == "" {
		return nil, foundationerrors.ConfigError("devServer.proxy is missing the \"target\" option").
			WithContext("context", ctxPath).Build()
	}
	if !strings.HasPrefix(opts.Target, "http://") && !strings.HasPrefix(opts.Target, "https://") {
		return nil, foundationerrors.ConfigError("devServer.proxy target must start with http:// or https://").
			WithContext("target", opts.Target).Build()
	}
	target, err := url.Parse(opts.Target)
	if err != nil {
		return nil, foundationerrors.ConfigError("invalid devServer.proxy target").
			WithContext("target", opts.Target).WithCause(err).Build()
	}
	rewrites, err := compileRewrites(opts.PathRewrite)
	if err != nil {
		return nil, err
	}
	changeOrigin := opts.ChangeOrigin == nil || *opts.ChangeOrigin

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if !changeOrigin {
				pr.Out.Host = pr.In.Host
			}
			for _, rw := range rewrites {
				pr.Out.URL.Path = rw.pattern.ReplaceAllString(pr.Out.URL.Path, rw.replacement)
			}
			pr.Out.URL.RawPath = ""
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("Proxy error",
				slog.String("path", r.URL.Path),
				slog.String("target", opts.Target),
				slog.String("error", err.Error()))
			http.Error(w, fmt.Sprintf("Proxy error: Could not proxy request %s to %s.", r.URL.Path, opts.Target), http.StatusBadGateway)
		},
	}
	var handler http.Handler = rp
	if !opts.WS {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isUpgrade(r) {
				http.Error(w, "websocket proxying disabled", http.StatusBadRequest)
				return
			}
			rp.ServeHTTP(w, r)
		})
	}
	return &ProxyRule{Context: ctxPath, Options: opts, handler: handler}, nil
}

type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

func compileRewrites(m map[string]string) ([]rewrite, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]rewrite, 0, len(keys))
	for _, k := range keys {
		re, err := regexp.Compile(k)
		if err != nil {
			return nil, foundationerrors.ConfigError("invalid devServer.proxy pathRewrite pattern").
				WithContext("pattern", k).WithCause(err).Build()
		}
		out = append(out, rewrite{pattern: re, replacement: m[k]})
	}
	return out, nil
}

// mayProxy reports whether pathname is neither a public file nor the socket.
func mayProxy(pathname, publicDir string) bool {
	if strings.HasPrefix(pathname, SocketPath) {
		return false
	}
	if publicDir == "" {
		return true
	}
	clean := filepath.FromSlash(strings.TrimPrefix(pathname, "/"))
	if clean == "" {
		return true
	}
	info, err := os.Stat(filepath.Join(publicDir, clean))
	return err != nil || info.IsDir()
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
