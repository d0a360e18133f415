package devserver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
	"github.com/river-cli/river/internal/service"
)

func TestFindPortSkipsBoundPorts(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	taken := ln.Addr().(*net.TCPAddr).Port

	port, err := FindPort("127.0.0.1", taken)
	require.NoError(t, err)
	assert.Greater(t, port, taken)

	_, err = FindPort("127.0.0.1", 0)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryValidation))
}

func TestPrepareURLs(t *testing.T) {
	urls := PrepareURLs("http", "127.0.0.1", 8080, "/")
	assert.Equal(t, "http://127.0.0.1:8080/", urls.LocalURLForBrowser)
	assert.Equal(t, "http://127.0.0.1:8080/", urls.LocalURLForTerminal)
	assert.Empty(t, urls.LanURLForConfig)

	urls = PrepareURLs("https", "0.0.0.0", 9000, "/app/")
	assert.Equal(t, "https://localhost:9000/app/", urls.LocalURLForBrowser)
	if urls.LanURLForConfig != "" {
		assert.Equal(t, "https://"+urls.LanURLForConfig+":9000/app/", urls.LanURLForTerminal)
	}
}

func TestDevClientsAndEntryShapes(t *testing.T) {
	socket := SocketURL("http", "", "", 8080)
	assert.Equal(t, "http://localhost:8080/sockjs-node", socket)
	assert.Equal(t, "https://example.com/sockjs-node", SocketURL("https", "https://example.com/", "10.0.0.2", 8080))
	assert.Equal(t, "http://10.0.0.2:8081/sockjs-node", SocketURL("http", "", "10.0.0.2", 8081))

	clients := DevClients(socket, false)
	assert.Equal(t, []string{"river/client?" + socket, HotDevServer}, clients)
	assert.Equal(t, HotOnlyDevServer, DevClients(socket, true)[1])

	named := AddDevClientToEntry(raw.Entry{Named: map[string][]string{"app": {"main.ts"}, "admin": {"admin.ts"}}}, clients)
	assert.Equal(t, append(append([]string{}, clients...), "main.ts"), named.Named["app"])
	assert.Equal(t, append(append([]string{}, clients...), "admin.ts"), named.Named["admin"])

	list := AddDevClientToEntry(raw.Entry{List: []string{"main.ts"}}, clients)
	assert.Equal(t, append(append([]string{}, clients...), "main.ts"), list.List)

	var got []string
	factory := AddDevClientToEntry(raw.Entry{Factory: func(prepend []string) raw.Entry {
		got = prepend
		return raw.NamedEntry("app", append(prepend, "lazy.ts")...)
	}}, clients)
	assert.Equal(t, clients, got)
	assert.Equal(t, append(append([]string{}, clients...), "lazy.ts"), factory.Named["app"])
}

func TestPrepareProxyShorthand(t *testing.T) {
	publicDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(publicDir, "favicon.ico"), []byte("x"), 0o600))

	proxies, err := PrepareProxy("http://localhost:3000", publicDir, nil)
	require.NoError(t, err)
	require.Len(t, proxies, 1)

	req := func(method, target, accept string) *http.Request {
		r := httptest.NewRequest(method, target, nil)
		if accept != "" {
			r.Header.Set("Accept", accept)
		}
		return r
	}
	assert.NotNil(t, proxies.Find(req(http.MethodGet, "/api/users", "application/json")))
	assert.NotNil(t, proxies.Find(req(http.MethodPost, "/favicon.ico", "")))
	assert.Nil(t, proxies.Find(req(http.MethodGet, "/favicon.ico", "")))
	assert.Nil(t, proxies.Find(req(http.MethodGet, "/sockjs-node/info", "")))
	assert.Nil(t, proxies.Find(req(http.MethodGet, "/dashboard", "text/html,application/xhtml+xml")))

	_, err = PrepareProxy("localhost:3000", publicDir, nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))

	_, err = PrepareProxy(42, publicDir, nil)
	require.Error(t, err)
}

func TestPrepareProxyPerPathForwards(t *testing.T) {
	var gotPath, gotHost string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotHost = r.URL.Path, r.Host
		_, _ = io.WriteString(w, "upstream")
	}))
	defer upstream.Close()

	proxies, err := PrepareProxy(map[string]any{
		"/api": map[string]any{
			"target":      upstream.URL,
			"pathRewrite": map[string]any{"^/api": ""},
		},
		"/api/v2": upstream.URL,
	}, "", nil)
	require.NoError(t, err)
	require.Len(t, proxies, 2)
	assert.Equal(t, "/api/v2", proxies[0].Context)

	r := httptest.NewRequest(http.MethodGet, "http://dev.local/api/users", nil)
	rule := proxies.Find(r)
	require.NotNil(t, rule)
	rec := httptest.NewRecorder()
	rule.ServeHTTP(rec, r)
	assert.Equal(t, "upstream", rec.Body.String())
	assert.Equal(t, "/users", gotPath)
	assert.Equal(t, strings.TrimPrefix(upstream.URL, "http://"), gotHost)

	assert.Nil(t, proxies.Find(httptest.NewRequest(http.MethodGet, "/other", nil)))

	_, err = PrepareProxy(map[string]any{"/api": map[string]any{"ws": true}}, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestInjectScript(t *testing.T) {
	out, err := InjectScript([]byte("<!DOCTYPE html><html><head><title>x</title></head><body><div id=app></div></body></html>"), OverlayPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<div id="app"></div><script src="/__river/overlay.js"></script></body>`)

	out, err = InjectScript([]byte("hello"), OverlayPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<script src="/__river/overlay.js"></script>`)
}

func TestMergeDevServerOptionsProjectWins(t *testing.T) {
	compress := false
	merged := MergeDevServerOptions(
		map[string]any{"port": 9000, "host": "bundler.local", "overlay": true},
		config.DevServerOptions{Port: 3000, Compress: &compress, Extra: map[string]any{"headers": map[string]any{"X": "1"}}},
	)
	assert.Equal(t, 3000, merged["port"])
	assert.Equal(t, "bundler.local", merged["host"])
	assert.Equal(t, true, merged["overlay"])
	assert.Equal(t, false, merged["compress"])
	assert.Contains(t, merged, "headers")
}

func TestHandlerRoutesAndRecoversFromHookPanic(t *testing.T) {
	out := t.TempDir()
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body></body></html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(out, "app.js"), []byte("1"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(public, "robots.txt"), []byte("ok"), 0o600))

	h := newHandler(handlerOptions{
		BaseURL:   "/app/",
		OutputDir: out,
		PublicDir: public,
		Hooks: []plugin.DevServerFunc{func(mux *http.ServeMux) {
			mux.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("hook failed") })
		}},
	})

	get := func(path string, accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusInternalServerError, get("/boom", "").Code)
	assert.Equal(t, "1", get("/app/app.js", "").Body.String())
	assert.Equal(t, "ok", get("/robots.txt", "").Body.String())

	page := get("/app/some/route", "text/html")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), OverlayPath)

	overlay := get(OverlayPath, "")
	assert.Contains(t, overlay.Header().Get("Content-Type"), "javascript")
}

func TestHubEventStream(t *testing.T) {
	hub := NewHub(true, nil, nil)
	hub.Publish(bundler.CompileResult{Stats: &bundler.Stats{Hash: "abc"}})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Shutdown()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var data []string
	for len(data) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
		}
	}
	assert.Equal(t, []string{`{"type":"hot"}`, `{"type":"hash","data":"abc"}`, `{"type":"ok"}`}, data)

	hub.Publish(bundler.CompileResult{Stats: &bundler.Stats{Hash: "def", Errors: bundler.Messages{"boom"}}})
	for len(data) < 5 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
		}
	}
	assert.Equal(t, `{"type":"errors","data":["boom"]}`, data[4])
}

func TestHubWebSocket(t *testing.T) {
	hub := NewHub(false, nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Shutdown()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(bundler.CompileResult{Stats: &bundler.Stats{Hash: "h1", Warnings: bundler.Messages{"careful"}}})
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Type: "hash", Data: "h1"}, msg)
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "warnings", msg.Type)
}

// syncBuffer is read by tests while the compile loop writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

const testPluginID = "test:serve"

func newTestSession(t *testing.T, fake *bundler.Fake, inline *config.ProjectOptions, opts Options) (*Session, *syncBuffer, string) {
	t.Helper()
	for _, k := range []string{"NODE_ENV", "BABEL_ENV", "HOST", "PORT", config.EnvTestMode, config.EnvTestingNodeEnv} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "public"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.ts"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "public", "robots.txt"), []byte("User-agent: *"), 0o600))

	app := plugin.Plugin{ID: testPluginID, Apply: func(api plugin.API, po *config.ProjectOptions) error {
		api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
			cfg.SetMode("development").SetContext(api.Context())
			cfg.Entry("app").Add(api.Resolve("src/main.ts"))
			cfg.Output.SetPath(api.Resolve(po.OutputDir)).SetPublicPath(po.BaseURL)
		})
		api.ConfigureDevServer(func(mux *http.ServeMux) {
			mux.HandleFunc("/__plugin", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "plugin route")
			})
		})
		return nil
	}}

	out := &syncBuffer{}
	svc, err := service.New(root, service.Options{
		Plugins:        []plugin.Plugin{app},
		DisableBuiltIn: true,
		InlineOptions:  inline,
		Bundler:        fake,
		Console:        console.New(out),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Init("development"))

	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == 0 {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		opts.Port = ln.Addr().(*net.TCPAddr).Port
		require.NoError(t, ln.Close())
	}
	return NewSession(svc.API(testPluginID), opts, nil), out, root
}

func TestSessionServesAfterFirstSuccessfulCompile(t *testing.T) {
	fake := &bundler.Fake{
		Stats: []*bundler.Stats{{Hash: "one"}},
		Files: map[string]string{
			"index.html": "<html><body><div id=app></div></body></html>",
			"js/app.js":  "console.log('app')",
		},
	}
	session, out, _ := newTestSession(t, fake, nil, Options{})

	handle, err := session.Start(context.Background())
	require.NoError(t, err)
	defer func() { _ = session.Shutdown(context.Background()) }()

	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/", session.Port), handle.URL)
	assert.Same(t, session, handle.Session)

	cfg := fake.Last()
	require.NotNil(t, cfg)
	assert.True(t, cfg.Watch)
	assert.Equal(t, fmt.Sprintf("river/client?http://localhost:%d/sockjs-node", session.Port), cfg.Entry.Named["app"][0])
	assert.Equal(t, HotDevServer, cfg.Entry.Named["app"][1])

	get := func(path, accept string) (int, string) {
		req, err := http.NewRequest(http.MethodGet, handle.URL+strings.TrimPrefix(path, "/"), nil)
		require.NoError(t, err)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	status, body := get("/js/app.js", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "console.log('app')", body)

	status, body = get("/some/route", "text/html")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, OverlayPath)

	status, body = get("/robots.txt", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User-agent: *", body)

	_, body = get("/__plugin", "")
	assert.Equal(t, "plugin route", body)

	output := out.String()
	assert.Contains(t, output, "App running at:")
	assert.Contains(t, output, "Note that the development build is not optimized.")
}

func TestSessionWaitsForErrorFreeCompile(t *testing.T) {
	fake := &bundler.Fake{Stats: []*bundler.Stats{
		{Hash: "bad", Errors: bundler.Messages{"Syntax error"}},
		{Hash: "good"},
	}}
	session, out, _ := newTestSession(t, fake, nil, Options{})
	t.Setenv(config.EnvTestMode, "true")

	type started struct {
		handle *Handle
		err    error
	}
	done := make(chan started, 1)
	go func() {
		h, err := session.Start(context.Background())
		done <- started{h, err}
	}()

	require.Eventually(t, func() bool { return fake.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)
	select {
	case <-done:
		t.Fatal("session started on a failed compile")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Contains(t, out.String(), "Syntax error")
	assert.NotContains(t, out.String(), "App running at:")

	fake.Recompile()
	var res started
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not start")
	}
	require.NoError(t, res.err)
	defer func() { _ = session.Shutdown(context.Background()) }()
	assert.NotContains(t, out.String(), AppUpdatedSignal)

	fake.Recompile()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), AppUpdatedSignal)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionStartsWhenStreamEndsAfterCleanCompile(t *testing.T) {
	for range 20 {
		session, _, _ := newTestSession(t, &bundler.Fake{CloseAfterFirst: true}, nil, Options{})
		handle, err := session.Start(context.Background())
		require.NoError(t, err)
		require.NotNil(t, handle)
		require.NoError(t, session.Shutdown(context.Background()))
	}
}

func TestSessionFailsWhenStreamEndsWithoutCleanCompile(t *testing.T) {
	fake := &bundler.Fake{
		CloseAfterFirst: true,
		Stats:           []*bundler.Stats{{Errors: bundler.Messages{"Syntax error"}}},
	}
	session, _, _ := newTestSession(t, fake, nil, Options{})
	_, err := session.Start(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryDevServer))
}

func TestSessionPicksNextPortWhenTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	taken := ln.Addr().(*net.TCPAddr).Port

	session, _, _ := newTestSession(t, &bundler.Fake{}, nil, Options{Port: taken})
	handle, err := session.Start(context.Background())
	require.NoError(t, err)
	defer func() { _ = session.Shutdown(context.Background()) }()

	assert.Greater(t, session.Port, taken)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/", session.Port), handle.URL)
}

func TestSessionShutdownRemovesOutput(t *testing.T) {
	session, _, _ := newTestSession(t, &bundler.Fake{Files: map[string]string{"index.html": "<html></html>"}}, nil, Options{})
	_, err := session.Start(context.Background())
	require.NoError(t, err)
	dir := session.outputDir
	assert.DirExists(t, dir)

	require.NoError(t, session.Shutdown(context.Background()))
	assert.NoDirExists(t, dir)
	require.NoError(t, session.Shutdown(context.Background()))
}

func TestSessionRejectsMissingEntry(t *testing.T) {
	session, _, _ := newTestSession(t, &bundler.Fake{}, nil, Options{Entry: "src/missing.ts"})
	_, err := session.Start(context.Background())
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryResolution))
}
