// Package devserver runs the serve command: it negotiates a port, serves the
// compiled output and the public directory over HTTP(S), proxies unmatched
// requests, and pushes compile results to browsers over the hot-reload
// socket. A Session exclusively owns its listener, its compiler watch and its
// temporary output directory; Shutdown releases all three.
package devserver
