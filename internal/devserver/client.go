package devserver

import (
	"net"
	"strconv"
	"strings"

	"github.com/river-cli/river/internal/raw"
)

// Dev client module names resolved by the bundler.
const (
	ClientModule     = "river/client"
	HotDevServer     = "river/hot/dev-server"
	HotOnlyDevServer = "river/hot/only-dev-server"
)

// SocketURL returns the address browsers use for the hot-reload socket. A
// public URL wins; otherwise the LAN address is used when known.
func SocketURL(protocol, publicURL, lanHost string, port int) string {
	if publicURL != "" {
		return strings.TrimSuffix(publicURL, "/") + SocketPath
	}
	host := lanHost
	if host == "" {
		host = "localhost"
	}
	return protocol + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + SocketPath
}

// DevClients returns the modules loaded ahead of every entry point.
func DevClients(socketURL string, hotOnly bool) []string {
	hot := HotDevServer
	if hotOnly {
		hot = HotOnlyDevServer
	}
	return []string{ClientModule + "?" + socketURL, hot}
}

// AddDevClientToEntry prepends clients to every entry point, handling named
// maps, factories and bare lists.
func AddDevClientToEntry(entry raw.Entry, clients []string) raw.Entry {
	if len(clients) == 0 {
		return entry
	}
	return entry.Prepend(clients)
}
