package devserver

import (
	"net"
	"net/url"
	"strconv"
)

// URLs are the addresses of a dev session.
type URLs struct {
	// LanURLForConfig is the bare LAN address, empty when the host is
	// explicit or no private address exists.
	LanURLForConfig     string
	LanURLForTerminal   string
	LocalURLForTerminal string
	LocalURLForBrowser  string
}

// IsUnspecifiedHost reports whether host binds every interface.
func IsUnspecifiedHost(host string) bool {
	return host == "0.0.0.0" || host == "::" || host == ""
}

// PrepareURLs computes the local and LAN addresses for protocol, host, port
// and pathname.
func PrepareURLs(protocol, host string, port int, pathname string) URLs {
	format := func(hostname string) string {
		u := url.URL{Scheme: protocol, Host: net.JoinHostPort(hostname, strconv.Itoa(port)), Path: pathname}
		return u.String()
	}

	var urls URLs
	prettyHost := host
	if IsUnspecifiedHost(host) {
		prettyHost = "localhost"
		if ip := lanIPv4(); ip != "" {
			urls.LanURLForConfig = ip
			urls.LanURLForTerminal = format(ip)
		}
	}
	urls.LocalURLForTerminal = format(prettyHost)
	urls.LocalURLForBrowser = format(prettyHost)
	return urls
}

// lanIPv4 returns the first private IPv4 address of this machine.
func lanIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil && ip.IsPrivate() {
			return ip.String()
		}
	}
	return ""
}
