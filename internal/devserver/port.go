package devserver

import (
	"fmt"
	"net"
	"strconv"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// MaxPort bounds the port search.
const MaxPort = 65535

// FindPort returns the lowest port at or above base that can be bound on
// host. The port is probed and released, so a later bind can still lose a
// race; callers report that as a bind failure.
func FindPort(host string, base int) (int, error) {
	if base <= 0 || base > MaxPort {
		return 0, foundationerrors.ValidationError(fmt.Sprintf("invalid port %d", base)).Build()
	}
	for port := base; port <= MaxPort; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, foundationerrors.DevServerError("no free port found").
		WithContext("host", host).WithContext("from", base).Build()
}
