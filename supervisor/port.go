package supervisor

import (
	"fmt"
	"net"
	"strconv"
)

// FindAvailablePort returns the first TCP port at or after start that is
// free on localhost, trying at most maxTries ports. Used to pick the
// daemon's API and LDK ports before launch; the chosen ports are persisted
// so the rest of the app can build the base URL.
func FindAvailablePort(start uint16, maxTries int) (uint16, error) {
	for i := 0; i < maxTries; i++ {
		port := start + uint16(i)
		addr := net.JoinHostPort(
			"127.0.0.1", strconv.Itoa(int(port)),
		)

		l, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		l.Close()

		if i > 0 {
			log.Infof("Port %d busy, using %d", start, port)
		}

		return port, nil
	}

	return 0, fmt.Errorf("no free port in [%d, %d]", start,
		int(start)+maxTries-1)
}
