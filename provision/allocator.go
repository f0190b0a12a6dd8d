package provision

import (
	"fmt"
	"net"

	"github.com/nasif43/bizcalc/interfaces"
)

// Allocator finds a free local port for a new backend instance by probing
// a bounded range in ascending order.
//
// A successful probe binds the port exclusively and releases it immediately,
// so there is an inherent race between the probe and the spawned backend
// actually binding it. The design accepts this under the single-operator,
// low-concurrency assumption rather than reserving the port.
type Allocator struct {
	Start int
	End   int
}

// Allocate returns the first port in [Start, End] that accepts an exclusive
// local bind. Returns *interfaces.NoFreePortError when the range is
// exhausted.
func (a Allocator) Allocate() (int, error) {
	for port := a.Start; port <= a.End; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, &interfaces.NoFreePortError{Start: a.Start, End: a.End}
}
