package diagnostics

import (
	"context"
	"fmt"

	gnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// ListenerRecord describes one OS process bound to a TCP port in LISTEN
// state. PID 0 means the platform could not resolve the owner.
type ListenerRecord struct {
	PID  int32
	Name string
	Port int
}

// LookupError reports that the OS connection table could not be read at all,
// as opposed to reading it and finding no listener.
type LookupError struct {
	Port int
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("listener lookup on port %d: %v", e.Port, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Lister enumerates the processes listening on a TCP port.
type Lister interface {
	Listeners(ctx context.Context, port int) ([]ListenerRecord, error)
}

// PortLister reads the OS connection table through gopsutil.
type PortLister struct{}

// Listeners returns every process holding a LISTEN socket on port. A port
// outside 1-65535 yields an empty result rather than an error; a failure to
// read the connection table yields a *LookupError so callers can tell "no
// listener" from "could not check". Multiple records are possible on
// platforms with SO_REUSEPORT-style sharing.
func (PortLister) Listeners(ctx context.Context, port int) ([]ListenerRecord, error) {
	if port < 1 || port > 65535 {
		return nil, nil
	}

	conns, err := gnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return nil, &LookupError{Port: port, Err: err}
	}

	var records []ListenerRecord
	for _, conn := range conns {
		if conn.Status != "LISTEN" || int(conn.Laddr.Port) != port {
			continue
		}

		rec := ListenerRecord{PID: conn.Pid, Port: port}
		if conn.Pid > 0 {
			rec.Name = processName(ctx, conn.Pid)
		}
		records = append(records, rec)
	}
	return records, nil
}

// processName resolves the executable name for a PID, best effort. The
// process can exit between the connection scan and this call.
func processName(ctx context.Context, pid int32) string {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}
	return name
}
