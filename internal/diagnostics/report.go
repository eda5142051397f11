package diagnostics

import "fmt"

// VerdictKind is the closed set of server-health outcomes.
type VerdictKind string

const (
	VerdictHealthy    VerdictKind = "healthy"
	VerdictNotRunning VerdictKind = "not_running"
	VerdictPortStolen VerdictKind = "port_stolen"
	VerdictUnknown    VerdictKind = "unknown"
)

// HealthVerdict is the outcome for a single listener, or the single
// not-running outcome when the port has no listener at all.
type HealthVerdict struct {
	Kind     VerdictKind
	Listener *ListenerRecord
	Message  string
	Hint     string
}

// ServerState is the logical server collaborator the reporter consults.
// Holding the socket and having a running server are distinct conditions:
// the OS can attribute the port to this process while the preview server
// object itself is stopped.
type ServerState interface {
	IsRunning() bool
	Webroot() (string, bool)
}

// Verdicts converts classified listeners into verdicts, one per listener, or a
// single not-running verdict for an empty set. It never fails; ambiguous
// input degrades to an unknown verdict.
func Verdicts(classified []OwnedListener, server ServerState) []HealthVerdict {
	if len(classified) == 0 {
		return []HealthVerdict{{
			Kind:    VerdictNotRunning,
			Message: "server is not listening on configured port",
		}}
	}

	verdicts := make([]HealthVerdict, 0, len(classified))
	for _, l := range classified {
		verdicts = append(verdicts, verdictFor(l, server))
	}
	return verdicts
}

func verdictFor(l OwnedListener, server ServerState) HealthVerdict {
	rec := l.ListenerRecord

	if l.Self {
		if server == nil {
			return HealthVerdict{
				Kind:     VerdictUnknown,
				Listener: &rec,
				Message:  fmt.Sprintf("this process holds port %d but no server state is available", rec.Port),
			}
		}
		if !server.IsRunning() {
			return HealthVerdict{
				Kind:     VerdictPortStolen,
				Listener: &rec,
				Message:  "another component is using the port",
			}
		}
		msg := "preview server is running"
		if root, ok := server.Webroot(); ok {
			msg = fmt.Sprintf("preview server is running, serving %s", root)
		}
		return HealthVerdict{Kind: VerdictHealthy, Listener: &rec, Message: msg}
	}

	if rec.PID == 0 {
		return HealthVerdict{
			Kind:     VerdictUnknown,
			Listener: &rec,
			Message:  fmt.Sprintf("port %d is in use by a process that could not be identified", rec.Port),
		}
	}

	name := rec.Name
	if name == "" {
		name = "an unnamed process"
	}
	return HealthVerdict{
		Kind:     VerdictPortStolen,
		Listener: &rec,
		Message:  fmt.Sprintf("port %d is in use by %s (pid %d)", rec.Port, name, rec.PID),
		Hint:     fmt.Sprintf("terminate process %d or configure a different port", rec.PID),
	}
}
