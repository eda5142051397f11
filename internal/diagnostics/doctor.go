package diagnostics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Ren-B-7/live-preview.nvim/internal/config"
	"github.com/Ren-B-7/live-preview.nvim/internal/logger"
	"github.com/Ren-B-7/live-preview.nvim/internal/version"
)

// Severity of a single report entry.
type Severity string

const (
	SeverityOK    Severity = "ok"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Entry is a single check outcome. Hint carries actionable remediation text
// and may be empty.
type Entry struct {
	Category string
	Severity Severity
	Message  string
	Hint     string
}

// Report collects entries in check execution order. It is built once per run
// and not mutated afterwards.
type Report struct {
	Entries []Entry
}

// HasErrors reports whether any entry reached error severity.
func (r *Report) HasErrors() bool {
	for _, e := range r.Entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HostEnv is the editor-side environment the doctor probes. The host package
// implements it against the live Neovim handle.
type HostEnv interface {
	// NvimVersion returns the editor version as "major.minor.patch".
	NvimVersion() (string, error)
	// Shell returns the editor's configured shell, empty if unset.
	Shell() string
	// HasExecutable reports whether name resolves on PATH.
	HasExecutable(name string) bool
	// HasModule reports whether the named Lua module can be required.
	HasModule(name string) bool
}

const portCheckTimeout = 3 * time.Second

// Doctor runs the full diagnostic sequence. All collaborators are injected;
// the doctor never constructs or owns a server.
type Doctor struct {
	cfg         *config.Config
	unknownKeys []string
	server      ServerState
	env         HostEnv
	lister      Lister
	selfPID     int32
}

// NewDoctor wires a doctor for one diagnostic run. server may be nil when
// the preview was never started; cfg may be nil when setup was never called.
func NewDoctor(cfg *config.Config, unknownKeys []string, server ServerState, env HostEnv, lister Lister) *Doctor {
	return &Doctor{
		cfg:         cfg,
		unknownKeys: unknownKeys,
		server:      server,
		env:         env,
		lister:      lister,
		selfPID:     int32(os.Getpid()),
	}
}

// Run executes every check and returns the ordered report. A failing check
// contributes an entry and the run continues; nothing here is fatal.
func (d *Doctor) Run(ctx context.Context) *Report {
	report := &Report{}

	d.checkCompatibility(report)
	d.checkShell(report)
	d.checkPickers(report)
	if d.cfg != nil && d.cfg.Port > 0 {
		d.checkPort(ctx, report)
	}
	d.checkConfigKeys(report)

	logger.Doctor.Info().
		Int("entries", len(report.Entries)).
		Bool("errors", report.HasErrors()).
		Msg("diagnostic run complete")
	return report
}

func (d *Doctor) checkCompatibility(r *Report) {
	current, err := d.env.NvimVersion()
	if err != nil {
		r.Entries = append(r.Entries, Entry{
			Category: "compatibility",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("could not determine Neovim version: %v", err),
		})
		return
	}

	if !version.IsCompatible(current, version.NvimCompat) {
		r.Entries = append(r.Entries, Entry{
			Category: "compatibility",
			Severity: SeverityError,
			Message:  fmt.Sprintf("Neovim %s is outside the supported range %s", current, version.NvimCompat),
			Hint:     "upgrade Neovim; the plugin keeps running but is unsupported",
		})
		return
	}

	r.Entries = append(r.Entries, Entry{
		Category: "compatibility",
		Severity: SeverityOK,
		Message:  fmt.Sprintf("Neovim %s is supported", current),
	})
}

func (d *Doctor) checkShell(r *Report) {
	shell := d.env.Shell()
	if shell == "" {
		r.Entries = append(r.Entries, Entry{
			Category: "shell",
			Severity: SeverityWarn,
			Message:  "no shell is configured",
			Hint:     "set the 'shell' option",
		})
		return
	}

	if !d.env.HasExecutable(shell) {
		r.Entries = append(r.Entries, Entry{
			Category: "shell",
			Severity: SeverityError,
			Message:  fmt.Sprintf("configured shell %q was not found on PATH", shell),
			Hint:     "point the 'shell' option at an installed shell",
		})
		return
	}

	r.Entries = append(r.Entries, Entry{
		Category: "shell",
		Severity: SeverityOK,
		Message:  fmt.Sprintf("shell %q is available", shell),
	})
}

func (d *Doctor) checkPickers(r *Report) {
	if d.cfg == nil {
		return
	}
	for _, picker := range d.cfg.Pickers {
		if d.env.HasModule(picker) {
			r.Entries = append(r.Entries, Entry{
				Category: "pickers",
				Severity: SeverityOK,
				Message:  fmt.Sprintf("picker %q is installed", picker),
			})
			continue
		}
		r.Entries = append(r.Entries, Entry{
			Category: "pickers",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("picker %q is not installed", picker),
			Hint:     fmt.Sprintf("install %s or remove it from the pickers option", picker),
		})
	}
}

// checkPort runs the listener -> classify -> report chain for the configured
// port. Lookup failures become an error entry; the distinction between "no
// listener" and "could not check" is preserved.
func (d *Doctor) checkPort(ctx context.Context, r *Report) {
	ctx, cancel := context.WithTimeout(ctx, portCheckTimeout)
	defer cancel()

	records, err := d.lister.Listeners(ctx, d.cfg.Port)
	if err != nil {
		logger.Doctor.Error().Err(err).Int("port", d.cfg.Port).Msg("listener lookup failed")
		r.Entries = append(r.Entries, Entry{
			Category: "server",
			Severity: SeverityError,
			Message:  fmt.Sprintf("could not inspect port %d: %v", d.cfg.Port, err),
			Hint:     "the process table may be restricted on this system",
		})
		return
	}

	for _, verdict := range Verdicts(Classify(records, d.selfPID), d.server) {
		r.Entries = append(r.Entries, Entry{
			Category: "server",
			Severity: verdictSeverity(verdict.Kind),
			Message:  verdict.Message,
			Hint:     verdict.Hint,
		})
	}
}

func (d *Doctor) checkConfigKeys(r *Report) {
	for _, key := range d.unknownKeys {
		r.Entries = append(r.Entries, Entry{
			Category: "config",
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("unrecognized option %q", key),
			Hint:     "remove the option or check for a typo",
		})
	}
}

func verdictSeverity(kind VerdictKind) Severity {
	switch kind {
	case VerdictHealthy:
		return SeverityOK
	case VerdictNotRunning, VerdictPortStolen, VerdictUnknown:
		return SeverityWarn
	default:
		return SeverityWarn
	}
}
