package diagnostics

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ren-B-7/live-preview.nvim/internal/config"
)

type stubEnv struct {
	version    string
	versionErr error
	shell      string
	executable bool
	modules    map[string]bool
}

func (e *stubEnv) NvimVersion() (string, error) { return e.version, e.versionErr }

func (e *stubEnv) Shell() string { return e.shell }

func (e *stubEnv) HasExecutable(string) bool { return e.executable }

func (e *stubEnv) HasModule(name string) bool { return e.modules[name] }

type stubLister struct {
	records []ListenerRecord
	err     error

	gotPort int
}

func (l *stubLister) Listeners(_ context.Context, port int) ([]ListenerRecord, error) {
	l.gotPort = port
	return l.records, l.err
}

func healthyEnv() *stubEnv {
	return &stubEnv{version: "0.11.2", shell: "bash", executable: true, modules: map[string]bool{}}
}

func testConfig(port int) *config.Config {
	cfg := config.Default()
	cfg.Port = port
	return cfg
}

func categories(r *Report) []string {
	var out []string
	for _, e := range r.Entries {
		out = append(out, e.Category)
	}
	return out
}

func entriesFor(r *Report, category string) []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func TestDoctorRunOrdering(t *testing.T) {
	env := healthyEnv()
	env.modules["telescope"] = true
	cfg := testConfig(3000)
	cfg.Pickers = []string{"telescope"}

	lister := &stubLister{}
	doctor := NewDoctor(cfg, []string{"bogusKey"}, &fakeServer{}, env, lister)
	report := doctor.Run(context.Background())

	assert.Equal(t,
		[]string{"compatibility", "shell", "pickers", "server", "config"},
		categories(report))
	assert.Equal(t, 3000, lister.gotPort)
}

func TestDoctorAllHealthy(t *testing.T) {
	records := []ListenerRecord{{PID: int32(os.Getpid()), Name: "live-preview-nvim", Port: 3000}}
	doctor := NewDoctor(testConfig(3000), nil, &fakeServer{running: true, webroot: "/tmp"},
		healthyEnv(), &stubLister{records: records})

	report := doctor.Run(context.Background())

	assert.False(t, report.HasErrors())
	for _, e := range report.Entries {
		assert.Equal(t, SeverityOK, e.Severity, "entry %q", e.Message)
	}
}

func TestDoctorVersionIncompatible(t *testing.T) {
	env := healthyEnv()
	env.version = "0.9.5"

	doctor := NewDoctor(testConfig(0), nil, nil, env, &stubLister{})
	report := doctor.Run(context.Background())

	compat := entriesFor(report, "compatibility")
	require.Len(t, compat, 1)
	assert.Equal(t, SeverityError, compat[0].Severity)
	assert.Contains(t, compat[0].Message, "0.9.5")
	assert.True(t, report.HasErrors())
}

func TestDoctorVersionUnavailable(t *testing.T) {
	env := healthyEnv()
	env.version = ""
	env.versionErr = errors.New("rpc channel closed")

	doctor := NewDoctor(testConfig(0), nil, nil, env, &stubLister{})
	report := doctor.Run(context.Background())

	compat := entriesFor(report, "compatibility")
	require.Len(t, compat, 1)
	assert.Equal(t, SeverityWarn, compat[0].Severity)
}

func TestDoctorShellMissing(t *testing.T) {
	env := healthyEnv()
	env.shell = "fish"
	env.executable = false

	doctor := NewDoctor(testConfig(0), nil, nil, env, &stubLister{})
	report := doctor.Run(context.Background())

	shell := entriesFor(report, "shell")
	require.Len(t, shell, 1)
	assert.Equal(t, SeverityError, shell[0].Severity)
	assert.Contains(t, shell[0].Message, "fish")
}

func TestDoctorPickerChecks(t *testing.T) {
	env := healthyEnv()
	env.modules["telescope"] = true
	cfg := testConfig(0)
	cfg.Pickers = []string{"telescope", "fzf-lua"}

	doctor := NewDoctor(cfg, nil, nil, env, &stubLister{})
	report := doctor.Run(context.Background())

	pickers := entriesFor(report, "pickers")
	require.Len(t, pickers, 2)
	assert.Equal(t, SeverityOK, pickers[0].Severity)
	assert.Equal(t, SeverityWarn, pickers[1].Severity)
	assert.Contains(t, pickers[1].Message, "fzf-lua")
	assert.Contains(t, pickers[1].Hint, "fzf-lua")
}

func TestDoctorPortChainSkippedWithoutPort(t *testing.T) {
	lister := &stubLister{err: errors.New("must not be called")}
	doctor := NewDoctor(testConfig(0), nil, nil, healthyEnv(), lister)

	report := doctor.Run(context.Background())

	assert.Empty(t, entriesFor(report, "server"))
	assert.Equal(t, 0, lister.gotPort)
}

func TestDoctorLookupFailureDoesNotStopRun(t *testing.T) {
	lister := &stubLister{err: &LookupError{Port: 3000, Err: errors.New("proc unreadable")}}
	doctor := NewDoctor(testConfig(3000), []string{"bogusKey"}, nil, healthyEnv(), lister)

	report := doctor.Run(context.Background())

	server := entriesFor(report, "server")
	require.Len(t, server, 1)
	assert.Equal(t, SeverityError, server[0].Severity)
	assert.Contains(t, server[0].Message, "3000")

	// checks after the failing one still ran
	cfgEntries := entriesFor(report, "config")
	require.Len(t, cfgEntries, 1)
	assert.Contains(t, cfgEntries[0].Message, "bogusKey")
}

func TestDoctorNotRunningVerdict(t *testing.T) {
	doctor := NewDoctor(testConfig(3000), nil, &fakeServer{}, healthyEnv(), &stubLister{})
	report := doctor.Run(context.Background())

	server := entriesFor(report, "server")
	require.Len(t, server, 1)
	assert.Equal(t, SeverityWarn, server[0].Severity)
	assert.Equal(t, "server is not listening on configured port", server[0].Message)
}

func TestDoctorForeignListenerVerdict(t *testing.T) {
	lister := &stubLister{records: []ListenerRecord{{PID: 9999, Name: "python", Port: 3000}}}
	doctor := NewDoctor(testConfig(3000), nil, &fakeServer{}, healthyEnv(), lister)

	report := doctor.Run(context.Background())

	server := entriesFor(report, "server")
	require.Len(t, server, 1)
	assert.Equal(t, SeverityWarn, server[0].Severity)
	assert.Contains(t, server[0].Message, "python")
	assert.Contains(t, server[0].Hint, "9999")
}

func TestDoctorUnknownConfigKeys(t *testing.T) {
	doctor := NewDoctor(testConfig(0), []string{"bogusKey", "other"}, nil, healthyEnv(), &stubLister{})
	report := doctor.Run(context.Background())

	cfgEntries := entriesFor(report, "config")
	require.Len(t, cfgEntries, 2)
	for _, e := range cfgEntries {
		assert.Equal(t, SeverityWarn, e.Severity)
	}
	assert.Contains(t, cfgEntries[0].Message, "bogusKey")
}

func TestDoctorNilConfig(t *testing.T) {
	// Setup never ran: no port chain, no picker checks, no panic.
	doctor := NewDoctor(nil, nil, nil, healthyEnv(), &stubLister{})
	report := doctor.Run(context.Background())

	assert.Equal(t, []string{"compatibility", "shell"}, categories(report))
}
