package host

import (
	"bytes"
	"context"
	"fmt"

	"github.com/neovim/go-client/nvim"
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/Ren-B-7/live-preview.nvim/internal/app"
	"github.com/Ren-B-7/live-preview.nvim/internal/config"
	"github.com/Ren-B-7/live-preview.nvim/internal/contracts"
	"github.com/Ren-B-7/live-preview.nvim/internal/diagnostics"
	"github.com/Ren-B-7/live-preview.nvim/internal/logger"
	"github.com/Ren-B-7/live-preview.nvim/internal/version"
)

// Commands is a state container for Neovim command handlers.
// It tracks the active buffer and delegates preview functionality
// to the LivePreview service.
type Commands struct {
	cfg         *config.Config
	unknownKeys []string

	preview *app.LivePreview
	active  bool

	nv *nvim.Nvim

	lastCursorLine int
	lastCursorCol  int
}

func NewCommands() *Commands {
	return &Commands{cfg: config.Default()}
}

// Register registers Neovim command/function handlers.
func Register(p *plugin.Plugin) error {
	commands := NewCommands()

	p.Handle("poll", func() (string, error) {
		return "ok", nil
	})

	p.HandleCommand(&plugin.CommandOptions{
		Name: "LivePreviewStart",
	}, commands.LivePreviewStart)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "LivePreviewStop",
	}, commands.LivePreviewStop)

	p.HandleCommand(&plugin.CommandOptions{
		Name: "LivePreviewHealth",
	}, commands.LivePreviewHealth)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "LivePreviewInternalSetup",
	}, commands.LivePreviewSetup)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "LivePreviewInternalUpdate",
	}, commands.LivePreviewUpdate)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "LivePreviewInternalCursor",
	}, commands.LivePreviewCursor)

	p.HandleFunction(&plugin.FunctionOptions{
		Name: "LivePreviewInternalHealth",
	}, commands.LivePreviewHealthEntries)

	return nil
}

// LivePreviewSetup receives the options table from the Lua side. Unknown
// keys are kept for the doctor to report; they never fail the setup.
func (c *Commands) LivePreviewSetup(v *nvim.Nvim, args []interface{}) error {
	raw := map[string]interface{}{}
	if len(args) > 0 {
		if m, ok := args[0].(map[string]interface{}); ok {
			raw = m
		}
	}

	cfg, unknown, err := config.Decode(raw)
	if err != nil {
		return fmt.Errorf("live-preview setup: %w", err)
	}

	c.cfg = cfg
	c.unknownKeys = unknown
	logger.Host.Info().
		Int("port", cfg.Port).
		Strs("unknown_keys", unknown).
		Msg("configured")
	return nil
}

func (c *Commands) LivePreviewStart(v *nvim.Nvim) error {
	if c.preview == nil {
		preview := app.NewLivePreview(c.cfg.Addr())
		preview.SetGoToLineHandler(func(msg contracts.GoToLineMessage) {
			c.handleGoToLine(msg)
		})
		c.preview = preview
	}

	c.active = true
	c.lastCursorLine = 0
	c.lastCursorCol = 0
	c.nv = v

	if current, err := (&nvimEnv{v: v}).NvimVersion(); err == nil {
		if !version.IsCompatible(current, version.NvimCompat) {
			logger.Host.Warn().
				Str("nvim", current).
				Str("supported", version.NvimCompat).
				Msg("running on an unsupported Neovim version")
		}
	}

	if err := c.publishBuffer(v); err != nil {
		return err
	}

	if err := c.publishCursor(v); err != nil {
		return err
	}

	return v.Command(fmt.Sprintf(`echom "[live-preview] preview: %s"`, c.preview.URL()))
}

func (c *Commands) LivePreviewStop(v *nvim.Nvim) error {
	c.active = false
	if c.preview == nil {
		return nil
	}
	return c.preview.Stop()
}

// LivePreviewHealth runs the diagnostic sequence and prints one line per
// entry through Neovim's message area.
func (c *Commands) LivePreviewHealth(v *nvim.Nvim) error {
	report := c.runDoctor(v)
	for _, e := range report.Entries {
		line := fmt.Sprintf("[live-preview] %s %s: %s", e.Severity, e.Category, e.Message)
		if e.Hint != "" {
			line += " -> " + e.Hint
		}
		cmd := fmt.Sprintf("echohl %s | echom %q | echohl None", severityHighlight(e.Severity), line)
		if err := v.Command(cmd); err != nil {
			return err
		}
	}
	return nil
}

// LivePreviewHealthEntries returns the report as plain maps so the Lua
// checkhealth shim can feed vim.health directly.
func (c *Commands) LivePreviewHealthEntries(v *nvim.Nvim, args []interface{}) ([]map[string]interface{}, error) {
	report := c.runDoctor(v)
	entries := make([]map[string]interface{}, 0, len(report.Entries))
	for _, e := range report.Entries {
		entries = append(entries, map[string]interface{}{
			"category": e.Category,
			"severity": string(e.Severity),
			"message":  e.Message,
			"hint":     e.Hint,
		})
	}
	return entries, nil
}

func (c *Commands) runDoctor(v *nvim.Nvim) *diagnostics.Report {
	doctor := diagnostics.NewDoctor(c.cfg, c.unknownKeys, c.serverState(), &nvimEnv{v: v}, diagnostics.PortLister{})
	return doctor.Run(context.Background())
}

// serverState returns nil, not a typed nil pointer, when the preview was
// never started.
func (c *Commands) serverState() diagnostics.ServerState {
	if c.preview == nil {
		return nil
	}
	return c.preview
}

func severityHighlight(s diagnostics.Severity) string {
	switch s {
	case diagnostics.SeverityOK:
		return "MoreMsg"
	case diagnostics.SeverityWarn:
		return "WarningMsg"
	case diagnostics.SeverityError:
		return "ErrorMsg"
	default:
		return "None"
	}
}

func (c *Commands) LivePreviewUpdate(v *nvim.Nvim) error {
	if !c.active {
		return nil
	}

	return c.publishBuffer(v)
}

func (c *Commands) LivePreviewCursor(v *nvim.Nvim) error {
	if !c.active || !c.cfg.SyncScroll {
		return nil
	}
	return c.publishCursor(v)
}

func (c *Commands) currentPath(v *nvim.Nvim) (string, error) {
	absPath, err := v.BufferName(0)
	if err != nil {
		return "", err
	}

	return absPath, nil
}

func (c *Commands) publishBuffer(v *nvim.Nvim) error {
	buf, err := v.CurrentBuffer()
	if err != nil {
		return nil
	}

	lines, err := v.BufferLines(buf, 0, -1, true)
	if err != nil {
		return err
	}

	source := bytes.Join(lines, []byte("\n"))
	path, err := c.currentPath(v)
	if err != nil {
		return err
	}
	return c.preview.PublishSource(source, path)
}

func (c *Commands) publishCursor(v *nvim.Nvim) error {
	var line int
	if err := v.Eval(`line(".")`, &line); err != nil {
		return err
	}

	var col int
	if err := v.Eval(`col(".")`, &col); err != nil {
		return err
	}

	if line == c.lastCursorLine && col == c.lastCursorCol {
		return nil
	}

	c.lastCursorLine = line
	c.lastCursorCol = col
	return c.preview.PublishCursor(line, col)
}

func (c *Commands) handleGoToLine(msg contracts.GoToLineMessage) {
	if !c.active || c.nv == nil {
		return
	}

	v := c.nv

	line := msg.Line
	if line == c.lastCursorLine {
		return
	}

	win, err := v.CurrentWindow()
	if err != nil {
		return
	}
	if err := v.SetWindowCursor(win, [2]int{line, 0}); err != nil {
		return
	}

	_ = v.Command("normal! zz")
	c.lastCursorLine = line
	c.lastCursorCol = 0
}
