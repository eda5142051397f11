package host

import (
	"os/exec"

	"github.com/neovim/go-client/nvim"
)

// nvimEnv answers doctor probes against the live Neovim handle.
type nvimEnv struct {
	v *nvim.Nvim
}

func (e *nvimEnv) NvimVersion() (string, error) {
	var version string
	err := e.v.ExecLua(
		"local v = vim.version() return string.format('%d.%d.%d', v.major, v.minor, v.patch)",
		&version,
	)
	if err != nil {
		return "", err
	}
	return version, nil
}

func (e *nvimEnv) Shell() string {
	var shell string
	if err := e.v.Eval("&shell", &shell); err != nil {
		return ""
	}
	return shell
}

func (e *nvimEnv) HasExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (e *nvimEnv) HasModule(name string) bool {
	var ok bool
	if err := e.v.ExecLua("local ok = pcall(require, ...) return ok", &ok, name); err != nil {
		return false
	}
	return ok
}
