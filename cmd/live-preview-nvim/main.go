package main

import (
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/Ren-B-7/live-preview.nvim/internal/host"
	"github.com/Ren-B-7/live-preview.nvim/internal/logger"
)

// Set up the connection to Neovim, register the command handlers and keep
// the connection alive listening for requests. Stdio carries msgpack-RPC,
// so logging is file-based and initialized before anything can write.
func main() {
	_ = logger.Init()

	plugin.Main(func(p *plugin.Plugin) error {
		logger.Host.Info().Msg("registering handlers")
		return host.Register(p)
	})
}
