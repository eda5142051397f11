// Package logger provides per-component file loggers for the plugin host.
// The host talks msgpack-RPC to Neovim over stdio, so nothing may ever be
// written to stdout or stderr; all logging goes to a rotated file instead.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Host    zerolog.Logger
	Preview zerolog.Logger
	Doctor  zerolog.Logger
)

func init() {
	// Handlers can run before Init when Neovim calls in early; default to
	// a discard logger so they never touch stdio.
	configure(io.Discard)
}

// Init routes all component loggers to a rotated log file under the user
// cache directory. Failure to resolve the cache dir leaves logging disabled
// rather than breaking the RPC channel.
func Init() error {
	dir, err := os.UserCacheDir()
	if err != nil {
		return err
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "live-preview.nvim", "host.log"),
		MaxSize:    5, // MB
		MaxBackups: 2,
	}
	configure(w)
	return nil
}

func configure(w io.Writer) {
	base := zerolog.New(w).With().Timestamp().Logger()

	Host = base.With().Str("component", "host").Logger()
	Preview = base.With().Str("component", "preview").Logger()
	Doctor = base.With().Str("component", "doctor").Logger()
}
