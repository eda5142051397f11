package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDefaults(t *testing.T) {
	cfg, unknown, err := Decode(map[string]interface{}{})
	require.NoError(t, err)

	assert.Empty(t, unknown)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.True(t, cfg.SyncScroll)
}

func TestDecodeRecognizedKeys(t *testing.T) {
	cfg, unknown, err := Decode(map[string]interface{}{
		"port":        3000,
		"address":     "0.0.0.0",
		"browser":     "firefox",
		"sync_scroll": false,
		"pickers":     []interface{}{"telescope", "fzf-lua"},
		"autokill":    true,
	})
	require.NoError(t, err)

	assert.Empty(t, unknown, "recognized keys must never warn")
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Address)
	assert.Equal(t, "firefox", cfg.Browser)
	assert.False(t, cfg.SyncScroll)
	assert.Equal(t, []string{"telescope", "fzf-lua"}, cfg.Pickers)
	assert.True(t, cfg.AutoKill)
}

func TestDecodeUnknownKeys(t *testing.T) {
	cfg, unknown, err := Decode(map[string]interface{}{
		"port":     3000,
		"bogusKey": true,
		"aTypo":    "x",
	})
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"aTypo", "bogusKey"}, unknown, "sorted, never silently dropped")
}

func TestDecodeMsgpackNumericTypes(t *testing.T) {
	// Values arriving over the RPC channel decode as int64 or uint64.
	for _, raw := range []interface{}{int64(3000), uint64(3000)} {
		cfg, _, err := Decode(map[string]interface{}{"port": raw})
		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Port)
	}
}

func TestDecodePortOutOfRange(t *testing.T) {
	for _, port := range []int{-1, 65536} {
		_, _, err := Decode(map[string]interface{}{"port": port})
		assert.Error(t, err, "port %d", port)
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:5500", cfg.Addr())

	cfg.Port = 3000
	cfg.Address = "0.0.0.0"
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
}
