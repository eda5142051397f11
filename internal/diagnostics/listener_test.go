package diagnostics

import (
	"context"
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenersRejectsOutOfRangePorts(t *testing.T) {
	lister := PortLister{}

	for _, port := range []int{0, -1, 65536, 1 << 20} {
		records, err := lister.Listeners(context.Background(), port)
		assert.NoError(t, err, "port %d", port)
		assert.Empty(t, records, "port %d", port)
	}
}

func TestListenersFindsOwnSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	records, err := PortLister{}.Listeners(ctx, port)
	if err != nil {
		// Containers and locked-down CI hosts can forbid connection table
		// access; that is exactly the condition LookupError exists for.
		var lookupErr *LookupError
		require.True(t, errors.As(err, &lookupErr))
		t.Skipf("connection table not readable: %v", err)
	}

	require.NotEmpty(t, records, "our own LISTEN socket should be visible")
	for _, rec := range records {
		assert.Equal(t, port, rec.Port)
	}

	self := int32(os.Getpid())
	for _, rec := range records {
		if rec.PID != 0 {
			assert.Equal(t, self, rec.PID)
		}
	}
}

func TestLookupErrorUnwraps(t *testing.T) {
	cause := errors.New("permission denied")
	err := &LookupError{Port: 3000, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "3000")
}
