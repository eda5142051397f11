package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCompatible(t *testing.T) {
	tests := []struct {
		current    string
		constraint string
		want       bool
	}{
		{"0.10.0", ">= 0.10.0", true},
		{"0.11.2", ">= 0.10.0", true},
		{"0.9.5", ">= 0.10.0", false},
		{"0.10.0", ">= 0.10.0, < 1.0.0", true},
		{"1.0.0", ">= 0.10.0, < 1.0.0", false},
		{"not-a-version", ">= 0.10.0", false},
		{"0.10.0", "not-a-range", false},
	}

	for _, tt := range tests {
		got := IsCompatible(tt.current, tt.constraint)
		assert.Equal(t, tt.want, got, "%s against %s", tt.current, tt.constraint)
	}
}

func TestNvimCompatParses(t *testing.T) {
	// The baked-in range itself must stay parseable.
	assert.True(t, IsCompatible("99.0.0", NvimCompat))
}
