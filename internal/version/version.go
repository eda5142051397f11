package version

import goversion "github.com/hashicorp/go-version"

// Version is the plugin host version. Override via ldflags:
//
//	go build -ldflags "-X github.com/Ren-B-7/live-preview.nvim/internal/version.Version=1.2.3 -X github.com/Ren-B-7/live-preview.nvim/internal/version.Build=153"
var Version = "0.0.1"

// Build is the build number, injected at compile time.
var Build = "dev"

// NvimCompat is the supported Neovim version range.
var NvimCompat = ">= 0.10.0"

// IsCompatible reports whether current satisfies the constraint range.
// Malformed input counts as incompatible so an unparseable version is
// surfaced instead of waved through.
func IsCompatible(current, constraint string) bool {
	v, err := goversion.NewVersion(current)
	if err != nil {
		return false
	}
	c, err := goversion.NewConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(v)
}
