// Package version exposes build metadata. Values are set at link time with
// -ldflags "-X github.com/airnub/speckit-internal-sub001/version.version=...".
package version

import (
	"os"
	"path/filepath"
	"runtime/debug"
)

//nolint:gochecknoglobals // set by the linker
var (
	name    = ""
	version = ""
	commit  = ""
)

// Name returns the binary name.
func Name() string {
	if name != "" {
		return name
	}

	return filepath.Base(os.Args[0])
}

// Version returns the release version, falling back to the module version recorded in the binary.
func Version() string {
	if version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

// Commit returns the VCS revision the binary was built from, or "unknown".
func Commit() string {
	if commit != "" {
		return commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}

	return "unknown"
}
