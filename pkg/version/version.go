// Package version reports build information injected through -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build metadata, overridden at link time:
//
//	-ldflags "-X github.com/Sumatoshi-tech/xdsref/pkg/version.Version=v1.2.0"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the version line printed by the version command.
func String() string {
	return fmt.Sprintf("xdsref %s (commit %s, built %s, %s)", resolved(), Commit, Date, goVersion())
}

// resolved falls back to the module version when no ldflags were given,
// which is the case for `go install ...@version` builds.
func resolved() string {
	if Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}

	return Version
}

func goVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown go"
	}

	return info.GoVersion
}
