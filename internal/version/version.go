// Package version reports the build version of the snepd binaries.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/snepd/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/snepd/internal/version.Commit=abc123"
//
// Unset values are filled from the VCS stamp in the build info, falling back
// to "dev" with a timestamp.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			Version, Commit = fromBuildInfo(info, Version, Commit)
		}
	}

	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromBuildInfo fills the empty values of version and commit from the VCS
// settings recorded by the go tool.
func fromBuildInfo(info *debug.BuildInfo, version, commit string) (string, string) {
	var revision, modified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	if commit == "" && revision != "" {
		commit = revision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if modified == "true" {
			commit += "-dirty"
		}
	}

	// Build info has no tags; a tagged module version wins over the VCS time
	if version == "" {
		switch {
		case info.Main.Version != "" && info.Main.Version != "(devel)":
			version = info.Main.Version
		case vcsTime != "":
			if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
				version = fmt.Sprintf("dev-%s", t.Format("20060102"))
			}
		}
	}

	return version, commit
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Details returns version facts for display by the version commands
func Details() map[string]string {
	return map[string]string{
		"Version":  Version,
		"Commit":   Commit,
		"Go":       runtime.Version(),
		"Platform": runtime.GOOS + "/" + runtime.GOARCH,
	}
}
