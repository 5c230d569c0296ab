package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	settings := func(kv ...string) []debug.BuildSetting {
		var s []debug.BuildSetting
		for i := 0; i < len(kv); i += 2 {
			s = append(s, debug.BuildSetting{Key: kv[i], Value: kv[i+1]})
		}
		return s
	}

	tests := []struct {
		name        string
		info        debug.BuildInfo
		version     string
		commit      string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "vcs stamp",
			info:        debug.BuildInfo{Main: debug.Module{Version: "(devel)"}, Settings: settings("vcs.revision", "0123456789abcdef", "vcs.time", "2026-03-04T10:00:00Z")},
			wantVersion: "dev-20260304",
			wantCommit:  "0123456",
		},
		{
			name:        "dirty tree",
			info:        debug.BuildInfo{Settings: settings("vcs.revision", "abc", "vcs.modified", "true")},
			wantCommit:  "abc-dirty",
			wantVersion: "",
		},
		{
			name:        "module version",
			info:        debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}},
			wantVersion: "v0.3.0",
		},
		{
			name:        "ldflags win",
			info:        debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}, Settings: settings("vcs.revision", "0123456789")},
			version:     "v9.9.9",
			commit:      "feed",
			wantVersion: "v9.9.9",
			wantCommit:  "feed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := fromBuildInfo(&tt.info, tt.version, tt.commit)
			if v != tt.wantVersion || c != tt.wantCommit {
				t.Errorf("fromBuildInfo() = (%q, %q), want (%q, %q)", v, c, tt.wantVersion, tt.wantCommit)
			}
		})
	}
}

func TestFull(t *testing.T) {
	if Version == "" || Commit == "" {
		t.Fatal("init should always populate Version and Commit")
	}
	if !strings.Contains(Full(), Commit) {
		t.Errorf("Full() = %q, should contain commit", Full())
	}
	if d := Details(); d["Version"] != Version || d["Go"] == "" {
		t.Errorf("Details() = %v", d)
	}
}
