package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestFillFromVCS(t *testing.T) {
	info := Info{Version: "dev"}
	fill(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2024-03-01T09:30:00Z"},
		},
	})
	if info.Version != "v0.4.0" || info.Commit != "0123456789ab" || info.Date != "2024-03-01T09:30:00Z" {
		t.Fatalf("info = %+v", info)
	}
}

func TestFillKeepsStamp(t *testing.T) {
	info := Info{Version: "v1.2.3", Commit: "abcdef0", Date: "2025-08-30T12:00:00Z"}
	fill(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})
	if info.Version != "v1.2.3" || info.Commit != "abcdef0" {
		t.Fatalf("stamp overwritten: %+v", info)
	}
	if Get().Version == "" {
		t.Fatal("Get must always report a version")
	}
}
