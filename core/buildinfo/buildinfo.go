// Package buildinfo identifies the running binary.
//
// Release builds stamp it with -ldflags:
//
//	-X 'github.com/businesssandbox/regbot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/businesssandbox/regbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/businesssandbox/regbot/core/buildinfo.Date=2025-08-30T12:00:00Z'
package buildinfo

import (
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Info is the resolved build identity.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
}

var resolved = sync.OnceValue(func() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fill(&info, bi)
	}
	return info
})

// Get returns the ldflags stamp, completed from the VCS settings the Go toolchain
// records when the binary is built from a checkout.
func Get() Info { return resolved() }

func fill(info *Info, bi *debug.BuildInfo) {
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
				if len(info.Commit) > 12 {
					info.Commit = info.Commit[:12]
				}
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
}
