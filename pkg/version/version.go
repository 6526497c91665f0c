// Package version reports the build's commit for health output and the
// User-Agent of outgoing requests.
//
// An -ldflags override wins over the VCS revision recorded in
// debug.BuildInfo; without either the commit reads "dev".
//
//	go build -ldflags "-X github.com/codeready-toolchain/logmask/pkg/version.gitCommitOverride=$(git rev-parse HEAD)"
package version

import "runtime/debug"

// AppName prefixes version strings.
const AppName = "logmask"

var gitCommitOverride string

// GitCommit is the short (8 character) commit hash, or "dev".
var GitCommit = shortCommit(gitCommitOverride, readBuildInfo)

func readBuildInfo() (*debug.BuildInfo, bool) { return debug.ReadBuildInfo() }

func shortCommit(override string, info func() (*debug.BuildInfo, bool)) string {
	commit := override
	if commit == "" {
		if bi, ok := info(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
					break
				}
			}
		}
	}
	switch {
	case commit == "":
		return "dev"
	case len(commit) > 8:
		return commit[:8]
	}
	return commit
}

// Full returns "logmask/<commit>".
func Full() string {
	return AppName + "/" + GitCommit
}
