package version

import (
	"runtime/debug"
	"testing"
)

func TestCommitPrefersLinkerValue(t *testing.T) {
	prev := GitCommit
	GitCommit = "abc123"
	t.Cleanup(func() { GitCommit = prev })

	if got := Commit(); got != "abc123" {
		t.Errorf("Commit() = %q, want abc123", got)
	}
}

func TestCommitFallsBackToVCSRevision(t *testing.T) {
	prevRead := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		}}, true
	}
	t.Cleanup(func() { readBuildInfo = prevRead })

	if got := Commit(); got != "0123456789ab" {
		t.Errorf("Commit() = %q, want 0123456789ab", got)
	}
}

func TestString(t *testing.T) {
	prevRead := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
	t.Cleanup(func() { readBuildInfo = prevRead })

	want := "markup dev (commit unknown, built unknown)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
