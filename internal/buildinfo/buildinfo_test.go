package buildinfo

import (
	"runtime"
	"testing"
)

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	oldVersion, oldCommit, oldDate := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() {
		Version, Commit, Date = oldVersion, oldCommit, oldDate
	})
}

func TestString(t *testing.T) {
	stamp(t, "1.2.3", "deadbeef", "2026-01-30")

	got := String()
	want := "version=1.2.3 commit=deadbeef date=2026-01-30"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestGetUsesStampedValues(t *testing.T) {
	stamp(t, "0.9.0", "cafe", "2026-10-01")

	info := Get()
	want := Info{Version: "0.9.0", Commit: "cafe", Date: "2026-10-01", GoVersion: runtime.Version()}
	if info != want {
		t.Fatalf("Get() = %#v, want %#v", info, want)
	}
}

func TestGetUnstamped(t *testing.T) {
	stamp(t, "dev", "none", "unknown")

	info := Get()
	if info.Version == "" {
		t.Fatalf("Get().Version should never be empty")
	}
	if info.Commit != "none" {
		t.Fatalf("Get().Commit = %q, want none", info.Commit)
	}
}
