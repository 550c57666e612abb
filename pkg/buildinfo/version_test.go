package buildinfo

import (
	"strings"
	"testing"
)

func TestGetUsesStampedValues(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	t.Cleanup(func() { Version, Commit, Date = old[0], old[1], old[2] })

	Version, Commit, Date = "v1.2.3", "abc123", "2026-01-01"
	info := Get()
	if info.Version != "v1.2.3" || info.Commit != "abc123" || info.Date != "2026-01-01" {
		t.Errorf("Get() = %+v", info)
	}
	if !strings.Contains(info.String(), "commit: abc123") {
		t.Errorf("String() = %q", info.String())
	}
	if !strings.Contains(Template(), "version v1.2.3") {
		t.Errorf("Template() = %q", Template())
	}
}
