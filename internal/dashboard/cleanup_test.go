package dashboard

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, time.October, 20, 15, 30, 0, 0, time.UTC)

	files := map[string]bool{ // name -> expect deleted
		"dashboard_data_1_staff_2025-10-12.html":   true,
		"dashboard_data_2_missed_2025-10-12.html":  true,
		"dashboard_data_3_overdue_2025-10-13.html": false, // exactly at cutoff
		"dashboard_data_1_staff_2025-10-20.html":   false,
		"dashboard_data_1_staff_2025-13-45.html":   false, // unparseable date
		"latest_dashboard.html":                    false,
		"other_1_staff_2020-01-01.html":            false,
		"dashboard_data_1_Staff_2020-01-01.html":   false,
	}
	for name := range files {
		touch(t, dir, name)
	}

	res, err := Cleanup(nil, dir, DefaultPrefix, 7, now)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", res.Deleted)
	}
	if want := time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC); !res.Cutoff.Equal(want) {
		t.Errorf("Cutoff = %v, want %v", res.Cutoff, want)
	}
	if res.Bytes != 2 {
		t.Errorf("Bytes = %d, want 2", res.Bytes)
	}

	for name, deleted := range files {
		if exists(dir, name) == deleted {
			t.Errorf("%s: deleted=%v, want %v", name, !exists(dir, name), deleted)
		}
	}
}

func TestCleanup_MissingDir(t *testing.T) {
	res, err := Cleanup(nil, filepath.Join(t.TempDir(), "nope"), DefaultPrefix, 7, time.Now())
	if err != nil {
		t.Fatalf("Cleanup on missing dir: %v", err)
	}
	if res.Deleted != 0 {
		t.Errorf("Deleted = %d", res.Deleted)
	}
}

func TestCleanup_CustomPrefix(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "okk_1_staff_2020-01-01.html")
	touch(t, dir, "dashboard_data_1_staff_2020-01-01.html")

	res, err := Cleanup(nil, dir, "okk", 1, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 || exists(dir, "okk_1_staff_2020-01-01.html") {
		t.Errorf("custom prefix file should be removed, deleted=%d", res.Deleted)
	}
	if !exists(dir, "dashboard_data_1_staff_2020-01-01.html") {
		t.Error("files of another prefix must be kept")
	}
}
