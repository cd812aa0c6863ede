package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/dashbot/internal/core"
	"github.com/flemzord/dashbot/internal/history"
	"github.com/flemzord/dashbot/internal/report"
	"gopkg.in/yaml.v3"
)

func loadModule(t *testing.T, cfg, dataDir string) (*Module, *core.AppContext) {
	t.Helper()

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(cfg), &node); err != nil {
		t.Fatal(err)
	}

	ctx := core.NewAppContext(nil, dataDir, t.TempDir())
	if len(node.Content) > 0 {
		ctx = ctx.WithModuleConfigs(map[string]yaml.Node{"history.csv": *node.Content[0]})
	}

	mod, err := ctx.LoadModule("history.csv")
	if err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
	t.Cleanup(func() { _ = mod.(*Module).Stop(context.Background()) })
	return mod.(*Module), ctx
}

func TestModule_RegistersStore(t *testing.T) {
	dataDir := t.TempDir()
	mod, ctx := loadModule(t, "", dataDir)

	svc, ok := core.Service[history.Store](ctx, history.ServiceName)
	if !ok {
		t.Fatal("history.store service not registered")
	}
	if svc != mod.Store() {
		t.Error("registered service should be the module store")
	}

	d := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	if err := svc.SaveMetrics(context.Background(), report.MetricsRecord{Date: d, Missed: 2}); err != nil {
		t.Fatalf("SaveMetrics: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dataDir, history.MetricsFile)); err != nil {
		t.Errorf("metrics file not written to data dir: %v", err)
	}
}

func TestModule_CustomFileNames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hist")
	mod, _ := loadModule(t, "dir: "+dir+"\nstaff_file: s.csv\nmetrics_file: m.csv\n", t.TempDir())

	d := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	if err := mod.Store().SaveStaff(context.Background(), d, []report.StaffRecord{{Employee: "Анна", Assigned: 1}}); err != nil {
		t.Fatalf("SaveStaff: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "s.csv")); err != nil {
		t.Errorf("custom staff file missing: %v", err)
	}
}

func TestModule_RejectsCorruptedHistory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, history.MetricsFile), []byte("Дата,Пропущенных\nxx,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte("dir: "+dir), &node); err != nil {
		t.Fatal(err)
	}
	ctx := core.NewAppContext(nil, dir, dir).
		WithModuleConfigs(map[string]yaml.Node{"history.csv": *node.Content[0]})
	if _, err := ctx.LoadModule("history.csv"); err == nil {
		t.Fatal("expected validation error for corrupted history")
	}
}
