package core

import (
	"context"
	"errors"
	"testing"
)

// lifecycleModule records Start/Stop calls into a shared log.
type lifecycleModule struct {
	id       ModuleID
	log      *[]string
	startErr error
}

func (m *lifecycleModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func (m *lifecycleModule) Stop(_ context.Context) error {
	*m.log = append(*m.log, "stop:"+string(m.id))
	return nil
}

// startableModule adds a Start phase to lifecycleModule.
type startableModule struct {
	lifecycleModule
}

func (m *startableModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func (m *startableModule) Start() error {
	*m.log = append(*m.log, "start:"+string(m.id))
	return m.startErr
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&startableModule{lifecycleModule{id: "a.first", log: &log}})
	RegisterModule(&lifecycleModule{id: "b.store", log: &log})
	RegisterModule(&startableModule{lifecycleModule{id: "c.last", log: &log}})

	app := NewApp(NewAppContext(nil, "/data", "/out"))
	if err := app.LoadModules([]string{"a.first", "b.store", "c.last"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{"start:a.first", "start:c.last", "stop:c.last", "stop:b.store", "stop:a.first"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("log[%d] = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestApp_StartFailureStopsEarlierModules(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	RegisterModule(&startableModule{lifecycleModule{id: "a.ok", log: &log}})
	RegisterModule(&startableModule{lifecycleModule{id: "b.fail", log: &log, startErr: errors.New("boom")}})

	app := NewApp(NewAppContext(nil, "/data", "/out"))
	if err := app.LoadModules([]string{"a.ok", "b.fail"}); err != nil {
		t.Fatalf("LoadModules: %v", err)
	}
	if err := app.Start(); err == nil {
		t.Fatal("expected Start error")
	}

	want := []string{"start:a.ok", "start:b.fail", "stop:a.ok"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}

	// A second Stop must not stop anything twice.
	app.Stop()
	if len(log) != len(want) {
		t.Errorf("Stop after failed Start re-stopped modules: %v", log)
	}
}

func TestApp_ModuleLookupAndAppend(t *testing.T) {
	t.Cleanup(resetRegistry)

	var log []string
	app := NewApp(NewAppContext(nil, "/data", "/out"))
	app.AppendModule("pipeline", &startableModule{lifecycleModule{id: "pipeline", log: &log}})

	if _, ok := app.Module("pipeline"); !ok {
		t.Fatal("appended module should be found")
	}
	if _, ok := app.Module("missing"); ok {
		t.Error("unknown module should not be found")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(log) != 2 || log[0] != "start:pipeline" || log[1] != "stop:pipeline" {
		t.Errorf("log = %v", log)
	}
}

func TestModuleID_Namespace(t *testing.T) {
	tests := map[ModuleID]string{
		"history.csv":      "history",
		"channel.telegram": "channel",
		"pipeline":         "pipeline",
	}
	for id, want := range tests {
		if got := id.Namespace(); got != want {
			t.Errorf("%q.Namespace() = %q, want %q", id, got, want)
		}
	}
}
