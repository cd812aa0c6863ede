// Package core provides the module system for dashbot: a registry of
// compiled modules, the lifecycle interfaces they implement, and the App
// that drives them from configuration to shutdown.
package core

// ModuleID is the namespaced identifier of a module (e.g. "history.csv").
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return string(id[:i])
		}
	}
	return string(id)
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every dashbot module.
type Module interface {
	ModuleInfo() ModuleInfo
}
