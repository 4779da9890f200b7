package core

import (
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps stage command names to their constructors. Safe for
// concurrent use; the REPL may register stages while a previous
// pipeline is still draining.
type Registry struct {
	m *xsync.Map[string, NewStage]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: xsync.NewMap[string, NewStage]()}
}

// Add registers newfunc under cmd. Registering the same name twice is
// an error; use AddRepo to merge whole stage libraries.
func (r *Registry) Add(cmd string, newfunc NewStage) error {
	if _, loaded := r.m.LoadOrStore(cmd, newfunc); loaded {
		return fmt.Errorf("%w: %s", ErrStageDup, cmd)
	}
	return nil
}

// AddRepo merges a stage library, overriding existing names.
func (r *Registry) AddRepo(repo map[string]NewStage) {
	for cmd, newfunc := range repo {
		r.m.Store(cmd, newfunc)
	}
}

// Get returns the constructor for cmd, or nil.
func (r *Registry) Get(cmd string) NewStage {
	newfunc, _ := r.m.Load(cmd)
	return newfunc
}

// Names returns all registered command names, sorted.
func (r *Registry) Names() []string {
	var names []string
	r.m.Range(func(cmd string, _ NewStage) bool {
		names = append(names, cmd)
		return true
	})
	slices.Sort(names)
	return names
}
