package core

import (
	"context"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// Stage is one unit of frame processing, driven serially by a single
// worker. A source is called with a nil input and synthesizes frames;
// a sink consumes frames for side effects.
type Stage interface {
	// Prepare is called once before the first Process, after the
	// graph is wired but before any worker starts. It should open
	// required I/O (files, sockets, devices).
	Prepare() error

	// Process handles one frame. Returning (nil, nil) means "no
	// output this tick" and is not an error. The input must not be
	// mutated unless it is also the returned output. A non-nil
	// error stops the whole pipeline.
	Process(in *Frame) (*Frame, error)

	// Stop is called during shutdown, after the stage's worker has
	// exited. It should release whatever Prepare acquired.
	Stop() error
}

// StageOptions describe a stage implementation to the graph builder.
type StageOptions struct {
	Descr    string // one-line description for usage screens
	IsSource bool   // synthesizes frames, takes no input queue
	IsSink   bool   // consumes frames, feeds nothing downstream
}

// NewStage constructs the stage implementation for a base. It should
// set base.Options. A fresh instance is made for every graph node, so
// per-stage state (counters, previous-frame caches) never leaks
// between nodes or across runs.
type NewStage func(base *StageBase) Stage

// StageBase carries what every stage instance shares: the logger, the
// global config tree, and the DSL call site. Implementations embed a
// *StageBase and override the Stage methods they need.
type StageBase struct {
	zerolog.Logger
	Stage // the real implementation

	Options StageOptions
	Name    string          // stage command name
	Index   int             // node index in the graph
	Args    []int           // DSL call arguments, eg. const(42)
	K       *koanf.Koanf    // global config (may be nil in tests)
	Ctx     context.Context // app context for stage I/O

	Params []byte // raw --params JSON, keyed by stage name
}

// Prepare is the default implementation that does nothing.
func (s *StageBase) Prepare() error {
	return nil
}

// Stop is the default implementation that does nothing.
func (s *StageBase) Stop() error {
	return nil
}

// Errorf wraps fmt.Errorf and adds a prefix with the stage name.
func (s *StageBase) Errorf(format string, a ...any) error {
	return fmt.Errorf(s.Name+": "+format, a...)
}

// Arg returns the i-th DSL call argument, or def if absent.
func (s *StageBase) Arg(i, def int) int {
	if i < 0 || i >= len(s.Args) {
		return def
	}
	return s.Args[i]
}

// ParamInt reads an integer from the --params JSON under this stage's
// name, eg. {"threshold":{"level":90}}. Returns def if absent.
func (s *StageBase) ParamInt(key string, def int64) int64 {
	if len(s.Params) == 0 {
		return def
	}
	v, err := jsonparser.GetInt(s.Params, s.Name, key)
	if err != nil {
		return def
	}
	return v
}

// ParamString reads a string from the --params JSON, see ParamInt.
func (s *StageBase) ParamString(key, def string) string {
	if len(s.Params) == 0 {
		return def
	}
	v, err := jsonparser.GetString(s.Params, s.Name, key)
	if err != nil {
		return def
	}
	return v
}

// ParamFloat reads a float from the --params JSON, see ParamInt.
func (s *StageBase) ParamFloat(key string, def float64) float64 {
	if len(s.Params) == 0 {
		return def
	}
	v, err := jsonparser.GetFloat(s.Params, s.Name, key)
	if err != nil {
		return def
	}
	return v
}

// String returns "[index] name", or just the name for index 0.
func (s *StageBase) String() string {
	if s.Index != 0 {
		return fmt.Sprintf("[%d] %s", s.Index, s.Name)
	}
	return s.Name
}
