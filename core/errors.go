package core

import "errors"

var (
	ErrLex         = errors.New("lex error")
	ErrParse       = errors.New("parse error")
	ErrStageCmd    = errors.New("unknown stage")
	ErrStageDup    = errors.New("stage already registered")
	ErrSinkMiddle  = errors.New("sink feeds another stage")
	ErrSourceInput = errors.New("source cannot consume input")
	ErrChoice      = errors.New("choice operator is not implemented")
	ErrEmptyGraph  = errors.New("pipeline has no stages")
	ErrRunning     = errors.New("runtime already running")
	ErrStopped     = errors.New("runtime already stopped")
	ErrInterrupt   = errors.New("interrupted")
)
