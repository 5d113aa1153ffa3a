package sched_test

import (
	"sync"

	"github.com/plus3/dispatch/sched"
)

// Common test resource types
type Counter struct {
	Value int
}

type RunState int

const (
	Disabled RunState = iota
	Enabled
)

type Difficulty struct {
	Level int
}

type Settings struct {
	Multiplier int
}

type TraceLog struct {
	mu      sync.Mutex
	Entries []string
}

func (l *TraceLog) Append(entry string) {
	l.mu.Lock()
	l.Entries = append(l.Entries, entry)
	l.mu.Unlock()
}

// AddNumber adds a fixed amount to the shared counter each tick.
type AddNumber struct {
	Amount int
}

func (s *AddNumber) Accesses() *sched.AccessSet {
	return sched.Writes[Counter](sched.NewAccessSet())
}

func (s *AddNumber) Execute(tick *sched.Tick) error {
	sched.Exclusive[Counter](tick).Value += s.Amount
	return nil
}

// tracingSystem appends its name to the shared trace log each tick.
type tracingSystem struct {
	name string
}

func (s *tracingSystem) Accesses() *sched.AccessSet {
	return sched.Writes[TraceLog](sched.NewAccessSet())
}

func (s *tracingSystem) Execute(tick *sched.Tick) error {
	sched.Exclusive[TraceLog](tick).Append(s.name)
	return nil
}

// recordingSystem counts its executions and optionally fails.
type recordingSystem struct {
	access   *sched.AccessSet
	err      error
	executed int
}

func (s *recordingSystem) Accesses() *sched.AccessSet { return s.access }

func (s *recordingSystem) Execute(tick *sched.Tick) error {
	s.executed++
	return s.err
}

// costedSystem reports a fixed cost hint and otherwise does nothing.
type costedSystem struct {
	cost sched.Cost
}

func (s *costedSystem) Accesses() *sched.AccessSet { return sched.NewAccessSet() }

func (s *costedSystem) Execute(tick *sched.Tick) error { return nil }

func (s *costedSystem) Cost() sched.Cost { return s.cost }
