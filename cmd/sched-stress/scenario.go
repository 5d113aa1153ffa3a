package main

import (
	"fmt"
	"math/rand"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/plus3/dispatch/sched"
)

// Scenario configures a stress run. Values come from defaults, then an
// optional TOML file, then command-line flags, in that order.
type Scenario struct {
	Systems         int     `toml:"systems"`
	ReadsPerSystem  int     `toml:"reads_per_system"`
	WritesPerSystem int     `toml:"writes_per_system"`
	GatedShare      float64 `toml:"gated_share"`
	FlipPeriod      int     `toml:"flip_period"`
	Spin            int     `toml:"spin"`
	Ticks           int     `toml:"ticks"`
	Seed            int64   `toml:"seed"`
}

func defaultScenario() Scenario {
	return Scenario{
		Systems:         64,
		ReadsPerSystem:  2,
		WritesPerSystem: 1,
		GatedShare:      0.5,
		FlipPeriod:      16,
		Spin:            256,
		Ticks:           1000,
		Seed:            1,
	}
}

func loadScenario(path string) (Scenario, error) {
	s := defaultScenario()
	if path == "" {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return s, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	return s, nil
}

// stressMode gates the wrapped share of generated systems. The mode flipper
// toggles it periodically so gated systems alternate between running and
// skipping whole ticks.
type stressMode int

const (
	modeIdle stressMode = iota
	modeActive
)

// The resource pool. Distinct named types so each occupies its own slot in
// the resource table and produces real read/write conflicts.
type (
	r00 uint64
	r01 uint64
	r02 uint64
	r03 uint64
	r04 uint64
	r05 uint64
	r06 uint64
	r07 uint64
	r08 uint64
	r09 uint64
	r10 uint64
	r11 uint64
	r12 uint64
	r13 uint64
	r14 uint64
	r15 uint64
)

// slot pairs a pool type with accessors usable without knowing T statically.
type slot struct {
	typ   reflect.Type
	read  func(*sched.Tick)
	write func(*sched.Tick)
}

func makeSlot[T ~uint64]() slot {
	return slot{
		typ: reflect.TypeOf((*T)(nil)).Elem(),
		read: func(t *sched.Tick) {
			_ = sched.Shared[T](t)
		},
		write: func(t *sched.Tick) {
			v := sched.Exclusive[T](t)
			*v += T(1)
		},
	}
}

var pool = []slot{
	makeSlot[r00](), makeSlot[r01](), makeSlot[r02](), makeSlot[r03](),
	makeSlot[r04](), makeSlot[r05](), makeSlot[r06](), makeSlot[r07](),
	makeSlot[r08](), makeSlot[r09](), makeSlot[r10](), makeSlot[r11](),
	makeSlot[r12](), makeSlot[r13](), makeSlot[r14](), makeSlot[r15](),
}

// syntheticSystem reads and writes a random selection of pool resources and
// burns a configurable amount of CPU to simulate real work.
type syntheticSystem struct {
	access *sched.AccessSet
	reads  []slot
	writes []slot
	spin   int
}

func (s *syntheticSystem) Accesses() *sched.AccessSet { return s.access }

func (s *syntheticSystem) Execute(tick *sched.Tick) error {
	for _, sl := range s.reads {
		sl.read(tick)
	}

	var burn uint64
	for i := 0; i < s.spin; i++ {
		burn += uint64(i) * 2654435761
	}
	_ = burn

	for _, sl := range s.writes {
		sl.write(tick)
	}
	return nil
}

// modeFlipper toggles the stress mode every period ticks.
type modeFlipper struct {
	period int
	ticks  int
}

func (s *modeFlipper) Accesses() *sched.AccessSet {
	return sched.Writes[stressMode](sched.NewAccessSet())
}

func (s *modeFlipper) Execute(tick *sched.Tick) error {
	s.ticks++
	if s.ticks%s.period != 0 {
		return nil
	}

	mode := sched.Exclusive[stressMode](tick)
	if *mode == modeActive {
		*mode = modeIdle
	} else {
		*mode = modeActive
	}
	return nil
}

// buildDispatcher registers the flipper plus the generated systems, a share
// of them wrapped in Pausable gates on the stress mode.
func buildDispatcher(res *sched.Resources, scenario Scenario, opts ...sched.Option) *sched.Dispatcher {
	rng := rand.New(rand.NewSource(scenario.Seed))
	dispatcher := sched.NewDispatcher(res, opts...)

	dispatcher.Register(&modeFlipper{period: scenario.FlipPeriod}, "mode_flipper")

	for i := 0; i < scenario.Systems; i++ {
		access := sched.NewAccessSet()
		system := &syntheticSystem{access: access, spin: scenario.Spin}

		for _, sl := range pickSlots(rng, scenario.ReadsPerSystem) {
			access.AddRead(sl.typ)
			system.reads = append(system.reads, sl)
		}
		for _, sl := range pickSlots(rng, scenario.WritesPerSystem) {
			access.AddWrite(sl.typ)
			system.writes = append(system.writes, sl)
		}

		name := fmt.Sprintf("synthetic_%03d", i)
		if rng.Float64() < scenario.GatedShare {
			dispatcher.Register(sched.Pausable(system, modeActive), name)
		} else {
			dispatcher.Register(system, name)
		}
	}

	return dispatcher
}

func pickSlots(rng *rand.Rand, n int) []slot {
	if n > len(pool) {
		n = len(pool)
	}
	picked := make([]slot, n)
	for i, idx := range rng.Perm(len(pool))[:n] {
		picked[i] = pool[idx]
	}
	return picked
}
