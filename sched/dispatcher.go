package sched

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DispatcherStats provides statistics about dispatcher execution.
type DispatcherStats struct {
	SystemCount     int
	BatchCount      int
	TotalExecutions int64
	Systems         []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

type registered struct {
	name   string
	system System
	deps   []string
	access *AccessSet
	cost   Cost
	batch  int
	stats  *systemStatsInternal
}

// Dispatcher schedules registered systems into conflict-free batches and
// executes them once per tick against a shared resource table. Systems in
// the same batch run concurrently; batches run in order. A system lands in a
// later batch than each of its named predecessors and each earlier-registered
// system whose access set conflicts with its own, so conflicting systems
// execute in registration order.
type Dispatcher struct {
	resources *Resources
	systems   []*registered
	byName    map[string]*registered
	batches   [][]*registered
	built     bool
	logger    zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger attaches a logger used for plan and lifecycle reporting.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a dispatcher over the given resource table.
func NewDispatcher(resources *Resources, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resources: resources,
		byName:    make(map[string]*registered),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a system under a unique name. deps name previously
// registered systems that must finish earlier in every tick; conflicts on
// declared resources are ordered automatically and need no explicit
// dependency. The system's access set is queried once here and must stay
// stable. Registering after Build is a programming error and panics.
func (d *Dispatcher) Register(system System, name string, deps ...string) {
	if d.built {
		panic("sched: Register called after Build")
	}

	d.systems = append(d.systems, &registered{
		name:   name,
		system: system,
		deps:   deps,
		access: system.Accesses(),
		cost:   CostOf(system),
		stats: &systemStatsInternal{
			name:        name,
			minDuration: time.Duration(1<<63 - 1),
		},
	})
}

// Build validates the registration set, installs zero-value defaults for
// every declared resource type, runs Setup hooks, and plans the batch
// layout. Configuration errors (duplicate or empty names, unknown or
// out-of-order dependencies) are fatal here, before anything executes.
// Build runs at most once; the first Dispatch calls it implicitly.
func (d *Dispatcher) Build() error {
	if d.built {
		return nil
	}

	if err := d.validate(); err != nil {
		return err
	}

	// Zero defaults first, then Setup hooks, so systems can overwrite the
	// defaults for resources they own before the first tick.
	for _, r := range d.systems {
		for _, t := range r.access.all() {
			d.resources.ensureDefault(t)
		}
	}
	for _, r := range d.systems {
		if init, ok := r.system.(Initializer); ok {
			if err := init.Setup(d.resources); err != nil {
				return fmt.Errorf("sched: setup of system %q: %w", r.name, err)
			}
		}
	}

	d.planBatches()
	d.built = true

	for i, batch := range d.batches {
		names := make([]string, len(batch))
		for j, r := range batch {
			names[j] = r.name
		}
		d.logger.Debug().Int("batch", i).Strs("systems", names).Msg("planned dispatch batch")
	}
	return nil
}

func (d *Dispatcher) validate() error {
	index := make(map[string]int, len(d.systems))
	for i, r := range d.systems {
		if r.name == "" {
			return fmt.Errorf("sched: system %T registered with an empty name", r.system)
		}
		if _, dup := index[r.name]; dup {
			return fmt.Errorf("sched: duplicate system name %q", r.name)
		}
		index[r.name] = i
	}

	d.byName = make(map[string]*registered, len(d.systems))
	for i, r := range d.systems {
		d.byName[r.name] = r
		for _, dep := range r.deps {
			j, ok := index[dep]
			if !ok {
				return fmt.Errorf("sched: system %q depends on unknown system %q", r.name, dep)
			}
			if j >= i {
				return fmt.Errorf("sched: system %q depends on %q, which is not registered before it", r.name, dep)
			}
		}
	}
	return nil
}

// planBatches assigns each system to the earliest batch after all of its
// named predecessors and after every earlier-registered conflicting system.
// Registration order breaks ties, so plans are deterministic. Within a batch
// systems are ordered by cost hint, longest first.
func (d *Dispatcher) planBatches() {
	if len(d.systems) == 0 {
		d.batches = nil
		return
	}

	last := 0
	for i, r := range d.systems {
		b := 0
		for _, dep := range r.deps {
			if p := d.byName[dep]; p.batch >= b {
				b = p.batch + 1
			}
		}
		for _, earlier := range d.systems[:i] {
			if earlier.access.ConflictsWith(r.access) && earlier.batch >= b {
				b = earlier.batch + 1
			}
		}
		r.batch = b
		if b > last {
			last = b
		}
	}

	d.batches = make([][]*registered, last+1)
	for _, r := range d.systems {
		d.batches[r.batch] = append(d.batches[r.batch], r)
	}
	for _, batch := range d.batches {
		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].cost > batch[j].cost
		})
	}
}

// Dispatch runs one tick with the given delta time: every batch in order,
// systems within a batch concurrently, each with a view restricted to its
// declared access set. The first error skips the remaining batches of the
// tick and is returned unchanged. Deferred functions queued during the tick
// flush afterwards either way.
func (d *Dispatcher) Dispatch(dt float64) error {
	if err := d.Build(); err != nil {
		return err
	}

	deferred := &deferQueue{}
	var tickErr error

	for _, batch := range d.batches {
		if len(batch) == 1 {
			tickErr = d.execute(batch[0], dt, deferred)
		} else {
			g := new(errgroup.Group)
			for _, r := range batch {
				r := r
				g.Go(func() error {
					return d.execute(r, dt, deferred)
				})
			}
			tickErr = g.Wait()
		}
		if tickErr != nil {
			break
		}
	}

	deferred.flush()
	return tickErr
}

func (d *Dispatcher) execute(r *registered, dt float64, deferred *deferQueue) error {
	tick := newTick(dt, d.resources, deferred, r.access)

	start := time.Now()
	err := r.system.Execute(tick)
	duration := time.Since(start)

	stats := r.stats
	stats.executionCount++
	stats.lastDuration = duration
	stats.totalDuration += duration

	if duration < stats.minDuration {
		stats.minDuration = duration
	}
	if duration > stats.maxDuration {
		stats.maxDuration = duration
	}

	return err
}

// Run dispatches repeatedly at the given interval until the context is
// cancelled or a tick fails. Cancellation is a clean stop and returns nil.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if err := d.Build(); err != nil {
		return err
	}

	d.logger.Info().Dur("interval", interval).Int("systems", len(d.systems)).Msg("dispatcher running")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("dispatcher stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			if err := d.Dispatch(dt); err != nil {
				return err
			}
		}
	}
}

// Plan returns the batch layout by system name, building first if needed.
func (d *Dispatcher) Plan() ([][]string, error) {
	if err := d.Build(); err != nil {
		return nil, err
	}

	plan := make([][]string, len(d.batches))
	for i, batch := range d.batches {
		plan[i] = make([]string, len(batch))
		for j, r := range batch {
			plan[i][j] = r.name
		}
	}
	return plan, nil
}

// Stats returns statistics about system execution.
func (d *Dispatcher) Stats() *DispatcherStats {
	stats := &DispatcherStats{
		SystemCount: len(d.systems),
		BatchCount:  len(d.batches),
		Systems:     make([]SystemStats, len(d.systems)),
	}

	var totalExecs int64
	for i, r := range d.systems {
		internal := r.stats
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}

		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
		totalExecs += internal.executionCount
	}

	stats.TotalExecutions = totalExecs
	return stats
}
