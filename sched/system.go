package sched

// System represents a schedulable unit of per-tick behavior. Accesses reports
// the exact resource types the system reads and writes during Execute; the
// result must be stable for the system's lifetime, because the dispatcher
// queries it once at registration to plan conflict-free execution. Execute
// runs once per tick and must touch no resource outside the declared set.
type System interface {
	Accesses() *AccessSet
	Execute(tick *Tick) error
}

// Cost is a relative execution-cost hint. The dispatcher only uses it to
// order systems inside a parallel batch (longest first); it never affects
// correctness or gating.
type Cost int

const (
	CostShort Cost = iota + 1
	CostAverage
	CostLong
	CostVeryLong
)

// Coster is optionally implemented by systems that want to report a cost
// hint. Systems without it are assumed CostAverage.
type Coster interface {
	Cost() Cost
}

// CostOf returns the system's cost hint, or CostAverage if it reports none.
func CostOf(system System) Cost {
	if c, ok := system.(Coster); ok {
		return c.Cost()
	}
	return CostAverage
}

// Initializer is optionally implemented by systems that need to install
// non-zero resource defaults. The dispatcher calls Setup once during Build,
// after zero values for every declared type have been installed.
type Initializer interface {
	Setup(res *Resources) error
}

// SystemFunc adapts a plain function to the System interface with a fixed
// access set.
type SystemFunc struct {
	Access *AccessSet
	Fn     func(tick *Tick) error
}

func (s *SystemFunc) Accesses() *AccessSet { return s.Access }

func (s *SystemFunc) Execute(tick *Tick) error { return s.Fn(tick) }
