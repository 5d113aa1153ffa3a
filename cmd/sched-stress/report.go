package main

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/plus3/dispatch/sched"
)

const reportTopN = 20

func printReport(w io.Writer, stats *sched.DispatcherStats, plan [][]string, scenario Scenario, total time.Duration, memStart, memEnd runtime.MemStats) {
	widest := 0
	for _, batch := range plan {
		if len(batch) > widest {
			widest = len(batch)
		}
	}

	perTick := time.Duration(0)
	if scenario.Ticks > 0 {
		perTick = total / time.Duration(scenario.Ticks)
	}

	fmt.Fprintf(w, "systems: %d (+1 flipper), batches: %d, widest batch: %d\n",
		scenario.Systems, len(plan), widest)
	fmt.Fprintf(w, "ticks: %d, total: %s, per tick: %s\n", scenario.Ticks, total, perTick)
	fmt.Fprintf(w, "heap delta: %d bytes, gc cycles: %d\n\n",
		int64(memEnd.HeapAlloc)-int64(memStart.HeapAlloc),
		memEnd.NumGC-memStart.NumGC)

	systems := make([]sched.SystemStats, len(stats.Systems))
	copy(systems, stats.Systems)
	sort.Slice(systems, func(i, j int) bool {
		return systems[i].TotalDuration > systems[j].TotalDuration
	})
	if len(systems) > reportTopN {
		systems = systems[:reportTopN]
	}

	table := tablewriter.NewWriter(w)
	table.Header("System", "Execs", "Avg", "Max", "Total")
	for _, s := range systems {
		table.Append([]string{
			s.Name,
			fmt.Sprintf("%d", s.ExecutionCount),
			s.AvgDuration.String(),
			s.MaxDuration.String(),
			s.TotalDuration.String(),
		})
	}
	table.Render()
}
