package main

import (
	"os"
	"runtime"
	"time"

	"github.com/plus3/dispatch/sched"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	scenarioFile string
	systemCount  int
	tickCount    int
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "sched-stress",
	Short: "Stress the dispatcher with generated systems",
	Long: `sched-stress generates synthetic systems with randomized resource
access sets, registers a share of them behind Pausable gates, runs a timed
dispatch loop, and reports batch layout and per-system timings.`,
	RunE: runStress,
}

func init() {
	rootCmd.Flags().StringVar(&scenarioFile, "scenario", "", "TOML scenario file (flags override it)")
	rootCmd.Flags().IntVar(&systemCount, "systems", 0, "number of generated systems (0 = scenario default)")
	rootCmd.Flags().IntVar(&tickCount, "ticks", 0, "number of ticks to run (0 = scenario default)")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "log planned batches")
}

func runStress(cmd *cobra.Command, args []string) error {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "sched-stress").Logger()
	if !verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	scenario, err := loadScenario(scenarioFile)
	if err != nil {
		return err
	}
	if systemCount > 0 {
		scenario.Systems = systemCount
	}
	if tickCount > 0 {
		scenario.Ticks = tickCount
	}

	logger.Info().
		Int("systems", scenario.Systems).
		Int("ticks", scenario.Ticks).
		Float64("gated_share", scenario.GatedShare).
		Msg("starting stress run")

	res := sched.NewResources()
	dispatcher := buildDispatcher(res, scenario, sched.WithLogger(logger))

	if err := dispatcher.Build(); err != nil {
		return err
	}

	plan, err := dispatcher.Plan()
	if err != nil {
		return err
	}

	var memStart, memEnd runtime.MemStats
	runtime.ReadMemStats(&memStart)

	start := time.Now()
	lastTick := start
	for i := 0; i < scenario.Ticks; i++ {
		now := time.Now()
		dt := now.Sub(lastTick).Seconds()
		lastTick = now

		if err := dispatcher.Dispatch(dt); err != nil {
			return err
		}
	}
	total := time.Since(start)

	runtime.ReadMemStats(&memEnd)

	logger.Info().
		Dur("total", total).
		Int64("ticks", int64(scenario.Ticks)).
		Msg("stress run complete")

	printReport(os.Stdout, dispatcher.Stats(), plan, scenario, total, memStart, memEnd)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
