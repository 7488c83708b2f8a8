package cmd

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/encodeous/nbrd/core"
	"github.com/encodeous/nbrd/sim"
	"github.com/encodeous/nbrd/state"
	"github.com/encodeous/nbrd/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the nodes of a scenario in real time",
	Long: `Runs one host runtime per scenario node. The nodes share a simulated radio medium,
timers and clocks are real. Stops on SIGINT, or after --duration when it is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		scn, err := sim.ReadScenario(scenarioPath)
		if err != nil {
			panic(err)
		}
		err = sim.ScenarioValidator(scn)
		if err != nil {
			panic(err)
		}
		level := logLevel(cmd)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		log, err := core.NewLogger("medium", scn.Node.LogPath, level)
		if err != nil {
			panic(err)
		}
		if scn.Node.MetricsAddr != "" {
			go telemetry.Serve(ctx, scn.Node.MetricsAddr, log)
		}

		timing := scn.Node.Timing
		start := time.Now()
		medium := sim.NewMedium(scn.Medium, rand.New(rand.NewPCG(scn.Seed, math.MaxUint64)), func(delay state.Ticks, fn func()) {
			time.AfterFunc(timing.Duration(delay), fn)
		})

		g, ctx := errgroup.WithContext(ctx)
		for _, spec := range scn.Nodes {
			cfg := scn.NodeCfg(spec)
			radio := medium.Attach(spec.Id, func() sim.Position {
				return sim.Trajectory(spec.Waypoints, time.Since(start))
			})
			g.Go(func() error {
				select {
				case <-time.After(spec.StartOffset):
				case <-ctx.Done():
					return nil
				}
				hw := state.Hardware{
					Radio: radio,
					Clock: core.NewHostClock(timing.ClockRate),
					Rand:  core.NewRand(cfg.Seed, cfg.Id),
				}
				return core.Start(cfg, level, hw, ctx, nil)
			})
		}
		log.Info("started scenario", "nodes", len(scn.Nodes))
		err = g.Wait()
		if err != nil {
			panic(err)
		}
	},
	GroupID: "nb",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", scenarioPath, "scenario file path")
	runCmd.Flags().Duration("duration", 0, "stop after this long, 0 runs until interrupted")
}
