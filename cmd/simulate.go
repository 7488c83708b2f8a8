package cmd

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/encodeous/nbrd/core"
	"github.com/encodeous/nbrd/eventlog"
	"github.com/encodeous/nbrd/sim"
	"github.com/encodeous/nbrd/state"
	"github.com/encodeous/nbrd/telemetry"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a scenario in virtual time and print presence events",
	Run: func(cmd *cobra.Command, args []string) {
		scn, err := sim.ReadScenario(scenarioPath)
		if err != nil {
			panic(err)
		}
		if d, _ := cmd.Flags().GetDuration("duration"); d > 0 {
			scn.Duration = d
		}
		err = sim.ScenarioValidator(scn)
		if err != nil {
			panic(err)
		}

		log, err := core.NewLogger("sim", scn.Node.LogPath, logLevel(cmd))
		if err != nil {
			panic(err)
		}

		var store *eventlog.Store
		if scn.Node.EventDb != "" {
			store, err = eventlog.Open(scn.Node.EventDb)
			if err != nil {
				panic(err)
			}
			defer store.Close()
		}

		net := sim.NewNetwork(*scn, log)
		net.OnEvent = func(node state.PeerId, e state.Event) {
			fmt.Printf("[%9.3fs] node %s: %s\n", net.Elapsed().Seconds(), node, e)
			telemetry.Presence(node.String()).Emit(e)
			if store != nil {
				if err := store.Record(node, e); err != nil {
					log.Warn("failed to store presence event", "error", err)
				}
			}
		}
		for _, node := range net.Nodes {
			id := node.Spec.Id.String()
			node.Engine.Observe = func(_ state.Seconds, tracked, confirmed int) {
				telemetry.ObserveTable(id, tracked, confirmed)
			}
		}
		net.Run()

		fmt.Printf("\nafter %v:\n", net.Elapsed())
		for _, node := range net.Nodes {
			sent, heard := node.Radio.Stats()
			fmt.Printf("node %s: %d beacons sent, %d heard, %d cycles\n", node.Spec.Id, sent, heard, node.Engine.Driver.Cycles())
			neighbours := node.Engine.Tracker.Neighbours()
			slices.SortFunc(neighbours, func(a, b core.Neighbour) int {
				return cmp.Compare(a.Id, b.Id)
			})
			for _, n := range neighbours {
				status := "pending"
				if n.Confirmed {
					status = "present"
				}
				if n.Absent {
					status = "fading"
				}
				fmt.Printf("  %6s %-8s since %ds\n", n.Id, status, n.FirstSeenAt)
			}
		}
	},
	GroupID: "nb",
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	simulateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", scenarioPath, "scenario file path")
	simulateCmd.Flags().Duration("duration", 0, "override the scenario duration")
}
