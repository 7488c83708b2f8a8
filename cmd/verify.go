package cmd

import (
	"fmt"
	"time"

	"github.com/encodeous/nbrd/sim"
	"github.com/encodeous/nbrd/state"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validates a node config, and a scenario when one is given",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.ReadNodeConfig(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		err = state.NodeConfigValidator(cfg)
		if err != nil {
			panic(err)
		}
		wake, sleep := cfg.Timing.SlotDuration()
		awake := cfg.Grid.Rows + cfg.Grid.Cols - 1
		asleep := cfg.Grid.CycleLen() - awake
		on := wake * time.Duration(awake)
		period := on + sleep*time.Duration(asleep)
		fmt.Printf("Node %s config is valid\n", cfg.Id)
		fmt.Printf("cycle: %d slots, %d awake, %v per cycle, radio on %.1f%%\n",
			cfg.Grid.CycleLen(), awake, period, 100*float64(on)/float64(period))

		if cmd.Flags().Changed("scenario") {
			scn, err := sim.ReadScenario(scenarioPath)
			if err != nil {
				panic(err)
			}
			err = sim.ScenarioValidator(scn)
			if err != nil {
				panic(err)
			}
			fmt.Printf("Scenario with %d nodes is valid\n", len(scn.Nodes))
		}
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node config file path")
	verifyCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", scenarioPath, "scenario file path")
}
