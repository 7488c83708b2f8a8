package cmd

import (
	"log/slog"
	"os"

	"github.com/encodeous/nbrd/state"
	"github.com/spf13/cobra"
)

var (
	nodeConfigPath = state.DefaultNodeConfigPath
	scenarioPath   = state.DefaultScenarioPath
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nbrd",
	Short: "Duty-cycled neighbour discovery",
	Long: `nbrd discovers nearby sensor nodes while keeping the radio asleep most of the time.
Each node wakes on one row and one column of a slot grid, so any two nodes in range share an awake slot every cycle.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func logLevel(cmd *cobra.Command) slog.Level {
	if ok, _ := cmd.Flags().GetBool("verbose"); ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "init",
		Title: "Configuration",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "nb",
		Title: "Discovery Commands",
	})
}
