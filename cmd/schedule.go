package cmd

import (
	"fmt"
	"strings"

	"github.com/encodeous/nbrd/core"
	"github.com/encodeous/nbrd/state"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Prints the wake schedules a node would draw",
	Run: func(cmd *cobra.Command, args []string) {
		rows, _ := cmd.Flags().GetInt("rows")
		cols, _ := cmd.Flags().GetInt("cols")
		seed, _ := cmd.Flags().GetUint64("seed")
		cycles, _ := cmd.Flags().GetInt("cycles")
		if rows < 1 || cols < 1 {
			fmt.Printf("Invalid grid %dx%d\n", rows, cols)
			return
		}

		grid := core.NewGrid(rows, cols)
		rng := core.NewRand(seed, 0)
		for i := range cycles {
			s := grid.Generate(rng)
			fmt.Printf("cycle %d: %s\n", i+1, s)
			fmt.Print(renderSchedule(grid, s))
		}
	},
	GroupID: "nb",
}

// renderSchedule draws the grid with awake slots as '#'.
func renderSchedule(g *core.Grid, s core.Schedule) string {
	sb := strings.Builder{}
	for r := range g.Rows {
		for c := range g.Cols {
			if s.IsAwake(r*g.Cols + c) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().Int("rows", state.DefaultRows, "grid rows")
	scheduleCmd.Flags().Int("cols", state.DefaultCols, "grid columns")
	scheduleCmd.Flags().Uint64("seed", 0, "rng seed, 0 derives one from the clock")
	scheduleCmd.Flags().Int("cycles", 1, "number of cycles to draw")
}
