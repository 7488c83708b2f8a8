package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/encodeous/nbrd/state"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Invalid node id: %s\n", args[0])
			os.Exit(-1)
		}

		nodeCfg := state.DefaultLocalCfg(state.PeerId(id))
		nodeCfg.Seed, _ = cmd.Flags().GetUint64("seed")

		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			panic(err)
		}

		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, ncfg, 0600)
		if err != nil {
			panic(err)
		}
	},
	GroupID: "init",
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", state.DefaultNodeConfigPath, "node config output file path")
	newCmd.Flags().Uint64("seed", 0, "schedule rng seed, 0 derives one at startup")
}
