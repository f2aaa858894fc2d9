package cmd

import (
	"fmt"

	"github.com/sergev/i2ctap/probe"

	"github.com/spf13/cobra"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List sampler backends and whether they can be opened",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := probe.Config{
			SDAPin: flagSDA,
			SCLPin: flagSCL,
			Port:   flagPort,
		}
		for _, name := range probe.Names() {
			s, err := probe.Open(name, cfg)
			if err != nil {
				fmt.Printf("%-8s unavailable: %v\n", name, err)
				continue
			}
			fmt.Printf("%-8s %s\n", name, s.Describe())
			s.Close()
		}
	},
}

func init() {
	rootCmd.AddCommand(probesCmd)
}
