package cmd

import (
	"os"

	"github.com/sergev/i2ctap/txlog"

	"github.com/spf13/cobra"
)

var logdiffCmd = &cobra.Command{
	Use:   "logdiff LOG1 LOG2",
	Short: "Compare two transaction logs offline",
	Long: "Report address/direction groups whose payload sequences differ\n" +
		"between two transaction logs. Works on the log text only; no bus\n" +
		"access required.",
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(txlog.Compare(os.Stdout, args[0], args[1]))
	},
}

func init() {
	rootCmd.AddCommand(logdiffCmd)
}
