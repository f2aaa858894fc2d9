package cmd

import (
	"fmt"
	"strings"

	"github.com/sergev/i2ctap/replay"
	"github.com/sergev/i2ctap/sniffer"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send MACRO",
	Short: "Transmit a named macro once",
	Long: "Send the named macro from the config file or the learned-macro\n" +
		"store, applying each step's trailing delay.",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m, err := findMacro(args[0])
		if err != nil {
			if names := macroNames(); len(names) > 0 {
				err = fmt.Errorf("%w (known macros: %s)", err, strings.Join(names, ", "))
			}
			cobra.CheckErr(err)
		}

		// No capture session runs here, but the same pause/settle
		// discipline applies so the command behaves identically when
		// another i2ctap instance shares the signal path.
		coord := &replay.Coordinator{Pause: sniffer.NewSignal()}
		rep := &replay.Replayer{Opener: busOpener(), Logger: logger}
		cobra.CheckErr(coord.WithBus(func() error { return rep.SendMacro(m) }))
		fmt.Printf("Macro %q sent (%d steps).\n", m.Name, len(m.Steps))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
