package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/sergev/i2ctap/config"
	"github.com/sergev/i2ctap/diffengine"
	"github.com/sergev/i2ctap/macro"
	"github.com/sergev/i2ctap/replay"
	"github.com/sergev/i2ctap/sniffer"
	"github.com/sergev/i2ctap/txlog"

	"github.com/spf13/cobra"
)

var (
	learnBaseline time.Duration
	learnAction   time.Duration
	learnSave     string
	learnYes      bool
)

var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Capture baseline and action windows, diff them, and replay the writes",
	Long: "Capture a quiet baseline window, then an action window during which\n" +
		"you perform the target control. The transactions attributable to the\n" +
		"action are isolated by multiset difference and the WRITE transactions\n" +
		"are replayed with their original relative timing.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sampler, err := openSampler()
		cobra.CheckErr(err)
		defer sampler.Close()

		tlog, err := txlog.Create(flagLog, true)
		cobra.CheckErr(err)
		defer tlog.Close()

		pause := sniffer.NewSignal()
		session := &sniffer.Session{
			Sampler: sampler,
			Log:     tlog,
			Logger:  logger,
			Pause:   pause,
		}

		fmt.Printf("Capturing %v baseline; leave the device alone.\n", learnBaseline)
		baseline, err := session.Run(learnBaseline)
		checkCapture(err)
		fmt.Printf("Baseline captured: %d transactions.\n", len(baseline.Transactions))

		waitEnter("Press Enter to start the action window, then perform the control to learn.")
		action, err := session.Run(learnAction)
		checkCapture(err)
		fmt.Printf("Action window captured: %d transactions.\n", len(action.Transactions))

		entries := diffengine.Difference(action, baseline)
		if len(entries) == 0 {
			fmt.Println("No difference between baseline and action windows.")
			return
		}

		fmt.Println("Transactions attributed to the action (WRITE candidates marked with '*'):")
		for _, e := range entries {
			mark := " "
			if e.Tx.Key.Dir == sniffer.Write {
				mark = "*"
			}
			fmt.Printf("%s %s  +%v\n", mark, e.Tx.Key, e.DelayBefore)
		}

		if learnSave != "" {
			saveLearned(learnSave, entries)
		}

		if !learnYes {
			waitEnter("Press Enter to replay ONLY the WRITE transactions with preserved timing, Ctrl-C to abort.")
		}
		coord := &replay.Coordinator{Pause: pause}
		rep := &replay.Replayer{Opener: busOpener(), Logger: logger}
		cobra.CheckErr(coord.WithBus(func() error { return rep.Replay(entries) }))
		fmt.Println("Replay complete.")
	},
}

// checkCapture tolerates a cancelled capture; anything else is fatal.
func checkCapture(err error) {
	if err != nil && !errors.Is(err, sniffer.ErrCancelled) {
		cobra.CheckErr(err)
	}
}

// saveLearned converts the diff result into a macro and persists it.
func saveLearned(name string, entries []diffengine.Entry) {
	m := macro.FromDiff(name, entries)
	if len(m.Steps) == 0 {
		fmt.Println("No WRITE transactions to save.")
		return
	}
	store, err := macro.OpenStore(config.StorePath)
	cobra.CheckErr(err)
	defer store.Close()
	_, err = store.Save(m)
	cobra.CheckErr(err)
	fmt.Printf("Saved macro %q (%d steps) to %s\n", name, len(m.Steps), config.StorePath)
}

func init() {
	learnCmd.Flags().DurationVar(&learnBaseline, "baseline", 10*time.Second, "baseline window length")
	learnCmd.Flags().DurationVar(&learnAction, "action", 10*time.Second, "action window length")
	learnCmd.Flags().StringVar(&learnSave, "save", "", "save the learned sequence as a named macro")
	learnCmd.Flags().BoolVarP(&learnYes, "yes", "y", false, "replay without confirmation")
	rootCmd.AddCommand(learnCmd)
}
