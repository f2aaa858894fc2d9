package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sergev/i2ctap/replay"
	"github.com/sergev/i2ctap/sniffer"
	"github.com/sergev/i2ctap/txlog"

	"github.com/spf13/cobra"
)

var sniffDuration time.Duration

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Continuously log bus transactions, with interactive macro sending",
	Long: "Sniff the bus and append every framed transaction to the log file.\n" +
		"While sniffing, type a macro name + Enter to send it (sniffing pauses\n" +
		"around the transmission), or 'q' + Enter to quit.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		sampler, err := openSampler()
		cobra.CheckErr(err)
		defer sampler.Close()

		tlog, err := txlog.Create(flagLog, true)
		cobra.CheckErr(err)
		defer tlog.Close()

		pause := sniffer.NewSignal()
		stop := sniffer.NewSignal()
		session := &sniffer.Session{
			Sampler: sampler,
			Log:     tlog,
			Logger:  logger,
			Pause:   pause,
			Stop:    stop,
		}
		tlog.Notef("Sniffer started (%s). Logging to %s", sampler.Describe(), flagLog)

		var capture *sniffer.Capture
		done := make(chan struct{})
		go func() {
			defer close(done)
			c, err := session.Run(sniffDuration)
			if err != nil && !errors.Is(err, sniffer.ErrCancelled) {
				logger.Error("capture failed", "err", err)
			}
			capture = c
		}()

		coord := &replay.Coordinator{Pause: pause}
		rep := &replay.Replayer{Opener: busOpener(), Logger: logger}

		fmt.Println("Interactive control: macro name + Enter to send it, 'q' + Enter to quit.")
		if names := macroNames(); len(names) > 0 {
			fmt.Printf("Known macros: %s\n", strings.Join(names, ", "))
		}

		lines := make(chan string)
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				lines <- strings.TrimSpace(scanner.Text())
			}
			close(lines)
		}()

		for {
			select {
			case <-done:
				report(capture)
				return
			case line, ok := <-lines:
				if !ok || line == "q" {
					stop.Assert()
					<-done
					report(capture)
					return
				}
				if line == "" {
					continue
				}
				m, err := findMacro(line)
				if err != nil {
					fmt.Println(err)
					continue
				}
				if err := coord.WithBus(func() error { return rep.SendMacro(m) }); err != nil {
					fmt.Printf("macro %q failed: %v\n", line, err)
				}
			}
		}
	},
}

func report(capture *sniffer.Capture) {
	if capture == nil {
		return
	}
	fmt.Printf("Captured %d transactions (%d decode timeouts).\n",
		len(capture.Transactions), capture.DecodeTimeouts)
}

func init() {
	sniffCmd.Flags().DurationVar(&sniffDuration, "duration", 0, "capture duration (0 = until quit)")
	rootCmd.AddCommand(sniffCmd)
}
