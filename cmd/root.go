package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/sergev/i2ctap/config"
	"github.com/sergev/i2ctap/i2cbus"
	"github.com/sergev/i2ctap/macro"
	"github.com/sergev/i2ctap/probe"

	// Sampler backends register themselves with the probe registry.
	_ "github.com/sergev/i2ctap/gpioprobe"
	_ "github.com/sergev/i2ctap/serialprobe"
	_ "github.com/sergev/i2ctap/usbprobe"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var logger hclog.Logger

var (
	flagProbe   string
	flagSDA     string
	flagSCL     string
	flagBus     int
	flagPort    string
	flagLog     string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "i2ctap",
	Short: "A CLI program which sniffs and replays I2C bus traffic via GPIO",
	Long: "The i2ctap tool passively decodes I2C transactions at the GPIO level,\n" +
		"isolates the transactions caused by a user action, and replays the\n" +
		"write transactions (or pre-recorded macros) with original timing.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(config.Initialize())

		// Explicit flags win; the config profile fills the rest.
		if !cmd.Flags().Changed("probe") {
			flagProbe = config.ProbeName
		}
		if !cmd.Flags().Changed("sda") {
			flagSDA = config.SDAPin
		}
		if !cmd.Flags().Changed("scl") {
			flagSCL = config.SCLPin
		}
		if !cmd.Flags().Changed("bus") {
			flagBus = config.BusNumber
		}
		if !cmd.Flags().Changed("port") {
			flagPort = config.Port
		}

		level := hclog.Info
		if flagVerbose {
			level = hclog.Debug
		}
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "i2ctap",
			Level: level,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagProbe, "probe", "gpio", "sampler backend (gpio, serial, usb)")
	rootCmd.PersistentFlags().StringVar(&flagSDA, "sda", "GPIO2", "SDA pin name")
	rootCmd.PersistentFlags().StringVar(&flagSCL, "scl", "GPIO3", "SCL pin name")
	rootCmd.PersistentFlags().IntVar(&flagBus, "bus", 1, "kernel I2C bus number used for replay")
	rootCmd.PersistentFlags().StringVar(&flagPort, "port", "", "serial port of the probe (empty = autodetect)")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "i2c_log.txt", "transaction log file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug diagnostics")
}

// openSampler creates the configured sampler backend.
func openSampler() (probe.Sampler, error) {
	return probe.Open(flagProbe, probe.Config{
		SDAPin: flagSDA,
		SCLPin: flagSCL,
		Port:   flagPort,
	})
}

// busOpener returns the transmission layer for the configured bus.
func busOpener() i2cbus.Opener {
	return i2cbus.Dev{Number: flagBus}
}

// findMacro looks up a macro by name, first in the config file, then in
// the learned-macro store.
func findMacro(name string) (macro.Macro, error) {
	if m, ok := config.Macros[name]; ok {
		return m, nil
	}
	store, err := macro.OpenStore(config.StorePath)
	if err != nil {
		return macro.Macro{}, fmt.Errorf("macro %q not in config and store unavailable: %w", name, err)
	}
	defer store.Close()
	return store.Load(name)
}

// macroNames lists the known macro names from the config file and the
// learned-macro store.
func macroNames() []string {
	var names []string
	for name := range config.Macros {
		names = append(names, name)
	}
	if store, err := macro.OpenStore(config.StorePath); err == nil {
		if stored, err := store.Names(); err == nil {
			names = append(names, stored...)
		}
		store.Close()
	}
	return names
}

// waitEnter prints a prompt and blocks until the user presses Enter.
func waitEnter(prompt string) {
	fmt.Println(prompt)
	bufio.NewReader(os.Stdin).ReadString('\n')
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
