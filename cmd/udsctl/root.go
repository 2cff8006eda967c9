package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seagrayinc/linuds/internal/config"
	"github.com/seagrayinc/linuds/internal/logging"
	"github.com/seagrayinc/linuds/internal/observability"
	"github.com/seagrayinc/linuds/internal/output"
)

// app holds the flags and the state shared by every subcommand.
type app struct {
	cfgFile   string
	iface     string
	port      string
	nad       uint8
	instance  uint16
	bitrate   uint32
	delay     time.Duration
	timeout   time.Duration
	format    string
	logLevel  string
	cfg       config.Config
	formatter output.Formatter
	metrics   *observability.Metrics

	// sim is shared by every connection of one process so simulated writes persist.
	sim *simState
}

func newApp() *app {
	return &app{metrics: observability.NewMetrics()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "udsctl",
		Short: "Run diagnostic services on LIN nodes through a jabi adapter",
		Long: `udsctl reads and writes data identifiers and controls routines on a LIN node
using diagnostic services carried by the LIN transport layer. The node is reached
through a jabi adapter over USB, UART or HID, or through a built-in simulator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file, .toml or .yaml (default "+config.DefaultPath()+")")
	flags.StringVarP(&a.iface, "interface", "i", "", "adapter interface: usb, uart, hid or sim")
	flags.StringVar(&a.port, "port", "", "serial port for the uart interface")
	flags.Uint8Var(&a.nad, "nad", 0, "node address of the target (0x7F for broadcast)")
	flags.Uint16Var(&a.instance, "lin", 0, "adapter LIN instance")
	flags.Uint32Var(&a.bitrate, "bitrate", 0, "LIN bitrate")
	flags.DurationVar(&a.delay, "delay", 0, "wait between request and response")
	flags.DurationVar(&a.timeout, "timeout", 0, "per exchange timeout (0 disables)")
	flags.StringVarP(&a.format, "output", "o", "", "output format: table, json, yaml")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newReadCmd(a),
		newWriteCmd(a),
		newRoutineCmd(a),
		newInfoCmd(a),
		newDevicesCmd(a),
		newWatchCmd(a),
	)
	return root
}

// setup loads the config file and applies flag overrides.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	} else if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("interface") {
		cfg.Interface = a.iface
	}
	if flags.Changed("port") {
		cfg.UART.Port = a.port
	}
	if flags.Changed("nad") {
		cfg.LIN.NAD = a.nad
	}
	if flags.Changed("lin") {
		cfg.LIN.Instance = a.instance
	}
	if flags.Changed("bitrate") {
		cfg.LIN.Bitrate = a.bitrate
	}
	if flags.Changed("delay") {
		cfg.UDS.Delay = config.Duration(a.delay)
	}
	if flags.Changed("timeout") {
		cfg.UDS.Timeout = config.Duration(a.timeout)
	}
	if flags.Changed("output") {
		cfg.Output = a.format
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if a.logLevel != "" {
		lvl, ok := logging.ParseLevel(a.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", a.logLevel)
		}
		lc := logging.DefaultConfig(logging.ProfileRuntime)
		logging.ApplyEnvOverrides(&lc)
		lc.Level = lvl
		lc.Output = cmd.ErrOrStderr()
		slog.SetDefault(logging.New(lc))
	}

	a.formatter, err = output.NewFormatter(cfg.Output)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// print renders v with the selected formatter.
func (a *app) print(cmd *cobra.Command, v any) error {
	s, err := a.formatter.Format(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), s)
	return err
}
