package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/config"
	"github.com/sarchlab/tlul/mem/tluldevice"
	"github.com/sarchlab/tlul/testbench"
	"github.com/sarchlab/tlul/tlul/host"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configPath  string
	envFiles    []string
	logLevel    string
	logFile     string
	record      bool
	recordPath  string
	monitor     bool
	monitorPort int
	openBrowser bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "tlul",
		Short: "Drive a simulated TL-UL memory at the signal level.",
		Long: `tlul runs a TL-UL host against a simulated memory device. ` +
			`Every request is packed into the Channel A bundle, handshaked ` +
			`on a simulated clock, and checked against the Channel D response.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringSliceVar(&opts.envFiles, "env-file", nil,
		".env files to load before reading TLUL_* variables")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file, rotated")
	flags.BoolVar(&opts.record, "record", false, "record transactions into a database")
	flags.StringVar(&opts.recordPath, "record-path", "", "recording file name without extension")
	flags.BoolVar(&opts.monitor, "monitor", false, "serve the monitoring page")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0, "port of the monitoring page")
	flags.BoolVar(&opts.openBrowser, "open-browser", false, "open the monitoring page in a browser")

	rootCmd.AddCommand(
		newWidthsCmd(opts),
		newGetCmd(opts),
		newPutCmd(opts),
		newScriptCmd(opts),
		newReportCmd(opts),
	)

	return rootCmd
}

func (o *options) setup(cmd *cobra.Command) error {
	if err := config.LoadEnvFiles(o.envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}

	if flags.Changed("record") {
		cfg.Record.Enabled = o.record
	}

	if flags.Changed("record-path") {
		cfg.Record.Path = o.recordPath
	}

	if flags.Changed("monitor") {
		cfg.Monitor.Enabled = o.monitor
	}

	if flags.Changed("monitor-port") {
		cfg.Monitor.Port = o.monitorPort
	}

	if flags.Changed("open-browser") {
		cfg.Monitor.OpenBrowser = o.openBrowser
	}

	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	clock.SetLogger(logger.Named("clock"))
	host.SetLogger(logger.Named("host"))
	tluldevice.SetLogger(logger.Named("device"))

	o.cfg = cfg
	o.logger = logger

	return nil
}

// withBench builds and starts a bench, runs f, and stops the bench. An
// interrupt cancels the context passed to f.
func (o *options) withBench(
	f func(ctx context.Context, b *testbench.Bench) error,
) error {
	b, err := testbench.MakeBuilder().WithConfig(o.cfg).Build("Bench")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := b.Start(ctx); err != nil {
		_ = b.Stop()
		return fmt.Errorf("start bench: %w", err)
	}

	o.logger.Debug("bench started",
		zap.Stringer("sample_edge", mustEdge(o.cfg)),
		zap.Duration("period", o.cfg.Clock.Period))

	runErr := f(ctx, b)

	if err := b.Stop(); err != nil && runErr == nil {
		runErr = err
	}

	return runErr
}

func mustEdge(cfg config.Config) clock.EdgeKind {
	edge, err := cfg.SampleEdge()
	if err != nil {
		panic(err)
	}

	return edge
}
