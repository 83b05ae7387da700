package testbench

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/config"
	"github.com/sarchlab/tlul/datarecording"
	"github.com/sarchlab/tlul/mem/tluldevice"
	"github.com/sarchlab/tlul/monitoring"
	"github.com/sarchlab/tlul/sim/timing"
	"github.com/sarchlab/tlul/tlul/host"
)

// Builder can build test benches.
type Builder struct {
	cfg      config.Config
	registry *prometheus.Registry
	recorder datarecording.DataRecorder
}

// MakeBuilder creates a Builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg: config.Default(),
	}
}

// WithConfig sets the configuration of the bench.
func (b Builder) WithConfig(cfg config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithRegistry sets the registry the host metrics are registered with. A new
// registry is created if none is given.
func (b Builder) WithRegistry(reg *prometheus.Registry) Builder {
	b.registry = reg
	return b
}

// WithRecorder records into the given recorder instead of creating one from
// the configuration. Recording is enabled when a recorder is given.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// Build creates the clock, the device, and the host, and connects them.
func (b Builder) Build(name string) (*Bench, error) {
	cfg := b.cfg

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	layout, err := cfg.Layout()
	if err != nil {
		return nil, err
	}

	edge, err := cfg.SampleEdge()
	if err != nil {
		return nil, err
	}

	bench := &Bench{
		name:     name,
		cfg:      cfg,
		layout:   layout,
		registry: b.registry,
		ready:    make(chan struct{}),
	}

	if bench.registry == nil {
		bench.registry = prometheus.NewRegistry()
	}

	bench.Clock = clock.MakeBuilder().
		WithPeriod(timing.VTimeInSec(cfg.Clock.Period.Seconds())).
		WithResetDuration(timing.VTimeInSec(cfg.Clock.ResetDuration.Seconds())).
		Build(name + ".Clock")

	bench.Device = tluldevice.MakeBuilder().
		WithLayout(layout).
		WithClock(bench.Clock).
		WithClockEdge(edge).
		WithLatency(cfg.Device.Latency).
		WithReadyLatency(cfg.Device.ReadyLatency).
		WithNewStorage(cfg.Device.Capacity).
		WithBaseAddress(cfg.Device.BaseAddress).
		WithSinkID(cfg.Device.SinkID).
		Build(name + ".Device")

	bench.Host = host.MakeBuilder().
		WithLayout(layout).
		WithBus(bench.Device).
		WithClock(bench.Clock).
		WithSampleEdge(edge).
		WithMaxReadyWaitCycles(cfg.Host.MaxReadyWaitCycles).
		WithMaxResponseWaitCycles(cfg.Host.MaxResponseWaitCycles).
		WithSourceBase(cfg.Host.SourceBase).
		Build(name + ".Host")

	bench.metrics = host.NewMetrics(bench.registry)
	bench.Host.Controller().AcceptHook(bench.metrics)

	bench.TxLog = monitoring.NewTransactionLog(256)
	bench.Host.Controller().AcceptHook(bench.TxLog)

	bench.Clock.AcceptHook(bench.resetWatcher())

	if err := b.buildRecorder(bench); err != nil {
		return nil, err
	}

	if cfg.Monitor.Enabled {
		b.buildMonitor(bench)
	}

	return bench, nil
}

func (b Builder) buildRecorder(bench *Bench) error {
	recorder := b.recorder

	if recorder == nil && bench.cfg.Record.Enabled {
		var err error

		recorder, err = datarecording.NewWithConfig(bench.cfg.Record.RecorderConfig)
		if err != nil {
			return fmt.Errorf("testbench: create recorder: %w", err)
		}
	}

	if recorder == nil {
		return nil
	}

	bench.Recorder = recorder
	bench.exec = datarecording.NewExecRecorder(recorder)

	txRecorder := datarecording.NewTransactionRecorder(recorder)
	bench.Host.Controller().AcceptHook(txRecorder)
	bench.Device.AcceptHook(txRecorder)

	return nil
}

func (b Builder) buildMonitor(bench *Bench) {
	m := monitoring.NewMonitor().
		WithPortNumber(bench.cfg.Monitor.Port).
		WithOpenBrowser(bench.cfg.Monitor.OpenBrowser)

	m.RegisterClock(bench.Clock)
	m.RegisterComponent(bench.Host.Controller())
	m.RegisterComponent(bench.Device)
	m.RegisterGatherer(bench.registry)
	m.RegisterTransactionLog(bench.TxLog)

	bench.Monitor = m
}
