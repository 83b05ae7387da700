// Package testbench assembles a clock, a TL-UL memory device, and a host
// into a runnable simulation.
package testbench

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/config"
	"github.com/sarchlab/tlul/datarecording"
	"github.com/sarchlab/tlul/mem/tluldevice"
	"github.com/sarchlab/tlul/monitoring"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
	"github.com/sarchlab/tlul/tlul/host"
)

// A Bench is a host connected to a memory device, both clocked by the same
// clock.
type Bench struct {
	Clock    *clock.Clock
	Device   *tluldevice.Comp
	Host     *host.Host
	Monitor  *monitoring.Monitor
	Recorder datarecording.DataRecorder
	TxLog    *monitoring.TransactionLog

	name     string
	cfg      config.Config
	layout   *tlul.Layout
	registry *prometheus.Registry
	metrics  *host.Metrics
	exec     *datarecording.ExecRecorder

	readyOnce sync.Once
	ready     chan struct{}

	cancel  context.CancelFunc
	runDone chan error
}

// Name returns the name of the bench.
func (b *Bench) Name() string {
	return b.name
}

// Config returns the configuration the bench was built with.
func (b *Bench) Config() config.Config {
	return b.cfg
}

// Layout returns the signal layout of the bus.
func (b *Bench) Layout() *tlul.Layout {
	return b.layout
}

// Registry returns the registry holding the host metrics.
func (b *Bench) Registry() *prometheus.Registry {
	return b.registry
}

func (b *Bench) resetWatcher() hooking.Hook {
	return hooking.HookFunc(func(ctx hooking.HookCtx) {
		if ctx.Pos != clock.HookPosReset {
			return
		}

		if asserted := ctx.Item.(bool); !asserted {
			b.markReady()
		}
	})
}

func (b *Bench) markReady() {
	b.readyOnce.Do(func() { close(b.ready) })
}

// Start runs the clock in the background and returns once the initial reset
// is released.
func (b *Bench) Start(ctx context.Context) error {
	if b.cancel != nil {
		return errors.New("testbench: already started")
	}

	if b.cfg.Clock.ResetDuration == 0 {
		b.markReady()
	}

	if b.exec != nil {
		b.exec.Start()
	}

	if b.Monitor != nil {
		if _, err := b.Monitor.StartServer(); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.runDone = make(chan error, 1)

	go func() {
		b.runDone <- b.Clock.Run(runCtx)
	}()

	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops the clock, the monitor, and the recorder.
func (b *Bench) Stop() error {
	var errs []error

	if b.cancel != nil {
		b.cancel()
		b.Clock.Wake()

		if err := <-b.runDone; err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, err)
		}

		b.cancel = nil
	}

	b.Host.Close()

	if b.Monitor != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		errs = append(errs, b.Monitor.StopServer(ctx))
		cancel()
	}

	if b.Recorder != nil {
		if b.exec != nil {
			b.exec.End()
		}

		errs = append(errs, b.Recorder.Close())
	}

	return errors.Join(errs...)
}
