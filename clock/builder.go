package clock

import (
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/sim/timing"
)

// Builder can build clocks.
type Builder struct {
	engine        timing.Engine
	freq          timing.Freq
	resetDuration timing.VTimeInSec
}

// MakeBuilder creates a Builder with a 100 MHz clock and a 50 ns reset.
func MakeBuilder() Builder {
	return Builder{
		freq:          100 * timing.MHz,
		resetDuration: 50e-9,
	}
}

// WithEngine sets the engine the clock schedules edges on. A new serial
// engine is created if none is given.
func (b Builder) WithEngine(e timing.Engine) Builder {
	b.engine = e
	return b
}

// WithFreq sets the frequency of the clock.
func (b Builder) WithFreq(f timing.Freq) Builder {
	b.freq = f
	return b
}

// WithPeriod sets the frequency of the clock from its period.
func (b Builder) WithPeriod(period timing.VTimeInSec) Builder {
	b.freq = timing.FreqFromPeriod(period)
	return b
}

// WithResetDuration sets how long the initial reset pulse lasts. The
// duration is rounded up to whole cycles. Zero disables the pulse.
func (b Builder) WithResetDuration(d timing.VTimeInSec) Builder {
	b.resetDuration = d
	return b
}

// Build creates a new clock.
func (b Builder) Build(name string) *Clock {
	engine := b.engine
	if engine == nil {
		engine = timing.NewSerialEngine()
	}

	return &Clock{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		engine:       engine,
		freq:         b.freq,
		resetCycles:  b.freq.CyclesIn(b.resetDuration),
		wakeCh:       make(chan struct{}, 1),
	}
}
