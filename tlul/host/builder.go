package host

import (
	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
)

// Builder can build hosts.
type Builder struct {
	layout          *tlul.Layout
	bus             Bus
	clk             *clock.Clock
	waker           clock.Waker
	sampleEdge      clock.EdgeKind
	maxReadyWait    uint64
	maxResponseWait uint64
	sourceBase      uint32
}

// MakeBuilder creates a Builder with the default layout, sampling on the
// rising edge and waiting up to 1000 cycles for each handshake.
func MakeBuilder() Builder {
	return Builder{
		sampleEdge:      clock.Rising,
		maxReadyWait:    1000,
		maxResponseWait: 1000,
	}
}

// WithLayout sets the wire layout.
func (b Builder) WithLayout(l *tlul.Layout) Builder {
	b.layout = l
	return b
}

// WithBus sets the bus the host drives and samples.
func (b Builder) WithBus(bus Bus) Builder {
	b.bus = bus
	return b
}

// WithClock registers the host with a clock. The clock is also used to wake
// up the simulation when a request is issued.
func (b Builder) WithClock(c *clock.Clock) Builder {
	b.clk = c
	return b
}

// WithWaker sets what is woken when a request is issued. It overrides the
// clock set by WithClock.
func (b Builder) WithWaker(w clock.Waker) Builder {
	b.waker = w
	return b
}

// WithSampleEdge sets the edge device outputs are sampled on. It must be the
// edge the device is clocked on. The host drives on the opposite edge.
func (b Builder) WithSampleEdge(k clock.EdgeKind) Builder {
	b.sampleEdge = k
	return b
}

// WithMaxReadyWaitCycles sets how many sampled edges the host waits for
// a_ready. Zero waits forever.
func (b Builder) WithMaxReadyWaitCycles(n uint64) Builder {
	b.maxReadyWait = n
	return b
}

// WithMaxResponseWaitCycles sets how many sampled edges the host waits for
// d_valid after the request is accepted. Zero waits forever.
func (b Builder) WithMaxResponseWaitCycles(n uint64) Builder {
	b.maxResponseWait = n
	return b
}

// WithSourceBase sets the source ID of the first transaction.
func (b Builder) WithSourceBase(source uint32) Builder {
	b.sourceBase = source
	return b
}

// Build creates a new host.
func (b Builder) Build(name string) *Host {
	if b.bus == nil {
		panic("host: bus is required")
	}

	layout := b.layout
	if layout == nil {
		layout = tlul.DefaultLayout()
	}

	readyBuf, err := layout.EncodeA(tlul.Request{}, false, true)
	if err != nil {
		panic(err)
	}

	c := &Controller{
		HookableBase:    hooking.NewHookableBase(),
		name:            name,
		layout:          layout,
		bus:             b.bus,
		waker:           b.waker,
		sampleEdge:      b.sampleEdge,
		maxReadyWait:    b.maxReadyWait,
		maxResponseWait: b.maxResponseWait,
		sourceLimit:     uint64(1) << uint(layout.Params().SourceWidth),
		idleBuf:         layout.IdleA(),
		readyBuf:        readyBuf,
		orphans:         make(map[uint32]bool),
	}
	c.nextSource = uint32(uint64(b.sourceBase) % c.sourceLimit)

	if c.waker == nil && b.clk != nil {
		c.waker = b.clk
	}

	c.drive(c.idleBuf, false)

	if b.clk != nil {
		b.clk.AddListener(c)
	}

	return &Host{ctrl: c}
}
