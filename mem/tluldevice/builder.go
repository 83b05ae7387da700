package tluldevice

import (
	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/mem/storage"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
)

// Builder can build memory devices.
type Builder struct {
	layout       *tlul.Layout
	clk          *clock.Clock
	clockEdge    clock.EdgeKind
	latency      int
	readyLatency int
	capacity     uint64
	baseAddress  uint64
	sinkID       uint32
	storage      *storage.Storage
}

// MakeBuilder returns a Builder for a 64 KiB memory that answers one cycle
// after accepting a request.
func MakeBuilder() Builder {
	return Builder{
		clockEdge: clock.Rising,
		latency:   1,
		capacity:  64 * 1024,
	}
}

// WithLayout sets the wire layout.
func (b Builder) WithLayout(l *tlul.Layout) Builder {
	b.layout = l
	return b
}

// WithClock registers the device with a clock.
func (b Builder) WithClock(c *clock.Clock) Builder {
	b.clk = c
	return b
}

// WithClockEdge sets the edge the device is clocked on.
func (b Builder) WithClockEdge(k clock.EdgeKind) Builder {
	b.clockEdge = k
	return b
}

// WithLatency sets the number of cycles between accepting a request and
// asserting d_valid.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithReadyLatency sets the number of cycles a_ready stays low after reset
// and after each response.
func (b Builder) WithReadyLatency(cycles int) Builder {
	b.readyLatency = cycles
	return b
}

// WithNewStorage sets the capacity of the storage to create.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets an existing storage as the backing store.
func (b Builder) WithStorage(s *storage.Storage) Builder {
	b.storage = s
	return b
}

// WithBaseAddress sets the bus address of the first byte of storage.
func (b Builder) WithBaseAddress(addr uint64) Builder {
	b.baseAddress = addr
	return b
}

// WithSinkID sets the sink ID reported in responses.
func (b Builder) WithSinkID(id uint32) Builder {
	b.sinkID = id
	return b
}

// Build creates a new device.
func (b Builder) Build(name string) *Comp {
	layout := b.layout
	if layout == nil {
		layout = tlul.DefaultLayout()
	}

	if uint64(b.sinkID) >= uint64(1)<<uint(layout.Params().SinkWidth) {
		panic("tluldevice: sink ID does not fit in d_sink")
	}

	c := &Comp{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		layout:       layout,
		storage:      b.storage,
		baseAddress:  b.baseAddress,
		latency:      b.latency,
		readyLatency: b.readyLatency,
		sinkID:       b.sinkID,
		clockEdge:    b.clockEdge,
		in:           layout.IdleA(),
		aReady:       true,
	}

	if c.storage == nil {
		c.storage = storage.New(b.capacity)
	}

	c.encode()

	if b.clk != nil {
		b.clk.AddListener(c)
	}

	return c
}
