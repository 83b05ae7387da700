package clock

import (
	"context"
	"log"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/sim/timing"
	"go.uber.org/zap"
)

// HookPosEdge is triggered after both phases of an edge are handled. The
// hook item is the Edge.
var HookPosEdge = &hooking.HookPos{Name: "ClockEdge"}

// HookPosReset is triggered when reset is asserted or released. The hook
// item is a bool that tells if reset is asserted.
var HookPosReset = &hooking.HookPos{Name: "ClockReset"}

type sampleEvent struct {
	*timing.EventBase
	edge Edge
}

type driveEvent struct {
	*timing.EventBase
	edge Edge
}

// A Clock schedules edges on a simulation engine and delivers them to its
// listeners. The clock keeps running while any listener is busy or reset is
// asserted. Otherwise it stops until Wake is called.
type Clock struct {
	*hooking.HookableBase

	name        string
	engine      timing.Engine
	freq        timing.Freq
	resetCycles uint64

	lock         sync.Mutex
	listeners    []Listener
	resetRequest uint64

	started   bool
	next      Edge
	resetEnd  uint64
	stepping  bool
	stepUntil uint64
	done      <-chan struct{}

	cycle   atomic.Uint64
	inReset atomic.Bool
	wakeCh  chan struct{}
}

// Name returns the name of the clock.
func (c *Clock) Name() string {
	return c.name
}

// Freq returns the frequency of the clock.
func (c *Clock) Freq() timing.Freq {
	return c.freq
}

// Engine returns the engine the clock schedules its edges on.
func (c *Clock) Engine() timing.Engine {
	return c.engine
}

// AddListener registers a component that receives the edges of the clock.
func (c *Clock) AddListener(l Listener) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.listeners = append(c.listeners, l)
}

// Cycle returns the cycle of the most recent edge.
func (c *Clock) Cycle() uint64 {
	return c.cycle.Load()
}

// Now returns the current simulation time.
func (c *Clock) Now() timing.VTimeInSec {
	return c.engine.Now()
}

// InReset tells if reset is currently asserted. It is safe to call from any
// goroutine.
func (c *Clock) InReset() bool {
	return c.inReset.Load()
}

// Wake restarts a stopped clock. It is safe to call from any goroutine.
func (c *Clock) Wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// AssertReset asserts reset for the given number of cycles, starting at the
// next rising edge.
func (c *Clock) AssertReset(cycles uint64) {
	if cycles == 0 {
		return
	}

	c.lock.Lock()
	c.resetRequest = cycles
	c.lock.Unlock()

	c.Wake()
}

// Pause stops the engine from handling more edges until Continue is called.
func (c *Clock) Pause() {
	c.engine.Pause()
}

// Continue resumes a paused clock.
func (c *Clock) Continue() {
	c.engine.Continue()
}

// Run keeps delivering edges until the context is cancelled. When no
// listener is busy, Run sleeps until Wake or AssertReset is called.
func (c *Clock) Run(ctx context.Context) error {
	c.done = ctx.Done()
	defer func() { c.done = nil }()

	c.start()

	for {
		c.scheduleNext()

		if err := c.engine.Run(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wakeCh:
		}
	}
}

// RunCycles delivers the edges of the next n cycles whether or not any
// listener is busy, and returns once they are handled.
func (c *Clock) RunCycles(n uint64) error {
	if n == 0 {
		return nil
	}

	c.start()

	c.stepping = true
	c.stepUntil = c.next.Cycle + n

	defer func() { c.stepping = false }()

	c.scheduleNext()

	return c.engine.Run()
}

func (c *Clock) start() {
	if c.started {
		return
	}

	c.started = true

	if c.resetCycles > 0 {
		c.inReset.Store(true)
		c.resetEnd = c.resetCycles
		c.broadcastReset(true)
	}
}

func (c *Clock) scheduleNext() {
	if c.stepping && c.next.Cycle >= c.stepUntil {
		return
	}

	t := c.freq.CycleTime(c.next.Cycle)
	if c.next.Kind == Falling {
		t = c.freq.HalfCycleTime(c.next.Cycle)
	}

	if t < c.engine.Now() {
		t = c.engine.Now()
	}

	c.engine.Schedule(&sampleEvent{
		EventBase: timing.NewEventBase(t, c),
		edge:      c.next,
	})

	c.next = c.next.next()
}

// Handle handles the sample and drive phases of an edge.
func (c *Clock) Handle(e timing.Event) error {
	switch evt := e.(type) {
	case *sampleEvent:
		c.sample(evt)
	case *driveEvent:
		c.drive(evt)
	default:
		log.Panicf("clock cannot handle event of type %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *Clock) sample(evt *sampleEvent) {
	c.cycle.Store(evt.edge.Cycle)

	if evt.edge.Kind == Rising {
		c.updateReset(evt.edge.Cycle)
	}

	if !c.inReset.Load() {
		for _, l := range c.snapshotListeners() {
			l.Sample(evt.edge)
		}
	}

	c.engine.Schedule(&driveEvent{
		EventBase: timing.NewSecondaryEventBase(evt.Time(), c),
		edge:      evt.edge,
	})
}

func (c *Clock) drive(evt *driveEvent) {
	busy := false

	if !c.inReset.Load() {
		for _, l := range c.snapshotListeners() {
			if l.Drive(evt.edge) {
				busy = true
			}
		}
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosEdge,
		Item:   evt.edge,
	})

	if c.stopped() {
		return
	}

	if c.stepping || busy || c.inReset.Load() || c.resetPending() {
		c.scheduleNext()
		return
	}

	Logger().Debug("clock idle",
		zap.String("clock", c.name),
		zap.Uint64("cycle", evt.edge.Cycle),
		zap.Stringer("edge", evt.edge.Kind))
}

func (c *Clock) stopped() bool {
	if c.done == nil {
		return false
	}

	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Clock) updateReset(cycle uint64) {
	if n := c.takeResetRequest(); n > 0 {
		if !c.inReset.Load() {
			c.inReset.Store(true)
			c.broadcastReset(true)
		}

		c.resetEnd = cycle + n
	}

	if c.inReset.Load() && cycle >= c.resetEnd {
		c.inReset.Store(false)
		c.broadcastReset(false)
	}
}

func (c *Clock) broadcastReset(asserted bool) {
	Logger().Debug("reset",
		zap.String("clock", c.name),
		zap.Bool("asserted", asserted),
		zap.Uint64("cycle", c.Cycle()))

	for _, l := range c.snapshotListeners() {
		l.Reset(asserted)
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosReset,
		Item:   asserted,
	})
}

func (c *Clock) takeResetRequest() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	n := c.resetRequest
	c.resetRequest = 0

	return n
}

func (c *Clock) resetPending() bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.resetRequest > 0
}

func (c *Clock) snapshotListeners() []Listener {
	c.lock.Lock()
	defer c.lock.Unlock()

	return append([]Listener(nil), c.listeners...)
}
