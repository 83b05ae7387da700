// Package host implements the host side of a TL-UL link: a handshake
// controller clocked by a clock.Clock and a blocking Get/Put API on top of
// it.
package host

import (
	"bytes"
	"errors"
	"sync"

	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
	"go.uber.org/zap"
)

var (
	// ErrClosed is the cause of transactions aborted by Close.
	ErrClosed = errors.New("tlul/host: controller closed")

	// ErrReset is the cause of transactions aborted by a reset.
	ErrReset = errors.New("tlul/host: reset asserted")
)

// Hook positions of a Controller.
var (
	// HookPosTransactionStart is triggered when a request is issued. The
	// item is the *Transaction.
	HookPosTransactionStart = &hooking.HookPos{Name: "TransactionStart"}

	// HookPosTransactionEnd is triggered when a transaction completes,
	// successfully or not. The item is the *Transaction.
	HookPosTransactionEnd = &hooking.HookPos{Name: "TransactionEnd"}

	// HookPosStateChange is triggered on every handshake state transition.
	// The item is a StateChange and the detail is the *Transaction.
	HookPosStateChange = &hooking.HookPos{Name: "StateChange"}
)

// A Bus carries the packed bundles between the host and the device.
type Bus interface {
	// SetHostToDevice drives the host-to-device bundle.
	SetHostToDevice(buf []byte)

	// DeviceToHost returns the device-to-host bundle currently driven by
	// the device.
	DeviceToHost() []byte
}

// A Controller sequences one TL-UL transaction at a time across clock
// edges. It samples device outputs on the sample edge and drives its own
// outputs on the opposite edge.
//
// Hooks run while the controller is locked and must not call back into it.
type Controller struct {
	*hooking.HookableBase

	name       string
	layout     *tlul.Layout
	bus        Bus
	waker      clock.Waker
	sampleEdge clock.EdgeKind

	maxReadyWait    uint64
	maxResponseWait uint64
	sourceLimit     uint64

	idleBuf  []byte
	readyBuf []byte

	lock          sync.Mutex
	state         State
	tx            *Transaction
	reqBuf        []byte
	reqReadyBuf   []byte
	lastDriven    []byte
	readyDriven   bool
	aValidDriven  bool
	waitCycles    uint64
	nextSource    uint32
	cycle         uint64
	closed        bool
	strayReported bool

	// Sources of abandoned transactions whose responses are still owed.
	// d_ready stays high until each of them is drained.
	orphans map[uint32]bool

	// A request withdrawn while it was on the wire. The device may still
	// accept it on the next sampled edge.
	withdrawn       bool
	withdrawnSource uint32
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Layout returns the wire layout the controller encodes with.
func (c *Controller) Layout() *tlul.Layout {
	return c.layout
}

// State returns the current handshake state.
func (c *Controller) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.state
}

// Outstanding returns the transaction in flight, or nil.
func (c *Controller) Outstanding() *Transaction {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.tx
}

// Issue starts a transaction. The source field of the request is replaced
// by the next source ID of the controller. Issue does not wait for the
// transaction to complete.
func (c *Controller) Issue(req tlul.Request) (*Transaction, error) {
	c.lock.Lock()

	if c.closed {
		c.lock.Unlock()
		return nil, &tlul.OperationAbortedError{
			Reason: "closed",
			Cause:  ErrClosed,
		}
	}

	if c.state != StateIdle {
		err := &tlul.ProtocolBusyError{
			State:       c.state.String(),
			Outstanding: c.tx.Req,
		}
		c.lock.Unlock()

		return nil, err
	}

	req.Source = c.freeSource()

	if err := c.layout.ValidateRequest(req); err != nil {
		c.lock.Unlock()
		return nil, err
	}

	buf, err := c.layout.EncodeA(req, true, false)
	if err != nil {
		c.lock.Unlock()
		return nil, err
	}

	readyBuf, err := c.layout.EncodeA(req, true, true)
	if err != nil {
		c.lock.Unlock()
		return nil, err
	}

	c.nextSource = c.followingSource(req.Source)

	tx := newTransaction(req)
	c.tx = tx
	c.reqBuf = buf
	c.reqReadyBuf = readyBuf
	c.aValidDriven = false
	c.waitCycles = 0

	Logger().Debug("issue",
		zap.String("host", c.name),
		zap.String("tx", tx.ID),
		zap.Stringer("opcode", req.Opcode),
		zap.Uint64("address", req.Address),
		zap.Uint32("source", req.Source))

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransactionStart,
		Item:   tx,
	})
	c.setState(StateRequestSent)

	c.lock.Unlock()

	c.wake()

	return tx, nil
}

// freeSource returns the next source ID that no abandoned transaction still
// holds.
func (c *Controller) freeSource() uint32 {
	src := c.nextSource
	for i := 0; i < len(c.orphans) && c.orphans[src]; i++ {
		src = c.followingSource(src)
	}

	return src
}

func (c *Controller) followingSource(src uint32) uint32 {
	return uint32((uint64(src) + 1) % c.sourceLimit)
}

// Abort completes an outstanding transaction with an OperationAbortedError.
// It returns false if the transaction is not the one in flight.
func (c *Controller) Abort(tx *Transaction, reason string, cause error) bool {
	c.lock.Lock()

	if tx == nil || c.tx != tx {
		c.lock.Unlock()
		return false
	}

	c.abandon()
	c.complete(tlul.Response{}, &tlul.OperationAbortedError{
		Reason: reason,
		Cause:  cause,
	})

	c.lock.Unlock()

	c.wake()

	return true
}

// Close aborts the outstanding transaction and rejects all further
// requests.
func (c *Controller) Close() {
	c.lock.Lock()

	c.closed = true
	if c.tx != nil {
		c.abandon()
		c.complete(tlul.Response{}, &tlul.OperationAbortedError{
			Reason: "closed",
			Cause:  ErrClosed,
		})
	}

	c.lock.Unlock()

	c.wake()
}

// Sample observes the device-to-host bundle.
func (c *Controller) Sample(e clock.Edge) {
	if e.Kind != c.sampleEdge {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.cycle = e.Cycle

	beat, err := c.layout.DecodeD(c.bus.DeviceToHost())
	if err != nil {
		Logger().Error("cannot decode device bundle",
			zap.String("host", c.name), zap.Error(err))

		if c.tx != nil {
			c.complete(tlul.Response{}, err)
		}

		return
	}

	if c.withdrawn {
		c.withdrawn = false
		if beat.AReady {
			c.orphans[c.withdrawnSource] = true
		}
	}

	switch c.state {
	case StateIdle:
		c.sampleIdle(beat)
	case StateRequestSent:
		c.sampleRequestSent(beat)
	case StateAwaitingResponse:
		c.sampleAwaitingResponse(beat)
	}
}

func (c *Controller) sampleIdle(beat tlul.DBeat) {
	if !beat.Valid {
		c.strayReported = false
		return
	}

	if c.readyDriven && c.drain(beat.Response) {
		return
	}

	c.reportStray(beat)
}

// drain takes a late response of an abandoned transaction off the bus. It
// must only be called for a beat sampled while d_ready was driven high.
func (c *Controller) drain(rsp tlul.Response) bool {
	if !c.orphans[rsp.Source] {
		return false
	}

	delete(c.orphans, rsp.Source)

	Logger().Debug("drained late response",
		zap.String("host", c.name),
		zap.Uint64("cycle", c.cycle),
		zap.Stringer("opcode", rsp.Opcode),
		zap.Uint32("source", rsp.Source))

	return true
}

func (c *Controller) reportStray(beat tlul.DBeat) {
	if c.strayReported {
		return
	}

	c.strayReported = true

	Logger().Warn("response without outstanding request",
		zap.String("host", c.name),
		zap.Uint64("cycle", c.cycle),
		zap.Stringer("opcode", beat.Response.Opcode),
		zap.Uint32("source", beat.Response.Source))
}

func (c *Controller) sampleRequestSent(beat tlul.DBeat) {
	if beat.Valid && c.readyDriven && !c.drain(beat.Response) {
		c.reportStray(beat)
	}

	if !c.aValidDriven {
		return
	}

	if beat.AReady {
		c.tx.AcceptCycle = c.cycle
		c.waitCycles = 0
		c.setState(StateAwaitingResponse)

		return
	}

	c.waitCycles++
	if c.maxReadyWait > 0 && c.waitCycles >= c.maxReadyWait {
		c.complete(tlul.Response{}, &tlul.TimeoutError{
			Signal:  tlul.SignalAReady,
			Cycles:  c.waitCycles,
			Address: c.tx.Req.Address,
			Source:  c.tx.Req.Source,
		})
	}
}

func (c *Controller) sampleAwaitingResponse(beat tlul.DBeat) {
	if beat.Valid && c.readyDriven {
		if beat.Response.Source == c.tx.Req.Source || !c.drain(beat.Response) {
			c.setState(StateResponseReceived)
			c.complete(beat.Response, c.check(beat.Response))

			return
		}
	}

	c.waitCycles++
	if c.maxResponseWait > 0 && c.waitCycles >= c.maxResponseWait {
		c.abandon()
		c.complete(tlul.Response{}, &tlul.TimeoutError{
			Signal:  tlul.SignalDValid,
			Cycles:  c.waitCycles,
			Address: c.tx.Req.Address,
			Source:  c.tx.Req.Source,
		})
	}
}

func (c *Controller) check(rsp tlul.Response) error {
	req := c.tx.Req

	if rsp.Source != req.Source {
		return &tlul.OpcodeMismatchError{
			Request:        req,
			Response:       rsp,
			SourceMismatch: true,
		}
	}

	if rsp.Opcode != req.Opcode.ExpectedResponse() {
		return &tlul.OpcodeMismatchError{Request: req, Response: rsp}
	}

	if rsp.Error {
		return &tlul.BusError{
			Address:  req.Address,
			Source:   req.Source,
			Opcode:   req.Opcode,
			Response: rsp,
		}
	}

	return nil
}

// Drive updates the host-to-device bundle. It returns true while a
// transaction is in flight or the bundle has not settled to idle.
func (c *Controller) Drive(e clock.Edge) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e.Kind == c.sampleEdge {
		return c.busy()
	}

	// The withdrawn request leaves the wire before the device samples again.
	c.withdrawn = false

	ready := len(c.orphans) > 0
	buf := c.idleBuf

	switch c.state {
	case StateIdle:
		if ready {
			buf = c.readyBuf
		}
	case StateRequestSent:
		if !c.aValidDriven {
			c.aValidDriven = true
			c.tx.IssueCycle = e.Cycle
		}

		buf = c.reqBuf
		if ready {
			buf = c.reqReadyBuf
		}
	case StateAwaitingResponse:
		ready = true
		buf = c.readyBuf
	}

	c.drive(buf, ready)

	return c.busy()
}

// Reset aborts the outstanding transaction when reset is asserted and
// returns the bundle to idle.
func (c *Controller) Reset(asserted bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !asserted {
		return
	}

	if c.tx != nil {
		c.complete(tlul.Response{}, &tlul.OperationAbortedError{
			Reason: "reset",
			Cause:  ErrReset,
		})
	}

	c.strayReported = false
	c.withdrawn = false
	clear(c.orphans)
	c.drive(c.idleBuf, false)
}

// abandon records the outstanding request as owed a response when the
// device may already have accepted it. It must be called before complete.
func (c *Controller) abandon() {
	switch c.state {
	case StateAwaitingResponse:
		c.orphans[c.tx.Req.Source] = true
	case StateRequestSent:
		if c.aValidDriven {
			c.withdrawn = true
			c.withdrawnSource = c.tx.Req.Source
		}
	}
}

// busy tells if the clock must keep running for the controller. Holding
// d_ready for an abandoned response does not keep it running.
func (c *Controller) busy() bool {
	return c.state != StateIdle ||
		c.withdrawn ||
		!(bytes.Equal(c.lastDriven, c.idleBuf) ||
			bytes.Equal(c.lastDriven, c.readyBuf))
}

func (c *Controller) drive(buf []byte, dReady bool) {
	c.readyDriven = dReady

	if bytes.Equal(buf, c.lastDriven) {
		return
	}

	c.bus.SetHostToDevice(buf)
	c.lastDriven = buf
}

func (c *Controller) complete(rsp tlul.Response, err error) {
	tx := c.tx

	tx.Rsp = rsp
	tx.Err = err
	tx.CompleteCycle = c.cycle

	c.tx = nil
	c.reqBuf = nil
	c.reqReadyBuf = nil
	c.setStateFor(tx, StateIdle)

	if err != nil {
		Logger().Info("transaction failed",
			zap.String("host", c.name),
			zap.String("tx", tx.ID),
			zap.Stringer("opcode", tx.Req.Opcode),
			zap.Uint64("address", tx.Req.Address),
			zap.Error(err))
	} else {
		Logger().Debug("transaction done",
			zap.String("host", c.name),
			zap.String("tx", tx.ID),
			zap.Uint64("latency", tx.Latency()))
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosTransactionEnd,
		Item:   tx,
	})

	close(tx.done)
}

func (c *Controller) setState(s State) {
	c.setStateFor(c.tx, s)
}

func (c *Controller) setStateFor(tx *Transaction, s State) {
	if c.state == s {
		return
	}

	change := StateChange{From: c.state, To: s}
	c.state = s

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    HookPosStateChange,
		Item:   change,
		Detail: tx,
	})
}

func (c *Controller) wake() {
	if c.waker != nil {
		c.waker.Wake()
	}
}
