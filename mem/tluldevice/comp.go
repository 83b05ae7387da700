// Package tluldevice provides a memory that answers TL-UL requests at the
// signal level. It is clocked by a clock.Clock and exchanges packed bundles
// with a host.
package tluldevice

import (
	"encoding/binary"
	"sync"

	"github.com/sarchlab/tlul/clock"
	"github.com/sarchlab/tlul/mem/storage"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul"
	"go.uber.org/zap"
)

// HookPosAccess is triggered when the device accepts a request. The item is
// an Access.
var HookPosAccess = &hooking.HookPos{Name: "DeviceAccess"}

// An Access records a request served by the device and the response it
// produced.
type Access struct {
	Cycle    uint64
	Request  tlul.Request
	Response tlul.Response
}

// A Comp is a memory device with a TL-UL port. It accepts one request at a
// time, answers it after a fixed number of cycles, and holds the response
// until the host takes it.
type Comp struct {
	*hooking.HookableBase

	name         string
	layout       *tlul.Layout
	storage      *storage.Storage
	baseAddress  uint64
	latency      int
	readyLatency int
	sinkID       uint32
	clockEdge    clock.EdgeKind

	lock           sync.Mutex
	in             []byte
	out            []byte
	aReady         bool
	dValid         bool
	pending        *tlul.Response
	countdown      int
	readyCountdown int
	inReset        bool
	served         uint64
	errCount       uint64
}

// Name returns the name of the device.
func (c *Comp) Name() string {
	return c.name
}

// Storage returns the backing store of the device.
func (c *Comp) Storage() *storage.Storage {
	return c.storage
}

// Served returns the number of requests accepted so far.
func (c *Comp) Served() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.served
}

// Errors returns the number of requests answered with d_error.
func (c *Comp) Errors() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.errCount
}

// SetHostToDevice latches the bundle driven by the host.
func (c *Comp) SetHostToDevice(buf []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.in = append(c.in[:0], buf...)
}

// DeviceToHost returns the bundle driven by the device.
func (c *Comp) DeviceToHost() []byte {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.out
}

// Sample completes the response handshake and accepts a new request.
func (c *Comp) Sample(e clock.Edge) {
	if e.Kind != c.clockEdge {
		return
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	beat, err := c.layout.DecodeA(c.in)
	if err != nil {
		Logger().Error("cannot decode host bundle",
			zap.String("device", c.name), zap.Error(err))
		return
	}

	if c.dValid && beat.DReady {
		c.dValid = false
		c.pending = nil
		c.readyCountdown = c.readyLatency
	}

	if beat.Valid && c.aReady {
		rsp := c.serve(beat.Request)
		c.pending = &rsp
		c.countdown = c.latency
		c.served++

		if rsp.Error {
			c.errCount++
		}

		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosAccess,
			Item: Access{
				Cycle:    e.Cycle,
				Request:  beat.Request,
				Response: rsp,
			},
		})
	}
}

// Drive updates the device outputs.
func (c *Comp) Drive(e clock.Edge) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if e.Kind != c.clockEdge {
		return c.busy()
	}

	if c.pending != nil && !c.dValid {
		if c.countdown == 0 {
			c.dValid = true
		} else {
			c.countdown--
		}
	}

	ready := c.pending == nil
	if ready && c.readyCountdown > 0 {
		c.readyCountdown--
		ready = false
	}

	c.aReady = ready
	c.encode()

	return c.busy()
}

// Reset drops any pending response and holds a_ready low while reset is
// asserted.
func (c *Comp) Reset(asserted bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.inReset = asserted
	c.pending = nil
	c.dValid = false
	c.countdown = 0

	if asserted {
		c.aReady = false
	} else {
		c.readyCountdown = c.readyLatency
		c.aReady = c.readyCountdown == 0
	}

	c.encode()
}

func (c *Comp) busy() bool {
	return !c.inReset && (c.pending != nil || !c.aReady)
}

func (c *Comp) encode() {
	rsp := tlul.Response{}
	if c.dValid {
		rsp = *c.pending
	}

	out, err := c.layout.EncodeD(rsp, c.dValid, c.aReady)
	if err != nil {
		panic(err)
	}

	c.out = out
}

func (c *Comp) serve(req tlul.Request) tlul.Response {
	rsp := tlul.Response{
		Opcode: req.Opcode.ExpectedResponse(),
		Size:   req.Size,
		Source: req.Source,
		Sink:   c.sinkID,
	}

	if err := c.layout.ValidateRequest(req); err != nil {
		Logger().Debug("rejecting request",
			zap.String("device", c.name), zap.Error(err))

		rsp.Error = true

		return rsp
	}

	width := uint64(c.layout.DataBytes())
	wordAddr := req.Address &^ (width - 1)

	if wordAddr < c.baseAddress ||
		!c.storage.Contains(wordAddr-c.baseAddress, width) {
		Logger().Debug("address out of range",
			zap.String("device", c.name),
			zap.Uint64("address", req.Address))

		rsp.Error = true

		return rsp
	}

	offset := wordAddr - c.baseAddress

	if req.Opcode == tlul.Get {
		return c.read(rsp, offset, width)
	}

	return c.write(rsp, req, offset, width)
}

func (c *Comp) read(rsp tlul.Response, offset, width uint64) tlul.Response {
	data, err := c.storage.Read(offset, width)
	if err != nil {
		rsp.Error = true
		return rsp
	}

	rsp.Data = decodeLanes(data)

	return rsp
}

func (c *Comp) write(
	rsp tlul.Response,
	req tlul.Request,
	offset, width uint64,
) tlul.Response {
	data := encodeLanes(req.Data, width)
	mask := make([]bool, width)

	for i := range mask {
		mask[i] = req.Mask&(1<<uint(i)) != 0
	}

	if err := c.storage.WriteMasked(offset, data, mask); err != nil {
		rsp.Error = true
	}

	return rsp
}

// Lane i of the bus carries bits [8i, 8i+8) of the data field.
func decodeLanes(data []byte) uint64 {
	buf := make([]byte, 8)
	copy(buf, data)

	return binary.LittleEndian.Uint64(buf)
}

func encodeLanes(value, width uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)

	return buf[:width]
}
