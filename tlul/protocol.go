// Package tlul describes TileLink-Uncached-Light transactions and their bit
// exact wire layout.
//
// A TL-UL link has two channels. Channel A carries requests from the host to
// the device and Channel D carries responses back. Each direction is a single
// packed bundle of signals whose field order is fixed by the protocol and whose
// field widths are fixed when a Layout is built.
package tlul

import "fmt"

// AOpcode identifies the operation of a Channel A request.
type AOpcode uint8

// Channel A opcodes supported by TL-UL.
const (
	PutFullData    AOpcode = 0
	PutPartialData AOpcode = 1
	Get            AOpcode = 4
)

func (o AOpcode) String() string {
	switch o {
	case PutFullData:
		return "PutFullData"
	case PutPartialData:
		return "PutPartialData"
	case Get:
		return "Get"
	default:
		return fmt.Sprintf("AOpcode(%d)", uint8(o))
	}
}

// IsPut tells if the opcode writes data.
func (o AOpcode) IsPut() bool {
	return o == PutFullData || o == PutPartialData
}

// IsValid tells if the opcode is one of the TL-UL request opcodes.
func (o AOpcode) IsValid() bool {
	return o.IsPut() || o == Get
}

// ExpectedResponse returns the Channel D opcode a device must answer with.
func (o AOpcode) ExpectedResponse() DOpcode {
	if o == Get {
		return AccessAckData
	}

	return AccessAck
}

// DOpcode identifies the kind of a Channel D response.
type DOpcode uint8

// Channel D opcodes supported by TL-UL.
const (
	AccessAck     DOpcode = 0
	AccessAckData DOpcode = 1
)

func (o DOpcode) String() string {
	switch o {
	case AccessAck:
		return "AccessAck"
	case AccessAckData:
		return "AccessAckData"
	default:
		return fmt.Sprintf("DOpcode(%d)", uint8(o))
	}
}

// A Request is the payload of a Channel A beat.
type Request struct {
	Opcode  AOpcode
	Param   uint8
	Size    uint8
	Source  uint32
	Address uint64
	Mask    uint64
	Data    uint64
	User    uint64
}

// ByteSize returns the number of bytes addressed by the request.
func (r Request) ByteSize() uint64 {
	return uint64(1) << r.Size
}

// A Response is the payload of a Channel D beat.
type Response struct {
	Opcode DOpcode
	Param  uint8
	Size   uint8
	Source uint32
	Sink   uint32
	Data   uint64
	User   uint64
	Error  bool
}

// An ABeat is the complete host-to-device bundle at one edge.
type ABeat struct {
	Valid   bool
	Request Request
	DReady  bool
}

// A DBeat is the complete device-to-host bundle at one edge.
type DBeat struct {
	Valid    bool
	Response Response
	AReady   bool
}

// GetReqBuilder can build Get requests.
type GetReqBuilder struct {
	address uint64
	size    uint8
	source  uint32
	mask    uint64
	user    uint64
}

// WithAddress sets the address of the request to build.
func (b GetReqBuilder) WithAddress(address uint64) GetReqBuilder {
	b.address = address
	return b
}

// WithSize sets the size exponent of the request to build.
func (b GetReqBuilder) WithSize(size uint8) GetReqBuilder {
	b.size = size
	return b
}

// WithSource sets the source ID of the request to build.
func (b GetReqBuilder) WithSource(source uint32) GetReqBuilder {
	b.source = source
	return b
}

// WithMask sets the byte lane mask of the request to build.
func (b GetReqBuilder) WithMask(mask uint64) GetReqBuilder {
	b.mask = mask
	return b
}

// WithUser sets the user extension bits of the request to build.
func (b GetReqBuilder) WithUser(user uint64) GetReqBuilder {
	b.user = user
	return b
}

// Build creates a new Get request.
func (b GetReqBuilder) Build() Request {
	return Request{
		Opcode:  Get,
		Size:    b.size,
		Source:  b.source,
		Address: b.address,
		Mask:    b.mask,
		User:    b.user,
	}
}

// PutReqBuilder can build PutFullData and PutPartialData requests.
type PutReqBuilder struct {
	address  uint64
	size     uint8
	source   uint32
	data     uint64
	mask     uint64
	fullMask uint64
	user     uint64
}

// WithAddress sets the address of the request to build.
func (b PutReqBuilder) WithAddress(address uint64) PutReqBuilder {
	b.address = address
	return b
}

// WithSize sets the size exponent of the request to build.
func (b PutReqBuilder) WithSize(size uint8) PutReqBuilder {
	b.size = size
	return b
}

// WithSource sets the source ID of the request to build.
func (b PutReqBuilder) WithSource(source uint32) PutReqBuilder {
	b.source = source
	return b
}

// WithData sets the data of the request to build.
func (b PutReqBuilder) WithData(data uint64) PutReqBuilder {
	b.data = data
	return b
}

// WithMask sets the byte lane mask of the request to build.
func (b PutReqBuilder) WithMask(mask uint64) PutReqBuilder {
	b.mask = mask
	return b
}

// WithFullMask sets the mask value that marks a full write. A request whose
// mask differs is built as PutPartialData.
func (b PutReqBuilder) WithFullMask(fullMask uint64) PutReqBuilder {
	b.fullMask = fullMask
	return b
}

// WithUser sets the user extension bits of the request to build.
func (b PutReqBuilder) WithUser(user uint64) PutReqBuilder {
	b.user = user
	return b
}

// Build creates a new Put request.
func (b PutReqBuilder) Build() Request {
	opcode := PutFullData
	if b.mask != b.fullMask {
		opcode = PutPartialData
	}

	return Request{
		Opcode:  opcode,
		Size:    b.size,
		Source:  b.source,
		Address: b.address,
		Mask:    b.mask,
		Data:    b.data,
		User:    b.user,
	}
}
