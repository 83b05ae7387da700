package tlul

import (
	"fmt"

	"github.com/sarchlab/tlul/tlul/bitfield"
)

// Directions used in configuration errors.
const (
	DirHostToDevice = "host-to-device"
	DirDeviceToHost = "device-to-host"
)

// A Layout is a validated pair of width tables together with the word size
// bundles are padded to. A Layout is immutable and safe for concurrent use.
type Layout struct {
	params Params
	h2d    SignalWidths
	d2h    SignalWidths
	codec  *bitfield.Codec
}

// LayoutBuilder can build Layouts.
type LayoutBuilder struct {
	params      Params
	h2d         SignalWidths
	d2h         SignalWidths
	wordBits    int
	expectedH2D int
	expectedD2H int
}

// MakeLayoutBuilder creates a LayoutBuilder with the default parameters.
func MakeLayoutBuilder() LayoutBuilder {
	return LayoutBuilder{
		params:   DefaultParams(),
		wordBits: bitfield.DefaultWordBits,
	}
}

// WithParams sets the bus parameters the width tables are derived from.
// Explicit tables set with WithHostToDevice or WithDeviceToHost take
// precedence.
func (b LayoutBuilder) WithParams(p Params) LayoutBuilder {
	b.params = p
	return b
}

// WithHostToDevice sets an explicit Channel A width table.
func (b LayoutBuilder) WithHostToDevice(t SignalWidths) LayoutBuilder {
	b.h2d = append(SignalWidths(nil), t...)
	return b
}

// WithDeviceToHost sets an explicit Channel D width table.
func (b LayoutBuilder) WithDeviceToHost(t SignalWidths) LayoutBuilder {
	b.d2h = append(SignalWidths(nil), t...)
	return b
}

// WithWordBits sets the word size bundles are padded to.
func (b LayoutBuilder) WithWordBits(n int) LayoutBuilder {
	b.wordBits = n
	return b
}

// WithExpectedTotals makes Build fail unless the tables sum to the given
// widths. Zero skips the check for that direction.
func (b LayoutBuilder) WithExpectedTotals(h2d, d2h int) LayoutBuilder {
	b.expectedH2D = h2d
	b.expectedD2H = d2h

	return b
}

// Build validates the tables and creates the Layout.
func (b LayoutBuilder) Build() (*Layout, error) {
	codec, err := bitfield.NewCodec(b.wordBits)
	if err != nil {
		return nil, &ConfigurationError{
			Direction: "layout",
			Reason:    err.Error(),
		}
	}

	h2d := b.h2d
	if h2d == nil {
		h2d = b.params.HostToDevice()
	}

	d2h := b.d2h
	if d2h == nil {
		d2h = b.params.DeviceToHost()
	}

	if err := checkTable(DirHostToDevice, h2d, hostToDeviceOrder,
		b.expectedH2D); err != nil {
		return nil, err
	}

	if err := checkTable(DirDeviceToHost, d2h, deviceToHostOrder,
		b.expectedD2H); err != nil {
		return nil, err
	}

	if err := checkCrossWidths(h2d, d2h); err != nil {
		return nil, err
	}

	l := &Layout{
		h2d:   h2d,
		d2h:   d2h,
		codec: codec,
		params: Params{
			AddressWidth: h2d.Width(AAddress),
			DataWidth:    h2d.Width(AData),
			SourceWidth:  h2d.Width(ASource),
			SinkWidth:    d2h.Width(DSink),
			AUserWidth:   h2d.Width(AUser),
			DUserWidth:   d2h.Width(DUser),
		},
	}

	return l, nil
}

func checkTable(
	dir string,
	table SignalWidths,
	order []string,
	expected int,
) error {
	if len(table) != len(order) {
		return &ConfigurationError{
			Direction: dir,
			Reason: fmt.Sprintf("want %d signals, got %d",
				len(order), len(table)),
		}
	}

	for i, f := range table {
		if f.Name != order[i] {
			return &ConfigurationError{
				Direction: dir,
				Field:     f.Name,
				Reason: fmt.Sprintf("signal %d must be %s",
					i, order[i]),
			}
		}

		if f.Width <= 0 || f.Width > bitfield.MaxFieldWidth {
			return &ConfigurationError{
				Direction: dir,
				Field:     f.Name,
				Reason: fmt.Sprintf("width %d is outside 1..%d",
					f.Width, bitfield.MaxFieldWidth),
			}
		}

		if fixed, ok := fixedWidths[f.Name]; ok && fixed != f.Width {
			return &ConfigurationError{
				Direction: dir,
				Field:     f.Name,
				Reason: fmt.Sprintf("width is fixed at %d, got %d",
					fixed, f.Width),
			}
		}
	}

	if expected > 0 && table.Total() != expected {
		return &ConfigurationError{
			Direction: dir,
			Reason: fmt.Sprintf("total width %d does not match expected %d",
				table.Total(), expected),
		}
	}

	return nil
}

func checkCrossWidths(h2d, d2h SignalWidths) error {
	data := h2d.Width(AData)

	switch {
	case data%8 != 0:
		return &ConfigurationError{
			Direction: DirHostToDevice,
			Field:     AData,
			Reason:    "width must be a whole number of bytes",
		}
	case h2d.Width(AMask)*8 != data:
		return &ConfigurationError{
			Direction: DirHostToDevice,
			Field:     AMask,
			Reason:    "width must be one bit per data byte",
		}
	case d2h.Width(DData) != data:
		return &ConfigurationError{
			Direction: DirDeviceToHost,
			Field:     DData,
			Reason:    "width must match a_data",
		}
	case d2h.Width(DSource) != h2d.Width(ASource):
		return &ConfigurationError{
			Direction: DirDeviceToHost,
			Field:     DSource,
			Reason:    "width must match a_source",
		}
	case h2d.Width(ASource) > 32:
		return &ConfigurationError{
			Direction: DirHostToDevice,
			Field:     ASource,
			Reason:    "width must not exceed 32",
		}
	case d2h.Width(DSink) > 32:
		return &ConfigurationError{
			Direction: DirDeviceToHost,
			Field:     DSink,
			Reason:    "width must not exceed 32",
		}
	}

	return nil
}

// DefaultLayout returns the Layout built from DefaultParams.
func DefaultLayout() *Layout {
	l, err := MakeLayoutBuilder().Build()
	if err != nil {
		panic(err)
	}

	return l
}

// Params returns the bus parameters the Layout was built with.
func (l *Layout) Params() Params {
	return l.params
}

// HostToDevice returns a copy of the Channel A width table.
func (l *Layout) HostToDevice() SignalWidths {
	return append(SignalWidths(nil), l.h2d...)
}

// DeviceToHost returns a copy of the Channel D width table.
func (l *Layout) DeviceToHost() SignalWidths {
	return append(SignalWidths(nil), l.d2h...)
}

// WordBits returns the word size bundles are padded to.
func (l *Layout) WordBits() int {
	return l.codec.WordBits()
}

// PaddedBits returns the padded width of a bundle table.
func (l *Layout) PaddedBits(t SignalWidths) int {
	return l.codec.PaddedBits(t.Total())
}

// H2DBytes returns the length of a packed host-to-device bundle.
func (l *Layout) H2DBytes() int {
	return l.codec.PackedLen(l.h2d.Total())
}

// D2HBytes returns the length of a packed device-to-host bundle.
func (l *Layout) D2HBytes() int {
	return l.codec.PackedLen(l.d2h.Total())
}

// DataBytes returns the number of byte lanes of the data bus.
func (l *Layout) DataBytes() int {
	return l.params.DataWidth / 8
}

// FullMask returns the mask with every byte lane enabled.
func (l *Layout) FullMask() uint64 {
	return lowBits(l.DataBytes())
}

// MaxSize returns the largest size exponent a single beat can carry.
func (l *Layout) MaxSize() uint8 {
	size := uint8(0)
	for (1 << (size + 1)) <= l.DataBytes() {
		size++
	}

	return size
}

// LaneMask returns the mask of the byte lanes a request of the given size
// touches at the given address.
func (l *Layout) LaneMask(address uint64, size uint8) uint64 {
	n := 1 << size
	offset := int(address % uint64(l.DataBytes()))
	offset -= offset % n

	return lowBits(n) << uint(offset)
}

// ValidateRequest checks a request against TL-UL rules for this bus.
func (l *Layout) ValidateRequest(req Request) error {
	if !req.Opcode.IsValid() {
		return &RequestError{Request: req, Reason: "unknown opcode"}
	}

	if req.Size > l.MaxSize() {
		return &RequestError{
			Request: req,
			Reason: fmt.Sprintf("size %d exceeds the %d-byte bus",
				req.Size, l.DataBytes()),
		}
	}

	if req.Address%req.ByteSize() != 0 {
		return &RequestError{
			Request: req,
			Reason: fmt.Sprintf("address is not aligned to %d bytes",
				req.ByteSize()),
		}
	}

	lanes := l.LaneMask(req.Address, req.Size)

	switch req.Opcode {
	case Get:
		if req.Mask&lanes != lanes || req.Mask&^l.FullMask() != 0 {
			return &RequestError{
				Request: req,
				Reason: fmt.Sprintf("get mask %#x must cover lanes %#x",
					req.Mask, lanes),
			}
		}
	case PutFullData:
		if req.Mask != lanes {
			return &RequestError{
				Request: req,
				Reason: fmt.Sprintf("full write mask %#x must be %#x",
					req.Mask, lanes),
			}
		}
	case PutPartialData:
		if req.Mask == 0 || req.Mask&^lanes != 0 {
			return &RequestError{
				Request: req,
				Reason: fmt.Sprintf("partial write mask %#x must be "+
					"a non-empty subset of %#x", req.Mask, lanes),
			}
		}
	}

	return nil
}

func lowBits(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return (uint64(1) << uint(n)) - 1
}
