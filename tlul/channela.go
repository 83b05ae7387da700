package tlul

import (
	"fmt"

	"github.com/sarchlab/tlul/tlul/bitfield"
)

// EncodeA packs a request and the two host-driven control bits into a
// host-to-device bundle.
func (l *Layout) EncodeA(req Request, aValid, dReady bool) ([]byte, error) {
	values := map[string]uint64{
		AValid:   boolBit(aValid),
		AOpcodeF: uint64(req.Opcode),
		AParam:   uint64(req.Param),
		ASize:    uint64(req.Size),
		ASource:  uint64(req.Source),
		AAddress: req.Address,
		AMask:    req.Mask,
		AData:    req.Data,
		AUser:    req.User,
		DReady:   boolBit(dReady),
	}

	buf, err := l.codec.Pack(fields(l.h2d, values))
	if err != nil {
		return nil, fmt.Errorf("encode channel A: %w", err)
	}

	return buf, nil
}

// DecodeA unpacks a host-to-device bundle.
func (l *Layout) DecodeA(buf []byte) (ABeat, error) {
	values, err := l.unpack(buf, l.h2d)
	if err != nil {
		return ABeat{}, fmt.Errorf("decode channel A: %w", err)
	}

	beat := ABeat{
		Valid:  values[AValid] == 1,
		DReady: values[DReady] == 1,
		Request: Request{
			Opcode:  AOpcode(values[AOpcodeF]),
			Param:   uint8(values[AParam]),
			Size:    uint8(values[ASize]),
			Source:  uint32(values[ASource]),
			Address: values[AAddress],
			Mask:    values[AMask],
			Data:    values[AData],
			User:    values[AUser],
		},
	}

	return beat, nil
}

// IdleA returns the host-to-device bundle with every signal low.
func (l *Layout) IdleA() []byte {
	return make([]byte, l.H2DBytes())
}

func fields(t SignalWidths, values map[string]uint64) []bitfield.Field {
	out := make([]bitfield.Field, len(t))
	for i, f := range t {
		out[i] = bitfield.Field{
			Name:  f.Name,
			Value: values[f.Name],
			Width: f.Width,
		}
	}

	return out
}

func (l *Layout) unpack(buf []byte, t SignalWidths) (map[string]uint64, error) {
	raw, err := l.codec.Unpack(buf, t.Widths())
	if err != nil {
		return nil, err
	}

	values := make(map[string]uint64, len(t))
	for i, f := range t {
		values[f.Name] = raw[i]
	}

	return values, nil
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}

	return 0
}
