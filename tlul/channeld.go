package tlul

import "fmt"

// EncodeD packs a response and the two device-driven control bits into a
// device-to-host bundle.
func (l *Layout) EncodeD(rsp Response, dValid, aReady bool) ([]byte, error) {
	values := map[string]uint64{
		DValid:   boolBit(dValid),
		DOpcodeF: uint64(rsp.Opcode),
		DParam:   uint64(rsp.Param),
		DSize:    uint64(rsp.Size),
		DSource:  uint64(rsp.Source),
		DSink:    uint64(rsp.Sink),
		DData:    rsp.Data,
		DUser:    rsp.User,
		DError:   boolBit(rsp.Error),
		AReady:   boolBit(aReady),
	}

	buf, err := l.codec.Pack(fields(l.d2h, values))
	if err != nil {
		return nil, fmt.Errorf("encode channel D: %w", err)
	}

	return buf, nil
}

// DecodeD unpacks a device-to-host bundle.
func (l *Layout) DecodeD(buf []byte) (DBeat, error) {
	values, err := l.unpack(buf, l.d2h)
	if err != nil {
		return DBeat{}, fmt.Errorf("decode channel D: %w", err)
	}

	beat := DBeat{
		Valid:  values[DValid] == 1,
		AReady: values[AReady] == 1,
		Response: Response{
			Opcode: DOpcode(values[DOpcodeF]),
			Param:  uint8(values[DParam]),
			Size:   uint8(values[DSize]),
			Source: uint32(values[DSource]),
			Sink:   uint32(values[DSink]),
			Data:   values[DData],
			User:   values[DUser],
			Error:  values[DError] == 1,
		},
	}

	return beat, nil
}

// IdleD returns the device-to-host bundle with every signal low.
func (l *Layout) IdleD() []byte {
	return make([]byte, l.D2HBytes())
}
