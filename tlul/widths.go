package tlul

// Host-to-device signal names in wire order.
const (
	AValid   = "a_valid"
	AOpcodeF = "a_opcode"
	AParam   = "a_param"
	ASize    = "a_size"
	ASource  = "a_source"
	AAddress = "a_address"
	AMask    = "a_mask"
	AData    = "a_data"
	AUser    = "a_user"
	DReady   = "d_ready"
)

// Device-to-host signal names in wire order.
const (
	DValid   = "d_valid"
	DOpcodeF = "d_opcode"
	DParam   = "d_param"
	DSize    = "d_size"
	DSource  = "d_source"
	DSink    = "d_sink"
	DData    = "d_data"
	DUser    = "d_user"
	DError   = "d_error"
	AReady   = "a_ready"
)

var hostToDeviceOrder = []string{
	AValid, AOpcodeF, AParam, ASize, ASource,
	AAddress, AMask, AData, AUser, DReady,
}

var deviceToHostOrder = []string{
	DValid, DOpcodeF, DParam, DSize, DSource,
	DSink, DData, DUser, DError, AReady,
}

// Widths that TL-UL fixes regardless of the bus parameters.
var fixedWidths = map[string]int{
	AValid:   1,
	AOpcodeF: 3,
	AParam:   3,
	ASize:    2,
	DReady:   1,
	DValid:   1,
	DOpcodeF: 3,
	DParam:   3,
	DSize:    2,
	DError:   1,
	AReady:   1,
}

// HostToDeviceOrder returns the canonical Channel A bundle order.
func HostToDeviceOrder() []string {
	return append([]string(nil), hostToDeviceOrder...)
}

// DeviceToHostOrder returns the canonical Channel D bundle order.
func DeviceToHostOrder() []string {
	return append([]string(nil), deviceToHostOrder...)
}

// A FieldWidth names one signal of a bundle and its width in bits.
type FieldWidth struct {
	Name  string `yaml:"name"`
	Width int    `yaml:"width"`
}

// SignalWidths is an ordered width table for one direction.
type SignalWidths []FieldWidth

// Total returns the sum of all widths.
func (s SignalWidths) Total() int {
	total := 0
	for _, f := range s {
		total += f.Width
	}

	return total
}

// Width returns the width of the named signal, or 0 if it is absent.
func (s SignalWidths) Width(name string) int {
	for _, f := range s {
		if f.Name == name {
			return f.Width
		}
	}

	return 0
}

// Widths returns the widths in table order.
func (s SignalWidths) Widths() []int {
	widths := make([]int, len(s))
	for i, f := range s {
		widths[i] = f.Width
	}

	return widths
}

// A BitRange locates a signal within a packed bundle. Bit numbering counts
// from the least significant bit of the padded buffer.
type BitRange struct {
	Name  string
	Width int
	MSB   int
	LSB   int
}

// Ranges returns where each signal lands once the table is padded to
// paddedBits.
func (s SignalWidths) Ranges(paddedBits int) []BitRange {
	ranges := make([]BitRange, 0, len(s))
	msb := paddedBits - 1

	for _, f := range s {
		ranges = append(ranges, BitRange{
			Name:  f.Name,
			Width: f.Width,
			MSB:   msb,
			LSB:   msb - f.Width + 1,
		})
		msb -= f.Width
	}

	return ranges
}

// Params are the configurable TL-UL bus parameters.
type Params struct {
	AddressWidth int `yaml:"address_width"`
	DataWidth    int `yaml:"data_width"`
	SourceWidth  int `yaml:"source_width"`
	SinkWidth    int `yaml:"sink_width"`
	AUserWidth   int `yaml:"a_user_width"`
	DUserWidth   int `yaml:"d_user_width"`
}

// DefaultParams returns the parameters of a 32-bit bus with 8 source bits.
func DefaultParams() Params {
	return Params{
		AddressWidth: 32,
		DataWidth:    32,
		SourceWidth:  8,
		SinkWidth:    1,
		AUserWidth:   16,
		DUserWidth:   4,
	}
}

// HostToDevice returns the Channel A width table implied by the parameters.
func (p Params) HostToDevice() SignalWidths {
	return SignalWidths{
		{AValid, 1},
		{AOpcodeF, 3},
		{AParam, 3},
		{ASize, 2},
		{ASource, p.SourceWidth},
		{AAddress, p.AddressWidth},
		{AMask, p.DataWidth / 8},
		{AData, p.DataWidth},
		{AUser, p.AUserWidth},
		{DReady, 1},
	}
}

// DeviceToHost returns the Channel D width table implied by the parameters.
func (p Params) DeviceToHost() SignalWidths {
	return SignalWidths{
		{DValid, 1},
		{DOpcodeF, 3},
		{DParam, 3},
		{DSize, 2},
		{DSource, p.SourceWidth},
		{DSink, p.SinkWidth},
		{DData, p.DataWidth},
		{DUser, p.DUserWidth},
		{DError, 1},
		{AReady, 1},
	}
}
