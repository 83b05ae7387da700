// Package bitfield packs ordered lists of fixed-width fields into word-padded
// byte buffers and back.
//
// The first field occupies the most significant bits of the buffer. After the
// last field, zero bits are appended on the least significant side until the
// total width is a multiple of the word size. Words are therefore emitted most
// significant first, big-endian within a word.
package bitfield

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/icza/bitio"
)

// MaxFieldWidth is the widest field a Codec can carry.
const MaxFieldWidth = 64

// DefaultWordBits is the word granularity buffers are padded to unless
// configured otherwise.
const DefaultWordBits = 32

var (
	// ErrInvalidWidth is returned for fields narrower than one bit or wider
	// than MaxFieldWidth.
	ErrInvalidWidth = errors.New("bitfield: invalid field width")

	// ErrBufferSize is returned when a buffer does not have the padded
	// length implied by the field widths.
	ErrBufferSize = errors.New("bitfield: buffer size does not match widths")
)

// A Field is one value placed in a packed buffer.
type Field struct {
	Name  string
	Value uint64
	Width int
}

// Fits tells if the value can be represented in Width bits.
func (f Field) Fits() bool {
	if f.Width >= MaxFieldWidth {
		return true
	}

	return f.Value>>uint(f.Width) == 0
}

// A Codec packs and unpacks fields with a fixed word granularity.
type Codec struct {
	wordBits int
}

// NewCodec creates a Codec that pads to multiples of wordBits. wordBits must
// be a positive multiple of 8.
func NewCodec(wordBits int) (*Codec, error) {
	if wordBits <= 0 || wordBits%8 != 0 {
		return nil, fmt.Errorf(
			"bitfield: word size must be a positive multiple of 8, got %d",
			wordBits)
	}

	return &Codec{wordBits: wordBits}, nil
}

// MustNewCodec is like NewCodec but panics on an invalid word size.
func MustNewCodec(wordBits int) *Codec {
	c, err := NewCodec(wordBits)
	if err != nil {
		panic(err)
	}

	return c
}

// WordBits returns the padding granularity in bits.
func (c *Codec) WordBits() int {
	return c.wordBits
}

// PaddedBits rounds totalBits up to the word granularity.
func (c *Codec) PaddedBits(totalBits int) int {
	words := (totalBits + c.wordBits - 1) / c.wordBits
	return words * c.wordBits
}

// PackedLen returns the number of bytes a buffer carrying totalBits of fields
// occupies.
func (c *Codec) PackedLen(totalBits int) int {
	return c.PaddedBits(totalBits) / 8
}

// Pack concatenates the fields, first field most significant, and pads the
// result to the word granularity.
func (c *Codec) Pack(fields []Field) ([]byte, error) {
	total := 0

	for _, f := range fields {
		if f.Width <= 0 || f.Width > MaxFieldWidth {
			return nil, fmt.Errorf("%w: %s is %d bits",
				ErrInvalidWidth, f.Name, f.Width)
		}

		if !f.Fits() {
			return nil, &FieldOverflowError{
				Field: f.Name,
				Value: f.Value,
				Width: f.Width,
			}
		}

		total += f.Width
	}

	buf := bytes.NewBuffer(make([]byte, 0, c.PackedLen(total)))
	w := bitio.NewWriter(buf)

	for _, f := range fields {
		if err := w.WriteBits(f.Value, uint8(f.Width)); err != nil {
			return nil, err
		}
	}

	for pad := c.PaddedBits(total) - total; pad > 0; {
		n := min(pad, MaxFieldWidth)
		if err := w.WriteBits(0, uint8(n)); err != nil {
			return nil, err
		}

		pad -= n
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unpack reads field values back from a packed buffer in the order of widths.
func (c *Codec) Unpack(buf []byte, widths []int) ([]uint64, error) {
	total := 0

	for _, width := range widths {
		if width <= 0 || width > MaxFieldWidth {
			return nil, fmt.Errorf("%w: %d bits", ErrInvalidWidth, width)
		}

		total += width
	}

	if len(buf) != c.PackedLen(total) {
		return nil, fmt.Errorf("%w: want %d bytes for %d bits, got %d",
			ErrBufferSize, c.PackedLen(total), total, len(buf))
	}

	r := bitio.NewReader(bytes.NewReader(buf))
	values := make([]uint64, len(widths))

	for i, width := range widths {
		v, err := r.ReadBits(uint8(width))
		if err != nil {
			return nil, err
		}

		values[i] = v
	}

	return values, nil
}

// TotalWidth sums the widths of the fields.
func TotalWidth(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.Width
	}

	return total
}
