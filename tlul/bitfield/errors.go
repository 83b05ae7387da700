package bitfield

import "fmt"

// FieldOverflowError reports a value that does not fit in its declared width.
// Values are never truncated.
type FieldOverflowError struct {
	Field string
	Value uint64
	Width int
}

func (e *FieldOverflowError) Error() string {
	name := e.Field
	if name == "" {
		name = "field"
	}

	return fmt.Sprintf("bitfield: %s value %#x does not fit in %d bits",
		name, e.Value, e.Width)
}
