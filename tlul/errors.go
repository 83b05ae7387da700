package tlul

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tlul/tlul/bitfield"
)

// FieldOverflowError reports a request or response field whose value does not
// fit in the configured width.
type FieldOverflowError = bitfield.FieldOverflowError

// ConfigurationError reports a malformed signal width table.
type ConfigurationError struct {
	Direction string
	Field     string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("tlul: invalid %s configuration: %s",
			e.Direction, e.Reason)
	}

	return fmt.Sprintf("tlul: invalid %s configuration for %s: %s",
		e.Direction, e.Field, e.Reason)
}

// RequestError reports a request that breaks a TL-UL invariant, such as a
// misaligned address.
type RequestError struct {
	Request Request
	Reason  string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("tlul: invalid %s request to %#x: %s",
		e.Request.Opcode, e.Request.Address, e.Reason)
}

// ProtocolBusyError is returned when a request is issued while another one is
// still outstanding.
type ProtocolBusyError struct {
	State       string
	Outstanding Request
}

func (e *ProtocolBusyError) Error() string {
	return fmt.Sprintf(
		"tlul: transactor busy in state %s with %s to %#x (source %#x)",
		e.State, e.Outstanding.Opcode, e.Outstanding.Address,
		e.Outstanding.Source)
}

// OpcodeMismatchError is returned when a response does not belong to the
// outstanding request, either because its opcode class is wrong or because it
// carries a different source ID.
type OpcodeMismatchError struct {
	Request        Request
	Response       Response
	SourceMismatch bool
}

func (e *OpcodeMismatchError) Error() string {
	if e.SourceMismatch {
		return fmt.Sprintf(
			"tlul: response source %#x does not match outstanding source %#x",
			e.Response.Source, e.Request.Source)
	}

	return fmt.Sprintf("tlul: %s answered with %s, expected %s",
		e.Request.Opcode, e.Response.Opcode,
		e.Request.Opcode.ExpectedResponse())
}

// BusError is returned when the device sets d_error. The transaction still
// completes and the transactor stays usable.
type BusError struct {
	Address  uint64
	Source   uint32
	Opcode   AOpcode
	Response Response
}

func (e *BusError) Error() string {
	return fmt.Sprintf("tlul: bus error on %s to %#x (source %#x, sink %#x)",
		e.Opcode, e.Address, e.Source, e.Response.Sink)
}

// Signals waited on by the handshake.
const (
	SignalAReady = "a_ready"
	SignalDValid = "d_valid"
)

// TimeoutError is returned when a_ready or d_valid is not observed within the
// configured number of cycles.
type TimeoutError struct {
	Signal  string
	Cycles  uint64
	Address uint64
	Source  uint32
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf(
		"tlul: no %s within %d cycles for request to %#x (source %#x)",
		e.Signal, e.Cycles, e.Address, e.Source)
}

// OperationAbortedError is returned when an outstanding transaction is
// discarded because the transactor was reset, closed, or the caller gave up.
type OperationAbortedError struct {
	Reason string
	Cause  error
}

func (e *OperationAbortedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tlul: operation aborted (%s): %v",
			e.Reason, e.Cause)
	}

	return fmt.Sprintf("tlul: operation aborted (%s)", e.Reason)
}

func (e *OperationAbortedError) Unwrap() error {
	return e.Cause
}

// Retryable tells if the error leaves the transactor idle and the same
// request may be issued again.
func Retryable(err error) bool {
	var busy *ProtocolBusyError
	var timeout *TimeoutError

	return errors.As(err, &busy) || errors.As(err, &timeout)
}
