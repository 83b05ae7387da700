package host

import (
	"errors"

	"github.com/sarchlab/tlul/sim/id"
	"github.com/sarchlab/tlul/tlul"
)

// A Transaction tracks one request from issue to completion.
type Transaction struct {
	ID  string
	Req tlul.Request

	// IssueCycle is the cycle a_valid was first driven.
	IssueCycle uint64

	// AcceptCycle is the cycle the device accepted the request.
	AcceptCycle uint64

	// CompleteCycle is the cycle the transaction completed.
	CompleteCycle uint64

	Rsp tlul.Response
	Err error

	done chan struct{}
}

func newTransaction(req tlul.Request) *Transaction {
	return &Transaction{
		ID:   id.Generate(),
		Req:  req,
		done: make(chan struct{}),
	}
}

// Done returns a channel that is closed when the transaction completes.
func (t *Transaction) Done() <-chan struct{} {
	return t.done
}

// IsDone tells if the transaction has completed.
func (t *Transaction) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Result returns the response and the error of a completed transaction. It
// must only be called after Done is closed.
func (t *Transaction) Result() (tlul.Response, error) {
	return t.Rsp, t.Err
}

// Latency returns the number of cycles between driving the request and
// completion.
func (t *Transaction) Latency() uint64 {
	if t.CompleteCycle < t.IssueCycle {
		return 0
	}

	return t.CompleteCycle - t.IssueCycle
}

// Outcome labels how a transaction ended.
func Outcome(err error) string {
	var (
		busErr      *tlul.BusError
		timeoutErr  *tlul.TimeoutError
		mismatchErr *tlul.OpcodeMismatchError
		abortErr    *tlul.OperationAbortedError
	)

	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &busErr):
		return "bus_error"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &mismatchErr):
		return "mismatch"
	case errors.As(err, &abortErr):
		return "aborted"
	default:
		return "error"
	}
}
