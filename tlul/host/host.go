package host

import (
	"context"

	"github.com/sarchlab/tlul/tlul"
)

// A Host offers blocking reads and writes over a Controller. Calls are
// serialized by the controller. A call made while another is in flight
// fails with a ProtocolBusyError.
type Host struct {
	ctrl *Controller
}

// Controller returns the handshake controller of the host.
func (h *Host) Controller() *Controller {
	return h.ctrl
}

// Get reads the bus word at address.
func (h *Host) Get(ctx context.Context, address uint64) (uint64, error) {
	l := h.ctrl.layout
	req := tlul.GetReqBuilder{}.
		WithAddress(address).
		WithSize(l.MaxSize()).
		WithMask(l.FullMask()).
		Build()

	rsp, err := h.Do(ctx, req)
	if err != nil {
		return 0, err
	}

	return rsp.Data, nil
}

// Put writes the byte lanes of data selected by mask to the bus word at
// address. A mask with every lane set issues a PutFullData, any other mask a
// PutPartialData.
func (h *Host) Put(
	ctx context.Context,
	address, data, mask uint64,
) (tlul.Response, error) {
	l := h.ctrl.layout
	req := tlul.PutReqBuilder{}.
		WithAddress(address).
		WithSize(l.MaxSize()).
		WithData(data).
		WithMask(mask).
		WithFullMask(l.FullMask()).
		Build()

	return h.Do(ctx, req)
}

// Do issues a request and waits for its response. If the context is done
// first, the transaction is aborted and an OperationAbortedError wrapping
// the context error is returned.
func (h *Host) Do(ctx context.Context, req tlul.Request) (tlul.Response, error) {
	tx, err := h.ctrl.Issue(req)
	if err != nil {
		return tlul.Response{}, err
	}

	select {
	case <-tx.Done():
	case <-ctx.Done():
		h.ctrl.Abort(tx, "context", ctx.Err())
		<-tx.Done()
	}

	return tx.Result()
}

// Close aborts the outstanding transaction and rejects further requests.
func (h *Host) Close() {
	h.ctrl.Close()
}
