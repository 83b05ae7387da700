package datarecording

import (
	"fmt"

	"github.com/sarchlab/tlul/mem/tluldevice"
	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul/host"
)

// Table names used by the TransactionRecorder.
const (
	TransactionTable = "tlul_transactions"
	AccessTable      = "tlul_device_accesses"
)

// TransactionEntry is one row of the transaction table.
type TransactionEntry struct {
	ID            string
	Component     string
	Opcode        string
	Address       string
	Source        uint32
	Size          uint8
	Mask          string
	WriteData     string
	ReadData      string
	Outcome       string
	Error         string
	IssueCycle    uint64
	AcceptCycle   uint64
	CompleteCycle uint64
	Latency       uint64
}

// AccessEntry is one row of the device access table.
type AccessEntry struct {
	Component string
	Cycle     uint64
	Opcode    string
	Address   string
	Source    uint32
	Response  string
	Data      string
	Error     bool
}

// A TransactionRecorder is a hook that writes host transactions and device
// accesses into a DataRecorder.
type TransactionRecorder struct {
	recorder DataRecorder
}

// NewTransactionRecorder creates the tables and returns the hook.
func NewTransactionRecorder(recorder DataRecorder) *TransactionRecorder {
	recorder.CreateTable(TransactionTable, TransactionEntry{})
	recorder.CreateTable(AccessTable, AccessEntry{})

	return &TransactionRecorder{recorder: recorder}
}

// Func records completed transactions and device accesses. Other hook
// positions are ignored.
func (r *TransactionRecorder) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case host.HookPosTransactionEnd:
		tx := ctx.Item.(*host.Transaction)
		r.recorder.InsertData(TransactionTable,
			transactionEntry(domainName(ctx.Domain), tx))
	case tluldevice.HookPosAccess:
		access := ctx.Item.(tluldevice.Access)
		r.recorder.InsertData(AccessTable,
			accessEntry(domainName(ctx.Domain), access))
	}
}

type named interface {
	Name() string
}

func domainName(domain hooking.Hookable) string {
	if n, ok := domain.(named); ok {
		return n.Name()
	}

	return ""
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

func transactionEntry(component string, tx *host.Transaction) TransactionEntry {
	entry := TransactionEntry{
		ID:            tx.ID,
		Component:     component,
		Opcode:        tx.Req.Opcode.String(),
		Address:       hex(tx.Req.Address),
		Source:        tx.Req.Source,
		Size:          tx.Req.Size,
		Mask:          hex(tx.Req.Mask),
		Outcome:       host.Outcome(tx.Err),
		IssueCycle:    tx.IssueCycle,
		AcceptCycle:   tx.AcceptCycle,
		CompleteCycle: tx.CompleteCycle,
		Latency:       tx.Latency(),
	}

	if tx.Req.Opcode.IsPut() {
		entry.WriteData = hex(tx.Req.Data)
	} else if tx.Err == nil {
		entry.ReadData = hex(tx.Rsp.Data)
	}

	if tx.Err != nil {
		entry.Error = tx.Err.Error()
	}

	return entry
}

func accessEntry(component string, access tluldevice.Access) AccessEntry {
	return AccessEntry{
		Component: component,
		Cycle:     access.Cycle,
		Opcode:    access.Request.Opcode.String(),
		Address:   hex(access.Request.Address),
		Source:    access.Request.Source,
		Response:  access.Response.Opcode.String(),
		Data:      hex(access.Response.Data),
		Error:     access.Response.Error,
	}
}
