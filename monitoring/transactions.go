package monitoring

import (
	"fmt"
	"sync"

	"github.com/sarchlab/tlul/sim/hooking"
	"github.com/sarchlab/tlul/tlul/host"
)

// TransactionSummary describes a completed transaction.
type TransactionSummary struct {
	ID      string `json:"id"`
	Opcode  string `json:"opcode"`
	Address string `json:"address"`
	Data    string `json:"data"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
	Latency uint64 `json:"latency"`
}

// A TransactionLog is a hook that keeps the most recent transactions of a
// host.
type TransactionLog struct {
	lock     sync.Mutex
	capacity int
	entries  []TransactionSummary
	next     int
	full     bool
}

// NewTransactionLog creates a log that keeps up to capacity transactions.
func NewTransactionLog(capacity int) *TransactionLog {
	if capacity <= 0 {
		panic("transaction log capacity must be positive")
	}

	return &TransactionLog{
		capacity: capacity,
		entries:  make([]TransactionSummary, capacity),
	}
}

// Func records the transaction carried by a transaction-end hook.
func (l *TransactionLog) Func(ctx hooking.HookCtx) {
	if ctx.Pos != host.HookPosTransactionEnd {
		return
	}

	tx := ctx.Item.(*host.Transaction)

	summary := TransactionSummary{
		ID:      tx.ID,
		Opcode:  tx.Req.Opcode.String(),
		Address: fmt.Sprintf("0x%x", tx.Req.Address),
		Outcome: host.Outcome(tx.Err),
		Latency: tx.Latency(),
	}

	switch {
	case tx.Req.Opcode.IsPut():
		summary.Data = fmt.Sprintf("0x%x", tx.Req.Data)
	case tx.Err == nil:
		summary.Data = fmt.Sprintf("0x%x", tx.Rsp.Data)
	}

	if tx.Err != nil {
		summary.Error = tx.Err.Error()
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	l.entries[l.next] = summary
	l.next = (l.next + 1) % l.capacity

	if l.next == 0 {
		l.full = true
	}
}

// Recent returns the kept transactions, newest first.
func (l *TransactionLog) Recent() []TransactionSummary {
	l.lock.Lock()
	defer l.lock.Unlock()

	n := l.next
	if l.full {
		n = l.capacity
	}

	out := make([]TransactionSummary, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, l.entries[(l.next-i+l.capacity)%l.capacity])
	}

	return out
}
