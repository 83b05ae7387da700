// Package clock generates clock edges and reset pulses for components that
// are modeled at the signal level.
//
// Every edge is delivered in two phases. In the sample phase every listener
// observes the signals as they were before the edge. In the drive phase every
// listener updates its outputs. No listener drives before all listeners have
// sampled, so components behave like registers clocked on the same edge.
package clock

import "fmt"

// EdgeKind tells a rising edge from a falling edge.
type EdgeKind int

// Clock edges.
const (
	Rising EdgeKind = iota
	Falling
)

func (k EdgeKind) String() string {
	switch k {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Opposite returns the other edge of the cycle.
func (k EdgeKind) Opposite() EdgeKind {
	if k == Rising {
		return Falling
	}

	return Rising
}

// ParseEdgeKind converts "rising" or "falling" to an EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch s {
	case "rising", "":
		return Rising, nil
	case "falling":
		return Falling, nil
	default:
		return Rising, fmt.Errorf("clock: unknown edge %q", s)
	}
}

// An Edge is one transition of the clock.
type Edge struct {
	Kind  EdgeKind
	Cycle uint64
}

func (e Edge) next() Edge {
	if e.Kind == Rising {
		return Edge{Kind: Falling, Cycle: e.Cycle}
	}

	return Edge{Kind: Rising, Cycle: e.Cycle + 1}
}

// A Listener is a component that is clocked by a Clock.
type Listener interface {
	// Sample observes inputs at the edge.
	Sample(e Edge)

	// Drive updates outputs at the edge. It returns true if the listener
	// has work that needs further edges.
	Drive(e Edge) bool

	// Reset is called when reset is asserted and when it is released.
	// Listeners receive no edges while reset is asserted.
	Reset(asserted bool)
}

// A Waker can restart a clock that stopped because no listener was busy.
type Waker interface {
	Wake()
}
