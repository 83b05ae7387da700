package timing

import (
	"log"
	"math"
)

// Freq defines the type of frequency
type Freq float64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// FreqFromPeriod returns the frequency of a clock with the given period.
func FreqFromPeriod(period VTimeInSec) Freq {
	if period <= 0 {
		log.Panic("period must be positive")
	}

	return Freq(1.0 / period)
}

// Period returns the time between two consecutive ticks
func (f Freq) Period() VTimeInSec {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	return VTimeInSec(1.0 / f)
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(time VTimeInSec) uint64 {
	return uint64(math.Round(float64(time) * float64(f)))
}

// CyclesIn returns the number of whole cycles needed to cover the duration,
// rounding up.
func (f Freq) CyclesIn(duration VTimeInSec) uint64 {
	if duration <= 0 {
		return 0
	}

	// Rounding to a tenth of a cycle first keeps 50ns at 100MHz at 5 cycles
	// instead of 6 after floating point error.
	scaled := math.Round(float64(duration)*float64(f)*10) / 10

	return uint64(math.Ceil(scaled))
}

// CycleTime returns the time of the n-th rising edge.
func (f Freq) CycleTime(n uint64) VTimeInSec {
	return VTimeInSec(float64(n) / float64(f))
}

// HalfCycleTime returns the time of the falling edge in the n-th cycle.
func (f Freq) HalfCycleTime(n uint64) VTimeInSec {
	return f.CycleTime(n) + f.Period()/2
}
