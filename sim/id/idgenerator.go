// Package id generates identifiers for transactions and events.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

var (
	generatorMu  sync.Mutex
	generator    IDGenerator
	instantiated atomic.Bool
)

// NewIDGenerator returns a generator that produces deterministic, sequential
// IDs.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns a generator backed by xid. The IDs are
// globally unique but not deterministic.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

// UseParallelIDGenerator switches the package-level generator to xid. It
// panics if an ID has already been generated.
func UseParallelIDGenerator() {
	generatorMu.Lock()
	defer generatorMu.Unlock()

	if instantiated.Load() {
		panic("cannot change id generator type after using it")
	}

	generator = parallelIDGenerator{}
	instantiated.Store(true)
}

// Generate returns an ID from the package-level generator.
func Generate() string {
	if !instantiated.Load() {
		generatorMu.Lock()
		if !instantiated.Load() {
			generator = &sequentialIDGenerator{}
			instantiated.Store(true)
		}
		generatorMu.Unlock()
	}

	return generator.Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)
	id := strconv.FormatUint(idNumber, 10)

	return id
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
