// Package storage provides a sparse byte-addressable backing store.
package storage

import (
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange is returned when an access reaches beyond the capacity.
var ErrOutOfRange = errors.New("storage: access beyond capacity")

// DefaultUnitSize is the allocation granularity of a Storage.
const DefaultUnitSize = 4096

// A Storage keeps the bytes of a memory device.
//
// The storage is managed in units, similar to pages. Units that are never
// written are not allocated and read as zero.
type Storage struct {
	sync.RWMutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// New creates a storage with the specified capacity in bytes.
func New(capacity uint64) *Storage {
	return NewWithUnitSize(capacity, DefaultUnitSize)
}

// NewWithUnitSize creates a storage that allocates unitSize bytes at a time.
func NewWithUnitSize(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("storage: unit size must be positive")
	}

	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of addressable bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// Contains tells if the range [address, address+n) is within capacity.
func (s *Storage) Contains(address, n uint64) bool {
	return address < s.capacity && n <= s.capacity-address
}

// AllocatedUnits returns the number of units that have been written.
func (s *Storage) AllocatedUnits() int {
	s.RLock()
	defer s.RUnlock()

	return len(s.data)
}

func (s *Storage) checkRange(address, n uint64) error {
	if !s.Contains(address, n) {
		return fmt.Errorf("%w: [%#x, %#x) with capacity %#x",
			ErrOutOfRange, address, address+n, s.capacity)
	}

	return nil
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return baseAddr, inUnitAddr
}

func (s *Storage) chunk(addr, left uint64) (baseAddr, inUnitAddr, n uint64) {
	baseAddr, inUnitAddr = s.parseAddress(addr)
	n = min(left, s.unitSize-inUnitAddr)

	return baseAddr, inUnitAddr, n
}

// Read returns n bytes starting at address.
func (s *Storage) Read(address, n uint64) ([]byte, error) {
	if err := s.checkRange(address, n); err != nil {
		return nil, err
	}

	s.RLock()
	defer s.RUnlock()

	res := make([]byte, n)

	for offset := uint64(0); offset < n; {
		baseAddr, inUnitAddr, chunk := s.chunk(address+offset, n-offset)

		if unit, ok := s.data[baseAddr]; ok {
			copy(res[offset:offset+chunk], unit[inUnitAddr:inUnitAddr+chunk])
		}

		offset += chunk
	}

	return res, nil
}

// Write stores data starting at address.
func (s *Storage) Write(address uint64, data []byte) error {
	return s.WriteMasked(address, data, nil)
}

// WriteMasked stores the bytes of data whose entry in mask is true. A nil
// mask writes every byte.
func (s *Storage) WriteMasked(address uint64, data []byte, mask []bool) error {
	n := uint64(len(data))

	if mask != nil && len(mask) != len(data) {
		return fmt.Errorf("storage: mask has %d entries for %d bytes",
			len(mask), len(data))
	}

	if err := s.checkRange(address, n); err != nil {
		return err
	}

	s.Lock()
	defer s.Unlock()

	for offset := uint64(0); offset < n; {
		baseAddr, inUnitAddr, chunk := s.chunk(address+offset, n-offset)
		unit := s.unit(baseAddr)

		for i := uint64(0); i < chunk; i++ {
			if mask == nil || mask[offset+i] {
				unit[inUnitAddr+i] = data[offset+i]
			}
		}

		offset += chunk
	}

	return nil
}

func (s *Storage) unit(baseAddr uint64) []byte {
	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}
