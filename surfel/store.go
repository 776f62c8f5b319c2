package surfel

import (
	"math"

	"github.com/pkg/errors"
)

// ErrOutOfCapacity is returned by Allocate when the store is full.
var ErrOutOfCapacity = errors.New("surfel store is out of capacity")

// Store is a contiguous arena of surfel records, pre-allocated to a fixed
// capacity at construction. Handles are stable from Allocate until Reset.
type Store struct {
	records []Surfel
	used    int
}

// NewStore returns a store with room for capacity surfels.
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, errors.Errorf("invalid surfel store capacity %d", capacity)
	}
	return &Store{records: make([]Surfel, capacity)}, nil
}

// Allocate reserves the next free record and returns its handle. The record
// starts invalid; the caller fills it in. Fails with ErrOutOfCapacity when
// the arena is exhausted.
func (s *Store) Allocate() (int, error) {
	if s.used >= len(s.records) {
		return -1, ErrOutOfCapacity
	}
	i := s.used
	s.used++
	nan := math.NaN()
	s.records[i] = Surfel{}
	s.records[i].Position.X = nan
	s.records[i].Position.Y = nan
	s.records[i].Position.Z = nan
	return i, nil
}

// At returns a reference to the record at handle i.
func (s *Store) At(i int) *Surfel {
	return &s.records[i]
}

// Len returns the number of allocated records.
func (s *Store) Len() int {
	return s.used
}

// Capacity returns the fixed arena size.
func (s *Store) Capacity() int {
	return len(s.records)
}

// MarkInvalid stamps the sentinel non-finite position on record i. The
// caller is responsible for keeping the spatial index consistent.
func (s *Store) MarkInvalid(i int) {
	nan := math.NaN()
	s.records[i].Position.X = nan
	s.records[i].Position.Y = nan
	s.records[i].Position.Z = nan
}

// Reset returns the store to empty. Handles issued before the reset are no
// longer valid.
func (s *Store) Reset() {
	s.used = 0
}
