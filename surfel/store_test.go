package surfel

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewStore(t *testing.T) {
	_, err := NewStore(0)
	test.That(t, err, test.ShouldNotBeNil)

	s, err := NewStore(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 0)
	test.That(t, s.Capacity(), test.ShouldEqual, 3)
}

func TestAllocate(t *testing.T) {
	s, err := NewStore(2)
	test.That(t, err, test.ShouldBeNil)

	i, err := s.Allocate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i, test.ShouldEqual, 0)
	test.That(t, s.At(i).Valid(), test.ShouldBeFalse)

	j, err := s.Allocate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, j, test.ShouldEqual, 1)
	test.That(t, s.Len(), test.ShouldEqual, 2)

	_, err = s.Allocate()
	test.That(t, errors.Is(err, ErrOutOfCapacity), test.ShouldBeTrue)
	test.That(t, s.Len(), test.ShouldEqual, 2)
}

func TestAllocateClearsRecycledRecord(t *testing.T) {
	s, err := NewStore(1)
	test.That(t, err, test.ShouldBeNil)

	i, err := s.Allocate()
	test.That(t, err, test.ShouldBeNil)
	sf := s.At(i)
	sf.Position = r3.Vector{X: 1, Y: 2, Z: 3}
	sf.Confidence = 7

	s.Reset()
	test.That(t, s.Len(), test.ShouldEqual, 0)

	i, err = s.Allocate()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.At(i).Confidence, test.ShouldEqual, 0)
	test.That(t, s.At(i).Valid(), test.ShouldBeFalse)
}

func TestMarkInvalid(t *testing.T) {
	s, err := NewStore(1)
	test.That(t, err, test.ShouldBeNil)

	i, err := s.Allocate()
	test.That(t, err, test.ShouldBeNil)
	s.At(i).Position = r3.Vector{X: 1}
	test.That(t, s.At(i).Valid(), test.ShouldBeTrue)

	s.MarkInvalid(i)
	test.That(t, s.At(i).Valid(), test.ShouldBeFalse)
}

func TestReliable(t *testing.T) {
	sf := Surfel{Confidence: 4}
	test.That(t, sf.Reliable(5), test.ShouldBeFalse)
	sf.Confidence = 5
	test.That(t, sf.Reliable(5), test.ShouldBeTrue)
}
