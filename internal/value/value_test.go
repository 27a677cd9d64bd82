package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthiness(t *testing.T) {
	assert.False(t, Nil().Truthy())
	assert.False(t, Bool(false).Truthy())
	assert.True(t, Bool(true).Truthy())
	assert.True(t, Number(0).Truthy(), "0 is truthy")
	assert.True(t, Number(1).Truthy())
}

func TestEqualByKindAndNaN(t *testing.T) {
	assert.True(t, Equal(Nil(), Nil()))
	assert.True(t, Equal(Bool(true), Bool(true)))
	assert.False(t, Equal(Bool(true), Bool(false)))
	assert.False(t, Equal(Nil(), Bool(false)), "different kinds are never equal")
	assert.True(t, Equal(Number(1), Number(1)))

	nan := Number(nan())
	assert.False(t, Equal(nan, nan), "NaN != NaN is preserved")
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestObjectEqualityIsPointerIdentity(t *testing.T) {
	h := NewHeap()
	a := h.InternString("same")
	b := h.InternString("same")
	assert.True(t, Equal(FromObj(a), FromObj(b)), "interning makes equal-content strings the same pointer")

	other := h.InternString("different")
	assert.False(t, Equal(FromObj(a), FromObj(other)))
}

func TestStringFormatting(t *testing.T) {
	assert.Equal(t, "nil", Nil().String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "false", Bool(false).String())
	assert.Equal(t, "3", Number(3).String(), "whole numbers print without a decimal point")
	assert.Equal(t, "3.5", Number(3.5).String())
}

func TestInternStringReturnsCanonicalPointer(t *testing.T) {
	h := NewHeap()
	a := h.InternString("hello")
	b := h.InternString("hello")
	assert.Same(t, a, b)

	c := h.InternString("world")
	assert.NotSame(t, a, c)
}
