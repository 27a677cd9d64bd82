package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteAppendsByteAndLine(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OpNil, 7)
	c.Write(42, 7)
	assert.Equal(t, []byte{byte(OpNil), 42}, c.Code)
	assert.Equal(t, []int{7, 7}, c.Lines)
}

func TestAddConstantRejectsPastMaxConstants(t *testing.T) {
	c := NewChunk()
	for i := 0; i < maxConstants; i++ {
		_, ok := c.AddConstant(Number(float64(i)))
		assert.True(t, ok)
	}
	_, ok := c.AddConstant(Number(999))
	assert.False(t, ok, "a chunk's constant pool is capped at one byte's worth of indices")
}
