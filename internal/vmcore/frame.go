package vmcore

import "sentra/internal/value"

// framesMax and stackMax are a fixed call-depth bound and a fixed
// value-stack capacity. The stack's fixed size is load bearing, not just
// a limit: it keeps every open upvalue's *value.Value pointer into a
// stack slot stable for the life of that slot (the slice backing array
// never reallocates).
const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// callFrame pins one in-progress call: its closure, an instruction
// pointer into that closure's function's chunk, and a base index into the
// VM's value stack marking slot 0 for this call.
type callFrame struct {
	closure *value.ObjClosure
	ip      int
	base    int
}

func (f *callFrame) chunk() *value.Chunk { return f.closure.Function.Chunk }
