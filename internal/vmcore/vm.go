// Package vmcore implements the stack-and-frame bytecode interpreter: a
// fixed-capacity value stack, a fixed-capacity call-frame stack, the
// CALL/INVOKE/SUPER-INVOKE/RETURN call protocol, upvalue capture and
// closing, and class/instance/method-binding semantics.
package vmcore

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"sentra/internal/compiler"
	"sentra/internal/langerr"
	"sentra/internal/table"
	"sentra/internal/value"
)

// Options configures VM behavior that the CLI flags drive; cmd/sentra
// copies the flags parsed by internal/config into this shape so vmcore
// never needs to import the CLI's flag-parsing package.
type Options struct {
	// TraceExec prints each dispatched instruction via the disassembler
	// before executing it, as a tracing aid.
	TraceExec bool
	// GCLog prints a humanized before/after/next byte count on every
	// collection.
	GCLog bool
	// OnTrace, when TraceExec is set, receives the chunk and offset of
	// the instruction about to run; internal/disasm supplies the actual
	// formatter so vmcore does not import it for the happy path where
	// tracing is off.
	OnTrace func(chunk *value.Chunk, offset int)
}

// VM is the process-wide interpreter singleton: the heap, the globals
// table, the intern table (owned by Heap), the open-upvalue list, the
// value stack, and the call-frame stack.
type VM struct {
	heap    *value.Heap
	globals *table.Table[*value.ObjString, value.Value]

	stack    [stackMax]value.Value
	stackTop int

	frames     [framesMax]callFrame
	frameCount int

	openUpvalues *value.ObjUpvalue

	// RunID is minted once per VM instance. It is exposed as a field
	// only; runtime-error reports do not include it.
	RunID uuid.UUID

	opts Options
}

// New builds a VM over heap, wires the heap's GC root callback to this
// VM's live state, and installs the native function bindings ("clock").
func New(heap *value.Heap, opts Options) *VM {
	vm := &VM{
		heap:    heap,
		globals: table.New[*value.ObjString, value.Value](func(s *value.ObjString) uint32 { return s.Hash }),
		RunID:   uuid.New(),
		opts:    opts,
	}
	heap.MarkRoots = vm.markRoots
	if opts.GCLog {
		heap.OnCollect = vm.logCollect
	}
	vm.defineNative("clock", clockNative)
	return vm
}

var processStart = time.Now()

// clockNative returns the seconds elapsed since the process started.
// clox's clock() reports C's process-CPU-time clock(), which has no
// portable Go equivalent, so wall-clock-since-start is substituted; the
// contract callers rely on, a monotonically increasing number of
// seconds, is preserved.
func clockNative(args []value.Value) value.Value {
	return value.Number(time.Since(processStart).Seconds())
}

func (vm *VM) logCollect(before, after, next int) {
	fmt.Fprintf(os.Stderr, "gc: %s -> %s (next at %s)\n",
		humanize.Bytes(uint64(before)), humanize.Bytes(uint64(after)), humanize.Bytes(uint64(next)))
}

// markRoots marks every live value-stack slot, every frame's closure,
// every open upvalue, and every entry in the globals table. The
// compiler-chain and "init" roots are covered separately, by the
// compiler's own callback and by the heap itself (see value/gc.go).
func (vm *VM) markRoots(h *value.Heap) {
	for i := 0; i < vm.stackTop; i++ {
		h.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		h.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.Next {
		h.MarkObject(uv)
	}
	vm.globals.Each(func(k *value.ObjString, v value.Value) {
		h.MarkObject(k)
		h.MarkValue(v)
	})
}

func (vm *VM) defineNative(name string, fn value.NativeFn) {
	// Push/pop the name and the native-fn object around the table insert
	// so a collection triggered mid-insert can't free either: the same
	// stack-as-GC-root trick used elsewhere for construction sequences,
	// needed here since these allocations happen before any frame runs.
	nameObj := vm.heap.InternString(name)
	vm.push(value.FromObj(nameObj))
	fnObj := vm.heap.NewNative(name, fn)
	vm.push(value.FromObj(fnObj))
	vm.globals.Set(nameObj, vm.stack[1])
	vm.pop()
	vm.pop()
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) currentFrame() *callFrame { return &vm.frames[vm.frameCount-1] }

// Interpret compiles source and runs it to completion: a nil error means
// a clean exit, a *langerr.CompileError (wrapped in a slice via
// multiErr) or *langerr.RuntimeError otherwise.
func (vm *VM) Interpret(source string) error {
	fn, errs := compiler.Compile(source, vm.heap)
	if fn == nil {
		return multiErr(errs)
	}

	vm.push(value.FromObj(fn))
	closure := vm.heap.NewClosure(fn)
	vm.pop()
	vm.push(value.FromObj(closure))
	if err := vm.callClosure(closure, 0); err != nil {
		return err
	}

	return vm.run()
}

// multiErr reports the first compile error ("first one wins"); the slice
// is still returned in full to the CLI for callers that want to surface
// every diagnostic, but Error() only renders the head.
type multiErr []*langerr.CompileError

func (m multiErr) Error() string {
	if len(m) == 0 {
		return "COMPILE ERROR"
	}
	return m[0].Error()
}

func (vm *VM) runtimeError(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)

	frames := make([]langerr.Frame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		fn := f.closure.Function
		instruction := f.ip - 1
		line := 0
		if instruction >= 0 && instruction < len(fn.Chunk.Lines) {
			line = fn.Chunk.Lines[instruction]
		}
		name := ""
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		frames = append(frames, langerr.Frame{Line: line, Name: name})
	}

	vm.resetStack()
	return &langerr.RuntimeError{Message: msg, Frames: frames}
}
