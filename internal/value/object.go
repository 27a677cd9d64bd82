package value

import "sentra/internal/table"

// ObjType tags the concrete heap-object variant.
type ObjType uint8

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeNative
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
)

// Header is the common prefix every heap object carries: a mark bit and
// the intrusive singly-linked list pointer the GC sweeps. This "tagged
// sum with shared header" shape replaces clox's C cast trick.
type Header struct {
	Type   ObjType
	Marked bool
	Next   Obj
}

// Obj is implemented by every heap-allocated variant. The GC and the VM
// dispatch on the concrete type via type switches and assertions (see
// value/gc.go blacken). Header.Type is not set by any allocator and stays
// at its zero value; nothing reads it.
type Obj interface {
	header() *Header
}

func (h *Header) header() *Header { return h }

// ObjString is immutable, length-prefixed (via Go's native string), with a
// precomputed FNV-1a hash. Equal content implies equal identity, enforced
// by always routing construction through Heap.InternString.
type ObjString struct {
	Header
	Chars string
	Hash  uint32
}

func (s *ObjString) Len() int { return len(s.Chars) }

// ObjFunction is produced by the compiler and immutable after compile.
type ObjFunction struct {
	Header
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
	Name         *ObjString // nil for the top-level script
}

func NewFunction() *ObjFunction {
	return &ObjFunction{Chunk: NewChunk()}
}

// NativeFn is a host callable: given the argument slots, return a value.
type NativeFn func(args []Value) Value

type ObjNative struct {
	Header
	Name string
	Fn   NativeFn
}

// ObjUpvalue abstracts "a pointer into a live stack slot" without giving
// the value package a dependency on the VM's stack array type: the VM
// hands back a *Value that is stable for the life of the slot because its
// value stack is a fixed-size array, never reallocated.
type ObjUpvalue struct {
	Header
	Location *Value // points at a VM stack slot while open
	Closed   Value  // owns the value once closed
	Next     *ObjUpvalue
}

func (u *ObjUpvalue) IsOpen() bool { return u.Location != &u.Closed }

type ObjClosure struct {
	Header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

type ObjClass struct {
	Header
	Name    *ObjString
	Methods *table.Table[*ObjString, Value]
}

func NewClass(name *ObjString) *ObjClass {
	return &ObjClass{Name: name, Methods: stringKeyedTable()}
}

type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields *table.Table[*ObjString, Value]
}

func NewInstance(class *ObjClass) *ObjInstance {
	return &ObjInstance{Class: class, Fields: stringKeyedTable()}
}

type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

func stringKeyedTable() *table.Table[*ObjString, Value] {
	return table.New[*ObjString, Value](func(s *ObjString) uint32 { return s.Hash })
}
