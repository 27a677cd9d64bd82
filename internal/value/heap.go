package value

import "sentra/internal/table"

// Heap owns every allocation: the intrusive object list, the string
// intern pool, and the byte-accounting that drives the collector. It is a
// process-wide singleton: one VM, one heap, one interning table.
type Heap struct {
	objects        Obj
	strings        *table.Table[*ObjString, struct{}]
	bytesAllocated int
	nextGC         int
	grayStack      []Obj
	initString     *ObjString

	// pinned protects objects still under construction (e.g. a fresh
	// ObjString being inserted into the intern pool, whose insertion can
	// itself trigger a nested collection) from being swept before any
	// real root reaches them. This generalizes "push on the value stack
	// across any call that might allocate" into a mechanism the heap owns
	// directly, instead of reaching into the VM's stack.
	pinned []Obj

	// StressGC forces a collection on every allocation.
	StressGC bool

	// MarkRoots and MarkCompilerRoots are set by the VM and the compiler
	// respectively; CollectGarbage calls both (when non-nil) before
	// tracing, so every live root producer is covered without this
	// package importing either of theirs.
	MarkRoots         func(h *Heap)
	MarkCompilerRoots func(h *Heap)

	// OnCollect, if set, is called after every collection with the byte
	// counts involved (drives --gc-log).
	OnCollect func(before, after, next int)
}

const initialNextGC = 1 << 20 // 1 MiB, matches clox's default threshold order of magnitude
const gcGrowthFactor = 2

func NewHeap() *Heap {
	h := &Heap{nextGC: initialNextGC}
	h.strings = table.New[*ObjString, struct{}](func(s *ObjString) uint32 { return s.Hash })
	h.initString = h.InternString("init")
	return h
}

func (h *Heap) InitString() *ObjString { return h.initString }

func (h *Heap) BytesAllocated() int { return h.bytesAllocated }
func (h *Heap) NextGC() int         { return h.nextGC }

// track links a freshly-allocated object into the heap's object list and
// charges its estimated size against the allocation budget, collecting
// first if that would cross the threshold. This is the single choke point
// every allocation passes through.
func (h *Heap) track(o Obj, size int) Obj {
	h.bytesAllocated += size
	if h.StressGC || h.bytesAllocated > h.nextGC {
		h.CollectGarbage()
	}
	hdr := o.header()
	hdr.Next = h.objects
	h.objects = o
	return o
}

func (h *Heap) pin(o Obj) {
	h.pinned = append(h.pinned, o)
}

func (h *Heap) unpin() {
	h.pinned = h.pinned[:len(h.pinned)-1]
}

// InternString canonicalizes s: if an equal-content string is already
// live, its pointer is returned; otherwise a new ObjString is allocated
// and interned, so equal content always implies equal identity.
func (h *Heap) InternString(s string) *ObjString {
	hash := fnv1a32(s)
	if existing, ok := h.strings.FindMatch(hash, func(k *ObjString) bool {
		return k.Hash == hash && k.Chars == s
	}); ok {
		return existing
	}
	str := &ObjString{Chars: s, Hash: hash}
	h.track(str, len(s)+24)
	h.pin(str)
	h.strings.Set(str, struct{}{})
	h.unpin()
	return str
}

// NewFunctionObj allocates a function shell the compiler fills in as it
// compiles the body.
func (h *Heap) NewFunctionObj() *ObjFunction {
	f := NewFunction()
	h.track(f, 64)
	return f
}

func (h *Heap) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	h.track(n, 32)
	return n
}

func (h *Heap) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	h.track(c, 16+8*fn.UpvalueCount)
	return c
}

func (h *Heap) NewUpvalue(slot *Value) *ObjUpvalue {
	u := &ObjUpvalue{Location: slot}
	h.track(u, 32)
	return u
}

func (h *Heap) NewClass(name *ObjString) *ObjClass {
	c := NewClass(name)
	h.track(c, 32)
	return c
}

func (h *Heap) NewInstance(class *ObjClass) *ObjInstance {
	i := NewInstance(class)
	h.track(i, 32)
	return i
}

func (h *Heap) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	h.track(b, 24)
	return b
}

// fnv1a32 is the precomputed-per-string hash every ObjString carries.
func fnv1a32(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}
