package value

// CollectGarbage runs one full mark-sweep cycle: mark roots, trace the
// gray worklist to black, drop unmarked entries from the intern pool (so
// interning never pins an otherwise-unreachable string alive), then sweep
// every object that never turned black. The next collection threshold
// grows by gcGrowthFactor.
func (h *Heap) CollectGarbage() {
	before := h.bytesAllocated

	for _, o := range h.pinned {
		h.MarkObject(o)
	}
	if h.MarkCompilerRoots != nil {
		h.MarkCompilerRoots(h)
	}
	if h.MarkRoots != nil {
		h.MarkRoots(h)
	}
	h.MarkObject(h.initString)

	h.trace()

	h.strings.DeleteIf(func(k *ObjString, _ struct{}) bool {
		return !k.header().Marked
	})

	h.sweep()

	h.nextGC = h.bytesAllocated * gcGrowthFactor
	if h.nextGC < initialNextGC {
		h.nextGC = initialNextGC
	}

	if h.OnCollect != nil {
		h.OnCollect(before, h.bytesAllocated, h.nextGC)
	}
}

// MarkValue marks v's object payload, if it has one. Exported so the VM
// and compiler can use it from their MarkRoots/MarkCompilerRoots callbacks
// without this package depending on either.
func (h *Heap) MarkValue(v Value) {
	if v.Kind == KindObj {
		h.MarkObject(v.o)
	}
}

// MarkObject grays o: sets its mark bit and queues it for tracing. Safe to
// call with nil.
func (h *Heap) MarkObject(o Obj) {
	if o == nil {
		return
	}
	hdr := o.header()
	if hdr.Marked {
		return
	}
	hdr.Marked = true
	h.grayStack = append(h.grayStack, o)
}

func (h *Heap) trace() {
	for len(h.grayStack) > 0 {
		n := len(h.grayStack) - 1
		o := h.grayStack[n]
		h.grayStack = h.grayStack[:n]
		h.blacken(o)
	}
}

// blacken marks every object reachable through o's variant-specific
// fields. Strings and native functions have no outgoing references.
func (h *Heap) blacken(o Obj) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative:
		// no outgoing references
	case *ObjUpvalue:
		h.MarkValue(obj.Closed)
	case *ObjFunction:
		if obj.Name != nil {
			h.MarkObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			h.MarkValue(c)
		}
	case *ObjClosure:
		h.MarkObject(obj.Function)
		for _, uv := range obj.Upvalues {
			h.MarkObject(uv)
		}
	case *ObjClass:
		h.MarkObject(obj.Name)
		obj.Methods.Each(func(_ *ObjString, v Value) { h.MarkValue(v) })
	case *ObjInstance:
		h.MarkObject(obj.Class)
		obj.Fields.Each(func(_ *ObjString, v Value) { h.MarkValue(v) })
	case *ObjBoundMethod:
		h.MarkValue(obj.Receiver)
		h.MarkObject(obj.Method)
	}
}

// estimatedSize approximates an object's footprint for sweep's bytes
// accounting; it does not need to be exact, only consistent with what
// track charged on allocation.
func estimatedSize(o Obj) int {
	switch obj := o.(type) {
	case *ObjString:
		return len(obj.Chars) + 24
	case *ObjFunction:
		return 64
	case *ObjNative:
		return 32
	case *ObjClosure:
		return 16 + 8*len(obj.Upvalues)
	case *ObjUpvalue:
		return 32
	case *ObjClass:
		return 32
	case *ObjInstance:
		return 32
	case *ObjBoundMethod:
		return 24
	}
	return 16
}

// sweep walks the intrusive object list; unmarked objects are unlinked
// (freed), marked objects have their mark bit cleared for the next cycle.
func (h *Heap) sweep() {
	var prev Obj
	cur := h.objects
	for cur != nil {
		hdr := cur.header()
		next := hdr.Next
		if hdr.Marked {
			hdr.Marked = false
			prev = cur
			cur = next
			continue
		}
		h.bytesAllocated -= estimatedSize(cur)
		if prev == nil {
			h.objects = next
		} else {
			prev.header().Next = next
		}
		cur = next
	}
}
