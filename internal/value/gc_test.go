package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectGarbageSweepsUnreachableObjects(t *testing.T) {
	h := NewHeap()

	kept := h.NewClass(h.InternString("Kept"))
	h.NewClass(h.InternString("Garbage")) // never rooted

	h.MarkRoots = func(h *Heap) {
		h.MarkObject(kept)
	}

	h.CollectGarbage()

	found := false
	for o := h.objects; o != nil; o = o.header().Next {
		if o == kept {
			found = true
		}
	}
	assert.True(t, found, "a rooted object must survive collection")
}

func TestCollectGarbageReclaimsUnreferencedClosureGraph(t *testing.T) {
	h := NewHeap()

	fn := h.NewFunctionObj()
	fn.Name = h.InternString("f")
	closure := h.NewClosure(fn)
	_ = closure

	before := h.BytesAllocated()
	h.MarkRoots = func(h *Heap) {} // nothing is rooted
	h.CollectGarbage()

	assert.Less(t, h.BytesAllocated(), before, "an unrooted closure graph must be freed")
}

func TestStressGCCollectsOnEveryAllocation(t *testing.T) {
	h := NewHeap()
	h.StressGC = true

	var roots []*ObjClass
	h.MarkRoots = func(h *Heap) {
		for _, c := range roots {
			h.MarkObject(c)
		}
	}

	for i := 0; i < 50; i++ {
		c := h.NewClass(h.InternString("C"))
		roots = append(roots, c)
	}

	for _, c := range roots {
		found := false
		for o := h.objects; o != nil; o = o.header().Next {
			if o == c {
				found = true
				break
			}
		}
		assert.True(t, found, "a rooted class must survive stress-mode collection on every allocation")
	}
}

func TestInternPoolDropsUnreachableStrings(t *testing.T) {
	h := NewHeap()
	h.MarkRoots = func(h *Heap) {}

	h.InternString("ephemeral")
	_, present := h.strings.FindMatch(fnv1a32("ephemeral"), func(k *ObjString) bool {
		return k.Chars == "ephemeral"
	})
	require.True(t, present)

	h.CollectGarbage()

	_, present = h.strings.FindMatch(fnv1a32("ephemeral"), func(k *ObjString) bool {
		return k.Chars == "ephemeral"
	})
	assert.False(t, present, "an unreachable interned string must be dropped from the pool")
}
