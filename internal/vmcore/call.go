package vmcore

import (
	"unsafe"

	"sentra/internal/value"
)

// addr gives a total order over stack-slot pointers so the open-upvalue
// list can stay sorted by descending address; Go pointers only support
// == and !=, so the ordering has to go through uintptr.
func addr(p *value.Value) uintptr { return uintptr(unsafe.Pointer(p)) }

// callClosure pushes a new call frame for closure, checking arity and the
// frame-count bound first. A non-nil return is already a fully formed
// *langerr.RuntimeError.
func (vm *VM) callClosure(closure *value.ObjClosure, argCount int) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
	}
	if vm.frameCount == framesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	// Slot zero is reserved for the receiver (or a placeholder for plain
	// functions), so the window starts one slot before the first argument.
	frame.base = vm.stackTop - argCount - 1
	return nil
}

// callValue dispatches a call over the callee's concrete type: bound
// method, class (constructor), closure, or native.
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.ObjBoundMethod:
			vm.stack[vm.stackTop-argCount-1] = obj.Receiver
			return vm.callClosure(obj.Method, argCount)

		case *value.ObjClass:
			vm.stack[vm.stackTop-argCount-1] = value.FromObj(vm.heap.NewInstance(obj))
			if initializer, ok := obj.Methods.Get(vm.heap.InitString()); ok {
				return vm.callClosure(initializer.AsObj().(*value.ObjClosure), argCount)
			} else if argCount != 0 {
				return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
			}
			return nil

		case *value.ObjClosure:
			return vm.callClosure(obj, argCount)

		case *value.ObjNative:
			result := obj.Fn(vm.stack[vm.stackTop-argCount : vm.stackTop])
			vm.stackTop -= argCount + 1
			vm.push(result)
			return nil
		}
	}

	return vm.runtimeError("Can only call functions and classes.")
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name *value.ObjString, argCount int) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}
	return vm.callClosure(method.AsObj().(*value.ObjClosure), argCount)
}

// invoke fuses a GET-PROPERTY + CALL into one fast-path step, checking the
// instance's fields first since a field can hold a callable value that
// shadows a method of the same name.
func (vm *VM) invoke(name *value.ObjString, argCount int) error {
	receiver := vm.peek(argCount)
	instance, ok := receiver.AsObj().(*value.ObjInstance)
	if !receiver.IsObj() || !ok {
		return vm.runtimeError("Only instances have methods.")
	}

	if v, ok := instance.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = v
		return vm.callValue(v, argCount)
	}

	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) bindMethod(class *value.ObjClass, name *value.ObjString) error {
	method, ok := class.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Chars)
	}

	bound := vm.heap.NewBoundMethod(vm.peek(0), method.AsObj().(*value.ObjClosure))
	vm.pop()
	vm.push(value.FromObj(bound))
	return nil
}

// captureUpvalue finds or creates the open upvalue for the stack slot at
// local, keeping the open list sorted by descending address.
func (vm *VM) captureUpvalue(local *value.Value) *value.ObjUpvalue {
	var prev *value.ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && addr(cur.Location) > addr(local) {
		prev = cur
		cur = cur.Next
	}
	if cur != nil && cur.Location == local {
		return cur
	}

	created := vm.heap.NewUpvalue(local)
	created.Next = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.Next = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose location is at or above
// last, copying the live value into the upvalue's own Closed slot.
func (vm *VM) closeUpvalues(last *value.Value) {
	for vm.openUpvalues != nil && addr(vm.openUpvalues.Location) >= addr(last) {
		uv := vm.openUpvalues
		uv.Closed = *uv.Location
		uv.Location = &uv.Closed
		vm.openUpvalues = uv.Next
	}
}

func (vm *VM) defineMethod(name *value.ObjString) {
	method := vm.peek(0)
	class := vm.peek(1).AsObj().(*value.ObjClass)
	class.Methods.Set(name, method)
	vm.pop()
}

func isFalsey(v value.Value) bool { return !v.Truthy() }

func (vm *VM) concatenate() {
	b := vm.peek(0).AsObj().(*value.ObjString)
	a := vm.peek(1).AsObj().(*value.ObjString)
	result := vm.heap.InternString(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(value.FromObj(result))
}
