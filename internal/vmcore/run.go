package vmcore

import (
	"fmt"

	"sentra/internal/value"
)

// run is the dispatch loop: fetch byte, switch on opcode, repeat.
// CALL/INVOKE/SUPER-INVOKE/RETURN refresh the cached frame pointer since
// they change which frame is on top.
func (vm *VM) run() error {
	frame := vm.currentFrame()

	readByte := func() byte {
		b := frame.chunk().Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := frame.chunk().Code[frame.ip]
		lo := frame.chunk().Code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return frame.chunk().Constants[readByte()]
	}
	readString := func() *value.ObjString {
		return readConstant().AsObj().(*value.ObjString)
	}

	for {
		if vm.opts.TraceExec && vm.opts.OnTrace != nil {
			vm.opts.OnTrace(frame.chunk(), frame.ip)
		}

		op := value.OpCode(readByte())
		switch op {
		case value.OpConstant:
			vm.push(readConstant())

		case value.OpNil:
			vm.push(value.Nil())
		case value.OpTrue:
			vm.push(value.Bool(true))
		case value.OpFalse:
			vm.push(value.Bool(false))
		case value.OpPop:
			vm.pop()

		case value.OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[frame.base+int(slot)])
		case value.OpSetLocal:
			slot := readByte()
			vm.stack[frame.base+int(slot)] = vm.peek(0)

		case value.OpGetGlobal:
			name := readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v)
		case value.OpDefineGlobal:
			name := readString()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case value.OpSetGlobal:
			name := readString()
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}

		case value.OpGetUpvalue:
			slot := readByte()
			vm.push(*frame.closure.Upvalues[slot].Location)
		case value.OpSetUpvalue:
			slot := readByte()
			*frame.closure.Upvalues[slot].Location = vm.peek(0)

		case value.OpGetProperty:
			instance, ok := vm.peek(0).AsObj().(*value.ObjInstance)
			if !vm.peek(0).IsObj() || !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			name := readString()
			if v, ok := instance.Fields.Get(name); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}

		case value.OpSetProperty:
			instance, ok := vm.peek(1).AsObj().(*value.ObjInstance)
			if !vm.peek(1).IsObj() || !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			instance.Fields.Set(readString(), vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case value.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObj().(*value.ObjClass)
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}

		case value.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case value.OpGreater:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case value.OpLess:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case value.OpAdd:
			switch {
			case vm.peek(0).IsObj() && vm.peek(1).IsObj():
				_, aStr := vm.peek(1).AsObj().(*value.ObjString)
				_, bStr := vm.peek(0).AsObj().(*value.ObjString)
				if !aStr || !bStr {
					return vm.runtimeError("Operands must be two numbers or two strings.")
				}
				vm.concatenate()
			case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
				b := vm.pop().AsNumber()
				a := vm.pop().AsNumber()
				vm.push(value.Number(a + b))
			default:
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}

		case value.OpSubtract:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case value.OpMultiply:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case value.OpDivide:
			if err := vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case value.OpNot:
			vm.push(value.Bool(isFalsey(vm.pop())))

		case value.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case value.OpPrint:
			fmt.Println(vm.pop().String())

		case value.OpJump:
			offset := readShort()
			frame.ip += offset
		case value.OpJumpIfFalse:
			offset := readShort()
			if isFalsey(vm.peek(0)) {
				frame.ip += offset
			}
		case value.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case value.OpCall:
			argCount := int(readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case value.OpInvoke:
			method := readString()
			argCount := int(readByte())
			if err := vm.invoke(method, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case value.OpSuperInvoke:
			method := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsObj().(*value.ObjClass)
			if err := vm.invokeFromClass(superclass, method, argCount); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case value.OpClosure:
			fn := readConstant().AsObj().(*value.ObjFunction)
			closure := vm.heap.NewClosure(fn)
			vm.push(value.FromObj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readByte()
				index := readByte()
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[frame.base+int(index)])
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case value.OpCloseUpvalue:
			vm.closeUpvalues(&vm.stack[vm.stackTop-1])
			vm.pop()

		case value.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(&vm.stack[frame.base])
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.base
			vm.push(result)
			frame = vm.currentFrame()

		case value.OpClass:
			vm.push(value.FromObj(vm.heap.NewClass(readString())))

		case value.OpInherit:
			superclass, ok := vm.peek(1).AsObj().(*value.ObjClass)
			if !vm.peek(1).IsObj() || !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObj().(*value.ObjClass)
			superclass.Methods.AddAll(subclass.Methods)
			vm.pop()

		case value.OpMethod:
			vm.defineMethod(readString())
		}
	}
}

func (vm *VM) binaryNumberOp(op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}
