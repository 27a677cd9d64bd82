package vmcore

import (
	"bufio"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentra/internal/langerr"
	"sentra/internal/value"
)

// captureStdout runs fn with os.Stdout redirected to a pipe and returns
// everything printed, since OpPrint writes via fmt.Println.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	w.Close()

	out, err := io.ReadAll(bufio.NewReader(r))
	require.NoError(t, err)
	return string(out)
}

func newVM() *VM {
	return New(value.NewHeap(), Options{})
}

func TestArithmeticAndPrint(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`print 1 + 2 * 3;`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`print "foo" + "bar";`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "foobar\n", out)
}

func TestGlobalAndLocalVariables(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
var g = 1;
{
  var l = 2;
  print g + l;
}
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "3\n", out)
}

func TestIfElseAndWhileLoop(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
var i = 0;
while (i < 3) {
  if (i == 1) { print "one"; } else { print i; }
  i = i + 1;
}
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "0\none\n2\n", out)
}

func TestFunctionCallAndReturn(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
fun add(a, b) { return a + b; }
print add(2, 3);
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "5\n", out)
}

func TestClosureCapturesUpvalue(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
fun makeCounter() {
  var count = 0;
  fun counter() {
    count = count + 1;
    return count;
  }
  return counter;
}
var c = makeCounter();
print c();
print c();
print c();
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestClassInstancesAndMethods(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
class Counter {
  init() { this.n = 0; }
  increment() { this.n = this.n + 1; return this.n; }
}
var c = Counter();
print c.increment();
print c.increment();
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "1\n2\n", out)
}

func TestInheritanceAndSuperCall(t *testing.T) {
	out := captureStdout(t, func() {
		vm := newVM()
		err := vm.Interpret(`
class Animal {
  speak() { return "..."; }
}
class Dog < Animal {
  speak() { return super.speak() + "woof"; }
}
print Dog().speak();
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "...woof\n", out)
}

func TestRuntimeErrorUndefinedVariable(t *testing.T) {
	vm := newVM()
	err := vm.Interpret(`print undefined_thing;`)
	require.Error(t, err)
	var rerr *langerr.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Undefined variable")
}

func TestRuntimeErrorTypeMismatch(t *testing.T) {
	vm := newVM()
	err := vm.Interpret(`print 1 + "a";`)
	require.Error(t, err)
	var rerr *langerr.RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestRuntimeErrorReportsCallStackFrames(t *testing.T) {
	vm := newVM()
	err := vm.Interpret(`
fun a() { return b(); }
fun b() { return 1 + nil; }
a();
`)
	require.Error(t, err)
	var rerr *langerr.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Len(t, rerr.Frames, 3)
	assert.Equal(t, "b", rerr.Frames[0].Name)
	assert.Equal(t, "a", rerr.Frames[1].Name)
	assert.Equal(t, "", rerr.Frames[2].Name, "the top-level script frame has an empty name; Error() renders it as \"script\"")
}

func TestStackOverflowOnUnboundedRecursion(t *testing.T) {
	vm := newVM()
	err := vm.Interpret(`
fun recurse() { return recurse(); }
recurse();
`)
	require.Error(t, err)
	var rerr *langerr.RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "Stack overflow")
}

func TestClockNativeReturnsIncreasingSeconds(t *testing.T) {
	vm := newVM()
	out := captureStdout(t, func() {
		err := vm.Interpret(`
var a = clock();
var b = clock();
print b >= a;
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "true\n", out)
}

func TestStressGCDoesNotCorruptLiveState(t *testing.T) {
	heap := value.NewHeap()
	heap.StressGC = true
	vm := New(heap, Options{})
	out := captureStdout(t, func() {
		err := vm.Interpret(`
class Box {
  init(v) { this.v = v; }
}
var items = Box(1);
fun make(n) {
  var b = Box(n);
  return b;
}
var a = make(1);
var b = make(2);
print a.v + b.v;
`)
		assert.NoError(t, err)
	})
	assert.Equal(t, "3\n", out)
}

func TestCompileErrorSurfacesThroughInterpret(t *testing.T) {
	vm := newVM()
	err := vm.Interpret(`var = 1;`)
	require.Error(t, err)
	_, isRuntime := err.(*langerr.RuntimeError)
	assert.False(t, isRuntime, "a compile error must not be reported as a runtime error")
}
