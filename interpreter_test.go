package saurus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleProto(th *Thread, numArgs int, instructions []Instruction, constants []Value) *Function {
	proto := newPrototype(th, "test")
	proto.Instructions = instructions
	proto.Constants = constants
	return newFunction(th, proto, numArgs, nil)
}

func TestInterp_Arithmetic(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},
		{Op: OpPush, A: 1},
		{Op: OpAdd},
		{Op: OpReturn},
	}, []Value{Number(3), Number(4)})

	result := th.Call(FunctionValue(fn), nil)
	assert.Equal(t, float64(7), result.AsNumber())
}

func TestInterp_DivisionByZero(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},
		{Op: OpPush, A: 1},
		{Op: OpDiv},
		{Op: OpReturn},
	}, []Value{Number(1), Number(0)})

	_, err := th.TryCall(FunctionValue(fn), nil)
	require.Error(t, err)
	var divErr DivisionByZeroError
	assert.ErrorAs(t, err, &divErr)
}

func TestInterp_Comparison(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},
		{Op: OpPush, A: 1},
		{Op: OpLess},
		{Op: OpReturn},
	}, []Value{Number(1), Number(2)})

	result := th.Call(FunctionValue(fn), nil)
	assert.True(t, result.AsBool())
}

func TestInterp_NotAndTruthiness(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},
		{Op: OpNot},
		{Op: OpReturn},
	}, []Value{Bool(false)})

	result := th.Call(FunctionValue(fn), nil)
	assert.True(t, result.AsBool())
}

func TestInterp_PopDiscardsOperandCount(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},
		{Op: OpPush, A: 1},
		{Op: OpPush, A: 2},
		{Op: OpPop, A: 2}, // discard the top two, leaving the first push
		{Op: OpReturn},
	}, []Value{Number(11), Number(22), Number(33)})

	result := th.Call(FunctionValue(fn), nil)
	assert.Equal(t, float64(11), result.AsNumber())
}

func TestInterp_TestJumpsOnlyWhenTruthy(t *testing.T) {
	th := NewState(NewConfig())
	// Test pops the condition and jumps to the absolute target only
	// when it's truthy; the false path falls through sequentially.
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},    // 0: push false
		{Op: OpTest, B: 4},    // 1: falsy -> fall through
		{Op: OpPush, A: 1},    // 2: push "fell-through"
		{Op: OpReturn},        // 3
		{Op: OpPush, A: 2},    // 4: push "jumped" (unreachable here)
		{Op: OpReturn},        // 5
	}, []Value{Bool(false), th.StringValue("fell-through"), th.StringValue("jumped")})

	result := th.Call(FunctionValue(fn), nil)
	assert.Equal(t, "fell-through", result.String())
}

func TestInterp_UndefinedGlobalFails(t *testing.T) {
	th := NewState(NewConfig())
	fn := simpleProto(th, 0, []Instruction{
		{Op: OpGetGlobal, A: 0},
		{Op: OpReturn},
	}, []Value{th.StringValue("nope")})

	_, err := th.TryCall(FunctionValue(fn), nil)
	require.Error(t, err)
	var undef UndefinedGlobalError
	assert.ErrorAs(t, err, &undef)
}

func TestInterp_SetAndGetGlobal(t *testing.T) {
	th := NewState(NewConfig())
	setFn := simpleProto(th, 0, []Instruction{
		{Op: OpPush, A: 0},       // value
		{Op: OpSetGlobal, A: 1},
		{Op: OpPop, A: 1},
		{Op: OpPush, A: 1},
		{Op: OpGetGlobal, A: 1},
		{Op: OpReturn},
	}, []Value{Number(55), th.StringValue("x")})

	result := th.Call(FunctionValue(setFn), nil)
	assert.Equal(t, float64(55), result.AsNumber())
}

// TestInterp_DeepTailCallDoesNotGrowGoStack runs a tail-recursive
// countdown for enough iterations that a non-tail-call-optimised
// interpreter would overflow Go's goroutine stack; OP_TCALL falling
// through to OP_CALL while reusing the current frame slot keeps this
// flat (spec.md §9's TailCall design decision). The function recurses
// by looking itself up as a global, since that's how source-level
// recursion resolves a self-reference (OP_LCL is reserved for the
// process-wide native-function table, not "push the current closure").
func TestInterp_DeepTailCallDoesNotGrowGoStack(t *testing.T) {
	th := NewState(NewConfig())
	proto := newPrototype(th, "countdown")
	proto.Constants = []Value{Number(0), Number(1), th.StringValue("countdown")}
	proto.Instructions = []Instruction{
		{Op: OpLoad, A: 0},     // 0: push n
		{Op: OpPush, A: 0},     // 1: push 0
		{Op: OpEq},             // 2: push n == 0
		{Op: OpTest, B: 9},     // 3: if truthy, jump to base case at 9
		{Op: OpGetGlobal, A: 2}, // 4: push countdown
		{Op: OpLoad, A: 0},     // 5: push n
		{Op: OpPush, A: 1},     // 6: push 1
		{Op: OpSub},            // 7: push n - 1
		{Op: OpTCall, A: 1},    // 8: tail call countdown(n-1)
		{Op: OpPush, A: 0},     // 9: base case: push 0
		{Op: OpReturn},         // 10: return 0
	}
	fn := newFunction(th, proto, 1, nil)
	th.SetGlobal("countdown", FunctionValue(fn))

	result := th.Call(FunctionValue(fn), []Value{Number(200000)})
	assert.Equal(t, float64(0), result.AsNumber())
}

func TestInterp_LambdaUsesDeclaredArityOperand(t *testing.T) {
	th := NewState(NewConfig())
	nested := newPrototype(th, "square")
	nested.Instructions = []Instruction{
		{Op: OpLoad, A: 0},
		{Op: OpLoad, A: 0},
		{Op: OpMul},
		{Op: OpReturn},
	}

	outer := newPrototype(th, "outer")
	outer.Nested = []*Prototype{nested}
	outer.Instructions = []Instruction{
		{Op: OpLambda, A: 0, B: 1}, // prototype 0, declared arity 1
		{Op: OpReturn},
	}
	outerFn := newFunction(th, outer, 0, nil)

	closure := th.Call(FunctionValue(outerFn), nil)
	require.Equal(t, TFunction, closure.Type())
	assert.Equal(t, 1, closure.obj.(*Function).NumArgs)

	result := th.Call(closure, []Value{Number(6)})
	assert.Equal(t, float64(36), result.AsNumber())
}

func TestInterp_VariadicClosurePacksArgsIntoVector(t *testing.T) {
	th := NewState(NewConfig())
	proto := newPrototype(th, "variadic")
	proto.Instructions = []Instruction{
		{Op: OpLoad, A: 0}, // the packed args vector
		{Op: OpReturn},
	}
	fn := newFunction(th, proto, -1, nil)

	result := th.Call(FunctionValue(fn), []Value{Number(1), Number(2), Number(3)})
	require.Equal(t, TVector, result.Type())
	assert.Equal(t, 3, result.obj.(*Vector).Len())
}

func TestInterp_LcLReadsProcessWideNativeTable(t *testing.T) {
	th := NewState(NewConfig())
	id := th.RegisterNativeCLambda(func(s *Thread, narg int) int {
		s.PushNumber(99)
		return 1
	})
	require.Equal(t, 0, id)

	proto := newPrototype(th, "uselcl")
	proto.Instructions = []Instruction{
		{Op: OpLcl, B: 0},
		{Op: OpReturn},
	}
	fn := newFunction(th, proto, 0, nil)

	result := th.Call(FunctionValue(fn), nil)
	assert.Equal(t, TNativeFunc, result.Type())
}

func TestInterp_ApplyVectorAsCallable(t *testing.T) {
	th := NewState(NewConfig())
	v := VectorFromSlice(th, []Value{Number(10), Number(20), Number(30)})
	result := th.Call(valueOf(TVector, v), []Value{Number(1)})
	assert.Equal(t, float64(20), result.AsNumber())
}

func TestInterp_ApplyMapAsCallable(t *testing.T) {
	th := NewState(NewConfig())
	m := MapEmpty(th)
	m = MapInsert(th, m, th.StringValue("k"), Number(9))
	result := th.Call(valueOf(TMap, m), []Value{th.StringValue("k")})
	assert.Equal(t, float64(9), result.AsNumber())
}

func TestInterp_ApplyMissingMapKeyFails(t *testing.T) {
	th := NewState(NewConfig())
	m := MapEmpty(th)
	_, err := th.TryCall(valueOf(TMap, m), []Value{th.StringValue("missing")})
	require.Error(t, err)
	var missing MissingKeyError
	assert.ErrorAs(t, err, &missing)
}

func TestInterp_ApplyUnapplicableFails(t *testing.T) {
	th := NewState(NewConfig())
	_, err := th.TryCall(Number(5), []Value{Number(1)})
	require.Error(t, err)
	var applyErr ApplyError
	assert.ErrorAs(t, err, &applyErr)
}
