package saurus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_PushAndReadTypedValues(t *testing.T) {
	th := NewState(NewConfig())
	th.PushNumber(1)
	th.PushBool(true)
	th.PushString("hi")

	assert.Equal(t, "hi", th.ToStringValue(1))
	assert.True(t, th.ToBool(2))
	assert.Equal(t, float64(1), th.ToNumber(3))
}

func TestAPI_ToNumberFailsOnTypeMismatch(t *testing.T) {
	th := NewState(NewConfig())
	th.PushBool(true)
	_, err := th.TryCall(NativeFunction(func(s *Thread, narg int) int {
		s.ToNumber(1)
		return 0
	}), []Value{th.Pop()})
	require.Error(t, err)
	var typeErr TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestAPI_CheckArity(t *testing.T) {
	th := NewState(NewConfig())
	fn := NativeFunction(func(s *Thread, narg int) int {
		s.CheckArity(narg, 2)
		return 0
	})
	_, err := th.TryCall(fn, []Value{Number(1)})
	require.Error(t, err)
	var arityErr ArityError
	assert.ErrorAs(t, err, &arityErr)

	_, err = th.TryCall(fn, []Value{Number(1), Number(2)})
	assert.NoError(t, err)
}

func TestAPI_BuildVectorMapList(t *testing.T) {
	th := NewState(NewConfig())

	th.PushNumber(1)
	th.PushNumber(2)
	th.PushNumber(3)
	th.BuildVector(3)
	v := th.Pop()
	require.Equal(t, TVector, v.Type())
	assert.Equal(t, 3, v.obj.(*Vector).Len())

	th.PushString("k")
	th.PushNumber(42)
	th.BuildMap(1)
	m := th.Pop()
	require.Equal(t, TMap, m.Type())
	val, ok := MapGet(m.obj.(*Map), th.StringValue("k"))
	require.True(t, ok)
	assert.Equal(t, float64(42), val.AsNumber())

	th.PushNumber(1)
	th.PushNumber(2)
	th.BuildList(2)
	list := th.Pop()
	require.Equal(t, TSeq, list.Type())
	assert.Equal(t, float64(1), seqFirst(th, list).AsNumber())
}

func TestAPI_RegistrySetGetRemove(t *testing.T) {
	th := NewState(NewConfig())
	handle := th.RegistrySet(Number(7))

	val, ok := th.RegistryGet(handle)
	require.True(t, ok)
	assert.Equal(t, float64(7), val.AsNumber())

	other := th.RegistrySet(Number(9))
	_, ok = th.RegistryGet(other)
	require.True(t, ok)

	th.RegistryRemove(handle)
	_, ok = th.RegistryGet(handle)
	assert.False(t, ok)
}

func TestAPI_SetAndGetGlobal(t *testing.T) {
	th := NewState(NewConfig())
	th.SetGlobal("pi", Number(3))
	val, err := th.GetGlobal("pi")
	require.NoError(t, err)
	assert.Equal(t, float64(3), val.AsNumber())

	_, err = th.GetGlobal("missing")
	require.Error(t, err)
	var undef UndefinedGlobalError
	assert.ErrorAs(t, err, &undef)
}

func TestAPI_CloseWaitsForThreadsAndCollects(t *testing.T) {
	th := NewState(NewConfig())
	th.Close()
	assert.LessOrEqual(t, th.heap.numObjects.Load(), int64(1))
}
