package saurus

import (
	"fmt"
	"strconv"
)

// ValueType is the tag of a Value, the sum type every stack slot,
// constant, and upvalue in the interpreter holds.
type ValueType uint8

const (
	TNil ValueType = iota
	// TInvalid is never user-observable. It signals "absent" from a
	// map lookup (the HAMT's find returning "no such leaf").
	TInvalid
	TBoolean
	TNumber
	TString
	TVector
	TMap
	TFunction
	TNativeFunc
	TNativePtr
	TNativeData
	TLocal
	TGlobal
	TSeq
)

func (t ValueType) String() string {
	switch t {
	case TNil:
		return "nil"
	case TInvalid:
		return "invalid"
	case TBoolean:
		return "boolean"
	case TNumber:
		return "number"
	case TString:
		return "string"
	case TVector:
		return "vector"
	case TMap:
		return "map"
	case TFunction:
		return "function"
	case TNativeFunc:
		return "native-function"
	case TNativePtr:
		return "native-pointer"
	case TNativeData:
		return "native-data"
	case TLocal:
		return "local-reference"
	case TGlobal:
		return "global-reference"
	case TSeq:
		return "sequence"
	default:
		return "?"
	}
}

// NativeFunc is a host-implemented callable. It returns the number of
// results it left on top of the stack (0 or 1), matching the "int
// return, 0 means discard" convention of §4.2's Callable dispatch.
type NativeFunc func(s *Thread, narg int) int

// Value is the VM's tagged union: a type tag plus either a by-value
// scalar (Boolean/Number) or a pointer to a heap object, exactly as
// described in spec.md §3. Go doesn't offer C's raw union, so the
// scalar and the object pointer live in separate fields; only one is
// ever meaningful for a given Type.
type Value struct {
	typ ValueType
	b   bool
	num float64
	nf  NativeFunc
	obj any
}

func (v Value) Type() ValueType { return v.typ }

func Nil() Value { return Value{typ: TNil} }

func invalid() Value { return Value{typ: TInvalid} }

func Bool(b bool) Value { return Value{typ: TBoolean, b: b} }

func Number(n float64) Value { return Value{typ: TNumber, num: n} }

func NativePtr(ptr any) Value { return Value{typ: TNativePtr, obj: ptr} }

func NativeFunction(f NativeFunc) Value { return Value{typ: TNativeFunc, nf: f} }

func (v Value) AsBool() bool { return v.b }

func (v Value) AsNumber() float64 { return v.num }

func (v Value) AsNativeFunc() NativeFunc { return v.nf }

func (v Value) AsNativePtr() any { return v.obj }

// IsNil reports whether v is the Nil sentinel.
func (v Value) IsNil() bool { return v.typ == TNil }

// Truthy implements the language's "not Nil and not Boolean-false"
// truthiness rule used by And/Or/Test/Not.
func (v Value) Truthy() bool {
	if v.typ == TNil {
		return false
	}
	if v.typ == TBoolean {
		return v.b
	}
	return true
}

func valueOf(t ValueType, obj any) Value {
	return Value{typ: t, obj: obj}
}

// gcObjectOf returns the underlying gcObject for values that carry one,
// or nil for scalars/NativeFunc/NativePtr (mirroring get_gc_object in
// the reference collector, which returns NULL for the same set).
func gcObjectOf(v Value) gcObject {
	switch v.typ {
	case TNil, TInvalid, TBoolean, TNumber, TNativeFunc, TNativePtr:
		return nil
	}
	obj, _ := v.obj.(gcObject)
	return obj
}

// Eq implements value-equality: numbers bit-equal (here, float-equal),
// strings by content/hash, everything else by pointer identity.
func Eq(a, b Value) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TNil, TInvalid:
		return true
	case TBoolean:
		return a.b == b.b
	case TNumber:
		return a.num == b.num
	case TString:
		as, bs := a.obj.(*StringObj), b.obj.(*StringObj)
		return as.hash == bs.hash && as.s == bs.s
	case TNativeFunc:
		return fmt.Sprintf("%p", a.nf) == fmt.Sprintf("%p", b.nf)
	default:
		return a.obj == b.obj
	}
}

// String renders the canonical debug text for a value, grounded on
// the reference implementation's stringify(): one line per type, with
// opaque handles tagged by their Go pointer address (%p).
func (v Value) String() string {
	switch v.typ {
	case TNil:
		return "nil"
	case TInvalid:
		return "<invalid>"
	case TBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case TNumber:
		if i := int64(v.num); float64(i) == v.num {
			return strconv.FormatInt(i, 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case TString:
		return v.obj.(*StringObj).s
	case TFunction:
		return fmt.Sprintf("<function %p>", v.obj)
	case TNativeFunc:
		return fmt.Sprintf("<native-function %p>", v.nf)
	case TNativePtr:
		return fmt.Sprintf("<native-pointer %p>", v.obj)
	case TNativeData:
		nd := v.obj.(*NativeData)
		if nd.Class != nil && nd.Class.Name != "" {
			return fmt.Sprintf("<%s>", nd.Class.Name)
		}
		return fmt.Sprintf("<native-data %p>", v.obj)
	case TVector:
		return fmt.Sprintf("<vector %p>", v.obj)
	case TMap:
		return fmt.Sprintf("<hashmap %p>", v.obj)
	case TLocal:
		return fmt.Sprintf("<local-reference %p>", v.obj)
	case TGlobal:
		return fmt.Sprintf("<global-reference %p>", v.obj)
	case TSeq:
		return fmt.Sprintf("<sequence %p>", v.obj)
	default:
		return "?"
	}
}

// StringObj is the heap representation of a string value. Strings are
// content+hash compared, not pointer compared, hence the split between
// Value (which just carries a *StringObj) and Eq's special case.
type StringObj struct {
	gcHeader
	s    string
	hash uint32
}

// NativeData wraps host-owned data with an optional vtable of
// callbacks (trace, gc, call), mirroring su_data_class_t.
type NativeDataClass struct {
	Name string
	// Trace is invoked during the mark phase so embedder data can
	// report Values it keeps alive.
	Trace func(s *Thread, data any, mark func(Value))
	// GC is invoked when the object is swept.
	GC func(data any)
	// Call lets NativeData be invoked like a function from Call
	// dispatch, iff non-nil.
	Call func(s *Thread, data any, narg int) int
}

type NativeData struct {
	gcHeader
	Class *NativeDataClass
	Data  any
}
