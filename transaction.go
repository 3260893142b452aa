package saurus

// GlobalTransaction is the Value-level front door to (*Thread).Transaction:
// it unwraps a TGlobal Value, runs the CAS retry loop, and rewraps the
// result, matching the su_transaction host call that drives a Global
// cell's read-modify-write cycle (spec.md §4.6/§4.8).
func (t *Thread) GlobalTransaction(global Value, extra []Value, fn func(current Value, extra []Value) Value) Value {
	if global.typ != TGlobal {
		t.fail(TypeError{Expected: "global-reference", Got: global.typ.String()})
	}
	return t.Transaction(global.obj.(*Global), extra, fn)
}

// Swap is the common single-function transaction shape: replace the
// global's current value with fn(current), ignoring extra arguments.
func (t *Thread) Swap(global Value, fn func(current Value) Value) Value {
	return t.GlobalTransaction(global, nil, func(current Value, _ []Value) Value {
		return fn(current)
	})
}
