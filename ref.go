package saurus

// Local is a single-slot reference owned by the thread that created
// it (spec.md §4.6). Any access from a different thread is a fatal
// error, enforced by the tid check on every read/write.
type Local struct {
	gcHeader
	tid int
	v   Value
}

// RefLocal allocates a new Local cell on the calling thread, wrapping
// val.
func (t *Thread) RefLocal(val Value) Value {
	loc := &Local{tid: t.tid, v: val}
	t.heap.insertObject(loc, objLocal)
	return valueOf(TLocal, loc)
}

// UnrefLocal reads a Local cell's current value. Panics with
// CrossThreadAccessError (caught at the nearest Call boundary) if the
// calling thread didn't create it.
func (t *Thread) UnrefLocal(loc *Local) Value {
	if t.tid != loc.tid {
		t.fail(CrossThreadAccessError{})
	}
	return loc.v
}

// SetLocal writes val into loc and fires its write barrier: the cell
// is pushed onto the mutating thread's local gray set so a mark phase
// in progress will see the new value (spec.md §4.6/§4.7).
func (t *Thread) SetLocal(loc *Local, val Value) {
	if t.tid != loc.tid {
		t.fail(CrossThreadAccessError{})
	}
	loc.v = val
	t.grayMutable(loc)
}

// Global holds an atomic pointer to a map root (nil meaning the
// language's `nil`), mutated only through CAS (spec.md §4.6).
type Global struct {
	gcHeader
	value atomicMapPtr
}

// RefGlobal allocates a new Global cell wrapping val, which must be a
// map or nil.
func (t *Thread) RefGlobal(val Value) Value {
	g := &Global{}
	if val.typ == TMap {
		g.value.store(val.obj.(*Map))
	}
	t.heap.insertObject(g, objGlobal)
	return valueOf(TGlobal, g)
}

// UnrefGlobal is a lock-free load of a Global cell's current value.
func UnrefGlobal(g *Global) Value {
	m := g.value.load()
	if m == nil {
		return Nil()
	}
	return valueOf(TMap, m)
}

// Transaction implements the CAS retry loop of spec.md §4.6/§4.8: load
// the current value, call fn(current, extra...), expect a map-or-nil
// result, and CAS-swap, retrying on failure. On a successful swap the
// cell is pushed into the calling thread's gray set.
func (t *Thread) Transaction(g *Global, extra []Value, fn func(current Value, extra []Value) Value) Value {
	for {
		old := g.value.load()
		current := Nil()
		if old != nil {
			current = valueOf(TMap, old)
		}

		result := fn(current, extra)
		if result.typ != TNil && result.typ != TMap {
			t.fail(TypeError{Expected: "hashmap or nil", Got: result.typ.String()})
		}

		var next *Map
		if result.typ == TMap {
			next = result.obj.(*Map)
		}
		if g.value.cas(old, next) {
			t.grayMutable(g)
			return result
		}
	}
}
