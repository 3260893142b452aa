package saurus

import "runtime"

// gc.go implements the tri-colour incremental mark-sweep collector of
// spec.md §4.7, grounded on the reference collector's mark/collect/sweep
// trio: objects are born Black (never swept mid-mark), go Gray when
// reachable but unscanned, and White objects surviving to a sweep are
// freed. A write barrier (Thread.grayMutable) keeps mutated Local/Global
// cells from being missed between mark passes.

// gray enqueues obj if it's currently White, turning it Gray.
func (h *Heap) gray(obj gcObject) {
	if obj == nil {
		return
	}
	hdr := obj.header()
	if hdr.color != gcWhite {
		return
	}
	hdr.color = gcGray
	h.grayStack = append(h.grayStack, obj)
}

// grayValue enqueues the heap object (if any) a Value points to.
func (h *Heap) grayValue(v Value) {
	h.gray(gcObjectOf(v))
}

// mark drains the gray stack, turning every popped object Black after
// enqueuing whatever it references, per type.
func (h *Heap) mark() {
	for len(h.grayStack) > 0 {
		n := len(h.grayStack) - 1
		obj := h.grayStack[n]
		h.grayStack = h.grayStack[:n]

		switch o := obj.(type) {
		case *StringObj:
			// no references
		case *Vector:
			h.gray(o.root)
			h.gray(o.tail)
		case *VectorNode:
			for _, c := range o.children {
				h.gray(c)
			}
			for _, v := range o.data {
				h.grayValue(v)
			}
		case *Map:
			h.gray(o.root)
		case *mapLeaf:
			h.grayValue(o.key)
			h.grayValue(o.val)
		case *mapCollision:
			for _, l := range o.leaves {
				h.gray(l)
			}
		case *mapIdx:
			for _, n := range o.nodes {
				h.gray(n)
			}
		case *mapFull:
			for _, n := range o.nodes {
				if n != nil {
					h.gray(n)
				}
			}
		case *Function:
			h.gray(o.Proto)
			for _, up := range o.Upvalues {
				h.grayValue(*up)
			}
		case *Prototype:
			for _, c := range o.Constants {
				h.grayValue(c)
			}
			for _, n := range o.Nested {
				h.gray(n)
			}
		case *NativeData:
			if o.Class != nil && o.Class.Trace != nil {
				o.Class.Trace(nil, o.Data, h.grayValue)
			}
		case *Local:
			// A Local's value is grayed whatever thread owns the cell;
			// writes made after this are caught by the owner's write
			// barrier, which scanMutated drains.
			h.grayValue(o.v)
		case *Global:
			m := o.value.load()
			if m != nil {
				h.gray(m)
			}
		case *CellSeq:
			h.grayValue(o.first)
			h.grayValue(o.rest)
		case *RangeSeq:
			// scalar fields only
		case *IterSeq:
			h.gray(o.target)
		case *LazySeq:
			h.grayValue(o.f)
			h.grayValue(o.d)
		case *TreeSeq:
			for _, l := range o.links {
				h.gray(l.n)
			}
		}

		obj.header().color = gcBlack
	}
}

// collectStack grays every live value on t's value stack, its frame
// closures, and its string cache entries, mirroring collect_stack.
func (h *Heap) collectStack(t *Thread) {
	for i := 0; i < t.stackTop; i++ {
		h.grayValue(t.stack[i])
	}
	for i := 0; i < t.frameTop; i++ {
		h.gray(t.frames[i].fn)
	}
	t.strCache.each(func(s *StringObj) { h.gray(s) })
	h.grayValue(t.heap.globals)
	h.grayValue(t.heap.registry)

	h.cLambdaLock.Lock()
	for _, v := range h.cLambdas {
		h.grayValue(v)
	}
	h.cLambdaLock.Unlock()
}

// scanMutated drains every thread's write-barrier gray buffer and runs
// mark() to completion, matching scan_mutated: a mutation recorded
// between mark passes must not be lost to a stale White colouring.
func (h *Heap) scanMutated() {
	h.poolLock.Lock()
	threads := append([]*Thread(nil), h.threads...)
	h.poolLock.Unlock()

	for _, t := range threads {
		if t == nil {
			continue
		}
		for _, obj := range t.grayLocal {
			obj.header().usr &^= gcUsrGray
			h.gray(obj)
		}
		t.grayLocal = t.grayLocal[:0]
	}
	h.mark()
}

// collect walks the intrusive object list, freeing every White object
// and recolouring survivors White for the next cycle, then recomputes
// the throttle (spec.md §4.7's "overhead divisor" tunable).
func (h *Heap) collect() {
	h.listLock.Lock()
	defer h.listLock.Unlock()

	var kept gcObject
	var tail gcObject
	alive := int64(0)

	cur := h.root
	for cur != nil {
		hdr := cur.header()
		next := hdr.next
		if hdr.color == gcWhite {
			if nd, ok := cur.(*NativeData); ok && nd.Class != nil && nd.Class.GC != nil {
				nd.Class.GC(nd.Data)
			}
			h.numObjects.Add(-1)
		} else {
			hdr.color = gcWhite
			hdr.next = nil
			if kept == nil {
				kept = cur
			} else {
				tail.header().next = cur
			}
			tail = cur
			alive++
		}
		cur = next
	}
	h.root = kept

	divisor := int64(h.config.GetInt("gc.overhead_divisor"))
	overhead := alive / divisor * int64(h.numThreads())
	h.throttle.Store(alive + overhead)
}

// sweep is the stop-the-world phase: every thread must reach a safe
// (indisposable) point before the object list is walked, matching the
// reference sweep()'s wait loop on thread_count/indisposable flags.
func (h *Heap) sweep() {
	h.poolLock.Lock()
	for _, t := range h.threads {
		if t != nil {
			t.interrupt.set(interruptSyncStop)
		}
	}
	for _, t := range h.threads {
		if t == nil || t.finished.Load() {
			continue
		}
		for !t.indisposable.Load() && !t.finished.Load() {
			runtime.Gosched()
		}
	}

	for _, t := range h.threads {
		if t != nil && !t.finished.Load() {
			h.collectStack(t)
		}
	}
	h.mark()
	h.collect()

	for _, t := range h.threads {
		if t != nil {
			t.interrupt.clear(interruptSyncStop)
		}
	}
	h.poolLock.Unlock()
}

// trace is a throttle-driven collection step: if the live object count
// exceeds the throttle, it either advances the incremental mark (taking
// the gc lock opportunistically) or triggers a full sweep, matching
// gc_trace's phase dispatch. The interpreter loop does not call it;
// runLoop only polls checkInterrupts.
func (h *Heap) trace() {
	if h.numObjects.Load() <= h.throttle.Load() {
		return
	}
	if !h.gcLock.TryLock() {
		return
	}
	defer h.gcLock.Unlock()

	switch h.gcState.Load() {
	case gcPhaseMark:
		h.scanMutated()
		h.gcState.Store(gcPhaseSweep)
	case gcPhaseSweep:
		h.sweep()
		h.gcState.Store(gcPhaseMark)
	}
}

// Collect forces a full, synchronous collection regardless of the
// throttle, matching su_gc's explicit/forced entry point: the calling
// thread marks itself indisposable while it waits for the gc lock.
func (t *Thread) Collect() {
	t.threadIndisposable()
	t.heap.gcLock.Lock()
	t.heap.scanMutated()
	t.heap.sweep()
	t.heap.gcLock.Unlock()
	t.threadDisposable()
}

// checkInterrupts is polled by the interpreter loop at each
// instruction boundary to cooperate with a sweep in progress.
func (t *Thread) checkInterrupts() {
	if t.interrupt.has(interruptSyncStop) {
		t.threadIndisposable()
		for t.interrupt.has(interruptSyncStop) {
			runtime.Gosched()
		}
		t.threadDisposable()
	}
}
