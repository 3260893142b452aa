package saurus

import (
	"sync/atomic"
)

// Frame is one activation record on a thread's call stack: the
// closure being run, the program counter to resume the caller at, and
// the value-stack index the frame's locals start from (spec.md §4.2).
type Frame struct {
	fn       *Function
	retPC    int
	stackTop int
	tailCall bool
}

// Heap is the state every Thread in a State shares: the intrusive
// object list, the collector's bookkeeping, the thread pool, and the
// configuration that sizes all of the above. It corresponds to the
// reference implementation's main_state_internal_t.
type Heap struct {
	config *Config

	listLock   spinLock
	root       gcObject
	numObjects atomic.Int64
	throttle   atomic.Int64

	gcLock    spinLock
	gcState   atomic.Uint32 // gcPhaseMark or gcPhaseSweep
	grayStack []gcObject

	poolLock    spinLock
	threads     []*Thread
	threadCount atomic.Int32
	tidCounter  atomic.Int32

	globals  Value // TLocal wrapping the globals *Map
	registry Value // TMap, host-owned values keyed by *RegistryHandle

	cLambdaLock spinLock
	cLambdas    []Value // process-wide natively-registered functions, indexed by OP_LCL's b

	registryLock spinLock
	regCounter   uint64 // next opaque registry handle to mint
}

const (
	gcPhaseSweep uint32 = iota
	gcPhaseMark
)

// NewHeap allocates a Heap sized from cfg and preinitialised with an
// empty globals map (in a Local owned by tid 0) and an empty registry,
// both held in Heap fields rather than in value-stack slots.
func NewHeap(cfg *Config) *Heap {
	if cfg == nil {
		cfg = NewConfig()
	}
	h := &Heap{config: cfg}
	h.threads = make([]*Thread, cfg.GetInt("runtime.max_threads"))
	h.gcState.Store(gcPhaseSweep)

	boot := &Thread{tid: 0, heap: h}
	h.threads[0] = boot
	h.threadCount.Store(1)
	h.tidCounter.Store(1)

	h.globals = boot.RefLocal(valueOf(TMap, MapEmpty(boot)))
	h.registry = valueOf(TMap, MapEmpty(boot))
	h.regCounter = 1
	return h
}

// Thread is one lightweight fiber: its own value stack, frame stack,
// and string cache, all pointing into a heap shared with every other
// thread of the same State (spec.md §4.8).
type Thread struct {
	tid  int
	heap *Heap

	stack    []Value
	stackTop int

	frames   []Frame
	frameTop int
	narg     int

	strCache stringCache

	grayLocal []gcObject
	interrupt interruptMask

	finished     atomic.Bool
	indisposable atomic.Bool
}

// NewThread creates the root fiber of a fresh heap. Its value stack
// starts empty: no slots are reserved for nil, the globals or the
// registry, which the Heap holds instead.
func NewThread(cfg *Config) *Thread {
	h := NewHeap(cfg)
	t := h.threads[0]
	t.stack = make([]Value, h.config.GetInt("runtime.stack_size"))
	t.frames = make([]Frame, h.config.GetInt("runtime.frame_stack_size"))
	return t
}

func (t *Thread) push(v Value) {
	if t.stackTop >= len(t.stack) {
		t.fail(StackOverflowError{What: "value stack"})
	}
	t.stack[t.stackTop] = v
	t.stackTop++
}

func (t *Thread) pop() Value {
	t.stackTop--
	return t.stack[t.stackTop]
}

func (t *Thread) top() Value {
	return t.stack[t.stackTop-1]
}

// fail raises err as the internal control-flow panic every VM
// operation uses in place of a C setjmp/longjmp pair. It is recovered
// by TryCall, GetGlobal, or a forked thread's top-level body; Call
// restores the stack and re-raises it.
func (t *Thread) fail(err error) {
	panic(vmPanic{err: err})
}

// grayMutable is the write barrier fired by SetLocal and Transaction:
// if obj isn't already queued, flag it and push it onto this thread's
// local gray buffer so an in-progress mark phase revisits it (spec.md
// §4.7's "dirty the write barrier" rule).
func (t *Thread) grayMutable(obj gcObject) {
	h := obj.header()
	if h.usr&gcUsrGray != 0 {
		return
	}
	h.usr |= gcUsrGray
	t.grayLocal = append(t.grayLocal, obj)
}

// numThreads reports the live thread count, mirroring su_num_threads.
func (h *Heap) numThreads() int {
	return int(h.threadCount.Load())
}

// RegisterCLambda appends v to the shared, process-wide C-lambda
// table and returns its slot, the id OP_LCL's b operand later indexes
// (matching su_clambda). The table outlives any single thread and is
// a GC root (spec.md's Lifecycle paragraph), scanned by collectStack.
func (t *Thread) RegisterCLambda(v Value) int {
	t.heap.cLambdaLock.Lock()
	defer t.heap.cLambdaLock.Unlock()
	id := len(t.heap.cLambdas)
	t.heap.cLambdas = append(t.heap.cLambdas, v)
	return id
}

// RegisterNativeCLambda is RegisterCLambda for the common case of
// registering a bare native function.
func (t *Thread) RegisterNativeCLambda(f NativeFunc) int {
	return t.RegisterCLambda(NativeFunction(f))
}

// cLambda reads the id'th process-wide slot (OP_LCL); an out-of-range
// id is a fatal error, matching the reference interpreter's assert.
func (t *Thread) cLambda(id int) Value {
	t.heap.cLambdaLock.Lock()
	defer t.heap.cLambdaLock.Unlock()
	if id < 0 || id >= len(t.heap.cLambdas) {
		t.fail(BoundsError{Index: id, Length: len(t.heap.cLambdas)})
	}
	return t.heap.cLambdas[id]
}

// threadDisposable/threadIndisposable toggle the cooperation flag a
// stop-the-world sweep waits on before proceeding.
func (t *Thread) threadDisposable()   { t.indisposable.Store(false) }
func (t *Thread) threadIndisposable() { t.indisposable.Store(true) }

// Fork starts callee(args...) on a brand new thread sharing this
// thread's heap, returning true if a free thread slot was available
// (spec.md §4.8). The new thread's body runs to completion on its own
// goroutine and then frees its slot.
func (t *Thread) Fork(callee Value, args []Value) bool {
	t.threadIndisposable()
	t.heap.poolLock.Lock()

	slot := -1
	for i, th := range t.heap.threads {
		if th == nil || th.finished.Load() {
			slot = i
			break
		}
	}
	if slot == -1 {
		t.heap.poolLock.Unlock()
		t.threadDisposable()
		return false
	}

	tid := int(t.heap.tidCounter.Add(1))
	child := &Thread{
		tid:    tid,
		heap:   t.heap,
		stack:  make([]Value, len(t.stack)),
		frames: make([]Frame, len(t.frames)),
	}
	t.heap.threads[slot] = child
	t.heap.threadCount.Add(1)
	t.heap.poolLock.Unlock()

	go func() {
		defer func() {
			recover()
			child.finished.Store(true)
			t.heap.threadCount.Add(-1)
		}()
		child.threadIndisposable()
		child.Call(callee, args)
	}()

	t.threadDisposable()
	return true
}
