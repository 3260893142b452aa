package saurus

// gcColor is the tri-colour mark used by the incremental collector.
type gcColor uint8

const (
	gcWhite gcColor = iota
	gcGray
	gcBlack
)

// objType tags every heap-allocated object for the mark phase's type
// switch and the sweep phase's type-specific free. It is a superset of
// the value types observable from Value.Type(): vector/map internal
// nodes are heap objects too, but never appear as a standalone Value.
type objType uint8

const (
	objString objType = iota
	objVector
	objVectorNode
	objMap
	objMapLeaf
	objMapCollision
	objMapIdx
	objMapFull
	objFunction
	objPrototype
	objNativeData
	objLocal
	objGlobal
	objCellSeq
	objRangeSeq
	objIterSeq
	objLazySeq
	objTreeSeq
)

// gcUsrGray marks a mutable cell (Local/Global) as already queued in
// its thread's gray set, so a write barrier firing twice doesn't queue
// the same cell twice.
const gcUsrGray uint8 = 1 << 0

// gcHeader is embedded in every heap object. It is inserted into the
// heap's intrusive object list at birth with colour Black so a new
// allocation can never be swept mid-mark (§4.7 invariant 1).
type gcHeader struct {
	next  gcObject
	typ   objType
	color gcColor
	usr   uint8
}

func (h *gcHeader) header() *gcHeader { return h }

// gcObject is implemented by every heap-allocated type via an embedded
// gcHeader, giving the collector an intrusive singly-linked object
// list regardless of the object's concrete type.
type gcObject interface {
	header() *gcHeader
}

// insertObject links obj at the head of the heap's object list,
// tags it with its type, and colours it Black.
func (h *Heap) insertObject(obj gcObject, t objType) {
	hdr := obj.header()
	hdr.typ = t
	hdr.color = gcBlack
	hdr.usr = 0

	h.listLock.Lock()
	hdr.next = h.root
	h.root = obj
	h.numObjects.Add(1)
	h.listLock.Unlock()
}
