package conveyor

import "container/list"

// TrackedBag is what the control system remembers about a bag on the line.
type TrackedBag struct {
	Status ScannerStatusPacket
}

type trackerEntry struct {
	id  int32
	bag TrackedBag
}

// BagTracker maps bag IDs to their last known status and remembers insertion
// order, so the oldest bag (the one nearest the exit) can be found in O(1).
// Updating an existing bag keeps its position.
//
// Owned by a single Control process; not safe for concurrent use.
type BagTracker struct {
	order *list.List
	index map[int32]*list.Element
}

// NewBagTracker returns an empty tracker.
func NewBagTracker() *BagTracker {
	return &BagTracker{
		order: list.New(),
		index: make(map[int32]*list.Element),
	}
}

// Len returns the number of tracked bags.
func (t *BagTracker) Len() int {
	return t.order.Len()
}

// Insert records bag under id. It returns true if id was not tracked before.
func (t *BagTracker) Insert(id int32, bag TrackedBag) bool {
	if el, ok := t.index[id]; ok {
		el.Value.(*trackerEntry).bag = bag
		return false
	}
	t.index[id] = t.order.PushBack(&trackerEntry{id: id, bag: bag})
	return true
}

// Get returns the bag tracked under id.
func (t *BagTracker) Get(id int32) (TrackedBag, bool) {
	el, ok := t.index[id]
	if !ok {
		return TrackedBag{}, false
	}
	return el.Value.(*trackerEntry).bag, true
}

// Oldest returns the earliest-inserted bag still tracked.
// ok is false when the tracker is empty; id is meaningless in that case.
func (t *BagTracker) Oldest() (id int32, ok bool) {
	front := t.order.Front()
	if front == nil {
		return 0, false
	}
	return front.Value.(*trackerEntry).id, true
}

// Remove forgets id. It returns false if id was not tracked.
func (t *BagTracker) Remove(id int32) bool {
	el, ok := t.index[id]
	if !ok {
		return false
	}
	t.order.Remove(el)
	delete(t.index, id)
	return true
}

// PopOldest removes and returns the oldest bag.
func (t *BagTracker) PopOldest() (int32, TrackedBag, bool) {
	front := t.order.Front()
	if front == nil {
		return 0, TrackedBag{}, false
	}
	entry := front.Value.(*trackerEntry)
	t.order.Remove(front)
	delete(t.index, entry.id)
	return entry.id, entry.bag, true
}

// IDs returns the tracked IDs, oldest first.
func (t *BagTracker) IDs() []int32 {
	ids := make([]int32, 0, t.order.Len())
	for el := t.order.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value.(*trackerEntry).id)
	}
	return ids
}
