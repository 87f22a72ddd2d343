package ledger

// ActiveIndex is the compact set of active listing ids. Removal swaps the
// target with the last element and pops, keeping the position map consistent
// without shifting the tail.
type ActiveIndex struct {
	ids      []uint64
	position map[uint64]int
}

func NewActiveIndex() *ActiveIndex {
	return &ActiveIndex{
		ids:      make([]uint64, 0),
		position: make(map[uint64]int),
	}
}

func (a *ActiveIndex) Append(id uint64) {
	if _, exists := a.position[id]; exists {
		return
	}
	a.position[id] = len(a.ids)
	a.ids = append(a.ids, id)
}

func (a *ActiveIndex) Remove(id uint64) bool {
	pos, exists := a.position[id]
	if !exists {
		return false
	}

	last := len(a.ids) - 1
	moved := a.ids[last]
	a.ids[pos] = moved
	a.position[moved] = pos

	a.ids = a.ids[:last]
	delete(a.position, id)

	return true
}

func (a *ActiveIndex) Contains(id uint64) bool {
	_, exists := a.position[id]
	return exists
}

func (a *ActiveIndex) Size() int {
	return len(a.ids)
}

// Ids returns a copy of the index in its current order.
func (a *ActiveIndex) Ids() []uint64 {
	ids := make([]uint64, len(a.ids))
	copy(ids, a.ids)
	return ids
}
