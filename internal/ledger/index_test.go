package ledger

import "testing"

func TestActiveIndexSwapPop(t *testing.T) {
	index := NewActiveIndex()
	index.Append(1)
	index.Append(2)
	index.Append(3)

	if !index.Remove(1) {
		t.Fatalf("expected removal of 1")
	}

	// 3 was swapped into position 0; the position map must follow it.
	ids := index.Ids()
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 2 {
		t.Fatalf("unexpected order after swap-pop: %v", ids)
	}
	if index.Contains(1) {
		t.Fatalf("removed id still present")
	}

	if !index.Remove(3) {
		t.Fatalf("expected removal of moved id")
	}
	if ids := index.Ids(); len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestActiveIndexRemoveLast(t *testing.T) {
	index := NewActiveIndex()
	index.Append(7)

	if !index.Remove(7) {
		t.Fatalf("expected removal")
	}
	if index.Size() != 0 || index.Contains(7) {
		t.Fatalf("index not empty after removing last element")
	}
	if index.Remove(7) {
		t.Fatalf("double remove must report false")
	}
}

func TestActiveIndexAppendIsIdempotent(t *testing.T) {
	index := NewActiveIndex()
	index.Append(5)
	index.Append(5)

	if index.Size() != 1 {
		t.Fatalf("duplicate append grew the index: %d", index.Size())
	}
}
