package canon

import "testing"

func TestSHA256Deterministic(t *testing.T) {
	a := SHA256([]byte("hello"))
	b := SHA256([]byte("hello"))
	if a != b {
		t.Errorf("SHA256 not deterministic: %s != %s", a, b)
	}
	c := SHA256([]byte("hellp"))
	if a == c {
		t.Errorf("SHA256 collision on distinct input")
	}
}

func TestBuilderOrderIndependenceIsCallerResponsibility(t *testing.T) {
	// Two builders encoding the same sorted sequence produce the same hash.
	items := []int{1, 2, 3}
	h1 := hashInts(items)
	h2 := hashInts(items)
	if h1 != h2 {
		t.Errorf("expected equal hashes for equal input, got %s vs %s", h1, h2)
	}

	// A different order (which the caller should never produce from a sort,
	// but which the Builder can't detect) yields a different hash -- this
	// is exactly why callers must sort before calling Ordered.
	h3 := hashInts([]int{3, 2, 1})
	if h1 == h3 {
		t.Errorf("expected order to affect the digest")
	}
}

func hashInts(items []int) Hash {
	b := NewBuilder()
	b.BeginStruct(1)
	Ordered(b, items, func(b *Builder, v int) {
		b.U64(uint64(v))
	})
	b.EndStruct()
	return b.Sum()
}

func TestBuilderStructTagDistinguishesPayloads(t *testing.T) {
	b1 := NewBuilder()
	b1.BeginStruct(1).U64(42).EndStruct()
	h1 := b1.Sum()

	b2 := NewBuilder()
	b2.BeginStruct(2).U64(42).EndStruct()
	h2 := b2.Sum()

	if h1 == h2 {
		t.Errorf("expected distinct tags to produce distinct hashes")
	}
}

func TestSumPanicsOnUnbalancedStruct(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on unbalanced BeginStruct/EndStruct")
		}
	}()
	b := NewBuilder()
	b.BeginStruct(1)
	b.Sum()
}

func TestBuilderPanicsAfterSum(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic when reusing a sealed Builder")
		}
	}()
	b := NewBuilder()
	b.BeginStruct(1).EndStruct()
	b.Sum()
	b.U8(1)
}

func TestOrderedCheckedPanicsOnUnsortedInput(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on out-of-order input")
		}
	}()
	b := NewBuilder()
	b.BeginStruct(1)
	OrderedChecked(b, []int{3, 1, 2}, func(a, c int) bool { return a < c }, func(b *Builder, v int) {
		b.U64(uint64(v))
	})
}

func TestOrderedCheckedAcceptsSortedInput(t *testing.T) {
	b := NewBuilder()
	b.BeginStruct(1)
	OrderedChecked(b, []int{1, 2, 3}, func(a, c int) bool { return a < c }, func(b *Builder, v int) {
		b.U64(uint64(v))
	})
	b.EndStruct()
	b.Sum()
}

func TestLengthPrefixPreventsAmbiguity(t *testing.T) {
	// Without a length prefix, Bytes("ab")+Bytes("c") would collide with
	// Bytes("a")+Bytes("bc"). The prefix must disambiguate them.
	b1 := NewBuilder()
	b1.Bytes([]byte("ab")).Bytes([]byte("c"))
	h1 := b1.Sum()

	b2 := NewBuilder()
	b2.Bytes([]byte("a")).Bytes([]byte("bc"))
	h2 := b2.Sum()

	if h1 == h2 {
		t.Errorf("expected length-prefixed encoding to disambiguate split points")
	}
}
