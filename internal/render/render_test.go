package render

import "testing"

func TestAppendOverwritesLastWriteWins(t *testing.T) {
	b := New()
	b.Append(Draw{X: 1, Y: 1, Char: 'a', Color: 1})
	b.Append(Draw{X: 1, Y: 1, Char: 'b', Color: 2})

	draws := b.Draws()
	if len(draws) != 1 {
		t.Fatalf("got %d draws, want 1", len(draws))
	}
	if draws[0].Char != 'b' || draws[0].Color != 2 {
		t.Fatalf("got %+v, want last write to win", draws[0])
	}
}

func TestGetReturnsPending(t *testing.T) {
	b := New()
	if _, ok := b.Get(0, 0); ok {
		t.Fatal("expected no pending draw on empty buffer")
	}
	b.Append(Draw{X: 0, Y: 0, Char: 'x', Color: 3})
	d, ok := b.Get(0, 0)
	if !ok || d.Char != 'x' {
		t.Fatalf("Get = %+v, %v", d, ok)
	}
}

func TestExtendPreservesOrder(t *testing.T) {
	b := New()
	b.Extend([]Draw{
		{X: 0, Y: 0, Char: 'a'},
		{X: 1, Y: 0, Char: 'b'},
		{X: 2, Y: 0, Char: 'c'},
	})
	draws := b.Draws()
	if len(draws) != 3 || draws[0].Char != 'a' || draws[2].Char != 'c' {
		t.Fatalf("unexpected order: %+v", draws)
	}
}

func TestClearEmptiesBuffer(t *testing.T) {
	b := New()
	b.Append(Draw{X: 0, Y: 0, Char: 'a'})
	b.Clear()
	if b.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", b.Len())
	}
	if _, ok := b.Get(0, 0); ok {
		t.Fatal("expected no pending draw after Clear")
	}
}
