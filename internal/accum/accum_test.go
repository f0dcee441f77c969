package accum

import "testing"

func TestAccumulatorAddAndCommit(t *testing.T) {
	var a Accumulator
	a.Add(10)
	a.Add(5)
	sum, sq := a.State()
	if sum != 15 {
		t.Fatalf("sum = %v, want 15", sum)
	}
	if sq != 125 { // 100 + 25
		t.Fatalf("sumSquares = %v, want 125", sq)
	}

	gotSum, gotSq := a.Commit()
	if gotSum != 15 || gotSq != 125 {
		t.Fatalf("Commit() = (%v, %v), want (15, 125)", gotSum, gotSq)
	}
	if !a.IsZero() {
		t.Fatalf("expected accumulator to be zero after Commit")
	}
}

func TestAccumulatorIsZero(t *testing.T) {
	var a Accumulator
	if !a.IsZero() {
		t.Fatalf("new accumulator should be zero")
	}
	a.Add(0)
	if !a.IsZero() {
		t.Fatalf("adding zero should stay zero")
	}
	a.Add(1)
	if a.IsZero() {
		t.Fatalf("expected non-zero after Add(1)")
	}
}

func TestCounterAddAndCommit(t *testing.T) {
	var c Counter
	c.Add(1)
	c.Add(2.5)
	if got := c.Commit(); got != 3.5 {
		t.Fatalf("Commit() = %v, want 3.5", got)
	}
	if got := c.Commit(); got != 0 {
		t.Fatalf("second Commit() = %v, want 0", got)
	}
}
