package rangepart

import "testing"

func TestPartitionEvenSplit(t *testing.T) {
	rs := Partition(100, 4)
	if len(rs) != 4 {
		t.Fatalf("got %d ranges, want 4", len(rs))
	}
	want := []Range{
		{Start: 0, End: 25, Step: 25},
		{Start: 25, End: 50, Step: 25},
		{Start: 50, End: 75, Step: 25},
		{Start: 75, End: 100, Step: 25},
	}
	for i, r := range rs {
		if r.Start != want[i].Start || r.End != want[i].End {
			t.Fatalf("range %d: got %v, want %v", i, r, want[i])
		}
	}
}

func TestPartitionRemainderGoesToLastPart(t *testing.T) {
	rs := Partition(101, 4)
	sum := int64(0)
	for i, r := range rs {
		if i < len(rs)-1 && r.Len() != 25 {
			t.Fatalf("non-last part %d has length %d, want 25", i, r.Len())
		}
		sum += r.Len()
	}
	if sum != 101 {
		t.Fatalf("ranges don't cover total: sum=%d, want 101", sum)
	}
	if rs[len(rs)-1].Len() != 26 {
		t.Fatalf("last part length = %d, want 26", rs[len(rs)-1].Len())
	}
}

func TestAlignToPage(t *testing.T) {
	cases := []struct{ start, page, want int64 }{
		{0, 4096, 0},
		{1, 4096, 0},
		{4096, 4096, 4096},
		{4097, 4096, 4096},
		{8191, 4096, 4096},
	}
	for _, c := range cases {
		if got := AlignToPage(c.start, c.page); got != c.want {
			t.Errorf("AlignToPage(%d, %d) = %d, want %d", c.start, c.page, got, c.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	a := Range{Start: 0, End: 10}
	b := Range{Start: 5, End: 15}
	got := Intersect(a, b)
	if got.Start != 5 || got.End != 10 {
		t.Fatalf("got %v, want [5, 10)", got)
	}
}

func TestIntersectEmpty(t *testing.T) {
	a := Range{Start: 0, End: 10}
	b := Range{Start: 10, End: 20}
	got := Intersect(a, b)
	if !got.Empty() {
		t.Fatalf("expected empty intersection, got %v", got)
	}
}

func TestRangeValid(t *testing.T) {
	if !(Range{Start: 0, End: 10, Overlap: 0}).Valid() {
		t.Fatal("expected valid range")
	}
	if (Range{Start: 10, End: 0}).Valid() {
		t.Fatal("expected invalid range (start > end)")
	}
	if (Range{Start: 0, End: 10, Overlap: -1}).Valid() {
		t.Fatal("expected invalid range (negative overlap)")
	}
}
