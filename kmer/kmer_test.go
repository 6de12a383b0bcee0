package kmer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildKmer(t *testing.T, shape Shape, codes []byte) Kmer {
	t.Helper()
	km := New(shape)
	for _, c := range codes {
		km.Append(c)
	}
	return km
}

func TestAppendOrdersOldestAtLowestBits(t *testing.T) {
	shape, err := NewShape(3, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	// A=0 C=1 G=2 T=3; append A, C, G.
	km := buildKmer(t, shape, []byte{0, 1, 2})
	assert.Equal(t, byte(0), km.Group(0), "group 0 (oldest, A)")
	assert.Equal(t, byte(1), km.Group(1), "group 1 (C)")
	assert.Equal(t, byte(2), km.Group(2), "group 2 (newest, G)")
	// group0=0b00, group1=0b01 @bit2, group2=0b10 @bit4 -> 0x00 | 0x04 | 0x20 = 0x24
	assert.Equal(t, uint64(0x24), km.Words[0])
}

// TestAppendBitLayoutMatchesSection3 pins a deliberate choice between two
// conflicting conventions in spec.md: §3 invariant (i) states the first
// character appended occupies the lowest bits of the word (worked through
// its own 0x24 example, also checked by TestAppendOrdersOldestAtLowestBits
// above), while §8 scenario 3 gives ACGT the packed value 0b00011011 --
// which only follows if the first character instead lands in the high
// bits. Running ACGT through Append's actual §3(i) semantics yields 0xE4,
// not 0x1B. This implementation follows §3(i), the stated invariant, over
// the single worked example that contradicts it; see DESIGN.md's Open
// Question (c).
func TestAppendBitLayoutMatchesSection3(t *testing.T) {
	shape, err := NewShape(4, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	// A=0 C=1 G=2 T=3.
	km := buildKmer(t, shape, []byte{0, 1, 2, 3})
	assert.Equal(t, uint64(0xE4), km.Words[0], "§3(i) oldest-at-low-bits layout, not §8's 0x1B")
}

func TestAppendRollingWindowDropsOldest(t *testing.T) {
	shape, err := NewShape(3, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	// Append A, C, G, T: window should end up holding C, G, T.
	km := buildKmer(t, shape, []byte{0, 1, 2, 3})
	if got := km.Group(0); got != 1 {
		t.Errorf("group 0 (oldest surviving, C) = %d, want 1", got)
	}
	if got := km.Group(1); got != 2 {
		t.Errorf("group 1 (G) = %d, want 2", got)
	}
	if got := km.Group(2); got != 3 {
		t.Errorf("group 2 (newest, T) = %d, want 3", got)
	}
}

func TestReverseByteAligned2Bit(t *testing.T) {
	shape, err := NewShape(4, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	km := buildKmer(t, shape, []byte{0, 1, 2, 3}) // A C G T, oldest->newest
	km.Reverse()
	want := []byte{3, 2, 1, 0} // T G C A
	for i, w := range want {
		if got := km.Group(i); got != w {
			t.Errorf("after reverse, group %d = %d, want %d", i, got, w)
		}
	}
}

func TestReverseComplementDNA(t *testing.T) {
	shape, err := NewShape(4, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	km := buildKmer(t, shape, []byte{0, 0, 1, 2}) // A A C G
	km.ReverseComplement()
	// complement: T T G C ; reversed: C G T T
	want := []byte{1, 2, 3, 3}
	for i, w := range want {
		if got := km.Group(i); got != w {
			t.Errorf("after reverse_complement, group %d = %d, want %d", i, got, w)
		}
	}
}

func TestReverseComplementDNA4UsesBiosimd(t *testing.T) {
	shape, err := NewShape(4, DNA4Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	// A=1 C=2 G=4 T=8 per biosimd's .bam nibble encoding; DNA4Alphabet's
	// complement table matches biosimd.ReverseComp4Inplace's revComp4Table,
	// so this exercises the biosimdCompatible fast path, not the generic loop.
	km := buildKmer(t, shape, []byte{1, 1, 2, 4}) // A A C G
	km.ReverseComplement()
	// complement: T T G C ; reversed: C G T T
	want := []byte{2, 4, 8, 8}
	for i, w := range want {
		if got := km.Group(i); got != w {
			t.Errorf("after reverse_complement, group %d = %d, want %d", i, got, w)
		}
	}
}

func TestReverseComplementCustomAlphabetSkipsBiosimd(t *testing.T) {
	// A 4-bit alphabet whose complement rule doesn't match biosimd's
	// revComp4Table must fall back to the generic per-group loop instead of
	// silently producing biosimd's .bam-specific complement.
	alphabet := NewAlphabet(4, func(c byte) byte { return 15 - c })
	if biosimdCompatible(alphabet) {
		t.Fatal("expected a non-standard 4-bit complement rule to be biosimd-incompatible")
	}
	shape, err := NewShape(2, alphabet)
	if err != nil {
		t.Fatal(err)
	}
	km := buildKmer(t, shape, []byte{1, 3})
	km.ReverseComplement()
	want := []byte{12, 14} // reverse(1,3)=(3,1), complement via 15-c = (12,14)
	for i, w := range want {
		if got := km.Group(i); got != w {
			t.Errorf("group %d = %d, want %d", i, got, w)
		}
	}
}

func TestReverseGenericOddWidth(t *testing.T) {
	// 3 bits/char has no byte-aligned fast path; exercise the generic loop.
	alphabet := NewIdentityAlphabet(3)
	shape, err := NewShape(5, alphabet)
	if err != nil {
		t.Fatal(err)
	}
	km := buildKmer(t, shape, []byte{0, 1, 2, 3, 4})
	km.Reverse()
	want := []byte{4, 3, 2, 1, 0}
	for i, w := range want {
		if got := km.Group(i); got != w {
			t.Errorf("group %d = %d, want %d", i, got, w)
		}
	}
}

func TestReverseTwiceIsIdentity(t *testing.T) {
	shape, err := NewShape(31, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	codes := make([]byte, 31)
	for i := range codes {
		codes[i] = byte(i % 4)
	}
	km := buildKmer(t, shape, codes)
	orig := km.Clone()
	km.Reverse()
	km.Reverse()
	if !Equal(km, orig) {
		t.Fatal("Reverse() applied twice did not return the original Kmer")
	}
}

func TestCompareUnsignedLexicographic(t *testing.T) {
	shape, err := NewShape(3, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	a := buildKmer(t, shape, []byte{0, 0, 1}) // ends ...C, higher group value
	b := buildKmer(t, shape, []byte{0, 0, 0}) // ends ...A
	if Compare(a, b) <= 0 {
		t.Fatalf("expected a > b, got Compare=%d", Compare(a, b))
	}
	if Compare(b, a) >= 0 {
		t.Fatalf("expected b < a, got Compare=%d", Compare(b, a))
	}
	c := buildKmer(t, shape, []byte{0, 0, 1})
	if Compare(a, c) != 0 {
		t.Fatalf("expected equal kmers to compare 0, got %d", Compare(a, c))
	}
}

func TestHashDeterministicAndSeedSensitive(t *testing.T) {
	shape, err := NewShape(21, DNA2Alphabet())
	if err != nil {
		t.Fatal(err)
	}
	codes := []byte{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0}
	km := buildKmer(t, shape, codes)
	h1 := km.Hash(12345)
	h2 := km.Hash(12345)
	if h1 != h2 {
		t.Fatal("Hash is not deterministic for the same seed")
	}
	if km.Hash(1) == km.Hash(2) {
		t.Fatal("Hash did not vary across seeds (collision improbable for this input)")
	}
}

func TestNewShapeRejectsNonPositiveK(t *testing.T) {
	if _, err := NewShape(0, DNA2Alphabet()); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestNewShapeOverflow(t *testing.T) {
	_, err := NewShape(1<<20, DNA2Alphabet())
	if err == nil {
		t.Fatal("expected OverflowError for absurdly large k")
	}
	if _, ok := err.(*OverflowError); !ok {
		t.Fatalf("expected *OverflowError, got %T", err)
	}
}
