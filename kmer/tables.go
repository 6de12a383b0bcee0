package kmer

// biosimdDNA4Complement mirrors biosimd's revComp4Table (the .bam seq-field
// nibble complement: A=1,C=2,G=4,T=8,N=15 with ambiguity codes filling the
// rest), which DNA4Alphabet's complement table is deliberately ordered to
// match. biosimdCompatible compares against this to decide whether
// ReverseComplement may hand a Kmer's groups to biosimd.ReverseComp4Inplace
// instead of walking them one at a time.
var biosimdDNA4Complement = [16]byte{0, 8, 4, 12, 2, 10, 6, 14, 1, 9, 5, 13, 3, 11, 7, 15}

// biosimdCompatible reports whether a's complement table is exactly the one
// biosimd.ReverseComp2Inplace/ReverseComp4Inplace hardcode for their bit
// width, so ReverseComplement can call into biosimd's seq8 routines directly
// rather than reimplementing the same complement logic locally. An Alphabet
// built with a different complement rule at the same bit width (e.g. a
// custom 4-bit ambiguity ordering) is not compatible and keeps using the
// generic per-group path.
func biosimdCompatible(a Alphabet) bool {
	switch a.BitsPerChar {
	case 2:
		for c := byte(0); c < 4; c++ {
			if a.complement[c] != 3-c { // biosimd.ReverseComp2* complements via XOR 3.
				return false
			}
		}
		return true
	case 4:
		for c := range biosimdDNA4Complement {
			if a.complement[c] != biosimdDNA4Complement[c] {
				return false
			}
		}
		return true
	}
	return false
}

// reverseGroupsInByteTable[bitsPerChar][b] holds byte b with its bit-groups
// reordered back-to-front, for the byte-aligned group widths the fast
// reverse path supports. Built once at init, the same 256-entry precomputed
// table idiom as biosimd's NibbleLookupTable/SeqASCIITable.
var reverseGroupsInByteTable = map[int][256]byte{
	2: build2BitGroupTable(),
	4: build4BitGroupTable(),
	8: build8BitGroupTable(),
}

func build2BitGroupTable() [256]byte {
	var t [256]byte
	for b := 0; b < 256; b++ {
		g0 := byte(b) & 0x3
		g1 := (byte(b) >> 2) & 0x3
		g2 := (byte(b) >> 4) & 0x3
		g3 := (byte(b) >> 6) & 0x3
		t[b] = g0<<6 | g1<<4 | g2<<2 | g3
	}
	return t
}

func build4BitGroupTable() [256]byte {
	var t [256]byte
	for b := 0; b < 256; b++ {
		lo := byte(b) & 0xf
		hi := (byte(b) >> 4) & 0xf
		t[b] = lo<<4 | hi
	}
	return t
}

func build8BitGroupTable() [256]byte {
	// A whole byte is one group: nothing to permute within it.
	var t [256]byte
	for b := 0; b < 256; b++ {
		t[b] = byte(b)
	}
	return t
}

// fastReversible reports whether bitsPerChar has a byte-aligned fast path
// (whole bytes divide evenly into groups, or groups divide evenly into
// bytes), letting Reverse operate by full-array byte reversal followed by a
// per-byte table lookup instead of a generic per-group loop.
func fastReversible(bitsPerChar int) bool {
	switch bitsPerChar {
	case 2, 4, 8:
		return true
	}
	return false
}
