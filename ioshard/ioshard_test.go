package ioshard

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
)

func writeTempFASTQ(t *testing.T, nRecords int) string {
	t.Helper()
	f, err := ioutil.TempFile("", "ioshard-*.fastq")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	for i := 0; i < nRecords; i++ {
		if _, err := f.WriteString("@read\nACGTACGTAC\n+\n!!!!!!!!!!\n"); err != nil {
			t.Fatal(err)
		}
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoaderSingleRankCoversWholeFile(t *testing.T) {
	path := writeTempFASTQ(t, 50)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	l, err := Open(context.Background(), path, FormatFASTQ, 1, 0, 2, 64)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	b1, err := l.NextL1Block(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b1.Range.Start != 0 || b1.Range.End != info.Size() {
		t.Fatalf("single rank should cover whole file, got %v (size %d)", b1.Range, info.Size())
	}

	var total int64
	for {
		b2, err := l.NextL2Block(0)
		if err != nil {
			t.Fatal(err)
		}
		if len(b2.Data) == 0 {
			break
		}
		total += int64(len(b2.Data))
	}
	if total != int64(len(b1.Data)) {
		t.Fatalf("L2 blocks covered %d bytes, want %d", total, len(b1.Data))
	}
}

func TestLoaderMultiRankPartitionsRecordAligned(t *testing.T) {
	path := writeTempFASTQ(t, 200)
	const worldSize = 4
	var loaders []*Loader
	var blocks []*L1Block
	for rank := 0; rank < worldSize; rank++ {
		l, err := Open(context.Background(), path, FormatFASTQ, worldSize, rank, 1, 4096)
		if err != nil {
			t.Fatal(err)
		}
		defer l.Close()
		b, err := l.NextL1Block(context.Background())
		if err != nil {
			t.Fatalf("rank %d: %v", rank, err)
		}
		loaders = append(loaders, l)
		blocks = append(blocks, b)
	}
	for i := 1; i < worldSize; i++ {
		if blocks[i].Range.Start != blocks[i-1].Range.End {
			t.Fatalf("rank %d starts at %d, rank %d ends at %d: seam mismatch", i, blocks[i].Range.Start, i-1, blocks[i-1].Range.End)
		}
		// Every rank boundary must land on a record start: '@'.
		if len(blocks[i].Data) > 0 && blocks[i].Data[0] != '@' {
			t.Fatalf("rank %d block does not start on a record boundary: %q", i, blocks[i].Data[:1])
		}
	}
}
