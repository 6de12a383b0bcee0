package fastq

import "bytes"

// Scanner yields successive Records from a byte slice that is already
// positioned at a record boundary (typically the output of Resync). It is
// the byte-slice analogue of the teacher's bufio.Scanner-based
// encoding/fastq.Scanner: same four-line read-ahead and validation, but
// operating on an in-memory window (an ioshard.L2Block's Data) instead of an
// io.Reader, and borrowing Seq/Qual rather than allocating new strings.
//
// A Scanner stops yielding records once the next record would start at or
// past End, even if more bytes remain in Data — End is normally the
// resynchronized boundary of the next L2Block, so that block seams are never
// double-counted. Scanners are not thread-safe.
type Scanner struct {
	data   []byte
	pos    int64
	end    int64
	fileID uint32
	nextOrd uint64
	err    error
}

// NewScanner returns a Scanner over data, yielding records whose header
// starts in [start, end). start must already be a resynchronized record
// boundary; data may extend past end to allow parsing the last in-range
// record's trailing lines.
func NewScanner(data []byte, start, end int64, fileID uint32) *Scanner {
	return &Scanner{data: data, pos: start, end: end, fileID: fileID}
}

// Scan reads the next record into *rec, returning false at end of range or
// on error. Once Scan returns false, it never returns true again; check Err
// to distinguish clean exhaustion from a parse failure.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil || s.pos >= s.end {
		return false
	}
	recordStart := s.pos
	header, ok := s.nextLine()
	if !ok {
		return false
	}
	if len(header) == 0 || header[0] != '@' {
		s.err = errInvalid("header line must start with '@'")
		return false
	}
	seq, ok := s.nextLine()
	if !ok {
		s.err = errShort("missing sequence line")
		return false
	}
	plus, ok := s.nextLine()
	if !ok {
		s.err = errShort("missing '+' line")
		return false
	}
	if len(plus) == 0 || plus[0] != '+' {
		s.err = errInvalid("third line must start with '+'")
		return false
	}
	qual, ok := s.nextLine()
	if !ok {
		s.err = errShort("missing quality line")
		return false
	}
	if len(seq) != len(qual) {
		s.err = errLengthMismatch()
		return false
	}
	rec.ID = RecordID{FileID: s.fileID, Ordinal: s.nextOrd, Offset: recordStart}
	rec.Seq = seq
	rec.Qual = qual
	s.nextOrd++
	return true
}

// nextLine returns the bytes of the next '\n'-terminated (or EOF-terminated)
// line, stripping a trailing '\r' if present, and advances pos past it.
func (s *Scanner) nextLine() ([]byte, bool) {
	if s.pos >= int64(len(s.data)) {
		return nil, false
	}
	rest := s.data[s.pos:]
	nl := bytes.IndexByte(rest, '\n')
	var line []byte
	if nl < 0 {
		line = rest
		s.pos = int64(len(s.data))
	} else {
		line = rest[:nl]
		s.pos += int64(nl) + 1
	}
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, true
}

// Err returns the error that stopped scanning, if any.
func (s *Scanner) Err() error {
	return s.err
}
