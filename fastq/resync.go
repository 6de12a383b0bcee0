package fastq

import "bytes"

// Resync locates the offset of the next FASTQ record start at or after
// offset within data. A FASTQ record is four lines: "@header", "sequence",
// "+header", "quality". Ambiguity arises because a quality character may
// itself be '@' or '+', so the first line's role can't always be read off
// directly; Resync disambiguates using the first character of each of the
// next four lines, per the table in the FASTQ Record Resync design.
//
// Resync returns ErrNoBoundary if data has no more newlines at or after
// offset (four full lines cannot be located), and an error wrapping
// ErrFormat if the four leading characters don't match any row of the
// disambiguation table.
func Resync(data []byte, offset int64) (int64, error) {
	o, c, err := nextLineStarts(data, offset, 4)
	if err != nil {
		return 0, err
	}
	switch {
	case c[0] == '@' && c[1] != '@':
		return o[0], nil
	case c[0] == '@' && c[1] == '@':
		return o[1], nil
	case c[0] == '+' && c[1] == '@' && c[2] != '@':
		return o[1], nil
	case c[0] == '+' && c[1] == '@' && c[2] == '@':
		return o[2], nil
	case c[0] == '+' && c[1] != '@':
		return o[2], nil
	case c[1] == '+':
		return o[3], nil
	case c[0] != '@' && c[0] != '+' && c[1] == '@':
		return o[1], nil
	default:
		return 0, errInvalid("no disambiguation table row matched the first three lines")
	}
}

// nextLineStarts returns the byte offsets and first characters of the next n
// lines at or after offset, where a "line" is the span following a newline.
// offset itself is taken as the first line start if it already is one (the
// start of data, or immediately after a '\n'); otherwise the current partial
// line is discarded and the first candidate line start is the position
// immediately after the next newline at or after offset. This guarantees
// every returned offset is a genuine line start, never a truncated partial
// line.
func nextLineStarts(data []byte, offset int64, n int) (o [4]int64, c [4]byte, err error) {
	pos := offset
	if !(pos == 0 || data[pos-1] == '\n') {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			return o, c, ErrNoBoundary
		}
		pos = pos + int64(nl) + 1
	}
	for i := 0; i < n; i++ {
		if pos >= int64(len(data)) {
			return o, c, ErrNoBoundary
		}
		o[i] = pos
		c[i] = data[pos]
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			if i == n-1 {
				return o, c, nil
			}
			return o, c, ErrNoBoundary
		}
		pos = pos + int64(nl) + 1
	}
	return o, c, nil
}

// ResyncFASTA locates the offset of the next FASTA record start ('>' at the
// beginning of a line) at or after offset. Unlike FASTQ, FASTA records have
// no fixed line count and no character-class ambiguity, so resync only needs
// to skip forward to the next line start (offset itself if it already begins
// a line) and then scan forward for the next '>' line.
func ResyncFASTA(data []byte, offset int64) (int64, error) {
	pos := offset
	// If offset isn't already a line start, advance to the next one.
	if pos == 0 || (pos > 0 && data[pos-1] == '\n') {
		// already at a line start
	} else {
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			return 0, ErrNoBoundary
		}
		pos = pos + int64(nl) + 1
	}
	for pos < int64(len(data)) {
		if data[pos] == '>' {
			return pos, nil
		}
		nl := bytes.IndexByte(data[pos:], '\n')
		if nl < 0 {
			return 0, ErrNoBoundary
		}
		pos = pos + int64(nl) + 1
	}
	return 0, ErrNoBoundary
}
