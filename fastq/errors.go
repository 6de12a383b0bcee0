package fastq

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

var (
	// ErrFormat is the sentinel wrapped by all structural parse failures:
	// truncated records, malformed headers, and sequence/quality length
	// mismatches.
	ErrFormat = stderrors.New("fastq: format error")
	// ErrNoBoundary is returned by Resync/ResyncFASTA when no record start
	// can be located within the supplied window.
	ErrNoBoundary = stderrors.New("fastq: no record boundary in range")
)

func errShort(detail string) error {
	return errors.Wrap(ErrFormat, "short record: "+detail)
}

func errInvalid(detail string) error {
	return errors.Wrap(ErrFormat, "invalid record: "+detail)
}

func errLengthMismatch() error {
	return errors.Wrap(ErrFormat, "sequence/quality length mismatch")
}
