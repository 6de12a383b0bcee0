package comm

import (
	"bytes"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/recordio"
)

// frameBlock wraps one already-encoded byte blob in a single-item recordio
// stream, the same container format encoding/pam/fieldio/writer.go uses to
// frame its field blocks (Marshal/Index/AddHeader/SetTrailer/Finish),
// generalized here to one opaque []byte item instead of a PAM field block.
func frameBlock(raw []byte) ([]byte, error) {
	var out bytes.Buffer
	w := recordio.NewWriter(&out, recordio.WriterOpts{
		Marshal: func(scratch []byte, v interface{}) ([]byte, error) {
			return append(scratch, v.([]byte)...), nil
		},
		MaxFlushParallelism: 1,
	})
	if err := w.Append(raw); err != nil {
		return nil, errors.E(err, "comm: recordio append")
	}
	w.Flush()
	w.Wait()
	if err := w.Finish(); err != nil {
		return nil, errors.E(err, "comm: recordio finish")
	}
	return out.Bytes(), nil
}

// unframeBlock is frameBlock's inverse: it reads back the single raw []byte
// item a recordio stream built by frameBlock holds.
func unframeBlock(framed []byte) ([]byte, error) {
	s := recordio.NewScanner(bytes.NewReader(framed), recordio.ScannerOpts{
		Unmarshal: func(data []byte) (interface{}, error) {
			buf := make([]byte, len(data))
			copy(buf, data)
			return buf, nil
		},
	})
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return nil, errors.E(err, "comm: recordio scan")
		}
		return nil, errors.E("comm: empty recordio stream")
	}
	return s.Get().([]byte), nil
}
