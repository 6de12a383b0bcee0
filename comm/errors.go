package comm

import (
	"math"

	"github.com/grailbio/base/errors"
)

var errShortBuffer = errors.E("comm: truncated entry in received buffer")

func uint64FromFloat(f float64) uint64 { return math.Float64bits(f) }
func floatFromUint64(u uint64) float64 { return math.Float64frombits(u) }
