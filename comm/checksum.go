// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package comm

import (
	"github.com/grailbio/base/errors"
	"github.com/minio/highwayhash"
)

// checksumKey is the fixed highwayhash key flush batches are checksummed
// with, the same zero-key convention fusion/postprocess.go uses for its
// non-adversarial grouping hash: there is no secret to keep here, only
// corruption to catch in transit.
var checksumKey [highwayhash.Size]uint8

// checksum returns data's highwayhash digest, appended to a flush batch so
// its receiver can detect transport/compression corruption before decoding
// it as entries -- the same "hash the bytes, compare on the other end" use
// cmd/bio-pamtool/checksum.go makes of the same library for whole-file
// verification, applied here per flush batch instead of per BAM shard.
func checksum(data []byte) [highwayhash.Size]uint8 {
	return highwayhash.Sum(data, checksumKey[:])
}

// verifyChecksum reports an error if want doesn't match data's checksum.
func verifyChecksum(data []byte, want [highwayhash.Size]uint8) error {
	if checksum(data) != want {
		return errors.E("comm: flush batch failed checksum verification")
	}
	return nil
}
