// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package circular provides sliding-window data structures used when
// streaming k-mers out of a sorted stream of read positions: a circular
// bitmap that tracks which window columns have been populated so a consumer
// can tell when a window of k consecutive bases is complete.
package circular
