// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import "runtime"

// isArm gates package init() registration: this driver memory-maps
// bcm283x-specific physical addresses and must never run its Init() on a
// non-ARM host.
const isArm = runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"
