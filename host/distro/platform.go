// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package distro

import "runtime"

// isArm is true when running on a 32 or 64 bit ARM CPU, the architecture
// family every bcm283x board uses.
const isArm = runtime.GOARCH == "arm" || runtime.GOARCH == "arm64"

// isLinux gates the /proc and /sys parsing this package does; none of it
// applies on other kernels.
const isLinux = runtime.GOOS == "linux"
