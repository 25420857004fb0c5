// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package host registers all the host drivers this module ships with.
//
// It must be imported for side effects before calling wsprtx.Init(), or
// callers can use host.Init() directly which does both.
package host

import (
	"wsprtx.io/x/wsprtx"
	_ "wsprtx.io/x/wsprtx/host/bcm283x"
)

// Init calls wsprtx.Init() after the package's package init() functions have
// registered all known drivers.
func Init() (*wsprtx.State, error) {
	return wsprtx.Init()
}
