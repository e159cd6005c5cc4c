//go:build !linux

/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

import "errors"

const (
	soReuseAddr = 0
	soSndBuf    = 0
	soRcvBuf    = 0
)

// errReusePortUnsupported is returned on platforms where §4.2's
// "optionally SO_REUSEPORT" cannot be honored; the provider logs a
// warning and continues without it.
var errReusePortUnsupported = errors.New("tport: SO_REUSEPORT not supported on this platform")

func setSockOptBool(fd uintptr, opt int, v bool) error { return nil }

func setSockOptInt(fd uintptr, opt int, v int) error { return nil }

func setReusePort(fd uintptr) error { return errReusePortUnsupported }
