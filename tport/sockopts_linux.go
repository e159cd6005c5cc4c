//go:build linux

/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tport

import "syscall"

const (
	soReuseAddr = syscall.SO_REUSEADDR
	soSndBuf    = syscall.SO_SNDBUF
	soRcvBuf    = syscall.SO_RCVBUF
)

func setSockOptBool(fd uintptr, opt int, v bool) error {
	i := 0
	if v {
		i = 1
	}
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, opt, i)
}

func setSockOptInt(fd uintptr, opt int, v int) error {
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, opt, v)
}

func setReusePort(fd uintptr) error {
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEPORT, 1)
}
