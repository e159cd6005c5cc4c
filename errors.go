/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"fmt"
)

// parseError carries the HTTP status the connection loop should reply
// with when the parser gives up on a request (spec.md §4.5/§7). It is
// the server-side analogue of the teacher's types_transfer.go sentinel
// errors, generalized from a fixed set of named errors to a status-
// carrying type since this spec's rejection table is much larger.
type parseError struct {
	status int
	reason string
}

func (e *parseError) Error() string {
	if e.reason == "" {
		return fmt.Sprintf("httpd: parse error (status %d)", e.status)
	}
	return fmt.Sprintf("httpd: %s (status %d)", e.reason, e.status)
}

func newParseError(status int, reason string) *parseError {
	return &parseError{status: status, reason: reason}
}
