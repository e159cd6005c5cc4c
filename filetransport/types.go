/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package filetransport parses and renders the HTTP Range request header
// (spec.md §4.5's "Range | accept only for GET..." dispatch row).
package filetransport
