/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package mime

import "mime"

// MIMETypeByExtension returns the MIME type associated with the file
// extension ext, thinly wrapping the standard library's registry.
func MIMETypeByExtension(ext string) string {
	return mime.TypeByExtension(ext)
}

// MIMEParseMediaType parses a media type value and any optional
// parameters, such as a Content-Type header's charset or a multipart
// body's boundary.
func MIMEParseMediaType(v string) (string, map[string]string, error) {
	return mime.ParseMediaType(v)
}
