/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package mime

import (
	"io"
	"strings"

	. "github.com/badu/httpd/hdr"
)

// FormName returns the name parameter if p has a Content-Disposition
// of type "form-data". Otherwise it returns the empty string.
func (p *Part) FormName() string {
	// See http://tools.ietf.org/html/rfc2183 section 2 for EBNF
	// of Content-Disposition value format.
	if p.dispositionParams == nil {
		p.parseContentDisposition()
	}
	if p.disposition != "form-data" {
		return ""
	}
	return p.dispositionParams["name"]
}

// FileName returns the filename parameter of the Part's
// Content-Disposition header.
func (p *Part) FileName() string {
	if p.dispositionParams == nil {
		p.parseContentDisposition()
	}
	return p.dispositionParams["filename"]
}

func (p *Part) parseContentDisposition() {
	v := p.Header.Get(ContentDisposition)
	var err error
	p.disposition, p.dispositionParams, err = MIMEParseMediaType(v)
	if err != nil {
		p.dispositionParams = emptyParams
	}
}

// populateHeaders reads the header block preceding a part's body
// directly off the shared bufio.Reader. Grounded on parsePhase2's
// colon-split/trim shape, scaled down to a part's flat (non-folding)
// header lines.
func (bp *Part) populateHeaders() error {
	header := make(Header)
	br := bp.mr.bufReader
	for {
		line, err := br.ReadSlice('\n')
		if len(line) == 0 && err != nil {
			return err
		}
		trimmed := TrimString(string(line))
		if trimmed == "" {
			break
		}
		colon := strings.IndexByte(trimmed, ':')
		if colon < 0 {
			continue
		}
		name := CanonicalHeaderKey(TrimString(trimmed[:colon]))
		value := TrimString(trimmed[colon+1:])
		header[name] = append(header[name], value)
		if err != nil {
			break
		}
	}
	bp.Header = header
	return nil
}

// Read reads the body of a part, after its headers and before the
// next part (if any) begins.
func (p *Part) Read(d []byte) (n int, err error) {
	return p.r.Read(d)
}

func (p *Part) Close() error {
	_, _ = io.Copy(io.Discard, p)
	return nil
}
