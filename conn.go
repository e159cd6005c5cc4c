/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/badu/httpd/hdr"
	"github.com/badu/httpd/mux"
	"github.com/badu/httpd/reader"
	"github.com/badu/httpd/tport"
)

// connState is spec.md §4.7's connection lifecycle state machine.
type connState int

const (
	stateIdle connState = iota
	stateParsing
	stateDispatching
	stateWriting
	stateAlternateProtocol
	stateClosed
)

// serveConn drives one accepted connection end to end: repeatedly
// parse a request, dispatch it, write the response, and loop back to
// Idle for the next pipelined request, until the peer closes, a fatal
// parse error occurs, or Connection: close / HTTP/1.0-no-keepalive ends
// the cycle.
//
// Grounded on the teacher's own Serve-loop shape (response_server.go),
// generalized from http.Handler's per-request reinitialization to this
// spec's BeginRequest/EndRequest reuse of one pooled *HttpContext across
// every pipelined request on the connection.
func (s *Server) serveConn(t *tport.Context, m *mux.Mapping) {
	ctx := s.pool.Acquire()
	s.pool.Prepare(ctx, t)
	released := false
	defer func() {
		t.Close()
		if !released {
			ctx.Flags.set(FlagClosing)
			s.pool.Release(ctx)
		}
		s.openConns.Add(-1)
		s.metrics.OpenConnections.Dec()
	}()
	s.openConns.Add(1)
	s.metrics.OpenConnections.Inc()
	s.metrics.ConnectionsTotal.Inc()

	state := stateIdle
	var reqStart time.Time
	for {
		switch state {
		case stateIdle:
			ctx.BeginRequest()
			if d := s.cfg.HTTP.KeepaliveMs; d > 0 {
				_ = t.Conn.SetReadDeadline(time.Now().Add(time.Duration(d) * time.Millisecond))
			}
			state = stateParsing

		case stateParsing:
			if err := s.parseRequest(ctx); err != nil {
				s.handleParseFailure(ctx, err)
				if ctx.Response.StatusCode == 0 {
					return // idle timeout / peer closed before sending anything
				}
				state = stateWriting
				break
			}
			reqStart = time.Now()
			state = stateDispatching

		case stateDispatching:
			if max := s.cfg.TCP.MaxConnections; max > 0 && s.openConns.Load() > int64(max) {
				ctx.Response.StatusCode = 503
				ctx.Request.State.Keepalive = false
				ctx.Flags.set(FlagClosing)
				ctx.Response.Header.Set(hdr.Connection, "close")
				ctx.Response.Body.SetSized(newStringReader("server at connection capacity"), 29, "text/plain; charset=utf-8")
				state = stateWriting
				break
			}
			if d := s.cfg.HTTP.RecvTimeoutMs; d > 0 {
				_ = t.Conn.SetReadDeadline(time.Now().Add(time.Duration(d) * time.Millisecond))
			}
			dispatch(ctx, m.Router)
			if ctx.AlternateProtocol != nil {
				state = stateAlternateProtocol
				break
			}
			state = stateWriting

		case stateWriting:
			if d := s.cfg.HTTP.SendTimeoutMs; d > 0 {
				_ = t.Conn.SetWriteDeadline(time.Now().Add(time.Duration(d) * time.Millisecond))
			}
			if err := writePipeline(ctx, s.cfg.HTTP.Compression); err != nil {
				return
			}
			if !reqStart.IsZero() {
				s.metrics.RequestDuration.Observe(time.Since(reqStart).Seconds())
				reqStart = time.Time{}
			}
			if err := drainRequestBody(ctx); err != nil {
				return
			}
			keepalive := ctx.Request.State.Keepalive
			closing := ctx.Flags.has(FlagClosing)
			ctx.EndRequest()
			if !keepalive || closing {
				return
			}
			state = stateIdle

		case stateAlternateProtocol:
			if err := writeSwitchingProtocols(ctx); err != nil {
				return
			}
			alt := ctx.AlternateProtocol
			ctx.AlternateProtocol = nil
			ctx.Flags.set(FlagClosing)
			s.pool.Release(ctx)
			released = true
			alt(t)
			return

		case stateClosed:
			return
		}
	}
}

// parseRequest runs the three parser phases against ctx, using the
// connection's already-pinned buffers (spec.md §4.4's pre-buffer step:
// a single FillBuffer call primes the window before phase 1 looks at
// it, so an idle connection blocks in one read rather than in
// ReadLine's internals).
func (s *Server) parseRequest(ctx *HttpContext) error {
	if ctx.Reader.Available() == 0 {
		n, err := ctx.Reader.FillBuffer()
		if err != nil {
			return err
		}
		if n == 0 {
			return io.EOF
		}
	}
	isTLS := ctx.Transport.Security() != nil
	if err := parsePhase1(ctx, isTLS); err != nil {
		return err
	}
	if err := parsePhase2(ctx, s.cfg.HTTP.MaxRequestHeaderCount); err != nil {
		return err
	}
	return parsePhase3(ctx, s.cfg.HTTP)
}

// handleParseFailure maps a parser error onto an HTTP status to write
// back (spec.md §7's error taxonomy), or decides the connection simply
// ended (io.EOF/closed) with nothing worth answering.
func (s *Server) handleParseFailure(ctx *HttpContext, err error) {
	var pe *parseError
	switch {
	case errors.As(err, &pe):
		status := pe.status
		if ctx.Request.State.Expect100 {
			// spec.md §4.6 step 1: a parse failure with 100-continue
			// still pending answers 417, not the parser's own status.
			status = 417
		}
		s.metrics.ParserRejections.WithLabelValues(statusLabel(status)).Inc()
		ctx.Response.StatusCode = status
		ctx.Request.State.Keepalive = false
		ctx.Response.Header.Set(hdr.Connection, "close")
		ctx.Response.Body.SetSized(newStringReader(pe.Error()), int64(len(pe.Error())), "text/plain; charset=utf-8")
	case errors.Is(err, reader.ErrBufferFull):
		s.metrics.ParserRejections.WithLabelValues("431").Inc()
		ctx.Response.StatusCode = 431
		ctx.Request.State.Keepalive = false
		ctx.Response.Header.Set(hdr.Connection, "close")
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		// peer closed (or our idle timeout fired); nothing to answer.
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return
		}
		ctx.Response.StatusCode = 400
		ctx.Request.State.Keepalive = false
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 100 && code < 1000:
		return itoa3(code)
	default:
		return "000"
	}
}

func itoa3(n int) string {
	const digits = "0123456789"
	if n < 0 || n > 999 {
		return "000"
	}
	return string([]byte{digits[n/100], digits[(n/10)%10], digits[n%10]})
}
