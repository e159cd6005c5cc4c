/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package httpd

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/badu/httpd/bufpool"
	"github.com/badu/httpd/metrics"
	"github.com/badu/httpd/mux"
	"github.com/badu/httpd/tport"
)

// Server is spec.md §3's top-level object: the result of running the
// listener-reduction Planner over a set of virtual hosts, now actually
// accepting connections and driving each one through serveConn.
//
// Grounded on types_server.go's Server struct, generalized from one
// listener and one handler to mux.Planner's n-to-m (interface, vhost)
// reduction.
type Server struct {
	cfg    Config
	log    logrus.FieldLogger
	pool   *ContextPool
	bufs   *bufpool.Pool
	metrics *metrics.Metrics

	mappings []mux.Mapping

	// openConns is spec.md §5's "open-connection counter is an atomic
	// integer", checked against cfg.TCP.MaxConnections on every request
	// dispatch (§4.6 step 2 / §4.8's "open-connection cap exceeded").
	openConns atomic.Int64

	mu      sync.Mutex
	wg      sync.WaitGroup
	closing bool
	conns   map[*tport.Context]struct{}
}

// NewServer builds a Server from the virtual-host groups described by
// spec.md §4.1, reducing them to one transport Listener per distinct
// interface via mux.Planner before any socket is opened.
func NewServer(cfg Config, log logrus.FieldLogger, groups [][]mux.ServiceHost) (*Server, error) {
	planner := &mux.Planner{Logger: log, Opts: cfg.Sockets}
	mappings, err := planner.Reduce(groups)
	if err != nil {
		return nil, err
	}
	bp := bufpool.New()
	m := metrics.New()
	s := &Server{
		cfg:      cfg,
		log:      log,
		bufs:     bp,
		metrics:  m,
		mappings: mappings,
		conns:    make(map[*tport.Context]struct{}),
	}
	s.pool = NewContextPool(cfg, cfg.TCP.MaxConnections, bp, m)
	return s, nil
}

// Metrics exposes the server's Prometheus registry for the embedder to
// mount alongside its own (spec.md's ambient observability stack is an
// external collaborator's concern — see SPEC_FULL.md).
func (s *Server) Metrics() *metrics.Metrics { return s.metrics }

// Serve starts every reduced listener and blocks until every accept loop
// and every connection it started has returned: after Shutdown, or once
// every listener's Accept has failed. It then returns the first accept
// failure, if any. Each mapping's listener runs its own accept loop on
// its own goroutine.
func (s *Server) Serve() error {
	errs := make(chan error, len(s.mappings))
	for i := range s.mappings {
		mapping := &s.mappings[i]
		if err := mapping.Provider.Start(); err != nil {
			return err
		}
		s.wg.Add(1)
		go s.acceptLoop(mapping, errs)
	}
	s.wg.Wait()
	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (s *Server) acceptLoop(m *mux.Mapping, errs chan<- error) {
	defer s.wg.Done()
	for {
		t, err := m.Provider.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if !closing {
				errs <- err
				s.log.WithError(err).WithField("interface", m.Interface).Error("listener accept failed")
			}
			return
		}
		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			t.Close()
			continue
		}
		s.conns[t] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() {
				s.mu.Lock()
				delete(s.conns, t)
				s.mu.Unlock()
			}()
			s.serveConn(t, m)
		}()
	}
}

// Shutdown stops every listener and waits for all connection goroutines
// to return, or for ctx to expire, in which case it force-closes every
// remaining connection and returns an error. Connections are not
// interrupted at an Idle boundary: a kept-alive connection ends when its
// peer closes it or its keep-alive read deadline fires (graceful
// shutdown is a SPEC_FULL.md supplemented feature).
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	for i := range s.mappings {
		_ = s.mappings[i].Provider.Stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		return errors.New("httpd: shutdown deadline exceeded, remaining connections force-closed")
	}
}
