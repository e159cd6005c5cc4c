/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package mux implements spec.md §4.1's virtual-host router and
// listener-reduction planner: hostname lookup with wildcard fallback per
// listener, and the algorithm that collapses many (vhost, interface)
// declarations down to one transport provider per distinct interface.
//
// Grounded on mux/types.go's ServeMux (this package's own teacher
// ancestor) generalized from path-pattern matching to exact-hostname
// matching, since spec.md's routing key is the Host header, not a URL
// path.
package mux

import (
	"fmt"
	"sort"

	"github.com/badu/httpd/tport"
)

type (
	// Handler is the hostname-routed request handler. It is declared
	// here (rather than imported from the root package) to keep mux
	// free of a dependency on httpd, matching the teacher's own layering
	// (mux imported httpd, never the reverse); the root package's
	// func-typed Handler is wrapped in an adapter (httpd's muxHandler)
	// that implements this interface.
	Handler interface {
		ServeHTTP(w ResponseWriter, r Request)
	}

	// ResponseWriter and Request are minimal structural stand-ins so
	// this package has no import cycle with the root package; the root
	// package's real types satisfy them.
	ResponseWriter interface{}
	Request        interface{}

	// VHostConfig is a virtual host's routing configuration: the
	// hostnames it answers to and the interfaces it binds on (spec.md
	// §3 ServiceHost.user_state).
	VHostConfig struct {
		Hostnames  []string
		Interfaces []tport.Interface
		Default    bool // wildcard fallback for its interfaces
	}

	// ServiceHost pairs a handler with its virtual-host config (spec.md
	// §3).
	ServiceHost struct {
		Handler Handler
		Config  VHostConfig
	}

	// Router is the per-listener hostname→handler lookup (spec.md §4.6
	// step 4: "exact hostname hit ... otherwise a wildcard default ...
	// otherwise 404"). The map is built once at server start and treated
	// as immutable thereafter (spec.md §5 "Shared resources").
	Router struct {
		exact   map[string]Handler
		wild    Handler
	}

	// Mapping is spec.md §3's HttpTransportMapping: the grouped hosts
	// for one interface plus the transport provider that will serve
	// them.
	Mapping struct {
		Interface tport.Interface
		Hosts     []ServiceHost
		Router    *Router
		Provider  tport.Listener
	}

	// DuplicateHostError is returned by Planner.Reduce when two
	// ServiceHosts on the same interface declare the same hostname
	// (spec.md §4.1 step 3).
	DuplicateHostError struct {
		Interface tport.Interface
		Hostnames []string
	}
)

func (e *DuplicateHostError) Error() string {
	return fmt.Sprintf("mux: duplicate hostnames on interface %s:%d: %v",
		e.Interface.Address, e.Interface.Port, e.Hostnames)
}

// NewRouter builds a Router from the hosts sharing one interface.
func NewRouter(hosts []ServiceHost) *Router {
	r := &Router{exact: make(map[string]Handler, len(hosts))}
	for _, h := range hosts {
		for _, name := range h.Config.Hostnames {
			r.exact[name] = h.Handler
		}
		if h.Config.Default {
			r.wild = h.Handler
		}
	}
	return r
}

// Lookup implements spec.md §4.6 step 4's handler resolution. The bool
// result is false only when no handler at all applies (caller replies
// 404).
func (r *Router) Lookup(host string) (Handler, bool) {
	if h, ok := r.exact[host]; ok {
		return h, true
	}
	if r.wild != nil {
		return r.wild, true
	}
	return nil, false
}

// sortInterfaces gives Reduce's output a deterministic order (by address
// then port) so tests and logs are stable across runs — a SPEC_FULL.md
// addition beyond spec.md's own wording.
func sortInterfaces(m []Mapping) {
	sort.Slice(m, func(i, j int) bool {
		if m[i].Interface.Address != m[j].Interface.Address {
			return m[i].Interface.Address < m[j].Interface.Address
		}
		return m[i].Interface.Port < m[j].Interface.Port
	})
}
