/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package mux

import (
	"github.com/sirupsen/logrus"

	"github.com/badu/httpd/tport"
)

// Planner implements spec.md §4.1's listener-reduction algorithm: project
// all (host, interface) pairs, group by interface identity, detect
// duplicate hostnames within a group, then instantiate exactly one
// transport provider per interface.
type Planner struct {
	Logger logrus.FieldLogger
	Opts   tport.SocketOptions
}

// Reduce takes the service groups declared by configuration and returns
// one Mapping per distinct interface. It fails fast (before any socket is
// bound — spec.md §8 "the planner fails before any socket is bound") the
// moment it finds a hostname collision on a shared interface.
func (p *Planner) Reduce(groups [][]ServiceHost) ([]Mapping, error) {
	byIface := make(map[tport.Interface][]ServiceHost)
	var order []tport.Interface

	for _, group := range groups {
		for _, host := range group {
			for _, iface := range host.Config.Interfaces {
				key := iface.Key()
				if _, seen := byIface[key]; !seen {
					order = append(order, key)
				}
				byIface[key] = append(byIface[key], host)
			}
		}
	}

	mappings := make([]Mapping, 0, len(order))
	for _, iface := range order {
		hosts := byIface[iface]
		if dupes := duplicateHostnames(hosts); len(dupes) > 0 {
			return nil, &DuplicateHostError{Interface: iface, Hostnames: dupes}
		}

		provider, err := p.newProvider(iface)
		if err != nil {
			return nil, err
		}

		mappings = append(mappings, Mapping{
			Interface: iface,
			Hosts:     hosts,
			Router:    NewRouter(hosts),
			Provider:  provider,
		})
	}

	sortInterfaces(mappings)
	return mappings, nil
}

func (p *Planner) newProvider(iface tport.Interface) (tport.Listener, error) {
	if iface.SSL {
		return tport.NewTLSListener(iface, p.Opts, p.Logger)
	}
	return tport.NewPlainListener(iface, p.Opts, p.Logger), nil
}

// duplicateHostnames returns every hostname declared by more than one
// ServiceHost sharing an interface, for the DuplicateHostError message
// (spec.md §4.1 step 3: "fail with a message listing all offending
// hostnames").
func duplicateHostnames(hosts []ServiceHost) []string {
	seen := make(map[string]bool)
	var dupes []string
	dupeSeen := make(map[string]bool)
	for _, h := range hosts {
		for _, name := range h.Config.Hostnames {
			if seen[name] {
				if !dupeSeen[name] {
					dupes = append(dupes, name)
					dupeSeen[name] = true
				}
				continue
			}
			seen[name] = true
		}
	}
	return dupes
}
