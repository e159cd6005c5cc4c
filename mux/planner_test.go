package mux

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/httpd/tport"
)

type stubHandler struct{ name string }

func (stubHandler) ServeHTTP(ResponseWriter, Request) {}

func TestReduceCollapsesSharedInterface(t *testing.T) {
	iface := tport.Interface{Address: "0.0.0.0", Port: 8080}
	groups := [][]ServiceHost{
		{
			{Handler: stubHandler{"a"}, Config: VHostConfig{Hostnames: []string{"a.example.com"}, Interfaces: []tport.Interface{iface}}},
			{Handler: stubHandler{"b"}, Config: VHostConfig{Hostnames: []string{"b.example.com"}, Interfaces: []tport.Interface{iface}}},
		},
	}

	p := &Planner{Logger: logrus.New()}
	mappings, err := p.Reduce(groups)
	require.NoError(t, err)
	require.Len(t, mappings, 1, "two vhosts sharing one interface must produce exactly one listener")
	assert.Len(t, mappings[0].Hosts, 2)
}

func TestReduceDetectsDuplicateHostnames(t *testing.T) {
	iface := tport.Interface{Address: "0.0.0.0", Port: 443, SSL: false}
	groups := [][]ServiceHost{
		{
			{Handler: stubHandler{"a"}, Config: VHostConfig{Hostnames: []string{"dup.example.com"}, Interfaces: []tport.Interface{iface}}},
			{Handler: stubHandler{"b"}, Config: VHostConfig{Hostnames: []string{"dup.example.com"}, Interfaces: []tport.Interface{iface}}},
		},
	}

	p := &Planner{Logger: logrus.New()}
	_, err := p.Reduce(groups)
	require.Error(t, err)
	var dupErr *DuplicateHostError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, []string{"dup.example.com"}, dupErr.Hostnames)
}

func TestRouterWildcardFallback(t *testing.T) {
	hosts := []ServiceHost{
		{Handler: stubHandler{"exact"}, Config: VHostConfig{Hostnames: []string{"exact.example.com"}}},
		{Handler: stubHandler{"wild"}, Config: VHostConfig{Default: true}},
	}
	r := NewRouter(hosts)

	h, ok := r.Lookup("exact.example.com")
	require.True(t, ok)
	assert.Equal(t, stubHandler{"exact"}, h)

	h, ok = r.Lookup("unknown.example.com")
	require.True(t, ok)
	assert.Equal(t, stubHandler{"wild"}, h)
}

func TestRouterNoMatchNoDefault(t *testing.T) {
	r := NewRouter([]ServiceHost{
		{Handler: stubHandler{"exact"}, Config: VHostConfig{Hostnames: []string{"exact.example.com"}}},
	})
	_, ok := r.Lookup("unknown.example.com")
	assert.False(t, ok)
}
