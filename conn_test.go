package httpd

import (
	"bufio"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/httpd/bufpool"
	"github.com/badu/httpd/metrics"
	"github.com/badu/httpd/mux"
	"github.com/badu/httpd/tport"
)

type recordingHandler struct {
	got chan *HttpContext
}

func (h *recordingHandler) ServeHTTP(_ mux.ResponseWriter, r mux.Request) {
	ctx := r.(*HttpContext)
	ctx.Response.WriteStatus(200)
	ctx.Response.Body.SetSized(newStringReader("ok"), 2, "text/plain; charset=utf-8")
	h.got <- ctx
}

func newTestServer(t *testing.T, h mux.Handler) (*Server, *mux.Mapping) {
	t.Helper()
	cfg := DefaultConfig()
	s := &Server{
		cfg:     cfg,
		pool:    NewContextPool(cfg, 4, bufpool.New(), metrics.New()),
		metrics: metrics.New(),
		conns:   make(map[*tport.Context]struct{}),
	}
	router := mux.NewRouter([]mux.ServiceHost{{Handler: h, Config: mux.VHostConfig{Default: true}}})
	m := &mux.Mapping{Router: router}
	return s, m
}

// scenario 1: plain GET with a query string gets a 200 from the default handler.
func TestServeConnScenarioPlainGet(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte("GET /abc?q=1 HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	ctx := <-h.got
	assert.Equal(t, "GET", ctx.Request.State.Method)
	assert.Equal(t, "/abc", ctx.Request.State.URI.Path)
	assert.Equal(t, "q=1", ctx.Request.State.URI.RawQuery)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", status)
	_ = client.Close()
}

// scenario 2: HTTP/1.0 request gets Connection: close and the socket closes
// after one response.
func TestServeConnScenarioHTTP10NoKeepalive(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.0\r\nHost: x\r\n\r\n"))
	}()
	done := make(chan struct{})
	go func() { s.serveConn(&tport.Context{Conn: server}, m); close(done) }()

	<-h.got
	br := bufio.NewReader(client)
	raw, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 200 OK\r\n", raw)

	var sawClose bool
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			break
		}
		if line == "Connection: close\r\n" {
			sawClose = true
		}
	}
	assert.True(t, sawClose)
	<-done // serveConn must return (close the socket) after the one response
	_ = client.Close()
}

// scenario 3: a pipelined POST is read, dispatched, and the connection
// loops back to parse a second pipelined request off the same socket.
func TestServeConnScenarioPipelinedRequests(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 2)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte(
			"POST /u HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello" +
				"GET /second HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	first := <-h.got
	assert.Equal(t, "POST", first.Request.State.Method)

	br := bufio.NewReader(client)
	status1, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", status1)

	second := <-h.got
	assert.Equal(t, "GET", second.Request.State.Method)
	assert.Equal(t, "/second", second.Request.State.URI.Path)
	_ = client.Close()
}

// scenario 4: a GET carrying Content-Length is rejected with 400.
func TestServeConnScenarioGetWithBodyRejected(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nContent-Length: 7\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n", status)
	_ = client.Close()
}

// scenario 6: the open-connection cap is enforced per spec.md §4.6 step 2 /
// §4.8: once the live count exceeds TCP.MaxConnections, the next dispatch
// answers 503 and forces the connection closed instead of running the
// handler.
func TestServeConnScenarioOverCapRejectedWith503(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)
	s.cfg.TCP.MaxConnections = 1
	s.openConns.Add(1) // simulate one already-open connection

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	done := make(chan struct{})
	go func() { s.serveConn(&tport.Context{Conn: server}, m); close(done) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 503 Service Unavailable\r\n", status)
	<-done
	_ = client.Close()

	select {
	case <-h.got:
		t.Fatal("handler must not run once the connection cap is exceeded")
	default:
	}
}

// scenario 7: a handler calling TerminateConnection unwinds dispatch with
// the requested status and forces the connection closed (spec.md §4.6 step
// 8 / §4.8's handler "terminate" signal).
type terminatingHandler struct{ status int }

func (h terminatingHandler) ServeHTTP(_ mux.ResponseWriter, r mux.Request) {
	r.(*HttpContext).TerminateConnection(h.status)
}

func TestServeConnScenarioTerminateConnectionOverridesStatus(t *testing.T) {
	server, client := net.Pipe()
	s, m := newTestServer(t, terminatingHandler{status: 403})

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	done := make(chan struct{})
	go func() { s.serveConn(&tport.Context{Conn: server}, m); close(done) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 403 Forbidden\r\n", status)
	<-done
	_ = client.Close()
}

// scenario 8: TerminateConnection with status 0 clears a response the
// handler hadn't yet flushed and still forces the connection closed.
type terminatingAfterWriteHandler struct{}

func (terminatingAfterWriteHandler) ServeHTTP(_ mux.ResponseWriter, r mux.Request) {
	ctx := r.(*HttpContext)
	ctx.Response.WriteStatus(200)
	ctx.Response.Header.Set("X-Partial", "yes")
	ctx.TerminateConnection(0)
}

func TestServeConnScenarioTerminateConnectionZeroClearsResponse(t *testing.T) {
	server, client := net.Pipe()
	s, m := newTestServer(t, terminatingAfterWriteHandler{})

	go func() {
		_, _ = client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	done := make(chan struct{})
	go func() { s.serveConn(&tport.Context{Conn: server}, m); close(done) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", status)

	var sawClose bool
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			break
		}
		if line == "X-Partial: yes\r\n" {
			t.Fatal("cleared response must not carry headers the handler had set before terminating")
		}
		if line == "Connection: close\r\n" {
			sawClose = true
		}
	}
	assert.True(t, sawClose)
	<-done
}

// scenario 9: DangerousChangeProtocol writes the 101 interim response before
// handing the raw connection to the stashed continuation (spec.md §4.6 step
// 7 / §9's AlternateProtocol handoff).
type upgradingHandler struct{ ran chan struct{} }

func (h upgradingHandler) ServeHTTP(_ mux.ResponseWriter, r mux.Request) {
	ctx := r.(*HttpContext)
	ctx.Response.Header.Set("Upgrade", "websocket")
	ctx.Response.Header.Set("Connection", "Upgrade")
	ctx.DangerousChangeProtocol(func(conn *tport.Context) {
		_, _ = conn.Conn.Write([]byte("hello-after-upgrade"))
		close(h.ran)
	})
}

func TestServeConnScenarioDangerousChangeProtocolSends101(t *testing.T) {
	server, client := net.Pipe()
	h := upgradingHandler{ran: make(chan struct{})}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte("GET /ws HTTP/1.1\r\nHost: x\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 101 Switching Protocols\r\n", status)

	var sawUpgrade bool
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		if line == "Upgrade: websocket\r\n" {
			sawUpgrade = true
		}
	}
	assert.True(t, sawUpgrade)

	<-h.ran
	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Equal(t, "hello-after-upgrade", string(rest))
	_ = client.Close()
}

// scenario 10: a parse failure while Expect: 100-continue is still pending
// answers 417, not the parser's own status (spec.md §4.6 step 1).
func TestServeConnScenarioExpectPendingParseFailureAnswers417(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte(
			"POST / HTTP/1.1\r\nHost: x\r\nExpect: 100-continue\r\nContent-Length: 3\r\nTransfer-Encoding: chunked\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 417 Expectation Failed\r\n", status)
	_ = client.Close()
}

// scenario 5: chunked Transfer-Encoding alongside Content-Length is a desync
// and is rejected with 400, distinct from the 501 a chunked-only request
// body gets (see DESIGN.md's Open Question decision).
func TestServeConnScenarioChunkedContentLengthDesync(t *testing.T) {
	server, client := net.Pipe()
	h := &recordingHandler{got: make(chan *HttpContext, 1)}
	s, m := newTestServer(t, h)

	go func() {
		_, _ = client.Write([]byte("POST / HTTP/1.1\r\nHost: x\r\nTransfer-Encoding: chunked\r\nContent-Length: 3\r\n\r\n"))
	}()
	go s.serveConn(&tport.Context{Conn: server}, m)

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n", status)
	_ = client.Close()
}
