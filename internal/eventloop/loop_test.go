package eventloop

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyx3211/edgeserve/internal/config"
	"github.com/tyx3211/edgeserve/internal/dispatch"
	"github.com/tyx3211/edgeserve/internal/logging"
	"github.com/tyx3211/edgeserve/internal/router"
	"github.com/tyx3211/edgeserve/internal/static"
)

// freePort grabs an ephemeral TCP port by briefly listening on it.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// startLoop boots a reactor serving documentRoot and returns the port it
// is listening on; the loop runs for the lifetime of the test process
// (graceful shutdown is out of scope).
func startLoop(t *testing.T, documentRoot string) int {
	t.Helper()
	port := freePort(t)

	d := dispatch.New(router.NewBuilder().Build(), static.New(documentRoot, true))
	logger := logging.Bootstrap()
	loop, err := New(port, d, logger, config.LevelError)
	require.NoError(t, err)

	go func() { _ = loop.Run() }()
	waitForListener(t, port)
	return port
}

func waitForListener(t *testing.T, port int) {
	t.Helper()
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("reactor never started listening on port %d", port)
}

func dial(t *testing.T, port int) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), time.Second)
	require.NoError(t, err)
	return conn
}

// TestS1StaticOK: HTTP/1.0 GET of the document root returns the index
// page's body and closes the connection.
func TestS1StaticOK(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("hi"), 0o644))
	port := startLoop(t, root)

	conn := dial(t, port)
	defer conn.Close()
	_, err := conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	resp := readResponse(t, conn)
	assert.Contains(t, resp, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, resp, "Content-Length: 2\r\n")
	assert.Contains(t, resp, "Content-Type: text/html")
	assert.True(t, endsWithBody(resp, "hi"))

	assertConnectionCloses(t, conn)
}

// TestS2KeepAlivePipeline: two pipelined HTTP/1.1 requests on one
// connection are both served, in order, and the connection stays open.
func TestS2KeepAlivePipeline(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b"), []byte("B"), 0o644))
	port := startLoop(t, root)

	conn := dial(t, port)
	defer conn.Close()
	_, err := conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\n\r\nGET /b HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	first := readResponse(t, conn)
	assert.True(t, endsWithBody(first, "A"))

	second := readResponse(t, conn)
	assert.True(t, endsWithBody(second, "B"))

	// Connection must still be usable: a third request on the same
	// socket gets a normal response rather than EOF.
	_, err = conn.Write([]byte("GET /a HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	third := readResponse(t, conn)
	assert.True(t, endsWithBody(third, "A"))
}

// TestS5UnknownMethod: an unrouted non-GET method gets 501, and
// HTTP/1.1 keep-alive still applies afterwards.
func TestS5UnknownMethod(t *testing.T) {
	port := startLoop(t, t.TempDir())

	conn := dial(t, port)
	defer conn.Close()
	_, err := conn.Write([]byte("DELETE /x HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp := readResponse(t, conn)
	assert.Contains(t, resp, "HTTP/1.1 501 Not Implemented\r\n")

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)
	second := readResponse(t, conn)
	assert.Contains(t, second, "HTTP/1.1 404 Not Found\r\n")
}

// TestS6MalformedRequestLine: a malformed request line closes the
// connection without any response.
func TestS6MalformedRequestLine(t *testing.T) {
	port := startLoop(t, t.TempDir())

	conn := dial(t, port)
	defer conn.Close()
	_, err := conn.Write([]byte("GET\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.True(t, err == io.EOF || err != nil)
}

func readResponse(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	statusLine, err := r.ReadString('\n')
	require.NoError(t, err)

	var headers []string
	contentLength := 0
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		headers = append(headers, line)
		if line == "\r\n" {
			break
		}
		if n, ok := parseContentLength(line); ok {
			contentLength = n
		}
	}

	body := make([]byte, contentLength)
	if contentLength > 0 {
		_, err := io.ReadFull(r, body)
		require.NoError(t, err)
	}

	out := statusLine
	for _, h := range headers {
		out += h
	}
	return out + string(body)
}

func parseContentLength(headerLine string) (int, bool) {
	const prefix = "Content-Length:"
	if len(headerLine) <= len(prefix) || headerLine[:len(prefix)] != prefix {
		return 0, false
	}
	n := 0
	for i := len(prefix); i < len(headerLine); i++ {
		c := headerLine[i]
		if c < '0' || c > '9' {
			continue
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func endsWithBody(resp, body string) bool {
	if len(resp) < len(body) {
		return false
	}
	return resp[len(resp)-len(body):] == body
}

func assertConnectionCloses(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.Error(t, err)
}
