// Package static implements the static-file responder: it queues bytes
// exclusively through the connection's write queue and never touches
// the socket directly.
package static

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tyx3211/edgeserve/internal/httpcore"
)

// Responder serves files rooted at DocumentRoot.
type Responder struct {
	DocumentRoot string
	MimeEnabled  bool
}

// New constructs a Responder.
func New(documentRoot string, mimeEnabled bool) *Responder {
	return &Responder{DocumentRoot: documentRoot, MimeEnabled: mimeEnabled}
}

// Serve resolves decodedPath under DocumentRoot and queues a response
// for the given method. "/" maps to "index.html". The path is cleaned
// as if rooted at "/" before it is joined to DocumentRoot, so ".."
// segments cannot climb above the root: "/../x" resolves to
// DocumentRoot/x (404 if absent). A resolved path that still falls
// outside DocumentRoot is answered with 403 before the file is read.
// For HEAD, original_source/src/http.c:148-156 sends only the
// header and skips the body-send loop; Serve mirrors that by computing
// and queuing the headers as usual but never queuing the file body.
func (s *Responder) Serve(conn *httpcore.Connection, method, decodedPath string) {
	rel := decodedPath
	if rel == "/" {
		rel = "/index.html"
	}

	full := filepath.Join(s.DocumentRoot, filepath.Clean("/"+rel))
	root, err := filepath.Abs(s.DocumentRoot)
	if err != nil {
		writeError(conn, 500, "Internal Server Error")
		return
	}
	absFull, err := filepath.Abs(full)
	if err != nil || (absFull != root && !strings.HasPrefix(absFull, root+string(filepath.Separator))) {
		writeError(conn, 403, "Forbidden")
		return
	}

	data, err := os.ReadFile(absFull)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(conn, 404, "Not Found")
			return
		}
		writeError(conn, 500, "Internal Server Error")
		return
	}

	contentType := "application/octet-stream"
	if s.MimeEnabled {
		// mimetype sniffs content; text/html and text/css/js sniff as
		// plain text for short snippets, so extension wins for those.
		switch {
		case strings.HasSuffix(absFull, ".html"), strings.HasSuffix(absFull, ".htm"):
			contentType = "text/html; charset=utf-8"
		case strings.HasSuffix(absFull, ".css"):
			contentType = "text/css; charset=utf-8"
		case strings.HasSuffix(absFull, ".js"):
			contentType = "application/javascript; charset=utf-8"
		default:
			contentType = mimetype.Detect(data).String()
		}
	}

	status := fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Length: %d\r\nContent-Type: %s\r\n\r\n", len(data), contentType)
	conn.Queue([]byte(status))
	if method != "HEAD" {
		conn.Queue(data)
	}
	conn.SetStatus(200)
}

func writeError(conn *httpcore.Connection, code int, reason string) {
	body := reason
	head := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nContent-Type: text/plain\r\n\r\n", code, reason, len(body))
	conn.Queue([]byte(head))
	conn.Queue([]byte(body))
	conn.SetStatus(code)
}
