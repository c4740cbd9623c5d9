// Package dispatch implements the post-parse hook run once a
// Connection reaches StateComplete. It performs the body sentinel,
// populates query_params/body_params (and the optional JSON document),
// resolves a router handler or falls through to the static responder,
// restores the sentinel, and sets the connection to StateSending.
package dispatch

import (
	"strings"

	"github.com/tyx3211/edgeserve/internal/httpcore"
	"github.com/tyx3211/edgeserve/internal/jsonutil"
	"github.com/tyx3211/edgeserve/internal/router"
	"github.com/tyx3211/edgeserve/internal/static"
	"github.com/tyx3211/edgeserve/internal/urlutil"
)

// Dispatcher wires the router and static responder together.
type Dispatcher struct {
	Router *router.Router
	Static *static.Responder
}

// New constructs a Dispatcher.
func New(r *router.Router, s *static.Responder) *Dispatcher {
	return &Dispatcher{Router: r, Static: s}
}

// Run dispatches a connection that has just reached StateComplete.
// Precondition: conn.State() == StateComplete.
func (d *Dispatcher) Run(conn *httpcore.Connection) {
	req := &conn.Request

	if req.HasQuery {
		urlutil.SplitParams(req.RawQuery, urlutil.DecodeForm, req.QueryParams.Add)
	}

	body := conn.Body()
	if ct, ok := req.Header("Content-Type"); ok {
		switch {
		case strings.Contains(ct, "application/x-www-form-urlencoded"):
			urlutil.SplitParams(string(body), urlutil.DecodeForm, req.BodyParams.Add)
		case strings.Contains(ct, "application/json"):
			if doc, err := jsonutil.Decode(body); err == nil {
				req.JSON = doc
				req.HasJSON = true
			}
		}
	}

	d.invoke(conn, body)

	conn.SetStateSending()
}

// invoke performs the body sentinel around the handler call: it
// temporarily NUL-terminates the body window so
// handlers ported from a NUL-terminated-string convention keep working,
// then restores the original byte once the handler returns.
func (d *Dispatcher) invoke(conn *httpcore.Connection, body []byte) {
	restore, had := conn.ArmBodySentinel()
	defer func() {
		if had {
			conn.DisarmBodySentinel(restore)
		}
	}()

	if h, ok := d.Router.Find(conn.Request.Method, conn.Request.Path); ok {
		h(conn)
		return
	}
	if conn.Request.Method == "GET" || conn.Request.Method == "HEAD" {
		d.Static.Serve(conn, conn.Request.Method, conn.Request.Path)
		return
	}
	writeNotImplemented(conn)
}

func writeNotImplemented(conn *httpcore.Connection) {
	const body = "Not Implemented"
	head := "HTTP/1.1 501 Not Implemented\r\nContent-Length: 15\r\nContent-Type: text/plain\r\n\r\n"
	conn.Queue([]byte(head))
	conn.Queue([]byte(body))
	conn.SetStatus(501)
}
