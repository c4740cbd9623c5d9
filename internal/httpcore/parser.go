package httpcore

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tyx3211/edgeserve/internal/urlutil"
)

// crlf is searched for explicitly rather than accepting a lone '\n':
// a lone '\n' without '\r' is not accepted as a line terminator.
var crlf = []byte("\r\n")

// Advance drives the incremental parser. It is idempotent and
// re-entrant on any state: it consumes as much of the read buffer as
// it can and returns when a state declines to make further progress
// (more bytes needed), when it reaches Complete, or when it hits a
// parse-fatal error. Called whenever new bytes have arrived, and once
// synchronously from the keep-alive controller for pipelined requests
// already sitting in the buffer.
func (c *Connection) Advance() error {
	for {
		switch c.state {
		case StateReqLine:
			ok, err := c.parseRequestLine()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		case StateHeaders:
			ok, done, err := c.parseOneHeaderLine()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if done {
				if c.Request.ContentLength > 0 {
					c.state = StateBody
				} else {
					c.state = StateComplete
					return nil
				}
			}
		case StateBody:
			if !c.tryConsumeBody() {
				return nil
			}
			c.state = StateComplete
			return nil
		case StateComplete, StateSending:
			// Parser yields control; SENDING never re-enters the parser,
			// and COMPLETE is handled by the dispatch layer.
			return nil
		}
	}
}

// parseRequestLine implements the REQ_LINE state.
func (c *Connection) parseRequestLine() (advanced bool, err error) {
	line, _, found := cutLine(c.readBuf.unread())
	if !found {
		return false, nil
	}
	consumed := len(line) + 2

	fields := strings.Split(string(line), " ")
	if len(fields) != 3 {
		return false, ErrInvalidRequestLine
	}
	method, target, version := fields[0], fields[1], fields[2]

	var minor int
	switch version {
	case "HTTP/1.0":
		minor = 0
	case "HTTP/1.1":
		minor = 1
	default:
		return false, ErrInvalidVersion
	}

	c.Request.Method = method
	c.Request.RawURI = target
	c.Request.MinorVersion = minor
	c.Request.KeepAlive = minor == 1

	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		c.Request.Path = urlutil.Decode(target[:idx])
		c.Request.RawQuery = target[idx+1:]
		c.Request.HasQuery = true
		c.Request.DecodedQuery = urlutil.Decode(target[idx+1:])
	} else {
		c.Request.Path = urlutil.Decode(target)
	}

	c.readBuf.cursor += consumed
	c.state = StateHeaders
	return true, nil
}

// parseOneHeaderLine implements one iteration of the HEADERS state: it
// consumes exactly one header line (or the terminating blank
// line) if a full CRLF-terminated line is available.
func (c *Connection) parseOneHeaderLine() (advanced bool, headersDone bool, err error) {
	line, _, found := cutLine(c.readBuf.unread())
	if !found {
		return false, false, nil
	}
	consumed := len(line) + 2
	c.readBuf.cursor += consumed

	if len(line) == 0 {
		return true, true, nil
	}

	colon := bytes.IndexByte(line, ':')
	if colon < 0 {
		// Header names containing no colon are skipped silently.
		return true, false, nil
	}
	name := strings.TrimSpace(string(line[:colon]))
	value := leftTrimSpace(line[colon+1:])

	if strings.EqualFold(name, "Content-Length") {
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n < 0 {
			return false, false, ErrInvalidContentLen
		}
		c.Request.ContentLength = n
	}
	if strings.EqualFold(name, "Connection") {
		switch {
		case strings.EqualFold(value, "close"):
			c.Request.KeepAlive = false
		case strings.EqualFold(value, "keep-alive"):
			c.Request.KeepAlive = true
		}
	}

	c.Request.Headers.add(name, value)
	return true, false, nil
}

// tryConsumeBody implements the BODY state.
func (c *Connection) tryConsumeBody() bool {
	if c.readBuf.length-c.readBuf.cursor < c.Request.ContentLength {
		return false
	}
	c.Request.bodyOffset = c.readBuf.cursor
	c.readBuf.cursor += c.Request.ContentLength
	return true
}

// cutLine finds the first CRLF at or after the read cursor within data
// and returns the line (without CRLF), the remainder after CRLF, and
// whether a CRLF was found at all.
func cutLine(data []byte) (line, rest []byte, found bool) {
	idx := bytes.Index(data, crlf)
	if idx < 0 {
		return nil, data, false
	}
	return data[:idx], data[idx+2:], true
}

// leftTrimSpace is a single-pass left-trim of ASCII space on header
// values (OWS before the value only).
func leftTrimSpace(b []byte) string {
	i := 0
	for i < len(b) && b[i] == ' ' {
		i++
	}
	return string(b[i:])
}
