package httpcore

// ParseState is one of the five states the per-connection parser moves
// through.
type ParseState int

const (
	StateReqLine ParseState = iota
	StateHeaders
	StateBody
	StateComplete
	StateSending
)

func (s ParseState) String() string {
	switch s {
	case StateReqLine:
		return "REQ_LINE"
	case StateHeaders:
		return "HEADERS"
	case StateBody:
		return "BODY"
	case StateComplete:
		return "COMPLETE"
	case StateSending:
		return "SENDING"
	default:
		return "UNKNOWN"
	}
}

// MaxReadBuffer is the implementation-chosen cap on read-buffer growth
// (see DESIGN.md's open-question decisions).
const MaxReadBuffer = 1 << 20 // 1 MiB

// Connection is one accepted socket's worth of state: read/write buffers,
// parser state, and the embedded, reset-between-requests Request. Only
// the event-loop goroutine ever touches a Connection.
type Connection struct {
	Fd     int
	PeerIP string

	readBuf  *buffer
	writeBuf *buffer
	state    ParseState

	Request Request

	// WantWrite reports whether the event loop should keep EPOLLOUT
	// armed for this connection (set by Queue, cleared once the write
	// buffer fully drains).
	WantWrite bool

	// LastStatus is the status code of the response most recently queued
	// via SetStatus, for the access log. Zero until the first response.
	LastStatus int
}

// NewConnection constructs a Connection for a freshly accepted socket.
func NewConnection(fd int, peerIP string) *Connection {
	return &Connection{
		Fd:       fd,
		PeerIP:   peerIP,
		readBuf:  newBuffer(),
		writeBuf: newBuffer(),
		state:    StateReqLine,
	}
}

// State returns the current parse state.
func (c *Connection) State() ParseState { return c.state }

// FeedRead appends newly read bytes to the read buffer. It returns
// ErrBufferCapExceeded once growth would exceed MaxReadBuffer.
func (c *Connection) FeedRead(p []byte) error {
	if c.readBuf.length+len(p) > MaxReadBuffer {
		return ErrBufferCapExceeded
	}
	c.readBuf.append(p)
	return nil
}

// Queue appends bytes to the outbound buffer and arms WantWrite.
// Multiple calls before any flush accumulate.
func (c *Connection) Queue(p []byte) {
	c.writeBuf.append(p)
	if c.writeBuf.length > c.writeBuf.cursor {
		c.WantWrite = true
	}
}

// SetStatus records the status code of the response a handler or the
// static responder just queued, for the access log.
func (c *Connection) SetStatus(status int) {
	c.LastStatus = status
}

// PendingWrite returns the slice of queued bytes not yet sent.
func (c *Connection) PendingWrite() []byte {
	return c.writeBuf.unread()
}

// AdvanceWriteCursor records that n more bytes were flushed to the
// socket.
func (c *Connection) AdvanceWriteCursor(n int) {
	c.writeBuf.cursor += n
}

// WriteDrained reports whether the outbound buffer has been fully sent.
func (c *Connection) WriteDrained() bool {
	return c.writeBuf.cursor >= c.writeBuf.length
}

// Body returns the request body window: a slice into the read buffer,
// never copied.
func (c *Connection) Body() []byte {
	if c.Request.ContentLength == 0 {
		return nil
	}
	start := c.Request.bodyOffset
	end := start + c.Request.ContentLength
	return c.readBuf.data[start:end]
}

// Reset prepares the connection for the next request: frees the
// Request's owned data, compacts the read buffer, clears the write
// buffer, and returns the parser to REQ_LINE.
func (c *Connection) Reset() {
	c.Request.reset()
	c.readBuf.compact()
	c.writeBuf.clear()
	c.WantWrite = false
	c.LastStatus = 0
	c.state = StateReqLine
}

// SetStateSending transitions the connection to Sending: the dispatch
// layer sets this once a handler or the static responder has returned.
func (c *Connection) SetStateSending() {
	c.state = StateSending
}

// ArmBodySentinel implements the body sentinel: it saves the byte
// immediately after the body window (the first byte of a pipelined
// request, or an in-capacity free byte) and overwrites it with NUL so
// the body is a NUL-terminated string for the duration of a handler
// call. had is false when there is no body (nothing to sentinel).
func (c *Connection) ArmBodySentinel() (saved byte, had bool) {
	idx := c.Request.bodyOffset + c.Request.ContentLength
	if c.Request.ContentLength == 0 || idx >= len(c.readBuf.data) {
		return 0, false
	}
	saved = c.readBuf.data[idx]
	c.readBuf.data[idx] = 0
	return saved, true
}

// DisarmBodySentinel restores the byte ArmBodySentinel saved.
func (c *Connection) DisarmBodySentinel(saved byte) {
	idx := c.Request.bodyOffset + c.Request.ContentLength
	if idx < len(c.readBuf.data) {
		c.readBuf.data[idx] = saved
	}
}

// OnDrained implements the keep-alive decision, minus the "destroy the
// connection" branch (the event loop owns the fd and the epoll
// registration, so it performs the actual close). It reports whether
// the caller should keep the connection open: false means the caller
// must close it; true means Reset has already run and, if
// HasBufferedRequest is now true, the caller must synchronously
// re-enter Advance — a mandatory pipelined-request re-entry, since the
// edge that delivered those bytes has already fired.
func (c *Connection) OnDrained() (keepAlive bool) {
	if !c.Request.KeepAlive {
		return false
	}
	c.Reset()
	return true
}

// HasBufferedRequest reports whether, after compaction, there are bytes
// left over from a pipelined request already sitting in the read
// buffer — the synchronous re-entry condition.
func (c *Connection) HasBufferedRequest() bool {
	return c.readBuf.length > c.readBuf.cursor
}
