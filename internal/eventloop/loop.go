// Package eventloop implements a single listening socket, a single
// edge-triggered epoll instance, and one goroutine that is the only
// reader/writer of any Connection: one thread, one notifier, one
// accept socket. It is the one component with no direct analogue
// among the retrieved examples — the pack's HTTP
// servers (including shockwave's http11+server pair) are goroutine-per-
// connection over blocking net.Conn — so it is built directly on
// golang.org/x/sys/unix, the same low-level syscall surface
// shockwave/pkg/shockwave/socket already uses for TCP tuning and
// sendfile(2) (see DESIGN.md).
package eventloop

import (
	"errors"
	"fmt"
	"net"

	"github.com/tyx3211/edgeserve/internal/config"
	"github.com/tyx3211/edgeserve/internal/dispatch"
	"github.com/tyx3211/edgeserve/internal/httpcore"
	"github.com/tyx3211/edgeserve/internal/logging"
	"github.com/tyx3211/edgeserve/internal/nettune"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const maxEvents = 256
const readChunk = 4096

// Loop is the single-threaded reactor.
type Loop struct {
	epfd       int
	listenFd   int
	dispatcher *dispatch.Dispatcher
	logger     *logging.Logger
	level      config.LogLevel

	conns map[int]*httpcore.Connection
}

// New creates the listening socket and the epoll instance, but does not
// start accepting yet.
func New(port int, dispatcher *dispatch.Dispatcher, logger *logging.Logger, level config.LogLevel) (*Loop, error) {
	listenFd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("eventloop: socket: %w", err)
	}
	if err := nettune.ApplyListener(listenFd); err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("eventloop: setsockopt: %w", err)
	}
	addr := &unix.SockaddrInet4{Port: port}
	if err := unix.Bind(listenFd, addr); err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("eventloop: bind: %w", err)
	}
	if err := unix.Listen(listenFd, 1024); err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("eventloop: listen: %w", err)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(listenFd)
		return nil, fmt.Errorf("eventloop: epoll_create1: %w", err)
	}

	l := &Loop{
		epfd:       epfd,
		listenFd:   listenFd,
		dispatcher: dispatcher,
		logger:     logger,
		level:      level,
		conns:      make(map[int]*httpcore.Connection),
	}

	if err := l.epollAdd(listenFd, unix.EPOLLIN); err != nil {
		unix.Close(epfd)
		unix.Close(listenFd)
		return nil, err
	}
	return l, nil
}

// Run enters the wait loop. It only returns on an unrecoverable
// EpollWait error.
func (l *Loop) Run() error {
	events := make([]unix.EpollEvent, maxEvents)
	for {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("eventloop: epoll_wait: %w", err)
		}
		for i := 0; i < n; i++ {
			ev := events[i]
			fd := int(ev.Fd)

			if fd == l.listenFd {
				l.acceptStorm()
				continue
			}

			conn, ok := l.conns[fd]
			if !ok {
				continue
			}

			if ev.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0 && ev.Events&unix.EPOLLIN == 0 {
				l.destroy(conn, peerClosed())
				continue
			}
			if ev.Events&unix.EPOLLIN != 0 {
				l.handleReadable(conn)
				// handleReadable may have destroyed conn; guard re-lookup.
				if _, stillOpen := l.conns[fd]; !stillOpen {
					continue
				}
			}
			if ev.Events&unix.EPOLLOUT != 0 {
				l.handleWritable(conn)
			}
		}
	}
}

// acceptStorm accepts repeatedly until EAGAIN/EWOULDBLOCK, since a
// single edge-triggered readiness notification on the listening socket
// can represent more than one pending connection.
func (l *Loop) acceptStorm() {
	for {
		fd, sa, err := unix.Accept4(l.listenFd, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			l.logger.LogSystem(l.level, "accept failed", zap.Error(err))
			return
		}

		peerIP := presentationIP(sa)
		nettune.ApplyAccepted(fd)

		conn := httpcore.NewConnection(fd, peerIP)
		l.conns[fd] = conn

		if err := l.epollAdd(fd, unix.EPOLLIN|unix.EPOLLRDHUP); err != nil {
			l.destroy(conn, ioFatal(err))
			continue
		}
	}
}

// handleReadable drains a client socket on a readability edge.
func (l *Loop) handleReadable(conn *httpcore.Connection) {
	var scratch [readChunk]byte
	for {
		n, err := unix.Read(conn.Fd, scratch[:])
		if n > 0 {
			if feedErr := conn.FeedRead(scratch[:n]); feedErr != nil {
				l.writeTooLarge(conn)
				return
			}
		}
		if err == nil && n > 0 {
			continue
		}
		if n == 0 && err == nil {
			l.destroy(conn, peerClosed())
			return
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			l.destroy(conn, ioFatal(err))
			return
		}
	}
	l.advanceAndDispatch(conn)
}

// advanceAndDispatch drives the parser and, on Complete, runs dispatch —
// the same sequence used both from handleReadable and from the
// synchronous pipelined re-entry in onDrained.
func (l *Loop) advanceAndDispatch(conn *httpcore.Connection) {
	if err := conn.Advance(); err != nil {
		cerr := &httpcore.ConnError{Err: err}
		l.logger.LogSystem(l.level, "parse error, closing connection",
			zap.String("remote", conn.PeerIP), zap.Error(cerr))
		l.destroy(conn, cerr)
		return
	}
	if conn.State() != httpcore.StateComplete {
		return
	}

	method, uri := conn.Request.Method, conn.Request.RawURI
	l.dispatcher.Run(conn)
	l.logger.LogAccess(conn.PeerIP, method, uri, conn.LastStatus)

	if err := l.rearmWrite(conn); err != nil {
		l.destroy(conn, ioFatal(err))
		return
	}
	// If nothing was queued (handler wrote nothing), there is no
	// writable edge coming; drain immediately so keep-alive still runs.
	if !conn.WantWrite {
		l.onDrained(conn)
	}
}

func (l *Loop) writeTooLarge(conn *httpcore.Connection) {
	const body = "Request Entity Too Large"
	head := fmt.Sprintf("HTTP/1.1 413 Request Entity Too Large\r\nContent-Length: %d\r\nConnection: close\r\n\r\n", len(body))
	conn.Queue([]byte(head))
	conn.Queue([]byte(body))
	conn.Request.KeepAlive = false
	if err := l.rearmWrite(conn); err != nil {
		l.destroy(conn, ioFatal(err))
	}
}

// handleWritable drains the pending write queue on a writability edge.
func (l *Loop) handleWritable(conn *httpcore.Connection) {
	for !conn.WriteDrained() {
		pending := conn.PendingWrite()
		n, err := unix.Write(conn.Fd, pending)
		if n > 0 {
			conn.AdvanceWriteCursor(n)
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			l.destroy(conn, ioFatal(err))
			return
		}
	}
	l.onDrained(conn)
}

// onDrained runs once the write buffer is fully flushed: decide close
// vs. reset-and-resynchronously-reparse.
func (l *Loop) onDrained(conn *httpcore.Connection) {
	if !conn.OnDrained() {
		l.destroy(conn, nil)
		return
	}
	if err := l.epollMod(conn.Fd, unix.EPOLLIN|unix.EPOLLRDHUP); err != nil {
		l.destroy(conn, ioFatal(err))
		return
	}
	if conn.HasBufferedRequest() {
		l.advanceAndDispatch(conn)
	}
}

func (l *Loop) rearmWrite(conn *httpcore.Connection) error {
	if !conn.WantWrite {
		return nil
	}
	return l.epollMod(conn.Fd, unix.EPOLLIN|unix.EPOLLOUT|unix.EPOLLRDHUP)
}

func (l *Loop) destroy(conn *httpcore.Connection, cause error) {
	if cause != nil {
		var cerr *httpcore.ConnError
		if errors.As(cause, &cerr) {
			l.logger.LogSystem(l.level, "connection destroyed",
				zap.String("remote", conn.PeerIP),
				zap.Error(cerr.Err), zap.String("detail", cerr.Detail))
		} else {
			l.logger.LogSystem(l.level, "connection destroyed",
				zap.String("remote", conn.PeerIP), zap.Error(cause))
		}
	}
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, conn.Fd, nil)
	delete(l.conns, conn.Fd)
	unix.Close(conn.Fd)
}

// peerClosed classifies a peer-close condition (read() returning 0, or
// an EPOLLHUP/EPOLLRDHUP/EPOLLERR notification with no pending read) as
// the httpcore.ErrPeerClosed sentinel.
func peerClosed() error {
	return &httpcore.ConnError{Err: httpcore.ErrPeerClosed}
}

// ioFatal classifies a read/write/epoll_ctl syscall error other than
// EAGAIN/EWOULDBLOCK as the httpcore.ErrIO sentinel, keeping the raw
// errno text as Detail for the structured log line.
func ioFatal(err error) error {
	return &httpcore.ConnError{Err: httpcore.ErrIO, Detail: err.Error()}
}

func (l *Loop) epollAdd(fd int, events uint32) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: events | unix.EPOLLET,
		Fd:     int32(fd),
	})
}

func (l *Loop) epollMod(fd int, events uint32) error {
	return unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events | unix.EPOLLET,
		Fd:     int32(fd),
	})
}

// presentationIP converts an accept() sockaddr into the client's
// presentation-form IP address.
func presentationIP(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(addr.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(addr.Addr[:]).String()
	default:
		return "unknown"
	}
}
