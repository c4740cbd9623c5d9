// Package nettune applies the handful of socket options the reactor
// cares about, adapted from
// shockwave/pkg/shockwave/socket/tuning_linux.go (SO_REUSEADDR,
// TCP_NODELAY, TCP_QUICKACK) onto the raw, non-blocking file descriptors
// the event loop manages directly instead of net.Listener/net.Conn.
package nettune

import "golang.org/x/sys/unix"

// ApplyListener sets SO_REUSEADDR on the listening socket, so the
// reactor can rebind the configured port across quick restarts.
func ApplyListener(fd int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// ApplyAccepted applies shockwave's best-effort low-latency options to
// a freshly accepted connection socket: TCP_NODELAY (disable Nagle,
// since an HTTP/1.1 origin server wants request/response bytes flushed
// promptly) and TCP_QUICKACK (disable delayed-ACK). Both are advisory;
// failures are non-fatal, matching shockwave's "_ = syscall..." style.
func ApplyAccepted(fd int) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1)
}
