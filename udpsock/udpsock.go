// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: udpsock.go — Minimal raw-fd UDP socket helper
//
// Purpose:
//   - Thin wrapper over an AF_INET/SOCK_DGRAM file descriptor for the L2
//     datagram publisher and its receivers.
//   - Numeric-IPv4-first destination resolution with a DNS fallback
//     (IPv4 only — the wire format is defined for this pipeline's own
//     tooling, not general internet service).
//
// Notes:
//   - Boolean/error returns throughout; no panics, no retries.
//   - The core pipeline does not depend on this package; it is an external
//     collaborator surface.
// ─────────────────────────────────────────────────────────────────────────────

package udpsock

import (
	"errors"
	"net"
	"syscall"
)

var errNoIPv4 = errors.New("udpsock: host has no IPv4 address")

// Socket wraps one UDP file descriptor.
type Socket struct {
	fd int
}

// New opens an AF_INET datagram socket.
func New() (*Socket, error) {
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_DGRAM, 0)
	if err != nil {
		return nil, err
	}
	return &Socket{fd: fd}, nil
}

// Fd exposes the raw descriptor for callers that poll it directly.
func (s *Socket) Fd() int { return s.fd }

// SetSendBuffer resizes the kernel send buffer.
func (s *Socket) SetSendBuffer(bytes int) error {
	return syscall.SetsockoptInt(s.fd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, bytes)
}

// EnableReuseAddr allows rebinding a recently used port.
func (s *Socket) EnableReuseAddr() error {
	return syscall.SetsockoptInt(s.fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
}

// BindAny binds the socket to INADDR_ANY on the given port.
func (s *Socket) BindAny(port int) error {
	addr := syscall.SockaddrInet4{Port: port}
	return syscall.Bind(s.fd, &addr)
}

// ResolveDestination builds a send address for host:port. The host is
// parsed as numeric IPv4 first, then resolved via DNS; only IPv4 records
// are accepted.
func ResolveDestination(host string, port int) (syscall.SockaddrInet4, error) {
	dst := syscall.SockaddrInet4{Port: port}

	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			copy(dst.Addr[:], v4)
			return dst, nil
		}
		return dst, errNoIPv4
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return dst, err
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			copy(dst.Addr[:], v4)
			return dst, nil
		}
	}
	return dst, errNoIPv4
}

// SendTo transmits one datagram to dst.
func (s *Socket) SendTo(b []byte, dst *syscall.SockaddrInet4) error {
	return syscall.Sendto(s.fd, b, 0, dst)
}

// RecvFrom reads one datagram into b, returning its length.
func (s *Socket) RecvFrom(b []byte) (int, error) {
	n, _, err := syscall.Recvfrom(s.fd, b, 0)
	return n, err
}

// Close releases the descriptor. Safe to call twice.
func (s *Socket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := syscall.Close(s.fd)
	s.fd = -1
	return err
}
