package enet

import (
	"errors"
	"net"
	"time"
)

// MTUMax bounds the fixed receive buffer every Socket implementation
// reads into; it is one byte larger than ProtocolMaximumMTU so a
// datagram that exactly fills the configured MTU is never mistaken
// for a truncated one.
const MTUMax = ProtocolMaximumMTU + 1

// Address is any comparable, hashable value a Socket uses to name a
// peer. net.UDPAddr does not satisfy comparable directly (it embeds a
// slice), so UDPSocket represents addresses as their string form.
type Address interface {
	comparable
}

// SocketOptions carries transport hints passed to Socket.Init.
type SocketOptions struct {
	ReceiveBufferSize int
	SendBufferSize    int
}

// PacketReceived is the result of a successful Socket.Receive call.
type PacketReceived struct {
	// N is the number of bytes written into the caller's buffer when
	// Complete is true. When Complete is false the datagram did not
	// fit MTUMax and the caller must drop it (§4.2).
	N        int
	Complete bool
}

// Socket is the datagram transport capability the Host requires. The
// host never calls these methods from multiple goroutines at once.
type Socket[A Address] interface {
	// Init prepares the socket for use. Called once from NewHost.
	Init(options SocketOptions) error

	// Send writes buffer to address without blocking. A transport
	// that would need to block returns (0, nil) — not an error.
	Send(address A, buffer []byte) (int, error)

	// Receive reads the next pending datagram into buffer, without
	// blocking. It returns (zero value, false, nil) when nothing is
	// pending.
	Receive(buffer *[MTUMax]byte) (A, PacketReceived, bool, error)
}

// UDPSocket implements Socket over a real net.UDPConn, addressing
// peers by the string form of their net.UDPAddr (so Address can stay
// comparable without the host needing to know about net.UDPAddr's
// internal slice field).
type UDPSocket struct {
	conn *net.UDPConn
	addr *net.UDPAddr
}

// NewUDPSocket binds a UDP socket at laddr. The returned socket's
// Init must still be called (by NewHost) before use.
func NewUDPSocket(laddr *net.UDPAddr) (*UDPSocket, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, err
	}
	return &UDPSocket{conn: conn, addr: laddr}, nil
}

func (s *UDPSocket) Init(options SocketOptions) error {
	if options.ReceiveBufferSize > 0 {
		_ = s.conn.SetReadBuffer(options.ReceiveBufferSize)
	}
	if options.SendBufferSize > 0 {
		_ = s.conn.SetWriteBuffer(options.SendBufferSize)
	}
	return nil
}

func (s *UDPSocket) Send(address string, buffer []byte) (int, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return 0, err
	}
	_ = s.conn.SetWriteDeadline(time.Now())
	n, err := s.conn.WriteToUDP(buffer, udpAddr)
	if err != nil {
		if isWouldBlock(err) {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (s *UDPSocket) Receive(buffer *[MTUMax]byte) (string, PacketReceived, bool, error) {
	_ = s.conn.SetReadDeadline(time.Now())
	n, addr, err := s.conn.ReadFromUDP(buffer[:])
	if err != nil {
		if isWouldBlock(err) {
			return "", PacketReceived{}, false, nil
		}
		return "", PacketReceived{}, false, err
	}
	return addr.String(), PacketReceived{N: n, Complete: n < MTUMax}, true, nil
}

// Close releases the underlying UDP socket.
func (s *UDPSocket) Close() error { return s.conn.Close() }

func isWouldBlock(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
