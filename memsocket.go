package enet

// MemorySocket is an in-memory Socket implementation modeled on the
// reference implementation's ReadWrite type (original_source/src/read_write.rs):
// it never touches a real network interface, so two Hosts can be
// driven against each other (or against a scripted test double)
// entirely in-process. Init never fails.
//
// MemorySocket is also useful outside of tests: any application that
// already demultiplexes raw datagrams itself (e.g. one UDP socket
// shared by several protocols) can feed MemorySocket.Write from its
// own receive loop and drain MemorySocket.Read into its own send path,
// instead of implementing the Socket interface directly.
type MemorySocket[A Address] struct {
	inbound  []memDatagram[A]
	outbound []memDatagram[A]
	err      error
}

type memDatagram[A Address] struct {
	addr A
	data []byte
}

// NewMemorySocket creates an empty, unconnected MemorySocket.
func NewMemorySocket[A Address]() *MemorySocket[A] {
	return &MemorySocket[A]{}
}

// Write enqueues a datagram for the Host to receive on its next
// Service call, as if it arrived from address.
func (s *MemorySocket[A]) Write(address A, buffer []byte) {
	cp := make([]byte, len(buffer))
	copy(cp, buffer)
	s.inbound = append(s.inbound, memDatagram[A]{addr: address, data: cp})
}

// Read dequeues the next datagram the Host wants to send, in FIFO
// order, or reports ok=false when there is none pending.
func (s *MemorySocket[A]) Read() (address A, data []byte, ok bool) {
	if len(s.outbound) == 0 {
		return address, nil, false
	}
	d := s.outbound[0]
	s.outbound = s.outbound[1:]
	return d.addr, d.data, true
}

// SetError arranges for the next Receive call to fail with err,
// surfacing through Host.Service as a *ServiceError (§7, tier 3).
func (s *MemorySocket[A]) SetError(err error) {
	s.err = err
}

func (s *MemorySocket[A]) Init(SocketOptions) error { return nil }

func (s *MemorySocket[A]) Send(address A, buffer []byte) (int, error) {
	cp := make([]byte, len(buffer))
	copy(cp, buffer)
	s.outbound = append(s.outbound, memDatagram[A]{addr: address, data: cp})
	return len(buffer), nil
}

func (s *MemorySocket[A]) Receive(buffer *[MTUMax]byte) (A, PacketReceived, bool, error) {
	var zero A
	if s.err != nil {
		err := s.err
		s.err = nil
		return zero, PacketReceived{}, false, err
	}
	if len(s.inbound) == 0 {
		return zero, PacketReceived{}, false, nil
	}
	d := s.inbound[0]
	s.inbound = s.inbound[1:]
	if len(d.data) > MTUMax {
		return d.addr, PacketReceived{N: len(d.data), Complete: false}, true, nil
	}
	n := copy(buffer[:], d.data)
	return d.addr, PacketReceived{N: n, Complete: true}, true, nil
}

// Pipe moves every datagram currently queued for delivery out of from
// and into to's inbound queue, i.e. it delivers from's outbound
// traffic to to. Callers build loss/reorder simulation on top of this
// by filtering which datagrams get piped on a given tick.
func Pipe[A Address](from, to *MemorySocket[A]) {
	for {
		addr, data, ok := from.Read()
		if !ok {
			return
		}
		to.Write(addr, data)
	}
}

// MemorySocketPair returns two fresh, unconnected MemorySockets meant
// to back a pair of Hosts talking to each other. Callers drive traffic
// between them with Pipe in both directions once per Service pass;
// this is just the two-socket allocation a caller would otherwise
// repeat at every call site.
func MemorySocketPair[A Address]() (*MemorySocket[A], *MemorySocket[A]) {
	return NewMemorySocket[A](), NewMemorySocket[A]()
}
