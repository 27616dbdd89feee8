package wire

// Command is the decoded form of one protocol command: the common
// header plus whichever trailer fields its Header.Type defines.
// Mirrors the reference ENet union-of-structs layout as one flattened
// Go struct — the engine's hot loop switches on Header.Type rather
// than paying for per-command dynamic dispatch (see design notes).
type Command struct {
	Header CommandHeader

	// Acknowledge
	ReceivedReliableSequenceNumber uint16
	ReceivedSentTime               uint16

	// Connect / VerifyConnect
	OutgoingPeerID            uint16
	IncomingSessionID         uint8
	OutgoingSessionID         uint8
	MTU                       uint32
	WindowSize                uint32
	ChannelCount              uint32
	IncomingBandwidth         uint32
	OutgoingBandwidth         uint32
	PacketThrottleInterval    uint32
	PacketThrottleAcceleration uint32
	PacketThrottleDeceleration uint32
	ConnectID                 uint32
	ConnectData               uint32

	// Disconnect
	DisconnectData uint32

	// SendUnreliable
	UnreliableSequenceNumber uint16

	// SendUnsequenced
	UnsequencedGroup uint16

	// SendFragment / SendUnreliableFragment
	StartSequenceNumber uint16
	FragmentCount       uint32
	FragmentNumber      uint32
	TotalLength         uint32
	FragmentOffset      uint32

	// BandwidthLimit
	BandwidthIncoming uint32
	BandwidthOutgoing uint32

	// ThrottleConfigure
	ThrottleInterval     uint32
	ThrottleAcceleration uint32
	ThrottleDeceleration uint32

	// SendReliable / SendUnreliable / SendUnsequenced / SendFragment*
	Payload []byte
}

// EncodeAcknowledge appends an Acknowledge command to buf.
func EncodeAcknowledge(buf []byte, channelID uint8, receivedReliableSeq, receivedSentTime uint16) []byte {
	h := CommandHeader{Type: CommandAcknowledge, ChannelID: channelID}
	buf = h.Encode(buf)
	buf = appendUint16(buf, receivedReliableSeq)
	return appendUint16(buf, receivedSentTime)
}

// ConnectFields groups the parameters shared by Connect and
// VerifyConnect, which mirror each other field-for-field.
type ConnectFields struct {
	OutgoingPeerID             uint16
	IncomingSessionID          uint8
	OutgoingSessionID          uint8
	MTU                        uint32
	WindowSize                 uint32
	ChannelCount               uint32
	IncomingBandwidth          uint32
	OutgoingBandwidth          uint32
	PacketThrottleInterval     uint32
	PacketThrottleAcceleration uint32
	PacketThrottleDeceleration uint32
	ConnectID                  uint32
	Data                       uint32
}

func encodeConnectFields(buf []byte, f ConnectFields) []byte {
	buf = appendUint16(buf, f.OutgoingPeerID)
	buf = append(buf, f.IncomingSessionID, f.OutgoingSessionID)
	buf = appendUint32(buf, f.MTU)
	buf = appendUint32(buf, f.WindowSize)
	buf = appendUint32(buf, f.ChannelCount)
	buf = appendUint32(buf, f.IncomingBandwidth)
	buf = appendUint32(buf, f.OutgoingBandwidth)
	buf = appendUint32(buf, f.PacketThrottleInterval)
	buf = appendUint32(buf, f.PacketThrottleAcceleration)
	buf = appendUint32(buf, f.PacketThrottleDeceleration)
	buf = appendUint32(buf, f.ConnectID)
	return appendUint32(buf, f.Data)
}

func decodeConnectFields(buf []byte) (ConnectFields, int, error) {
	const size = 2 + 1 + 1 + 4*10
	if len(buf) < size {
		return ConnectFields{}, 0, ErrTruncated
	}
	f := ConnectFields{
		OutgoingPeerID:    readUint16(buf[0:2]),
		IncomingSessionID: buf[2],
		OutgoingSessionID: buf[3],
	}
	o := 4
	read := func() uint32 {
		v := readUint32(buf[o : o+4])
		o += 4
		return v
	}
	f.MTU = read()
	f.WindowSize = read()
	f.ChannelCount = read()
	f.IncomingBandwidth = read()
	f.OutgoingBandwidth = read()
	f.PacketThrottleInterval = read()
	f.PacketThrottleAcceleration = read()
	f.PacketThrottleDeceleration = read()
	f.ConnectID = read()
	f.Data = read()
	return f, size, nil
}

// EncodeConnect appends a Connect command to buf.
func EncodeConnect(buf []byte, reliableSeq uint16, f ConnectFields) []byte {
	h := CommandHeader{Type: CommandConnect, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	return encodeConnectFields(buf, f)
}

// EncodeVerifyConnect appends a VerifyConnect command to buf.
func EncodeVerifyConnect(buf []byte, reliableSeq uint16, f ConnectFields) []byte {
	h := CommandHeader{Type: CommandVerifyConnect, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	return encodeConnectFields(buf, f)
}

// EncodeDisconnect appends a Disconnect command to buf.
func EncodeDisconnect(buf []byte, reliableSeq uint16, reliable bool, data uint32) []byte {
	h := CommandHeader{Type: CommandDisconnect, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	_ = reliable
	buf = h.Encode(buf)
	return appendUint32(buf, data)
}

// EncodePing appends a Ping command to buf.
func EncodePing(buf []byte, reliableSeq uint16) []byte {
	h := CommandHeader{Type: CommandPing, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	return h.Encode(buf)
}

// EncodeSendReliable appends a reliable send command to buf.
func EncodeSendReliable(buf []byte, channelID uint8, reliableSeq uint16, payload []byte) []byte {
	h := CommandHeader{Type: CommandSendReliable, ChannelID: channelID, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	buf = appendUint16(buf, uint16(len(payload)))
	return append(buf, payload...)
}

// EncodeSendUnreliable appends an unreliable send command to buf.
func EncodeSendUnreliable(buf []byte, channelID uint8, reliableSeq, unreliableSeq uint16, payload []byte) []byte {
	h := CommandHeader{Type: CommandSendUnreliable, ChannelID: channelID, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	buf = appendUint16(buf, unreliableSeq)
	buf = appendUint16(buf, uint16(len(payload)))
	return append(buf, payload...)
}

// EncodeSendUnsequenced appends an unsequenced send command to buf.
func EncodeSendUnsequenced(buf []byte, channelID uint8, reliableSeq uint16, group uint16, payload []byte) []byte {
	h := CommandHeader{Type: CommandSendUnsequenced, Unsequenced: true, ChannelID: channelID, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	buf = appendUint16(buf, group)
	buf = appendUint16(buf, uint16(len(payload)))
	return append(buf, payload...)
}

// FragmentFields groups the parameters of a fragment trailer shared
// by SendFragment and SendUnreliableFragment.
type FragmentFields struct {
	StartSequenceNumber uint16
	FragmentCount       uint32
	FragmentNumber      uint32
	TotalLength         uint32
	FragmentOffset      uint32
}

// EncodeSendFragment appends a reliable fragment command to buf.
func EncodeSendFragment(buf []byte, channelID uint8, reliableSeq uint16, f FragmentFields, payload []byte) []byte {
	h := CommandHeader{Type: CommandSendFragment, ChannelID: channelID, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	return encodeFragmentTrailer(buf, f, payload)
}

// EncodeSendUnreliableFragment appends an unreliable fragment command to buf.
func EncodeSendUnreliableFragment(buf []byte, channelID uint8, reliableSeq uint16, f FragmentFields, payload []byte) []byte {
	h := CommandHeader{Type: CommandSendUnreliableFragment, ChannelID: channelID, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	return encodeFragmentTrailer(buf, f, payload)
}

func encodeFragmentTrailer(buf []byte, f FragmentFields, payload []byte) []byte {
	buf = appendUint16(buf, f.StartSequenceNumber)
	buf = appendUint16(buf, uint16(len(payload)))
	buf = appendUint32(buf, f.FragmentCount)
	buf = appendUint32(buf, f.FragmentNumber)
	buf = appendUint32(buf, f.TotalLength)
	buf = appendUint32(buf, f.FragmentOffset)
	return append(buf, payload...)
}

// EncodeBandwidthLimit appends a BandwidthLimit command to buf.
func EncodeBandwidthLimit(buf []byte, reliableSeq uint16, incoming, outgoing uint32) []byte {
	h := CommandHeader{Type: CommandBandwidthLimit, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	buf = appendUint32(buf, incoming)
	return appendUint32(buf, outgoing)
}

// EncodeThrottleConfigure appends a ThrottleConfigure command to buf.
func EncodeThrottleConfigure(buf []byte, reliableSeq uint16, interval, accel, decel uint32) []byte {
	h := CommandHeader{Type: CommandThrottleConfigure, ChannelID: 0xFF, ReliableSequenceNumber: reliableSeq}
	buf = h.Encode(buf)
	buf = appendUint32(buf, interval)
	buf = appendUint32(buf, accel)
	return appendUint32(buf, decel)
}

// EncodeCommand appends cmd's wire representation to buf, dispatching
// on cmd.Header.Type. It is the inverse of DecodeCommand and is the
// single call site the engine uses to serialize commands it built up
// as plain Command values (as opposed to the typed Encode* helpers
// above, which remain for direct, single-purpose construction such as
// in tests).
func EncodeCommand(buf []byte, cmd Command) []byte {
	start := len(buf)
	buf = encodeCommandBody(buf, cmd)
	if cmd.Header.Acknowledge && len(buf) > start {
		buf[start] |= commandFlagAck
	}
	return buf
}

func encodeCommandBody(buf []byte, cmd Command) []byte {
	switch cmd.Header.Type {
	case CommandAcknowledge:
		return EncodeAcknowledge(buf, cmd.Header.ChannelID, cmd.ReceivedReliableSequenceNumber, cmd.ReceivedSentTime)
	case CommandConnect:
		return EncodeConnect(buf, cmd.Header.ReliableSequenceNumber, commandConnectFields(cmd))
	case CommandVerifyConnect:
		return EncodeVerifyConnect(buf, cmd.Header.ReliableSequenceNumber, commandConnectFields(cmd))
	case CommandDisconnect:
		return EncodeDisconnect(buf, cmd.Header.ReliableSequenceNumber, cmd.Header.Acknowledge, cmd.DisconnectData)
	case CommandPing:
		return EncodePing(buf, cmd.Header.ReliableSequenceNumber)
	case CommandSendReliable:
		return EncodeSendReliable(buf, cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, cmd.Payload)
	case CommandSendUnreliable:
		return EncodeSendUnreliable(buf, cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, cmd.UnreliableSequenceNumber, cmd.Payload)
	case CommandSendUnsequenced:
		return EncodeSendUnsequenced(buf, cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, cmd.UnsequencedGroup, cmd.Payload)
	case CommandSendFragment:
		return EncodeSendFragment(buf, cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, commandFragmentFields(cmd), cmd.Payload)
	case CommandSendUnreliableFragment:
		return EncodeSendUnreliableFragment(buf, cmd.Header.ChannelID, cmd.Header.ReliableSequenceNumber, commandFragmentFields(cmd), cmd.Payload)
	case CommandBandwidthLimit:
		return EncodeBandwidthLimit(buf, cmd.Header.ReliableSequenceNumber, cmd.BandwidthIncoming, cmd.BandwidthOutgoing)
	case CommandThrottleConfigure:
		return EncodeThrottleConfigure(buf, cmd.Header.ReliableSequenceNumber, cmd.ThrottleInterval, cmd.ThrottleAcceleration, cmd.ThrottleDeceleration)
	default:
		return buf
	}
}

func commandConnectFields(cmd Command) ConnectFields {
	return ConnectFields{
		OutgoingPeerID:             cmd.OutgoingPeerID,
		IncomingSessionID:          cmd.IncomingSessionID,
		OutgoingSessionID:          cmd.OutgoingSessionID,
		MTU:                        cmd.MTU,
		WindowSize:                 cmd.WindowSize,
		ChannelCount:               cmd.ChannelCount,
		IncomingBandwidth:          cmd.IncomingBandwidth,
		OutgoingBandwidth:          cmd.OutgoingBandwidth,
		PacketThrottleInterval:     cmd.PacketThrottleInterval,
		PacketThrottleAcceleration: cmd.PacketThrottleAcceleration,
		PacketThrottleDeceleration: cmd.PacketThrottleDeceleration,
		ConnectID:                  cmd.ConnectID,
		Data:                       cmd.ConnectData,
	}
}

func commandFragmentFields(cmd Command) FragmentFields {
	return FragmentFields{
		StartSequenceNumber: cmd.StartSequenceNumber,
		FragmentCount:       cmd.FragmentCount,
		FragmentNumber:      cmd.FragmentNumber,
		TotalLength:         cmd.TotalLength,
		FragmentOffset:      cmd.FragmentOffset,
	}
}

// DecodeCommand reads one command (header + trailer + payload) from
// the front of buf. channelLimit bounds ChannelID for channel-scoped
// commands. It returns the command and the number of bytes consumed.
// Any malformed command returns ErrTruncated, ErrUnknownCommand,
// ErrInvalidChannel, or ErrInvalidFragment — callers must drop the
// whole datagram, never
// apply a partially-decoded command.
func DecodeCommand(buf []byte, channelLimit uint8) (Command, int, error) {
	header, n, err := DecodeCommandHeader(buf)
	if err != nil {
		return Command{}, 0, err
	}
	if !ValidCommandType(header.Type) {
		return Command{}, 0, ErrUnknownCommand
	}
	if header.ChannelID != 0xFF && header.ChannelID >= channelLimit {
		return Command{}, 0, ErrInvalidChannel
	}
	rest := buf[n:]
	cmd := Command{Header: header}

	switch header.Type {
	case CommandAcknowledge:
		if len(rest) < 4 {
			return Command{}, 0, ErrTruncated
		}
		cmd.ReceivedReliableSequenceNumber = readUint16(rest[0:2])
		cmd.ReceivedSentTime = readUint16(rest[2:4])
		n += 4

	case CommandConnect, CommandVerifyConnect:
		f, used, err := decodeConnectFields(rest)
		if err != nil {
			return Command{}, 0, err
		}
		cmd.OutgoingPeerID = f.OutgoingPeerID
		cmd.IncomingSessionID = f.IncomingSessionID
		cmd.OutgoingSessionID = f.OutgoingSessionID
		cmd.MTU = f.MTU
		cmd.WindowSize = f.WindowSize
		cmd.ChannelCount = f.ChannelCount
		cmd.IncomingBandwidth = f.IncomingBandwidth
		cmd.OutgoingBandwidth = f.OutgoingBandwidth
		cmd.PacketThrottleInterval = f.PacketThrottleInterval
		cmd.PacketThrottleAcceleration = f.PacketThrottleAcceleration
		cmd.PacketThrottleDeceleration = f.PacketThrottleDeceleration
		cmd.ConnectID = f.ConnectID
		cmd.ConnectData = f.Data
		n += used

	case CommandDisconnect:
		if len(rest) < 4 {
			return Command{}, 0, ErrTruncated
		}
		cmd.DisconnectData = readUint32(rest[0:4])
		n += 4

	case CommandPing:
		// no trailer

	case CommandSendReliable:
		if len(rest) < 2 {
			return Command{}, 0, ErrTruncated
		}
		length := int(readUint16(rest[0:2]))
		if len(rest) < 2+length {
			return Command{}, 0, ErrTruncated
		}
		cmd.Payload = rest[2 : 2+length]
		n += 2 + length

	case CommandSendUnreliable:
		if len(rest) < 4 {
			return Command{}, 0, ErrTruncated
		}
		cmd.UnreliableSequenceNumber = readUint16(rest[0:2])
		length := int(readUint16(rest[2:4]))
		if len(rest) < 4+length {
			return Command{}, 0, ErrTruncated
		}
		cmd.Payload = rest[4 : 4+length]
		n += 4 + length

	case CommandSendUnsequenced:
		if len(rest) < 4 {
			return Command{}, 0, ErrTruncated
		}
		cmd.UnsequencedGroup = readUint16(rest[0:2])
		length := int(readUint16(rest[2:4]))
		if len(rest) < 4+length {
			return Command{}, 0, ErrTruncated
		}
		cmd.Payload = rest[4 : 4+length]
		n += 4 + length

	case CommandSendFragment, CommandSendUnreliableFragment:
		if len(rest) < 4 {
			return Command{}, 0, ErrTruncated
		}
		cmd.StartSequenceNumber = readUint16(rest[0:2])
		length := int(readUint16(rest[2:4]))
		o := 4
		if len(rest) < o+16 {
			return Command{}, 0, ErrTruncated
		}
		cmd.FragmentCount = readUint32(rest[o : o+4])
		cmd.FragmentNumber = readUint32(rest[o+4 : o+8])
		cmd.TotalLength = readUint32(rest[o+8 : o+12])
		cmd.FragmentOffset = readUint32(rest[o+12 : o+16])
		o += 16
		if len(rest) < o+length {
			return Command{}, 0, ErrTruncated
		}
		if cmd.FragmentNumber >= cmd.FragmentCount {
			return Command{}, 0, ErrInvalidFragment
		}
		cmd.Payload = rest[o : o+length]
		n += o + length

	case CommandBandwidthLimit:
		if len(rest) < 8 {
			return Command{}, 0, ErrTruncated
		}
		cmd.BandwidthIncoming = readUint32(rest[0:4])
		cmd.BandwidthOutgoing = readUint32(rest[4:8])
		n += 8

	case CommandThrottleConfigure:
		if len(rest) < 12 {
			return Command{}, 0, ErrTruncated
		}
		cmd.ThrottleInterval = readUint32(rest[0:4])
		cmd.ThrottleAcceleration = readUint32(rest[4:8])
		cmd.ThrottleDeceleration = readUint32(rest[8:12])
		n += 12

	default:
		return Command{}, 0, ErrUnknownCommand
	}

	return cmd, n, nil
}
