// Package capture decodes raw captured frames and reassembles them into
// TCP flows. Decoders are zero-copy: headers are read out of the input
// buffer and payload slices alias it. Truncated or malformed input comes
// back as ok=false, never as a panic, so a batch run survives damaged
// captures.
package capture

import "encoding/binary"

// EtherType values.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeIPv6 uint16 = 0x86dd
)

// IP protocol numbers.
const (
	ProtocolTCP uint8 = 6
	ProtocolUDP uint8 = 17
)

// EthernetHeader is the 14-byte link header.
type EthernetHeader struct {
	DstMAC    [6]byte
	SrcMAC    [6]byte
	EtherType uint16
}

// DecodeEthernet reads the link header and returns the network-layer rest.
func DecodeEthernet(data []byte) (EthernetHeader, []byte, bool) {
	if len(data) < 14 {
		return EthernetHeader{}, nil, false
	}
	var h EthernetHeader
	copy(h.DstMAC[:], data[0:6])
	copy(h.SrcMAC[:], data[6:12])
	h.EtherType = binary.BigEndian.Uint16(data[12:14])
	return h, data[14:], true
}

// IPv4Header is the fixed part of an IPv4 header. Options are skipped, not
// retained.
type IPv4Header struct {
	VersionIHL  uint8
	TOS         uint8
	TotalLength uint16
	ID          uint16
	FlagsFrag   uint16
	TTL         uint8
	Protocol    uint8
	Checksum    uint16
	SrcIP       [4]byte
	DstIP       [4]byte
}

func (h *IPv4Header) Version() int   { return int(h.VersionIHL >> 4) }
func (h *IPv4Header) HeaderLen() int { return int(h.VersionIHL&0x0f) * 4 }
func (h *IPv4Header) DF() bool       { return h.FlagsFrag&0x4000 != 0 }
func (h *IPv4Header) MF() bool       { return h.FlagsFrag&0x2000 != 0 }

// DecodeIPv4 reads an IPv4 header and returns the transport-layer rest.
func DecodeIPv4(data []byte) (IPv4Header, []byte, bool) {
	if len(data) < 20 {
		return IPv4Header{}, nil, false
	}
	var h IPv4Header
	h.VersionIHL = data[0]
	h.TOS = data[1]
	h.TotalLength = binary.BigEndian.Uint16(data[2:4])
	h.ID = binary.BigEndian.Uint16(data[4:6])
	h.FlagsFrag = binary.BigEndian.Uint16(data[6:8])
	h.TTL = data[8]
	h.Protocol = data[9]
	h.Checksum = binary.BigEndian.Uint16(data[10:12])
	copy(h.SrcIP[:], data[12:16])
	copy(h.DstIP[:], data[16:20])

	if h.Version() != 4 {
		return IPv4Header{}, nil, false
	}
	hlen := h.HeaderLen()
	if hlen < 20 || len(data) < hlen {
		return IPv4Header{}, nil, false
	}
	return h, data[hlen:], true
}

// IPv6Header is the fixed 40-byte IPv6 header. Extension headers are not
// walked; flows behind them are skipped rather than misparsed.
type IPv6Header struct {
	VersionClass  uint8
	PayloadLength uint16
	NextHeader    uint8
	HopLimit      uint8
	SrcIP         [16]byte
	DstIP         [16]byte
}

func (h *IPv6Header) Version() int { return int(h.VersionClass >> 4) }

// DecodeIPv6 reads the fixed IPv6 header and returns the rest.
func DecodeIPv6(data []byte) (IPv6Header, []byte, bool) {
	if len(data) < 40 {
		return IPv6Header{}, nil, false
	}
	var h IPv6Header
	h.VersionClass = data[0]
	h.PayloadLength = binary.BigEndian.Uint16(data[4:6])
	h.NextHeader = data[6]
	h.HopLimit = data[7]
	copy(h.SrcIP[:], data[8:24])
	copy(h.DstIP[:], data[24:40])

	if h.Version() != 6 {
		return IPv6Header{}, nil, false
	}
	return h, data[40:], true
}

// TCP flag bits within the offset/flags word.
const (
	flagFIN uint16 = 0x0001
	flagSYN uint16 = 0x0002
	flagRST uint16 = 0x0004
	flagPSH uint16 = 0x0008
	flagACK uint16 = 0x0010
)

// TCPHeader is a decoded TCP header including its option bytes.
type TCPHeader struct {
	SrcPort     uint16
	DstPort     uint16
	Seq         uint32
	Ack         uint32
	OffsetFlags uint16
	Window      uint16
	Checksum    uint16
	Urgent      uint16
	Options     []byte
}

func (h *TCPHeader) DataOffset() int { return int(h.OffsetFlags>>12) * 4 }
func (h *TCPHeader) FIN() bool       { return h.OffsetFlags&flagFIN != 0 }
func (h *TCPHeader) SYN() bool       { return h.OffsetFlags&flagSYN != 0 }
func (h *TCPHeader) RST() bool       { return h.OffsetFlags&flagRST != 0 }
func (h *TCPHeader) PSH() bool       { return h.OffsetFlags&flagPSH != 0 }
func (h *TCPHeader) ACK() bool       { return h.OffsetFlags&flagACK != 0 }

// DecodeTCP reads a TCP header plus options and returns the payload.
func DecodeTCP(data []byte) (TCPHeader, []byte, bool) {
	if len(data) < 20 {
		return TCPHeader{}, nil, false
	}
	var h TCPHeader
	h.SrcPort = binary.BigEndian.Uint16(data[0:2])
	h.DstPort = binary.BigEndian.Uint16(data[2:4])
	h.Seq = binary.BigEndian.Uint32(data[4:8])
	h.Ack = binary.BigEndian.Uint32(data[8:12])
	h.OffsetFlags = binary.BigEndian.Uint16(data[12:14])
	h.Window = binary.BigEndian.Uint16(data[14:16])
	h.Checksum = binary.BigEndian.Uint16(data[16:18])
	h.Urgent = binary.BigEndian.Uint16(data[18:20])

	offset := h.DataOffset()
	if offset < 20 || len(data) < offset {
		return TCPHeader{}, nil, false
	}
	h.Options = data[20:offset]
	return h, data[offset:], true
}

// UDPHeader is the 8-byte UDP header.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16
	Checksum uint16
}

// DecodeUDP reads a UDP header and returns the datagram payload.
func DecodeUDP(data []byte) (UDPHeader, []byte, bool) {
	if len(data) < 8 {
		return UDPHeader{}, nil, false
	}
	var h UDPHeader
	h.SrcPort = binary.BigEndian.Uint16(data[0:2])
	h.DstPort = binary.BigEndian.Uint16(data[2:4])
	h.Length = binary.BigEndian.Uint16(data[4:6])
	h.Checksum = binary.BigEndian.Uint16(data[6:8])

	plen := int(h.Length)
	if plen < 8 || len(data) < plen {
		return UDPHeader{}, nil, false
	}
	return h, data[8:plen], true
}

// TCP option kinds.
const (
	optEnd       = 0
	optNOP       = 1
	optMSS       = 2
	optWScale    = 3
	optSACKPerm  = 4
	optTimestamp = 8
)

// TCPOptions is the parsed view of a SYN's option block. Order records the
// option kinds as they appeared; OS stacks differ in both the set and the
// ordering.
type TCPOptions struct {
	MSS           uint16
	WindowScale   uint8
	SACKPermitted bool
	Timestamp     bool
	Order         []uint8
}

// ParseTCPOptions walks option bytes. Unknown kinds are recorded in the
// order list and skipped; a malformed length ends the walk without error
// since partial order information is still useful.
func ParseTCPOptions(opts []byte) TCPOptions {
	var out TCPOptions
	for len(opts) > 0 {
		kind := opts[0]
		if kind == optEnd {
			break
		}
		if kind == optNOP {
			out.Order = append(out.Order, kind)
			opts = opts[1:]
			continue
		}
		if len(opts) < 2 {
			break
		}
		length := int(opts[1])
		if length < 2 || length > len(opts) {
			break
		}
		out.Order = append(out.Order, kind)
		switch kind {
		case optMSS:
			if length == 4 {
				out.MSS = binary.BigEndian.Uint16(opts[2:4])
			}
		case optWScale:
			if length == 3 {
				out.WindowScale = opts[2]
			}
		case optSACKPerm:
			out.SACKPermitted = true
		case optTimestamp:
			out.Timestamp = true
		}
		opts = opts[length:]
	}
	return out
}
