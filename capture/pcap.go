package capture

import (
	"encoding/binary"
	"net/netip"
)

// Classic pcap container magics.
const (
	pcapMagic        uint32 = 0xa1b2c3d4
	pcapMagicSwapped uint32 = 0xd4c3b2a1

	fileHeaderLen   = 24
	recordHeaderLen = 16
)

// FileHeader is the 24-byte global header of a classic pcap file.
type FileHeader struct {
	Magic        uint32
	VersionMajor uint16
	VersionMinor uint16
	ThisZone     int32
	SigFigs      uint32
	SnapLen      uint32
	Network      uint32
}

// Swapped reports whether the file was written on a machine of the
// opposite byte order.
func (h *FileHeader) Swapped() bool { return h.Magic == pcapMagicSwapped }

func (h *FileHeader) order() binary.ByteOrder {
	if h.Swapped() {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ParseFileHeader reads the pcap global header. The magic is probed in both
// byte orders; anything else is not a classic pcap capture.
func ParseFileHeader(data []byte) (FileHeader, []byte, bool) {
	if len(data) < fileHeaderLen {
		return FileHeader{}, nil, false
	}
	var h FileHeader
	h.Magic = binary.BigEndian.Uint32(data[0:4])
	if h.Magic != pcapMagic && h.Magic != pcapMagicSwapped {
		return FileHeader{}, nil, false
	}
	ord := h.order()
	h.VersionMajor = ord.Uint16(data[4:6])
	h.VersionMinor = ord.Uint16(data[6:8])
	h.ThisZone = int32(ord.Uint32(data[8:12]))
	h.SigFigs = ord.Uint32(data[12:16])
	h.SnapLen = ord.Uint32(data[16:20])
	h.Network = ord.Uint32(data[20:24])
	return h, data[fileHeaderLen:], true
}

// RecordHeader is the 16-byte per-frame header.
type RecordHeader struct {
	TsSec   uint32
	TsUsec  uint32
	InclLen uint32
	OrigLen uint32
}

// ParseRecordHeader reads one record header using the file's byte order and
// returns the frame bytes plus the remaining input.
func ParseRecordHeader(fh *FileHeader, data []byte) (RecordHeader, []byte, []byte, bool) {
	if len(data) < recordHeaderLen {
		return RecordHeader{}, nil, nil, false
	}
	ord := fh.order()
	var r RecordHeader
	r.TsSec = ord.Uint32(data[0:4])
	r.TsUsec = ord.Uint32(data[4:8])
	r.InclLen = ord.Uint32(data[8:12])
	r.OrigLen = ord.Uint32(data[12:16])

	rest := data[recordHeaderLen:]
	if uint32(len(rest)) < r.InclLen {
		return RecordHeader{}, nil, nil, false
	}
	return r, rest[:r.InclLen], rest[r.InclLen:], true
}

// Packet is one decoded frame, reduced to the fields the flow layer needs.
// Payload aliases the original frame buffer.
type Packet struct {
	Src     netip.Addr
	Dst     netip.Addr
	TTL     uint8
	IsIPv6  bool
	TCP     *TCPHeader
	UDP     *UDPHeader
	Payload []byte
}

// SrcPort returns the transport source port, or 0 for bare IP packets.
func (p *Packet) SrcPort() uint16 {
	switch {
	case p.TCP != nil:
		return p.TCP.SrcPort
	case p.UDP != nil:
		return p.UDP.SrcPort
	}
	return 0
}

// DstPort returns the transport destination port, or 0.
func (p *Packet) DstPort() uint16 {
	switch {
	case p.TCP != nil:
		return p.TCP.DstPort
	case p.UDP != nil:
		return p.UDP.DstPort
	}
	return 0
}

// DecodeFrame glues the layer decoders together for one Ethernet frame.
// Frames that are not IPv4/IPv6 over Ethernet, or are truncated at any
// layer, come back as ok=false.
func DecodeFrame(frame []byte) (Packet, bool) {
	eth, rest, ok := DecodeEthernet(frame)
	if !ok {
		return Packet{}, false
	}

	var pkt Packet
	var proto uint8
	switch eth.EtherType {
	case EtherTypeIPv4:
		ip, payload, ok := DecodeIPv4(rest)
		if !ok {
			return Packet{}, false
		}
		pkt.Src = netip.AddrFrom4(ip.SrcIP)
		pkt.Dst = netip.AddrFrom4(ip.DstIP)
		pkt.TTL = ip.TTL
		proto = ip.Protocol
		rest = payload
	case EtherTypeIPv6:
		ip, payload, ok := DecodeIPv6(rest)
		if !ok {
			return Packet{}, false
		}
		pkt.Src = netip.AddrFrom16(ip.SrcIP)
		pkt.Dst = netip.AddrFrom16(ip.DstIP)
		pkt.TTL = ip.HopLimit
		pkt.IsIPv6 = true
		proto = ip.NextHeader
		rest = payload
	default:
		return Packet{}, false
	}

	switch proto {
	case ProtocolTCP:
		tcp, payload, ok := DecodeTCP(rest)
		if !ok {
			return Packet{}, false
		}
		pkt.TCP = &tcp
		pkt.Payload = payload
	case ProtocolUDP:
		udp, payload, ok := DecodeUDP(rest)
		if !ok {
			return Packet{}, false
		}
		pkt.UDP = &udp
		pkt.Payload = payload
	default:
		return Packet{}, false
	}
	return pkt, true
}
