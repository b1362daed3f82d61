package capture

import (
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FromGoPacket converts a gopacket-decoded packet into the flow layer's
// Packet. Captures read through gopacket sources (pcapgo, live handles)
// feed the same reconstructor as the built-in frame decoder.
func FromGoPacket(p gopacket.Packet) (Packet, bool) {
	var pkt Packet

	switch ip := p.NetworkLayer().(type) {
	case *layers.IPv4:
		src, ok := netip.AddrFromSlice(ip.SrcIP.To4())
		if !ok {
			return Packet{}, false
		}
		dst, ok := netip.AddrFromSlice(ip.DstIP.To4())
		if !ok {
			return Packet{}, false
		}
		pkt.Src, pkt.Dst, pkt.TTL = src, dst, ip.TTL
	case *layers.IPv6:
		src, ok := netip.AddrFromSlice(ip.SrcIP)
		if !ok {
			return Packet{}, false
		}
		dst, ok := netip.AddrFromSlice(ip.DstIP)
		if !ok {
			return Packet{}, false
		}
		pkt.Src, pkt.Dst, pkt.TTL = src, dst, ip.HopLimit
		pkt.IsIPv6 = true
	default:
		return Packet{}, false
	}

	switch t := p.TransportLayer().(type) {
	case *layers.TCP:
		hdr := TCPHeader{
			SrcPort:     uint16(t.SrcPort),
			DstPort:     uint16(t.DstPort),
			Seq:         t.Seq,
			Ack:         t.Ack,
			Window:      t.Window,
			OffsetFlags: tcpOffsetFlags(t),
		}
		if len(t.Contents) > 20 {
			hdr.Options = t.Contents[20:]
		}
		pkt.TCP = &hdr
		pkt.Payload = t.Payload
	case *layers.UDP:
		pkt.UDP = &UDPHeader{
			SrcPort: uint16(t.SrcPort),
			DstPort: uint16(t.DstPort),
			Length:  t.Length,
		}
		pkt.Payload = t.Payload
	default:
		return Packet{}, false
	}
	return pkt, true
}

func tcpOffsetFlags(t *layers.TCP) uint16 {
	flags := uint16(t.DataOffset) << 12
	if t.FIN {
		flags |= flagFIN
	}
	if t.SYN {
		flags |= flagSYN
	}
	if t.RST {
		flags |= flagRST
	}
	if t.PSH {
		flags |= flagPSH
	}
	if t.ACK {
		flags |= flagACK
	}
	return flags
}
