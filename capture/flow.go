package capture

import (
	"errors"
	"net/netip"

	"github.com/spaolacci/murmur3"

	"github.com/vistone/wireprint"
)

// ErrResourceLimit is returned when ingestion hits a configured ceiling.
// Flows reconstructed before the limit stay valid and queryable.
var ErrResourceLimit = errors.New("capture resource limit reached")

// helloBufCap bounds per-flow client payload buffering. One maximum TLS
// record plus framing is enough to hold any ClientHello.
const helloBufCap = 1<<14 + 2048

// Limits caps reconstructor memory. Zero fields mean the default.
type Limits struct {
	MaxFlows   int
	MaxPackets int
}

// DefaultLimits returns ceilings sized for offline capture analysis.
func DefaultLimits() Limits {
	return Limits{MaxFlows: 4096, MaxPackets: 1 << 20}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxFlows <= 0 {
		l.MaxFlows = def.MaxFlows
	}
	if l.MaxPackets <= 0 {
		l.MaxPackets = def.MaxPackets
	}
	return l
}

// Endpoint is one side of a flow.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// FlowKey hashes an unordered endpoint pair. Both directions of a
// connection map to the same key: the endpoints are put in canonical order
// before hashing.
func FlowKey(src netip.Addr, srcPort uint16, dst netip.Addr, dstPort uint16) uint64 {
	a := Endpoint{Addr: src, Port: srcPort}
	b := Endpoint{Addr: dst, Port: dstPort}
	if endpointLess(b, a) {
		a, b = b, a
	}

	var buf [40]byte
	n := 0
	n += copy(buf[n:], addrBytes(a.Addr))
	buf[n] = byte(a.Port >> 8)
	buf[n+1] = byte(a.Port)
	n += 2
	n += copy(buf[n:], addrBytes(b.Addr))
	buf[n] = byte(b.Port >> 8)
	buf[n+1] = byte(b.Port)
	n += 2
	return murmur3.Sum64(buf[:n])
}

func addrBytes(a netip.Addr) []byte {
	b := a.As16()
	return b[:]
}

func endpointLess(a, b Endpoint) bool {
	if c := a.Addr.Compare(b.Addr); c != 0 {
		return c < 0
	}
	return a.Port < b.Port
}

// Flow is one reconstructed TCP conversation. The client is the SYN sender
// when a SYN was seen, otherwise the source of the first packet.
type Flow struct {
	Key    uint64
	Client Endpoint
	Server Endpoint

	Packets     int
	HasSYN      bool
	Established bool

	// Client-side transport characteristics for scoring.
	Windows    []uint16
	TTLs       []uint8
	SYNOptions TCPOptions

	sawSYN     bool
	sawSYNACK  bool
	synSeq     uint32
	synAckSeq  uint32
	haveOpts   bool
	clientData []byte
}

// Stats counts what the reconstructor has seen.
type Stats struct {
	Packets     int
	IPv4        int
	IPv6        int
	TCP         int
	UDP         int
	Flows       int
	Established int
}

// Reconstructor groups decoded packets into flows. It is single-goroutine;
// callers feed packets in capture order.
type Reconstructor struct {
	limits Limits
	flows  []Flow
	index  map[uint64]int
	stats  Stats
	halted bool
}

// NewReconstructor builds a reconstructor with the given limits.
func NewReconstructor(limits Limits) *Reconstructor {
	return &Reconstructor{
		limits: limits.withDefaults(),
		index:  make(map[uint64]int),
	}
}

// Add ingests one decoded packet. Non-TCP packets are counted but not
// tracked. Hitting a limit halts ingestion permanently and returns
// ErrResourceLimit; everything reconstructed so far stays valid.
func (r *Reconstructor) Add(pkt *Packet) error {
	if r.halted {
		return ErrResourceLimit
	}
	if r.stats.Packets >= r.limits.MaxPackets {
		r.halted = true
		return ErrResourceLimit
	}
	r.stats.Packets++
	if pkt.IsIPv6 {
		r.stats.IPv6++
	} else {
		r.stats.IPv4++
	}

	switch {
	case pkt.TCP != nil:
		r.stats.TCP++
	case pkt.UDP != nil:
		r.stats.UDP++
		return nil
	default:
		return nil
	}

	key := FlowKey(pkt.Src, pkt.TCP.SrcPort, pkt.Dst, pkt.TCP.DstPort)
	idx, ok := r.index[key]
	if !ok {
		if len(r.flows) >= r.limits.MaxFlows {
			r.halted = true
			return ErrResourceLimit
		}
		r.flows = append(r.flows, Flow{
			Key:    key,
			Client: Endpoint{Addr: pkt.Src, Port: pkt.TCP.SrcPort},
			Server: Endpoint{Addr: pkt.Dst, Port: pkt.TCP.DstPort},
		})
		idx = len(r.flows) - 1
		r.index[key] = idx
		r.stats.Flows++
	}

	f := &r.flows[idx]
	wasEstablished := f.Established
	f.addPacket(pkt)
	if f.Established && !wasEstablished {
		r.stats.Established++
	}
	return nil
}

func (f *Flow) addPacket(pkt *Packet) {
	tcp := pkt.TCP
	f.Packets++

	if tcp.SYN() && !tcp.ACK() {
		// The SYN settles who the client is, even if an earlier stray
		// packet guessed wrong.
		src := Endpoint{Addr: pkt.Src, Port: tcp.SrcPort}
		if src != f.Client {
			f.Client, f.Server = src, f.Client
			f.Windows = f.Windows[:0]
			f.TTLs = f.TTLs[:0]
			f.clientData = nil
		}
		f.HasSYN = true
		f.sawSYN = true
		f.synSeq = tcp.Seq
		if !f.haveOpts {
			f.SYNOptions = ParseTCPOptions(tcp.Options)
			f.haveOpts = true
		}
	}

	if tcp.SYN() && tcp.ACK() {
		if f.sawSYN && tcp.Ack == f.synSeq+1 {
			f.sawSYNACK = true
			f.synAckSeq = tcp.Seq
		}
	}

	if !tcp.SYN() && tcp.ACK() && f.sawSYNACK && !f.Established {
		if tcp.Ack == f.synAckSeq+1 {
			f.Established = true
		}
	}

	fromClient := pkt.Src == f.Client.Addr && tcp.SrcPort == f.Client.Port
	if fromClient {
		f.Windows = append(f.Windows, tcp.Window)
		f.TTLs = append(f.TTLs, pkt.TTL)
		if len(pkt.Payload) > 0 && len(f.clientData) < helloBufCap {
			room := helloBufCap - len(f.clientData)
			if room > len(pkt.Payload) {
				room = len(pkt.Payload)
			}
			f.clientData = append(f.clientData, pkt.Payload[:room]...)
		}
	}
}

// ClientHelloPayload scans the buffered client bytes for a complete TLS
// record carrying a ClientHello. A hello split across segments is found
// once enough segments arrived; partial records report false.
func (f *Flow) ClientHelloPayload() ([]byte, bool) {
	data := f.clientData
	for i := 0; i+5 <= len(data); i++ {
		if !wireprint.IsClientHello(data[i:]) {
			continue
		}
		recordLen := 5 + int(data[i+3])<<8 + int(data[i+4])
		if i+recordLen > len(data) {
			return nil, false
		}
		return data[i : i+recordLen], true
	}
	return nil, false
}

// ClientPayload exposes the raw buffered client bytes, for protocol
// signals beyond TLS (cleartext HTTP/2 for one).
func (f *Flow) ClientPayload() []byte { return f.clientData }

// Flows returns the reconstructed flows in first-seen order. The slice is
// owned by the reconstructor.
func (r *Reconstructor) Flows() []Flow { return r.flows }

// Lookup finds a flow by either direction's addressing.
func (r *Reconstructor) Lookup(src netip.Addr, srcPort uint16, dst netip.Addr, dstPort uint16) (*Flow, bool) {
	idx, ok := r.index[FlowKey(src, srcPort, dst, dstPort)]
	if !ok {
		return nil, false
	}
	return &r.flows[idx], true
}

// Stats reports ingestion counters.
func (r *Reconstructor) Stats() Stats { return r.stats }

// Halted reports whether a resource limit stopped ingestion.
func (r *Reconstructor) Halted() bool { return r.halted }
