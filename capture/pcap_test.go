package capture

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePcap builds an in-memory classic pcap file around the given frames.
func writePcap(t *testing.T, frames [][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	ts := time.Unix(1700000000, 0)
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return buf.Bytes()
}

func TestParseFileHeader(t *testing.T) {
	data := writePcap(t, nil)

	fh, rest, ok := ParseFileHeader(data)
	require.True(t, ok)
	assert.Equal(t, uint16(2), fh.VersionMajor)
	assert.Equal(t, uint32(65536), fh.SnapLen)
	assert.Equal(t, uint32(1), fh.Network) // Ethernet link type
	assert.Empty(t, rest)
}

func TestParseFileHeader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Truncated", make([]byte, 23)},
		{"Wrong magic", bytes.Repeat([]byte{0x42}, 24)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := ParseFileHeader(tt.data)
			assert.False(t, ok)
		})
	}
}

func TestParseRecordHeader_RoundTrip(t *testing.T) {
	frames := handshakeFrames(t)
	data := writePcap(t, frames)

	fh, rest, ok := ParseFileHeader(data)
	require.True(t, ok)

	for i := 0; len(rest) > 0; i++ {
		rec, frame, tail, ok := ParseRecordHeader(&fh, rest)
		require.True(t, ok, "record %d", i)
		assert.Equal(t, uint32(1700000000), rec.TsSec)
		assert.Equal(t, frames[i], frame)
		assert.Equal(t, rec.InclLen, rec.OrigLen)

		pkt, ok := DecodeFrame(frame)
		require.True(t, ok)
		assert.NotNil(t, pkt.TCP)
		rest = tail
	}
}

func TestParseRecordHeader_Truncated(t *testing.T) {
	data := writePcap(t, handshakeFrames(t))
	fh, rest, ok := ParseFileHeader(data)
	require.True(t, ok)

	// Chop the capture mid-record.
	_, _, _, ok = ParseRecordHeader(&fh, rest[:recordHeaderLen+4])
	assert.False(t, ok)
	_, _, _, ok = ParseRecordHeader(&fh, rest[:8])
	assert.False(t, ok)
}

func TestFromGoPacket(t *testing.T) {
	frame := buildTCPFrame(t, tcpFrameSpec{
		srcIP: "10.0.0.1", dstIP: "10.0.0.2",
		srcPort: 34000, dstPort: 443,
		seq: 1000, syn: true, window: 64240, ttl: 64,
		options: []layers.TCPOption{
			{OptionType: layers.TCPOptionKindMSS, OptionLength: 4, OptionData: []byte{0x05, 0xb4}},
		},
	})

	gp := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	got, ok := FromGoPacket(gp)
	require.True(t, ok)

	want, ok := DecodeFrame(frame)
	require.True(t, ok)

	assert.Equal(t, want.Src, got.Src)
	assert.Equal(t, want.Dst, got.Dst)
	assert.Equal(t, want.TTL, got.TTL)
	assert.Equal(t, want.TCP.SrcPort, got.TCP.SrcPort)
	assert.Equal(t, want.TCP.Seq, got.TCP.Seq)
	assert.Equal(t, want.TCP.SYN(), got.TCP.SYN())
	assert.Equal(t, want.TCP.Window, got.TCP.Window)

	opts := ParseTCPOptions(got.TCP.Options)
	assert.Equal(t, uint16(1460), opts.MSS)
}

func TestFromGoPacket_NonIP(t *testing.T) {
	arp := make([]byte, 42)
	copy(arp[12:14], []byte{0x08, 0x06})
	gp := gopacket.NewPacket(arp, layers.LayerTypeEthernet, gopacket.Default)

	_, ok := FromGoPacket(gp)
	assert.False(t, ok)
}
