package wireprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJA4_KnownHello(t *testing.T) {
	hello := &ClientHello{
		LegacyVersion:     VersionTLS12,
		CipherSuites:      []uint16{0x0a0a, 0x1301, 0x1302},
		Extensions:        []uint16{0x0a0a, ExtServerName, ExtALPN, ExtSupportedVersions, ExtSignatureAlgorithms},
		SupportedVersions: []uint16{0x0a0a, VersionTLS13, VersionTLS12},
		SignatureAlgos:    []uint16{0x0403, 0x0804},
		ALPN:              []string{"h2", "http/1.1"},
		ServerName:        "example.com",
	}

	fp := FingerprintFromClientHello(hello)

	// Counts include GREASE, the hashed lists do not; server_name and
	// ALPN ids stay out of the sorted extension block.
	assert.Equal(t, "t13d0305h2_1301,1302_000d,002b_0403,0804", fp.JA4Raw)
	assert.True(t, strings.HasPrefix(fp.JA4, "t13d0305h2_"))

	parts := strings.Split(fp.JA4, "_")
	require.Len(t, parts, 3)
	assert.Len(t, parts[1], 12)
	assert.Len(t, parts[2], 12)
}

func TestJA4_NoSNINoALPN(t *testing.T) {
	fp := FingerprintFromClientHello(&ClientHello{
		LegacyVersion: VersionTLS12,
		CipherSuites:  []uint16{0x1301},
		Extensions:    []uint16{ExtEllipticCurves},
	})

	assert.True(t, strings.HasPrefix(fp.JA4, "t12i010100_"))
}

func TestJA4_RoundTrip(t *testing.T) {
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			spec, err := ProfileByName(name)
			require.NoError(t, err)

			want, err := FingerprintFromSpecification(spec)
			require.NoError(t, err)

			out, err := Serialize(spec, "example.com")
			require.NoError(t, err)
			hello, err := ParseClientHello(out)
			require.NoError(t, err)

			got := FingerprintFromClientHello(hello)
			assert.Equal(t, want.JA4, got.JA4)
			assert.Equal(t, want.JA4Raw, got.JA4Raw)
		})
	}
}

func TestJA4_GreaseInvariant(t *testing.T) {
	spec, err := ProfileByName("chrome")
	require.NoError(t, err)
	base, err := FingerprintFromSpecification(spec)
	require.NoError(t, err)

	RandomizeGrease(spec)
	rolled, err := FingerprintFromSpecification(spec)
	require.NoError(t, err)

	// Fresh GREASE never moves the JA4: counts stay equal and the
	// hashed lists are GREASE-filtered.
	assert.Equal(t, base.JA4, rolled.JA4)
	assert.Equal(t, base.JA4Raw, rolled.JA4Raw)
}

func TestJA4Version(t *testing.T) {
	tests := []struct {
		name      string
		supported []uint16
		legacy    uint16
		want      string
	}{
		{"Supported versions win", []uint16{0x0a0a, VersionTLS13, VersionTLS12}, VersionTLS12, "13"},
		{"Legacy fallback", nil, VersionTLS12, "12"},
		{"Grease-only supported list falls back", []uint16{0x0a0a}, VersionTLS11, "11"},
		{"TLS 1.0", nil, VersionTLS10, "10"},
		{"Unknown version", nil, 0x0300, "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ja4Version(tt.supported, tt.legacy))
		})
	}
}

func TestAlpnChars(t *testing.T) {
	tests := []struct {
		alpn  string
		first byte
		last  byte
	}{
		{"h2", 'h', '2'},
		{"http/1.1", 'h', '1'},
		{"h", 'h', '0'},
		{"", '0', '0'},
		{"\xeb2", '9', '2'},
	}

	for _, tt := range tests {
		first, last := alpnChars(tt.alpn)
		assert.Equal(t, tt.first, first, "alpn %q", tt.alpn)
		assert.Equal(t, tt.last, last, "alpn %q", tt.alpn)
	}
}
