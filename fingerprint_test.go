package wireprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintFromClientHello(t *testing.T) {
	hello := &ClientHello{
		LegacyVersion: VersionTLS12,
		CipherSuites:  []uint16{0x0a0a, 4865, 4866},
		Extensions:    []uint16{0x0a0a, 0, 23, ExtPadding, 43},
		Curves:        []uint16{0x1a1a, 29, 23},
		PointFormats:  []uint8{0},
	}

	fp := FingerprintFromClientHello(hello)

	assert.Equal(t, "771,2570-4865-4866,2570-0-23-21-43,6682-29-23,0", fp.RawString)
	assert.Equal(t, "771,4865-4866,0-23-21-43,29-23,0", fp.NormString)
	assert.NotEqual(t, fp.RawHash, fp.NormHash)
	assert.Len(t, fp.RawHash, 32)
	assert.Len(t, fp.NormHash, 32)
}

func TestFingerprint_NoGreaseModesAgree(t *testing.T) {
	hello := &ClientHello{
		LegacyVersion: VersionTLS12,
		CipherSuites:  []uint16{4865, 4866},
		Extensions:    []uint16{0, 23, 43},
		Curves:        []uint16{29, 23},
		PointFormats:  []uint8{0},
	}

	fp := FingerprintFromClientHello(hello)
	assert.Equal(t, fp.RawString, fp.NormString)
	assert.Equal(t, fp.RawHash, fp.NormHash)
}

func TestFingerprint_PaddingKept(t *testing.T) {
	with := FingerprintFromClientHello(&ClientHello{
		LegacyVersion: VersionTLS12,
		CipherSuites:  []uint16{4865},
		Extensions:    []uint16{0, ExtPadding, 43},
	})
	without := FingerprintFromClientHello(&ClientHello{
		LegacyVersion: VersionTLS12,
		CipherSuites:  []uint16{4865},
		Extensions:    []uint16{0, 43},
	})

	// Padding is part of the wire identity. Dropping it would break hash
	// compatibility with externally computed fingerprints of padded
	// clients.
	assert.Contains(t, with.RawString, "-21-")
	assert.Contains(t, with.NormString, "-21-")
	assert.NotEqual(t, without.RawHash, with.RawHash)
	assert.NotEqual(t, without.NormHash, with.NormHash)
}

func TestFingerprint_EmptyLists(t *testing.T) {
	fp := FingerprintFromClientHello(&ClientHello{
		LegacyVersion: VersionTLS10,
		CipherSuites:  []uint16{10},
	})
	assert.Equal(t, "769,10,,,", fp.RawString)
	assert.Equal(t, strings.Count(fp.RawString, ","), 4)
}

func TestFingerprintFromSpecification(t *testing.T) {
	spec := ChromeSpec()
	fp, err := FingerprintFromSpecification(spec)
	require.NoError(t, err)

	// Extension order in the rendered string follows the spec's declared
	// order, padding included.
	assert.True(t, strings.HasPrefix(fp.RawString, "771,2570-4865-"))
	assert.Contains(t, "-"+fieldOf(fp.RawString, 2)+"-", "-21-")

	_, err = FingerprintFromSpecification(&Specification{})
	assert.ErrorIs(t, err, ErrSpecificationInvalid)
}

func fieldOf(ja3 string, i int) string {
	return strings.Split(ja3, ",")[i]
}

func TestFingerprint_ExtensionOrderMatters(t *testing.T) {
	base := &Specification{
		CipherSuites: []uint16{0x1301, 0x1302},
		Extensions: []Extension{
			&SupportedCurvesExtension{Curves: []uint16{CurveX25519}},
			&SupportedPointsExtension{Formats: []uint8{pointFormatUncompressed}},
		},
		MaxVersion: VersionTLS13,
	}
	swapped := &Specification{
		CipherSuites: base.CipherSuites,
		Extensions:   []Extension{base.Extensions[1], base.Extensions[0]},
		MaxVersion:   VersionTLS13,
	}

	a, err := FingerprintFromSpecification(base)
	require.NoError(t, err)
	b, err := FingerprintFromSpecification(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, a.RawString, b.RawString)
	assert.NotEqual(t, a.RawHash, b.RawHash)
	assert.NotEqual(t, a.NormHash, b.NormHash, "order is identity even without GREASE")
}

func TestParseJA3String(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Chrome family string", "771,4865-4866-4867,0-23-65281-10-11,29-23-24,0", false},
		{"Empty trailing fields", "769,10,,,", false},
		{"Too few fields", "771,4865", true},
		{"Junk version", "abc,1,2,3,0", true},
		{"Junk cipher", "771,4865-x,2,3,0", true},
		{"List element overflow", "771,70000,2,3,0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp, err := ParseJA3String(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseJA3String() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				assert.Equal(t, tt.input, fp.RawString, "string form must round-trip")
			}
		})
	}
}
