package wireprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecification_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    *Specification
		wantErr bool
	}{
		{
			name:    "Valid spec",
			spec:    ChromeSpec(),
			wantErr: false,
		},
		{
			name: "Empty cipher suites",
			spec: &Specification{
				Extensions: []Extension{&SNIExtension{}},
			},
			wantErr: true,
		},
		{
			name: "Empty extensions",
			spec: &Specification{
				CipherSuites: []uint16{0x1301},
			},
			wantErr: true,
		},
		{
			name: "Min version above max",
			spec: &Specification{
				CipherSuites: []uint16{0x1301},
				Extensions:   []Extension{&SNIExtension{}},
				MinVersion:   VersionTLS13,
				MaxVersion:   VersionTLS12,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSpecificationInvalid)
			}
		})
	}
}

func TestSpecification_LegacyVersion(t *testing.T) {
	tests := []struct {
		name string
		max  uint16
		want uint16
	}{
		{"TLS 1.3 advertises 1.2", VersionTLS13, VersionTLS12},
		{"TLS 1.2 advertises itself", VersionTLS12, VersionTLS12},
		{"TLS 1.0 advertises itself", VersionTLS10, VersionTLS10},
		{"Zero defaults to 1.2", 0, VersionTLS12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &Specification{MaxVersion: tt.max}
			assert.Equal(t, tt.want, spec.legacyVersion())
		})
	}
}

func TestProfilesAreValid(t *testing.T) {
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			spec, err := ProfileByName(name)
			require.NoError(t, err)
			assert.NoError(t, spec.Validate())
		})
	}
}

func TestProfileByName_Unknown(t *testing.T) {
	_, err := ProfileByName("netscape")
	assert.Error(t, err)
}

func TestProfileByName_IndependentValues(t *testing.T) {
	a, err := ProfileByName("chrome")
	require.NoError(t, err)
	b, err := ProfileByName("chrome")
	require.NoError(t, err)

	a.CipherSuites[0] = 0xffff
	assert.NotEqual(t, a.CipherSuites[0], b.CipherSuites[0])
}

func TestIsGrease(t *testing.T) {
	for _, v := range GreaseValues {
		assert.True(t, IsGrease(v), "value %#04x", v)
	}
	for _, v := range []uint16{0x0000, 0x1301, 0x0a1a, 0x1a0a, 0xff01, 0x0b0b} {
		assert.False(t, IsGrease(v), "value %#04x", v)
	}
}

func TestFilterGrease(t *testing.T) {
	in := []uint16{0x0a0a, 0x1301, 0xfafa, 0x1302}
	assert.Equal(t, []uint16{0x1301, 0x1302}, FilterGrease(in))
	assert.Equal(t, []uint16{0x0a0a, 0x1301, 0xfafa, 0x1302}, in, "input must not be modified")
}

func TestRandomizeGrease(t *testing.T) {
	spec := ChromeSpec()

	before, err := FingerprintFromSpecification(spec)
	require.NoError(t, err)

	RandomizeGrease(spec)

	after, err := FingerprintFromSpecification(spec)
	require.NoError(t, err)

	// Normalized identity survives re-rolling, raw identity may not.
	assert.Equal(t, before.NormHash, after.NormHash)

	for _, cs := range spec.CipherSuites {
		if IsGrease(cs) {
			return // still a valid reserved value, just possibly re-rolled
		}
	}
	t.Fatal("randomization removed the GREASE cipher slot")
}

func TestExtensionName(t *testing.T) {
	assert.Equal(t, "server_name", ExtensionName(0))
	assert.Equal(t, "key_share", ExtensionName(51))
	assert.Equal(t, "grease(0x2a2a)", ExtensionName(0x2a2a))
	assert.Equal(t, "unknown(1234)", ExtensionName(1234))
}
