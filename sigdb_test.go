package wireprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeFamilyJA3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0"

func defaultDB(t *testing.T) *SignatureDB {
	t.Helper()
	db, err := NewSignatureDB(DefaultSignatures(), DefaultMatcherConfig())
	require.NoError(t, err)
	return db
}

func TestSignatureDB_ExactRawHash(t *testing.T) {
	db := defaultDB(t)

	// A hash-form seed matches only when the raw hash is identical.
	fp := &CanonicalFingerprint{RawHash: "b19a89106f50d406d38e8bd92241af60"}
	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "Chrome", m.Family)
	assert.Equal(t, "136.0", m.Version)
	assert.Equal(t, 0.95, m.Confidence)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestSignatureDB_ExactStringSeed(t *testing.T) {
	db := defaultDB(t)

	fp, err := ParseJA3String(chromeFamilyJA3)
	require.NoError(t, err)

	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "Chrome", m.Family)
	assert.Equal(t, "130-136", m.Version)
	assert.Equal(t, 0.88, m.Confidence)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestSignatureDB_WireFingerprintHitsExactTier(t *testing.T) {
	db := defaultDB(t)

	// A hello whose lists equal a string seed byte for byte, padding id
	// included, must land in the exact raw-hash tier, not fuzzy.
	seed, err := ParseJA3String(chromeFamilyJA3)
	require.NoError(t, err)

	fp := FingerprintFromClientHello(&ClientHello{
		LegacyVersion: seed.Version,
		CipherSuites:  seed.Ciphers,
		Extensions:    seed.Extensions,
		Curves:        seed.Curves,
		PointFormats:  seed.PointFormats,
	})
	require.Equal(t, seed.RawHash, fp.RawHash)

	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "Chrome", m.Family)
	assert.Equal(t, 0.88, m.Confidence)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestSignatureDB_NormalizedHashTier(t *testing.T) {
	db := defaultDB(t)

	// Same client, fresh GREASE: 6682 is 0x1a1a. Raw hash misses, the
	// GREASE-blind hash hits and scales the weight by 0.95.
	fp, err := ParseJA3String("771,6682-4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0")
	require.NoError(t, err)

	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "Chrome", m.Family)
	assert.InDelta(t, 0.88*0.95, m.Confidence, 1e-9)
	assert.Equal(t, 1.0, m.Similarity)
}

func TestSignatureDB_FuzzyTier(t *testing.T) {
	db := defaultDB(t)

	// Chrome family string with one cipher dropped. No hash tier can hit;
	// fuzzy similarity stays well above the threshold.
	fp, err := ParseJA3String("771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0")
	require.NoError(t, err)

	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "Chrome", m.Family)
	assert.Greater(t, m.Similarity, 0.90)
	assert.Less(t, m.Similarity, 1.0)
	assert.InDelta(t, 0.88*m.Similarity, m.Confidence, 1e-9)
}

func TestSignatureDB_BelowThresholdNoGuess(t *testing.T) {
	db := defaultDB(t)

	fp, err := ParseJA3String("769,1-2-3,4-5,6,1")
	require.NoError(t, err)

	_, ok := db.Match(fp)
	assert.False(t, ok)
}

func TestSignatureDB_NoMatchForUnknownHash(t *testing.T) {
	db := defaultDB(t)

	fp := &CanonicalFingerprint{
		RawHash:  "00000000000000000000000000000000",
		NormHash: "00000000000000000000000000000000",
	}
	_, ok := db.Match(fp)
	assert.False(t, ok)
}

func TestSignatureDB_ThresholdConfig(t *testing.T) {
	cfg := DefaultMatcherConfig()
	cfg.Threshold = 0.999
	db, err := NewSignatureDB(DefaultSignatures(), cfg)
	require.NoError(t, err)

	fp, err := ParseJA3String("771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0")
	require.NoError(t, err)

	_, ok := db.Match(fp)
	assert.False(t, ok, "raised threshold must reject the near match")
}

func TestSignatureDB_ThresholdBoundary(t *testing.T) {
	const seedJA3 = "771,4865-4866,0-10-11,29-23,0"
	seeds := []SignatureSeed{
		{Fingerprint: seedJA3, Entry: SignatureEntry{Family: "Boundary", Version: "1", Weight: 0.9}},
	}

	// Differs from the seed in version only, so the hash tiers miss and
	// the fuzzy score is fixed by the component weights.
	probe, err := ParseJA3String("772,4865-4866,0-10-11,29-23,0")
	require.NoError(t, err)

	// Learn the exact similarity the matcher computes for this pair.
	db, err := NewSignatureDB(seeds, DefaultMatcherConfig())
	require.NoError(t, err)
	m, ok := db.Match(probe)
	require.True(t, ok)
	require.Less(t, m.Similarity, 1.0)

	// Exactly at the threshold still matches.
	cfg := DefaultMatcherConfig()
	cfg.Threshold = m.Similarity
	atDB, err := NewSignatureDB(seeds, cfg)
	require.NoError(t, err)
	at, ok := atDB.Match(probe)
	require.True(t, ok, "similarity equal to the threshold must match")
	assert.Equal(t, m.Similarity, at.Similarity)

	// The smallest representable step above it does not.
	cfg.Threshold = math.Nextafter(m.Similarity, 1)
	aboveDB, err := NewSignatureDB(seeds, cfg)
	require.NoError(t, err)
	_, ok = aboveDB.Match(probe)
	assert.False(t, ok, "similarity below the threshold must not match")
}

func TestSignatureDB_BadSeeds(t *testing.T) {
	tests := []struct {
		name string
		seed SignatureSeed
	}{
		{"Neither hash nor string", SignatureSeed{Fingerprint: "not-a-fingerprint", Entry: SignatureEntry{Family: "X"}}},
		{"Malformed string", SignatureSeed{Fingerprint: "771,a-b,c,d,e", Entry: SignatureEntry{Family: "X"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSignatureDB([]SignatureSeed{tt.seed}, DefaultMatcherConfig())
			assert.Error(t, err)
		})
	}
}

func TestSignatureDB_Families(t *testing.T) {
	db := defaultDB(t)
	families := db.Families()
	assert.Contains(t, families, "Chrome")
	assert.Contains(t, families, "Firefox")
	assert.Contains(t, families, "Curl")
	assert.GreaterOrEqual(t, db.Len(), 10)
}

func TestLoadSignatures(t *testing.T) {
	yamlDoc := []byte(`
signatures:
  - fingerprint: "b19a89106f50d406d38e8bd92241af60"
    family: Chrome
    version: "136.0"
    weight: 0.95
  - fingerprint: "771,4865-4866,0-23,29,0"
    family: TestClient
    version: "1.0"
    weight: 0.5
    notes: lab build
`)
	seeds, err := LoadSignatures(yamlDoc)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "Chrome", seeds[0].Entry.Family)
	assert.Equal(t, "lab build", seeds[1].Entry.Notes)

	db, err := NewSignatureDB(seeds, DefaultMatcherConfig())
	require.NoError(t, err)

	fp, err := ParseJA3String("771,4865-4866,0-23,29,0")
	require.NoError(t, err)
	m, ok := db.Match(fp)
	require.True(t, ok)
	assert.Equal(t, "TestClient", m.Family)
}

func TestLoadSignatures_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"Bad YAML", "signatures: ["},
		{"Missing fingerprint", "signatures:\n  - family: X\n    weight: 0.5"},
		{"Weight out of range", "signatures:\n  - fingerprint: \"771,1,2,3,0\"\n    family: X\n    weight: 1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSignatures([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
