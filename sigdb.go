package wireprint

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SignatureEntry is what a signature in the database says about the client
// that produced it. Weight is the prior confidence the entry carries on an
// exact match; fuzzy matches scale it down by similarity.
type SignatureEntry struct {
	Family  string  `yaml:"family"`
	Version string  `yaml:"version"`
	Weight  float64 `yaml:"weight"`
	Notes   string  `yaml:"notes,omitempty"`
}

// SignatureSeed pairs a fingerprint with its entry for database
// construction. Fingerprint is either a 32-char hex hash, which can only
// ever match exactly on the raw hash, or a full fingerprint string, which
// also participates in normalized and fuzzy matching.
type SignatureSeed struct {
	Fingerprint string         `yaml:"fingerprint"`
	Entry       SignatureEntry `yaml:",inline"`
}

// SignatureMatch is a successful database lookup. Confidence is the stored
// weight scaled by how the match was made; Similarity is 1.0 for exact
// matches and the weighted Jaccard score for fuzzy ones.
type SignatureMatch struct {
	Family     string
	Version    string
	Confidence float64
	Similarity float64
	Notes      string
}

// MatcherConfig controls fuzzy matching. Weights apply to the five
// fingerprint components in order: version, ciphers, extensions, curves,
// point formats.
type MatcherConfig struct {
	Threshold float64
	Weights   [5]float64
}

// DefaultMatcherConfig returns the tuning the seeded database was
// calibrated against.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Threshold: 0.80,
		Weights:   [5]float64{0.10, 0.40, 0.30, 0.15, 0.05},
	}
}

type storedSignature struct {
	fp    *CanonicalFingerprint
	entry SignatureEntry
}

// SignatureDB matches canonical fingerprints against known client
// signatures. It is immutable after construction and safe for concurrent
// lookups.
type SignatureDB struct {
	cfg MatcherConfig

	byRawHash  map[string][]SignatureEntry
	byNormHash map[string][]SignatureEntry
	fuzzy      []storedSignature
}

// NewSignatureDB builds a database from seeds. Hash-form seeds land only in
// the raw-hash index; string-form seeds are parsed and indexed for all
// three match tiers.
func NewSignatureDB(seeds []SignatureSeed, cfg MatcherConfig) (*SignatureDB, error) {
	db := &SignatureDB{
		cfg:        cfg,
		byRawHash:  make(map[string][]SignatureEntry),
		byNormHash: make(map[string][]SignatureEntry),
	}
	for _, seed := range seeds {
		switch {
		case isHexHash(seed.Fingerprint):
			db.byRawHash[strings.ToLower(seed.Fingerprint)] = append(db.byRawHash[strings.ToLower(seed.Fingerprint)], seed.Entry)
		case strings.Contains(seed.Fingerprint, ","):
			fp, err := ParseJA3String(seed.Fingerprint)
			if err != nil {
				return nil, fmt.Errorf("signature %s/%s: %w", seed.Entry.Family, seed.Entry.Version, err)
			}
			db.byRawHash[fp.RawHash] = append(db.byRawHash[fp.RawHash], seed.Entry)
			db.byNormHash[fp.NormHash] = append(db.byNormHash[fp.NormHash], seed.Entry)
			db.fuzzy = append(db.fuzzy, storedSignature{fp: fp, entry: seed.Entry})
		default:
			return nil, fmt.Errorf("signature %s/%s: fingerprint %q is neither a hash nor a fingerprint string",
				seed.Entry.Family, seed.Entry.Version, seed.Fingerprint)
		}
	}
	return db, nil
}

// Len reports the number of stored entries.
func (db *SignatureDB) Len() int {
	n := 0
	for _, entries := range db.byRawHash {
		n += len(entries)
	}
	return n
}

// Match looks fp up in three tiers: exact raw-hash, exact normalized-hash,
// then fuzzy similarity. A normalized-hash hit means the fingerprints are
// identical once GREASE is stripped and scores the stored weight times
// 0.95. Fuzzy scoring is a weighted per-component Jaccard over the
// normalized lists; anything below the threshold is reported as no match
// rather than a low-confidence guess.
func (db *SignatureDB) Match(fp *CanonicalFingerprint) (SignatureMatch, bool) {
	if entries, ok := db.byRawHash[fp.RawHash]; ok {
		e := bestEntry(entries)
		return SignatureMatch{
			Family:     e.Family,
			Version:    e.Version,
			Confidence: e.Weight,
			Similarity: 1.0,
			Notes:      e.Notes,
		}, true
	}

	if entries, ok := db.byNormHash[fp.NormHash]; ok {
		e := bestEntry(entries)
		return SignatureMatch{
			Family:     e.Family,
			Version:    e.Version,
			Confidence: e.Weight * 0.95,
			Similarity: 1.0,
			Notes:      e.Notes,
		}, true
	}

	var (
		best      SignatureMatch
		bestScore float64
		found     bool
	)
	for _, stored := range db.fuzzy {
		score := db.similarity(fp, stored.fp)
		if score < db.cfg.Threshold {
			continue
		}
		better := score > bestScore ||
			(score == bestScore && found && stored.entry.Weight > bestWeight(best))
		if !found || better {
			best = SignatureMatch{
				Family:     stored.entry.Family,
				Version:    stored.entry.Version,
				Confidence: stored.entry.Weight * score,
				Similarity: score,
				Notes:      stored.entry.Notes,
			}
			bestScore = score
			found = true
		}
	}
	return best, found
}

func bestWeight(m SignatureMatch) float64 {
	if m.Similarity == 0 {
		return 0
	}
	return m.Confidence / m.Similarity
}

func bestEntry(entries []SignatureEntry) SignatureEntry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Weight > best.Weight {
			best = e
		}
	}
	return best
}

// similarity is the weighted per-component Jaccard over GREASE-normalized
// lists. The version field is a single-token component.
func (db *SignatureDB) similarity(a, b *CanonicalFingerprint) float64 {
	score := 0.0
	if a.Version == b.Version {
		score += db.cfg.Weights[0]
	}
	score += jaccard16(FilterGrease(a.Ciphers), FilterGrease(b.Ciphers)) * db.cfg.Weights[1]
	score += jaccard16(FilterGrease(a.Extensions), FilterGrease(b.Extensions)) * db.cfg.Weights[2]
	score += jaccard16(FilterGrease(a.Curves), FilterGrease(b.Curves)) * db.cfg.Weights[3]
	score += jaccard8(a.PointFormats, b.PointFormats) * db.cfg.Weights[4]
	return score
}

func jaccard16(a, b []uint16) float64 {
	set := make(map[uint16]uint8, len(a)+len(b))
	for _, v := range a {
		set[v] |= 1
	}
	for _, v := range b {
		set[v] |= 2
	}
	return jaccardRatio(set)
}

func jaccard8(a, b []uint8) float64 {
	set := make(map[uint16]uint8, len(a)+len(b))
	for _, v := range a {
		set[uint16(v)] |= 1
	}
	for _, v := range b {
		set[uint16(v)] |= 2
	}
	return jaccardRatio(set)
}

func jaccardRatio(set map[uint16]uint8) float64 {
	if len(set) == 0 {
		return 1.0
	}
	both := 0
	for _, mask := range set {
		if mask == 3 {
			both++
		}
	}
	return float64(both) / float64(len(set))
}

// signatureFile is the on-disk YAML shape for custom signature tables.
type signatureFile struct {
	Signatures []SignatureSeed `yaml:"signatures"`
}

// LoadSignatures parses a YAML signature table. The format is a top-level
// signatures list, each entry carrying fingerprint, family, version,
// weight, and optional notes.
func LoadSignatures(data []byte) ([]SignatureSeed, error) {
	var file signatureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing signature table: %w", err)
	}
	for i, seed := range file.Signatures {
		if seed.Fingerprint == "" {
			return nil, fmt.Errorf("signature %d: missing fingerprint", i)
		}
		if seed.Entry.Weight <= 0 || seed.Entry.Weight > 1 {
			return nil, fmt.Errorf("signature %d (%s): weight %v outside (0, 1]", i, seed.Entry.Family, seed.Entry.Weight)
		}
	}
	return file.Signatures, nil
}

// DefaultSignatures is the built-in table of browser and tool signatures.
// Hash-only rows pin specific builds; string rows cover the release family
// and feed the fuzzy matcher.
func DefaultSignatures() []SignatureSeed {
	return []SignatureSeed{
		{Fingerprint: "b19a89106f50d406d38e8bd92241af60",
			Entry: SignatureEntry{Family: "Chrome", Version: "136.0", Weight: 0.95, Notes: "16 ciphers, 18 extensions, ALPN: h2"}},
		{Fingerprint: "579ccef312d18482fc42e84cc30d7a62",
			Entry: SignatureEntry{Family: "Chrome", Version: "135.0", Weight: 0.92, Notes: "similar to 136, minor differences"}},
		{Fingerprint: "cd08e31595f8ec0b24e4c0c7c0e7d2f1",
			Entry: SignatureEntry{Family: "Chrome", Version: "134.0", Weight: 0.92}},
		{Fingerprint: "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0",
			Entry: SignatureEntry{Family: "Chrome", Version: "130-136", Weight: 0.88, Notes: "Chrome release family"}},
		{Fingerprint: "d76a5a80b4bb0c75ac45782b0b53da91",
			Entry: SignatureEntry{Family: "Firefox", Version: "145.0", Weight: 0.95, Notes: "18 ciphers, 11 extensions"}},
		{Fingerprint: "3b5074b1b5d032e5620f69f9f700ff0e",
			Entry: SignatureEntry{Family: "Firefox", Version: "144.0", Weight: 0.92}},
		{Fingerprint: "e7d705a3286e19ea42f587b344ee6865",
			Entry: SignatureEntry{Family: "Firefox", Version: "143.0", Weight: 0.92}},
		{Fingerprint: "771,4865-4867-4866-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-10-27-21,29-23-24,0",
			Entry: SignatureEntry{Family: "Firefox", Version: "140-145", Weight: 0.85, Notes: "Firefox release family"}},
		{Fingerprint: "c02709723be84127bcf3cfeda4e3c5af",
			Entry: SignatureEntry{Family: "Safari", Version: "17.0", Weight: 0.90, Notes: "macOS Safari"}},
		{Fingerprint: "f7c8e1e49f8c7b9e8d8e7f8c9b8a7d6c",
			Entry: SignatureEntry{Family: "Safari", Version: "16.0", Weight: 0.88, Notes: "macOS Safari"}},
		{Fingerprint: "a0e9f5d64349fb13191bc781f81f42e1",
			Entry: SignatureEntry{Family: "Edge", Version: "120.0", Weight: 0.90, Notes: "Chromium-based Edge"}},
		{Fingerprint: "e35df3e00ca4ef31d42b34bebaa2f86e",
			Entry: SignatureEntry{Family: "Curl", Version: "8.0+", Weight: 0.98, Notes: "command-line tool"}},
		{Fingerprint: "ec74a5c51106f0419184d0dd08fb05bc",
			Entry: SignatureEntry{Family: "Python-requests", Version: "2.0+", Weight: 0.95, Notes: "Python HTTP library"}},
	}
}

// Families lists the distinct client families in the database, sorted.
func (db *SignatureDB) Families() []string {
	seen := make(map[string]struct{})
	for _, entries := range db.byRawHash {
		for _, e := range entries {
			seen[e.Family] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func isHexHash(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
