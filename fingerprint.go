package wireprint

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// CanonicalFingerprint is the order-preserving reduction of a hello to the
// five fields that identify a client: version, cipher suites, extension
// order, curves, and point formats. It carries both renderings at once.
// The raw form keeps GREASE values, so it changes between connections of
// clients that randomize GREASE; the normalized form strips them and is
// stable across connections of the same client build.
type CanonicalFingerprint struct {
	Version      uint16
	Ciphers      []uint16
	Extensions   []uint16
	Curves       []uint16
	PointFormats []uint8

	RawString  string
	RawHash    string
	NormString string
	NormHash   string

	// JA4 is the sorted, hashed rendering; JA4Raw keeps the full hex
	// lists (the ja4_r form). Both are empty on fingerprints rebuilt
	// from a JA3 string, which carries no SNI/ALPN/sigalg information.
	JA4    string
	JA4Raw string
}

// FingerprintFromClientHello reduces a parsed hello to its canonical
// fingerprint. Every extension that was on the wire stays in the list,
// padding included; only GREASE is stripped, and only in the normalized
// mode. Anything more aggressive would diverge from hashes computed by
// other tools.
func FingerprintFromClientHello(hello *ClientHello) *CanonicalFingerprint {
	fp := &CanonicalFingerprint{
		Version:      hello.LegacyVersion,
		Ciphers:      hello.CipherSuites,
		Extensions:   hello.Extensions,
		Curves:       hello.Curves,
		PointFormats: hello.PointFormats,
	}
	fp.render()
	fp.JA4, fp.JA4Raw = renderJA4(ja4FromClientHello(hello))
	return fp
}

// FingerprintFromSpecification computes the fingerprint a spec would
// produce on the wire without serializing it. Serializing the spec and
// fingerprinting the captured bytes yields the same value.
func FingerprintFromSpecification(spec *Specification) (*CanonicalFingerprint, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	exts := make([]uint16, 0, len(spec.Extensions))
	for _, ext := range spec.Extensions {
		exts = append(exts, ext.TypeID())
	}
	fp := &CanonicalFingerprint{
		Version:      spec.legacyVersion(),
		Ciphers:      spec.CipherSuites,
		Extensions:   exts,
		Curves:       spec.curveList(),
		PointFormats: spec.pointFormatList(),
	}
	fp.render()
	fp.JA4, fp.JA4Raw = renderJA4(ja4FromSpecification(spec, exts))
	return fp, nil
}

func (fp *CanonicalFingerprint) render() {
	fp.RawString = ja3Join(fp.Version, fp.Ciphers, fp.Extensions, fp.Curves, fp.PointFormats)
	fp.NormString = ja3Join(fp.Version,
		FilterGrease(fp.Ciphers), FilterGrease(fp.Extensions), FilterGrease(fp.Curves),
		fp.PointFormats)
	fp.RawHash = md5Hex(fp.RawString)
	fp.NormHash = md5Hex(fp.NormString)
}

// ja3Join renders the five fields with the classic delimiters: dashes
// inside a list, commas between lists, decimal values throughout.
func ja3Join(version uint16, ciphers, exts, curves []uint16, formats []uint8) string {
	return strings.Join([]string{
		strconv.Itoa(int(version)),
		sliceToDash16(ciphers),
		sliceToDash16(exts),
		sliceToDash16(curves),
		sliceToDash8(formats),
	}, ",")
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ParseJA3String splits a rendered fingerprint string back into its five
// component lists. Useful for loading signature databases that store the
// string form rather than the hash.
func ParseJA3String(s string) (*CanonicalFingerprint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return nil, fmt.Errorf("fingerprint string has %d fields, want 5", len(parts))
	}
	ver, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bad version field %q: %w", parts[0], err)
	}
	fp := &CanonicalFingerprint{Version: uint16(ver)}
	if fp.Ciphers, err = dashToSlice16(parts[1]); err != nil {
		return nil, fmt.Errorf("bad cipher field: %w", err)
	}
	if fp.Extensions, err = dashToSlice16(parts[2]); err != nil {
		return nil, fmt.Errorf("bad extension field: %w", err)
	}
	if fp.Curves, err = dashToSlice16(parts[3]); err != nil {
		return nil, fmt.Errorf("bad curve field: %w", err)
	}
	if fp.PointFormats, err = dashToSlice8(parts[4]); err != nil {
		return nil, fmt.Errorf("bad point format field: %w", err)
	}
	fp.render()
	return fp, nil
}
