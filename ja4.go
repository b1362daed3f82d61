package wireprint

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// ja4Input carries the hello fields that JA4 uses beyond the five JA3
// lists: negotiated-version candidates, SNI presence, ALPN, and the
// signature algorithm list.
type ja4Input struct {
	legacyVersion     uint16
	supportedVersions []uint16
	ciphers           []uint16
	extensions        []uint16
	sigAlgos          []uint16
	hasSNI            bool
	alpn              string
}

// renderJA4 produces the sorted, hashed JA4 string and its raw (ja4_r)
// companion. Transport is always 't': the capture side hands this package
// TCP payloads only.
func renderJA4(in ja4Input) (ja4, ja4Raw string) {
	a := ja4A(in)

	ciphers := FilterGrease(in.ciphers)
	sort.Slice(ciphers, func(i, j int) bool { return ciphers[i] < ciphers[j] })
	b := hexJoin(ciphers)

	// The sorted extension block excludes server_name and ALPN; their
	// presence is already encoded in ja4_a.
	exts := make([]uint16, 0, len(in.extensions))
	for _, e := range FilterGrease(in.extensions) {
		if e != ExtServerName && e != ExtALPN {
			exts = append(exts, e)
		}
	}
	sort.Slice(exts, func(i, j int) bool { return exts[i] < exts[j] })

	c := hexJoin(exts)
	if algos := hexJoin(FilterGrease(in.sigAlgos)); algos != "" {
		if c == "" {
			c = algos
		} else {
			c = c + "_" + algos
		}
	}

	return a + "_" + hash12(b) + "_" + hash12(c), a + "_" + b + "_" + c
}

func ja4A(in ja4Input) string {
	sni := byte('i')
	if in.hasSNI {
		sni = 'd'
	}
	first, last := alpnChars(in.alpn)
	return fmt.Sprintf("t%s%c%02d%02d%c%c",
		ja4Version(in.supportedVersions, in.legacyVersion),
		sni,
		min99(len(in.ciphers)),
		min99(len(in.extensions)),
		first, last)
}

// ja4Version picks the highest offered version: the supported_versions
// extension when present, the legacy record version otherwise.
func ja4Version(supported []uint16, legacy uint16) string {
	v := legacy
	if filtered := FilterGrease(supported); len(filtered) > 0 {
		v = 0
		for _, s := range filtered {
			if s > v {
				v = s
			}
		}
	}
	switch v {
	case VersionTLS13:
		return "13"
	case VersionTLS12:
		return "12"
	case VersionTLS11:
		return "11"
	case VersionTLS10:
		return "10"
	}
	return "00"
}

// alpnChars returns the first and last character of the first ALPN value,
// '0''0' when none is offered. Non-ASCII bytes map to '9'.
func alpnChars(alpn string) (byte, byte) {
	if alpn == "" {
		return '0', '0'
	}
	first := ascii9(alpn[0])
	if len(alpn) == 1 {
		return first, '0'
	}
	return first, ascii9(alpn[len(alpn)-1])
}

func ascii9(c byte) byte {
	if c > 0x7f {
		return '9'
	}
	return c
}

func min99(n int) int {
	if n > 99 {
		return 99
	}
	return n
}

func hexJoin(values []uint16) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%04x", v)
	}
	return strings.Join(parts, ",")
}

// hash12 is the first 12 hex characters of the SHA-256 digest.
func hash12(s string) string {
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", sum)[:12]
}

func ja4FromClientHello(hello *ClientHello) ja4Input {
	hasSNI := false
	for _, e := range hello.Extensions {
		if e == ExtServerName {
			hasSNI = true
			break
		}
	}
	alpn := ""
	if len(hello.ALPN) > 0 {
		alpn = hello.ALPN[0]
	}
	return ja4Input{
		legacyVersion:     hello.LegacyVersion,
		supportedVersions: hello.SupportedVersions,
		ciphers:           hello.CipherSuites,
		extensions:        hello.Extensions,
		sigAlgos:          hello.SignatureAlgos,
		hasSNI:            hasSNI,
		alpn:              alpn,
	}
}

func ja4FromSpecification(spec *Specification, extIDs []uint16) ja4Input {
	in := ja4Input{
		legacyVersion: spec.legacyVersion(),
		ciphers:       spec.CipherSuites,
		extensions:    extIDs,
	}
	for _, ext := range spec.Extensions {
		switch e := ext.(type) {
		case *SNIExtension:
			in.hasSNI = true
		case *ALPNExtension:
			if len(e.Protocols) > 0 {
				in.alpn = e.Protocols[0]
			}
		case *SignatureAlgorithmsExtension:
			in.sigAlgos = e.Algorithms
		case *SupportedVersionsExtension:
			in.supportedVersions = e.Versions
		}
	}
	return in
}
