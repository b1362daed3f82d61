package wireprint

import "crypto/rand"

// IsGrease reports whether v matches the reserved GREASE pattern: both bytes
// equal, low nibble 0xA in each (0x0a0a, 0x1a1a, ... 0xfafa).
func IsGrease(v uint16) bool {
	return byte(v>>8) == byte(v) && v&0x0f0f == 0x0a0a
}

// FilterGrease returns values with all GREASE entries removed. The input is
// not modified.
func FilterGrease(values []uint16) []uint16 {
	out := make([]uint16, 0, len(values))
	for _, v := range values {
		if !IsGrease(v) {
			out = append(out, v)
		}
	}
	return out
}

// randomGrease picks one of the sixteen reserved values using crypto/rand.
// Falls back to the canonical placeholder if the random source misbehaves.
func randomGrease() uint16 {
	var one [1]byte
	if _, err := rand.Read(one[:]); err != nil {
		return GreasePlaceholder
	}
	return GreaseValues[int(one[0])%len(GreaseValues)]
}

// RandomizeGrease replaces every GREASE placeholder in the Specification
// with fresh random reserved values, the way real browsers re-roll GREASE
// per connection. Cipher-list and extension-slot placeholders share one
// value, group/key-share placeholders share another, mirroring Chrome.
// Raw-mode fingerprints of the result will differ from the original spec;
// normalized-mode fingerprints will not.
func RandomizeGrease(spec *Specification) {
	helloGrease := randomGrease()
	groupGrease := randomGrease()

	for i, cs := range spec.CipherSuites {
		if IsGrease(cs) {
			spec.CipherSuites[i] = helloGrease
		}
	}
	for _, ext := range spec.Extensions {
		switch e := ext.(type) {
		case *GREASEExtension:
			e.Value = helloGrease
		case *SupportedCurvesExtension:
			for i, c := range e.Curves {
				if IsGrease(c) {
					e.Curves[i] = groupGrease
				}
			}
		case *KeyShareExtension:
			for i := range e.Shares {
				if IsGrease(e.Shares[i].Group) {
					e.Shares[i].Group = groupGrease
				}
			}
		case *SupportedVersionsExtension:
			for i, v := range e.Versions {
				if IsGrease(v) {
					e.Versions[i] = helloGrease
				}
			}
		}
	}
}
