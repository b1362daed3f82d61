package wireprint

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/curve25519"
)

// keyShareSizes maps groups the serializer cannot generate real material
// for to the client share length a genuine implementation would send, so a
// zero placeholder still has the right shape on the wire.
var keyShareSizes = map[uint16]int{
	CurveX25519MLKEM: 1216, // ML-KEM-768 encapsulation key + X25519 point
}

// Serialize encodes spec as a complete TLS record carrying a ClientHello.
// serverName is injected into the server_name extension when the spec
// declares one; specs without that extension ignore it. GREASE placeholders
// are emitted verbatim, so serialization is deterministic up to the random
// fields (time, random, session id, key material).
func Serialize(spec *Specification, serverName string) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	body, err := clientHelloBody(spec, serverName)
	if err != nil {
		return nil, err
	}

	var rec cryptobyte.Builder
	rec.AddUint8(RecordTypeHandshake)
	rec.AddUint16(VersionTLS10) // record-layer version, frozen for compat
	rec.AddUint16LengthPrefixed(func(payload *cryptobyte.Builder) {
		payload.AddUint8(HandshakeTypeClientHello)
		payload.AddUint24LengthPrefixed(func(hs *cryptobyte.Builder) {
			hs.AddBytes(body)
		})
	})

	out, err := rec.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding client hello: %w", err)
	}
	if payload := len(out) - 5; payload > maxRecordPayload {
		return nil, fmt.Errorf("%w: client hello payload %d exceeds record limit %d", ErrSpecificationInvalid, payload, maxRecordPayload)
	}
	return out, nil
}

func clientHelloBody(spec *Specification, serverName string) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint16(spec.legacyVersion())

	random, err := helloRandom()
	if err != nil {
		return nil, err
	}
	b.AddBytes(random)

	sessionID := make([]byte, 32)
	if _, err := rand.Read(sessionID); err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}
	b.AddUint8LengthPrefixed(func(sid *cryptobyte.Builder) {
		sid.AddBytes(sessionID)
	})

	b.AddUint16LengthPrefixed(func(ciphers *cryptobyte.Builder) {
		for _, cs := range spec.CipherSuites {
			ciphers.AddUint16(cs)
		}
	})

	compression := spec.CompressionMethods
	if len(compression) == 0 {
		compression = []uint8{CompressionNone}
	}
	b.AddUint8LengthPrefixed(func(comp *cryptobyte.Builder) {
		comp.AddBytes(compression)
	})

	b.AddUint16LengthPrefixed(func(exts *cryptobyte.Builder) {
		for _, ext := range spec.Extensions {
			ext := ext
			if ks, ok := ext.(*KeyShareExtension); ok {
				filled, err := fillKeyShares(ks)
				if err != nil {
					exts.SetError(err)
					return
				}
				ext = filled
			}
			exts.AddUint16(ext.TypeID())
			exts.AddUint16LengthPrefixed(func(body *cryptobyte.Builder) {
				if err := ext.marshalBody(body, serverName); err != nil {
					body.SetError(err)
				}
			})
		}
	})

	return b.Bytes()
}

// helloRandom builds the 32-byte ClientHello random the way classic stacks
// did: a unix timestamp followed by 28 random bytes.
func helloRandom() ([]byte, error) {
	random := make([]byte, 32)
	binary.BigEndian.PutUint32(random[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(random[4:]); err != nil {
		return nil, fmt.Errorf("generating hello random: %w", err)
	}
	return random, nil
}

// fillKeyShares returns a copy of ext with empty Data fields materialized.
// Shares that already carry bytes pass through untouched.
func fillKeyShares(ext *KeyShareExtension) (*KeyShareExtension, error) {
	out := &KeyShareExtension{Shares: make([]KeyShare, len(ext.Shares))}
	for i, ks := range ext.Shares {
		out.Shares[i] = ks
		if len(ks.Data) > 0 {
			continue
		}
		data, err := generateKeyShare(ks.Group)
		if err != nil {
			return nil, err
		}
		out.Shares[i].Data = data
	}
	return out, nil
}

func generateKeyShare(group uint16) ([]byte, error) {
	switch {
	case IsGrease(group):
		// GREASE shares carry a single zero byte, matching Chrome.
		return []byte{0}, nil
	case group == CurveX25519:
		var priv [curve25519.ScalarSize]byte
		if _, err := rand.Read(priv[:]); err != nil {
			return nil, fmt.Errorf("generating x25519 key: %w", err)
		}
		pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
		if err != nil {
			return nil, fmt.Errorf("deriving x25519 share: %w", err)
		}
		return pub, nil
	case group == CurveP256:
		return ecdhShare(ecdh.P256())
	case group == CurveP384:
		return ecdhShare(ecdh.P384())
	}

	size, ok := keyShareSizes[group]
	if !ok {
		return nil, fmt.Errorf("%w: no key material generator for group %#04x", ErrSpecificationInvalid, group)
	}
	// Placeholder share. The bytes are structurally valid but useless for
	// key agreement; handshakes negotiating this group will fail.
	log.Printf("wireprint: emitting zero placeholder key share for group %#04x", group)
	return make([]byte, size), nil
}

func ecdhShare(curve ecdh.Curve) ([]byte, error) {
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ecdh key: %w", err)
	}
	return priv.PublicKey().Bytes(), nil
}
