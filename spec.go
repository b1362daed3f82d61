package wireprint

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// ErrSpecificationInvalid is returned when a Specification cannot be turned
// into wire bytes. It is fatal to that single construction only.
var ErrSpecificationInvalid = errors.New("specification invalid")

// Specification is the protocol-agnostic description of a client identity.
// Extension order is significant and preserved exactly as supplied;
// reordering changes the fingerprint.
type Specification struct {
	CipherSuites       []uint16
	CompressionMethods []uint8
	Extensions         []Extension
	MinVersion         uint16
	MaxVersion         uint16
}

// Validate checks the invariants the serializer relies on. The record-size
// ceiling is enforced separately after encoding.
func (s *Specification) Validate() error {
	if len(s.CipherSuites) == 0 {
		return fmt.Errorf("%w: empty cipher suite list", ErrSpecificationInvalid)
	}
	if len(s.Extensions) == 0 {
		return fmt.Errorf("%w: empty extension list", ErrSpecificationInvalid)
	}
	if s.MaxVersion != 0 && s.MinVersion > s.MaxVersion {
		return fmt.Errorf("%w: min version %#04x above max %#04x", ErrSpecificationInvalid, s.MinVersion, s.MaxVersion)
	}
	return nil
}

// legacyVersion is the value written into the ClientHello version field.
// TLS 1.3 hellos advertise 1.2 there and carry 1.3 in supported_versions.
func (s *Specification) legacyVersion() uint16 {
	if s.MaxVersion == 0 || s.MaxVersion > VersionTLS12 {
		return VersionTLS12
	}
	return s.MaxVersion
}

// KeyShare is one entry of a key_share extension. Empty Data means the
// serializer generates material for the group (or a documented placeholder
// when the group is not cryptographically supported). GREASE groups carry
// a single zero byte.
type KeyShare struct {
	Group uint16
	Data  []byte
}

// Extension is one ClientHello extension in a Specification. The set of
// implementations is closed; anything not modeled explicitly is carried by
// OpaqueExtension, which round-trips arbitrary payload bytes.
type Extension interface {
	// TypeID is the registered extension code point on the wire.
	TypeID() uint16
	// Greased reports whether this slot is a GREASE placeholder.
	Greased() bool
	// marshalBody appends the extension payload (without the type/length
	// prefix) to b. serverName is only consumed by the SNI extension.
	marshalBody(b *cryptobyte.Builder, serverName string) error
}

// SNIExtension emits server_name. The host is supplied at serialization
// time; the extension itself only records that the slot exists.
type SNIExtension struct{}

func (*SNIExtension) TypeID() uint16 { return ExtServerName }
func (*SNIExtension) Greased() bool  { return false }

func (*SNIExtension) marshalBody(b *cryptobyte.Builder, serverName string) error {
	if serverName == "" {
		return fmt.Errorf("%w: spec contains server_name extension but no host was given", ErrSpecificationInvalid)
	}
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		list.AddUint8(0) // name_type host_name
		list.AddUint16LengthPrefixed(func(name *cryptobyte.Builder) {
			name.AddBytes([]byte(serverName))
		})
	})
	return nil
}

// SupportedCurvesExtension emits supported_groups in the given order,
// GREASE placeholders included.
type SupportedCurvesExtension struct {
	Curves []uint16
}

func (*SupportedCurvesExtension) TypeID() uint16 { return ExtEllipticCurves }
func (*SupportedCurvesExtension) Greased() bool  { return false }

func (e *SupportedCurvesExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, c := range e.Curves {
			list.AddUint16(c)
		}
	})
	return nil
}

// SupportedPointsExtension emits ec_point_formats.
type SupportedPointsExtension struct {
	Formats []uint8
}

func (*SupportedPointsExtension) TypeID() uint16 { return ExtECPointFormats }
func (*SupportedPointsExtension) Greased() bool  { return false }

func (e *SupportedPointsExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8LengthPrefixed(func(list *cryptobyte.Builder) {
		list.AddBytes(e.Formats)
	})
	return nil
}

// SignatureAlgorithmsExtension emits signature_algorithms.
type SignatureAlgorithmsExtension struct {
	Algorithms []uint16
}

func (*SignatureAlgorithmsExtension) TypeID() uint16 { return ExtSignatureAlgorithms }
func (*SignatureAlgorithmsExtension) Greased() bool  { return false }

func (e *SignatureAlgorithmsExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, a := range e.Algorithms {
			list.AddUint16(a)
		}
	})
	return nil
}

// ALPNExtension emits application_layer_protocol_negotiation.
type ALPNExtension struct {
	Protocols []string
}

func (*ALPNExtension) TypeID() uint16 { return ExtALPN }
func (*ALPNExtension) Greased() bool  { return false }

func (e *ALPNExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, p := range e.Protocols {
			list.AddUint8LengthPrefixed(func(proto *cryptobyte.Builder) {
				proto.AddBytes([]byte(p))
			})
		}
	})
	return nil
}

// SupportedVersionsExtension emits supported_versions in the given order,
// GREASE placeholders included.
type SupportedVersionsExtension struct {
	Versions []uint16
}

func (*SupportedVersionsExtension) TypeID() uint16 { return ExtSupportedVersions }
func (*SupportedVersionsExtension) Greased() bool  { return false }

func (e *SupportedVersionsExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, v := range e.Versions {
			list.AddUint16(v)
		}
	})
	return nil
}

// KeyShareExtension emits key_share. Shares with empty Data are
// materialized by the serializer before marshaling.
type KeyShareExtension struct {
	Shares []KeyShare
}

func (*KeyShareExtension) TypeID() uint16 { return ExtKeyShare }
func (*KeyShareExtension) Greased() bool  { return false }

func (e *KeyShareExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, ks := range e.Shares {
			list.AddUint16(ks.Group)
			list.AddUint16LengthPrefixed(func(data *cryptobyte.Builder) {
				data.AddBytes(ks.Data)
			})
		}
	})
	return nil
}

// PSKModesExtension emits psk_key_exchange_modes.
type PSKModesExtension struct {
	Modes []uint8
}

func (*PSKModesExtension) TypeID() uint16 { return ExtPSKKeyExchangeModes }
func (*PSKModesExtension) Greased() bool  { return false }

func (e *PSKModesExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8LengthPrefixed(func(list *cryptobyte.Builder) {
		list.AddBytes(e.Modes)
	})
	return nil
}

// SessionTicketExtension emits an empty session_ticket (new session).
type SessionTicketExtension struct{}

func (*SessionTicketExtension) TypeID() uint16 { return ExtSessionTicket }
func (*SessionTicketExtension) Greased() bool  { return false }

func (*SessionTicketExtension) marshalBody(*cryptobyte.Builder, string) error { return nil }

// ExtendedMasterSecretExtension emits extended_master_secret (empty body).
type ExtendedMasterSecretExtension struct{}

func (*ExtendedMasterSecretExtension) TypeID() uint16 { return ExtExtendedMasterSecret }
func (*ExtendedMasterSecretExtension) Greased() bool  { return false }

func (*ExtendedMasterSecretExtension) marshalBody(*cryptobyte.Builder, string) error { return nil }

// RenegotiationInfoExtension emits renegotiation_info for an initial
// handshake (empty renegotiated_connection).
type RenegotiationInfoExtension struct{}

func (*RenegotiationInfoExtension) TypeID() uint16 { return ExtRenegotiationInfo }
func (*RenegotiationInfoExtension) Greased() bool  { return false }

func (*RenegotiationInfoExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8(0)
	return nil
}

// SCTExtension emits signed_certificate_timestamp (empty body).
type SCTExtension struct{}

func (*SCTExtension) TypeID() uint16 { return ExtSCT }
func (*SCTExtension) Greased() bool  { return false }

func (*SCTExtension) marshalBody(*cryptobyte.Builder, string) error { return nil }

// StatusRequestExtension emits status_request for OCSP stapling.
type StatusRequestExtension struct{}

func (*StatusRequestExtension) TypeID() uint16 { return ExtStatusRequest }
func (*StatusRequestExtension) Greased() bool  { return false }

func (*StatusRequestExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8(1)  // status_type ocsp
	b.AddUint16(0) // empty responder_id_list
	b.AddUint16(0) // empty request_extensions
	return nil
}

// CompressCertExtension emits compress_certificate.
type CompressCertExtension struct {
	Algorithms []uint16
}

func (*CompressCertExtension) TypeID() uint16 { return ExtCompressCertificate }
func (*CompressCertExtension) Greased() bool  { return false }

func (e *CompressCertExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint8LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, a := range e.Algorithms {
			list.AddUint16(a)
		}
	})
	return nil
}

// ApplicationSettingsExtension emits the ALPS extension Chromium sends.
type ApplicationSettingsExtension struct {
	Protocols []string
}

func (*ApplicationSettingsExtension) TypeID() uint16 { return ExtApplicationSettings }
func (*ApplicationSettingsExtension) Greased() bool  { return false }

func (e *ApplicationSettingsExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16LengthPrefixed(func(list *cryptobyte.Builder) {
		for _, p := range e.Protocols {
			list.AddUint8LengthPrefixed(func(proto *cryptobyte.Builder) {
				proto.AddBytes([]byte(p))
			})
		}
	})
	return nil
}

// RecordSizeLimitExtension emits record_size_limit.
type RecordSizeLimitExtension struct {
	Limit uint16
}

func (*RecordSizeLimitExtension) TypeID() uint16 { return ExtRecordSizeLimit }
func (*RecordSizeLimitExtension) Greased() bool  { return false }

func (e *RecordSizeLimitExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddUint16(e.Limit)
	return nil
}

// PaddingExtension emits a fixed run of zero bytes. Browsers pad hellos to
// dodge middlebox size heuristics; a fixed length keeps serialization
// deterministic.
type PaddingExtension struct {
	Length int
}

func (*PaddingExtension) TypeID() uint16 { return ExtPadding }
func (*PaddingExtension) Greased() bool  { return false }

func (e *PaddingExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddBytes(make([]byte, e.Length))
	return nil
}

// GREASEExtension is a GREASE placeholder extension slot. Value must match
// the reserved pattern; Body is usually empty or a single zero byte.
type GREASEExtension struct {
	Value uint16
	Body  []byte
}

func (e *GREASEExtension) TypeID() uint16 { return e.Value }
func (*GREASEExtension) Greased() bool    { return true }

func (e *GREASEExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	if !IsGrease(e.Value) {
		return fmt.Errorf("%w: GREASE extension value %#04x does not match reserved pattern", ErrSpecificationInvalid, e.Value)
	}
	b.AddBytes(e.Body)
	return nil
}

// OpaqueExtension carries a raw payload for any extension type the model
// does not know. New extension kinds never require touching the serializer.
type OpaqueExtension struct {
	Type uint16
	Data []byte
}

func (e *OpaqueExtension) TypeID() uint16 { return e.Type }
func (*OpaqueExtension) Greased() bool    { return false }

func (e *OpaqueExtension) marshalBody(b *cryptobyte.Builder, _ string) error {
	b.AddBytes(e.Data)
	return nil
}

// curveList returns the supported_groups list declared in the spec, or nil.
func (s *Specification) curveList() []uint16 {
	for _, ext := range s.Extensions {
		if e, ok := ext.(*SupportedCurvesExtension); ok {
			return e.Curves
		}
	}
	return nil
}

// pointFormatList returns the ec_point_formats list declared in the spec.
func (s *Specification) pointFormatList() []uint8 {
	for _, ext := range s.Extensions {
		if e, ok := ext.(*SupportedPointsExtension); ok {
			return e.Formats
		}
	}
	return nil
}
