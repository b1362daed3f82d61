package wireprint

const (
	// Configuration Constants
	minPacketLength = 45 // Theoretical minimum size of smallest TLS header (TLSv1.0)

	// maxRecordPayload is the record-layer plaintext ceiling (RFC 8446 §5.1).
	// A ClientHello whose encoding would exceed this is rejected rather
	// than fragmented.
	maxRecordPayload = 1 << 14

	// TLS record content types
	RecordTypeHandshake uint8 = 22

	// TLS handshake message types
	HandshakeTypeClientHello uint8 = 1

	// TLS Extension types
	ExtServerName           uint16 = 0x0000
	ExtStatusRequest        uint16 = 0x0005
	ExtEllipticCurves       uint16 = 0x000a
	ExtECPointFormats       uint16 = 0x000b
	ExtSignatureAlgorithms  uint16 = 0x000d
	ExtALPN                 uint16 = 0x0010
	ExtSCT                  uint16 = 0x0012
	ExtPadding              uint16 = 0x0015
	ExtExtendedMasterSecret uint16 = 0x0017
	ExtCompressCertificate  uint16 = 0x001b
	ExtRecordSizeLimit      uint16 = 0x001c
	ExtSessionTicket        uint16 = 0x0023
	ExtSupportedVersions    uint16 = 0x002b
	ExtPSKKeyExchangeModes  uint16 = 0x002d
	ExtKeyShare             uint16 = 0x0033
	ExtApplicationSettings  uint16 = 0x4469
	ExtRenegotiationInfo    uint16 = 0xff01

	// TLS Protocol Versions
	VersionTLS10 uint16 = 0x0301
	VersionTLS11 uint16 = 0x0302
	VersionTLS12 uint16 = 0x0303
	VersionTLS13 uint16 = 0x0304

	// Supported groups / curves
	CurveX25519      uint16 = 0x001d
	CurveP256        uint16 = 0x0017
	CurveP384        uint16 = 0x0018
	CurveX25519MLKEM uint16 = 0x11ec

	pointFormatUncompressed uint8 = 0x00

	// PSK key exchange modes
	PSKModeDHE uint8 = 0x01

	// Compression methods
	CompressionNone uint8 = 0x00

	// Certificate compression algorithms
	CertCompressionBrotli uint16 = 0x0002
)

// GreaseValues are the reserved values clients scatter through their hellos
// to keep servers honest about unknown code points (RFC 8701).
var GreaseValues = []uint16{
	0x0A0A, 0x1A1A, 0x2A2A, 0x3A3A, 0x4A4A,
	0x5A5A, 0x6A6A, 0x7A7A, 0x8A8A, 0x9A9A,
	0xAAAA, 0xBABA, 0xCACA, 0xDADA, 0xEAEA,
	0xFAFA,
}

// GreasePlaceholder is the canonical placeholder used in Specifications.
// Serialization emits it verbatim unless the caller randomizes the spec
// first, so construction stays deterministic by default.
const GreasePlaceholder uint16 = 0x0A0A
