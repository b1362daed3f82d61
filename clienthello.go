package wireprint

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// ClientHello is the parsed view of a captured hello. All list fields keep
// their wire order, GREASE values included; normalization is the
// fingerprint calculator's job, not the parser's.
type ClientHello struct {
	RecordVersion     uint16
	LegacyVersion     uint16
	Random            []byte
	SessionID         []byte
	CipherSuites      []uint16
	Compression       []uint8
	Extensions        []uint16
	Curves            []uint16
	PointFormats      []uint8
	SignatureAlgos    []uint16
	SupportedVersions []uint16
	ALPN              []string
	ServerName        string
	Grease            bool
}

// IsClientHello is the cheap acid test for a buffer starting with a TLS
// record that carries a ClientHello: record type 22, record version major 3,
// handshake type 1, hello version major 3.
func IsClientHello(buf []byte) bool {
	return len(buf) >= minPacketLength &&
		buf[0] == RecordTypeHandshake && buf[1] == 3 &&
		buf[5] == HandshakeTypeClientHello && buf[9] == 3
}

// ParseClientHello decodes a complete TLS record containing a ClientHello.
// It reads from buf without copying list contents where it can, and never
// panics on malformed input; anything that fails a bounds check comes back
// as an error.
func ParseClientHello(buf []byte) (*ClientHello, error) {
	if len(buf) < minPacketLength {
		return nil, fmt.Errorf("packet appears to be truncated")
	}
	if !IsClientHello(buf) {
		return nil, fmt.Errorf("does not look like a client hello")
	}

	var (
		hello ClientHello
		s     = cryptobyte.String(buf)

		recordType uint8
		record     cryptobyte.String
		hsType     uint8
		body       cryptobyte.String
	)

	if !s.ReadUint8(&recordType) || !s.ReadUint16(&hello.RecordVersion) ||
		!s.ReadUint16LengthPrefixed(&record) {
		return nil, fmt.Errorf("could not read record header")
	}
	if !record.ReadUint8(&hsType) || !record.ReadUint24LengthPrefixed(&body) {
		return nil, fmt.Errorf("could not read handshake header")
	}

	if !body.ReadUint16(&hello.LegacyVersion) {
		return nil, fmt.Errorf("could not read hello version")
	}
	if !body.ReadBytes(&hello.Random, 32) {
		return nil, fmt.Errorf("could not read hello random")
	}

	var sessionID cryptobyte.String
	if !body.ReadUint8LengthPrefixed(&sessionID) {
		return nil, fmt.Errorf("could not read session id")
	}
	hello.SessionID = []byte(sessionID)

	var ciphers cryptobyte.String
	if !body.ReadUint16LengthPrefixed(&ciphers) {
		return nil, fmt.Errorf("could not read ciphersuites")
	}
	for !ciphers.Empty() {
		var cs uint16
		if !ciphers.ReadUint16(&cs) {
			return nil, fmt.Errorf("could not read ciphersuites")
		}
		if IsGrease(cs) {
			hello.Grease = true
		}
		hello.CipherSuites = append(hello.CipherSuites, cs)
	}

	var compression cryptobyte.String
	if !body.ReadUint8LengthPrefixed(&compression) {
		return nil, fmt.Errorf("could not read compression methods")
	}
	hello.Compression = []uint8(compression)

	// SSLv3-era hellos stop here. No extensions is still a valid hello.
	if body.Empty() {
		return &hello, nil
	}

	var extBlock cryptobyte.String
	if !body.ReadUint16LengthPrefixed(&extBlock) {
		return nil, fmt.Errorf("could not read extension block")
	}
	if err := hello.parseExtensions(extBlock); err != nil {
		return nil, err
	}
	return &hello, nil
}

func (h *ClientHello) parseExtensions(extBlock cryptobyte.String) error {
	for !extBlock.Empty() {
		var (
			extType    uint16
			extContent cryptobyte.String
		)
		if !extBlock.ReadUint16(&extType) || !extBlock.ReadUint16LengthPrefixed(&extContent) {
			return fmt.Errorf("could not read extension")
		}

		// Extension order is part of the identity, so every type lands in
		// the list, GREASE included.
		h.Extensions = append(h.Extensions, extType)
		if IsGrease(extType) {
			h.Grease = true
			continue
		}

		switch extType {
		case ExtServerName:
			if err := h.parseSNI(extContent); err != nil {
				return err
			}

		case ExtEllipticCurves:
			if err := read16Length16List(&extContent, &h.Curves); err != nil {
				return fmt.Errorf("could not read elliptic curves: %w", err)
			}
			for _, c := range h.Curves {
				if IsGrease(c) {
					h.Grease = true
				}
			}

		case ExtECPointFormats:
			if err := read8Length8List(&extContent, &h.PointFormats); err != nil {
				return fmt.Errorf("could not read ec point formats: %w", err)
			}

		case ExtSignatureAlgorithms:
			if err := read16Length16List(&extContent, &h.SignatureAlgos); err != nil {
				return fmt.Errorf("could not read signature algorithms: %w", err)
			}

		case ExtSupportedVersions:
			if err := read8Length16List(&extContent, &h.SupportedVersions); err != nil {
				return fmt.Errorf("could not read supported versions: %w", err)
			}
			for _, v := range h.SupportedVersions {
				if IsGrease(v) {
					h.Grease = true
				}
			}

		case ExtALPN:
			if err := h.parseALPN(extContent); err != nil {
				return err
			}
		}
		// Everything else (padding, key_share, session tickets, unknown
		// types) contributes its type to the order list and nothing more.
	}
	return nil
}

func (h *ClientHello) parseSNI(extContent cryptobyte.String) error {
	var nameList cryptobyte.String
	if !extContent.ReadUint16LengthPrefixed(&nameList) {
		return fmt.Errorf("could not read sni")
	}
	for !nameList.Empty() {
		var (
			nameType uint8
			name     cryptobyte.String
		)
		if !nameList.ReadUint8(&nameType) || !nameList.ReadUint16LengthPrefixed(&name) {
			return fmt.Errorf("could not read sni")
		}
		// Host type is the only one ever seen in the wild.
		if nameType == 0 && h.ServerName == "" {
			h.ServerName = string(name)
		}
	}
	return nil
}

func (h *ClientHello) parseALPN(extContent cryptobyte.String) error {
	var protoList cryptobyte.String
	if !extContent.ReadUint16LengthPrefixed(&protoList) {
		return fmt.Errorf("could not read alpn")
	}
	for !protoList.Empty() {
		var proto cryptobyte.String
		if !protoList.ReadUint8LengthPrefixed(&proto) {
			return fmt.Errorf("could not read alpn")
		}
		h.ALPN = append(h.ALPN, string(proto))
	}
	return nil
}
