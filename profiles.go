package wireprint

import (
	"crypto/tls"
	"fmt"
	"sort"
)

// Signature scheme code points (RFC 8446 §4.2.3).
const (
	sigECDSAP256SHA256 uint16 = 0x0403
	sigECDSAP384SHA384 uint16 = 0x0503
	sigECDSAP521SHA512 uint16 = 0x0603
	sigPSSSHA256       uint16 = 0x0804
	sigPSSSHA384       uint16 = 0x0805
	sigPSSSHA512       uint16 = 0x0806
	sigPKCS1SHA256     uint16 = 0x0401
	sigPKCS1SHA384     uint16 = 0x0501
	sigPKCS1SHA512     uint16 = 0x0601
)

// ChromeSpec describes a Chromium-lineage desktop client. GREASE slots hold
// the canonical placeholder; call RandomizeGrease for per-connection values.
func ChromeSpec() *Specification {
	sigAlgs := []uint16{
		sigECDSAP256SHA256, sigPSSSHA256, sigPKCS1SHA256,
		sigECDSAP384SHA384, sigPSSSHA384, sigPKCS1SHA384,
		sigPSSSHA512, sigPKCS1SHA512,
	}
	return &Specification{
		CipherSuites: []uint16{
			GreasePlaceholder,
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
		CompressionMethods: []uint8{CompressionNone},
		Extensions: []Extension{
			&GREASEExtension{Value: GreasePlaceholder},
			&SNIExtension{},
			&ExtendedMasterSecretExtension{},
			&RenegotiationInfoExtension{},
			&SupportedCurvesExtension{Curves: []uint16{
				GreasePlaceholder, CurveX25519MLKEM, CurveX25519, CurveP256, CurveP384,
			}},
			&SupportedPointsExtension{Formats: []uint8{pointFormatUncompressed}},
			&SessionTicketExtension{},
			&ALPNExtension{Protocols: []string{"h2", "http/1.1"}},
			&StatusRequestExtension{},
			&SignatureAlgorithmsExtension{Algorithms: sigAlgs},
			&SCTExtension{},
			&KeyShareExtension{Shares: []KeyShare{
				{Group: GreasePlaceholder, Data: []byte{0}},
				{Group: CurveX25519MLKEM},
				{Group: CurveX25519},
			}},
			&PSKModesExtension{Modes: []uint8{PSKModeDHE}},
			&SupportedVersionsExtension{Versions: []uint16{
				GreasePlaceholder, VersionTLS13, VersionTLS12,
			}},
			&CompressCertExtension{Algorithms: []uint16{CertCompressionBrotli}},
			&ApplicationSettingsExtension{Protocols: []string{"h2"}},
			&GREASEExtension{Value: GreasePlaceholder, Body: []byte{0}},
			&PaddingExtension{Length: 0},
		},
		MinVersion: VersionTLS12,
		MaxVersion: VersionTLS13,
	}
}

// FirefoxSpec describes an NSS-lineage desktop client.
func FirefoxSpec() *Specification {
	curves := []uint16{CurveX25519, CurveP256, CurveP384, 0x0019}
	sigAlgs := []uint16{
		sigECDSAP256SHA256, sigECDSAP384SHA384, sigECDSAP521SHA512,
		sigPSSSHA256, sigPSSSHA384, sigPSSSHA512,
		sigPKCS1SHA256, sigPKCS1SHA384, sigPKCS1SHA512,
	}
	return &Specification{
		CipherSuites: []uint16{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA,
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
		CompressionMethods: []uint8{CompressionNone},
		Extensions: []Extension{
			&SNIExtension{},
			&ExtendedMasterSecretExtension{},
			&RenegotiationInfoExtension{},
			&SupportedCurvesExtension{Curves: curves},
			&SupportedPointsExtension{Formats: []uint8{pointFormatUncompressed}},
			&SessionTicketExtension{},
			&ALPNExtension{Protocols: []string{"h2", "http/1.1"}},
			&StatusRequestExtension{},
			&KeyShareExtension{Shares: []KeyShare{
				{Group: CurveX25519},
				{Group: CurveP256},
			}},
			&SupportedVersionsExtension{Versions: []uint16{VersionTLS13, VersionTLS12}},
			&SignatureAlgorithmsExtension{Algorithms: sigAlgs},
			&PSKModesExtension{Modes: []uint8{PSKModeDHE}},
			&RecordSizeLimitExtension{Limit: 0x4001},
			&PaddingExtension{Length: 0},
		},
		MinVersion: VersionTLS12,
		MaxVersion: VersionTLS13,
	}
}

// SafariSpec describes a Secure Transport lineage client.
func SafariSpec() *Specification {
	sigAlgs := []uint16{
		sigPKCS1SHA256, sigPKCS1SHA384, sigPKCS1SHA512,
		sigECDSAP256SHA256, sigECDSAP384SHA384,
	}
	return &Specification{
		CipherSuites: []uint16{
			GreasePlaceholder,
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		},
		CompressionMethods: []uint8{CompressionNone},
		Extensions: []Extension{
			&GREASEExtension{Value: GreasePlaceholder},
			&SNIExtension{},
			&ExtendedMasterSecretExtension{},
			&RenegotiationInfoExtension{},
			&SupportedCurvesExtension{Curves: []uint16{
				GreasePlaceholder, CurveX25519, CurveP256, CurveP384,
			}},
			&SupportedPointsExtension{Formats: []uint8{pointFormatUncompressed}},
			&ALPNExtension{Protocols: []string{"h2", "http/1.1"}},
			&StatusRequestExtension{},
			&SignatureAlgorithmsExtension{Algorithms: sigAlgs},
			&SCTExtension{},
			&KeyShareExtension{Shares: []KeyShare{
				{Group: GreasePlaceholder, Data: []byte{0}},
				{Group: CurveX25519},
			}},
			&PSKModesExtension{Modes: []uint8{PSKModeDHE}},
			&SupportedVersionsExtension{Versions: []uint16{
				GreasePlaceholder, VersionTLS13, VersionTLS12, VersionTLS11, VersionTLS10,
			}},
		},
		MinVersion: VersionTLS10,
		MaxVersion: VersionTLS13,
	}
}

var profileFactories = map[string]func() *Specification{
	"chrome":  ChromeSpec,
	"firefox": FirefoxSpec,
	"safari":  SafariSpec,
}

// ProfileNames lists the built-in construction profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profileFactories))
	for name := range profileFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileByName returns a fresh Specification for a built-in profile. Each
// call returns an independent value safe to mutate.
func ProfileByName(name string) (*Specification, error) {
	factory, ok := profileFactories[name]
	if !ok {
		return nil, fmt.Errorf("unknown client profile %q", name)
	}
	return factory(), nil
}
