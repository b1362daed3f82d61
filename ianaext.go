package wireprint

import "fmt"

// ianaExtensionNames covers the registered extension code points that show
// up in real client hellos. Diagnostics only; matching never depends on it.
var ianaExtensionNames = map[uint16]string{
	0:      "server_name",
	1:      "max_fragment_length",
	5:      "status_request",
	10:     "supported_groups",
	11:     "ec_point_formats",
	13:     "signature_algorithms",
	14:     "use_srtp",
	16:     "application_layer_protocol_negotiation",
	17:     "status_request_v2",
	18:     "signed_certificate_timestamp",
	21:     "padding",
	22:     "encrypt_then_mac",
	23:     "extended_master_secret",
	27:     "compress_certificate",
	28:     "record_size_limit",
	34:     "delegated_credential",
	35:     "session_ticket",
	41:     "pre_shared_key",
	42:     "early_data",
	43:     "supported_versions",
	44:     "cookie",
	45:     "psk_key_exchange_modes",
	49:     "post_handshake_auth",
	50:     "signature_algorithms_cert",
	51:     "key_share",
	57:     "quic_transport_parameters",
	17513:  "application_settings",
	64768:  "ech_outer_extensions",
	65037:  "encrypted_client_hello",
	65281:  "renegotiation_info",
}

// ExtensionName returns the IANA name for an extension code point.
// GREASE values and unregistered points are labeled as such.
func ExtensionName(ext uint16) string {
	if IsGrease(ext) {
		return fmt.Sprintf("grease(%#04x)", ext)
	}
	if name, ok := ianaExtensionNames[ext]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", ext)
}
