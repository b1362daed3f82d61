// Package wireprint identifies and impersonates TLS clients at the wire
// level. It works in both directions: a Specification describing a client
// identity can be serialized into the exact ClientHello bytes that client
// would send, and a captured ClientHello can be reduced to a canonical
// fingerprint and matched against a database of known client signatures.
//
// The detection-side packet plumbing (capture files, layer decoding, flow
// reconstruction) lives in the capture subpackage, cleartext HTTP/2
// SETTINGS analysis in h2sig, and per-flow confidence scoring in detect.
package wireprint
