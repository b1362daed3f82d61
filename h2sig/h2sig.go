// Package h2sig identifies clients from cleartext HTTP/2 connection
// openings. The initial SETTINGS frame a client sends is a stable
// per-implementation signature; INITIAL_WINDOW_SIZE alone separates the
// major browser engines. Encrypted transports never expose the preface,
// so the analyzer reports no signal for them instead of guessing.
package h2sig

import (
	"bytes"
	"encoding/binary"
)

// Preface is the fixed client connection preface (RFC 9113 §3.4).
var Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

const frameHeaderLen = 9

// Frame types.
const (
	FrameTypeData     uint8 = 0x0
	FrameTypeHeaders  uint8 = 0x1
	FrameTypeSettings uint8 = 0x4
	FrameTypeWindow   uint8 = 0x8
)

// SETTINGS parameter identifiers.
const (
	SettingHeaderTableSize      uint16 = 0x1
	SettingEnablePush           uint16 = 0x2
	SettingMaxConcurrentStreams uint16 = 0x3
	SettingInitialWindowSize    uint16 = 0x4
	SettingMaxFrameSize         uint16 = 0x5
	SettingMaxHeaderListSize    uint16 = 0x6
)

// FrameHeader is the 9-byte HTTP/2 frame header.
type FrameHeader struct {
	Length   uint32
	Type     uint8
	Flags    uint8
	StreamID uint32
}

// ParseFrameHeader reads one frame header.
func ParseFrameHeader(data []byte) (FrameHeader, bool) {
	if len(data) < frameHeaderLen {
		return FrameHeader{}, false
	}
	return FrameHeader{
		Length:   uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
		Type:     data[3],
		Flags:    data[4],
		StreamID: binary.BigEndian.Uint32(data[5:9]) & 0x7fffffff,
	}, true
}

// Setting is one (identifier, value) pair from a SETTINGS frame.
type Setting struct {
	ID    uint16
	Value uint32
}

// SettingsFrame is a decoded SETTINGS frame. Order is preserved; the
// sequence of identifiers is itself part of the signature.
type SettingsFrame struct {
	Header   FrameHeader
	Settings []Setting
}

// Get returns the value for a parameter id.
func (f *SettingsFrame) Get(id uint16) (uint32, bool) {
	for _, s := range f.Settings {
		if s.ID == id {
			return s.Value, true
		}
	}
	return 0, false
}

// Order lists the parameter identifiers as sent.
func (f *SettingsFrame) Order() []uint16 {
	order := make([]uint16, len(f.Settings))
	for i, s := range f.Settings {
		order[i] = s.ID
	}
	return order
}

// ParseSettingsFrame decodes a SETTINGS frame starting at data[0]. The
// payload must be a whole number of 6-byte pairs and fully present.
func ParseSettingsFrame(data []byte) (SettingsFrame, bool) {
	header, ok := ParseFrameHeader(data)
	if !ok || header.Type != FrameTypeSettings || header.Length%6 != 0 {
		return SettingsFrame{}, false
	}
	if uint32(len(data)-frameHeaderLen) < header.Length {
		return SettingsFrame{}, false
	}

	payload := data[frameHeaderLen : frameHeaderLen+int(header.Length)]
	frame := SettingsFrame{Header: header}
	for i := 0; i < len(payload); i += 6 {
		frame.Settings = append(frame.Settings, Setting{
			ID:    binary.BigEndian.Uint16(payload[i : i+2]),
			Value: binary.BigEndian.Uint32(payload[i+2 : i+6]),
		})
	}
	return frame, true
}

// HasPreface reports whether data begins with the client preface. The
// preface must sit at offset zero; mid-stream captures and encrypted
// transports do not produce a signal.
func HasPreface(data []byte) bool {
	return bytes.HasPrefix(data, Preface)
}

// FindSettings locates the client's first SETTINGS frame after the
// preface, skipping any interleaved frames.
func FindSettings(data []byte) (SettingsFrame, bool) {
	if !HasPreface(data) {
		return SettingsFrame{}, false
	}
	rest := data[len(Preface):]
	for {
		header, ok := ParseFrameHeader(rest)
		if !ok {
			return SettingsFrame{}, false
		}
		if header.Type == FrameTypeSettings {
			return ParseSettingsFrame(rest)
		}
		advance := frameHeaderLen + int(header.Length)
		if advance > len(rest) {
			return SettingsFrame{}, false
		}
		rest = rest[advance:]
	}
}
