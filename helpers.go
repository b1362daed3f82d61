package wireprint

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/cryptobyte"
)

// read16Length16List reads a uint16-length-prefixed list of uint16 values.
func read16Length16List(data *cryptobyte.String, out *[]uint16) error {
	var list cryptobyte.String
	if !data.ReadUint16LengthPrefixed(&list) {
		return fmt.Errorf("could not read list length")
	}
	for !list.Empty() {
		var v uint16
		if !list.ReadUint16(&v) {
			return fmt.Errorf("could not read uint16 value")
		}
		*out = append(*out, v)
	}
	return nil
}

// read8Length16List reads a uint8-length-prefixed list of uint16 values.
func read8Length16List(data *cryptobyte.String, out *[]uint16) error {
	var list cryptobyte.String
	if !data.ReadUint8LengthPrefixed(&list) {
		return fmt.Errorf("could not read list length")
	}
	for !list.Empty() {
		var v uint16
		if !list.ReadUint16(&v) {
			return fmt.Errorf("could not read uint16 value")
		}
		*out = append(*out, v)
	}
	return nil
}

// read8Length8List reads a uint8-length-prefixed list of uint8 values.
func read8Length8List(data *cryptobyte.String, out *[]uint8) error {
	var list cryptobyte.String
	if !data.ReadUint8LengthPrefixed(&list) {
		return fmt.Errorf("could not read list length")
	}
	*out = append(*out, list...)
	return nil
}

// sliceToDash16 converts a slice of number values and make a dash delimited
// string representation. Used for making printable fingerprints.
func sliceToDash16(input []uint16) string {
	var outSlice []string
	for _, i := range input {
		outSlice = append(outSlice, strconv.Itoa(int(i)))
	}
	return strings.Join(outSlice, "-")
}

// sliceToDash8 converts a slice of number values and make a dash delimited
// string representation. Used for making printable fingerprints.
func sliceToDash8(input []uint8) string {
	var outSlice []string
	for _, i := range input {
		outSlice = append(outSlice, strconv.Itoa(int(i)))
	}
	return strings.Join(outSlice, "-")
}

// dashToSlice16 is the inverse of sliceToDash16. An empty string decodes to
// an empty slice.
func dashToSlice16(s string) ([]uint16, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad list element %q: %w", p, err)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

// dashToSlice8 is the inverse of sliceToDash8.
func dashToSlice8(s string) ([]uint8, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	out := make([]uint8, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("bad list element %q: %w", p, err)
		}
		out = append(out, uint8(v))
	}
	return out, nil
}
