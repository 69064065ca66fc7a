// Package lnf implements the Lattice Network Format.
//
// LNF is a single-file, memory-mappable container for trained dense
// networks. A fixed binary header locates a JSON model description and a
// raw float32 tensor payload. The format describes structure and data
// only and never implies runtime behaviour.
package lnf

import "encoding/binary"

const (
	// MagicLNF is the file magic for all LNF containers, encoded as "LNF\0".
	MagicLNF = "LNF\x00"

	// CurrentMajor changes only on breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add optional header fields.
	CurrentMinor uint16 = 0

	headerSize = 40

	// payloadAlign keeps tensor data aligned for direct float32 views.
	payloadAlign = 64
)

// Header is the fixed leading structure of an LNF file, little-endian.
type Header struct {
	Magic         [4]byte
	Major         uint16
	Minor         uint16
	ModelOffset   uint64
	ModelSize     uint64
	PayloadOffset uint64
	FileSize      uint64
}

func (h *Header) Valid() bool {
	return string(h.Magic[:]) == MagicLNF
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < headerSize {
		return Header{}, false
	}
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Major = binary.LittleEndian.Uint16(b[4:6])
	h.Minor = binary.LittleEndian.Uint16(b[6:8])
	h.ModelOffset = binary.LittleEndian.Uint64(b[8:16])
	h.ModelSize = binary.LittleEndian.Uint64(b[16:24])
	h.PayloadOffset = binary.LittleEndian.Uint64(b[24:32])
	h.FileSize = binary.LittleEndian.Uint64(b[32:40])
	return h, true
}

func encodeHeader(h Header) []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(b[4:6], h.Major)
	binary.LittleEndian.PutUint16(b[6:8], h.Minor)
	binary.LittleEndian.PutUint64(b[8:16], h.ModelOffset)
	binary.LittleEndian.PutUint64(b[16:24], h.ModelSize)
	binary.LittleEndian.PutUint64(b[24:32], h.PayloadOffset)
	binary.LittleEndian.PutUint64(b[32:40], h.FileSize)
	return b
}
