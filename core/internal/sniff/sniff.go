// Package sniff classifies decompressed entry payloads by their leading bytes.
package sniff

import (
	"bytes"

	"github.com/meigma/astedit/core/internal/asttype"
)

// ProbeSize is the number of leading bytes Classify needs to see everything it
// inspects, including the texture format byte.
const ProbeSize = FormatOffset + 1

// FormatOffset is the byte inside a DDS/P3R header whose value selects the
// block compression (it is the last character of the pixel-format fourCC).
const FormatOffset = 0x57

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type signature struct {
	magic []byte
	kind  asttype.Kind
}

// signatures is matched in order; the first hit wins.
//
// The XML rule accepts a bare '<' as the first byte. Any other payload that
// happens to start with 0x3C is therefore reported as XML. Tools built
// against these archives rely on that classification, so it stays as is.
var signatures = []signature{
	{[]byte{0x44, 0x44, 0x53}, asttype.KindDDS},
	{[]byte{0x44, 0x42}, asttype.KindDB},
	{[]byte{0x78, 0x9C}, asttype.KindFTC},
	{[]byte{0x46, 0x72, 0x54, 0x6B}, asttype.KindFRT},
	{[]byte{0x42, 0x47, 0x46, 0x41, 0x31}, asttype.KindAST},
	{[]byte{0x1A, 0x45, 0xDF, 0xA3}, asttype.KindWebM},
	{[]byte{0x3C}, asttype.KindXML},
	{append(append([]byte{}, utf8BOM...), 0x3C), asttype.KindXML},
	{[]byte{0x70, 0x33, 0x52}, asttype.KindP3R},
	{[]byte{0x41, 0x70, 0x74}, asttype.KindAPT},
	{[]byte{0x52, 0x53, 0x46}, asttype.KindRSF},
	{[]byte{0x45, 0x42, 0x4F}, asttype.KindEBO},
	{[]byte{0x53, 0x43, 0x48, 0x6C}, asttype.KindSCHL},
	{[]byte{0x89, 0x50, 0x4E, 0x47}, asttype.KindPNG},
}

// Classify returns the content kind of a payload and, for texture kinds, its
// block compression. It never fails: unmatched or empty input is KindDAT and
// a texture too short to hold the format byte reports FormatNone.
func Classify(head []byte) (asttype.Kind, asttype.TextureFormat) {
	kind := asttype.KindDAT
	for _, sig := range signatures {
		if bytes.HasPrefix(head, sig.magic) {
			kind = sig.kind
			break
		}
	}
	if !kind.IsTexture() {
		return kind, asttype.FormatNone
	}
	return kind, Format(head)
}

// Format reads the texture block compression from a DDS-style header.
func Format(head []byte) asttype.TextureFormat {
	if len(head) <= FormatOffset {
		return asttype.FormatNone
	}
	switch head[FormatOffset] {
	case '1':
		return asttype.FormatDXT1
	case '3':
		return asttype.FormatDXT3
	case '5':
		return asttype.FormatDXT5
	default:
		return asttype.FormatNone
	}
}
