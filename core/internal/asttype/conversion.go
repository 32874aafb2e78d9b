package asttype

import "strings"

// Conversion selects a header rewrite applied to a payload on export or import.
type Conversion uint8

const (
	// ConvertNone passes the payload through unchanged.
	ConvertNone Conversion = iota

	// ConvertP3RToDDS replaces the P3R tag with the DDS magic.
	ConvertP3RToDDS

	// ConvertDDSToP3R replaces the DDS magic with the P3R tag.
	ConvertDDSToP3R
)

// Four-byte tags written at offset zero by a conversion.
var (
	MagicDDS = [4]byte{0x44, 0x44, 0x53, 0x20} // "DDS "
	MagicP3R = [4]byte{0x70, 0x33, 0x52, 0x02} // "p3R\x02"
)

// String returns a short description such as "P3R->DDS".
func (c Conversion) String() string {
	switch c {
	case ConvertNone:
		return "none"
	case ConvertP3RToDDS:
		return "P3R->DDS"
	case ConvertDDSToP3R:
		return "DDS->P3R"
	default:
		return "unknown"
	}
}

// Tags returns the three-byte prefix the source payload must carry and the
// four-byte tag written in its place. ok is false for ConvertNone.
func (c Conversion) Tags() (from []byte, to [4]byte, ok bool) {
	switch c {
	case ConvertP3RToDDS:
		return MagicP3R[:3], MagicDDS, true
	case ConvertDDSToP3R:
		return MagicDDS[:3], MagicP3R, true
	default:
		return nil, [4]byte{}, false
	}
}

// ParseConversion maps "from"/"to" format names (case-insensitive) to a Conversion.
// Empty names select ConvertNone.
func ParseConversion(from, to string) (Conversion, error) {
	f, t := strings.ToLower(from), strings.ToLower(to)
	switch {
	case f == "" && t == "":
		return ConvertNone, nil
	case f == "p3r" && t == "dds":
		return ConvertP3RToDDS, nil
	case f == "dds" && t == "p3r":
		return ConvertDDSToP3R, nil
	default:
		return ConvertNone, ErrConversion
	}
}
