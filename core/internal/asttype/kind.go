package asttype

// Kind classifies the decompressed content of a TOC entry.
//
// The zero value is KindUnknown and marks an entry that has not been sniffed
// yet (for example a sibling skipped by a descend-path parse).
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDDS
	KindDB
	KindFTC
	KindFRT
	KindAST
	KindWebM
	KindXML
	KindP3R
	KindAPT
	KindRSF
	KindEBO
	KindSCHL
	KindPNG
	KindDAT
)

var kindNames = [...]string{
	KindUnknown: "",
	KindDDS:     "dds",
	KindDB:      "db",
	KindFTC:     "ftc",
	KindFRT:     "frt",
	KindAST:     "ast",
	KindWebM:    "webm",
	KindXML:     "xml",
	KindP3R:     "p3r",
	KindAPT:     "apt",
	KindRSF:     "rsf",
	KindEBO:     "ebo",
	KindSCHL:    "schl",
	KindPNG:     "png",
	KindDAT:     "dat",
}

// String returns the kind's file extension ("dds", "ast", ...).
// KindUnknown renders as the empty string.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsTexture reports whether the kind carries a DDS-style texture header.
func (k Kind) IsTexture() bool {
	return k == KindDDS || k == KindP3R
}

// IsContainer reports whether the kind is a nested archive.
func (k Kind) IsContainer() bool {
	return k == KindAST
}

// TextureFormat is the block compression of a texture payload.
type TextureFormat uint8

const (
	FormatNone TextureFormat = iota
	FormatDXT1
	FormatDXT3
	FormatDXT5
)

// String returns the conventional name of the format.
func (f TextureFormat) String() string {
	switch f {
	case FormatNone:
		return "NONE"
	case FormatDXT1:
		return "DXT1"
	case FormatDXT3:
		return "DXT3"
	case FormatDXT5:
		return "DXT5"
	default:
		return "unknown"
	}
}
