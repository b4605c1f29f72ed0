package imageproc

import (
	"bytes"
	"image"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/jdeng/goheif"
	_ "golang.org/x/image/webp"
)

// Classification is the result of probing a raw upload buffer.
type Classification struct {
	Proprietary bool   // true for the HEIC/HEIF family
	Kind        string // "heic" or "heif" when Proprietary
	Format      string // decoder-reported format, when the probe got that far
}

// ISO BMFF brand strings that mark the HEIC/HEIF family. They sit inside the
// ftyp box, bytes [4,12) of the file.
var heicBrands = []string{"heic", "heix", "hevc", "mif1"}

// Substrings that mark a decoder error as "this is HEIC, not garbage".
// "11.6003" is a vendor error code some codec stacks emit for unsupported
// HEIF payloads; it is kept as one hint among several rather than relied on.
var heicErrorHints = []string{"heif", "heic", "11.6003", "ftyp"}

// Classify decides whether a buffer is a proprietary HEIC/HEIF image that
// needs conversion before it is browser-displayable.
//
// Three tiers, cheapest first: the ftyp brand bytes, a metadata-only decode
// probe, and finally sniffing the probe's error text. Some codec stacks
// refuse HEIC without reporting a clean format name, so the error text is
// the last reliable signal before giving up. Any error that does not read
// like a HEIC rejection surfaces as *DecodeError.
func Classify(buf []byte) (Classification, error) {
	if len(buf) >= 12 {
		brand := string(buf[4:12])
		for _, b := range heicBrands {
			if strings.Contains(brand, b) {
				return Classification{Proprietary: true, Kind: "heic"}, nil
			}
		}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		if LooksLikeHEICError(err) {
			return Classification{Proprietary: true, Kind: "heic"}, nil
		}
		return Classification{}, &DecodeError{Err: err}
	}

	if format == "heic" || format == "heif" {
		return Classification{Proprietary: true, Kind: format, Format: format}, nil
	}
	return Classification{Format: format}, nil
}

// LooksLikeHEICError reports whether a decoder error reads like a HEIC/HEIF
// rejection rather than a genuinely corrupt buffer.
func LooksLikeHEICError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range heicErrorHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
