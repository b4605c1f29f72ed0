package imageproc

import (
	"bytes"
	"image/jpeg"

	"github.com/jdeng/goheif"
)

// Quality for the HEIC -> JPEG normalization pass. High on purpose: this
// JPEG becomes the source for every derivative, so it must not bake in
// visible compression artifacts.
const convertQuality = 95

// ToJPEG converts a HEIC/HEIF buffer into a baseline JPEG at fixed quality.
// No retries: a failed conversion means the file itself is broken.
func ToJPEG(buf []byte) ([]byte, error) {
	img, err := goheif.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, &ConversionError{Err: err}
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: convertQuality}); err != nil {
		return nil, &ConversionError{Err: err}
	}
	return out.Bytes(), nil
}
