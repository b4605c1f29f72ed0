package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/rwcarlsen/goexif/exif"
)

// Preset describes one derivative target. Presets are plain data consumed by
// a single render path; there is no per-preset branching anywhere else.
type Preset struct {
	Name    string
	Width   int
	Quality int
	// Format forces the output codec ("png"). Empty means the JPEG default.
	Format string
}

var (
	PresetMedium    = Preset{Name: "medium", Width: 800, Quality: 85}
	PresetThumbnail = Preset{Name: "thumbnail", Width: 200, Quality: 80}
)

// DefaultPresets are rendered by GenerateDerivatives, in order.
var DefaultPresets = []Preset{PresetMedium, PresetThumbnail}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Derivative is one rendered variant plus its pixel dimensions.
type Derivative struct {
	Data       []byte
	Dimensions Dimensions
}

// ProcessedImage is the result of one full pipeline run over an upload.
// Original is the buffer as received, except for proprietary uploads where
// it is the converted JPEG — every variant decodes under Format.
type ProcessedImage struct {
	Original           []byte
	Medium             Derivative
	Thumbnail          Derivative
	OriginalDimensions Dimensions
	Format             string
	// Converted is true when the original went through HEIC -> JPEG
	// normalization, so callers know the stored original is image/jpeg.
	Converted bool
}

// GenerateDerivatives runs the whole decode/convert/orient/resize pipeline
// over an upload. The classification is recomputed here rather than trusted
// from an earlier call: a retry re-enters from the top.
//
// The preset renders run concurrently; they share the decoded source image
// read-only. All presets must succeed before a result is returned.
func GenerateDerivatives(ctx context.Context, buf []byte) (*ProcessedImage, error) {
	src, working, format, converted, err := decodeSource(buf)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outFormat := outputFormat(format)
	results := make([]Derivative, len(DefaultPresets))
	errs := make([]error, len(DefaultPresets))

	var wg sync.WaitGroup
	for i, p := range DefaultPresets {
		wg.Add(1)
		go func(i int, p Preset) {
			defer wg.Done()
			results[i], errs[i] = renderPreset(src, p, outFormat)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	b := src.Bounds()
	return &ProcessedImage{
		Original:           working,
		Medium:             results[0],
		Thumbnail:          results[1],
		OriginalDimensions: Dimensions{Width: b.Dx(), Height: b.Dy()},
		Format:             outFormat,
		Converted:          converted,
	}, nil
}

// Resize renders a single preset from a raw buffer. Same decode pipeline as
// GenerateDerivatives, but only the requested variant is produced, so custom
// presets work too.
func Resize(buf []byte, preset Preset) (Derivative, error) {
	src, _, format, _, err := decodeSource(buf)
	if err != nil {
		return Derivative{}, err
	}
	return renderPreset(src, preset, outputFormat(format))
}

// decodeSource runs the front half of the pipeline: classify, convert
// proprietary formats, decode and apply EXIF orientation. It returns the
// oriented source image plus the working buffer (the converted JPEG for
// proprietary uploads, the input otherwise) and its codec name.
func decodeSource(buf []byte) (image.Image, []byte, string, bool, error) {
	cls, err := Classify(buf)
	if err != nil {
		return nil, nil, "", false, err
	}

	working := buf
	format := cls.Format
	if cls.Proprietary {
		if working, err = ToJPEG(buf); err != nil {
			return nil, nil, "", false, err
		}
		format = "jpeg"
	}

	src, decodedFormat, err := image.Decode(bytes.NewReader(working))
	if err != nil {
		// Some decoders only reveal HEIC at full-decode time. One converted
		// retry, then give up.
		if !cls.Proprietary && LooksLikeHEICError(err) {
			if working, err = ToJPEG(buf); err != nil {
				return nil, nil, "", false, err
			}
			if src, decodedFormat, err = image.Decode(bytes.NewReader(working)); err != nil {
				return nil, nil, "", false, &DecodeError{Err: err}
			}
			format = "jpeg"
			cls.Proprietary = true
		} else {
			return nil, nil, "", false, &DecodeError{Err: err}
		}
	}
	if format == "" {
		format = decodedFormat
	}

	src = applyOrientation(src, orientationOf(buf, cls.Proprietary))
	return src, working, format, cls.Proprietary, nil
}

// renderPreset resizes and re-encodes one variant. The source image is never
// upscaled: a source narrower than the preset keeps its own dimensions and
// is only re-encoded.
func renderPreset(src image.Image, preset Preset, format string) (Derivative, error) {
	img := src
	if src.Bounds().Dx() > preset.Width {
		img = imaging.Resize(src, preset.Width, 0, imaging.Lanczos)
	}

	data, err := encode(img, format, preset)
	if err != nil {
		return Derivative{}, &ResizeError{Preset: preset.Name, Err: err}
	}

	b := img.Bounds()
	return Derivative{
		Data:       data,
		Dimensions: Dimensions{Width: b.Dx(), Height: b.Dy()},
	}, nil
}

// outputFormat applies the re-encode rules: PNG sources keep their codec so
// every variant of a media item decodes under one declared format,
// everything else ships as JPEG. There is no pure-Go webp encoder worth
// carrying, so webp sources re-encode as JPEG too.
func outputFormat(sourceFormat string) string {
	if sourceFormat == "png" {
		return "png"
	}
	return "jpeg"
}

func encode(img image.Image, format string, preset Preset) ([]byte, error) {
	if preset.Format != "" {
		format = preset.Format
	}
	var out bytes.Buffer
	if format == "png" {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&out, img); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: preset.Quality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// orientationOf reads the EXIF orientation tag, 1 (no-op) when absent or
// unreadable. For HEIC the EXIF block lives in the container, not in the
// converted JPEG, so it is pulled from the original buffer.
func orientationOf(buf []byte, proprietary bool) int {
	raw := buf
	if proprietary {
		blob, err := goheif.ExtractExif(bytes.NewReader(buf))
		if err != nil || len(blob) == 0 {
			return 1
		}
		raw = bytes.TrimPrefix(blob, []byte("Exif\x00\x00"))
	}

	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil || o < 1 || o > 8 {
		return 1
	}
	return o
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}
