package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/ericpauley/go-quantize/quantize"

	"github.com/einkcast/einkcast/pkg/config"
)

// luminanceThreshold is the fixed cut-off for the 2-color e-ink reduction:
// grayscale values at or above it become white, everything below black.
const luminanceThreshold = 220

const jpegQuality = 90

// EncodingError reports a post-processing or bitmap packing failure on
// otherwise-valid pixel data.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding failed during %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Options controls how a captured frame is turned into output bytes.
type Options struct {
	Format config.Format

	// EinkColors reduces the output to 2, 4, 16 or 256 colors. Zero disables
	// the reduction.
	EinkColors int

	// Invert negates the black/white result. Only applied with 2 colors.
	Invert bool

	// RotateDegrees rotates the frame clockwise by 90, 180 or 270 degrees
	// before any color reduction.
	RotateDegrees int
}

// Output is the final encoded image plus the file extension resolved from
// the requested format.
type Output struct {
	Data      []byte
	Extension string
}

// depthForColors maps an e-ink color count to the bitmap bit depth.
var depthForColors = map[int]int{2: 1, 4: 2, 16: 4, 256: 8}

// Process transforms one raw captured frame into the bytes of the requested
// output format, including the e-ink indexed-color path.
func Process(frame []byte, opts Options) (*Output, error) {
	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, &EncodingError{Op: "decode", Err: err}
	}

	img = rotate(img, opts.RotateDegrees)

	var bw *image.Gray
	if opts.EinkColors == 2 {
		bw = thresholdBW(img, opts.Invert)
	}

	switch opts.Format {
	case config.FormatBMP:
		data, err := encodeBMPOutput(img, bw, opts)
		if err != nil {
			return nil, err
		}
		return &Output{Data: data, Extension: "bmp"}, nil

	case config.FormatJPEG:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, rasterFor(img, bw), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, &EncodingError{Op: "jpeg", Err: err}
		}
		return &Output{Data: buf.Bytes(), Extension: "jpg"}, nil

	case config.FormatWebP:
		var buf bytes.Buffer
		if err := webp.Encode(&buf, rasterFor(img, bw), &webp.Options{Quality: jpegQuality}); err != nil {
			return nil, &EncodingError{Op: "webp", Err: err}
		}
		return &Output{Data: buf.Bytes(), Extension: "webp"}, nil

	default:
		data, err := encodePNGOutput(img, bw, opts)
		if err != nil {
			return nil, err
		}
		return &Output{Data: data, Extension: "png"}, nil
	}
}

// rotate applies a clockwise rotation. The imaging library rotates
// counter-clockwise, hence the swapped 90/270 mapping.
func rotate(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// rasterFor selects the raster handed to a lossy re-encode: the thresholded
// black/white frame when the 2-color reduction ran, the original otherwise.
func rasterFor(img image.Image, bw *image.Gray) image.Image {
	if bw != nil {
		return bw
	}
	return img
}

// thresholdBW converts the frame to grayscale and applies the fixed
// luminance threshold, optionally inverting the result.
func thresholdBW(img image.Image, invert bool) *image.Gray {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			luma := gray.NRGBAAt(x, y).R
			white := luma >= luminanceThreshold
			if invert {
				white = !white
			}
			if white {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// grayIndexSamples maps the frame to palette indexes for an indexed bitmap:
// each pixel's grayscale value is scaled to the 2^depth level range.
func grayIndexSamples(img image.Image, depth int) []byte {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	levels := 1<<depth - 1
	samples := make([]byte, 0, w*h)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			luma := int(gray.NRGBAAt(x, y).R)
			samples = append(samples, byte((luma*levels+127)/255))
		}
	}
	return samples
}

// bwIndexSamples converts a thresholded frame to 1-bit palette indexes.
func bwIndexSamples(bw *image.Gray) []byte {
	bounds := bw.Bounds()
	samples := make([]byte, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if bw.GrayAt(x, y).Y >= 128 {
				samples = append(samples, 1)
			} else {
				samples = append(samples, 0)
			}
		}
	}
	return samples
}

// rgbSamples flattens the frame into 3 bytes per pixel for the 24-bit path.
func rgbSamples(img image.Image) []byte {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	samples := make([]byte, 0, bounds.Dx()*bounds.Dy()*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := nrgba.NRGBAAt(x, y)
			samples = append(samples, px.R, px.G, px.B)
		}
	}
	return samples
}

func encodeBMPOutput(img image.Image, bw *image.Gray, opts Options) ([]byte, error) {
	bounds := rasterFor(img, bw).Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if opts.EinkColors == 0 {
		return EncodeBMP(w, h, 24, rgbSamples(img))
	}

	depth := depthForColors[opts.EinkColors]
	if bw != nil {
		return EncodeBMP(w, h, depth, bwIndexSamples(bw))
	}
	return EncodeBMP(w, h, depth, grayIndexSamples(img, depth))
}

func encodePNGOutput(img image.Image, bw *image.Gray, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	switch {
	case opts.EinkColors == 0:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, &EncodingError{Op: "png", Err: err}
		}

	case bw != nil:
		paletted := image.NewPaletted(bw.Bounds(), color.Palette{color.Black, color.White})
		draw.Draw(paletted, bw.Bounds(), bw, bw.Bounds().Min, draw.Src)
		if err := png.Encode(&buf, paletted); err != nil {
			return nil, &EncodingError{Op: "png", Err: err}
		}

	default:
		q := quantize.MedianCutQuantizer{}
		palette := q.Quantize(make(color.Palette, 0, opts.EinkColors), img)
		paletted := image.NewPaletted(img.Bounds(), palette)
		draw.Draw(paletted, img.Bounds(), img, img.Bounds().Min, draw.Src)
		if err := png.Encode(&buf, paletted); err != nil {
			return nil, &EncodingError{Op: "png", Err: err}
		}
	}

	return buf.Bytes(), nil
}
