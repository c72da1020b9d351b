// Package imaging conditions scanned page images for OCR.
//
// The conditioning steps always run in the same order: grayscale conversion,
// global Otsu binarization, then non-local-means denoising tuned to keep thin
// text strokes intact.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrEmptyImage is returned for nil or zero-dimension input
var ErrEmptyImage = errors.New("image has zero width or height")

// Default denoising parameters
const (
	DefaultStrength       = 10.0
	DefaultTemplateWindow = 7
	DefaultSearchWindow   = 21
)

// Options controls the denoising pass
type Options struct {
	// Strength is the filter strength h. Larger values remove more noise and
	// more detail.
	Strength float64
	// TemplateWindow is the odd side length of the compared patches
	TemplateWindow int
	// SearchWindow is the odd side length of the area searched for similar patches
	SearchWindow int
	// SkipDenoise stops after binarization
	SkipDenoise bool
}

// DefaultOptions returns parameters suitable for 300 DPI form scans
func DefaultOptions() Options {
	return Options{
		Strength:       DefaultStrength,
		TemplateWindow: DefaultTemplateWindow,
		SearchWindow:   DefaultSearchWindow,
	}
}

// Validate checks the options
func (o Options) Validate() error {
	if o.SkipDenoise {
		return nil
	}
	if o.Strength <= 0 {
		return fmt.Errorf("denoise strength must be positive, got %v", o.Strength)
	}
	if o.TemplateWindow < 1 || o.TemplateWindow%2 == 0 {
		return fmt.Errorf("template window must be a positive odd number, got %d", o.TemplateWindow)
	}
	if o.SearchWindow < 1 || o.SearchWindow%2 == 0 {
		return fmt.Errorf("search window must be a positive odd number, got %d", o.SearchWindow)
	}
	return nil
}

// Conditioner prepares page images for OCR. It is safe for concurrent use.
type Conditioner struct {
	opts     Options
	denoiser *denoiser
}

// NewConditioner creates a conditioner with the given options
func NewConditioner(opts Options) (*Conditioner, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conditioning options: %w", err)
	}
	c := &Conditioner{opts: opts}
	if !opts.SkipDenoise {
		c.denoiser = newDenoiser(opts.Strength, opts.TemplateWindow, opts.SearchWindow)
	}
	return c, nil
}

// Condition converts img to grayscale, binarizes it with an Otsu threshold
// and denoises the result. The input is not modified.
func (c *Conditioner) Condition(img image.Image) (*image.Gray, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	gray := Grayscale(img)
	binary := Binarize(gray, OtsuThreshold(gray))
	if c.denoiser == nil {
		return binary, nil
	}
	return c.denoiser.apply(binary), nil
}

// Grayscale returns a single-channel copy of img with its origin at (0, 0).
// Gray input is copied as is.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	case *image.RGBA, *image.NRGBA, *image.YCbCr, *image.Paletted:
		draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				out.SetGray(x, y, color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray))
			}
		}
	}
	return out
}

// OtsuThreshold picks the global threshold that maximises the between-class
// variance of the image histogram.
func OtsuThreshold(img *image.Gray) uint8 {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	total := float64(b.Dx() * b.Dy())
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB, weightB, best float64
		threshold          int
	)
	for t := 0; t < 256; t++ {
		weightB += float64(hist[t])
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / weightB
		meanF := (sum - sumB) / weightF
		between := weightB * weightF * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}

// Binarize maps pixels above threshold to white and the rest to black
func Binarize(img *image.Gray, threshold uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if src[x] > threshold {
				dst[x] = 255
			} else {
				dst[x] = 0
			}
		}
	}
	return out
}
