// Package tesseract recognizes text with libtesseract through gosseract.
// It is the only package that needs cgo and the Tesseract libraries.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/a3tai/acord-field-extractor/internal/ocr"
)

// DefaultLanguage is the Tesseract language pack used when none is configured
const DefaultLanguage = "eng"

// Options configures the Tesseract engine
type Options struct {
	Languages      []string
	TessdataPrefix string
	// DPI is passed to Tesseract as user_defined_dpi when positive
	DPI int
}

// Engine implements ocr.Engine. Every page is treated as a single uniform
// block of text, which suits dense forms.
type Engine struct {
	opts          Options
	clientFactory func() *gosseract.Client
}

var _ ocr.Engine = (*Engine)(nil)

// New creates a Tesseract engine
func New(opts Options) *Engine {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{DefaultLanguage}
	}
	return &Engine{opts: opts, clientFactory: gosseract.NewClient}
}

// Factory returns an ocr.Factory building engines that pass the render DPI
// to Tesseract
func Factory(opts Options) ocr.Factory {
	return func(dpi int) ocr.Engine {
		o := opts
		o.DPI = dpi
		return New(o)
	}
}

// Name implements ocr.Engine
func (t *Engine) Name() string { return "tesseract" }

// Version reports the linked libtesseract version
func (t *Engine) Version() string { return gosseract.Version() }

// Recognize implements ocr.Engine. A fresh client is used per call because
// gosseract clients are not safe for concurrent use.
func (t *Engine) Recognize(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", ocr.ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	c := t.clientFactory()
	defer c.Close()

	if t.opts.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(t.opts.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation mode: %w", err)
	}
	if t.opts.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(t.opts.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
