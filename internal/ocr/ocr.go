// Package ocr wraps the text recognition engine used on conditioned pages.
package ocr

import (
	"context"
	"errors"
	"image"
)

// ErrNoImage is returned when Recognize is called without an image
var ErrNoImage = errors.New("no image to recognize")

// Engine turns a page image into raw text. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// EngineFunc adapts a plain function to the Engine interface
type EngineFunc func(ctx context.Context, img image.Image) (string, error)

// Name implements Engine
func (f EngineFunc) Name() string { return "func" }

// Recognize implements Engine
func (f EngineFunc) Recognize(ctx context.Context, img image.Image) (string, error) {
	return f(ctx, img)
}

// Factory builds an engine for pages rendered at the given DPI
type Factory func(dpi int) Engine

// Static returns a Factory that always yields engine, whatever the DPI
func Static(engine Engine) Factory {
	return func(int) Engine { return engine }
}
