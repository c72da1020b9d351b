package pipeline

import (
	"errors"
	"fmt"

	"github.com/a3tai/acord-field-extractor/internal/raster"
)

// Error kinds. Use errors.Is against these to classify a failed run.
var (
	ErrInputNotFound = errors.New("input file not found")
	ErrInvalidInput  = errors.New("invalid input file")
	ErrRasterize     = errors.New("rasterization failed")
	ErrExtract       = errors.New("page extraction failed")
)

// Error describes a failed run
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Err)
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	if e.Kind == ErrRasterize && !errors.Is(e.Err, raster.ErrPopplerNotFound) && !errors.Is(e.Err, raster.ErrNoScanImage) {
		msg += " (check that the PDF is not corrupt and that poppler-utils is installed)"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error kind as well as anything in the wrapped chain
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}
