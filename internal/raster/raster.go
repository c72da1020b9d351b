// Package raster renders PDF pages to images for OCR.
//
// Two backends are available. Poppler shells out to pdftoppm and renders any
// page faithfully. PDFCPU is pure Go and works by pulling the embedded scan
// image out of each page, which covers scanned forms but not vector pages.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Backend names a rasterizer implementation
type Backend string

const (
	BackendAuto    Backend = "auto"
	BackendPoppler Backend = "poppler"
	BackendPDFCPU  Backend = "pdfcpu"
)

// DPI limits accepted by the renderers
const (
	DefaultDPI = 300
	MinDPI     = 72
	MaxDPI     = 1200
)

// Page is one rendered PDF page
type Page struct {
	Number int
	Image  image.Image
	DPI    int
}

// Document is an opened PDF ready to render. Render may be called from
// several goroutines.
type Document interface {
	PageCount() int
	Render(ctx context.Context, pageNr, dpi int) (*Page, error)
	Close() error
}

// Rasterizer opens PDF files for rendering
type Rasterizer interface {
	Backend() Backend
	Open(ctx context.Context, path string) (Document, error)
}

// Error reports a failure inside a rasterizer backend
type Error struct {
	Backend Backend
	Op      string
	Page    int
	Err     error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s rasterizer: %s page %d: %v", e.Backend, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("%s rasterizer: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrPopplerNotFound is returned when pdftoppm is not on PATH
	ErrPopplerNotFound = errors.New("pdftoppm not found: install poppler-utils or use --rasterizer=pdfcpu")
	// ErrNoScanImage is returned by the pdfcpu backend for pages without an embedded image
	ErrNoScanImage = errors.New("page has no embedded scan image: vector pages need the poppler rasterizer")
	// ErrPageRange is returned for page numbers outside the document
	ErrPageRange = errors.New("page number out of range")
	// ErrUnknownBackend is returned by ParseBackend and New
	ErrUnknownBackend = errors.New("unknown rasterizer backend")
)

// ParseBackend parses a backend name, case-insensitively
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendAuto, BackendPoppler, BackendPDFCPU:
		return b, nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("%w: %q (must be one of: auto, poppler, pdfcpu)", ErrUnknownBackend, s)
	}
}

// ValidateDPI checks a resolution against MinDPI and MaxDPI
func ValidateDPI(dpi int) error {
	if dpi < MinDPI || dpi > MaxDPI {
		return fmt.Errorf("dpi must be between %d and %d, got %d", MinDPI, MaxDPI, dpi)
	}
	return nil
}

// Options selects and configures a rasterizer
type Options struct {
	Backend Backend
	// PdftoppmPath overrides the pdftoppm binary; looked up on PATH when empty
	PdftoppmPath string
	Logger       logrus.FieldLogger
}

// New creates the rasterizer selected by opts. Auto prefers poppler when
// pdftoppm is installed and falls back to pdfcpu otherwise.
func New(opts Options) (Rasterizer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	switch opts.Backend {
	case BackendPoppler:
		bin, err := lookPdftoppm(opts.PdftoppmPath)
		if err != nil {
			return nil, &Error{Backend: BackendPoppler, Op: "init", Err: err}
		}
		return NewPoppler(bin), nil
	case BackendPDFCPU:
		return NewPDFCPU(), nil
	case BackendAuto, "":
		if bin, err := lookPdftoppm(opts.PdftoppmPath); err == nil {
			logger.WithField("pdftoppm", bin).Debug("Using poppler rasterizer")
			return NewPoppler(bin), nil
		}
		logger.Warn("pdftoppm not found, falling back to pdfcpu rasterizer (scanned pages only)")
		return NewPDFCPU(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func lookPdftoppm(override string) (string, error) {
	name := override
	if name == "" {
		name = "pdftoppm"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w (%v)", ErrPopplerNotFound, err)
	}
	return bin, nil
}

func checkPage(backend Backend, pageNr, count int) error {
	if pageNr < 1 || pageNr > count {
		return &Error{Backend: backend, Op: "render", Page: pageNr, Err: fmt.Errorf("%w: document has %d page(s)", ErrPageRange, count)}
	}
	return nil
}
