package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// pointsPerInch converts PDF user space units to inches
const pointsPerInch = 72.0

// PDFCPU renders scanned pages by extracting their embedded page image with
// pdfcpu and resampling it to the requested DPI.
type PDFCPU struct{}

// NewPDFCPU creates the pure Go rasterizer
func NewPDFCPU() *PDFCPU {
	return &PDFCPU{}
}

// Backend implements Rasterizer
func (p *PDFCPU) Backend() Backend { return BackendPDFCPU }

// Open implements Rasterizer
func (p *PDFCPU) Open(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Backend: BackendPDFCPU, Op: "open", Err: err}
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, &Error{Backend: BackendPDFCPU, Op: "open", Err: fmt.Errorf("read PDF: %w", err)}
	}

	dims, err := pctx.PageDims()
	if err != nil {
		return nil, &Error{Backend: BackendPDFCPU, Op: "open", Err: fmt.Errorf("page dimensions: %w", err)}
	}

	return &pdfcpuDocument{ctx: pctx, pages: pctx.PageCount, dims: dims}, nil
}

type pdfcpuDocument struct {
	// model.Context is not safe for concurrent use
	mu    sync.Mutex
	ctx   *model.Context
	pages int
	dims  []types.Dim
}

func (d *pdfcpuDocument) PageCount() int {
	return d.pages
}

func (d *pdfcpuDocument) Render(ctx context.Context, pageNr, dpi int) (*Page, error) {
	if err := checkPage(BackendPDFCPU, pageNr, d.PageCount()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scan, err := d.largestImage(pageNr)
	if err != nil {
		return nil, &Error{Backend: BackendPDFCPU, Op: "render", Page: pageNr, Err: err}
	}

	var w, h int
	if pageNr <= len(d.dims) {
		w = int(math.Round(d.dims[pageNr-1].Width * float64(dpi) / pointsPerInch))
		h = int(math.Round(d.dims[pageNr-1].Height * float64(dpi) / pointsPerInch))
	}

	return &Page{Number: pageNr, Image: fitToSize(scan, w, h), DPI: dpi}, nil
}

// largestImage decodes the biggest non-thumbnail image on the page, which on
// a scanned form is the page scan itself. Extracted images carry no
// dimensions, so every candidate is decoded and measured.
func (d *pdfcpuDocument) largestImage(pageNr int) (img image.Image, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return nil, errors.New("document is closed")
	}

	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("panic while extracting page image: %v", r)
		}
	}()

	images, err := pdfcpu.ExtractPageImages(d.ctx, pageNr, false)
	if err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}

	var (
		best     image.Image
		bestArea int
		firstErr error
	)
	for _, candidate := range images {
		if candidate.Thumb {
			continue
		}
		decoded, _, err := image.Decode(candidate)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("decode %s image: %w", candidate.FileType, err)
			}
			continue
		}
		b := decoded.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = decoded, area
		}
	}
	if bestArea == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, ErrNoScanImage
	}
	return best, nil
}

func (d *pdfcpuDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = nil
	return nil
}

// fitToSize resamples img to w x h. Images already within a pixel of the
// target, or a zero target, are returned unchanged.
func fitToSize(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if w <= 0 || h <= 0 {
		return img
	}
	// Scans of rotated pages are stored in their own orientation
	if (b.Dx() > b.Dy()) != (w > h) {
		w, h = h, w
	}
	if abs(b.Dx()-w) <= 1 && abs(b.Dy()-h) <= 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
