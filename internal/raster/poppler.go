package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Poppler renders pages with the pdftoppm command line tool
type Poppler struct {
	bin string
}

// NewPoppler creates a rasterizer that runs the given pdftoppm binary
func NewPoppler(bin string) *Poppler {
	return &Poppler{bin: bin}
}

// Backend implements Rasterizer
func (p *Poppler) Backend() Backend { return BackendPoppler }

// Open implements Rasterizer. The page count is read with pdfcpu so that a
// broken file is rejected before pdftoppm is started.
func (p *Poppler) Open(ctx context.Context, path string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	count, err := pageCount(path)
	if err != nil {
		return nil, &Error{Backend: BackendPoppler, Op: "open", Err: err}
	}

	return &popplerDocument{bin: p.bin, path: path, pages: count}, nil
}

type popplerDocument struct {
	bin   string
	path  string
	pages int
}

func (d *popplerDocument) PageCount() int {
	return d.pages
}

func (d *popplerDocument) Render(ctx context.Context, pageNr, dpi int) (*Page, error) {
	if err := checkPage(BackendPoppler, pageNr, d.pages); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "acord-fields-page-*")
	if err != nil {
		return nil, &Error{Backend: BackendPoppler, Op: "render", Page: pageNr, Err: err}
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(pageNr)
	cmd := exec.CommandContext(ctx, d.bin,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", n,
		"-l", n,
		"-singlefile",
		d.path,
		prefix)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &Error{Backend: BackendPoppler, Op: "render", Page: pageNr, Err: err}
	}

	img, err := decodePNGFile(prefix + ".png")
	if err != nil {
		return nil, &Error{Backend: BackendPoppler, Op: "render", Page: pageNr, Err: err}
	}

	return &Page{Number: pageNr, Image: img, DPI: dpi}, nil
}

func (d *popplerDocument) Close() error {
	return nil
}

func decodePNGFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}

// pageCount reads the number of pages in a PDF file
func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("read PDF: %w", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return pctx.PageCount, nil
}
