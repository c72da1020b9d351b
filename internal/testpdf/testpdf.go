// Package testpdf builds small PDF files for tests.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Letter page size in points
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// Page describes one page of a generated PDF. Scan, when set, is embedded as
// a grayscale image covering the whole page. Stamp is a second, small image
// drawn in the lower left corner, like a logo or barcode on a real scan.
type Page struct {
	Width, Height float64
	Scan          *image.Gray
	Stamp         *image.Gray
}

// Build returns the bytes of a PDF with the given pages and a valid xref table
func Build(pages []Page) []byte {
	var objects []string

	// 1: catalog, 2: page tree, then per page: page, contents and optional image
	kids := ""
	next := 3
	var pageObjs []string
	for _, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 || h == 0 {
			w, h = LetterWidth, LetterHeight
		}
		pageNr, contentNr := next, next+1
		next += 2
		kids += fmt.Sprintf("%d 0 R ", pageNr)

		if p.Scan == nil {
			pageObjs = append(pageObjs,
				fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R /Resources << >> >>", w, h, contentNr),
				stream("", ""))
			continue
		}

		imageNr := next
		next++
		draw := fmt.Sprintf("q %g 0 0 %g 0 0 cm /Im1 Do Q", w, h)
		xobjects := fmt.Sprintf("/Im1 %d 0 R", imageNr)
		if p.Stamp != nil {
			xobjects += fmt.Sprintf(" /Im2 %d 0 R", next)
			next++
			draw += " q 36 0 0 36 18 18 cm /Im2 Do Q"
		}
		pageObjs = append(pageObjs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %g %g] /Contents %d 0 R /Resources << /XObject << %s >> >> >>", w, h, contentNr, xobjects),
			stream("", draw),
			imageStream(p.Scan))
		if p.Stamp != nil {
			pageObjs = append(pageObjs, imageStream(p.Stamp))
		}
	}

	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	objects = append(objects, pageObjs...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// Write builds a PDF into dir/name and returns its path
func Write(t testing.TB, dir, name string, pages []Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages), 0o600); err != nil {
		t.Fatalf("write test PDF: %v", err)
	}
	return path
}

// WriteEncrypted writes the PDF encrypted with AES-256 and only an owner
// password, the way permission-restricted forms are distributed. It opens
// without a password.
func WriteEncrypted(t testing.TB, dir, name string, pages []Page, ownerPW string) string {
	t.Helper()
	plain := Write(t, dir, "plain-"+name, pages)
	path := filepath.Join(dir, name)
	if err := api.EncryptFile(plain, path, model.NewAESConfiguration("", ownerPW, 256)); err != nil {
		t.Fatalf("encrypt test PDF: %v", err)
	}
	if err := os.Remove(plain); err != nil {
		t.Fatalf("remove plain test PDF: %v", err)
	}
	return path
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s/Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

func imageStream(img *image.Gray) string {
	b := img.Bounds()
	var raw bytes.Buffer
	zw := zlib.NewWriter(&raw)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		_, _ = zw.Write(img.Pix[img.PixOffset(b.Min.X, y) : img.PixOffset(b.Min.X, y)+b.Dx()])
	}
	_ = zw.Close()

	dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode ",
		b.Dx(), b.Dy())
	return fmt.Sprintf("<< %s/Length %d >>\nstream\n%s\nendstream", dict, raw.Len(), raw.String())
}
