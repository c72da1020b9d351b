// Package pipeline drives a PDF through rendering, extraction and
// aggregation to produce the final field list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/acord-field-extractor/internal/extract"
	"github.com/a3tai/acord-field-extractor/internal/fieldset"
	"github.com/a3tai/acord-field-extractor/internal/pdf"
	"github.com/a3tai/acord-field-extractor/internal/raster"
)

// PageExtractor turns a rendered page into field candidates
type PageExtractor interface {
	Extract(ctx context.Context, page *raster.Page) (*extract.PageResult, error)
}

// InputValidator rejects unusable input files before any work is done
type InputValidator interface {
	Validate(path string) (*pdf.FileInfo, error)
}

// Options tunes a Driver
type Options struct {
	DPI int
	// Workers is the number of pages processed at once; 1 is strictly sequential
	Workers int
}

// PageSummary is the per-page outcome reported to operators
type PageSummary struct {
	Page       int `json:"page"`
	Fields     int `json:"fields"`
	Candidates int `json:"candidates"`
	Lines      int `json:"lines"`
}

// Result is the outcome of a complete run
type Result struct {
	Source     string        `json:"source"`
	Path       string        `json:"path"`
	Rasterizer string        `json:"rasterizer"`
	DPI        int           `json:"dpi"`
	PageCount  int           `json:"page_count"`
	Pages      []PageSummary `json:"pages"`
	Fields     []string      `json:"fields"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Driver runs the extraction pipeline for one PDF at a time
type Driver struct {
	validator  InputValidator
	rasterizer raster.Rasterizer
	extractor  PageExtractor
	logger     logrus.FieldLogger
	opts       Options
}

// NewDriver creates a Driver
func NewDriver(validator InputValidator, rasterizer raster.Rasterizer, extractor PageExtractor,
	logger logrus.FieldLogger, opts Options,
) (*Driver, error) {
	if validator == nil || rasterizer == nil || extractor == nil {
		return nil, errors.New("driver needs a validator, a rasterizer and an extractor")
	}
	if err := raster.ValidateDPI(opts.DPI); err != nil {
		return nil, err
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Driver{
		validator:  validator,
		rasterizer: rasterizer,
		extractor:  extractor,
		logger:     logger,
		opts:       opts,
	}, nil
}

// Run processes every page of the PDF at path and returns the sorted,
// deduplicated field names. Nothing is written; reporting is up to the caller.
func (d *Driver) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	if _, err := d.validator.Validate(path); err != nil {
		switch {
		case errors.Is(err, pdf.ErrNotFound):
			return nil, &Error{Kind: ErrInputNotFound, Op: "validate", Path: path, Err: err}
		case errors.Is(err, pdf.ErrUnreadable), errors.Is(err, pdf.ErrNotPDF):
			// Encrypted or unusual files the parser rejects may still render
			d.logger.WithError(err).WithField("path", path).
				Warn("Input failed the PDF check, handing it to the rasterizer anyway")
		default:
			return nil, &Error{Kind: ErrInvalidInput, Op: "validate", Path: path, Err: err}
		}
	}

	doc, err := d.rasterizer.Open(ctx, path)
	if err != nil {
		return nil, &Error{Kind: ErrRasterize, Op: "open", Path: path, Err: err}
	}
	defer doc.Close()

	count := doc.PageCount()
	if count < 1 {
		return nil, &Error{Kind: ErrRasterize, Op: "open", Path: path, Err: errors.New("document has no pages")}
	}

	d.logger.WithFields(logrus.Fields{
		"path":       path,
		"pages":      count,
		"dpi":        d.opts.DPI,
		"rasterizer": d.rasterizer.Backend(),
		"workers":    d.opts.Workers,
	}).Info("Converting PDF to images")

	var pages []*extract.PageResult
	if d.opts.Workers > 1 && count > 1 {
		pages, err = d.runParallel(ctx, doc, path, count)
	} else {
		pages, err = d.runSequential(ctx, doc, path, count)
	}
	if err != nil {
		return nil, err
	}

	// Merge in page order so the outcome does not depend on scheduling
	fields := fieldset.New()
	summaries := make([]PageSummary, 0, len(pages))
	for _, page := range pages {
		fields.Add(page.Fields...)
		summaries = append(summaries, PageSummary{
			Page:       page.PageNumber,
			Fields:     len(page.Fields),
			Candidates: len(page.Candidates),
			Lines:      page.LineCount,
		})
	}

	return &Result{
		Source:     filepath.Base(path),
		Path:       path,
		Rasterizer: string(d.rasterizer.Backend()),
		DPI:        d.opts.DPI,
		PageCount:  count,
		Pages:      summaries,
		Fields:     fields.Finalize(),
		Elapsed:    time.Since(start),
	}, nil
}

func (d *Driver) runSequential(ctx context.Context, doc raster.Document, path string, count int) ([]*extract.PageResult, error) {
	results := make([]*extract.PageResult, 0, count)
	for pageNr := 1; pageNr <= count; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := d.processPage(ctx, doc, path, pageNr, count)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (d *Driver) runParallel(ctx context.Context, doc raster.Document, path string, count int) ([]*extract.PageResult, error) {
	results := make([]*extract.PageResult, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for pageNr := 1; pageNr <= count; pageNr++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := d.processPage(gctx, doc, path, pageNr, count)
			if err != nil {
				return err
			}
			results[pageNr-1] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// processPage renders and extracts a single page. The rendered image goes out
// of scope as soon as extraction returns.
func (d *Driver) processPage(ctx context.Context, doc raster.Document, path string, pageNr, count int) (*extract.PageResult, error) {
	d.logger.Infof("Processing page %d/%d...", pageNr, count)

	page, err := doc.Render(ctx, pageNr, d.opts.DPI)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: ErrRasterize, Op: fmt.Sprintf("render page %d of", pageNr), Path: path, Err: err}
	}

	res, err := d.extractor.Extract(ctx, page)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: ErrExtract, Op: fmt.Sprintf("extract page %d of", pageNr), Path: path, Err: err}
	}

	d.logger.WithField("page", pageNr).Infof("Found %d field(s) on page %d", len(res.Candidates), pageNr)
	return res, nil
}
