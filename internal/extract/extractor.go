// Package extract turns a single rendered page into field name candidates.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/acord-field-extractor/internal/classify"
	"github.com/a3tai/acord-field-extractor/internal/fieldset"
	"github.com/a3tai/acord-field-extractor/internal/imaging"
	"github.com/a3tai/acord-field-extractor/internal/ocr"
	"github.com/a3tai/acord-field-extractor/internal/raster"
)

// PageResult is what one page contributed
type PageResult struct {
	PageNumber int                  `json:"page"`
	Candidates []classify.Candidate `json:"candidates"`
	// Fields holds the distinct candidate names in sorted order
	Fields []string `json:"fields"`
	// LineCount is the number of non-blank OCR lines
	LineCount int `json:"lines"`
}

// Extractor runs conditioning, OCR and classification for a page. It keeps no
// state between pages and is safe for concurrent use when its engine is.
type Extractor struct {
	conditioner *imaging.Conditioner
	engine      ocr.Engine
	classifier  *classify.Classifier
	logger      logrus.FieldLogger
	explain     bool
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for per-candidate diagnostics
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// WithExplain logs every candidate with the rule that produced it at debug level
func WithExplain(explain bool) Option {
	return func(e *Extractor) { e.explain = explain }
}

// New creates an Extractor
func New(conditioner *imaging.Conditioner, engine ocr.Engine, classifier *classify.Classifier, opts ...Option) (*Extractor, error) {
	if conditioner == nil || engine == nil || classifier == nil {
		return nil, errors.New("extractor needs a conditioner, an OCR engine and a classifier")
	}
	e := &Extractor{
		conditioner: conditioner,
		engine:      engine,
		classifier:  classifier,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract conditions the page, recognizes its text and classifies every line.
// A page without candidates is not an error.
func (e *Extractor) Extract(ctx context.Context, page *raster.Page) (*PageResult, error) {
	if page == nil {
		return nil, errors.New("nil page")
	}

	conditioned, err := e.conditioner.Condition(page.Image)
	if err != nil {
		return nil, fmt.Errorf("condition page %d: %w", page.Number, err)
	}

	text, err := e.engine.Recognize(ctx, conditioned)
	if err != nil {
		return nil, fmt.Errorf("%s page %d: %w", e.engine.Name(), page.Number, err)
	}

	return e.ExtractText(page.Number, text), nil
}

// ExtractText classifies already recognized text as if it came from page pageNr
func (e *Extractor) ExtractText(pageNr int, text string) *PageResult {
	lines := classify.SplitLines(text)
	result := &PageResult{PageNumber: pageNr}

	names := fieldset.New()
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.LineCount++

		cand, ok := e.classifier.Classify(line)
		if !ok {
			continue
		}
		if e.explain {
			e.logger.WithFields(logrus.Fields{
				"page": pageNr,
				"rule": cand.Rule.String(),
				"line": line,
			}).Debugf("Candidate %q", cand.Name)
		}
		result.Candidates = append(result.Candidates, cand)
		names.Add(cand.Name)
	}

	result.Fields = names.Finalize()
	return result
}
