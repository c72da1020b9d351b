// Package app wires the extraction components together from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/acord-field-extractor/internal/classify"
	"github.com/a3tai/acord-field-extractor/internal/config"
	"github.com/a3tai/acord-field-extractor/internal/extract"
	"github.com/a3tai/acord-field-extractor/internal/imaging"
	"github.com/a3tai/acord-field-extractor/internal/ocr"
	"github.com/a3tai/acord-field-extractor/internal/ocr/tesseract"
	"github.com/a3tai/acord-field-extractor/internal/pdf"
	"github.com/a3tai/acord-field-extractor/internal/pipeline"
	"github.com/a3tai/acord-field-extractor/internal/raster"
)

// Service holds the long-lived pipeline components. Drivers built from it
// share the rasterizer, conditioner and classifier; the OCR engine is built
// for the DPI each driver renders at.
type Service struct {
	cfg         *config.Config
	logger      logrus.FieldLogger
	validator   *pdf.Validator
	classifier  *classify.Classifier
	conditioner *imaging.Conditioner
	rasterizer  raster.Rasterizer
	engines     ocr.Factory
	extractor   *extract.Extractor
}

// NewService builds the production components described by cfg
func NewService(cfg *config.Config, logger logrus.FieldLogger) (*Service, error) {
	backend, err := raster.ParseBackend(cfg.Rasterizer)
	if err != nil {
		return nil, err
	}
	rasterizer, err := raster.New(raster.Options{
		Backend:      backend,
		PdftoppmPath: cfg.PdftoppmPath,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	engines := tesseract.Factory(tesseract.Options{
		Languages:      cfg.Languages(),
		TessdataPrefix: cfg.TessdataPrefix,
	})

	return NewServiceWith(cfg, logger, engines, rasterizer)
}

// NewServiceWith builds a service around the given OCR engine factory and
// rasterizer. Use ocr.Static for an engine that ignores the DPI.
func NewServiceWith(cfg *config.Config, logger logrus.FieldLogger, engines ocr.Factory, rasterizer raster.Rasterizer) (*Service, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	classifier, err := classify.New(cfg.ClassifierOptions())
	if err != nil {
		return nil, err
	}

	condOpts := imaging.DefaultOptions()
	condOpts.SkipDenoise = cfg.NoDenoise
	conditioner, err := imaging.NewConditioner(condOpts)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:         cfg,
		logger:      logger,
		validator:   pdf.NewValidator(cfg.MaxFileSize),
		classifier:  classifier,
		conditioner: conditioner,
		rasterizer:  rasterizer,
		engines:     engines,
	}
	if s.extractor, err = s.newExtractor(cfg.DPI); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) newExtractor(dpi int) (*extract.Extractor, error) {
	return extract.New(s.conditioner, s.engines(dpi), s.classifier,
		extract.WithLogger(s.logger),
		extract.WithExplain(s.cfg.Explain))
}

// Driver returns a pipeline driver rendering at dpi; zero means the configured DPI
func (s *Service) Driver(dpi int) (*pipeline.Driver, error) {
	if dpi == 0 {
		dpi = s.cfg.DPI
	}
	extractor := s.extractor
	if dpi != s.cfg.DPI {
		var err error
		if extractor, err = s.newExtractor(dpi); err != nil {
			return nil, err
		}
	}
	return pipeline.NewDriver(s.validator, s.rasterizer, extractor, s.logger, pipeline.Options{
		DPI:     dpi,
		Workers: s.cfg.Workers,
	})
}

// Extract runs the whole pipeline for one PDF
func (s *Service) Extract(ctx context.Context, path string, dpi int) (*pipeline.Result, error) {
	driver, err := s.Driver(dpi)
	if err != nil {
		return nil, fmt.Errorf("invalid extraction settings: %w", err)
	}
	return driver.Run(ctx, path)
}

// Classifier returns the configured line classifier
func (s *Service) Classifier() *classify.Classifier {
	return s.classifier
}

// Validator returns the input validator
func (s *Service) Validator() *pdf.Validator {
	return s.validator
}

// Backend reports the selected rasterizer backend
func (s *Service) Backend() raster.Backend {
	return s.rasterizer.Backend()
}

// EngineName reports the OCR engine, including its version when known
func (s *Service) EngineName() string {
	engine := s.engines(s.cfg.DPI)
	if v, ok := engine.(interface{ Version() string }); ok {
		return fmt.Sprintf("%s %s", engine.Name(), v.Version())
	}
	return engine.Name()
}
