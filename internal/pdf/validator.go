// Package pdf checks input files before they are handed to a rasterizer.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxFileSize is the largest input accepted unless configured otherwise
const DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB

// Validation failures. Every error returned by Validate wraps one of these.
var (
	ErrNotFound   = errors.New("file does not exist")
	ErrDirectory  = errors.New("path is a directory")
	ErrNotPDF     = errors.New("file is not a PDF")
	ErrEmpty      = errors.New("file is empty")
	ErrTooLarge   = errors.New("file too large")
	ErrUnreadable = errors.New("invalid PDF file")
)

// FileInfo describes an input file that passed validation
type FileInfo struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages"`
}

// ValidationResult is the outcome of ValidateFile, suitable for tool output
type ValidationResult struct {
	Path    string `json:"path"`
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Pages   int    `json:"pages,omitempty"`
}

// Validator handles PDF file validation
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator that rejects files above maxFileSize bytes
func NewValidator(maxFileSize int64) *Validator {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Validator{maxFileSize: maxFileSize}
}

// Validate checks that path names a readable, non-empty PDF within the size
// limit and returns its basic facts. Metadata checks run before the extension
// and parse checks, so ErrNotPDF and ErrUnreadable imply the file exists, is
// non-empty and is within the limit.
func (v *Validator) Validate(path string) (*FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrNotFound)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.checkFileInfo(path, info); err != nil {
		return nil, err
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	return &FileInfo{
		Path:  path,
		Name:  filepath.Base(path),
		Size:  info.Size(),
		Pages: r.NumPage(),
	}, nil
}

// ValidateFile reports validation problems in the result instead of as an error
func (v *Validator) ValidateFile(path string) *ValidationResult {
	result := &ValidationResult{Path: path}

	info, err := v.Validate(path)
	if err != nil {
		result.Message = err.Error()
		return result
	}

	result.Valid = true
	result.Size = info.Size
	result.Pages = info.Pages
	return result
}

// checkFileInfo validates file metadata without opening the PDF
func (v *Validator) checkFileInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirectory, path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmpty, path)
	}

	if info.Size() > v.maxFileSize {
		return fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, info.Size(), v.maxFileSize)
	}

	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%w: %s", ErrNotPDF, path)
	}

	return nil
}
