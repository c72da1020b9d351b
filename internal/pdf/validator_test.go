package pdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/acord-field-extractor/internal/testpdf"
)

func TestValidator_Validate(t *testing.T) {
	dir := t.TempDir()
	validator := NewValidator(64 * 1024)

	validPath := testpdf.Write(t, dir, "acord25.pdf", []testpdf.Page{{}, {}})
	upperPath := testpdf.Write(t, dir, "ACORD125.PDF", []testpdf.Page{{}})

	emptyPath := filepath.Join(dir, "empty.pdf")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o600))

	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("Named Insured:"), 0o600))

	emptyTextPath := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(emptyTextPath, nil, 0o600))

	largePath := filepath.Join(dir, "large.pdf")
	require.NoError(t, os.WriteFile(largePath, []byte(strings.Repeat("x", 64*1024+1)), 0o600))

	garbagePath := filepath.Join(dir, "garbage.pdf")
	require.NoError(t, os.WriteFile(garbagePath, []byte("this is not a pdf"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", validPath, nil},
		{"upper case extension", upperPath, nil},
		{"empty path", "", ErrNotFound},
		{"missing", filepath.Join(dir, "missing.pdf"), ErrNotFound},
		{"directory", dir, ErrDirectory},
		{"wrong extension", textPath, ErrNotPDF},
		{"empty file", emptyPath, ErrEmpty},
		{"empty file checked before extension", emptyTextPath, ErrEmpty},
		{"too large", largePath, ErrTooLarge},
		{"unparseable", garbagePath, ErrUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := validator.Validate(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Base(tt.path), info.Name)
			assert.Positive(t, info.Size)
		})
	}
}

func TestValidator_PageCount(t *testing.T) {
	path := testpdf.Write(t, t.TempDir(), "form.pdf", []testpdf.Page{{}, {}, {}})

	info, err := NewValidator(DefaultMaxFileSize).Validate(path)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Pages)
}

func TestValidator_ValidateFile(t *testing.T) {
	validator := NewValidator(0)
	path := testpdf.Write(t, t.TempDir(), "form.pdf", []testpdf.Page{{}})

	result := validator.ValidateFile(path)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Message)
	assert.Equal(t, 1, result.Pages)

	result = validator.ValidateFile("/non/existent/file.pdf")
	assert.False(t, result.Valid)
	assert.Equal(t, "/non/existent/file.pdf", result.Path)
	assert.Contains(t, result.Message, "does not exist")
}

func TestNewValidator_DefaultLimit(t *testing.T) {
	assert.Equal(t, int64(DefaultMaxFileSize), NewValidator(-1).maxFileSize)
}
