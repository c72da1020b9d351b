package descriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetToolDescription(t *testing.T) {
	for _, name := range GetAllToolNames() {
		assert.NotEqual(t, "Tool description not available", GetToolDescription(name), name)
	}
	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}

func TestGetAllToolNames(t *testing.T) {
	assert.Equal(t, []string{ClassifyText, ExtractFields, ServerInfo, ValidateFile}, GetAllToolNames())
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Run the field-name rules over text you already have.", Summary(ClassifyText))
	assert.Equal(t, "Tool description not available", Summary("unknown"))
}
