package mcp

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/acord-field-extractor/internal/app"
	"github.com/a3tai/acord-field-extractor/internal/config"
	"github.com/a3tai/acord-field-extractor/internal/descriptions"
	"github.com/a3tai/acord-field-extractor/internal/ocr"
	"github.com/a3tai/acord-field-extractor/internal/raster"
	"github.com/a3tai/acord-field-extractor/internal/testpdf"
)

const formText = "Named Insured:\nAddress ________\n☐ Yes\nplease print clearly"

func formEngine() ocr.Engine {
	return ocr.EngineFunc(func(ctx context.Context, img image.Image) (string, error) {
		return formText, nil
	})
}

func scanPage() testpdf.Page {
	img := image.NewGray(image.Rect(0, 0, 144, 144))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for y := 40; y < 60; y++ {
		for x := 20; x < 120; x++ {
			img.Pix[y*img.Stride+x] = 0
		}
	}
	return testpdf.Page{Width: 144, Height: 144, Scan: img}
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeStdio
	cfg.PDFDirectory = dir
	cfg.ServerName = "test-server"
	cfg.DPI = 72
	cfg.Rasterizer = string(raster.BackendPDFCPU)
	cfg.NoDenoise = true
	return cfg
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	testpdf.Write(t, dir, "form.pdf", []testpdf.Page{scanPage(), scanPage()})

	cfg := testConfig(dir)
	logger, _ := test.NewNullLogger()
	service, err := app.NewServiceWith(cfg, logger, ocr.Static(formEngine()), raster.NewPDFCPU())
	require.NoError(t, err)

	server, err := NewServer(cfg, service, logger)
	require.NoError(t, err)
	return server, dir
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error),
	args map[string]interface{},
) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err, "handlers report failures in the result")
	require.NotNil(t, result)
	return result
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	logger, _ := test.NewNullLogger()
	service, err := app.NewServiceWith(cfg, logger, ocr.Static(formEngine()), raster.NewPDFCPU())
	require.NoError(t, err)

	tests := []struct {
		name        string
		config      *config.Config
		service     *app.Service
		expectError bool
	}{
		{name: "valid config", config: cfg, service: service},
		{name: "nil config", config: nil, service: service, expectError: true},
		{name: "nil service", config: cfg, service: nil, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.service, logger)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config, server.config)
			assert.NotNil(t, server.mcpServer)
			assert.Equal(t, dir, server.paths.Root())
		})
	}
}

func TestServer_HandleExtractFields(t *testing.T) {
	server, dir := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{name: "relative path", path: "form.pdf"},
		{name: "absolute path", path: filepath.Join(dir, "form.pdf")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, server.handleExtractFields, map[string]interface{}{"path": tt.path})
			require.False(t, result.IsError, extractTextFromResult(result))

			text := extractTextFromResult(result)
			assert.True(t, strings.HasPrefix(text, "ACORD Form Field Names\n"))
			assert.Contains(t, text, "Source: form.pdf\n")
			assert.Contains(t, text, "Total Fields Found: 3\n")
			assert.Contains(t, text, "1. Address\n2. Named Insured\n3. Yes\n")
			assert.Contains(t, text, "Pages: 2 (rendered at 72 DPI with pdfcpu)")
			assert.Contains(t, text, "Page 2: 3 field(s) from 4 line(s)")
		})
	}
}

func TestServer_HandleExtractFields_DPI(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server.handleExtractFields, map[string]interface{}{"path": "form.pdf", "dpi": float64(144)})
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "rendered at 144 DPI")

	for _, dpi := range []interface{}{float64(10), float64(150.5), "300", float64(5000)} {
		result := callTool(t, server.handleExtractFields, map[string]interface{}{"path": "form.pdf", "dpi": dpi})
		assert.True(t, result.IsError, "dpi %v", dpi)
		assert.Contains(t, extractTextFromResult(result), "dpi", "dpi %v", dpi)
	}
}

func TestServer_HandleExtractFields_Errors(t *testing.T) {
	server, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("not a pdf"), 0o600))

	tests := []struct {
		name    string
		args    map[string]interface{}
		message string
	}{
		{name: "missing path", args: map[string]interface{}{}, message: "path"},
		{name: "outside directory", args: map[string]interface{}{"path": "../../etc/passwd"}, message: "outside"},
		{name: "missing file", args: map[string]interface{}{"path": "missing.pdf"}, message: "does not exist"},
		{name: "not a pdf", args: map[string]interface{}{"path": "notes.pdf"}, message: "notes.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, server.handleExtractFields, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.message)
		})
	}
}

func TestServer_HandleClassifyText(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server.handleClassifyText, map[string]interface{}{
		"text": "Named Insured:\n1. Policy Number\nEffective Date: 01/01/2024\nnoise",
	})
	require.False(t, result.IsError)
	assert.Equal(t,
		"Found 3 field name(s):\n1. Named Insured [colon]\n2. Policy Number [numbered]\n3. Effective Date [fallback]\n",
		extractTextFromResult(result))

	result = callTool(t, server.handleClassifyText, map[string]interface{}{"text": "nothing to see here"})
	assert.Equal(t, "No field names found", extractTextFromResult(result))

	result = callTool(t, server.handleClassifyText, map[string]interface{}{})
	assert.True(t, result.IsError)
}

func TestServer_HandleValidateFile(t *testing.T) {
	server, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.pdf"), nil, 0o600))

	result := callTool(t, server.handleValidateFile, map[string]interface{}{"path": "form.pdf"})
	text := extractTextFromResult(result)
	assert.Contains(t, text, "is valid and readable")
	assert.Contains(t, text, "2 page(s)")

	result = callTool(t, server.handleValidateFile, map[string]interface{}{"path": "empty.pdf"})
	assert.Contains(t, extractTextFromResult(result), "PDF validation failed")

	result = callTool(t, server.handleValidateFile, map[string]interface{}{"path": "/etc/hosts"})
	assert.True(t, result.IsError)
}

func TestServer_HandleServerInfo(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server.handleServerInfo, nil)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server v")
	assert.Contains(t, text, "1. form.pdf (")
	assert.Contains(t, text, "Rasterizer: pdfcpu at 72 DPI")
	assert.Contains(t, text, "OCR: func (eng)")
	for _, name := range descriptions.GetAllToolNames() {
		assert.Contains(t, text, name)
	}
}

func TestFormatServerInfo_Truncates(t *testing.T) {
	server, _ := newTestServer(t)

	var files []pdfEntry
	for i := 0; i < maxListedFiles+3; i++ {
		files = append(files, pdfEntry{name: "f.pdf", size: 1})
	}
	assert.Contains(t, server.formatServerInfo(files), "... and 3 more files")
	assert.Contains(t, server.formatServerInfo(nil), "No PDF files found")
}

func TestServer_ToolsRegistration(t *testing.T) {
	server, _ := newTestServer(t)

	response := server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	for _, name := range descriptions.GetAllToolNames() {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}

func TestServer_Serve(t *testing.T) {
	server, _ := newTestServer(t)

	var out strings.Builder
	err := server.Serve(context.Background(), strings.NewReader(""), &out)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, server.Serve(ctx, strings.NewReader(""), &out))
}

func TestServer_Run_InvalidMode(t *testing.T) {
	server, _ := newTestServer(t)
	server.config.Mode = config.ModeCLI

	err := server.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported server mode")
}

func TestServer_LogsExtraction(t *testing.T) {
	server, _ := newTestServer(t)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)
	server.logger = logger

	callTool(t, server.handleExtractFields, map[string]interface{}{"path": "form.pdf"})

	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, "Extracting fields", hook.Entries[0].Message)
	assert.Equal(t, 0, hook.Entries[0].Data["dpi"])
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
