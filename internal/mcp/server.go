package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/a3tai/acord-field-extractor/internal/app"
	"github.com/a3tai/acord-field-extractor/internal/config"
	"github.com/a3tai/acord-field-extractor/internal/descriptions"
	"github.com/a3tai/acord-field-extractor/internal/raster"
	"github.com/a3tai/acord-field-extractor/internal/report"
	"github.com/a3tai/acord-field-extractor/internal/security"
)

// maxListedFiles caps the directory listing in the server info response
const maxListedFiles = 10

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *app.Service
	paths     *security.PathValidator
	logger    *logrus.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *app.Service, logger *logrus.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	paths, err := security.NewPathValidator(cfg.PDFDirectory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		paths:     paths,
		logger:    logger,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		descriptions.ExtractFields,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ExtractFields)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the scanned PDF, absolute or relative to the served directory"),
		),
		mcp.WithNumber("dpi",
			mcp.Description(fmt.Sprintf("Rendering resolution, %d to %d (default %d)",
				raster.MinDPI, raster.MaxDPI, s.config.DPI)),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractFields)

	classifyTool := mcp.NewTool(
		descriptions.ClassifyText,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ClassifyText)),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Form text, one printed line per line"),
		),
	)
	s.mcpServer.AddTool(classifyTool, s.handleClassifyText)

	validateTool := mcp.NewTool(
		descriptions.ValidateFile,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ValidateFile)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateFile)

	infoTool := mcp.NewTool(
		descriptions.ServerInfo,
		mcp.WithDescription(descriptions.GetToolDescription(descriptions.ServerInfo)),
	)
	s.mcpServer.AddTool(infoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleExtractFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dpi, err := dpiArgument(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.WithFields(logrus.Fields{"path": resolved, "dpi": dpi}).Info("Extracting fields")

	result, err := s.service.Extract(ctx, resolved, dpi)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := report.Text(result.Source, result.Fields)
	text += fmt.Sprintf("\nPages: %d (rendered at %d DPI with %s)\n", result.PageCount, result.DPI, result.Rasterizer)
	for _, page := range result.Pages {
		text += fmt.Sprintf("  Page %d: %d field(s) from %d line(s)\n", page.Page, page.Fields, page.Lines)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleClassifyText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	candidates := s.service.Classifier().ClassifyText(text)
	if len(candidates) == 0 {
		return mcp.NewToolResultText("No field names found"), nil
	}

	responseText := fmt.Sprintf("Found %d field name(s):\n", len(candidates))
	for i, c := range candidates {
		responseText += fmt.Sprintf("%d. %s [%s]\n", i+1, c.Name, c.Rule)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleValidateFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := s.service.Validator().ValidateFile(resolved)

	var responseText string
	if result.Valid {
		responseText = fmt.Sprintf("PDF file %s is valid and readable (%d page(s), %d bytes)",
			result.Path, result.Pages, result.Size)
	} else {
		responseText = fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := listPDFs(s.paths.Root())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfo(files)), nil
}

type pdfEntry struct {
	name string
	size int64
}

func (s *Server) formatServerInfo(files []pdfEntry) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", s.paths.Root())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🖨️  Rasterizer: %s at %d DPI\n", s.service.Backend(), s.config.DPI)
	text += fmt.Sprintf("🔤 OCR: %s (%s)\n\n", s.service.EngineName(), s.config.Language)

	if len(files) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(files))
		for i, file := range files {
			if i >= maxListedFiles {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-maxListedFiles)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.name, file.size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("• %s: %s\n", name, descriptions.Summary(name))
	}

	return text
}

func listPDFs(dir string) ([]pdfEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var files []pdfEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, pdfEntry{name: entry.Name(), size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// dpiArgument reads the optional dpi argument; zero means the configured default
func dpiArgument(request mcp.CallToolRequest) (int, error) {
	raw, ok := request.GetArguments()["dpi"]
	if !ok || raw == nil {
		return 0, nil
	}

	var dpi int
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("dpi must be a whole number, got %v", v)
		}
		dpi = int(v)
	case int:
		dpi = v
	default:
		return 0, fmt.Errorf("dpi must be a number, got %T", raw)
	}

	if err := raster.ValidateDPI(dpi); err != nil {
		return 0, err
	}
	return dpi, nil
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.Mode != config.ModeStdio {
		return fmt.Errorf("unsupported server mode %q", s.config.Mode)
	}
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks the MCP stdio transport over in and out until in is closed
// or ctx is cancelled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if s.config.IsDebug() {
		s.logger.Debug("Starting ACORD field MCP server in stdio mode")
		s.logger.Debugf("PDF directory: %s", s.paths.Root())
	}

	errWriter := s.logger.WriterLevel(logrus.ErrorLevel)
	defer errWriter.Close()

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(errWriter, "", 0))

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
