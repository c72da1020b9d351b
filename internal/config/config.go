package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/acord-field-extractor/internal/classify"
	"github.com/a3tai/acord-field-extractor/internal/logging"
	"github.com/a3tai/acord-field-extractor/internal/raster"
	"github.com/a3tai/acord-field-extractor/internal/report"
)

const (
	// Mode constants
	ModeCLI   = "cli"
	ModeStdio = "stdio"

	// EnvPrefix is prepended to every environment variable
	EnvPrefix = "ACORD_FIELDS"

	// Default values
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultLanguage    = "eng"
	DefaultWorkers     = 1

	// Directory permissions
	DefaultDirPerm = 0o750
)

// ErrVersionRequested is returned by the loaders when --version is present
var ErrVersionRequested = errors.New("version requested")

// Config holds all configuration for the extractor binaries
type Config struct {
	Mode string // "cli" or "stdio"

	// Input and output (cli mode)
	InputPath  string
	OutputPath string
	Format     string

	// Rendering
	DPI          int
	Rasterizer   string
	PdftoppmPath string

	// OCR
	Language       string // Tesseract language spec, e.g. "eng" or "eng+spa"
	TessdataPrefix string

	// Conditioning and classification
	NoDenoise           bool
	FallbackMaxWords    int
	FallbackMaxLen      int
	ExtraCheckboxGlyphs string
	Explain             bool

	// Execution
	Workers int
	Timeout time.Duration

	// PDF directory served in stdio mode
	PDFDirectory string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:             ModeCLI,
		Format:           string(report.FormatText),
		DPI:              raster.DefaultDPI,
		Rasterizer:       string(raster.BackendAuto),
		Language:         DefaultLanguage,
		FallbackMaxWords: classify.DefaultFallbackMaxWords,
		FallbackMaxLen:   classify.DefaultFallbackMaxLen,
		Workers:          DefaultWorkers,
		PDFDirectory:     currentDir,
		Version:          "1.0.0",
		ServerName:       "acord-fields",
		LogLevel:         DefaultLogLevel,
		MaxFileSize:      DefaultMaxFileSize,
	}
}

// LoadCLI parses the extraction command line. args excludes the program name.
func LoadCLI(program string, args []string, stderr io.Writer) (*Config, error) {
	return load(ModeCLI, program, args, stderr)
}

// LoadServer parses the MCP server command line. args excludes the program name.
func LoadServer(program string, args []string, stderr io.Writer) (*Config, error) {
	return load(ModeStdio, program, args, stderr)
}

func load(mode, program string, args []string, stderr io.Writer) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Mode = mode
	if mode == ModeStdio {
		cfg.ServerName = "acord-fields-mcp"
	}

	if err := checkVersionFlag(args); err != nil {
		return nil, err
	}

	v := viper.New()
	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(stderr)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	bindFlagsToViper(v, fs)
	setupUsageMessage(fs, mode, program, stderr)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	if mode == ModeCLI {
		switch fs.NArg() {
		case 1:
			cfg.InputPath = fs.Arg(0)
		case 0:
			return nil, errors.New("missing input PDF path")
		default:
			return nil, fmt.Errorf("expected one input PDF path, got %d", fs.NArg())
		}
		if cfg.OutputPath == "" {
			format, err := report.ParseFormat(cfg.Format)
			if err == nil {
				cfg.OutputPath = report.DefaultOutputPath(cfg.InputPath, format)
			}
		}
	}

	// Expand paths if needed
	if cfg.PDFDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.PDFDirectory); err == nil {
			cfg.PDFDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("output", cfg.OutputPath)
	v.SetDefault("format", cfg.Format)
	v.SetDefault("dpi", cfg.DPI)
	v.SetDefault("rasterizer", cfg.Rasterizer)
	v.SetDefault("pdftoppm", cfg.PdftoppmPath)
	v.SetDefault("lang", cfg.Language)
	v.SetDefault("tessdata", cfg.TessdataPrefix)
	v.SetDefault("no-denoise", cfg.NoDenoise)
	v.SetDefault("fallback-max-words", cfg.FallbackMaxWords)
	v.SetDefault("fallback-max-len", cfg.FallbackMaxLen)
	v.SetDefault("checkbox-glyphs", cfg.ExtraCheckboxGlyphs)
	v.SetDefault("explain", cfg.Explain)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("dir", cfg.PDFDirectory)
	v.SetDefault("loglevel", cfg.LogLevel)
	v.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg *Config) {
	if cfg.Mode == ModeCLI {
		fs.StringP("output", "o", cfg.OutputPath, "Report path (default: input path with .txt or .json extension)")
		fs.String("format", cfg.Format, "Report format: text or json")
		fs.Bool("explain", cfg.Explain, "Log every candidate with the rule that matched it (debug level)")
		fs.Duration("timeout", cfg.Timeout, "Abort the run after this long (0 disables)")
	} else {
		fs.String("dir", cfg.PDFDirectory, "Directory containing PDF files")
	}

	fs.Int("dpi", cfg.DPI, fmt.Sprintf("Rasterization resolution (%d-%d)", raster.MinDPI, raster.MaxDPI))
	fs.String("rasterizer", cfg.Rasterizer, "PDF rasterizer: auto, poppler or pdfcpu")
	fs.String("pdftoppm", cfg.PdftoppmPath, "Path to the pdftoppm binary (default: looked up on PATH)")
	fs.String("lang", cfg.Language, "Tesseract language, e.g. eng or eng+spa")
	fs.String("tessdata", cfg.TessdataPrefix, "Tesseract tessdata directory")
	fs.Bool("no-denoise", cfg.NoDenoise, "Skip the denoising pass")
	fs.Int("fallback-max-words", cfg.FallbackMaxWords, "Largest word count accepted by the generic colon rule")
	fs.Int("fallback-max-len", cfg.FallbackMaxLen, "Exclusive length limit of the generic colon rule")
	fs.String("checkbox-glyphs", cfg.ExtraCheckboxGlyphs, "Extra checkbox glyphs to accept besides "+classify.DefaultCheckboxGlyphs)
	fs.Int("workers", cfg.Workers, "Pages processed concurrently (1 is sequential)")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
	fs.Bool("version", false, "Print version and exit")
}

// bindFlagsToViper binds every defined flag to the viper key of the same name
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "version" {
			return
		}
		_ = v.BindPFlag(f.Name, f)
	})
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet, mode, program string, stderr io.Writer) {
	fs.Usage = func() {
		if mode == ModeCLI {
			fmt.Fprintf(stderr, "Usage: %s [options] <form.pdf>\n", program)
			fmt.Fprintf(stderr, "\nExtract field names from scanned ACORD forms\n\n")
		} else {
			fmt.Fprintf(stderr, "Usage: %s [options]\n", program)
			fmt.Fprintf(stderr, "\nMCP server exposing ACORD field extraction over stdio\n\n")
		}
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		if mode == ModeCLI {
			fmt.Fprintf(stderr, "  %s acord25.pdf                       # writes acord25.txt\n", program)
			fmt.Fprintf(stderr, "  %s -o fields.txt --dpi 400 acord.pdf # custom output and resolution\n", program)
			fmt.Fprintf(stderr, "  %s --format json --workers 4 a.pdf   # parallel pages, JSON report\n", program)
		} else {
			fmt.Fprintf(stderr, "  %s --dir=/path/to/forms\n", program)
		}
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  Every option can be set as %s_<OPTION>, e.g. %s_DPI=400 or %s_FALLBACK_MAX_WORDS=6\n",
			EnvPrefix, EnvPrefix, EnvPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) error {
	for _, arg := range args {
		if arg == "--" {
			return nil
		}
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return ErrVersionRequested
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.OutputPath = v.GetString("output")
	cfg.Format = v.GetString("format")
	cfg.DPI = v.GetInt("dpi")
	cfg.Rasterizer = v.GetString("rasterizer")
	cfg.PdftoppmPath = v.GetString("pdftoppm")
	cfg.Language = v.GetString("lang")
	cfg.TessdataPrefix = v.GetString("tessdata")
	cfg.NoDenoise = v.GetBool("no-denoise")
	cfg.FallbackMaxWords = v.GetInt("fallback-max-words")
	cfg.FallbackMaxLen = v.GetInt("fallback-max-len")
	cfg.ExtraCheckboxGlyphs = v.GetString("checkbox-glyphs")
	cfg.Explain = v.GetBool("explain")
	cfg.Workers = v.GetInt("workers")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.PDFDirectory = v.GetString("dir")
	cfg.LogLevel = v.GetString("loglevel")
	cfg.MaxFileSize = v.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeCLI && c.Mode != ModeStdio {
		return errors.New("mode must be either 'cli' or 'stdio'")
	}

	if c.Mode == ModeCLI {
		if c.InputPath == "" {
			return errors.New("input path cannot be empty")
		}
		if _, err := report.ParseFormat(c.Format); err != nil {
			return err
		}
		if c.Timeout < 0 {
			return errors.New("timeout cannot be negative")
		}
	}

	if c.Mode == ModeStdio {
		if c.PDFDirectory == "" {
			return errors.New("PDF directory cannot be empty")
		}
		if _, err := os.Stat(c.PDFDirectory); os.IsNotExist(err) {
			if err := os.MkdirAll(c.PDFDirectory, DefaultDirPerm); err != nil {
				return fmt.Errorf("cannot create PDF directory %s: %w", c.PDFDirectory, err)
			}
		} else if err != nil {
			return fmt.Errorf("cannot access PDF directory %s: %w", c.PDFDirectory, err)
		}
	}

	if err := raster.ValidateDPI(c.DPI); err != nil {
		return err
	}
	if _, err := raster.ParseBackend(c.Rasterizer); err != nil {
		return err
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("OCR language cannot be empty")
	}
	if err := c.ClassifierOptions().Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Languages splits the Tesseract language spec
func (c *Config) Languages() []string {
	var langs []string
	for _, l := range strings.Split(c.Language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return langs
}

// ClassifierOptions returns the classifier settings
func (c *Config) ClassifierOptions() classify.Options {
	return classify.Options{
		FallbackMaxWords:    c.FallbackMaxWords,
		FallbackMaxLen:      c.FallbackMaxLen,
		ExtraCheckboxGlyphs: c.ExtraCheckboxGlyphs,
	}
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Input: %s, Output: %s, DPI: %d, Rasterizer: %s, Lang: %s, Workers: %d, LogLevel: %s}",
		c.Mode, c.InputPath, c.OutputPath, c.DPI, c.Rasterizer, c.Language, c.Workers, c.LogLevel)
}
