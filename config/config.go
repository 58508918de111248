// Package config loads analysis settings from YAML files.
//
// Features:
//   - Environment variable expansion: ${VAR} or $VAR
//   - Missing keys keep their defaults; unknown keys are rejected
//   - Validation before any document is read
//
// Example file:
//
//	matcher:
//	  lookahead: 5
//	  accept_threshold: 0.8
//	  max_offset: 20
//	  max_font_size_ratio: 0.1
//	parser:
//	  workers: 4
//	  dedup: true
//	log:
//	  level: ${PAGESECT_LOG_LEVEL}
//	  format: json
//	ocr:
//	  language: eng+deu
//	  page_seg_mode: sparse_text
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tsawler/pagesect"
	"github.com/tsawler/pagesect/match"
	"github.com/tsawler/pagesect/ocr"
)

// File is the content of a configuration file.
type File struct {
	Matcher Matcher `yaml:"matcher" json:"matcher"`
	Parser  Parser  `yaml:"parser" json:"parser"`
	Log     Log     `yaml:"log" json:"log"`
	OCR     OCR     `yaml:"ocr" json:"ocr"`
}

// Matcher mirrors match.Config.
type Matcher struct {
	Lookahead        int     `yaml:"lookahead" json:"lookahead"`
	AcceptThreshold  float64 `yaml:"accept_threshold" json:"accept_threshold"`
	MaxOffset        float64 `yaml:"max_offset" json:"max_offset"`
	MaxFontSizeRatio float64 `yaml:"max_font_size_ratio" json:"max_font_size_ratio"`
}

// Parser configures page parsing.
type Parser struct {
	// Workers is the number of pages parsed at once, 0 for GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`

	// Dedup enables content-addressed XObject identifiers.
	Dedup bool `yaml:"dedup" json:"dedup"`
}

// Log configures the logger built by File.Logger.
type Log struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" json:"level"`

	// Format: text, json
	Format string `yaml:"format" json:"format"`
}

// OCR configures image labeling.
type OCR struct {
	// Language: Tesseract languages joined by "+", e.g. eng+fra
	Language string `yaml:"language" json:"language"`

	// PageSegMode: a mode name such as sparse_text, or its number
	PageSegMode string `yaml:"page_seg_mode" json:"page_seg_mode"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	mc := match.DefaultConfig()
	oo := ocr.DefaultOptions()
	return &File{
		Matcher: Matcher{
			Lookahead:        mc.Lookahead,
			AcceptThreshold:  mc.AcceptThreshold,
			MaxOffset:        mc.MaxOffset,
			MaxFontSizeRatio: mc.MaxFontSizeRatio,
		},
		Log: Log{Level: "info", Format: "text"},
		OCR: OCR{
			Language:    oo.Language,
			PageSegMode: oo.PageSegMode.String(),
		},
	}
}

// Load reads and validates a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration data. Environment variables
// are expanded before decoding.
func Parse(data []byte) (*File, error) {
	f := Default()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Save writes a configuration file.
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandEnv expands ${VAR} and $VAR. Unset variables expand to the empty
// string, which YAML reads as null.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := f.MatchConfig().Validate(); err != nil {
		return fmt.Errorf("invalid matcher config: %w", err)
	}
	if f.Parser.Workers < 0 {
		return fmt.Errorf("parser workers must be non-negative")
	}
	if _, err := f.Level(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	switch strings.ToLower(f.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log config: unknown format %q", f.Log.Format)
	}
	if _, err := f.OCROptions(); err != nil {
		return fmt.Errorf("invalid ocr config: %w", err)
	}
	return nil
}

// MatchConfig converts the matcher section.
func (f *File) MatchConfig() match.Config {
	return match.Config{
		Lookahead:        f.Matcher.Lookahead,
		AcceptThreshold:  f.Matcher.AcceptThreshold,
		MaxOffset:        f.Matcher.MaxOffset,
		MaxFontSizeRatio: f.Matcher.MaxFontSizeRatio,
	}
}

// OCROptions converts the ocr section. An empty mode is sparse_text.
func (f *File) OCROptions() (ocr.Options, error) {
	opts := ocr.DefaultOptions()
	opts.Language = f.OCR.Language
	if f.OCR.PageSegMode != "" {
		mode, err := ocr.ParsePageSegMode(f.OCR.PageSegMode)
		if err != nil {
			return ocr.Options{}, err
		}
		opts.PageSegMode = mode
	}
	return opts, nil
}

// Level parses the log level. An empty level is info.
func (f *File) Level() (slog.Level, error) {
	var level slog.Level
	if f.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(f.Log.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// Logger builds a logger writing to w in the configured format and level.
func (f *File) Logger(w io.Writer) *slog.Logger {
	level, err := f.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(f.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Apply sets the configured matcher and parser options on an Analyzer.
func (f *File) Apply(a *pagesect.Analyzer) *pagesect.Analyzer {
	a = a.WithConfig(f.MatchConfig()).Workers(f.Parser.Workers)
	if f.Parser.Dedup {
		a = a.Dedup()
	}
	return a
}
