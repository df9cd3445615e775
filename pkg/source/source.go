// Package source acquires transcript text from files, stdin or uploaded
// bytes. Plain-text exports are used as-is; PDF exports have their pages
// extracted in order and joined with newlines.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cperrors "github.com/otherjamesbrown/chatpulse/pkg/errors"
	"github.com/otherjamesbrown/chatpulse/pkg/logging"
)

// DefaultMaxBytes is the input size limit used when none is configured.
const DefaultMaxBytes int64 = 32 << 20

// StdinName is the path that selects standard input.
const StdinName = "-"

// Format identifies how a transcript is encoded.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
)

var pdfMagic = []byte("%PDF-")

// Document is the text blob handed to the analyzer.
type Document struct {
	Name   string `json:"name"`
	Format Format `json:"format"`
	Text   string `json:"-"`
	Bytes  int    `json:"bytes"`
	Pages  int    `json:"pages,omitempty"`
}

// PageExtractor returns the text of each page of a PDF in page order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Loader reads transcripts with a size limit.
type Loader struct {
	maxBytes int64
	pdf      PageExtractor
	stdin    io.Reader
	logger   logging.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxBytes sets the input size limit. Values <= 0 keep the default.
func WithMaxBytes(n int64) Option {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithPDFExtractor replaces the PDF page extractor.
func WithPDFExtractor(p PageExtractor) Option {
	return func(l *Loader) {
		l.pdf = p
	}
}

// WithStdin replaces the reader used for "-".
func WithStdin(r io.Reader) Option {
	return func(l *Loader) {
		l.stdin = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger.With(logging.F("component", "source"))
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		maxBytes: DefaultMaxBytes,
		pdf:      NewPDFExtractor(),
		stdin:    os.Stdin,
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxBytes returns the configured size limit.
func (l *Loader) MaxBytes() int64 {
	return l.maxBytes
}

// DetectFormat picks a format from the file extension. Files without an
// extension are read as text.
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".text", "":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%q files: %w", ext, cperrors.ErrUnsupportedFormat)
	}
}

// Load reads the transcript at path, or stdin when path is "-".
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	if path == StdinName {
		return l.Read(ctx, l.stdin, "stdin", "")
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, cperrors.ClassifyError(err, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, cperrors.ClassifyError(fmt.Errorf("open transcript: %w", err), path)
	}
	defer f.Close()

	return l.Read(ctx, f, path, format)
}

// Read reads a transcript from r. An empty format is sniffed from the data.
func (l *Loader) Read(ctx context.Context, r io.Reader, name string, format Format) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, cperrors.ClassifyError(fmt.Errorf("read transcript: %w", err), name)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, cperrors.ClassifyError(
			fmt.Errorf("more than %d bytes: %w", l.maxBytes, cperrors.ErrContentTooLarge), name)
	}
	return l.Decode(ctx, data, name, format)
}

// Decode turns raw bytes into a Document.
func (l *Loader) Decode(ctx context.Context, data []byte, name string, format Format) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, cperrors.ClassifyError(err, name)
	}
	if format == "" {
		format = FormatText
		if bytes.HasPrefix(data, pdfMagic) {
			format = FormatPDF
		}
	}

	doc := &Document{Name: name, Format: format, Bytes: len(data)}
	switch format {
	case FormatPDF:
		pages, err := l.pdf.ExtractPages(ctx, data)
		if err != nil {
			return nil, cperrors.ClassifyError(fmt.Errorf("extract pdf text: %w", err), name)
		}
		doc.Pages = len(pages)
		doc.Text = strings.Join(pages, "\n")
	case FormatText:
		doc.Text = strings.TrimPrefix(string(data), "\uFEFF")
	default:
		return nil, cperrors.ClassifyError(
			fmt.Errorf("format %q: %w", format, cperrors.ErrUnsupportedFormat), name)
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, cperrors.ClassifyError(fmt.Errorf("no text: %w", cperrors.ErrEmptyContent), name)
	}

	l.logger.Debug("Loaded transcript",
		logging.F("name", name),
		logging.F("format", string(format)),
		logging.F("bytes", len(data)),
		logging.F("pages", doc.Pages))
	return doc, nil
}
