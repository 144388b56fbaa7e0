// Package export renders a page with its effective site settings to a
// standalone HTML document, and prints that document to PDF.
package export

import (
	"errors"

	"storefront/cms/internal/content"
	"storefront/cms/internal/presets"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatHTML:
		return FormatHTML, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrUnsupportedFormat
}

// Page is everything needed to render one page. Content must already have
// its section references expanded; unexpanded references render as
// placeholders.
type Page struct {
	Title           string
	Slug            string
	MetaTitle       string
	MetaDescription string
	OGTitle         string
	OGDescription   string
	Content         content.Document
	Settings        presets.Settings
	Preview         bool
}

type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates no Chromium binary is available.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
