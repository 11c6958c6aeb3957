// Package printing renders voucher HTML into PDF documents through a
// headless browser.
package printing

import (
	"context"
	"strings"
	"time"
)

// PaperSize selects the output page dimensions.
type PaperSize string

const (
	PaperA4     PaperSize = "A4"
	PaperLetter PaperSize = "LETTER"
	PaperLegal  PaperSize = "LEGAL"
)

// IsValid reports whether the size is one of the supported formats.
func (p PaperSize) IsValid() bool {
	return p == PaperA4 || p == PaperLetter || p == PaperLegal
}

// Dimensions returns the page width and height in millimeters.
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperLetter:
		return 215.9, 279.4
	case PaperLegal:
		return 215.9, 355.6
	}
	return 210, 297
}

// Orientation selects portrait or landscape output.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Margins holds the page margins in millimeters.
type Margins struct {
	Top    float64
	Right  float64
	Bottom float64
	Left   float64
}

// DefaultMargins returns the margin set used by vouchers.
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 12, Bottom: 12, Left: 12}
}

// RenderRequest describes one HTML-to-PDF conversion. Timeout, when set,
// overrides the renderer's default.
type RenderRequest struct {
	HTML        string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	Title       string
	Timeout     time.Duration
}

func (req *RenderRequest) validate() error {
	if req == nil {
		return NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return NewRenderError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if !req.PaperSize.IsValid() {
		return NewRenderError(ErrCodeInvalidPaperSize, "invalid paper size: "+string(req.PaperSize), nil)
	}
	return nil
}

// RenderResult is the output of a successful conversion.
type RenderResult struct {
	PDFData        []byte
	RenderDuration time.Duration
}

// PDFRenderer converts HTML content into PDF documents.
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// Rendering failure codes.
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
)

// RenderError carries a failure code alongside the underlying cause.
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

// NewRenderError builds a RenderError. cause may be nil.
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
