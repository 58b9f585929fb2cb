package pdf

import (
	"errors"
	"fmt"
)

// LayoutError reports a failure reading page geometry or payloads.
type LayoutError struct {
	Library string `json:"library"`
	Op      string `json:"operation"`
	Page    int    `json:"page,omitempty"`
	Err     error  `json:"error"`
}

func (e *LayoutError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("PDF %s error in %s on page %d: %v", e.Library, e.Op, e.Page, e.Err)
	}
	return fmt.Sprintf("PDF %s error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *LayoutError) Unwrap() error {
	return e.Err
}

const (
	libLedongthuc = "ledongthuc"
	libPDFCPU     = "pdfcpu"
)

// Common error variables
var (
	ErrDocumentClosed = errors.New("document is closed")
	ErrInvalidPage    = errors.New("invalid page number")
	ErrNoMediaBox     = errors.New("no valid MediaBox found")
)

// recoverPanic converts a parser panic into an error stored in *err.
func recoverPanic(op string, page int, err *error) {
	if r := recover(); r != nil {
		*err = &LayoutError{Library: libLedongthuc, Op: op, Page: page, Err: fmt.Errorf("panic: %v", r)}
	}
}
