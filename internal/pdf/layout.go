package pdf

import (
	"fmt"
	"log"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-exam-reader/internal/exam/segment"
)

// LayoutReader opens exam PDFs as positioned page content.
type LayoutReader struct {
	validator *Validator
	debug     bool
}

// NewLayoutReader creates a layout reader with the specified constraints
func NewLayoutReader(maxFileSize int64, debug bool) *LayoutReader {
	return &LayoutReader{
		validator: NewValidator(maxFileSize),
		debug:     debug,
	}
}

// Open validates and opens a PDF. Image payloads are loaded up front; a
// failure there leaves the document usable without images.
func (r *LayoutReader) Open(path string) (*LayoutDocument, error) {
	if err := r.validator.validatePDFFile(path); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &LayoutError{
			Library: libLedongthuc,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}

	payloads, err := loadImagePayloads(path)
	if err != nil {
		log.Printf("[Layout] %s: continuing without images: %v", path, err)
		payloads = pagePayloads{}
	}

	return &LayoutDocument{
		path:     path,
		file:     f,
		reader:   reader,
		payloads: payloads,
		debug:    r.debug,
	}, nil
}

// LayoutDocument is an open PDF satisfying segment.Document.
type LayoutDocument struct {
	path     string
	file     *os.File
	reader   *pdf.Reader
	payloads pagePayloads
	debug    bool
	closed   bool
}

var _ segment.Document = (*LayoutDocument)(nil)

// PageCount returns the number of pages in the document
func (d *LayoutDocument) PageCount() int {
	if d.closed {
		return 0
	}
	return d.reader.NumPage()
}

// Page returns one page's lines, bottom edge and placed images. Parser
// panics are returned as errors so the caller can skip the page.
func (d *LayoutDocument) Page(n int) (p segment.Page, err error) {
	if d.closed {
		return segment.Page{}, &LayoutError{Library: libLedongthuc, Op: "page", Page: n, Err: ErrDocumentClosed}
	}
	if n < 1 || n > d.reader.NumPage() {
		return segment.Page{}, &LayoutError{
			Library: libLedongthuc,
			Op:      "page",
			Page:    n,
			Err:     fmt.Errorf("%w: document has %d pages", ErrInvalidPage, d.reader.NumPage()),
		}
	}
	defer recoverPanic("page", n, &err)

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return segment.Page{}, &LayoutError{Library: libLedongthuc, Op: "page", Page: n, Err: ErrInvalidPage}
	}

	box, boxErr := pageMediaBox(page)
	if boxErr != nil && d.debug {
		log.Printf("[Layout] page %d: %v, using %.0fx%.0f", n, boxErr, box.Width(), box.Height())
	}

	lines := assembleLines(glyphsFromContent(page.Content().Text), box)

	p = segment.Page{Number: n, Lines: lines, Bottom: box.Height()}

	placed, perr := imagePlacements(page, box)
	if perr != nil {
		log.Printf("[Layout] page %d: image placement failed: %v", n, perr)
		return p, nil
	}
	p.Images = attachPayloads(placed, d.payloads[n])
	if d.debug {
		log.Printf("[Layout] page %d: %d lines, %d/%d images with payload",
			n, len(lines), len(p.Images), len(placed))
	}
	return p, nil
}

// Path returns the file the document was opened from.
func (d *LayoutDocument) Path() string {
	return d.path
}

// Close releases the underlying file.
func (d *LayoutDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
