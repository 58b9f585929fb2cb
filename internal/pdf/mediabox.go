package pdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// BoundingBox is a page box in PDF user space (bottom-up).
type BoundingBox struct {
	LLX, LLY, URX, URY float64
}

// Width of the box.
func (b BoundingBox) Width() float64 { return b.URX - b.LLX }

// Height of the box.
func (b BoundingBox) Height() float64 { return b.URY - b.LLY }

// ToTop converts a user-space y into a top-down offset from the box's top edge.
func (b BoundingBox) ToTop(y float64) float64 { return b.URY - y }

// letterBox is used when a page carries no usable MediaBox.
var letterBox = BoundingBox{LLX: 0, LLY: 0, URX: 612, URY: 792}

// pageMediaBox reads the page's MediaBox, walking up the page tree for an
// inherited one, and falls back to US Letter.
func pageMediaBox(page pdf.Page) (box BoundingBox, err error) {
	defer func() {
		if r := recover(); r != nil {
			box, err = letterBox, fmt.Errorf("panic during MediaBox extraction: %v", r)
		}
	}()

	current := page.V
	for i := 0; i < 10 && !current.IsNull(); i++ {
		if raw := current.Key("MediaBox"); !raw.IsNull() {
			if parsed, perr := parseMediaBoxValue(raw); perr == nil {
				return parsed, nil
			}
		}
		current = current.Key("Parent")
	}
	return letterBox, ErrNoMediaBox
}

func parseMediaBoxValue(v pdf.Value) (BoundingBox, error) {
	if v.Kind() != pdf.Array {
		return BoundingBox{}, fmt.Errorf("MediaBox is not an array: %v", v.Kind())
	}
	if v.Len() != 4 {
		return BoundingBox{}, fmt.Errorf("invalid MediaBox array length: %d, expected 4", v.Len())
	}

	var coords [4]float64
	for i := 0; i < 4; i++ {
		c, err := numberValue(v.Index(i))
		if err != nil {
			return BoundingBox{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		coords[i] = c
	}
	return normalizeBox(coords[0], coords[1], coords[2], coords[3])
}

// normalizeBox fixes inverted corners and rejects degenerate boxes.
func normalizeBox(llx, lly, urx, ury float64) (BoundingBox, error) {
	if llx > urx {
		llx, urx = urx, llx
	}
	if lly > ury {
		lly, ury = ury, lly
	}
	if urx <= llx || ury <= lly {
		return BoundingBox{}, fmt.Errorf("invalid MediaBox dimensions: [%.2f %.2f %.2f %.2f]", llx, lly, urx, ury)
	}
	return BoundingBox{LLX: llx, LLY: lly, URX: urx, URY: ury}, nil
}

func numberValue(v pdf.Value) (float64, error) {
	switch v.Kind() {
	case pdf.Integer:
		return float64(v.Int64()), nil
	case pdf.Real:
		return v.Float64(), nil
	case pdf.String:
		return parseFloatValue(v.Text())
	}
	return 0, fmt.Errorf("not a number: %v", v.Kind())
}

// parseFloatValue parses numbers some producers write as strings, with an
// optional trailing f.
func parseFloatValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if trimmed := strings.TrimRight(s, "fF"); trimmed != s {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unable to parse '%s' as float", s)
}
