package pdf

import (
	"math"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-exam-reader/internal/exam"
)

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m × n, i.e. m applied first, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// unitSquare maps the image space unit square through m and returns its
// bounding box in top-down page coordinates.
func (m matrix) unitSquare(box BoundingBox) exam.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := m.apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return exam.Rect{X0: minX, Y0: box.ToTop(maxY), X1: maxX, Y1: box.ToTop(minY)}
}

// placement is where an image XObject was painted.
type placement struct {
	Name string
	Rect exam.Rect
}

// op is a content stream operator with the operands this package cares
// about: numbers for cm, the resource name for Do.
type op struct {
	Name string
	Nums []float64
	Arg  string
}

// graphicsState tracks the CTM across q/Q/cm and records Do invocations.
type graphicsState struct {
	box    BoundingBox
	images map[string]bool
	ctm    matrix
	stack  []matrix
	placed []placement
}

func newGraphicsState(box BoundingBox, images map[string]bool) *graphicsState {
	return &graphicsState{box: box, images: images, ctm: identity}
}

func (g *graphicsState) handle(o op) {
	switch o.Name {
	case "q":
		g.stack = append(g.stack, g.ctm)
	case "Q":
		if n := len(g.stack); n > 0 {
			g.ctm = g.stack[n-1]
			g.stack = g.stack[:n-1]
		}
	case "cm":
		if len(o.Nums) != 6 {
			return
		}
		var m matrix
		copy(m[:], o.Nums)
		g.ctm = m.mul(g.ctm)
	case "Do":
		if !g.images[o.Arg] {
			return
		}
		g.placed = append(g.placed, placement{Name: o.Arg, Rect: g.ctm.unitSquare(g.box)})
	}
}

// imagePlacements interprets the page content streams and returns where each
// image XObject was drawn, in paint order. Form XObjects are not descended.
func imagePlacements(page pdf.Page, box BoundingBox) (placed []placement, err error) {
	defer recoverPanic("image_placement", 0, &err)

	images := imageResourceNames(page)
	if len(images) == 0 {
		return nil, nil
	}

	state := newGraphicsState(box, images)
	interpret := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, name string) {
			args := popAll(stk)
			o := op{Name: name}
			switch name {
			case "cm":
				for _, a := range args {
					o.Nums = append(o.Nums, a.Float64())
				}
			case "Do":
				if len(args) == 1 {
					o.Arg = args[0].Name()
				}
			}
			state.handle(o)
		})
	}

	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Array {
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	} else {
		interpret(contents)
	}
	return state.placed, nil
}

func popAll(stk *pdf.Stack) []pdf.Value {
	n := stk.Len()
	out := make([]pdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = stk.Pop()
	}
	return out
}

// imageResourceNames lists the page's XObject resources whose subtype is Image.
func imageResourceNames(page pdf.Page) map[string]bool {
	names := map[string]bool{}
	xobjects := page.Resources().Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return names
	}
	for _, key := range xobjects.Keys() {
		if xobjects.Key(key).Key("Subtype").Name() == "Image" {
			names[key] = true
		}
	}
	return names
}
