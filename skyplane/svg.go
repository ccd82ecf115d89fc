package skyplane

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// SVG is a Canvas that records an SVG document. It is not safe for
// concurrent use; String returns a copy that is.
type SVG struct {
	width, height float64
	font          string
	body          bytes.Buffer
}

func NewSVG(width, height int) *SVG {
	return &SVG{width: float64(width), height: float64(height), font: "16px Arial"}
}

func (s *SVG) Size() (float64, float64) {
	return s.width, s.height
}

func (s *SVG) Clear() {
	s.body.Reset()
}

func (s *SVG) StrokeCircle(c Point, r float64, color Color, width float64) {
	fmt.Fprintf(&s.body, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="%s" stroke-width="%g"/>`+"\n",
		c.X, c.Y, r, color, width)
}

func (s *SVG) FillCircle(c Point, r float64, color Color) {
	fmt.Fprintf(&s.body, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`+"\n", c.X, c.Y, r, color)
}

func (s *SVG) Line(a, b Point, color Color, width float64) {
	fmt.Fprintf(&s.body, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%g"/>`+"\n",
		a.X, a.Y, b.X, b.Y, color, width)
}

func (s *SVG) FillPolygon(pts []Point, color Color) {
	coords := make([]string, len(pts))
	for i, p := range pts {
		coords[i] = fmt.Sprintf("%.2f,%.2f", p.X, p.Y)
	}
	fmt.Fprintf(&s.body, `<polygon points="%s" fill="%s"/>`+"\n", strings.Join(coords, " "), color)
}

func (s *SVG) Text(at Point, text string, color Color) {
	fmt.Fprintf(&s.body, `<text x="%.2f" y="%.2f" text-anchor="middle" style="font:%s" fill="%s">`,
		at.X, at.Y, s.font, color)
	xml.EscapeText(&s.body, []byte(text))
	s.body.WriteString("</text>\n")
}

// String returns the complete document.
func (s *SVG) String() string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n%s</svg>\n",
		s.width, s.height, s.width, s.height, s.body.String())
}
