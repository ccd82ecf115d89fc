package skyplane

import (
	"strings"
	"testing"
)

func TestSVG(t *testing.T) {
	s := NewSVG(400, 300)
	if w, h := s.Size(); w != 400 || h != 300 {
		t.Fatalf("Size() = %v, %v, want 400, 300", w, h)
	}
	r := NewRenderer(s)
	r.Draw(Frame{AzPos: 90, ElPos: 45, AzSetpoint: 0, ElSetpoint: 0, WindBearing: 10, WindValid: true})
	out := s.String()
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">`,
		`<circle cx="200.00" cy="150.00" r="130.00" fill="none" stroke="black" stroke-width="2"/>`,
		`<circle cx="265.00" cy="150.00" r="5.00" fill="red"/>`,
		`<text x="200.00" y="10.00" text-anchor="middle" style="font:16px Arial" fill="black">N</text>`,
		`<polygon points=`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "<circle"); n != 7 {
		t.Errorf("got %d circles, want 7 (5 rings, position, setpoint)", n)
	}

	// Redraw without wind replaces the document body.
	r.Draw(Frame{WindValid: false})
	if strings.Contains(s.String(), "<polygon") {
		t.Errorf("stale wind glyph after redraw")
	}
}

func TestSVGEscapesText(t *testing.T) {
	s := NewSVG(10, 10)
	s.Text(Point{1, 2}, "<&>", Black)
	if !strings.Contains(s.String(), "&lt;&amp;&gt;") {
		t.Errorf("text not escaped: %s", s.String())
	}
}
