package skyplane

import "math"

const (
	// Margin between the outer ring and the canvas edge.
	Margin = 20

	rings      = 4
	spokeStep  = 45
	gridWidth  = 1
	outerWidth = 2

	positionRadius = 5
	setpointRadius = 8
	setpointWidth  = 2

	// The wind glyph sits in the margin: tip just outside the outer ring,
	// base further out.
	windTipOffset  = 4
	windBaseOffset = 16
	windHalfWidth  = 6
)

// Frame is everything one redraw needs.
type Frame struct {
	AzPos, ElPos           float64
	AzSetpoint, ElSetpoint float64
	WindBearing            float64
	WindValid              bool
}

// Renderer draws the skyplane onto a canvas. Every Draw starts from a
// cleared canvas.
type Renderer struct {
	canvas Canvas
	proj   Projection
}

// NewRenderer derives the projection from the canvas size once.
func NewRenderer(canvas Canvas) *Renderer {
	return NewRendererWithMargin(canvas, Margin)
}

// NewRendererWithMargin is NewRenderer for canvases too small for the
// default margin, such as a terminal.
func NewRendererWithMargin(canvas Canvas, margin float64) *Renderer {
	w, h := canvas.Size()
	return &Renderer{canvas: canvas, proj: NewProjection(w, h, margin)}
}

func (r *Renderer) Projection() Projection {
	return r.proj
}

func (r *Renderer) Canvas() Canvas {
	return r.canvas
}

// Draw redraws everything. The order matters: markers cover the grid and
// the wind glyph covers both.
func (r *Renderer) Draw(f Frame) {
	r.DrawGrid()
	r.DrawPositions(f.AzPos, f.ElPos, f.AzSetpoint, f.ElSetpoint)
	r.DrawWindIndicator(f.WindBearing, f.WindValid)
}

func (r *Renderer) DrawGrid() {
	c, p := r.canvas, r.proj
	c.Clear()

	for k := rings; k >= 0; k-- {
		color, width := Gray, float64(gridWidth)
		if k == rings {
			color, width = Black, outerWidth
		}
		c.StrokeCircle(p.Center, p.Radius*float64(k)/rings, color, width)
	}

	for az := 0; az < 360; az += spokeStep {
		c.Line(p.Center, p.Polar(float64(az), p.Radius), Gray, gridWidth)
	}

	cx, cy, rad := p.Center.X, p.Center.Y, p.Radius
	for _, l := range []struct {
		text string
		at   Point
	}{
		{"N", Point{cx, cy - rad - 10}},
		{"E", Point{cx + rad + 10, cy + 5}},
		{"S", Point{cx, cy + rad + 20}},
		{"W", Point{cx - rad - 10, cy + 5}},
	} {
		c.Text(l.at, l.text, Black)
	}
}

// DrawPositions marks the current position with a solid disc and the
// setpoint with a larger hollow ring, so both stay visible when they
// coincide.
func (r *Renderer) DrawPositions(az, el, setpointAz, setpointEl float64) {
	if pt := r.proj.Project(az, el); pt.Finite() {
		r.canvas.FillCircle(pt, positionRadius, Red)
	}
	if pt := r.proj.Project(setpointAz, setpointEl); pt.Finite() {
		r.canvas.StrokeCircle(pt, setpointRadius, Blue, setpointWidth)
	}
}

// DrawWindIndicator draws a triangle outside the outer ring on the side the
// wind is coming from, pointing at the center.
func (r *Renderer) DrawWindIndicator(bearing float64, valid bool) {
	if !valid || math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return
	}
	bearing = normalizeBearing(bearing)
	p := r.proj
	tip := p.Polar(bearing, p.Radius+windTipOffset)
	base := p.Polar(bearing, p.Radius+windBaseOffset)
	theta := deg2rad(bearing) + rotation
	nx, ny := -math.Sin(theta)*windHalfWidth, math.Cos(theta)*windHalfWidth
	r.canvas.FillPolygon([]Point{
		tip,
		{base.X + nx, base.Y + ny},
		{base.X - nx, base.Y - ny},
	}, Teal)
}
