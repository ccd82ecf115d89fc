package skyplane

import (
	"math"

	"github.com/w1xm/dish_interface/rotator"
)

// Point is a position on the canvas, in pixels.
type Point struct {
	X, Y float64
}

func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// rotation puts 0° azimuth at the top of the disc.
const rotation = -90 * math.Pi / 180

// Projection maps azimuth/elevation onto a disc. It is fixed at startup.
type Projection struct {
	Center Point
	Radius float64
}

// NewProjection centers the disc on a width x height canvas, leaving margin
// pixels between the outer ring and the nearest canvas edge.
func NewProjection(width, height, margin float64) Projection {
	cx, cy := width/2, height/2
	r := math.Min(cx, cy) - margin
	if r < 0 {
		r = 0
	}
	return Projection{Center: Point{cx, cy}, Radius: r}
}

func deg2rad(x float64) float64 {
	return x * math.Pi / 180
}

// Project returns the canvas point for az/el in degrees. Zenith maps to the
// center, the horizon to the outer ring; nothing lands outside the ring.
func (p Projection) Project(az, el float64) Point {
	if el >= rotator.WrapElevation {
		el = 0
	}
	theta := deg2rad(az) + rotation
	frac := 1 - el/90
	cos, sin := math.Cos(theta), math.Sin(theta)
	dx, dy := p.Radius*frac*cos, p.Radius*frac*sin
	if d := math.Hypot(dx, dy); d > p.Radius {
		if math.IsInf(d, 0) {
			// Scaling an infinite offset gives NaN; go straight to the ring
			// along the same direction.
			s := p.Radius
			if frac < 0 {
				s = -s
			}
			dx, dy = s*cos, s*sin
		} else {
			scale := p.Radius / d
			dx, dy = dx*scale, dy*scale
		}
	}
	return Point{p.Center.X + dx, p.Center.Y + dy}
}

// Polar returns the canvas point at distance r from the center along the
// (rotated) bearing. Used for glyphs outside the disc.
func (p Projection) Polar(bearing, r float64) Point {
	theta := deg2rad(bearing) + rotation
	return Point{p.Center.X + r*math.Cos(theta), p.Center.Y + r*math.Sin(theta)}
}

func normalizeBearing(b float64) float64 {
	b = math.Mod(b, 360)
	if b < 0 {
		b += 360
	}
	return b
}
