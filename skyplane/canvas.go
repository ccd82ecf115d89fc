package skyplane

// Color is a CSS color name or #rrggbb value.
type Color string

const (
	Black Color = "black"
	Gray  Color = "gray"
	Red   Color = "red"
	Blue  Color = "blue"
	Teal  Color = "#008b8b"
)

// Canvas is a 2D drawing surface. Later draws occlude earlier ones.
type Canvas interface {
	// Size returns the canvas dimensions in pixels.
	Size() (width, height float64)
	Clear()
	StrokeCircle(center Point, r float64, c Color, width float64)
	FillCircle(center Point, r float64, c Color)
	Line(a, b Point, c Color, width float64)
	FillPolygon(pts []Point, c Color)
	// Text draws s horizontally centered on at, with at as the baseline.
	Text(at Point, s string, c Color)
}
