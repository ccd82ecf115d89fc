package skyplane

import (
	"math"

	"github.com/gdamore/tcell/v2"
)

// Each terminal cell holds a 2x4 grid of braille dots.
const (
	dotsX = 2
	dotsY = 4
)

var dotBits = [dotsX][dotsY]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

type label struct {
	col, row int
	text     string
	color    Color
}

// Braille is a Canvas rasterized onto braille dots so the skyplane can be
// drawn on a terminal. Pixels are dots; a cell takes the color of the last
// dot drawn into it.
type Braille struct {
	cols, rows int
	dots       []bool
	cellColor  []Color
	labels     []label
}

func NewBraille(cols, rows int) *Braille {
	return &Braille{
		cols:      cols,
		rows:      rows,
		dots:      make([]bool, cols*dotsX*rows*dotsY),
		cellColor: make([]Color, cols*rows),
	}
}

func (b *Braille) Size() (float64, float64) {
	return float64(b.cols * dotsX), float64(b.rows * dotsY)
}

func (b *Braille) Clear() {
	for i := range b.dots {
		b.dots[i] = false
	}
	for i := range b.cellColor {
		b.cellColor[i] = ""
	}
	b.labels = b.labels[:0]
}

func (b *Braille) set(x, y int, c Color) {
	w, h := b.cols*dotsX, b.rows*dotsY
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	b.dots[y*w+x] = true
	b.cellColor[(y/dotsY)*b.cols+x/dotsX] = c
}

func (b *Braille) setPoint(p Point, c Color) {
	b.set(int(math.Round(p.X)), int(math.Round(p.Y)), c)
}

func (b *Braille) StrokeCircle(center Point, r float64, c Color, width float64) {
	if r <= 0 {
		b.setPoint(center, c)
		return
	}
	for w := 0.0; w < math.Max(width, 1); w++ {
		rr := r - w/2
		n := int(2*math.Pi*rr*2) + 16
		for i := 0; i < n; i++ {
			a := 2 * math.Pi * float64(i) / float64(n)
			b.setPoint(Point{center.X + rr*math.Cos(a), center.Y + rr*math.Sin(a)}, c)
		}
	}
}

func (b *Braille) FillCircle(center Point, r float64, c Color) {
	for y := math.Floor(center.Y - r); y <= math.Ceil(center.Y+r); y++ {
		for x := math.Floor(center.X - r); x <= math.Ceil(center.X+r); x++ {
			if math.Hypot(x-center.X, y-center.Y) <= r {
				b.set(int(x), int(y), c)
			}
		}
	}
}

func (b *Braille) Line(from, to Point, c Color, width float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		b.setPoint(from, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		b.setPoint(Point{from.X + dx*t, from.Y + dy*t}, c)
	}
}

// inside is the even-odd rule.
func inside(pts []Point, x, y float64) bool {
	in := false
	for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
		a, b := pts[i], pts[j]
		if (a.Y > y) != (b.Y > y) && x < (b.X-a.X)*(y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

func (b *Braille) FillPolygon(pts []Point, c Color) {
	if len(pts) < 3 {
		return
	}
	minX, minY, maxX, maxY := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for y := math.Floor(minY); y <= math.Ceil(maxY); y++ {
		for x := math.Floor(minX); x <= math.Ceil(maxX); x++ {
			if inside(pts, x, y) {
				b.set(int(x), int(y), c)
			}
		}
	}
	// Thin glyphs can miss every dot center.
	for _, p := range pts {
		b.setPoint(p, c)
	}
}

func (b *Braille) Text(at Point, s string, c Color) {
	n := len([]rune(s))
	col := int(math.Round(at.X/dotsX)) - n/2
	row := int(math.Floor((at.Y - 1) / dotsY))
	b.labels = append(b.labels, label{col: col, row: row, text: s, color: c})
}

// Clone copies the canvas so it can be handed to another goroutine.
func (b *Braille) Clone() *Braille {
	n := &Braille{
		cols:      b.cols,
		rows:      b.rows,
		dots:      append([]bool(nil), b.dots...),
		cellColor: append([]Color(nil), b.cellColor...),
		labels:    append([]label(nil), b.labels...),
	}
	return n
}

// Cell returns the rune and color of a cell; blank cells are ' '.
func (b *Braille) Cell(col, row int) (rune, Color) {
	w := b.cols * dotsX
	var r rune
	for dx := 0; dx < dotsX; dx++ {
		for dy := 0; dy < dotsY; dy++ {
			if b.dots[(row*dotsY+dy)*w+col*dotsX+dx] {
				r |= dotBits[dx][dy]
			}
		}
	}
	if r == 0 {
		return ' ', ""
	}
	return 0x2800 + r, b.cellColor[row*b.cols+col]
}

func style(c Color) tcell.Style {
	if c == "" {
		return tcell.StyleDefault
	}
	return tcell.StyleDefault.Foreground(tcell.GetColor(string(c)))
}

// DrawScreen paints the canvas with its top-left cell at (x, y), clipped to
// width x height cells.
func (b *Braille) DrawScreen(screen tcell.Screen, x, y, width, height int) {
	for row := 0; row < b.rows && row < height; row++ {
		for col := 0; col < b.cols && col < width; col++ {
			r, c := b.Cell(col, row)
			screen.SetContent(x+col, y+row, r, nil, style(c))
		}
	}
	for _, l := range b.labels {
		for i, r := range []rune(l.text) {
			col := l.col + i
			if col < 0 || col >= b.cols || col >= width || l.row < 0 || l.row >= b.rows || l.row >= height {
				continue
			}
			screen.SetContent(x+col, y+l.row, r, nil, style(l.color))
		}
	}
}
