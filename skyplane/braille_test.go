package skyplane

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestBrailleDots(t *testing.T) {
	b := NewBraille(2, 1)
	if w, h := b.Size(); w != 4 || h != 4 {
		t.Fatalf("Size() = %v, %v, want 4, 4", w, h)
	}
	b.Line(Point{0, 0}, Point{0, 3}, Red, 1)
	r, c := b.Cell(0, 0)
	if want := rune(0x2800 | 0x01 | 0x02 | 0x04 | 0x40); r != want || c != Red {
		t.Errorf("Cell(0, 0) = %U %q, want %U red", r, c, want)
	}
	if r, _ := b.Cell(1, 0); r != ' ' {
		t.Errorf("Cell(1, 0) = %U, want blank", r)
	}

	// The last color drawn into a cell wins.
	b.FillCircle(Point{0, 0}, 0.5, Blue)
	if _, c := b.Cell(0, 0); c != Blue {
		t.Errorf("Cell(0, 0) color = %q, want blue", c)
	}

	b.Clear()
	if r, _ := b.Cell(0, 0); r != ' ' {
		t.Errorf("Cell(0, 0) after Clear = %U, want blank", r)
	}
}

func TestBrailleCloneIsIndependent(t *testing.T) {
	b := NewBraille(4, 4)
	b.FillPolygon([]Point{{0, 0}, {7, 0}, {0, 15}}, Teal)
	c := b.Clone()
	b.Clear()
	if r, _ := c.Cell(0, 0); r == ' ' {
		t.Errorf("clone lost its dots after the source was cleared")
	}
}

func TestBrailleDrawScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(40, 20)

	b := NewBraille(30, 15)
	NewRenderer(b).DrawGrid()
	b.DrawScreen(screen, 0, 0, 40, 20)

	// N is centered above the disc.
	cx := 30 * dotsX / 2 / dotsX
	found := false
	for row := 0; row < 3; row++ {
		for col := cx - 1; col <= cx+1; col++ {
			if r, _, _, _ := screen.GetContent(col, row); r == 'N' {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("N label not drawn near the top center")
	}
}
