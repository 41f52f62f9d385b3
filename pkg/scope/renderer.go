package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/tensile/pkg/companion"
)

var (
	gridColor    = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	currentColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	peakColor    = color.RGBA{R: 100, G: 200, B: 255, A: 255}
	zeroColor    = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 20
	marginBottom = 40
)

type scopeRenderer struct {
	scope *ScopeWidget

	bg       *canvas.Rectangle
	objects  []fyne.CanvasObject
	lastSize fyne.Size
}

func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	records := r.scope.display
	b := r.scope.bounds
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.bg}

	x, y := float32(marginLeft), float32(marginTop)
	w := size.Width - marginLeft - marginRight
	h := size.Height - marginTop - marginBottom

	r.drawGrid(b, x, y, w, h)
	r.drawZero(b, x, y, w, h)

	if len(records) > 1 {
		r.drawSeries(records, func(rec companion.Record) float64 { return rec.Peak }, peakColor, 2.5, b, x, y, w, h)
		r.drawSeries(records, func(rec companion.Record) float64 { return rec.Current }, currentColor, 1.5, b, x, y, w, h)
	}
	if len(records) > 0 {
		r.drawPeakLabel(records[len(records)-1].Peak, x, y)
	}
}

func (r *scopeRenderer) drawGrid(b bounds, x, y, w, h float32) {
	const rows, cols = 8, 10

	for i := 0; i < rows+1; i++ {
		ly := y + float32(i)*h/rows
		r.addLine(gridColor, 1, fyne.NewPos(x, ly), fyne.NewPos(x+w, ly))

		v := b.yMax - float64(i)*(b.yMax-b.yMin)/rows
		r.addText(strconv.FormatFloat(v, 'f', 2, 64), fyne.TextAlignTrailing, 10, fyne.NewPos(x-5, ly-6))
	}

	for i := 0; i < cols+1; i++ {
		lx := x + float32(i)*w/cols
		r.addLine(gridColor, 1, fyne.NewPos(lx, y), fyne.NewPos(lx, y+h))

		t := b.xMin + float64(i)*(b.xMax-b.xMin)/cols
		r.addText(formatSeconds(t), fyne.TextAlignCenter, 10, fyne.NewPos(lx-20, y+h+5))
	}
}

func (r *scopeRenderer) drawZero(b bounds, x, y, w, h float32) {
	if b.yMin > 0 || b.yMax < 0 {
		return
	}
	_, zy := b.project(b.xMin, 0, x, y, w, h)
	r.addLine(zeroColor, 1, fyne.NewPos(x, zy), fyne.NewPos(x+w, zy))
}

func (r *scopeRenderer) drawSeries(records []companion.Record, value func(companion.Record) float64, c color.Color, width float32, b bounds, x, y, w, h float32) {
	px, py := b.project(records[0].Timestamp, value(records[0]), x, y, w, h)
	prev := fyne.NewPos(px, py)
	for _, rec := range records[1:] {
		px, py = b.project(rec.Timestamp, value(rec), x, y, w, h)
		next := fyne.NewPos(px, py)
		r.addLine(c, width, prev, next)
		prev = next
	}
}

func (r *scopeRenderer) drawPeakLabel(peak float64, x, y float32) {
	text := "Peak " + r.scope.unit.Format(peak)
	r.addText(text, fyne.TextAlignLeading, 12, fyne.NewPos(x+10, y+10)).Color = peakColor
}

func (r *scopeRenderer) addLine(c color.Color, width float32, p1, p2 fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) addText(s string, align fyne.TextAlign, size float32, pos fyne.Position) *canvas.Text {
	text := canvas.NewText(s, labelColor)
	text.TextSize = size
	text.Alignment = align
	text.Move(pos)
	r.objects = append(r.objects, text)
	return text
}

func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *scopeRenderer) Destroy() {}

func formatSeconds(s float64) string {
	if s < 1 && s > -1 {
		return strconv.FormatFloat(s, 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(s, 'f', 1, 64) + "s"
}
