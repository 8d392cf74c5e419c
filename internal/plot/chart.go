// Package plot renders PM2.5 charts as PNG images.
package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"sort"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/aramyan/yerevanair/internal/models"
)

const (
	chartWidth  = 900
	chartHeight = 480

	marginLeft   = 60
	marginRight  = 20
	marginTop    = 40
	marginBottom = 40
)

var (
	bgColor     = color.RGBA{250, 250, 250, 255}
	axisColor   = color.RGBA{60, 60, 60, 255}
	gridColor   = color.RGBA{220, 220, 220, 255}
	seriesColor = color.RGBA{30, 90, 180, 255}
	textColor   = color.RGBA{40, 40, 40, 255}
	barColor    = color.RGBA{240, 128, 100, 255}
)

// guidelines are the WHO reference lines drawn on every time series.
var guidelines = []struct {
	value float64
	label string
	col   color.RGBA
}{
	{5, "WHO Guideline (5)", color.RGBA{40, 160, 60, 255}},
	{15, "WHO Target (15)", color.RGBA{230, 150, 30, 255}},
	{25, "WHO Interim (25)", color.RGBA{200, 50, 50, 255}},
}

// RenderDailySeries draws the per-day PM2.5 average as a line chart
// with the WHO reference lines.
func RenderDailySeries(title string, summaries []models.DailySummary) ([]byte, error) {
	if len(summaries) == 0 {
		return nil, errors.New("plot: no data points")
	}

	values := make([]float64, len(summaries))
	for i, s := range summaries {
		values[i] = s.PM25Avg
	}

	img := newCanvas()
	maxY := ceilTo(maxOf(values, 30), 10)

	drawFrame(img, title, maxY)
	for _, g := range guidelines {
		if g.value >= maxY {
			continue
		}
		y := yFor(g.value, maxY)
		drawDashedHLine(img, marginLeft, chartWidth-marginRight, y, g.col)
		drawLabel(img, g.label, chartWidth-marginRight-7*len(g.label), y-4, g.col)
	}

	plotW := chartWidth - marginLeft - marginRight
	for i := 1; i < len(values); i++ {
		x0 := marginLeft + (i-1)*plotW/max(len(values)-1, 1)
		x1 := marginLeft + i*plotW/max(len(values)-1, 1)
		drawLine(img, x0, yFor(values[i-1], maxY), x1, yFor(values[i], maxY), seriesColor)
	}

	first := summaries[0].Date.Format("2006-01-02")
	last := summaries[len(summaries)-1].Date.Format("2006-01-02")
	drawLabel(img, first, marginLeft, chartHeight-marginBottom+16, textColor)
	drawLabel(img, last, chartWidth-marginRight-7*len(last), chartHeight-marginBottom+16, textColor)

	return encode(img)
}

// DistrictMean is one bar of the district comparison chart.
type DistrictMean struct {
	District string
	PM25Mean float64
}

// RenderDistrictBars draws a horizontal bar per district, most
// polluted first, with the WHO annual guideline marked.
func RenderDistrictBars(title string, means []DistrictMean) ([]byte, error) {
	if len(means) == 0 {
		return nil, errors.New("plot: no districts")
	}

	sorted := append([]DistrictMean(nil), means...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PM25Mean > sorted[j].PM25Mean })
	if len(sorted) > 8 {
		sorted = sorted[:8]
	}

	img := newCanvas()
	var maxVal float64
	for _, m := range sorted {
		maxVal = math.Max(maxVal, m.PM25Mean)
	}
	maxX := ceilTo(math.Max(maxVal, 10), 10)

	drawLabel(img, title, marginLeft, marginTop-16, textColor)

	plotW := chartWidth - marginLeft - marginRight - 100
	plotH := chartHeight - marginTop - marginBottom
	barSlot := plotH / len(sorted)
	barH := barSlot * 2 / 3

	for i, m := range sorted {
		y := marginTop + i*barSlot
		w := int(m.PM25Mean / maxX * float64(plotW))
		fillRect(img, marginLeft+100, y, w, barH, barColor)
		drawLabel(img, m.District, marginLeft, y+barH/2+4, textColor)
		drawLabel(img, fmt.Sprintf("%.1f", m.PM25Mean), marginLeft+104+w, y+barH/2+4, textColor)
	}

	// WHO annual guideline marker.
	gx := marginLeft + 100 + int(5.0/maxX*float64(plotW))
	drawDashedVLine(img, gx, marginTop, chartHeight-marginBottom, guidelines[0].col)
	drawLabel(img, "WHO (5)", gx+4, chartHeight-marginBottom-4, guidelines[0].col)

	return encode(img)
}

// RenderHistogram draws the distribution of raw PM2.5 readings in
// fixed-width bins, with the WHO reference lines where they fall.
func RenderHistogram(title string, values []float64, binWidth float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, errors.New("plot: no readings")
	}
	if binWidth <= 0 {
		binWidth = 5
	}

	maxV := maxOf(values, binWidth)
	bins := make([]int, int(math.Ceil(maxV/binWidth))+1)
	for _, v := range values {
		if v < 0 {
			continue
		}
		bins[int(v/binWidth)]++
	}

	peak := 0
	for _, n := range bins {
		if n > peak {
			peak = n
		}
	}
	maxY := ceilTo(maxOf([]float64{float64(peak)}, 4), 4)

	img := newCanvas()
	drawFrame(img, title, maxY)

	plotW := chartWidth - marginLeft - marginRight
	slot := plotW / len(bins)
	for i, n := range bins {
		if n == 0 {
			continue
		}
		x := marginLeft + i*slot
		y := yFor(float64(n), maxY)
		fillRect(img, x+1, y, max(slot-2, 1), chartHeight-marginBottom-y, barColor)
	}

	for _, g := range guidelines {
		if g.value >= maxV+binWidth {
			continue
		}
		gx := marginLeft + int(g.value/(float64(len(bins))*binWidth)*float64(plotW))
		drawDashedVLine(img, gx, marginTop, chartHeight-marginBottom, g.col)
	}

	drawLabel(img, "0", marginLeft, chartHeight-marginBottom+16, textColor)
	edge := fmt.Sprintf("%.0f", float64(len(bins))*binWidth)
	drawLabel(img, edge, chartWidth-marginRight-7*len(edge), chartHeight-marginBottom+16, textColor)

	return encode(img)
}

func newCanvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fillRect(img, 0, 0, chartWidth, chartHeight, bgColor)
	return img
}

func drawFrame(img *image.RGBA, title string, maxY float64) {
	drawLabel(img, title, marginLeft, marginTop-16, textColor)

	// Axes.
	drawLine(img, marginLeft, marginTop, marginLeft, chartHeight-marginBottom, axisColor)
	drawLine(img, marginLeft, chartHeight-marginBottom, chartWidth-marginRight, chartHeight-marginBottom, axisColor)

	// Horizontal grid with y labels every quarter.
	for i := 0; i <= 4; i++ {
		v := maxY * float64(i) / 4
		y := yFor(v, maxY)
		if i > 0 {
			drawLine(img, marginLeft, y, chartWidth-marginRight, y, gridColor)
		}
		label := fmt.Sprintf("%.0f", v)
		drawLabel(img, label, marginLeft-8-7*len(label), y+4, textColor)
	}
}

func yFor(v, maxY float64) int {
	plotH := float64(chartHeight - marginTop - marginBottom)
	return chartHeight - marginBottom - int(v/maxY*plotH)
}

func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.SetRGBA(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawDashedHLine(img *image.RGBA, x0, x1, y int, col color.RGBA) {
	for x := x0; x < x1; x++ {
		if (x/4)%2 == 0 {
			img.SetRGBA(x, y, col)
		}
	}
}

func drawDashedVLine(img *image.RGBA, x, y0, y1 int, col color.RGBA) {
	for y := y0; y < y1; y++ {
		if (y/4)%2 == 0 {
			img.SetRGBA(x, y, col)
		}
	}
}

func fillRect(img *image.RGBA, x, y, w, h int, col color.RGBA) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			img.SetRGBA(xx, yy, col)
		}
	}
}

func drawLabel(img *image.RGBA, text string, x, y int, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func encode(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func maxOf(vs []float64, floor float64) float64 {
	m := floor
	for _, v := range vs {
		m = math.Max(m, v)
	}
	return m
}

func ceilTo(v, step float64) float64 {
	return math.Ceil(v/step) * step
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
