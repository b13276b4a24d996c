package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultTitle  = "Attitude Toward Government Intervention Over Time"
	DefaultYLabel = "0 = Pro-Markets, 1 = Pro-Government Intervention"
	DefaultXLabel = "Date"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("report: no data points to plot")

// ChartRenderer draws a daily trend as a PNG line chart.
type ChartRenderer struct {
	Width     float64
	Height    float64
	PadLeft   float64
	PadRight  float64
	PadTop    float64
	PadBottom float64
	FontSize  float64
	TitleSize float64
	// MaxDateLabels caps how many x axis ticks are labelled.
	MaxDateLabels int
	Title         string
	XLabel        string
	YLabel        string
}

// NewChartRenderer creates a renderer with a 1600x900 canvas.
func NewChartRenderer() *ChartRenderer {
	return &ChartRenderer{
		Width:         1600,
		Height:        900,
		PadLeft:       130,
		PadRight:      60,
		PadTop:        100,
		PadBottom:     190,
		FontSize:      18,
		TitleSize:     30,
		MaxDateLabels: 30,
		Title:         DefaultTitle,
		XLabel:        DefaultXLabel,
		YLabel:        DefaultYLabel,
	}
}

// RenderPNG renders points with the default renderer and writes a PNG.
func RenderPNG(points []DailyPoint, path string) error {
	return NewChartRenderer().RenderPNG(points, path)
}

// RenderPNG writes the chart for points to path.
func (r *ChartRenderer) RenderPNG(points []DailyPoint, path string) error {
	img, err := r.Render(points)
	if err != nil {
		return err
	}
	if err := gg.SavePNG(path, img); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}

// Render draws the chart in memory.
func (r *ChartRenderer) Render(points []DailyPoint) (image.Image, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	dc := gg.NewContext(int(r.Width), int(r.Height))
	dc.SetColor(color.White)
	dc.Clear()

	r.drawTitle(dc)
	r.drawGrid(dc)
	r.drawDateAxis(dc, points)
	r.drawSeries(dc, points)
	r.drawAxisLabels(dc)

	return dc.Image(), nil
}

func (r *ChartRenderer) plotWidth() float64  { return r.Width - r.PadLeft - r.PadRight }
func (r *ChartRenderer) plotHeight() float64 { return r.Height - r.PadTop - r.PadBottom }

// xAt maps the i-th of n points onto the plot area.
func (r *ChartRenderer) xAt(points []DailyPoint, i int) float64 {
	if len(points) == 1 {
		return r.PadLeft + r.plotWidth()/2
	}
	first, last := points[0].Date, points[len(points)-1].Date
	span := last.Sub(first).Seconds()
	if span <= 0 {
		return r.PadLeft + r.plotWidth()*float64(i)/float64(len(points)-1)
	}
	return r.PadLeft + r.plotWidth()*points[i].Date.Sub(first).Seconds()/span
}

// yAt maps a mean in [0,1] onto the plot area.
func (r *ChartRenderer) yAt(v float64) float64 {
	return r.PadTop + r.plotHeight()*(1-v)
}

func (r *ChartRenderer) drawTitle(dc *gg.Context) {
	setFont(dc, r.TitleSize, true)
	dc.SetColor(hexColor("#222222"))
	dc.DrawStringAnchored(r.Title, r.Width/2, r.PadTop/2, 0.5, 0.5)
}

func (r *ChartRenderer) drawGrid(dc *gg.Context) {
	setFont(dc, r.FontSize, false)
	dc.SetLineWidth(1)
	for i := 0; i <= 4; i++ {
		v := float64(i) / 4
		y := r.yAt(v)
		dc.SetColor(hexColor("#dddddd"))
		dc.DrawLine(r.PadLeft, y, r.PadLeft+r.plotWidth(), y)
		dc.Stroke()

		dc.SetColor(hexColor("#444444"))
		dc.DrawStringAnchored(fmt.Sprintf("%.2f", v), r.PadLeft-12, y, 1, 0.5)
	}

	dc.SetColor(hexColor("#888888"))
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(r.PadLeft, r.PadTop, r.plotWidth(), r.plotHeight())
	dc.Stroke()
}

func (r *ChartRenderer) drawDateAxis(dc *gg.Context, points []DailyPoint) {
	step := 1
	if r.MaxDateLabels > 0 && len(points) > r.MaxDateLabels {
		step = (len(points) + r.MaxDateLabels - 1) / r.MaxDateLabels
	}

	setFont(dc, r.FontSize-2, false)
	base := r.PadTop + r.plotHeight()
	for i := 0; i < len(points); i += step {
		x := r.xAt(points, i)

		dc.SetColor(hexColor("#eeeeee"))
		dc.SetLineWidth(1)
		dc.DrawLine(x, r.PadTop, x, base)
		dc.Stroke()

		dc.SetColor(hexColor("#444444"))
		dc.Push()
		dc.RotateAbout(gg.Radians(-45), x, base+10)
		dc.DrawStringAnchored(points[i].Date.Format("2006-01-02"), x, base+10, 1, 0.5)
		dc.Pop()
	}
}

func (r *ChartRenderer) drawSeries(dc *gg.Context, points []DailyPoint) {
	dc.SetColor(hexColor("#1f77b4"))
	dc.SetLineWidth(2.5)
	for i := range points {
		x, y := r.xAt(points, i), r.yAt(points[i].Mean)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	for i := range points {
		dc.DrawCircle(r.xAt(points, i), r.yAt(points[i].Mean), 5)
		dc.Fill()
	}
}

func (r *ChartRenderer) drawAxisLabels(dc *gg.Context) {
	setFont(dc, r.FontSize, true)
	dc.SetColor(hexColor("#222222"))
	dc.DrawStringAnchored(r.XLabel, r.PadLeft+r.plotWidth()/2, r.Height-24, 0.5, 0.5)

	cx, cy := 30.0, r.PadTop+r.plotHeight()/2
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), cx, cy)
	dc.DrawStringAnchored(r.YLabel, cx, cy, 0.5, 0.5)
	dc.Pop()
}

var (
	fontsOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
)

// setFont selects the embedded Go font, so rendering needs no system fonts.
func setFont(dc *gg.Context, size float64, isBold bool) {
	fontsOnce.Do(func() {
		regular, _ = truetype.Parse(goregular.TTF)
		bold, _ = truetype.Parse(gobold.TTF)
	})
	f := regular
	if isBold {
		f = bold
	}
	if f == nil {
		return
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: size}))
}

func hexColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	var cr, cg, cb uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &cr, &cg, &cb)
	return color.RGBA{cr, cg, cb, 255}
}
