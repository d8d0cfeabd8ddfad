// Package chart renders the rank/peak scatter plot with its regression line
// and encodes it as a bounded PNG data URI.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/hyperifyio/filmstats/internal/analysis"
)

const (
	// Placeholder replaces an encoded image larger than the size ceiling.
	Placeholder = "[IMAGE_BASE64_STRIPPED]"
	// DefaultMaxEncodedBytes is the ceiling on the base64 payload.
	DefaultMaxEncodedBytes = 100_000

	dataURIPrefix = "data:image/png;base64,"
)

var (
	pointColor = color.NRGBA{R: 31, G: 119, B: 180, A: 128}
	lineColor  = color.NRGBA{R: 214, G: 39, B: 40, A: 255}
	gridColor  = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
	axisColor  = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
)

// Renderer draws scatter plots of fixed size.
type Renderer struct {
	Width, Height int
	Title         string
	XLabel        string
	YLabel        string
	// MaxEncodedBytes caps the base64 payload; zero means DefaultMaxEncodedBytes.
	MaxEncodedBytes int
}

// New returns a Renderer with the standard rank/peak labels.
func New(width, height int) Renderer {
	return Renderer{
		Width:  width,
		Height: height,
		Title:  "Rank vs. Peak of Highest-Grossing Films",
		XLabel: "Rank",
		YLabel: "Peak",
	}
}

var _ analysis.Charter = Renderer{}

// DataURI renders xs against ys and returns the PNG as a data URI, or
// Placeholder when the encoding exceeds the ceiling.
func (r Renderer) DataURI(xs, ys []float64) (string, error) {
	b, err := r.PNG(xs, ys)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(b, r.MaxEncodedBytes), nil
}

// EncodeDataURI base64-encodes img. A payload longer than max bytes is
// replaced by Placeholder; max <= 0 uses DefaultMaxEncodedBytes.
func EncodeDataURI(img []byte, max int) string {
	if max <= 0 {
		max = DefaultMaxEncodedBytes
	}
	enc := base64.StdEncoding.EncodeToString(img)
	if len(enc) > max {
		log.Warn().Int("encoded", len(enc)).Int("max", max).Msg("chart payload over ceiling; using placeholder")
		return Placeholder
	}
	return dataURIPrefix + enc
}

// PNG renders and encodes the chart.
func (r Renderer) PNG(xs, ys []float64) ([]byte, error) {
	img, err := r.Render(xs, ys)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
	pointRadius  = 4
	tickCount    = 5
)

type axis struct{ min, max float64 }

func (a axis) span() float64 { return a.max - a.min }

func rangeOf(vs []float64) axis {
	if len(vs) == 0 {
		return axis{0, 1}
	}
	a := axis{math.Inf(1), math.Inf(-1)}
	for _, v := range vs {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	return a
}

func (a axis) padded() axis {
	if a.span() == 0 {
		return axis{a.min - 1, a.max + 1}
	}
	p := a.span() * 0.05
	return axis{a.min - p, a.max + p}
}

// Render draws the chart into a new RGBA image.
func (r Renderer) Render(xs, ys []float64) (*image.RGBA, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("series length mismatch: %d vs %d", len(xs), len(ys))
	}
	w, h := r.Width, r.Height
	if w <= marginLeft+marginRight || h <= marginTop+marginBottom {
		return nil, fmt.Errorf("chart size %dx%d too small", w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	intercept, slope, fit := analysis.LinearFit(xs, ys)
	xa := rangeOf(xs)
	ya := rangeOf(ys)
	if fit {
		for _, x := range []float64{xa.min, xa.max} {
			y := intercept + slope*x
			ya.min = math.Min(ya.min, y)
			ya.max = math.Max(ya.max, y)
		}
	}
	xa, ya = xa.padded(), ya.padded()

	plot := image.Rect(marginLeft, marginTop, w-marginRight, h-marginBottom)
	px := func(x float64) float32 {
		return float32(float64(plot.Min.X) + (x-xa.min)/xa.span()*float64(plot.Dx()))
	}
	py := func(y float64) float32 {
		return float32(float64(plot.Max.Y) - (y-ya.min)/ya.span()*float64(plot.Dy()))
	}

	face := basicfont.Face7x13
	text := &font.Drawer{Dst: img, Src: image.NewUniform(axisColor), Face: face}
	drawText := func(s string, x, y int) {
		text.Dot = fixed.P(x, y)
		text.DrawString(s)
	}
	width := func(s string) int { return text.MeasureString(s).Ceil() }

	for i := 0; i <= tickCount; i++ {
		f := float64(i) / tickCount
		xv := xa.min + f*xa.span()
		yv := ya.min + f*ya.span()
		gx := int(px(xv))
		gy := int(py(yv))
		draw.Draw(img, image.Rect(gx, plot.Min.Y, gx+1, plot.Max.Y), image.NewUniform(gridColor), image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(plot.Min.X, gy, plot.Max.X, gy+1), image.NewUniform(gridColor), image.Point{}, draw.Src)
		xl, yl := tickLabel(xv, xa.span()), tickLabel(yv, ya.span())
		drawText(xl, gx-width(xl)/2, plot.Max.Y+16)
		drawText(yl, plot.Min.X-6-width(yl), gy+4)
	}

	axisSrc := image.NewUniform(axisColor)
	draw.Draw(img, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisSrc, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y), axisSrc, image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	pointSrc := image.NewUniform(pointColor)
	for i := range xs {
		z.Reset(w, h)
		circle(z, px(xs[i]), py(ys[i]), pointRadius)
		z.Draw(img, img.Bounds(), pointSrc, image.Point{})
	}

	if fit {
		lineSrc := image.NewUniform(lineColor)
		z.Reset(w, h)
		dashedLine(z, px(xa.min), py(intercept+slope*xa.min), px(xa.max), py(intercept+slope*xa.max), 2, 8, 5)
		z.Draw(img, img.Bounds(), lineSrc, image.Point{})
	}

	drawText(r.Title, (w-width(r.Title))/2, marginTop/2+4)
	drawText(r.XLabel, plot.Min.X+(plot.Dx()-width(r.XLabel))/2, h-12)
	drawText(r.YLabel, 8, plot.Min.Y-8)
	return img, nil
}

func tickLabel(v, span float64) string {
	prec := 0
	if span < 10 {
		prec = 1
	}
	if span < 1 {
		prec = 2
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func circle(z *vector.Rasterizer, cx, cy, rad float32) {
	const segments = 16
	z.MoveTo(cx+rad, cy)
	for i := 1; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		z.LineTo(cx+rad*float32(math.Cos(a)), cy+rad*float32(math.Sin(a)))
	}
	z.ClosePath()
}

// dashedLine adds dash quads of the given thickness along (x0,y0)-(x1,y1).
func dashedLine(z *vector.Rasterizer, x0, y0, x1, y1, thick, dash, gap float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	ux, uy := dx/length, dy/length
	nx, ny := -uy*thick/2, ux*thick/2
	for s := float32(0); s < length; s += dash + gap {
		e := s + dash
		if e > length {
			e = length
		}
		ax, ay := x0+ux*s, y0+uy*s
		bx, by := x0+ux*e, y0+uy*e
		z.MoveTo(ax+nx, ay+ny)
		z.LineTo(bx+nx, by+ny)
		z.LineTo(bx-nx, by-ny)
		z.LineTo(ax-nx, ay-ny)
		z.ClosePath()
	}
}
