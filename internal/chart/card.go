// Package chart renders star histories as chart cards.
package chart

import (
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/naka-gawa/gitgraph/internal/domain"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// samplesPerSegment is how many interpolated points are drawn between two data points.
const samplesPerSegment = 12

const (
	headerHeight = vg.Length(72)
	padding      = vg.Length(20)
	logoSize     = vg.Length(32)
)

var (
	textColor   = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
	mutedColor  = color.RGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
	borderColor = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	gridColor   = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0x4d}
	logoColor   = color.RGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
)

// ImageLoader fetches and decodes remote images such as the repository logo.
type ImageLoader interface {
	LoadImage(ctx context.Context, url string) (image.Image, error)
}

// Card is a rendered star history: a header with logo, name and total stars,
// and a line chart of the series. It is the unit that gets exported.
type Card struct {
	data   domain.ChartData
	style  Style
	images ImageLoader
}

func (c *Card) Name() string    { return c.data.Name }
func (c *Card) LogoURL() string { return c.data.LogoURL }

// TotalStars returns the total shown in the header.
func (c *Card) TotalStars() int { return c.data.TotalStars }

// TotalStarsLabel is the header's total, formatted with thousands separators.
func (c *Card) TotalStarsLabel() string { return humanize.Comma(int64(c.data.TotalStars)) }

// PointCount is the number of plotted points.
func (c *Card) PointCount() int { return len(c.data.Data) }

// Points returns the plotted points in plotting order.
func (c *Card) Points() []domain.StarRecord {
	return append([]domain.StarRecord(nil), c.data.Data...)
}

// Nearest returns the point at the nearest x position for a horizontal
// position given as a fraction (0 = left edge, 1 = right edge) of the plot area.
func (c *Card) Nearest(fraction float64) (domain.StarRecord, bool) {
	n := len(c.data.Data)
	if n == 0 || math.IsNaN(fraction) {
		return domain.StarRecord{}, false
	}
	fraction = math.Max(0, math.Min(1, fraction))
	minX, maxX := xRange(n)
	idx := int(math.Round(minX + fraction*(maxX-minX)))
	idx = max(0, min(n-1, idx))
	return c.data.Data[idx], true
}

// Tooltip is the hover text for Nearest.
func (c *Card) Tooltip(fraction float64) string {
	p, ok := c.Nearest(fraction)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s: %s", p.Date, humanize.Comma(int64(p.Stars)))
}

// xRange leaves a little room before the first and after the last category.
func xRange(n int) (float64, float64) {
	if n == 0 {
		return 0, 1
	}
	return -0.2, float64(n-1) + 0.6
}

// Plot builds the line chart of the card.
func (c *Card) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.BackgroundColor = c.style.Background

	labels := c.data.Labels()
	maxStars := 0
	for _, s := range c.data.Stars() {
		maxStars = max(maxStars, s)
	}

	p.X.Min, p.X.Max = xRange(len(labels))
	p.X.Tick.Marker = categoryTicks{labels: labels, max: c.style.MaxXTicks}
	p.Y.Min = 0
	p.Y.Max = math.Max(1, float64(maxStars)*1.05)
	p.Y.Tick.Marker = starTicks{}
	for _, axis := range []*plot.Axis{&p.X, &p.Y} {
		axis.LineStyle.Width = 0
		axis.Tick.LineStyle.Width = 0
		axis.Tick.Length = 0
		axis.Tick.Label.Color = mutedColor
		axis.Tick.Label.Font.Size = vg.Points(9)
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	grid.Horizontal.Color = gridColor
	p.Add(grid)

	if len(c.data.Data) == 0 {
		return p, nil
	}
	line, err := plotter.NewLine(smooth(c.data.Stars()))
	if err != nil {
		return nil, fmt.Errorf("failed to create new line for %s: %w", c.data.Name, err)
	}
	line.LineStyle.Color = c.style.LineColor
	line.LineStyle.Width = c.style.LineWidth
	p.Add(line)
	return p, nil
}

// smooth interpolates the series with a natural cubic spline over evenly spaced x positions.
// Series of fewer than three points are drawn as straight segments.
func smooth(stars []int) plotter.XYs {
	xs := make([]float64, len(stars))
	ys := make([]float64, len(stars))
	for i, s := range stars {
		xs[i] = float64(i)
		ys[i] = float64(s)
	}
	if len(stars) < 3 {
		pts := make(plotter.XYs, len(stars))
		for i := range stars {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		return pts
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		pts := make(plotter.XYs, len(stars))
		for i := range stars {
			pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
		}
		return pts
	}
	pts := make(plotter.XYs, 0, (len(stars)-1)*samplesPerSegment+1)
	for i := 0; i < len(stars)-1; i++ {
		for s := 0; s < samplesPerSegment; s++ {
			x := xs[i] + float64(s)/samplesPerSegment
			pts = append(pts, plotter.XY{X: x, Y: spline.Predict(x)})
		}
	}
	last := len(stars) - 1
	return append(pts, plotter.XY{X: xs[last], Y: ys[last]})
}

// Draw paints the whole card onto dc. A nil logo draws a placeholder disc.
func (c *Card) Draw(dc draw.Canvas, logo image.Image) error {
	rect := dc.Rectangle
	dc.SetColor(c.style.Background)
	dc.Fill(rectPath(rect))

	headerTop := rect.Max.Y - padding
	headerMid := headerTop - headerHeight/2
	headerBottom := headerTop - headerHeight

	// Logo.
	logoRect := vg.Rectangle{
		Min: vg.Point{X: rect.Min.X + padding, Y: headerMid - logoSize/2},
		Max: vg.Point{X: rect.Min.X + padding + logoSize, Y: headerMid + logoSize/2},
	}
	if logo != nil {
		dc.DrawImage(logoRect, roundImage(logo))
	} else {
		dc.SetColor(logoColor)
		dc.Fill(circlePath(logoRect))
	}

	// Name.
	dc.FillText(textStyle(vg.Points(18), textColor, text.XLeft, text.YCenter),
		vg.Point{X: logoRect.Max.X + 10, Y: headerMid}, c.data.Name)

	// Total stars block, right aligned and separated by a vertical rule.
	right := rect.Max.X - padding - 12
	dc.FillText(textStyle(vg.Points(9), mutedColor, text.XRight, text.YBottom),
		vg.Point{X: right, Y: headerMid + 4}, "Total Stars")
	dc.FillText(textStyle(vg.Points(16), textColor, text.XRight, text.YTop),
		vg.Point{X: right, Y: headerMid - 2}, c.TotalStarsLabel())
	rule := draw.LineStyle{Color: borderColor, Width: vg.Points(1)}
	ruleX := rect.Max.X - padding - 110
	dc.StrokeLine2(rule, ruleX, headerBottom, ruleX, headerTop)
	dc.StrokeLine2(rule, rect.Min.X+padding, headerBottom, rect.Max.X-padding, headerBottom)

	p, err := c.Plot()
	if err != nil {
		return err
	}
	body := draw.Crop(dc, padding, -padding, padding, -(rect.Max.Y - headerBottom + 12))
	p.Draw(body)
	return nil
}

// WritePNG rasterizes the card as currently laid out and writes it as PNG.
// The logo, if any, is downloaded and decoded first; a logo that cannot be
// loaded is replaced by the placeholder disc.
func (c *Card) WritePNG(ctx context.Context, w io.Writer) error {
	if c == nil {
		return fmt.Errorf("chart card is not rendered")
	}
	var logo image.Image
	if c.data.LogoURL != "" && c.images != nil {
		if img, err := c.images.LoadImage(ctx, c.data.LogoURL); err == nil {
			logo = img
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	canvas := vgimg.New(c.style.Width, c.style.Height)
	if err := c.Draw(draw.New(canvas), logo); err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to write card as png: %w", err)
	}
	return nil
}

func textStyle(size vg.Length, clr color.Color, x text.XAlignment, y text.YAlignment) text.Style {
	fnt := plot.DefaultFont
	fnt.Variant = "Sans"
	fnt.Size = size
	return text.Style{
		Color:   clr,
		Font:    fnt,
		XAlign:  x,
		YAlign:  y,
		Handler: plot.DefaultTextHandler,
	}
}

func rectPath(r vg.Rectangle) vg.Path {
	var p vg.Path
	p.Move(r.Min)
	p.Line(vg.Point{X: r.Max.X, Y: r.Min.Y})
	p.Line(r.Max)
	p.Line(vg.Point{X: r.Min.X, Y: r.Max.Y})
	p.Close()
	return p
}

func circlePath(r vg.Rectangle) vg.Path {
	rad := (r.Max.X - r.Min.X) / 2
	center := vg.Point{X: r.Min.X + rad, Y: r.Min.Y + rad}
	var p vg.Path
	p.Move(vg.Point{X: center.X + rad, Y: center.Y})
	p.Arc(center, rad, 0, 2*math.Pi)
	p.Close()
	return p
}

// roundImage masks img to the largest centred disc.
func roundImage(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	imagedraw.DrawMask(dst, dst.Bounds(), img, b.Min, disc{w: b.Dx(), h: b.Dy()}, image.Point{}, imagedraw.Over)
	return dst
}

// disc is an alpha mask that is opaque inside the inscribed circle.
type disc struct{ w, h int }

func (d disc) ColorModel() color.Model { return color.AlphaModel }
func (d disc) Bounds() image.Rectangle { return image.Rect(0, 0, d.w, d.h) }
func (d disc) At(x, y int) color.Color {
	r := float64(min(d.w, d.h)) / 2
	dx := float64(x) + 0.5 - float64(d.w)/2
	dy := float64(y) + 0.5 - float64(d.h)/2
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
