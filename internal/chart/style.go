package chart

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/vg"
)

// DefaultLineColor is the series stroke color.
const DefaultLineColor = "#47c98f"

// Style is the fixed look of a card.
type Style struct {
	Width      vg.Length
	Height     vg.Length
	LineColor  color.Color
	LineWidth  vg.Length
	Background color.Color
	// MaxXTicks bounds how many period labels are printed on the x axis.
	MaxXTicks int
}

// DefaultStyle returns the style used when nothing is configured.
func DefaultStyle() Style {
	lc, _ := ParseColor(DefaultLineColor)
	return Style{
		Width:      vg.Points(600),
		Height:     vg.Points(400),
		LineColor:  lc,
		LineWidth:  vg.Points(3),
		Background: color.White,
		MaxXTicks:  8,
	}
}

// ParseColor parses a "#rrggbb" (or "#rgb") color.
func ParseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Width <= 0 {
		s.Width = d.Width
	}
	if s.Height <= 0 {
		s.Height = d.Height
	}
	if s.LineColor == nil {
		s.LineColor = d.LineColor
	}
	if s.LineWidth <= 0 {
		s.LineWidth = d.LineWidth
	}
	if s.Background == nil {
		s.Background = d.Background
	}
	if s.MaxXTicks <= 0 {
		s.MaxXTicks = d.MaxXTicks
	}
	return s
}
