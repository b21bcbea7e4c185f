package chart

import (
	"strings"

	"github.com/naka-gawa/gitgraph/internal/domain"
)

// Renderer turns chart data into cards.
type Renderer struct {
	style  Style
	images ImageLoader
}

// NewRenderer returns a renderer drawing cards in style. images may be nil,
// in which case cards are exported with a placeholder logo.
func NewRenderer(style Style, images ImageLoader) *Renderer {
	return &Renderer{style: style.withDefaults(), images: images}
}

// Render builds the card for data. Points are plotted in the order given.
// A nil data renders nothing.
func (r *Renderer) Render(data *domain.ChartData) *Card {
	if data == nil {
		return nil
	}
	cp := *data
	cp.Data = append([]domain.StarRecord(nil), data.Data...)
	return &Card{data: cp, style: r.style, images: r.images}
}

// Skeleton is the text placeholder shown while a repository is loading.
func Skeleton(width int) string {
	width = max(width, 12)
	bar := func(n int) string { return strings.Repeat("░", n) }
	var b strings.Builder
	b.WriteString("┌" + strings.Repeat("─", width-2) + "┐\n")
	b.WriteString("│ ◯ " + bar(width/3) + strings.Repeat(" ", width-6-width/3-width/5) + bar(width/5) + " │\n")
	b.WriteString("│" + strings.Repeat(" ", width-2) + "│\n")
	for i := 0; i < 3; i++ {
		b.WriteString("│ " + bar(width-4) + " │\n")
	}
	b.WriteString("└" + strings.Repeat("─", width-2) + "┘")
	return b.String()
}
