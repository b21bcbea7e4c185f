package chart

import (
	"math"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/plot"
)

// categoryTicks labels every step-th category so that at most max labels
// are printed. The last category is always labelled.
type categoryTicks struct {
	labels []string
	max    int
}

func (t categoryTicks) Ticks(_, _ float64) []plot.Tick {
	n := len(t.labels)
	if n == 0 {
		return nil
	}
	limit := max(1, t.max)
	step := (n + limit - 1) / limit
	ticks := make([]plot.Tick, 0, limit)
	for i := n - 1; i >= 0; i -= step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: t.labels[i]})
	}
	return ticks
}

// starTicks keeps the default tick placement but prints counts with thousands separators.
type starTicks struct{}

func (starTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label == "" {
			continue
		}
		ticks[i].Label = humanize.Comma(int64(math.Round(ticks[i].Value)))
	}
	return ticks
}
