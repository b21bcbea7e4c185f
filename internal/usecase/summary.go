package usecase

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/gitgraph/internal/domain"
)

// Summary describes how fast a repository gained stars between consecutive points.
type Summary struct {
	Name       string  `json:"name"`
	TotalStars int     `json:"total_stars"`
	Points     int     `json:"points"`
	First      string  `json:"first,omitempty"`
	Last       string  `json:"last,omitempty"`
	MeanGain   float64 `json:"mean_gain"`
	MedianGain float64 `json:"median_gain"`
	MaxGain    float64 `json:"max_gain"`
}

// Summarize computes gain statistics over data in the order it was received.
// Series with fewer than two points have zero gains.
func Summarize(data *domain.ChartData) (Summary, error) {
	s := Summary{Name: data.Name, TotalStars: data.TotalStars, Points: len(data.Data)}
	if len(data.Data) == 0 {
		return s, nil
	}
	s.First = data.Data[0].Date
	s.Last = data.Data[len(data.Data)-1].Date
	if len(data.Data) < 2 {
		return s, nil
	}

	gains := make(stats.Float64Data, 0, len(data.Data)-1)
	for i := 1; i < len(data.Data); i++ {
		gains = append(gains, float64(data.Data[i].Stars-data.Data[i-1].Stars))
	}

	var err error
	if s.MeanGain, err = gains.Mean(); err != nil {
		return s, fmt.Errorf("mean gain: %w", err)
	}
	if s.MedianGain, err = gains.Median(); err != nil {
		return s, fmt.Errorf("median gain: %w", err)
	}
	if s.MaxGain, err = gains.Max(); err != nil {
		return s, fmt.Errorf("max gain: %w", err)
	}
	if s.MeanGain, err = stats.Round(s.MeanGain, 1); err != nil {
		return s, fmt.Errorf("round mean gain: %w", err)
	}
	return s, nil
}
