// Package domain contains the core data structures and domain logic for the application.
package domain

// StarRecord is a single point of a star history: the cumulative number of
// stars a repository had at the period named by Date.
type StarRecord struct {
	Date  string `json:"date" yaml:"date"`
	Stars int    `json:"stars" yaml:"stars"`
}

// ChartData is the star history of one repository together with the metadata
// needed to display it. It is the core domain entity of this application and
// is treated as immutable once received.
type ChartData struct {
	Name       string       `json:"name" yaml:"name"`
	LogoURL    string       `json:"logo_url" yaml:"logo_url"`
	TotalStars int          `json:"total_stars" yaml:"total_stars"`
	Data       []StarRecord `json:"data" yaml:"data"`
}

// Stars returns the star counts of the series in the order they were received.
func (c *ChartData) Stars() []int {
	stars := make([]int, len(c.Data))
	for i, r := range c.Data {
		stars[i] = r.Stars
	}
	return stars
}

// Labels returns the period labels of the series in the order they were received.
func (c *ChartData) Labels() []string {
	labels := make([]string, len(c.Data))
	for i, r := range c.Data {
		labels[i] = r.Date
	}
	return labels
}
