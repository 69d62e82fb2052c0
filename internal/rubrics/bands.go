package rubrics

import (
	"fmt"
	"math"
)

// DefaultLabels are the score levels used when a category omits its bands.
var DefaultLabels = []string{"Beginning", "Developing", "Proficient", "Exemplary"}

// Band is an inclusive score range within a category.
type Band struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// DefaultBands splits [0, maxPoints] into one contiguous band per label,
// lowest label first.
func DefaultBands(maxPoints int, labels []string) ([]Band, error) {
	n := len(labels)
	if n == 0 {
		return nil, fmt.Errorf("%w: no labels", ErrInvalidBands)
	}
	if maxPoints < 1 {
		return nil, fmt.Errorf("%w: max_points %d", ErrInvalidBands, maxPoints)
	}
	span := maxPoints + 1
	if span < n {
		return nil, fmt.Errorf("%w: %d levels exceed %d points", ErrInvalidBands, n, span)
	}

	bands := make([]Band, n)
	for i, label := range labels {
		bands[i] = Band{
			Min:   i * span / n,
			Max:   (i+1)*span/n - 1,
			Label: label,
		}
	}
	return bands, nil
}

// ValidateBands checks that bands are labeled and tile [0, maxPoints] in order.
func ValidateBands(bands []Band, maxPoints int) error {
	if maxPoints < 1 {
		return fmt.Errorf("%w: max_points %d", ErrInvalidBands, maxPoints)
	}
	if len(bands) == 0 {
		return fmt.Errorf("%w: no bands", ErrInvalidBands)
	}
	if bands[0].Min != 0 {
		return fmt.Errorf("%w: first band starts at %d", ErrInvalidBands, bands[0].Min)
	}

	for i, b := range bands {
		if b.Label == "" {
			return fmt.Errorf("%w: band %d unlabeled", ErrInvalidBands, i)
		}
		if b.Min > b.Max {
			return fmt.Errorf("%w: band %q inverted", ErrInvalidBands, b.Label)
		}
		if i > 0 && b.Min != bands[i-1].Max+1 {
			return fmt.Errorf("%w: gap or overlap before %q", ErrInvalidBands, b.Label)
		}
	}

	if last := bands[len(bands)-1]; last.Max != maxPoints {
		return fmt.Errorf("%w: last band ends at %d, want %d", ErrInvalidBands, last.Max, maxPoints)
	}
	return nil
}

// RescaleBands maps bands spanning [0, oldMax] onto [0, newMax], scaling each
// lower bound proportionally. Every band keeps at least one point.
func RescaleBands(bands []Band, oldMax, newMax int) ([]Band, error) {
	if err := ValidateBands(bands, oldMax); err != nil {
		return nil, err
	}
	n := len(bands)
	if newMax+1 < n {
		return nil, fmt.Errorf("%w: %d levels exceed %d points", ErrInvalidBands, n, newMax+1)
	}

	ratio := float64(newMax+1) / float64(oldMax+1)
	mins := make([]int, n)
	for i := 1; i < n; i++ {
		m := int(math.Round(float64(bands[i].Min) * ratio))
		mins[i] = max(m, mins[i-1]+1)
	}
	for i := n - 1; i > 0; i-- {
		ceiling := newMax - (n - 1 - i)
		if i < n-1 {
			ceiling = min(ceiling, mins[i+1]-1)
		}
		mins[i] = min(mins[i], ceiling)
	}

	out := make([]Band, n)
	for i, b := range bands {
		b.Min = mins[i]
		if i < n-1 {
			b.Max = mins[i+1] - 1
		} else {
			b.Max = newMax
		}
		out[i] = b
	}
	return out, nil
}
