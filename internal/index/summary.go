// Package index summarises satellite index series and compares treatment against control.
package index

import (
	"errors"

	"github.com/orunio/climate/backend/internal/contracts"
)

// ErrEmptySeries is returned when there is nothing to summarise
var ErrEmptySeries = errors.New("index series is empty")

// DefaultMaxCloudCover is the cloud filter threshold in percent
const DefaultMaxCloudCover = 20.0

// Summarize computes descriptive statistics and the per-observation trend
func Summarize(s contracts.IndexTimeSeries) (contracts.IndexSummary, error) {
	if err := s.Validate(); err != nil {
		return contracts.IndexSummary{}, err
	}
	if s.Len() == 0 {
		return contracts.IndexSummary{}, ErrEmptySeries
	}

	values := s.Values()
	sum := contracts.IndexSummary{
		Index:      s.Index,
		Count:      len(values),
		Mean:       Mean(values),
		StdDev:     StdDev(values),
		Min:        values[0],
		Max:        values[0],
		TrendSlope: Slope(values),
	}
	for _, v := range values[1:] {
		if v < sum.Min {
			sum.Min = v
		}
		if v > sum.Max {
			sum.Max = v
		}
	}
	return sum, nil
}

// FilterCloudCover keeps observations strictly below maxPct cloud cover
func FilterCloudCover(s contracts.IndexTimeSeries, maxPct float64) contracts.IndexTimeSeries {
	out := contracts.IndexTimeSeries{Index: s.Index, Points: make([]contracts.IndexPoint, 0, len(s.Points))}
	for _, p := range s.Points {
		if p.CloudCover < maxPct {
			out.Points = append(out.Points, p)
		}
	}
	return out
}
