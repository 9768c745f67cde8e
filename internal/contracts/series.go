package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotChronological is returned for series whose dates go backwards
var ErrNotChronological = errors.New("index series is not in chronological order")

// IndexPoint is one observation of a satellite-derived index
type IndexPoint struct {
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
	CloudCover float64   `json:"cloud_cover"` // percent, 0-100
}

// IndexTimeSeries is an ordered series for a single index (NDVI, NDWI, EVI)
type IndexTimeSeries struct {
	Index  string       `json:"index"`
	Points []IndexPoint `json:"points"`
}

// Validate checks chronological order; equal dates are allowed
func (s IndexTimeSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		if s.Points[i].Date.Before(s.Points[i-1].Date) {
			return fmt.Errorf("%w: %s at position %d precedes %s",
				ErrNotChronological,
				s.Points[i].Date.Format("2006-01-02"), i,
				s.Points[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Values returns the observation values in series order
func (s IndexTimeSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Len returns the number of observations
func (s IndexTimeSeries) Len() int {
	return len(s.Points)
}

// IndexSummary holds descriptive statistics of a series.
// TrendSlope is per observation, not per calendar day.
type IndexSummary struct {
	Index      string  `json:"index"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	TrendSlope float64 `json:"trend_slope"`
}

// ImpactEstimate compares a treatment series against a control series
type ImpactEstimate struct {
	Index            string  `json:"index,omitempty"`
	Effect           float64 `json:"effect"` // mean(treatment) - mean(control)
	CILower          float64 `json:"ci_lower"`
	CIUpper          float64 `json:"ci_upper"`
	Confidence       float64 `json:"confidence"`
	PValue           float64 `json:"p_value"`
	Significant      bool    `json:"significant"`
	InsufficientData bool    `json:"insufficient_data"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	TreatmentMean    float64 `json:"treatment_mean"`
	ControlMean      float64 `json:"control_mean"`
	TreatmentN       int     `json:"treatment_n"`
	ControlN         int     `json:"control_n"`
}
