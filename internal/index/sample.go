package index

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
)

// RevisitDays is the Sentinel-2 revisit interval used for sample series
const RevisitDays = 16

var sampleBase = map[string]float64{
	"NDVI": 0.3,
	"NDWI": 0.1,
	"EVI":  0.2,
}

// SampleSeries generates a synthetic series for demos when no satellite key is configured.
// The same seed always produces the same series.
func SampleSeries(index string, r contracts.DateRange, seed int64, offset float64) contracts.IndexTimeSeries {
	index = strings.ToUpper(index)
	base, ok := sampleBase[index]
	if !ok {
		base = 0.3
	}

	rng := rand.New(rand.NewSource(seed))
	s := contracts.IndexTimeSeries{Index: index}

	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, RevisitDays) {
		v := base + offset + rng.NormFloat64()*0.05
		v = math.Max(-1, math.Min(1, v))
		s.Points = append(s.Points, contracts.IndexPoint{
			Date:       d.UTC().Truncate(24 * time.Hour),
			Value:      round(v, 4),
			CloudCover: round(rng.Float64()*20, 2),
		})
	}
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
