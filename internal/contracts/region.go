package contracts

import (
	"fmt"
	"time"
)

// GeoPoint is a WGS84 coordinate pair
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate checks the coordinate bounds
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %.4f out of range [-90, 90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %.4f out of range [-180, 180]", p.Lon)
	}
	return nil
}

// BBox pads the point by margin degrees.
// Returns [minLon, minLat, maxLon, maxLat], clamped to valid bounds.
func (p GeoPoint) BBox(margin float64) [4]float64 {
	return [4]float64{
		clamp(p.Lon-margin, -180, 180),
		clamp(p.Lat-margin, -90, 90),
		clamp(p.Lon+margin, -180, 180),
		clamp(p.Lat+margin, -90, 90),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RegionKind distinguishes whole-country entries from pilot sites
type RegionKind string

const (
	RegionCountry RegionKind = "country"
	RegionPilot   RegionKind = "pilot"
)

// RegionProfile is a named site of interest
// ⭐ SSOT: 국가/파일럿 사이트 공통 표현
type RegionProfile struct {
	Key         string     `json:"key" yaml:"key"` // lowercase lookup key
	Name        string     `json:"name" yaml:"name"`
	Kind        RegionKind `json:"kind" yaml:"kind"`
	Point       GeoPoint   `json:"point" yaml:"point"`
	CountryCode string     `json:"country_code,omitempty" yaml:"country_code"` // ISO 3166-1 alpha-2
	Description string     `json:"description,omitempty" yaml:"description"`
	Focus       string     `json:"focus,omitempty" yaml:"focus"` // monitoring focus (pilots)
}

// Validate checks the profile is usable for aggregation
func (r RegionProfile) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("region key is required")
	}
	if err := r.Point.Validate(); err != nil {
		return fmt.Errorf("region %s: %w", r.Key, err)
	}
	return nil
}

// DateRange is an inclusive day range
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TrailingDays returns the range of the last n days ending at now
func TrailingDays(now time.Time, n int) DateRange {
	to := now.UTC().Truncate(24 * time.Hour)
	return DateRange{From: to.AddDate(0, 0, -n), To: to}
}

// IsZero reports whether the range was left unset
func (d DateRange) IsZero() bool {
	return d.From.IsZero() && d.To.IsZero()
}

// Validate checks ordering
func (d DateRange) Validate() error {
	if d.To.Before(d.From) {
		return fmt.Errorf("date range end %s before start %s",
			d.To.Format("2006-01-02"), d.From.Format("2006-01-02"))
	}
	return nil
}

// Query is the generic adapter input
type Query struct {
	Region RegionProfile `json:"region"`
	Range  DateRange     `json:"range"`
}
