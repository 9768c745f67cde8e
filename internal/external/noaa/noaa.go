// Package noaa adapts the NOAA Climate Data Online v2 API.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/logger"
)

// Defaults
const (
	DatasetID      = "GHCND"
	DefaultExtent  = 0.5 // station search padding, degrees
	DefaultDays    = 30
	stationLimit   = 25
	dataLimit      = 1000
	earthRadiusKm  = 6371.0
	cdoDateLayout  = "2006-01-02"
	cdoDateTimeFmt = "2006-01-02T15:04:05"
)

// Station is a resolved GHCND station
type Station struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	DataCoverage float64 `json:"data_coverage"`
	DistanceKm   float64 `json:"distance_km"`
}

// DailyValue is one observation of a data type
type DailyValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Summary aggregates the common GHCND data types
type Summary struct {
	Observations       int      `json:"observations"`
	TotalPrecipitation *float64 `json:"total_precipitation_mm,omitempty"`
	MeanMaxTemperature *float64 `json:"avg_tmax_c,omitempty"`
	MeanMinTemperature *float64 `json:"avg_tmin_c,omitempty"`
}

// StationData is the parsed NOAA record
type StationData struct {
	Station   Station                 `json:"station"`
	Range     contracts.DateRange     `json:"range"`
	Datatypes map[string][]DailyValue `json:"datatypes"`
	Summary   Summary                 `json:"summary"`
}

// Adapter resolves the nearest station, then fetches its daily data.
// The data call is never made without a station.
// ⭐ SSOT: NOAA 2단계 호출(관측소 → 데이터)은 여기서만
type Adapter struct {
	gw     gateway.Caller
	log    *logger.Logger
	Extent float64
}

// NewAdapter creates the adapter
func NewAdapter(gw gateway.Caller, log *logger.Logger) *Adapter {
	return &Adapter{gw: gw, log: log.WithProvider(registry.NOAA), Extent: DefaultExtent}
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.NOAA }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.NOAA }

// Fetch implements the source contract
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	r := q.Range
	if r.IsZero() {
		r = contracts.TrailingDays(time.Now(), DefaultDays)
	}

	station, outcome, ok := a.nearestStation(ctx, q.Region.Point, r)
	if !ok {
		return outcome
	}

	a.log.WithRegion(q.Region.Key).WithFields(map[string]interface{}{
		"station":     station.ID,
		"distance_km": station.DistanceKm,
	}).Debug("Resolved nearest station")

	params := url.Values{}
	params.Set("datasetid", DatasetID)
	params.Set("stationid", station.ID)
	params.Set("startdate", r.From.Format(cdoDateLayout))
	params.Set("enddate", r.To.Format(cdoDateLayout))
	params.Set("units", "metric")
	params.Set("limit", strconv.Itoa(dataLimit))

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NOAA,
		Endpoint: "data",
		Params:   params,
	})
	if !o.OK() {
		return o
	}

	data, err := ParseData(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	data.Station = station
	data.Range = r
	return o.WithData(data)
}

// nearestStation returns ok=false with the outcome to report when no station is usable
func (a *Adapter) nearestStation(ctx context.Context, p contracts.GeoPoint, r contracts.DateRange) (Station, contracts.Outcome, bool) {
	b := p.BBox(a.Extent)

	params := url.Values{}
	params.Set("datasetid", DatasetID)
	// CDO extent order: minLat,minLon,maxLat,maxLon
	params.Set("extent", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b[1], b[0], b[3], b[2]))
	params.Set("startdate", r.From.Format(cdoDateLayout))
	params.Set("enddate", r.To.Format(cdoDateLayout))
	params.Set("limit", strconv.Itoa(stationLimit))

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NOAA,
		Endpoint: "stations",
		Params:   params,
	})
	if !o.OK() {
		return Station{}, o, false
	}

	stations, err := ParseStations(o.Payload)
	if err != nil {
		return Station{}, gateway.Malformed(o, err), false
	}
	if len(stations) == 0 {
		return Station{}, contracts.Failure(contracts.KindNotFound,
			"no %s station within %.2f° of (%.4f, %.4f)", DatasetID, a.Extent, p.Lat, p.Lon).WithStatus(o.StatusCode), false
	}

	for i := range stations {
		stations[i].DistanceKm = haversineKm(p, contracts.GeoPoint{Lat: stations[i].Lat, Lon: stations[i].Lon})
	}
	sort.SliceStable(stations, func(i, j int) bool {
		return stations[i].DistanceKm < stations[j].DistanceKm
	})
	return stations[0], contracts.Outcome{}, true
}

// ParseStations decodes a stations page; CDO answers "{}" when nothing matches
func ParseStations(payload []byte) ([]Station, error) {
	var raw struct {
		Results []struct {
			ID           string  `json:"id"`
			Name         string  `json:"name"`
			Latitude     float64 `json:"latitude"`
			Longitude    float64 `json:"longitude"`
			DataCoverage float64 `json:"datacoverage"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	out := make([]Station, 0, len(raw.Results))
	for _, s := range raw.Results {
		if s.ID == "" {
			continue
		}
		out = append(out, Station{
			ID:           s.ID,
			Name:         s.Name,
			Lat:          s.Latitude,
			Lon:          s.Longitude,
			DataCoverage: s.DataCoverage,
		})
	}
	return out, nil
}

// ParseData groups CDO data results by data type in date order
func ParseData(payload []byte) (StationData, error) {
	var raw struct {
		Results []struct {
			Date     string  `json:"date"`
			Datatype string  `json:"datatype"`
			Value    float64 `json:"value"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return StationData{}, err
	}

	data := StationData{Datatypes: make(map[string][]DailyValue)}
	for _, r := range raw.Results {
		d, err := time.Parse(cdoDateTimeFmt, r.Date)
		if err != nil {
			continue
		}
		data.Datatypes[r.Datatype] = append(data.Datatypes[r.Datatype], DailyValue{Date: d, Value: r.Value})
		data.Summary.Observations++
	}
	for k := range data.Datatypes {
		v := data.Datatypes[k]
		sort.SliceStable(v, func(i, j int) bool { return v[i].Date.Before(v[j].Date) })
	}

	data.Summary.TotalPrecipitation = total(data.Datatypes["PRCP"])
	data.Summary.MeanMaxTemperature = average(data.Datatypes["TMAX"])
	data.Summary.MeanMinTemperature = average(data.Datatypes["TMIN"])
	return data, nil
}

func total(v []DailyValue) *float64 {
	if len(v) == 0 {
		return nil
	}
	s := 0.0
	for _, x := range v {
		s += x.Value
	}
	return &s
}

func average(v []DailyValue) *float64 {
	s := total(v)
	if s == nil {
		return nil
	}
	m := *s / float64(len(v))
	return &m
}

func haversineKm(a, b contracts.GeoPoint) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
