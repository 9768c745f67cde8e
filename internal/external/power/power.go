// Package power adapts the NASA POWER daily point meteorology API.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// Parameter codes requested from POWER
const (
	ParamTOASolar      = "TOA_SW_DWN"
	ParamSurfaceSolar  = "ALLSKY_SFC_SW_DWN"
	ParamTemperature   = "T2M"
	ParamTempMin       = "T2M_MIN"
	ParamTempMax       = "T2M_MAX"
	ParamDewPoint      = "T2MDEW"
	ParamWindSpeed     = "WS2M"
	ParamPrecipitation = "PRECTOTCORR"
	ParamHumidity      = "RH2M"
	ParamPressure      = "PS"
	ParamSpecificHum   = "QV2M"
	ParamPAR           = "ALLSKY_SFC_PAR_TOT"
	ParamUVIndex       = "ALLSKY_SFC_UV_INDEX"
)

// Parameters is the fixed request list
var Parameters = []string{
	ParamTOASolar, ParamSurfaceSolar, ParamTemperature, ParamTempMin, ParamTempMax,
	ParamDewPoint, ParamWindSpeed, ParamPrecipitation, ParamHumidity, ParamPressure,
	ParamSpecificHum, ParamPAR, ParamUVIndex,
}

// fillValue marks a missing observation in POWER responses
const fillValue = -999.0

// droughtPrecipitationMM is the total precipitation below which drought risk is high
const droughtPrecipitationMM = 50.0

// trendWindow is the number of days compared at each end of the range
const trendWindow = 7

// Row is one day of observations; absent parameters are missing or fill values
type Row struct {
	Date   time.Time          `json:"date"`
	Values map[string]float64 `json:"values"`
}

// Summary is the convenience view over a table.
// Pointers are nil when the parameter has no observations.
type Summary struct {
	Days               int      `json:"days"`
	MeanTemperature    *float64 `json:"avg_temperature"`
	TotalPrecipitation *float64 `json:"total_precipitation"`
	MeanSolarRadiation *float64 `json:"avg_solar_radiation"`
	MeanHumidity       *float64 `json:"avg_humidity"`
	MeanWindSpeed      *float64 `json:"avg_wind_speed"`
}

// Trends compares the last week of the range against the first
type Trends struct {
	Temperature   string `json:"temperature_trend"`
	Precipitation string `json:"precipitation_trend"`
	DroughtRisk   string `json:"drought_risk"`
}

// Table is the parsed POWER record
type Table struct {
	Parameters []string `json:"parameters"`
	Rows       []Row    `json:"rows"`
	Summary    Summary  `json:"summary"`
	Trends     *Trends  `json:"trends,omitempty"`
}

// Column returns one parameter's values in date order, skipping missing days
func (t Table) Column(param string) []float64 {
	var out []float64
	for _, r := range t.Rows {
		if v, ok := r.Values[param]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Adapter fetches daily point meteorology
// ⭐ SSOT: NASA POWER 호출/파싱은 여기서만
type Adapter struct {
	gw gateway.Caller
}

// NewAdapter creates the adapter
func NewAdapter(gw gateway.Caller) *Adapter {
	return &Adapter{gw: gw}
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.NASAPower }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.NASAPower }

// Fetch implements the source contract
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	r := q.Range
	if r.IsZero() {
		r = contracts.TrailingDays(time.Now(), 30)
	}

	params := url.Values{}
	params.Set("parameters", strings.Join(Parameters, ","))
	params.Set("community", "AG")
	params.Set("longitude", strconv.FormatFloat(q.Region.Point.Lon, 'f', 4, 64))
	params.Set("latitude", strconv.FormatFloat(q.Region.Point.Lat, 'f', 4, 64))
	params.Set("start", r.From.Format("20060102"))
	params.Set("end", r.To.Format("20060102"))
	params.Set("format", "JSON")

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.NASAPower,
		Endpoint: "daily_point",
		Params:   params,
		Heavy:    true,
	})
	if !o.OK() {
		return o
	}

	table, err := Parse(o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	return o.WithData(table)
}

// Parse reshapes properties.parameter.{PARAM}.{YYYYMMDD} into date rows
func Parse(payload []byte) (Table, error) {
	var raw struct {
		Properties struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Table{}, err
	}

	byDate := make(map[string]map[string]float64)
	params := make([]string, 0, len(raw.Properties.Parameter))
	for param, series := range raw.Properties.Parameter {
		params = append(params, param)
		for day, v := range series {
			if v == fillValue || math.IsNaN(v) {
				continue
			}
			if byDate[day] == nil {
				byDate[day] = make(map[string]float64)
			}
			byDate[day][param] = v
		}
	}
	sort.Strings(params)

	days := make([]string, 0, len(byDate))
	for day := range byDate {
		days = append(days, day)
	}
	sort.Strings(days)

	table := Table{Parameters: params, Rows: make([]Row, 0, len(days))}
	for _, day := range days {
		d, err := time.Parse("20060102", day)
		if err != nil {
			return Table{}, fmt.Errorf("invalid date key %q: %w", day, err)
		}
		table.Rows = append(table.Rows, Row{Date: d, Values: byDate[day]})
	}

	table.Summary = summarize(table)
	table.Trends = trends(table)
	return table, nil
}

func summarize(t Table) Summary {
	return Summary{
		Days:               len(t.Rows),
		MeanTemperature:    mean(t.Column(ParamTemperature)),
		TotalPrecipitation: sum(t.Column(ParamPrecipitation)),
		MeanSolarRadiation: mean(t.Column(ParamSurfaceSolar)),
		MeanHumidity:       mean(t.Column(ParamHumidity)),
		MeanWindSpeed:      mean(t.Column(ParamWindSpeed)),
	}
}

// trends needs both temperature and precipitation columns
func trends(t Table) *Trends {
	temp := t.Column(ParamTemperature)
	precip := t.Column(ParamPrecipitation)
	if len(temp) < 2 || len(precip) < 2 {
		return nil
	}

	out := &Trends{
		Temperature:   direction(*mean(tail(temp)), *mean(head(temp))),
		Precipitation: direction(*sum(tail(precip)), *sum(head(precip))),
		DroughtRisk:   "low",
	}
	if *sum(precip) < droughtPrecipitationMM {
		out.DroughtRisk = "high"
	}
	return out
}

func direction(last, first float64) string {
	if last > first {
		return "increasing"
	}
	return "decreasing"
}

func head(v []float64) []float64 {
	if len(v) > trendWindow {
		return v[:trendWindow]
	}
	return v
}

func tail(v []float64) []float64 {
	if len(v) > trendWindow {
		return v[len(v)-trendWindow:]
	}
	return v
}

func sum(v []float64) *float64 {
	if len(v) == 0 {
		return nil
	}
	total := 0.0
	for _, x := range v {
		total += x
	}
	return &total
}

func mean(v []float64) *float64 {
	s := sum(v)
	if s == nil {
		return nil
	}
	m := *s / float64(len(v))
	return &m
}
