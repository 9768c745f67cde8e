package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
)

// DefaultInterval is the statistics aggregation step (ISO-8601 duration)
const DefaultInterval = "P16D"

// indexFormulas maps supported indices to band arithmetic
var indexFormulas = map[string]string{
	"NDVI": "(s.B08 - s.B04) / (s.B08 + s.B04)",
	"NDWI": "(s.B03 - s.B08) / (s.B03 + s.B08)",
	"EVI":  "2.5 * (s.B08 - s.B04) / (s.B08 + 6.0 * s.B04 - 7.5 * s.B02 + 1.0)",
}

const evalscriptTemplate = `//VERSION=3
function setup() {
  return {
    input: [{bands: ["B02", "B03", "B04", "B08", "CLM", "dataMask"]}],
    output: [
      {id: "index", bands: 1, sampleType: "FLOAT32"},
      {id: "cloud", bands: 1, sampleType: "FLOAT32"},
      {id: "dataMask", bands: 1}
    ]
  };
}
function evaluatePixel(s) {
  let v = %s;
  return {index: [v], cloud: [s.CLM], dataMask: [s.dataMask]};
}`

// SupportedIndices returns the index names FetchIndexSeries accepts
func SupportedIndices() []string {
	return []string{"EVI", "NDVI", "NDWI"}
}

// Evalscript returns the Statistical API script for an index
func Evalscript(index string) (string, error) {
	formula, ok := indexFormulas[strings.ToUpper(index)]
	if !ok {
		return "", fmt.Errorf("unsupported index %q", index)
	}
	return fmt.Sprintf(evalscriptTemplate, formula), nil
}

type statisticsRequest struct {
	Input struct {
		Bounds struct {
			BBox       [4]float64        `json:"bbox"`
			Properties map[string]string `json:"properties"`
		} `json:"bounds"`
		Data []statisticsData `json:"data"`
	} `json:"input"`
	Aggregation struct {
		TimeRange struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"timeRange"`
		AggregationInterval struct {
			Of string `json:"of"`
		} `json:"aggregationInterval"`
		Evalscript string `json:"evalscript"`
		ResX       int    `json:"resx"`
		ResY       int    `json:"resy"`
	} `json:"aggregation"`
	Calculations map[string]interface{} `json:"calculations"`
}

type statisticsData struct {
	Type       string `json:"type"`
	DataFilter struct {
		MaxCloudCoverage float64 `json:"maxCloudCoverage"`
	} `json:"dataFilter"`
}

// FetchIndexSeries requests per-interval mean index values over the query range.
// The parsed contracts.IndexTimeSeries is carried in the outcome's Data.
func (a *Adapter) FetchIndexSeries(ctx context.Context, q contracts.Query, index string) contracts.Outcome {
	index = strings.ToUpper(index)
	script, err := Evalscript(index)
	if err != nil {
		return contracts.Failure(contracts.KindNotFound, "%v", err)
	}

	r := rangeOrDefault(q.Range)

	var req statisticsRequest
	req.Input.Bounds.BBox = q.Region.Point.BBox(a.Margin)
	req.Input.Bounds.Properties = map[string]string{"crs": "http://www.opengis.net/def/crs/OGC/1.3/CRS84"}
	data := statisticsData{Type: Collection}
	data.DataFilter.MaxCloudCoverage = a.MaxCloudCover
	req.Input.Data = []statisticsData{data}
	req.Aggregation.TimeRange.From = r.From.UTC().Format(time.RFC3339)
	req.Aggregation.TimeRange.To = r.To.UTC().Add(24*time.Hour - time.Second).Format(time.RFC3339)
	req.Aggregation.AggregationInterval.Of = DefaultInterval
	req.Aggregation.Evalscript = script
	req.Aggregation.ResX = 10
	req.Aggregation.ResY = 10
	req.Calculations = map[string]interface{}{"default": map[string]interface{}{}}

	o := a.gw.Call(ctx, gateway.Request{
		Provider: registry.SentinelHub,
		Endpoint: "statistics",
		Method:   http.MethodPost,
		Body:     req,
	})
	if !o.OK() {
		return o
	}

	series, err := ParseStatistics(index, o.Payload)
	if err != nil {
		return gateway.Malformed(o, err)
	}
	return o.WithData(series)
}

// stat tolerates the "NaN" strings the Statistical API emits for empty intervals
type stat float64

func (s *stat) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "null" || strings.EqualFold(raw, "nan") {
		*s = stat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*s = stat(v)
	return nil
}

type bandStats struct {
	Bands struct {
		B0 struct {
			Stats struct {
				Mean        stat `json:"mean"`
				SampleCount int  `json:"sampleCount"`
				NoDataCount int  `json:"noDataCount"`
			} `json:"stats"`
		} `json:"B0"`
	} `json:"bands"`
}

// ParseStatistics converts a Statistical API response into a chronological series.
// Intervals with no valid index mean are dropped; cloud cover is CLM mean as percent.
func ParseStatistics(index string, payload []byte) (contracts.IndexTimeSeries, error) {
	var raw struct {
		Data []struct {
			Interval struct {
				From string `json:"from"`
			} `json:"interval"`
			Outputs map[string]bandStats `json:"outputs"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return contracts.IndexTimeSeries{}, err
	}

	series := contracts.IndexTimeSeries{Index: index, Points: []contracts.IndexPoint{}}
	for _, d := range raw.Data {
		date, err := time.Parse(time.RFC3339, d.Interval.From)
		if err != nil {
			continue
		}
		idx, ok := d.Outputs["index"]
		if !ok {
			continue
		}
		mean := float64(idx.Bands.B0.Stats.Mean)
		if math.IsNaN(mean) {
			continue
		}

		point := contracts.IndexPoint{Date: date, Value: mean}
		if cloud, ok := d.Outputs["cloud"]; ok {
			if c := float64(cloud.Bands.B0.Stats.Mean); !math.IsNaN(c) {
				point.CloudCover = c * 100
			}
		}
		series.Points = append(series.Points, point)
	}

	if err := series.Validate(); err != nil {
		return contracts.IndexTimeSeries{}, err
	}
	return series, nil
}
