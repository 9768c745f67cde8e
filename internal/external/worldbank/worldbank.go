// Package worldbank adapts the World Bank v2 indicators API.
package worldbank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/internal/registry"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

// Indicators is the fixed climate/land-use list, code -> label
var Indicators = map[string]string{
	"AG.LND.AGRI.ZS": "Agricultural land (% of land area)",
	"AG.LND.FRST.ZS": "Forest area (% of land area)",
	"AG.LND.PRCP.MM": "Average precipitation in depth (mm per year)",
	"EN.ATM.CO2E.PC": "CO2 emissions (metric tons per capita)",
	"EN.CLC.MDAT.ZS": "Droughts, floods, extreme temperatures (% of population)",
}

// Default year range
const (
	DefaultStartYear = 2010
	DefaultEndYear   = 2023
)

// Observation is one yearly value
type Observation struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Indicator is one indicator's parsed series, newest first as served
type Indicator struct {
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Observations []Observation `json:"observations"`
	Latest       *Observation  `json:"latest,omitempty"`
}

// IndicatorSet is the merged record keyed by indicator code
type IndicatorSet struct {
	Country    string               `json:"country"`
	Indicators map[string]Indicator `json:"indicators"`
	Missing    []string             `json:"missing,omitempty"`  // answered with no data
	Failures   map[string]string    `json:"failures,omitempty"` // call failed
}

// Adapter fetches every indicator for a region's country
// ⭐ SSOT: World Bank 지표 호출은 여기서만
type Adapter struct {
	gw        gateway.Caller
	log       *logger.Logger
	cache     *redis.Cache
	StartYear int
	EndYear   int
}

// NewAdapter creates the adapter with the default year range
func NewAdapter(gw gateway.Caller, log *logger.Logger) *Adapter {
	return &Adapter{
		gw:        gw,
		log:       log.WithProvider(registry.WorldBank),
		StartYear: DefaultStartYear,
		EndYear:   DefaultEndYear,
	}
}

// WithCache enables caching of indicator series
func (a *Adapter) WithCache(cache *redis.Cache) *Adapter {
	a.cache = cache
	return a
}

// Name returns the source name used in aggregate records
func (a *Adapter) Name() string { return registry.WorldBank }

// Provider returns the registry provider backing this source
func (a *Adapter) Provider() string { return registry.WorldBank }

// Fetch issues one call per indicator and merges the results.
// Succeeds when at least one call got an answer; otherwise returns the first failure.
func (a *Adapter) Fetch(ctx context.Context, q contracts.Query) contracts.Outcome {
	country := strings.ToUpper(strings.TrimSpace(q.Region.CountryCode))
	if country == "" {
		return contracts.Failure(contracts.KindNotFound, "region %s has no country code", q.Region.Key)
	}

	set := IndicatorSet{
		Country:    country,
		Indicators: make(map[string]Indicator),
		Failures:   make(map[string]string),
	}

	var firstFailure *contracts.Outcome
	answered := false
	var last contracts.Outcome

	for _, code := range codes() {
		if ind, ok := a.cached(ctx, country, code); ok {
			set.Indicators[code] = ind
			answered = true
			continue
		}

		o := a.gw.Call(ctx, gateway.Request{
			Provider:   registry.WorldBank,
			Endpoint:   "indicator",
			PathParams: map[string]string{"country": country, "indicator": code},
			Params: url.Values{
				"date":     {fmt.Sprintf("%d:%d", a.StartYear, a.EndYear)},
				"format":   {"json"},
				"per_page": {"1000"},
			},
		})
		if !o.OK() {
			set.Failures[code] = o.String()
			if firstFailure == nil {
				f := o
				firstFailure = &f
			}
			continue
		}

		answered = true
		last = o
		ind, ok, err := Parse(code, o.Payload)
		if err != nil {
			set.Failures[code] = fmt.Sprintf("malformed response: %v", err)
			continue
		}
		if !ok {
			set.Missing = append(set.Missing, code)
			continue
		}
		set.Indicators[code] = ind
		a.store(ctx, country, ind)
	}

	if !answered {
		return *firstFailure
	}
	if len(set.Failures) == 0 {
		set.Failures = nil
	}

	out := last
	if out.StatusCode == 0 {
		// every indicator came from cache
		out = contracts.Success(http.StatusOK, nil, nil)
	}
	out.Payload = nil
	return out.WithData(set)
}

func (a *Adapter) cached(ctx context.Context, country, code string) (Indicator, bool) {
	if a.cache == nil {
		return Indicator{}, false
	}
	var ind Indicator
	found, err := a.cache.Get(ctx, redis.IndicatorKey(country, code), &ind)
	if err != nil {
		a.log.WithError(err).Warn("Indicator cache read failed")
		return Indicator{}, false
	}
	return ind, found
}

func (a *Adapter) store(ctx context.Context, country string, ind Indicator) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, redis.IndicatorKey(country, ind.Code), ind, redis.TTLDaily); err != nil {
		a.log.WithError(err).Warn("Indicator cache write failed")
	}
}

// Parse decodes the [paging, rows] envelope.
// ok is false when the envelope has fewer than two elements or no values.
func Parse(code string, payload []byte) (Indicator, bool, error) {
	var envelope []json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Indicator{}, false, err
	}
	if len(envelope) < 2 {
		return Indicator{}, false, nil
	}

	var rows []struct {
		Indicator struct {
			ID    string `json:"id"`
			Value string `json:"value"`
		} `json:"indicator"`
		Date  string   `json:"date"`
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(envelope[1], &rows); err != nil {
		// "null" second element decodes fine; anything else is drift
		return Indicator{}, false, err
	}

	ind := Indicator{Code: code, Name: Indicators[code], Observations: []Observation{}}
	for _, r := range rows {
		if ind.Name == "" && r.Indicator.Value != "" {
			ind.Name = r.Indicator.Value
		}
		if r.Value == nil {
			continue
		}
		year, err := strconv.Atoi(r.Date)
		if err != nil {
			continue
		}
		ind.Observations = append(ind.Observations, Observation{Year: year, Value: *r.Value})
	}
	if len(ind.Observations) == 0 {
		return Indicator{}, false, nil
	}

	sort.Slice(ind.Observations, func(i, j int) bool {
		return ind.Observations[i].Year > ind.Observations[j].Year
	})
	latest := ind.Observations[0]
	ind.Latest = &latest
	return ind, true, nil
}

func codes() []string {
	out := make([]string, 0, len(Indicators))
	for code := range Indicators {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
