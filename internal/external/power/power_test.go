package power

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/gateway/gatewaytest"
)

// series builds {"YYYYMMDD": v, ...} for consecutive days from 2024-05-01
func series(values ...float64) string {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf(`"%s": %g`, start.AddDate(0, 0, i).Format("20060102"), v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestParse(t *testing.T) {
	payload := []byte(`{"properties":{"parameter":{
		"T2M": ` + series(20, 21, -999, 23) + `,
		"PRECTOTCORR": ` + series(1, 2, 3, 4) + `,
		"RH2M": ` + series(60, 70, 80, 90) + `
	}}}`)

	table, err := Parse(payload)
	require.NoError(t, err)

	assert.Equal(t, []string{"PRECTOTCORR", "RH2M", "T2M"}, table.Parameters)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), table.Rows[0].Date)

	// fill value dropped, not zeroed
	_, ok := table.Rows[2].Values["T2M"]
	assert.False(t, ok)
	assert.Equal(t, 3.0, table.Rows[2].Values["PRECTOTCORR"])

	require.NotNil(t, table.Summary.MeanTemperature)
	assert.InDelta(t, 64.0/3.0, *table.Summary.MeanTemperature, 1e-9)
	assert.InDelta(t, 10.0, *table.Summary.TotalPrecipitation, 1e-9)
	assert.InDelta(t, 75.0, *table.Summary.MeanHumidity, 1e-9)
	assert.Nil(t, table.Summary.MeanWindSpeed)
	assert.Nil(t, table.Summary.MeanSolarRadiation)
	assert.Equal(t, 4, table.Summary.Days)
}

func TestParse_Trends(t *testing.T) {
	warm := make([]float64, 20)
	rain := make([]float64, 20)
	for i := range warm {
		warm[i] = 20 + float64(i)*0.2
		rain[i] = 1
	}
	rain[0] = 10

	payload := []byte(`{"properties":{"parameter":{"T2M": ` + series(warm...) + `, "PRECTOTCORR": ` + series(rain...) + `}}}`)

	table, err := Parse(payload)
	require.NoError(t, err)
	require.NotNil(t, table.Trends)
	assert.Equal(t, "increasing", table.Trends.Temperature)
	assert.Equal(t, "decreasing", table.Trends.Precipitation)
	assert.Equal(t, "high", table.Trends.DroughtRisk) // 29mm total
}

func TestParse_NoTrendsWithoutPrecipitation(t *testing.T) {
	table, err := Parse([]byte(`{"properties":{"parameter":{"T2M": ` + series(20, 21) + `}}}`))
	require.NoError(t, err)
	assert.Nil(t, table.Trends)
}

func TestParse_SchemaDrift(t *testing.T) {
	table, err := Parse([]byte(`{"header":{"title":"x"}}`))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Nil(t, table.Summary.MeanTemperature)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestAdapter_Fetch(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/temporal/daily/point", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "AG", q.Get("community"))
		assert.Equal(t, "20240501", q.Get("start"))
		assert.Equal(t, "20240531", q.Get("end"))
		assert.Equal(t, "-2.2833", q.Get("latitude"))
		assert.Equal(t, "37.8333", q.Get("longitude"))
		assert.Contains(t, q.Get("parameters"), "ALLSKY_SFC_SW_DWN")
		assert.Contains(t, q.Get("parameters"), "PRECTOTCORR")
		fmt.Fprint(w, `{"properties":{"parameter":{"T2M": `+series(25, 26)+`}}}`)
	})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewAdapter(gw).Fetch(context.Background(), contracts.Query{
		Region: contracts.RegionProfile{Key: "makueni_kenya", Point: contracts.GeoPoint{Lat: -2.2833, Lon: 37.8333}},
		Range: contracts.DateRange{
			From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
		},
	})

	require.True(t, o.OK(), o.String())
	table := o.Data.(Table)
	assert.Len(t, table.Rows, 2)
	assert.InDelta(t, 25.5, *table.Summary.MeanTemperature, 1e-9)
}

func TestAdapter_ServerError(t *testing.T) {
	srv := gatewaytest.NewServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	gw := gatewaytest.NewGateway(srv.URL, nil)
	o := NewAdapter(gw).Fetch(context.Background(), contracts.Query{
		Region: contracts.RegionProfile{Key: "x", Point: contracts.GeoPoint{}},
	})

	assert.Equal(t, contracts.KindServerError, o.Kind)
	assert.Equal(t, http.StatusBadGateway, o.StatusCode)
}
