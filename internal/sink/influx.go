package sink

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/config"
)

// Measurements
const (
	MeasurementIndex    = "satellite_index"
	MeasurementCoverage = "aggregate_coverage"
)

// InfluxWriter writes index observations and run coverage as points
type InfluxWriter struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
}

// NewInfluxWriter creates a blocking writer for the configured bucket
func NewInfluxWriter(cfg config.InfluxConfig) *InfluxWriter {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxWriter{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
	}
}

// Name implements Sink
func (w *InfluxWriter) Name() string { return "influx:" + w.bucket }

// PublishRecord writes one coverage point per run
func (w *InfluxWriter) PublishRecord(ctx context.Context, rec contracts.AggregateRecord) error {
	p := influxdb2.NewPoint(MeasurementCoverage,
		map[string]string{
			"region": rec.Region.Key,
			"kind":   string(rec.Region.Kind),
		},
		map[string]interface{}{
			"available": len(rec.Available()),
			"skipped":   len(rec.Skipped()),
			"failed":    len(rec.Failed()),
			"coverage":  rec.Coverage(),
			"run_id":    rec.RunID,
		},
		rec.Timestamp,
	)
	if err := w.writeAPI.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write coverage point: %w", err)
	}
	return nil
}

// PublishSeries writes one point per observation
func (w *InfluxWriter) PublishSeries(ctx context.Context, region string, s contracts.IndexTimeSeries) error {
	if s.Len() == 0 {
		return nil
	}
	if err := w.writeAPI.WritePoint(ctx, SeriesPoints(region, s)...); err != nil {
		return fmt.Errorf("write %s points: %w", s.Index, err)
	}
	return nil
}

// Close releases the client
func (w *InfluxWriter) Close() error {
	w.client.Close()
	return nil
}

// SeriesPoints converts a series into index points tagged by region
func SeriesPoints(region string, s contracts.IndexTimeSeries) []*write.Point {
	points := make([]*write.Point, 0, s.Len())
	for _, obs := range s.Points {
		points = append(points, influxdb2.NewPoint(MeasurementIndex,
			map[string]string{
				"region": region,
				"index":  s.Index,
			},
			map[string]interface{}{
				"value":       obs.Value,
				"cloud_cover": obs.CloudCover,
			},
			obs.Date,
		))
	}
	return points
}
