package aggregator

import (
	"github.com/orunio/climate/backend/internal/external/copernicus"
	"github.com/orunio/climate/backend/internal/external/nasa"
	"github.com/orunio/climate/backend/internal/external/noaa"
	"github.com/orunio/climate/backend/internal/external/osm"
	"github.com/orunio/climate/backend/internal/external/power"
	"github.com/orunio/climate/backend/internal/external/sentinel"
	"github.com/orunio/climate/backend/internal/external/worldbank"
	"github.com/orunio/climate/backend/internal/gateway"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

// DefaultSources returns every adapter in report order.
// cache may be nil.
func DefaultSources(gw gateway.Caller, log *logger.Logger, cache *redis.Cache) []Source {
	wb := worldbank.NewAdapter(gw, log)
	if cache != nil {
		wb = wb.WithCache(cache)
	}

	return []Source{
		nasa.NewImageryAdapter(gw),
		nasa.NewEPICAdapter(gw),
		nasa.NewLibraryAdapter(gw),
		power.NewAdapter(gw),
		wb,
		osm.NewAdapter(gw),
		sentinel.NewAdapter(gw),
		copernicus.NewAdapter(gw),
		noaa.NewAdapter(gw, log),
	}
}
