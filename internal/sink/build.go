package sink

import (
	"github.com/orunio/climate/backend/pkg/config"
	"github.com/orunio/climate/backend/pkg/logger"
)

// FromConfig builds the enabled sinks; the result may be empty
func FromConfig(cfg *config.Config, log *logger.Logger) *Multi {
	var sinks []Sink
	if cfg.Kafka.Enabled {
		sinks = append(sinks, NewKafkaPublisher(cfg.Kafka))
	}
	if cfg.Influx.Enabled {
		sinks = append(sinks, NewInfluxWriter(cfg.Influx))
	}
	return NewMulti(log, sinks...)
}
