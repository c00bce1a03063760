package coordinator

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/metrics"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// HandleMessage merges a shadow report into the snapshot and notifies listeners
// straight away. Station fields and per device fields are merged, never replaced.
func (c *Coordinator) HandleMessage(topic string, payload []byte) error {
	msg := model.ShadowUpdate[model.ReportedState]{}
	if err := json.Unmarshal(payload, &msg); err != nil {
		metrics.IncShadowMessage(metrics.ResultError)
		return fmt.Errorf("decode shadow message on %s: %w", topic, err)
	}
	stationSN, fields, devices := msg.State.Split()

	c.mu.Lock()
	station := c.stationBySerial(stationSN)
	if station != nil {
		station.MergeData(fields)
		for sn, f := range devices {
			if dev := station.DeviceBySerial(sn); dev != nil {
				dev.MergeData(f)
			}
		}
	}
	c.mu.Unlock()

	if station != nil {
		metrics.IncShadowMessage(metrics.ResultSuccess)
		c.logger.Debug("applied shadow report", zap.String("topic", topic), zap.String("station_sn", stationSN), zap.Int("devices", len(devices)))
	} else {
		metrics.IncShadowMessage(metrics.ResultIgnored)
		c.logger.Debug("shadow message without known station", zap.String("topic", topic))
	}

	c.notify()
	return nil
}

// stationBySerial must be called with c.mu held.
func (c *Coordinator) stationBySerial(sn string) *model.Station {
	if sn == "" {
		return nil
	}
	for _, s := range c.snapshot.Stations {
		if s.SerialNumber == sn {
			return s
		}
	}
	return nil
}
