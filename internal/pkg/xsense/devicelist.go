package xsense

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// LoadAll returns the full house/station/device topology of the account.
func (c *client) LoadAll(ctx context.Context) ([]*model.House, error) {
	res := housesResponse{}
	if err := c.do(ctx, http.MethodGet, "/houses", nil, &res, true); err != nil {
		return nil, err
	}

	houses := make([]*model.House, 0, len(res.Houses))
	for _, h := range res.Houses {
		house := &model.House{
			ID:         h.HouseID,
			Name:       h.HouseName,
			MQTTServer: h.MQTTServer,
			MQTTRegion: h.MQTTRegion,
			MQTTAuth: model.Credentials{
				Username: h.MQTTUser,
				Password: h.MQTTPass,
			},
			Data:     map[string]any{},
			Stations: make(map[string]*model.Station, len(h.Stations)),
		}
		for _, s := range h.Stations {
			station := &model.Station{
				ID:           s.StationID,
				SerialNumber: s.StationSN,
				Name:         s.StationName,
				Type:         s.Category,
				ShadowName:   s.ShadowName,
				HouseID:      h.HouseID,
				Data:         map[string]any{},
				Devices:      make(map[string]*model.Device, len(s.Devices)),
			}
			if station.ShadowName == "" {
				station.ShadowName = s.Category + s.StationSN
			}
			for _, d := range s.Devices {
				if station.DeviceBySerial(d.DeviceSN) != nil {
					c.logger.Warn("duplicate device serial in station, skipping", zap.String("station_sn", s.StationSN), zap.String("device_sn", d.DeviceSN))
					continue
				}
				station.Devices[d.DeviceID] = &model.Device{
					ID:           d.DeviceID,
					SerialNumber: d.DeviceSN,
					Name:         d.DeviceName,
					Type:         d.DeviceType,
					StationID:    s.StationID,
					Data:         map[string]any{},
				}
			}
			house.Stations[s.StationID] = station
		}
		houses = append(houses, house)
	}
	c.logger.Debug("loaded topology", zap.Int("houses", len(houses)))
	return houses, nil
}
