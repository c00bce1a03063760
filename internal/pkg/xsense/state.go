package xsense

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// HouseState fetches house level fields. Houses without state answer ErrNotFound.
func (c *client) HouseState(ctx context.Context, house *model.House) error {
	data := map[string]any{}
	if err := c.do(ctx, http.MethodGet, "/houses/"+url.PathEscape(house.ID)+"/state", nil, &data, true); err != nil {
		return err
	}
	house.Data = data
	return nil
}

// StationState replaces the attributes of the station with the reported ones.
func (c *client) StationState(ctx context.Context, station *model.Station) error {
	data := map[string]any{}
	if err := c.do(ctx, http.MethodGet, "/stations/"+url.PathEscape(station.ID)+"/state", nil, &data, true); err != nil {
		return err
	}
	station.SetData(data)
	return nil
}

// DeviceStates fetches the state of every child device of the station. Serials the
// station does not know are ignored.
func (c *client) DeviceStates(ctx context.Context, station *model.Station) error {
	res := deviceStatesResponse{}
	if err := c.do(ctx, http.MethodGet, "/stations/"+url.PathEscape(station.ID)+"/devices/state", nil, &res, true); err != nil {
		return err
	}
	for sn, fields := range res.Devices {
		if dev := station.DeviceBySerial(sn); dev != nil {
			dev.SetData(fields)
		}
	}
	return nil
}
