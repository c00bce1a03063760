package model

import "time"

// EntityState is what a binary sensor reports at one point in time, together with
// the metadata needed to announce it.
type EntityState struct {
	UniqueID       string         `json:"unique_id"`
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	On             bool           `json:"on"`
	Available      bool           `json:"available"`
	DeviceClass    DeviceClass    `json:"device_class,omitempty"`
	EntityCategory EntityCategory `json:"entity_category,omitempty"`
	Icon           string         `json:"icon,omitempty"`
	LastRefreshed  time.Time      `json:"last_refreshed"`
	Device         EntityDevice   `json:"device"`
}

// EntityDevice identifies the physical unit an entity belongs to.
type EntityDevice struct {
	SerialNumber  string `json:"serial_number"`
	Name          string `json:"name"`
	Model         string `json:"model"`
	StationSerial string `json:"station_serial,omitempty"`
}

func (es EntityState) Value() string {
	if es.On {
		return StateOn
	}
	return StateOff
}

// StateRecord is a stored state transition of an entity.
type StateRecord struct {
	ID         int64     `json:"id"`
	UniqueID   string    `json:"unique_id"`
	Key        string    `json:"key"`
	On         bool      `json:"on"`
	RecordedAt time.Time `json:"recorded_at"`
}
