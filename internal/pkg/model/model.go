package model

import (
	"maps"
	"time"
)

// House groups stations that share one MQTT broker.
type House struct {
	ID         string              `json:"house_id"`
	Name       string              `json:"name"`
	MQTTServer string              `json:"mqtt_server"`
	MQTTRegion string              `json:"mqtt_region"`
	MQTTAuth   Credentials         `json:"-"`
	Data       map[string]any      `json:"data,omitempty"`
	Stations   map[string]*Station `json:"-"`
}

type Credentials struct {
	Username string
	Password string
}

// Station is a hub that relays the state of its child devices.
type Station struct {
	ID           string             `json:"station_id"`
	SerialNumber string             `json:"serial_number"`
	Name         string             `json:"name"`
	Type         string             `json:"type"`
	ShadowName   string             `json:"shadow_name"`
	HouseID      string             `json:"house_id"`
	Data         map[string]any     `json:"data"`
	Devices      map[string]*Device `json:"-"`
}

// DeviceBySerial returns the child device with the given serial number.
func (s *Station) DeviceBySerial(sn string) *Device {
	for _, d := range s.Devices {
		if d.SerialNumber == sn {
			return d
		}
	}
	return nil
}

// SetData replaces the attribute mapping wholesale.
func (s *Station) SetData(data map[string]any) {
	s.Data = maps.Clone(data)
	if s.Data == nil {
		s.Data = map[string]any{}
	}
}

// MergeData applies reported fields on top of the existing attributes.
func (s *Station) MergeData(data map[string]any) {
	s.Data = merge(s.Data, data)
}

func (s *Station) Clone() *Station {
	c := *s
	c.Data = maps.Clone(s.Data)
	c.Devices = make(map[string]*Device, len(s.Devices))
	for id, d := range s.Devices {
		c.Devices[id] = d.Clone()
	}
	return &c
}

// Device is a sensor or alarm unit attached to exactly one station.
type Device struct {
	ID           string         `json:"device_id"`
	SerialNumber string         `json:"serial_number"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	StationID    string         `json:"station_id"`
	Data         map[string]any `json:"data"`
}

func (d *Device) SetData(data map[string]any) {
	d.Data = maps.Clone(data)
	if d.Data == nil {
		d.Data = map[string]any{}
	}
}

// MergeData applies a partial shadow delta, leaving unreported fields untouched.
func (d *Device) MergeData(data map[string]any) {
	d.Data = merge(d.Data, data)
}

func (d *Device) Clone() *Device {
	c := *d
	c.Data = maps.Clone(d.Data)
	return &c
}

func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	maps.Copy(dst, src)
	return dst
}

// Snapshot is the merged view of every station and device at one point in time.
type Snapshot struct {
	Stations      map[string]*Station `json:"stations"`
	Devices       map[string]*Device  `json:"devices"`
	LastRefreshed time.Time           `json:"last_refreshed"`
}

// NewSnapshot flattens the topology of the given houses.
func NewSnapshot(houses []*House, refreshed time.Time) *Snapshot {
	snap := &Snapshot{
		Stations:      map[string]*Station{},
		Devices:       map[string]*Device{},
		LastRefreshed: refreshed,
	}
	for _, h := range houses {
		for id, s := range h.Stations {
			snap.Stations[id] = s
			for devID, d := range s.Devices {
				snap.Devices[devID] = d
			}
		}
	}
	return snap
}

// Clone returns a deep copy that is safe to read without holding the coordinator lock.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Stations:      make(map[string]*Station, len(s.Stations)),
		Devices:       make(map[string]*Device, len(s.Devices)),
		LastRefreshed: s.LastRefreshed,
	}
	for id, st := range s.Stations {
		cs := st.Clone()
		c.Stations[id] = cs
		for devID, d := range cs.Devices {
			c.Devices[devID] = d
		}
	}
	// devices whose station is missing are still copied so callers can detect it.
	for id, d := range s.Devices {
		if _, ok := c.Devices[id]; !ok {
			c.Devices[id] = d.Clone()
		}
	}
	return c
}
