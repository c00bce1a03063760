package entity

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/samber/lo"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// Source is the read side of the coordinator that entities are backed by.
type Source interface {
	Snapshot() *model.Snapshot
	Station(id string) (*model.Station, bool)
	Device(id string) (*model.Device, bool)
	BrokerConnected(stationID string) bool
	LastRefreshed() time.Time
}

type Kind string

const (
	KindStation Kind = "station"
	KindDevice  Kind = "device"
)

type Entity interface {
	UniqueID() string
	Key() string
	IsOn() bool
	// Available is false once the station or device has left the snapshot.
	Available() bool
	State() model.EntityState
}

// UniqueID derives a stable entity id from the serial number and description key.
func UniqueID(serial, key string) string {
	return strings.ReplaceAll(slug.Make(serial+" "+key), "-", "_")
}

type base struct {
	src    Source
	desc   Description
	kind   Kind
	id     string
	device model.EntityDevice
}

// UniqueID is scoped to the station for devices, whose serials are only unique
// within one station.
func (b *base) UniqueID() string {
	if b.kind == KindDevice && b.device.StationSerial != "" {
		return UniqueID(b.device.StationSerial+" "+b.device.SerialNumber, b.desc.Key)
	}
	return UniqueID(b.device.SerialNumber, b.desc.Key)
}

func (b *base) Key() string {
	return b.desc.Key
}

func (b *base) state(on, available bool) model.EntityState {
	return model.EntityState{
		UniqueID:       b.UniqueID(),
		Key:            b.desc.Key,
		Name:           b.desc.Name,
		On:             on,
		Available:      available,
		DeviceClass:    b.desc.DeviceClass,
		EntityCategory: b.desc.Category,
		Icon:           b.desc.Icon,
		LastRefreshed:  b.src.LastRefreshed(),
		Device:         b.device,
	}
}

// BinarySensor reads one flag of a station or device from the current snapshot.
type BinarySensor struct {
	base
}

func NewStationSensor(src Source, desc Description, station *model.Station) *BinarySensor {
	return &BinarySensor{base{
		src:    src,
		desc:   desc,
		kind:   KindStation,
		id:     station.ID,
		device: stationDevice(station),
	}}
}

func NewDeviceSensor(src Source, desc Description, device *model.Device, station *model.Station) *BinarySensor {
	return &BinarySensor{base{
		src:    src,
		desc:   desc,
		kind:   KindDevice,
		id:     device.ID,
		device: deviceDevice(device, station),
	}}
}

func (s *BinarySensor) data() (map[string]any, bool) {
	if s.kind == KindStation {
		st, ok := s.src.Station(s.id)
		if !ok {
			return nil, false
		}
		return st.Data, true
	}
	d, ok := s.src.Device(s.id)
	if !ok {
		return nil, false
	}
	return d.Data, true
}

func (s *BinarySensor) IsOn() bool {
	data, ok := s.data()
	if !ok || s.desc.Value == nil {
		return false
	}
	return s.desc.Value(data)
}

func (s *BinarySensor) Available() bool {
	_, ok := s.data()
	return ok
}

func (s *BinarySensor) State() model.EntityState {
	return s.state(s.IsOn(), s.Available())
}

// Connectivity reports whether the shadow broker of the station's house is connected.
type Connectivity struct {
	base
}

func NewConnectivity(src Source, station *model.Station) *Connectivity {
	return &Connectivity{base{
		src:    src,
		desc:   ConnectivityDescription,
		kind:   KindStation,
		id:     station.ID,
		device: stationDevice(station),
	}}
}

func (c *Connectivity) IsOn() bool {
	return c.src.BrokerConnected(c.id)
}

func (c *Connectivity) Available() bool {
	_, ok := c.src.Station(c.id)
	return ok
}

func (c *Connectivity) State() model.EntityState {
	return c.state(c.IsOn(), c.Available())
}

// Discover enumerates the entities of the current snapshot: for every station the
// descriptions whose attribute exists plus its connectivity entity, and for every
// device the descriptions whose attribute exists. Order is stable.
func Discover(src Source) []Entity {
	snap := src.Snapshot()
	var out []Entity

	for _, s := range sortedByID(snap.Stations) {
		for _, desc := range Descriptions {
			if desc.Exists(s.Data) {
				out = append(out, NewStationSensor(src, desc, s))
			}
		}
		out = append(out, NewConnectivity(src, s))
	}

	for _, d := range sortedByID(snap.Devices) {
		station := snap.Stations[d.StationID]
		for _, desc := range Descriptions {
			if desc.Exists(d.Data) {
				out = append(out, NewDeviceSensor(src, desc, d, station))
			}
		}
	}
	return out
}

// States reads every entity once.
func States(entities []Entity) []model.EntityState {
	return lo.Map(entities, func(e Entity, _ int) model.EntityState {
		return e.State()
	})
}

// Tracker keeps every entity discovered so far, so one whose station or device
// leaves the account is still reported as unavailable instead of vanishing.
type Tracker struct {
	src Source

	mu    sync.Mutex
	known map[string]Entity
	order []string
}

func NewTracker(src Source) *Tracker {
	return &Tracker{src: src, known: map[string]Entity{}}
}

// States discovers the entities of the current snapshot and reads every known entity
// in the order it was first seen.
func (t *Tracker) States() []model.EntityState {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range Discover(t.src) {
		id := e.UniqueID()
		if _, ok := t.known[id]; !ok {
			t.order = append(t.order, id)
		}
		t.known[id] = e
	}
	return States(lo.Map(t.order, func(id string, _ int) Entity {
		return t.known[id]
	}))
}

func stationDevice(s *model.Station) model.EntityDevice {
	return model.EntityDevice{
		SerialNumber: s.SerialNumber,
		Name:         lo.Ternary(s.Name != "", s.Name, s.SerialNumber),
		Model:        s.Type,
	}
}

func deviceDevice(d *model.Device, station *model.Station) model.EntityDevice {
	ed := model.EntityDevice{
		SerialNumber: d.SerialNumber,
		Name:         lo.Ternary(d.Name != "", d.Name, d.SerialNumber),
		Model:        d.Type,
	}
	if station != nil {
		ed.StationSerial = station.SerialNumber
	}
	return ed
}

func sortedByID[T any](m map[string]T) []T {
	ids := lo.Keys(m)
	slices.Sort(ids)
	return lo.Map(ids, func(id string, _ int) T { return m[id] })
}
