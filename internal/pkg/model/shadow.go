package model

import (
	"strconv"
	"time"
)

const (
	ShadowAppTempData = "appTempData"
	shadowTimeLayout  = "20060102150405"
)

// ShadowUpdate is the envelope of every document exchanged on a shadow update topic.
type ShadowUpdate[T any] struct {
	State T `json:"state"`
}

type DesiredState struct {
	Desired RealtimeRequest `json:"desired"`
}

// RealtimeRequest asks a station to report telemetry of the listed devices for TimeoutM minutes.
type RealtimeRequest struct {
	Shadow    string   `json:"shadow"`
	DeviceSN  []string `json:"deviceSN"`
	Source    string   `json:"source"`
	Report    string   `json:"report"`
	ReportDst string   `json:"reportDst"`
	TimeoutM  string   `json:"timeoutM"`
	UserID    string   `json:"userId"`
	Time      string   `json:"time"`
	StationSN string   `json:"stationSN"`
}

func NewRealtimeRequest(stationSN, userID string, devices []string, timeoutMinutes int, at time.Time) ShadowUpdate[DesiredState] {
	return ShadowUpdate[DesiredState]{
		State: DesiredState{
			Desired: RealtimeRequest{
				Shadow:    ShadowAppTempData,
				DeviceSN:  devices,
				Source:    "1",
				Report:    "1",
				ReportDst: "1",
				TimeoutM:  strconv.Itoa(timeoutMinutes),
				UserID:    userID,
				Time:      at.Format(shadowTimeLayout),
				StationSN: stationSN,
			},
		},
	}
}

// ReportedState carries station fields plus per device fields under "devs".
type ReportedState struct {
	Reported map[string]any `json:"reported"`
}

const (
	ReportedStationSN = "stationSN"
	ReportedDevices   = "devs"
)

// Split separates the station serial, the station level fields and the per device fields.
func (r ReportedState) Split() (stationSN string, station map[string]any, devices map[string]map[string]any) {
	station = make(map[string]any, len(r.Reported))
	devices = map[string]map[string]any{}
	for k, v := range r.Reported {
		if k == ReportedDevices {
			children, _ := v.(map[string]any)
			for sn, fields := range children {
				if f, ok := fields.(map[string]any); ok {
					devices[sn] = f
				}
			}
			continue
		}
		station[k] = v
	}
	stationSN, _ = r.Reported[ReportedStationSN].(string)
	return stationSN, station, devices
}
