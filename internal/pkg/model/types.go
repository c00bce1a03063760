package model

type DeviceType string

func (dt DeviceType) String() string {
	return string(dt)
}

const (
	DeviceTypeSTH51 DeviceType = "STH51" // temperature/humidity sensor
	DeviceTypeSTH0A DeviceType = "STH0A" // temperature/humidity sensor
)

// RealtimeDeviceTypes support on demand telemetry through a desired shadow document.
var RealtimeDeviceTypes = []DeviceType{
	DeviceTypeSTH51,
	DeviceTypeSTH0A,
}

type DeviceClass string

const (
	DeviceClassNone         DeviceClass = ""
	DeviceClassProblem      DeviceClass = "problem"
	DeviceClassDoor         DeviceClass = "door"
	DeviceClassConnectivity DeviceClass = "connectivity"
)

type EntityCategory string

const (
	EntityCategoryNone       EntityCategory = ""
	EntityCategoryDiagnostic EntityCategory = "diagnostic"
	EntityCategoryConfig     EntityCategory = "config"
)

const (
	StateOn  = "ON"
	StateOff = "OFF"
)
