package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

type Availability struct {
	Topic string `json:"topic"`
}

// RegisterMessage is the Home Assistant MQTT discovery payload of a binary sensor.
type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	AttributesTopic   string         `json:"json_attributes_topic"`
	Availability      []Availability `json:"availability"`
	AvailabilityMode  string         `json:"availability_mode"`
	PayloadOn         string         `json:"payload_on"`
	PayloadOff        string         `json:"payload_off"`
	DeviceClass       DeviceClass    `json:"device_class,omitempty"`
	EntityCategory    EntityCategory `json:"entity_category,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	Device            RegisterDevice `json:"device"`
}

type StateAttributes struct {
	LastRefreshed string `json:"last_refreshed"`
}
