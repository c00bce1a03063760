package entity

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// Description is the static part of a binary sensor: how it is shown and how its
// value is read from the attributes of a station or device.
type Description struct {
	Key         string
	Name        string
	Icon        string
	DeviceClass model.DeviceClass
	Category    model.EntityCategory
	Exists      func(data map[string]any) bool
	Value       func(data map[string]any) bool
}

// Descriptions apply to stations and devices alike.
var Descriptions = []Description{
	{
		Key:         "is_life_end",
		Name:        "End of life",
		Icon:        "mdi:timelapse",
		DeviceClass: model.DeviceClassProblem,
		Category:    model.EntityCategoryDiagnostic,
		Exists:      has("isLifeEnd"),
		Value: func(data map[string]any) bool {
			return equalsNumber(data["isLifeEnd"], 1)
		},
	},
	{
		Key:      "alarm_status",
		Name:     "Alarm status",
		Icon:     "mdi:alarm-light-outline",
		Category: model.EntityCategoryDiagnostic,
		Exists:   has("alarmStatus"),
		Value:    truthyKey("alarmStatus"),
	},
	{
		Key:      "mute_status",
		Name:     "Mute status",
		Icon:     "mdi:alarm-light-off",
		Category: model.EntityCategoryDiagnostic,
		Exists:   has("muteStatus"),
		Value:    truthyKey("muteStatus"),
	},
	{
		Key:    "activate",
		Name:   "Activated",
		Icon:   "mdi:bell-ring",
		Exists: has("activate"),
		Value:  truthyKey("activate"),
	},
	{
		Key:         "door",
		Name:        "Door",
		DeviceClass: model.DeviceClassDoor,
		Exists:      has("isOpen"),
		Value: func(data map[string]any) bool {
			s, ok := data["isOpen"].(string)
			return ok && s == "1"
		},
	},
}

// ConnectivityDescription is only attached to stations. Its value comes from the
// shadow broker, not from the attributes.
var ConnectivityDescription = Description{
	Key:         "connected",
	Name:        "Connected",
	Icon:        "mdi:connection",
	DeviceClass: model.DeviceClassConnectivity,
	Category:    model.EntityCategoryDiagnostic,
}

// DescriptionByKey looks up a description, including the connectivity one.
func DescriptionByKey(key string) (Description, bool) {
	if key == ConnectivityDescription.Key {
		return ConnectivityDescription, true
	}
	for _, d := range Descriptions {
		if d.Key == key {
			return d, true
		}
	}
	return Description{}, false
}

func has(key string) func(map[string]any) bool {
	return func(data map[string]any) bool {
		_, ok := data[key]
		return ok
	}
}

func truthyKey(key string) func(map[string]any) bool {
	return func(data map[string]any) bool {
		return Truthy(data[key])
	}
}

// Truthy interprets a reported attribute as a flag. Zero numbers, empty strings,
// "0" and "false" are off. Numeric strings are parsed first, so "0" is off even
// though a plain non-empty check would call it on.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "false") {
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	default:
		return true
	}
}

func equalsNumber(v any, want float64) bool {
	switch t := v.(type) {
	case float64:
		return t == want
	case int:
		return float64(t) == want
	case int64:
		return float64(t) == want
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == want
	default:
		return false
	}
}
