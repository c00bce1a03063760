package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

// Write publishes the state and attributes of every entity.
func (s *service) Write(ctx context.Context, states []model.EntityState) error {
	for _, st := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.PublishState(st); err != nil {
			return err
		}
	}
	return nil
}

// RegisterEntity publishes the retained discovery config of an entity once per connection.
func (s *service) RegisterEntity(state model.EntityState) error {
	s.mu.Lock()
	_, exists := s.configured[state.UniqueID]
	s.mu.Unlock()
	if exists {
		return nil
	}

	payload, err := json.Marshal(s.registerMsg(state))
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/binary_sensor/%s/config", s.discoveryPrefix, state.UniqueID)
	if err := s.publish(topic, 1, true, payload); err != nil {
		return err
	}

	s.mu.Lock()
	s.configured[state.UniqueID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// PublishState publishes the availability, state and attributes of an entity. An
// entity whose station or device has left the account is only marked offline.
func (s *service) PublishState(state model.EntityState) error {
	base := s.entityTopic(state.UniqueID)
	if !state.Available {
		return s.publish(base+"/availability", 0, true, availabilityOffline)
	}
	if err := s.publish(base+"/availability", 0, true, availabilityOnline); err != nil {
		return err
	}
	if err := s.publish(base+"/state", 0, true, state.Value()); err != nil {
		return err
	}

	attrs, err := json.Marshal(model.StateAttributes{
		LastRefreshed: state.LastRefreshed.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.publish(base+"/attributes", 0, true, attrs)
}

func (s *service) entityTopic(uniqueID string) string {
	return fmt.Sprintf("%s/%s", s.topicPrefix, uniqueID)
}

func (s *service) registerMsg(state model.EntityState) model.RegisterMessage {
	dev := model.RegisterDevice{
		Name:         state.Device.Name,
		Identifiers:  []string{deviceIdentifier(state.Device)},
		Model:        state.Device.Model,
		Manufacturer: "X-Sense",
		ViaDevice:    state.Device.StationSerial,
	}
	return model.RegisterMessage{
		Tilda:           s.entityTopic(state.UniqueID),
		Name:            state.Name,
		ID:              state.UniqueID,
		StateTopic:      "~/state",
		AttributesTopic: "~/attributes",
		Availability: []model.Availability{
			{Topic: availabilityTopic(s.topicPrefix)},
			{Topic: s.entityTopic(state.UniqueID) + "/availability"},
		},
		AvailabilityMode: "all",
		PayloadOn:        model.StateOn,
		PayloadOff:       model.StateOff,
		DeviceClass:      state.DeviceClass,
		EntityCategory:   state.EntityCategory,
		Icon:             state.Icon,
		Device:           dev,
	}
}

// deviceIdentifier scopes a device serial to its station, station serials are used as is.
func deviceIdentifier(d model.EntityDevice) string {
	if d.StationSerial == "" {
		return d.SerialNumber
	}
	return d.StationSerial + "_" + d.SerialNumber
}
