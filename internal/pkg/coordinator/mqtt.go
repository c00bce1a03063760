package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/xsense-integration/internal/pkg/metrics"
	"github.com/anicoll/xsense-integration/internal/pkg/model"
	"github.com/anicoll/xsense-integration/internal/pkg/shadow"
)

// EnsureMQTT returns the broker of the house, creating it on first use, and connects
// it when it is not connected. The broker is returned even when connecting fails.
func (c *Coordinator) EnsureMQTT(ctx context.Context, house *model.House) (Broker, error) {
	c.brokerMu.Lock()
	broker, ok := c.brokers[house.MQTTServer]
	if !ok {
		broker = c.newBroker(house)
		c.brokers[house.MQTTServer] = broker
		c.logger.Debug("created shadow broker", zap.String("mqtt_server", house.MQTTServer))
	}
	c.brokerMu.Unlock()

	if broker.Connected() {
		return broker, nil
	}
	if err := broker.Connect(ctx); err != nil {
		metrics.SetBrokerConnected(house.MQTTServer, false)
		return broker, err
	}
	metrics.SetBrokerConnected(house.MQTTServer, broker.Connected())
	return broker, nil
}

// ShadowTopics lists every topic a house needs: house events and shadow updates, and
// shadow updates plus presence of each station.
func ShadowTopics(house *model.House) []string {
	topics := []string{
		shadow.HouseEvents(house.ID),
		shadow.HouseShadowUpdates(house.ID),
	}
	for _, s := range sortedStations(house) {
		topics = append(topics,
			shadow.StationShadowUpdates(s.ShadowName),
			shadow.StationPresence(s.ShadowName),
		)
	}
	return topics
}

// EnsureSubscriptions subscribes to every topic of the house that is not subscribed yet.
func (c *Coordinator) EnsureSubscriptions(house *model.House) error {
	broker := c.broker(house.MQTTServer)
	if broker == nil {
		c.logger.Error("unknown mqtt server", zap.String("mqtt_server", house.MQTTServer))
		return fmt.Errorf("%w: %s", ErrUnknownBroker, house.MQTTServer)
	}

	var errs []error
	for _, topic := range ShadowTopics(house) {
		if broker.IsSubscribed(topic) {
			continue
		}
		if err := broker.Subscribe(topic, shadow.DefaultQoS, c.HandleMessage); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		c.logger.Debug("subscribed", zap.String("topic", topic))
	}
	return errors.Join(errs...)
}

// RealtimeSerials returns the sorted serials of the station's devices that support
// realtime telemetry.
func (c *Coordinator) RealtimeSerials(station *model.Station) []string {
	serials := lo.FilterMap(lo.Values(station.Devices), func(d *model.Device, _ int) (string, bool) {
		return d.SerialNumber, slices.Contains(c.opts.RealtimeTypes, model.DeviceType(d.Type))
	})
	slices.Sort(serials)
	return serials
}

// RequestRealtimeUpdates publishes a desired appTempData document for every station
// of the house that has realtime capable devices.
func (c *Coordinator) RequestRealtimeUpdates(house *model.House) error {
	broker := c.broker(house.MQTTServer)
	if broker == nil {
		return fmt.Errorf("%w: %s", ErrUnknownBroker, house.MQTTServer)
	}

	at := c.requestTime()
	userID := c.cloud.UserID()

	var errs []error
	for _, s := range sortedStations(house) {
		serials := c.RealtimeSerials(s)
		if len(serials) == 0 {
			continue
		}
		payload, err := json.Marshal(model.NewRealtimeRequest(s.SerialNumber, userID, serials, c.opts.RealtimeTimeout, at))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		topic := shadow.RealtimeRequest(s.ShadowName)
		if err := broker.Publish(topic, payload, shadow.DefaultQoS, false); err != nil {
			metrics.IncRealtimeRequest(metrics.ResultError)
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
			continue
		}
		metrics.IncRealtimeRequest(metrics.ResultSuccess)
		c.logger.Debug("requested realtime updates", zap.String("station_sn", s.SerialNumber), zap.Strings("devices", serials))
	}
	return errors.Join(errs...)
}

// requestTime never goes backwards, even if the wall clock does.
func (c *Coordinator) requestTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.now()
	if at.Before(c.lastRequest) {
		at = c.lastRequest
	}
	c.lastRequest = at
	return at
}
