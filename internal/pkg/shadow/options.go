package shadow

import (
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/anicoll/xsense-integration/internal/pkg/model"
)

const (
	DefaultQoS byte = 0

	defaultConnectTimeout    = 10 * time.Second
	defaultOperationTimeout  = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 30 * time.Second
	maxReconnectInterval     = 2 * time.Minute
)

// BrokerURL turns the bare host name handed out by the cloud into a websocket URL.
// Values that already carry a scheme are used as is.
func BrokerURL(server string) string {
	if strings.Contains(server, "://") {
		return server
	}
	return "wss://" + server + ":443/mqtt"
}

func buildClientOptions(house *model.House, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(house.MQTTServer))
	opts.SetClientID(clientID)
	if house.MQTTAuth.Username != "" {
		opts.SetUsername(house.MQTTAuth.Username)
		opts.SetPassword(house.MQTTAuth.Password)
	}
	opts.SetCleanSession(true)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	// handlers may run concurrently. The snapshot has its own lock and state
	// listeners publish one at a time.
	opts.SetOrderMatters(false)
	return opts
}
