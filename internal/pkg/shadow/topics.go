package shadow

import "fmt"

// HouseEvents carries alarm events of every station in the house.
func HouseEvents(houseID string) string {
	return fmt.Sprintf("@xsense/events/+/%s", houseID)
}

func HouseShadowUpdates(houseID string) string {
	return fmt.Sprintf("$aws/things/%s/shadow/name/+/update", houseID)
}

func StationShadowUpdates(shadowName string) string {
	return fmt.Sprintf("$aws/things/%s/shadow/name/+/update", shadowName)
}

// StationPresence reports connect/disconnect of a station to the broker.
func StationPresence(shadowName string) string {
	return fmt.Sprintf("$aws/events/presence/+/%s", shadowName)
}

// RealtimeRequest is where desired appTempData documents are published.
func RealtimeRequest(shadowName string) string {
	return fmt.Sprintf("$aws/things/%s/shadow/name/2nd_apptempdata/update", shadowName)
}
