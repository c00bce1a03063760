package xsense

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type housesResponse struct {
	Houses []houseObject `json:"houses"`
}

type houseObject struct {
	HouseID    string          `json:"houseId"`
	HouseName  string          `json:"houseName"`
	MQTTServer string          `json:"mqttServer"`
	MQTTRegion string          `json:"mqttRegion"`
	MQTTUser   string          `json:"mqttUser"`
	MQTTPass   string          `json:"mqttPass"`
	Stations   []stationObject `json:"stations"`
}

type stationObject struct {
	StationID   string         `json:"stationId"`
	StationSN   string         `json:"stationSn"`
	StationName string         `json:"stationName"`
	Category    string         `json:"category"`
	ShadowName  string         `json:"shadowName"`
	Devices     []deviceObject `json:"devices"`
}

type deviceObject struct {
	DeviceID   string `json:"deviceId"`
	DeviceSN   string `json:"deviceSn"`
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType"`
}

type deviceStatesResponse struct {
	Devices map[string]map[string]any `json:"devs"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
