package isapi

import "encoding/xml"

const (
	pathDeviceInfo  = "/ISAPI/System/deviceInfo"
	pathResetCount  = "/ISAPI/System/Video/inputs/channels/1/counting/resetCount"
	pathAlertStream = "/ISAPI/Event/notification/alertStream"

	eventTypePeopleCounting = "PeopleCounting"

	statusCodeOK = 1
)

type DeviceInfo struct {
	XMLName      xml.Name `xml:"DeviceInfo"`
	DeviceName   string   `xml:"deviceName"`
	DeviceID     string   `xml:"deviceID"`
	Model        string   `xml:"model"`
	SerialNumber string   `xml:"serialNumber"`
	Firmware     string   `xml:"firmwareVersion"`
}

type ResponseStatus struct {
	XMLName       xml.Name `xml:"ResponseStatus"`
	RequestURL    string   `xml:"requestURL"`
	StatusCode    int      `xml:"statusCode"`
	StatusString  string   `xml:"statusString"`
	SubStatusCode string   `xml:"subStatusCode"`
}

type PeopleCounting struct {
	StatisticalMethods string `xml:"statisticalMethods"`
	Enter              int64  `xml:"enter"`
	Exit               int64  `xml:"exit"`
}

type EventNotificationAlert struct {
	XMLName          xml.Name        `xml:"EventNotificationAlert"`
	IPAddress        string          `xml:"ipAddress"`
	PortNo           int             `xml:"portNo"`
	ChannelID        int             `xml:"channelID"`
	DateTime         string          `xml:"dateTime"`
	EventType        string          `xml:"eventType"`
	EventState       string          `xml:"eventState"`
	EventDescription string          `xml:"eventDescription"`
	PeopleCounting   *PeopleCounting `xml:"peopleCounting"`
}
