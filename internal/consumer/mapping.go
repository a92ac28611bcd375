package consumer

import (
	"fmt"
	"strings"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"
)

var auxRequestTypes = map[string]models.RequestType{
	"aux1": models.RequestDND,
	"aux2": models.RequestLights,
	"aux3": models.RequestPrepareFood,
	"aux4": models.RequestBringDrinks,
}

// MapButtonPress derives priority and request type from the button and
// gesture. Shake or an explicit emergency flag means emergency; long press
// is a voice request; aux buttons map to their service; double tap on the
// main button is urgent.
func MapButtonPress(press models.ButtonPress, locationName string, guest *models.Guest) request.CreateInput {
	priority := models.PriorityNormal
	requestType := models.RequestCall

	switch {
	case press.PressType == models.PressShake:
		priority = models.PriorityEmergency
		requestType = models.RequestEmergency
	case press.PressType == models.PressLong:
		requestType = models.RequestVoice
	case auxRequestTypes[press.Button] != "":
		requestType = auxRequestTypes[press.Button]
	case press.PressType == models.PressDouble:
		priority = models.PriorityUrgent
	}

	in := request.CreateInput{
		GuestName:   "Guest",
		LocationID:  press.LocationID,
		GuestCabin:  locationName,
		Priority:    priority,
		Emergency:   press.Emergency,
		RequestType: requestType,
		DeviceID:    press.DeviceID,
	}
	if in.GuestCabin == "" {
		in.GuestCabin = press.Cabin
	}
	if in.GuestCabin == "" {
		in.GuestCabin = "Unknown"
	}
	if guest != nil {
		id := guest.ID
		in.GuestID = &id
		in.GuestName = guest.Label()
	}
	in.Notes = deviceNotes(press, in.GuestCabin)
	return in
}

func deviceNotes(press models.ButtonPress, where string) string {
	button := press.Button
	if button == "" {
		button = "main"
	}
	pressType := string(press.PressType)
	if pressType == "" {
		pressType = string(models.PressSingle)
	}
	firmware := press.Firmware
	if firmware == "" {
		firmware = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Service requested from %s\n\nDevice Details:", where)
	fmt.Fprintf(&b, "\n- Button: %s", button)
	fmt.Fprintf(&b, "\n- Press Type: %s", pressType)
	fmt.Fprintf(&b, "\n- Battery: %s", orUnknown(press.Battery, "%"))
	fmt.Fprintf(&b, "\n- Signal: %s", orUnknown(press.RSSI, " dBm"))
	fmt.Fprintf(&b, "\n- Firmware: %s", firmware)
	return b.String()
}

func orUnknown(v int, unit string) string {
	if v == 0 {
		return "unknown" + unit
	}
	return fmt.Sprintf("%d%s", v, unit)
}
