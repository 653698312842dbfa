package models

import "strings"

// Нормализованные статусы трекинга (полный набор TrackQL).
const (
	StatusUnknown             = "UNKNOWN"
	StatusInformationReceived = "INFORMATION_RECEIVED"
	StatusAtPickup            = "AT_PICKUP"
	StatusInTransit           = "IN_TRANSIT"
	StatusOutForDelivery      = "OUT_FOR_DELIVERY"
	StatusAttemptFail         = "ATTEMPT_FAIL"
	StatusDelivered           = "DELIVERED"
	StatusAvailableForPickup  = "AVAILABLE_FOR_PICKUP"
	StatusException           = "EXCEPTION"
)

var statusPrettyNames = map[string]string{
	StatusUnknown:             "Unknown",
	StatusInformationReceived: "Information Received",
	StatusAtPickup:            "At Pickup",
	StatusInTransit:           "In Transit",
	StatusOutForDelivery:      "Out for Delivery",
	StatusAttemptFail:         "Delivery Attempt Failed",
	StatusDelivered:           "Delivered",
	StatusAvailableForPickup:  "Available for Pickup",
	StatusException:           "Exception",
}

// StatusPrettyName returns a human label for a status code.
// Unrecognized codes are title-cased as a best effort.
func StatusPrettyName(code string) string {
	if name, ok := statusPrettyNames[code]; ok {
		return name
	}
	if code == "" {
		return statusPrettyNames[StatusUnknown]
	}
	parts := strings.Split(strings.ToLower(code), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
