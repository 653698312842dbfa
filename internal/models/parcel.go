package models

// ParcelRecord — одна отслеживаемая посылка в истории.
// Поля json совпадают с форматом файла истории (history.json).
type ParcelRecord struct {
	Name            string `json:"name"`
	Number          string `json:"number"`
	Courier         string `json:"courier"`
	LastStatus      string `json:"last_status"`
	LastUpdatedTime string `json:"last_updated_time,omitempty"`
	DaysInTransit   *int   `json:"days_in_transit,omitempty"`

	// CarrierID резолвится из каталога перевозчиков на каждом фетче,
	// в историю не пишется.
	CarrierID string `json:"-"`
}

// TrackingEvent is one point of a shipment timeline. Time is kept as a string:
// the client normalizes it to "YYYY-MM-DD HH:MM:SS", but a malformed remote
// timestamp passes through unmodified instead of failing the fetch.
type TrackingEvent struct {
	Time        string `json:"time"`
	StatusCode  string `json:"status_code"`
	StatusName  string `json:"status_name"`
	Description string `json:"description"`
}
