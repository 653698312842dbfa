package messages

import "time"

// ParcelUpdated публикуется в Kafka после каждой проверки посылки, когда
// брокер сконфигурирован. Notify повторяет решение реконсилера.
type ParcelUpdated struct {
	Number  string `json:"number"`
	Name    string `json:"name"`
	Courier string `json:"courier"`

	Status        string `json:"status,omitempty"`
	StatusTime    string `json:"status_time,omitempty"`
	Description   string `json:"description,omitempty"`
	DaysInTransit *int   `json:"days_in_transit,omitempty"`

	Notify    bool      `json:"notify"`
	CheckedAt time.Time `json:"checked_at"`

	Error *string `json:"error,omitempty"`
}
