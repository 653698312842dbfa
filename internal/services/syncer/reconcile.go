package syncer

import (
	"strconv"
	"time"

	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/models"
)

// Outcome is the reconciler's decision for one fetched parcel.
type Outcome struct {
	Record models.ParcelRecord
	Notify bool

	// Ambiguous marks the case where the parcel is known to the session but
	// its previous record is missing from storage: the old status cannot be
	// compared, so the notification is suppressed. The original app hit this
	// as an incidental fallthrough; here it is an explicit branch.
	Ambiguous bool
}

// Reconcile merges a fetch result with the previously stored record and
// decides whether to notify. Pure: no I/O, no clock reads (now is passed in).
// Identity fields (name, number, courier) carry over from parcel untouched.
func Reconcile(parcel models.ParcelRecord, previous *models.ParcelRecord, res carrier.FetchResult, isNewParcel bool, now time.Time) Outcome {
	if res.LastEvent == nil {
		// Инконклюзивный фетч: записи не трогаем, уведомления нет.
		if previous != nil {
			return Outcome{Record: *previous}
		}
		rec := parcel
		rec.LastStatus = models.StatusUnknown
		return Outcome{Record: rec}
	}
	last := *res.LastEvent

	rec := parcel
	rec.LastStatus = last.StatusCode
	rec.LastUpdatedTime = last.Time
	rec.DaysInTransit = daysInTransit(res, now)

	out := Outcome{Record: rec}
	switch {
	case isNewParcel:
		out.Notify = true
	case previous == nil:
		out.Ambiguous = true
	case previous.LastStatus != "" && previous.LastStatus != last.StatusCode:
		out.Notify = true
	}
	return out
}

// daysInTransit counts days from the earliest event to either the delivery
// event or now. Events arrive sorted ascending, so the earliest is events[0].
func daysInTransit(res carrier.FetchResult, now time.Time) *int {
	if len(res.Events) == 0 {
		return nil
	}
	first, ok := models.ParseEventTime(res.Events[0].Time)
	if !ok {
		return nil
	}

	end := now
	if res.LastEvent != nil && res.LastEvent.StatusCode == models.StatusDelivered {
		if t, ok := models.ParseEventTime(res.LastEvent.Time); ok {
			end = t
		}
	}

	days := int(dateOnly(end).Sub(dateOnly(first)).Hours() / 24)
	return &days
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDaysInTransit renders the stored count for display ("3 days", "N/A").
func FormatDaysInTransit(days *int) string {
	if days == nil {
		return "N/A"
	}
	if *days == 1 {
		return "1 day"
	}
	return strconv.Itoa(*days) + " days"
}
