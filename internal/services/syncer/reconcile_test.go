package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/models"
)

var reconcileNow = time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

func event(t string, code string) models.TrackingEvent {
	return models.TrackingEvent{
		Time:        t,
		StatusCode:  code,
		StatusName:  models.StatusPrettyName(code),
		Description: "desc " + code,
	}
}

func TestReconcile_NewParcelNotifies(t *testing.T) {
	last := event("2026-08-10 09:00:00", models.StatusInTransit)
	res := carrier.FetchResult{
		LastEvent: &last,
		Events: []models.TrackingEvent{
			event("2026-08-07 08:00:00", models.StatusInformationReceived),
			last,
		},
	}

	parcel := models.ParcelRecord{Name: "Keyboard", Number: "KB1", Courier: "DHL"}
	out := Reconcile(parcel, nil, res, true, reconcileNow)

	require.True(t, out.Notify)
	require.False(t, out.Ambiguous)
	require.Equal(t, models.StatusInTransit, out.Record.LastStatus)
	require.Equal(t, "2026-08-10 09:00:00", out.Record.LastUpdatedTime)
	require.Equal(t, "Keyboard", out.Record.Name)
	require.Equal(t, "DHL", out.Record.Courier)
	require.NotNil(t, out.Record.DaysInTransit)
	require.Equal(t, 3, *out.Record.DaysInTransit)
}

func TestReconcile_SameStatusDoesNotNotifyTwice(t *testing.T) {
	last := event("2026-08-10 09:00:00", models.StatusInTransit)
	res := carrier.FetchResult{LastEvent: &last, Events: []models.TrackingEvent{last}}

	prev := models.ParcelRecord{Number: "KB1", LastStatus: models.StatusInTransit}
	out := Reconcile(models.ParcelRecord{Number: "KB1"}, &prev, res, false, reconcileNow)

	require.False(t, out.Notify)
	require.Equal(t, models.StatusInTransit, out.Record.LastStatus)
}

func TestReconcile_StatusChangeNotifies(t *testing.T) {
	last := event("2026-08-09 18:30:00", models.StatusDelivered)
	res := carrier.FetchResult{
		LastEvent: &last,
		Events: []models.TrackingEvent{
			event("2026-08-05 10:00:00", models.StatusInTransit),
			last,
		},
	}

	prev := models.ParcelRecord{Number: "KB1", LastStatus: models.StatusInTransit}
	out := Reconcile(models.ParcelRecord{Number: "KB1"}, &prev, res, false, reconcileNow)

	require.True(t, out.Notify)
	require.Equal(t, models.StatusDelivered, out.Record.LastStatus)
	// Для доставленных конец интервала — дата доставки, не текущая дата.
	require.NotNil(t, out.Record.DaysInTransit)
	require.Equal(t, 4, *out.Record.DaysInTransit)
}

func TestReconcile_NoLastEventIsInconclusive(t *testing.T) {
	res := carrier.FetchResult{
		Events: []models.TrackingEvent{event("2026-08-05 10:00:00", models.StatusInTransit)},
	}

	prev := models.ParcelRecord{Number: "KB1", LastStatus: models.StatusAtPickup}
	out := Reconcile(models.ParcelRecord{Number: "KB1"}, &prev, res, false, reconcileNow)
	require.False(t, out.Notify)
	require.Equal(t, prev, out.Record)

	// Без prev получаем запись со статусом UNKNOWN.
	out = Reconcile(models.ParcelRecord{Number: "KB1"}, nil, res, true, reconcileNow)
	require.False(t, out.Notify)
	require.Equal(t, models.StatusUnknown, out.Record.LastStatus)
}

func TestReconcile_MissingPreviousForExistingParcelIsAmbiguous(t *testing.T) {
	last := event("2026-08-10 09:00:00", models.StatusDelivered)
	res := carrier.FetchResult{LastEvent: &last, Events: []models.TrackingEvent{last}}

	out := Reconcile(models.ParcelRecord{Number: "KB1"}, nil, res, false, reconcileNow)

	require.False(t, out.Notify)
	require.True(t, out.Ambiguous)
	require.Equal(t, models.StatusDelivered, out.Record.LastStatus)
}

func TestReconcile_MalformedEarliestTimestampSkipsDays(t *testing.T) {
	last := event("2026-08-10 09:00:00", models.StatusInTransit)
	res := carrier.FetchResult{
		LastEvent: &last,
		Events: []models.TrackingEvent{
			event("not-a-date", models.StatusInformationReceived),
			last,
		},
	}

	out := Reconcile(models.ParcelRecord{Number: "KB1"}, nil, res, true, reconcileNow)

	// Битый таймстемп не роняет reconcile, просто без days_in_transit.
	require.True(t, out.Notify)
	require.Nil(t, out.Record.DaysInTransit)
	require.Equal(t, models.StatusInTransit, out.Record.LastStatus)
}

func TestFormatDaysInTransit(t *testing.T) {
	require.Equal(t, "N/A", FormatDaysInTransit(nil))

	one := 1
	require.Equal(t, "1 day", FormatDaysInTransit(&one))

	three := 3
	require.Equal(t, "3 days", FormatDaysInTransit(&three))

	zero := 0
	require.Equal(t, "0 days", FormatDaysInTransit(&zero))
}
