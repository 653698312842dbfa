package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/astoko/ParcelBuddy/config"
	"github.com/astoko/ParcelBuddy/internal/broker/messages"
	"github.com/astoko/ParcelBuddy/internal/integrations/carrier"
	"github.com/astoko/ParcelBuddy/internal/models"
	"github.com/astoko/ParcelBuddy/internal/notify"
)

type Store interface {
	Load(ctx context.Context) ([]models.ParcelRecord, error)
	Save(ctx context.Context, history []models.ParcelRecord) error
	Upsert(ctx context.Context, rec models.ParcelRecord) error
	Remove(ctx context.Context, number string) error
	Clear(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Engine synchronizes tracked parcels against the remote tracking API: it
// schedules batch refreshes, fans out per-parcel fetches, reconciles results
// with stored history and serializes every store write.
type Engine struct {
	store    Store
	client   carrier.Client
	resolver *carrier.Resolver
	notifier notify.Notifier
	creds    *config.CredentialsHolder

	events Events
	disp   *dispatcher

	producer Publisher
	topic    string

	refreshInterval time.Duration
	fetchTimeout    time.Duration
	concurrency     int

	// countdownTick — шаг обратного отсчёта, 1s. Переопределяется в тестах.
	countdownTick time.Duration

	triggerCh chan struct{}

	// storeMu — единственный писатель истории: Reconcile+Upsert атомарны
	// относительно других завершающихся фетчей.
	storeMu sync.Mutex

	countdown           atomic.Int64
	pending             atomic.Int64
	inFlight            atomic.Int64
	totalChecked        atomic.Int64
	totalErrors         atomic.Int64
	startedAtUnixNano   int64
	lastBatchUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(store Store, client carrier.Client, resolver *carrier.Resolver, notifier notify.Notifier, creds *config.CredentialsHolder, events Events) *Engine {
	if resolver == nil {
		resolver = carrier.NewResolver(client)
	}
	if notifier == nil {
		notifier = notify.NewLog()
	}
	e := &Engine{
		store:           store,
		client:          client,
		resolver:        resolver,
		notifier:        notifier,
		creds:           creds,
		events:          events,
		disp:            newDispatcher(),
		refreshInterval: 1800 * time.Second,
		fetchTimeout:    15 * time.Second,
		countdownTick:   time.Second,
		triggerCh:       make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
	e.countdown.Store(int64(e.refreshInterval.Seconds()))
	return e
}

// WithSettings overrides scheduler knobs. concurrency <= 0 keeps the
// reference behaviour of one worker per parcel.
func (e *Engine) WithSettings(refreshInterval, fetchTimeout time.Duration, concurrency int) *Engine {
	if refreshInterval > 0 {
		e.refreshInterval = refreshInterval
		e.countdown.Store(int64(refreshInterval.Seconds()))
	}
	if fetchTimeout > 0 {
		e.fetchTimeout = fetchTimeout
	}
	e.concurrency = concurrency
	return e
}

// WithProducer publishes a ParcelUpdated message after every check.
func (e *Engine) WithProducer(p Publisher, topic string) *Engine {
	if p != nil && topic != "" {
		e.producer = p
		e.topic = topic
	}
	return e
}

// RefreshAll requests an immediate batch refresh (best-effort, non-blocking)
// and resets the countdown.
func (e *Engine) RefreshAll() {
	e.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case e.triggerCh <- struct{}{}:
	default:
	}
}

// Countdown returns seconds until the next automatic batch refresh.
func (e *Engine) Countdown() int64 {
	return e.countdown.Load()
}

type Stats struct {
	StartedAt        time.Time  `json:"startedAt"`
	LastBatchAt      *time.Time `json:"lastBatchAt,omitempty"`
	LastTriggerAt    *time.Time `json:"lastTriggerAt,omitempty"`
	State            string     `json:"state"`
	CountdownSeconds int64      `json:"countdownSeconds"`
	Pending          int64      `json:"pending"`
	InFlight         int64      `json:"inFlight"`
	TotalChecked     int64      `json:"totalChecked"`
	TotalErrors      int64      `json:"totalErrors"`
	LastError        string     `json:"lastError,omitempty"`
}

func (e *Engine) Stats() Stats {
	st := Stats{
		StartedAt:        time.Unix(0, e.startedAtUnixNano).UTC(),
		State:            "idle",
		CountdownSeconds: e.countdown.Load(),
		Pending:          e.pending.Load(),
		InFlight:         e.inFlight.Load(),
		TotalChecked:     e.totalChecked.Load(),
		TotalErrors:      e.totalErrors.Load(),
	}
	if st.Pending > 0 {
		st.State = "refreshing"
	}
	if n := e.lastBatchUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastBatchAt = &t
	}
	if n := e.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	e.lastErrorMu.Lock()
	st.LastError = e.lastError
	e.lastErrorMu.Unlock()
	return st
}

// Run drives the scheduler: a 1-second tick decrements the countdown and
// fires a batch refresh when it reaches zero; RefreshAll fires one
// immediately. A new batch never cancels an in-flight one — both write
// through the store mutex.
func (e *Engine) Run(ctx context.Context) error {
	go e.disp.run(ctx)

	if !e.creds.Get().Valid() {
		e.logf("credentials are not configured, automatic refresh is paused")
		if fn := e.events.OnCredentialsInvalid; fn != nil {
			e.disp.emit(fn)
		}
	}

	t := time.NewTicker(e.countdownTick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if e.countdown.Add(-1) <= 0 {
				e.countdown.Store(int64(e.refreshInterval.Seconds()))
				go e.runBatch(ctx)
			}
		case <-e.triggerCh:
			e.countdown.Store(int64(e.refreshInterval.Seconds()))
			go e.runBatch(ctx)
		}
	}
}

func (e *Engine) runBatch(ctx context.Context) {
	if !e.creds.Get().Valid() {
		if fn := e.events.OnCredentialsInvalid; fn != nil {
			e.disp.emit(fn)
		}
		return
	}

	e.lastBatchUnixNano.Store(time.Now().UTC().UnixNano())

	parcels, err := e.store.Load(ctx)
	if err != nil {
		// Нечитаемая история деградирует до пустой, батч не падает.
		slog.Error("load history", "error", err.Error())
		e.setLastError(err)
		parcels = nil
	}
	if len(parcels) == 0 {
		e.logf("no parcels to check for updates")
		return
	}
	e.logf("checking %d parcels for updates", len(parcels))

	workers := e.concurrency
	if workers <= 0 {
		workers = len(parcels)
	}
	sem := make(chan struct{}, workers)

	e.pending.Add(int64(len(parcels)))
	var wg sync.WaitGroup
	for _, p := range parcels {
		sem <- struct{}{}
		wg.Add(1)
		pCopy := p
		go func() {
			defer func() {
				e.pending.Add(-1)
				<-sem
				wg.Done()
			}()
			e.processOne(ctx, pCopy, false, false)
		}()
	}
	wg.Wait()

	e.logf("all pending updates completed")
	if fn := e.events.OnBatchComplete; fn != nil {
		e.disp.emit(fn)
	}
}

// StartTracking fetches one parcel out of band: an interactive request does
// not join a running batch and is never blocked by one.
func (e *Engine) StartTracking(ctx context.Context, name, number, courier string, isNewParcel bool) error {
	if number == "" {
		return errors.New("tracking number is required")
	}
	if courier == "" {
		return errors.New("courier is required")
	}
	e.logf("starting tracking for %q (%s) via %s", name, number, courier)
	go e.processOne(ctx, models.ParcelRecord{Name: name, Number: number, Courier: courier}, isNewParcel, true)
	return nil
}

func (e *Engine) RemoveParcel(ctx context.Context, number string) error {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()
	return e.store.Remove(ctx, number)
}

func (e *Engine) ClearHistory(ctx context.Context) error {
	e.storeMu.Lock()
	defer e.storeMu.Unlock()
	e.logf("clearing parcel history")
	return e.store.Clear(ctx)
}

func (e *Engine) History(ctx context.Context) ([]models.ParcelRecord, error) {
	return e.store.Load(ctx)
}

func (e *Engine) processOne(ctx context.Context, parcel models.ParcelRecord, isNewParcel, isInteractive bool) {
	e.inFlight.Add(1)
	defer e.inFlight.Add(-1)

	fetchCtx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
	res, err := e.fetch(fetchCtx, parcel)
	cancel()

	now := time.Now()

	if err != nil {
		e.totalErrors.Add(1)
		e.setLastError(err)
		slog.Error("check parcel", "number", parcel.Number, "courier", parcel.Courier, "error", err.Error())
		e.publish(ctx, parcel, nil, false, now, err)
		if fn := e.events.OnFetchError; fn != nil {
			e.disp.emit(func() { fn(err, isNewParcel, isInteractive) })
		}
		return
	}

	e.storeMu.Lock()
	previous := e.lookup(ctx, parcel.Number)
	out := Reconcile(parcel, previous, res, isNewParcel, now)
	if out.Ambiguous {
		slog.Warn("previous record missing for existing parcel, suppressing notification", "number", parcel.Number)
		e.logf("no stored status for %s, skipping notification", parcel.Number)
	}
	if err := e.store.Upsert(ctx, out.Record); err != nil {
		// Несохранённый апдейт оставляет историю отставшей, но не роняет батч.
		slog.Error("persist parcel", "number", parcel.Number, "error", err.Error())
		e.setLastError(err)
	}
	e.storeMu.Unlock()

	e.totalChecked.Add(1)
	e.publish(ctx, out.Record, res.LastEvent, out.Notify, now, nil)

	if fn := e.events.OnFetchSuccess; fn != nil {
		e.disp.emit(func() { fn(out.Record, res, isNewParcel, isInteractive) })
	}

	if out.Notify && res.LastEvent != nil {
		title := "Tracking Status Updated: " + parcel.Name
		if err := e.notifier.Notify(ctx, title, res.LastEvent.Description); err != nil {
			slog.Warn("send notification", "number", parcel.Number, "error", err.Error())
		}
	}
}

// fetch resolves the carrier ID from the stored label and queries tracking.
// Resolution happens on every fetch, as the original app did; the resolver
// may cache the directory when that is explicitly enabled.
func (e *Engine) fetch(ctx context.Context, parcel models.ParcelRecord) (carrier.FetchResult, error) {
	carrierID, err := e.resolver.Resolve(ctx, parcel.Courier)
	if err != nil {
		return carrier.FetchResult{}, err
	}
	return e.client.FetchTracking(ctx, carrierID, parcel.Number)
}

func (e *Engine) lookup(ctx context.Context, number string) *models.ParcelRecord {
	history, err := e.store.Load(ctx)
	if err != nil {
		slog.Error("load history for reconcile", "error", err.Error())
		return nil
	}
	for i := range history {
		if history[i].Number == number {
			return &history[i]
		}
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, rec models.ParcelRecord, lastEvent *models.TrackingEvent, notified bool, checkedAt time.Time, fetchErr error) {
	if e.producer == nil {
		return
	}
	msg := messages.ParcelUpdated{
		Number:        rec.Number,
		Name:          rec.Name,
		Courier:       rec.Courier,
		Status:        rec.LastStatus,
		StatusTime:    rec.LastUpdatedTime,
		DaysInTransit: rec.DaysInTransit,
		Notify:        notified,
		CheckedAt:     checkedAt.UTC(),
	}
	if lastEvent != nil {
		msg.Description = lastEvent.Description
	}
	if fetchErr != nil {
		s := fetchErr.Error()
		msg.Error = &s
		msg.Status = ""
	}

	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal kafka msg", "error", err.Error())
		return
	}
	if err := e.producer.Publish(ctx, e.topic, []byte(rec.Number), b); err != nil {
		slog.Warn("publish parcel update", "number", rec.Number, "error", err.Error())
	}
}

func (e *Engine) setLastError(err error) {
	e.lastErrorMu.Lock()
	e.lastError = err.Error()
	e.lastErrorMu.Unlock()
}

// logf mirrors a human-readable line to slog and the caller's log pane.
func (e *Engine) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Info(msg)
	if fn := e.events.OnLog; fn != nil {
		e.disp.emit(func() { fn(msg) })
	}
}
