// Package job hosts the periodic alert pass: enumerate active
// deadlines, classify each against today, filter by user preference,
// and hand eligible alerts to the dispatcher. The pass is stateless
// between runs; duplicate suppression lives entirely in the storage
// uniqueness constraint, so re-running a pass (or racing two of them)
// is always safe.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/alert"
	"github.com/lexdesk/deadline-alerts/internal/dispatch"
	"github.com/lexdesk/deadline-alerts/internal/model"
	"github.com/lexdesk/deadline-alerts/internal/store"
)

// passTimeout bounds one full alert pass.
const passTimeout = 5 * time.Minute

// alertHorizonDays bounds the deadline query: no rule fires beyond
// seven days out, so anything past the horizon cannot produce an alert.
const alertHorizonDays = 8

// PassSummary aggregates the outcome of one alert pass for reporting.
type PassSummary struct {
	Examined      int
	Dispatched    int
	Suppressed    int
	Failed        int
	MarkedOverdue int64
	Duration      time.Duration
}

// Options configures a Runner.
type Options struct {
	// Interval between automatic passes. Zero means 1h.
	Interval time.Duration

	// Workers bounds concurrent dispatch attempts. Zero means 8.
	Workers int
}

// Runner drives the alert pass on a schedule and on demand.
type Runner struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
	workers    int

	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      sync.Mutex
	running bool

	now func() time.Time
}

// New creates a Runner.
func New(s store.Store, d *dispatch.Dispatcher, logger *zap.Logger, opts Options) *Runner {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}
	return &Runner{
		store:      s,
		dispatcher: d,
		logger:     logger.Named("job"),
		interval:   interval,
		workers:    workers,
		triggerCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
}

// Start launches the periodic loop. Non-blocking; call Stop to halt.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.loop(ctx)
}

// Stop halts the periodic loop.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// TriggerNow requests an immediate pass without waiting for the ticker.
func (r *Runner) TriggerNow() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
		// A pass is already queued.
	}
}

// loop runs passes until stopped.
func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial pass immediately on start.
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

// runOnce executes a bounded pass and logs its summary.
func (r *Runner) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, passTimeout)
	defer cancel()

	summary, err := r.RunPass(passCtx)
	if err != nil {
		r.logger.Error("alert pass failed", zap.Error(err))
		return
	}

	r.logger.Info("alert pass completed",
		zap.Int("examined", summary.Examined),
		zap.Int("dispatched", summary.Dispatched),
		zap.Int("suppressed", summary.Suppressed),
		zap.Int("failed", summary.Failed),
		zap.Int64("marked_overdue", summary.MarkedOverdue),
		zap.Duration("duration", summary.Duration),
	)
}

// RunPass executes one full alert pass. Per-deadline failures are
// counted and logged but never abort the rest of the pass; only a
// failure to enumerate deadlines is fatal.
func (r *Runner) RunPass(ctx context.Context) (PassSummary, error) {
	started := r.now()
	now := started
	var summary PassSummary

	// Deadlines due before today are past alerting; flip them to
	// overdue so they leave the active set.
	marked, err := r.store.MarkOverdueDeadlines(ctx, startOfDay(now))
	if err != nil {
		return summary, err
	}
	summary.MarkedOverdue = marked

	horizon := startOfDay(now).AddDate(0, 0, alertHorizonDays)
	deadlines, err := r.store.QueryActiveDeadlines(ctx, store.DeadlineFilter{
		DueBefore: &horizon,
	})
	if err != nil {
		return summary, err
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, r.workers)
	)

	for _, d := range deadlines {
		d := d
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			dispatched, suppressed, failed := r.processDeadline(ctx, d, now)

			mu.Lock()
			summary.Examined++
			summary.Dispatched += dispatched
			summary.Suppressed += suppressed
			summary.Failed += failed
			mu.Unlock()
		}()
	}
	wg.Wait()

	summary.Duration = r.now().Sub(started)
	return summary, nil
}

// processDeadline classifies one deadline and dispatches to every
// eligible channel.
func (r *Runner) processDeadline(ctx context.Context, d model.Deadline, now time.Time) (dispatched, suppressed, failed int) {
	c := alert.Classify(d.DueAt, now)
	if !c.Matched() {
		return 0, 0, 0
	}

	prefs, err := r.store.GetPreferences(ctx, d.UserID)
	if err != nil {
		r.logger.Error("loading preferences failed",
			zap.String("deadline_id", d.ID),
			zap.String("user_id", d.UserID),
			zap.Error(err),
		)
		return 0, 0, 1
	}

	title, message := renderAlert(c, d)

	if alert.InAppPolicy.Eligible(prefs, c.DaysRemaining, "") {
		rec := model.NotificationRecord{
			UserID:     d.UserID,
			Channel:    model.ChannelInApp,
			DeadlineID: d.ID,
			DedupeKey:  alert.DedupeKey(d.ID, c.Rule),
			Severity:   string(c.Severity),
			Title:      title,
			Message:    message,
			Metadata:   map[string]string{"rule": string(c.Rule)},
		}
		di, su, fa := r.dispatchOne(ctx, rec)
		dispatched, suppressed, failed = dispatched+di, suppressed+su, failed+fa
	}

	email, err := r.store.GetUserEmail(ctx, d.UserID)
	if err != nil {
		r.logger.Error("loading user email failed",
			zap.String("user_id", d.UserID),
			zap.Error(err),
		)
		return dispatched, suppressed, failed + 1
	}

	destination := alert.Destination(prefs, email)
	if alert.EmailPolicy.Eligible(prefs, c.DaysRemaining, destination) {
		rec := model.NotificationRecord{
			UserID:     d.UserID,
			Channel:    model.ChannelEmail,
			DeadlineID: d.ID,
			DedupeKey:  alert.DedupeKey(d.ID, c.Rule),
			Severity:   string(c.Severity),
			Title:      title,
			Message:    message,
			Metadata: map[string]string{
				"rule":                       string(c.Rule),
				dispatch.MetadataDestination: destination,
			},
		}
		di, su, fa := r.dispatchOne(ctx, rec)
		dispatched, suppressed, failed = dispatched+di, suppressed+su, failed+fa
	}

	return dispatched, suppressed, failed
}

// dispatchOne maps a dispatch outcome onto pass counters.
func (r *Runner) dispatchOne(ctx context.Context, rec model.NotificationRecord) (dispatched, suppressed, failed int) {
	res, err := r.dispatcher.Dispatch(ctx, rec)
	switch {
	case err != nil && !res.Created:
		// Storage fault: this record lost, the pass continues.
		r.logger.Error("dispatch storage fault",
			zap.String("deadline_id", rec.DeadlineID),
			zap.String("channel", rec.Channel),
			zap.Error(err),
		)
		return 0, 0, 1
	case err != nil:
		// Transport fault: recorded as failed, no in-process retry.
		return 0, 0, 1
	case !res.Created:
		return 0, 1, 0
	default:
		return 1, 0, 0
	}
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
