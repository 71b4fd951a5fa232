// Package dispatch turns eligible alert classifications into persisted,
// delivered notification records. Idempotency comes entirely from the
// storage layer's uniqueness constraint on (user, channel, dedupe_key):
// losing that race is a normal outcome, never an error.
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/model"
	"github.com/lexdesk/deadline-alerts/internal/store"
)

// MetadataDestination is the metadata key carrying the email delivery
// address of a record.
const MetadataDestination = "destination"

// metadataMessageID records the transport's message id after a
// successful send.
const metadataMessageID = "message_id"

// Transport delivers an email notification. Implementations must honor
// ctx cancellation; a timeout is treated by the dispatcher as a
// delivery failure.
type Transport interface {
	Send(ctx context.Context, to, subject, htmlBody string) (messageID string, err error)
}

// Result reports the outcome of one dispatch attempt.
type Result struct {
	// Created is false when an identical record already existed and
	// the attempt was suppressed.
	Created bool

	// Status is the record's status after the attempt: sent, failed,
	// or pending. Empty when the attempt was suppressed.
	Status string

	// ID is the persisted record id when Created is true.
	ID string
}

// Options configures a Dispatcher.
type Options struct {
	// SendTimeout bounds each transport call. Zero means 30s.
	SendTimeout time.Duration
}

// Dispatcher persists notification records and drives channel delivery.
type Dispatcher struct {
	store       store.Store
	transport   Transport
	logger      *zap.Logger
	sendTimeout time.Duration
	now         func() time.Time
}

// New creates a Dispatcher. transport may be nil when only the in-app
// channel is in use; dispatching an email record without a transport
// marks it failed.
func New(s store.Store, transport Transport, logger *zap.Logger, opts Options) *Dispatcher {
	timeout := opts.SendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		store:       s,
		transport:   transport,
		logger:      logger.Named("dispatcher"),
		sendTimeout: timeout,
		now:         time.Now,
	}
}

// Dispatch attempts to record and deliver one notification. Duplicate
// records are silently absorbed (Created=false, nil error). A transport
// failure marks the record failed and returns the transport error
// alongside the result; storage faults return a zero Result and the
// error unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, rec model.NotificationRecord) (Result, error) {
	switch rec.Channel {
	case model.ChannelInApp:
		return d.dispatchInApp(ctx, rec)
	case model.ChannelEmail:
		return d.dispatchEmail(ctx, rec)
	default:
		return d.dispatchInApp(ctx, rec)
	}
}

// dispatchInApp inserts the record directly in its terminal sent state;
// there is no delivery hop for the in-app channel.
func (d *Dispatcher) dispatchInApp(ctx context.Context, rec model.NotificationRecord) (Result, error) {
	now := d.now().UTC()
	rec.Status = model.NotificationStatusSent
	rec.SentAt = &now

	res, err := d.store.InsertNotificationIfAbsent(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if !res.Created {
		d.logger.Debug("duplicate in-app notification suppressed",
			zap.String("user_id", rec.UserID),
			zap.String("dedupe_key", rec.DedupeKey),
		)
		return Result{Created: false}, nil
	}

	return Result{Created: true, Status: model.NotificationStatusSent, ID: res.ID}, nil
}

// dispatchEmail inserts a pending record, then delivers via the
// transport and transitions the record to sent or failed.
func (d *Dispatcher) dispatchEmail(ctx context.Context, rec model.NotificationRecord) (Result, error) {
	rec.Status = model.NotificationStatusPending
	rec.SentAt = nil

	res, err := d.store.InsertNotificationIfAbsent(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if !res.Created {
		d.logger.Debug("duplicate email notification suppressed",
			zap.String("user_id", rec.UserID),
			zap.String("dedupe_key", rec.DedupeKey),
		)
		return Result{Created: false}, nil
	}

	sendErr := d.deliver(ctx, rec)
	if sendErr != nil {
		if markErr := d.store.MarkNotificationFailed(ctx, res.ID, sendErr.Error()); markErr != nil {
			d.logger.Error("failed to record delivery failure",
				zap.String("notification_id", res.ID),
				zap.Error(markErr),
			)
		}
		d.logger.Warn("email delivery failed",
			zap.String("notification_id", res.ID),
			zap.String("user_id", rec.UserID),
			zap.Error(sendErr),
		)
		return Result{Created: true, Status: model.NotificationStatusFailed, ID: res.ID}, sendErr
	}

	if err := d.store.MarkNotificationSent(ctx, res.ID, d.now().UTC()); err != nil {
		return Result{Created: true, Status: model.NotificationStatusPending, ID: res.ID}, err
	}

	d.logger.Info("email notification sent",
		zap.String("notification_id", res.ID),
		zap.String("user_id", rec.UserID),
		zap.String("severity", rec.Severity),
	)
	return Result{Created: true, Status: model.NotificationStatusSent, ID: res.ID}, nil
}

// deliver performs the bounded transport call.
func (d *Dispatcher) deliver(ctx context.Context, rec model.NotificationRecord) error {
	if d.transport == nil {
		return errNoTransport
	}

	to := rec.Metadata[MetadataDestination]
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	_, err := d.transport.Send(sendCtx, to, rec.Title, rec.Message)
	return err
}
