package mail

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Avisafety/avisafe-sub001/internal/common/errors"
	"github.com/Avisafety/avisafe-sub001/internal/common/logger"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Outcome is the result of one dispatch. Failures are reported here and never
// returned as errors.
type Outcome struct {
	Status    Status `json:"status"`
	Reason    string `json:"reason,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}

// Ledger remembers which reminders were already sent.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string) error
}

// Recorder receives per-provider dispatch measurements.
type Recorder interface {
	RecordDispatch(ctx context.Context, provider, status string, duration time.Duration)
}

// Delivery identifies one reminder for the ledger.
type Delivery struct {
	DocumentID  string
	RecipientID string
	Date        civil.Date
	To          string
	Subject     string
	HTML        string
}

// LedgerKey is the dedupe key for a reminder.
func (d Delivery) LedgerKey() string {
	return fmt.Sprintf("notify:%s:%s:%s", d.DocumentID, d.RecipientID, d.Date)
}

type Dispatcher struct {
	transport Transport
	from      string
	fromName  string
	timeout   time.Duration
	ledger    Ledger
	recorder  Recorder
	logger    logger.Logger
}

type Option func(*Dispatcher)

func WithLedger(l Ledger) Option {
	return func(d *Dispatcher) { d.ledger = l }
}

func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithTimeout bounds each provider call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func NewDispatcher(t Transport, from, fromName string, log logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		transport: t,
		from:      from,
		fromName:  fromName,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher", "provider": t.Name()}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Provider() string { return d.transport.Name() }

// Send transmits one message. It does not retry.
func (d *Dispatcher) Send(ctx context.Context, to, subject, html string) Outcome {
	return d.send(ctx, Envelope{
		From:     d.from,
		FromName: d.fromName,
		To:       to,
		Subject:  subject,
		HTML:     html,
	})
}

// Deliver sends a reminder at most once per ledger key when a ledger is
// configured. Ledger errors are logged and the message is sent anyway.
func (d *Dispatcher) Deliver(ctx context.Context, del Delivery) Outcome {
	key := del.LedgerKey()

	if d.ledger != nil {
		seen, err := d.ledger.Seen(ctx, key)
		if err != nil {
			d.logger.Warn("ledger lookup failed, sending anyway", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		} else if seen {
			return Outcome{Status: StatusSkipped, Reason: "already notified"}
		}
	}

	out := d.send(ctx, Envelope{
		From:           d.from,
		FromName:       d.fromName,
		To:             del.To,
		Subject:        del.Subject,
		HTML:           del.HTML,
		IdempotencyKey: key,
	})

	if out.Status == StatusSent && d.ledger != nil {
		if err := d.ledger.Record(ctx, key); err != nil {
			d.logger.Warn("ledger write failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
	}
	return out
}

func (d *Dispatcher) send(ctx context.Context, env Envelope) Outcome {
	if !validAddress(env.To) {
		d.logger.Warn("invalid recipient address", map[string]interface{}{"to": env.To})
		return Outcome{Status: StatusFailed, Reason: fmt.Sprintf("invalid recipient address %q", env.To)}
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	messageID, err := d.transport.Send(ctx, env)
	elapsed := time.Since(start)

	if err != nil {
		sendErr := errors.NewNotificationSendFailedError(d.transport.Name(), err)
		d.record(ctx, StatusFailed, elapsed)
		d.logger.Error("email send failed", map[string]interface{}{
			"to":    env.To,
			"error": sendErr,
		})
		return Outcome{Status: StatusFailed, Reason: sendErr.Error()}
	}

	d.record(ctx, StatusSent, elapsed)
	d.logger.Info("email sent", map[string]interface{}{
		"to":        env.To,
		"messageId": messageID,
	})
	return Outcome{Status: StatusSent, MessageID: messageID}
}

func (d *Dispatcher) record(ctx context.Context, status Status, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.RecordDispatch(ctx, d.transport.Name(), string(status), elapsed)
	}
}
