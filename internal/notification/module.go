// Package notification turns lifecycle events into queued emails and
// delivers them. Delivery never blocks or rolls back the transition that
// produced the event.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"flyttbas_backend/internal/email"
	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/notification/outbox"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	templateOfferSubmitted     = "offer_submitted"
	templateJobStatus          = "job_status"
	templatePartnerStatus      = "partner_status"
	templatePartnerApplication = "partner_application"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// Outbox is the persistence the notification module needs.
type Outbox interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	outbox Outbox
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new notification module.
func New(repo Outbox, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		outbox: repo,
		sender: sender,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// RegisterHandlers subscribes to the events that produce notifications.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.OfferSubmitted{}.EventName(), m)
	bus.Subscribe(events.JobStatusChanged{}.EventName(), m)
	bus.Subscribe(events.PartnerStatusChanged{}.EventName(), m)
	bus.Subscribe(events.PartnerApplicationReceived{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.OfferSubmitted:
		m.handleOfferSubmitted(ctx, e)
	case events.JobStatusChanged:
		m.handleJobStatusChanged(ctx, e)
	case events.PartnerStatusChanged:
		m.handlePartnerStatusChanged(ctx, e)
	case events.PartnerApplicationReceived:
		m.handlePartnerApplicationReceived(ctx, e)
	case events.NotificationOutboxDue:
		return m.HandleOutboxDue(ctx, e.OutboxID)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
	}
	return nil
}

func (m *Module) handleOfferSubmitted(ctx context.Context, e events.OfferSubmitted) {
	m.enqueue(ctx, e.EventName(), templateOfferSubmitted, e.CustomerEmail, email.OfferSubmitted{
		CustomerName:  e.CustomerName,
		CompanyName:   e.CompanyName,
		TotalPrice:    e.TotalPrice,
		RUTDeduction:  e.RUTDeduction,
		AvailableDate: e.AvailableDate,
		ValidUntil:    e.ValidUntil,
		Move:          move(e.Move),
		OffersURL:     m.buildURL("/quotes/%s/offers", e.QuoteID),
	})
}

func (m *Module) handleJobStatusChanged(ctx context.Context, e events.JobStatusChanged) {
	m.enqueue(ctx, e.EventName(), templateJobStatus, e.CustomerEmail, email.JobStatus{
		CustomerName: e.CustomerName,
		CompanyName:  e.CompanyName,
		Status:       e.NewStatus,
		Notes:        e.Notes,
		Move:         move(e.Move),
	})
}

func (m *Module) handlePartnerStatusChanged(ctx context.Context, e events.PartnerStatusChanged) {
	m.enqueue(ctx, e.EventName(), templatePartnerStatus, e.ContactEmail, email.PartnerStatus{
		ContactName: e.ContactName,
		CompanyName: e.CompanyName,
		Status:      e.NewStatus,
		Note:        e.Note,
		PortalURL:   m.buildURL("/partner"),
	})
}

func (m *Module) handlePartnerApplicationReceived(ctx context.Context, e events.PartnerApplicationReceived) {
	m.enqueue(ctx, e.EventName(), templatePartnerApplication, m.cfg.GetAdminNotificationEmail(), email.PartnerApplication{
		CompanyName:  e.CompanyName,
		OrgNumber:    e.OrgNumber,
		ContactName:  e.ContactName,
		ContactEmail: e.ContactEmail,
		ReviewURL:    m.buildURL("/admin/partners/%s", e.PartnerID),
	})
}

// enqueue stores the notification for asynchronous delivery. Failures are
// logged and dropped.
func (m *Module) enqueue(ctx context.Context, eventName, template, recipient string, payload any) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		m.log.Warn("notification skipped: no recipient", "event", eventName, "template", template)
		return
	}
	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:      outbox.KindEmail,
		Template:  template,
		Recipient: recipient,
		Payload:   payload,
		RunAt:     m.now().UTC(),
	})
	if err != nil {
		m.log.CollaboratorFailure("notification outbox", err, "event", eventName, "template", template)
		return
	}
	m.log.Debug("notification queued", "outboxId", id, "event", eventName, "template", template)
}

// HandleOutboxDue delivers one queued notification. Delivery errors are
// retried by the outbox with exponential backoff, so they are not returned.
func (m *Module) HandleOutboxDue(ctx context.Context, outboxID uuid.UUID) error {
	rec, process, err := m.prepareOutboxRecord(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", outboxID, "error", err)
		}
		return err
	}

	if rec.Kind != outbox.KindEmail {
		m.markOutboxFailed(ctx, rec, fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template))
		return nil
	}

	if err := m.deliver(ctx, rec); err != nil {
		var invalid *invalidPayloadError
		if errors.As(err, &invalid) {
			m.markOutboxFailed(ctx, rec, err.Error())
			return nil
		}
		m.handleOutboxDeliveryError(ctx, rec, err)
		return nil
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		m.log.Error("failed to mark outbox record succeeded", "outboxId", rec.ID, "error", err)
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "template", rec.Template)
	return nil
}

type invalidPayloadError struct {
	msg string
}

func (e *invalidPayloadError) Error() string { return e.msg }

func (m *Module) deliver(ctx context.Context, rec outbox.Record) error {
	switch rec.Template {
	case templateOfferSubmitted:
		var data email.OfferSubmitted
		if err := decodePayload(rec.Payload, &data); err != nil {
			return err
		}
		return m.sender.SendOfferSubmittedEmail(ctx, rec.Recipient, data)
	case templateJobStatus:
		var data email.JobStatus
		if err := decodePayload(rec.Payload, &data); err != nil {
			return err
		}
		return m.sender.SendJobStatusEmail(ctx, rec.Recipient, data)
	case templatePartnerStatus:
		var data email.PartnerStatus
		if err := decodePayload(rec.Payload, &data); err != nil {
			return err
		}
		return m.sender.SendPartnerStatusEmail(ctx, rec.Recipient, data)
	case templatePartnerApplication:
		var data email.PartnerApplication
		if err := decodePayload(rec.Payload, &data); err != nil {
			return err
		}
		return m.sender.SendPartnerApplicationEmail(ctx, rec.Recipient, data)
	default:
		return &invalidPayloadError{msg: "unsupported outbox template: " + rec.Template}
	}
}

func decodePayload(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &invalidPayloadError{msg: invalidOutboxPayloadPrefix + err.Error()}
	}
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded || rec.Status == outbox.StatusFailed {
		m.log.Debug("outbox record already final; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	claimed, err := m.outbox.MarkProcessing(ctx, rec.ID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if !claimed {
		m.log.Debug("outbox record claimed elsewhere; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	return rec, true, nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		m.markOutboxFailed(ctx, rec, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		m.markOutboxFailed(ctx, rec, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"maxAttempts", maxOutboxRetryAttempts,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func (m *Module) markOutboxFailed(ctx context.Context, rec outbox.Record, reason string) {
	if err := m.outbox.MarkFailed(ctx, rec.ID, reason); err != nil {
		m.log.Error("failed to mark outbox record failed", "outboxId", rec.ID, "error", err)
		return
	}
	m.log.Warn("outbox record failed", "outboxId", rec.ID.String(), "template", rec.Template, "reason", reason)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) buildURL(pathFmt string, args ...any) string {
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + fmt.Sprintf(pathFmt, args...)
}

func move(s events.MoveSummary) email.Move {
	return email.Move{
		FromAddress:    s.FromAddress,
		FromPostalCode: s.FromPostalCode,
		ToAddress:      s.ToAddress,
		ToPostalCode:   s.ToPostalCode,
		MoveDate:       s.MoveDate,
	}
}
