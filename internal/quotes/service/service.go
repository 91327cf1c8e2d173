package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/quotes/domain"
	"flyttbas_backend/internal/quotes/repository"
	"flyttbas_backend/internal/quotes/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/phone"
	"flyttbas_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// listReconcileBatch bounds the expiry write a list request performs first.
	listReconcileBatch = 100
	dateLayout         = "2006-01-02"
	entityQuote        = "quote"
)

// Job statuses of the approved offer, as stored on the offers table.
const (
	jobConfirmed  = "confirmed"
	jobScheduled  = "scheduled"
	jobInProgress = "in_progress"
)

// Repository is the persistence the quote service needs.
type Repository interface {
	Create(ctx context.Context, q repository.Quote) (repository.Quote, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Quote, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	UpdateDetails(ctx context.Context, q repository.Quote, pristineOnly bool, now time.Time) (repository.Quote, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status, reason *string, now time.Time) (domain.Status, repository.Quote, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, now time.Time) (domain.Status, repository.Quote, error)
	ExpireIfOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	HasApprovedOffer(ctx context.Context, id uuid.UUID) (bool, error)
	ApprovedJobStatus(ctx context.Context, id uuid.UUID) (string, bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Config is the lifecycle configuration the quote service reads.
type Config interface {
	GetQuoteTTL() time.Duration
	GetStrictOfferApprovedOverride() bool
}

// Transition describes an automatic quote advance performed inside a caller's
// transaction. Publish it after commit with PublishTransition.
type Transition struct {
	QuoteID uuid.UUID
	From    domain.Status
	To      domain.Status
	Changed bool
}

// Service implements the quote lifecycle.
type Service struct {
	repo    Repository
	tx      db.Transactor
	bus     events.Bus
	log     *logger.Logger
	metrics *metrics.TransitionMetrics
	ttl     time.Duration
	strict  bool
	now     func() time.Time
}

// New creates a new quotes service.
func New(repo Repository, tx db.Transactor, bus events.Bus, cfg Config, m *metrics.TransitionMetrics, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		bus:     bus,
		log:     log,
		metrics: m,
		ttl:     cfg.GetQuoteTTL(),
		strict:  cfg.GetStrictOfferApprovedOverride(),
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, a actor.Actor, req transport.CreateQuoteRequest) (transport.QuoteResponse, error) {
	now := s.now().UTC()

	q, err := applyDetails(repository.Quote{}, req.QuoteDetails)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	q.ID = uuid.New()
	q.CustomerEmail = sanitize.Email(req.CustomerEmail)
	q.Status = domain.StatusPending
	q.CreatedAt = now
	if a.Role == actor.RoleCustomer {
		q.CustomerID = a.UserIDPtr()
	}
	if s.ttl > 0 {
		expires := now.Add(s.ttl)
		q.ExpiresAt = &expires
	}

	created, err := s.repo.Create(ctx, q)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	s.log.Info("quote created", "quoteId", created.ID, "fromPostalCode", created.From.PostalCode)
	s.bus.Publish(ctx, events.QuoteCreated{
		BaseEvent:     events.NewBaseEvent(),
		QuoteID:       created.ID,
		CustomerID:    created.CustomerID,
		CustomerEmail: created.CustomerEmail,
		FromPostal:    created.From.PostalCode,
	})

	return mapQuote(created), nil
}

// Get returns a quote visible to the actor after reconciling lazy expiry.
// Customers only see their own quotes.
func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (transport.QuoteResponse, error) {
	q, err := s.GetQuote(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if err := authorizeView(a, q); err != nil {
		return transport.QuoteResponse{}, err
	}
	return mapQuote(q), nil
}

// GetQuote loads a quote for other modules, expiring it first when overdue.
func (s *Service) GetQuote(ctx context.Context, id uuid.UUID) (repository.Quote, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Quote{}, err
	}
	if !s.isOverdue(q) {
		return q, nil
	}

	expired, err := s.repo.ExpireIfOverdue(ctx, id, s.now().UTC())
	if err != nil {
		return repository.Quote{}, err
	}
	if expired {
		s.afterExpiry(ctx, q.ID, q.Status)
	}
	return s.repo.GetByID(ctx, id)
}

// Authorize checks that the actor may see the quote. Used by modules that
// expose quote-scoped resources.
func (s *Service) Authorize(ctx context.Context, a actor.Actor, id uuid.UUID) (repository.Quote, error) {
	q, err := s.GetQuote(ctx, id)
	if err != nil {
		return repository.Quote{}, err
	}
	if err := authorizeView(a, q); err != nil {
		return repository.Quote{}, err
	}
	return q, nil
}

// List returns quotes for administrators, reconciling overdue quotes first.
func (s *Service) List(ctx context.Context, req transport.ListQuotesRequest) (transport.ListQuotesResponse, error) {
	return s.list(ctx, req, nil)
}

// ListForCustomer returns the customer's own quotes.
func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, req transport.ListQuotesRequest) (transport.ListQuotesResponse, error) {
	return s.list(ctx, req, &customerID)
}

// ListOpen returns quotes still accepting offers.
func (s *Service) ListOpen(ctx context.Context, page, pageSize int) ([]repository.Quote, int, error) {
	if _, err := s.ExpireOverdue(ctx, listReconcileBatch); err != nil {
		s.log.Warn("quote expiry reconcile failed", "error", err)
	}
	page, pageSize = normalizePaging(page, pageSize)
	result, err := s.repo.List(ctx, repository.ListParams{OpenOnly: true, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, 0, err
	}
	return result.Items, result.Total, nil
}

func (s *Service) list(ctx context.Context, req transport.ListQuotesRequest, customerID *uuid.UUID) (transport.ListQuotesResponse, error) {
	if _, err := s.ExpireOverdue(ctx, listReconcileBatch); err != nil {
		s.log.Warn("quote expiry reconcile failed", "error", err)
	}

	page, pageSize := normalizePaging(req.Page, req.PageSize)
	params := repository.ListParams{CustomerID: customerID, Page: page, PageSize: pageSize}
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.ListQuotesResponse{}, err
		}
		params.Status = &st
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListQuotesResponse{}, err
	}

	items := make([]transport.QuoteResponse, len(result.Items))
	for i, q := range result.Items {
		items[i] = mapQuote(q)
	}
	return transport.ListQuotesResponse{
		Items:      items,
		Total:      result.Total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (result.Total + pageSize - 1) / pageSize,
	}, nil
}

// UpdateDetails edits the move description. Customers may only edit their own
// quote while it is pending with no offers; administrators may edit any time.
func (s *Service) UpdateDetails(ctx context.Context, a actor.Actor, id uuid.UUID, req transport.UpdateQuoteRequest) (transport.QuoteResponse, error) {
	current, err := s.GetQuote(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if err := authorizeView(a, current); err != nil {
		return transport.QuoteResponse{}, err
	}
	if current.Status.IsTerminal() && !a.IsAdmin() {
		return transport.QuoteResponse{}, apperr.Validationf("quote is %s", current.Status)
	}

	next, err := applyDetails(current, req.QuoteDetails)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	updated, err := s.repo.UpdateDetails(ctx, next, !a.IsAdmin(), s.now().UTC())
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	return mapQuote(updated), nil
}

// Cancel moves a non-terminal quote to cancelled.
func (s *Service) Cancel(ctx context.Context, a actor.Actor, id uuid.UUID, reason string) (transport.QuoteResponse, error) {
	current, err := s.GetQuote(ctx, id)
	if err != nil {
		return transport.QuoteResponse{}, err
	}
	if err := authorizeView(a, current); err != nil {
		return transport.QuoteResponse{}, err
	}
	if err := domain.ValidateTransition(current.Status, domain.StatusCancelled); err != nil {
		return transport.QuoteResponse{}, err
	}

	var previous domain.Status
	var updated repository.Quote
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkJobAllowsCancel(ctx, id); err != nil {
			return err
		}
		var err error
		previous, updated, err = s.repo.TransitionStatus(ctx, id,
			domain.SourcesFor(domain.StatusCancelled), domain.StatusCancelled,
			sanitize.TextPtr(&reason), s.now().UTC())
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityQuote, string(domain.StatusCancelled))
		}
		return transport.QuoteResponse{}, err
	}

	s.PublishTransition(ctx, Transition{QuoteID: id, From: previous, To: domain.StatusCancelled, Changed: true})
	return mapQuote(updated), nil
}

// checkJobAllowsCancel refuses to cancel a quote whose move is underway.
// An approved job that has not started stays on the offer; it can no longer
// complete, so the job itself must be cancelled too.
func (s *Service) checkJobAllowsCancel(ctx context.Context, id uuid.UUID) error {
	jobStatus, ok, err := s.repo.ApprovedJobStatus(ctx, id)
	if err != nil || !ok {
		return err
	}
	switch jobStatus {
	case jobInProgress:
		return apperr.Validation("the move is in progress; finish or cancel the job first")
	case jobConfirmed, jobScheduled:
		s.log.Warn("quote cancelled with an active job on its approved offer", "quoteId", id, "jobStatus", jobStatus)
	}
	return nil
}

// AdminSetStatus is an administrator correction that bypasses the automatic
// triggers. Writing offer_approved without an approved offer is rejected in
// strict mode and logged otherwise.
func (s *Service) AdminSetStatus(ctx context.Context, a actor.Actor, id uuid.UUID, status string) (transport.QuoteResponse, error) {
	if !a.IsAdmin() {
		return transport.QuoteResponse{}, apperr.Forbidden("only administrators may set quote status")
	}
	to, err := domain.ParseStatus(status)
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	var previous domain.Status
	var updated repository.Quote
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		hasApproved, err := s.repo.HasApprovedOffer(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.ValidateOverride(to, hasApproved, s.strict); err != nil {
			return err
		}
		if to == domain.StatusOfferApproved && !hasApproved {
			s.log.Warn("quote set to offer_approved without an approved offer", "quoteId", id, "actorId", a.UserID)
		}

		previous, updated, err = s.repo.SetStatus(ctx, id, to, s.now().UTC())
		return err
	})
	if err != nil {
		return transport.QuoteResponse{}, err
	}

	s.log.Info("quote status overridden", "quoteId", id, "from", previous, "to", to, "actorId", a.UserID)
	s.publishStatusChanged(ctx, id, previous, to, true)
	return mapQuote(updated), nil
}

// MarkOffersReceived advances pending → offers_received. A quote that already
// has offers is left alone; a closed quote yields Conflict so the enclosing
// offer insert rolls back.
func (s *Service) MarkOffersReceived(ctx context.Context, id uuid.UUID) (Transition, error) {
	return s.advance(ctx, id, []domain.Status{domain.StatusPending}, domain.StatusOffersReceived,
		domain.StatusOffersReceived, domain.StatusOfferApproved)
}

// MarkOfferApproved advances an open quote to offer_approved. A quote that is
// no longer open yields Conflict so the enclosing approval rolls back.
func (s *Service) MarkOfferApproved(ctx context.Context, id uuid.UUID) (Transition, error) {
	return s.advance(ctx, id, []domain.Status{domain.StatusPending, domain.StatusOffersReceived}, domain.StatusOfferApproved)
}

// MarkCompleted advances offer_approved → completed.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (Transition, error) {
	return s.advance(ctx, id, []domain.Status{domain.StatusOfferApproved}, domain.StatusCompleted)
}

// advance performs a conditional transition. A quote already in one of the
// settled states is a no-op rather than a Conflict.
func (s *Service) advance(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status, settled ...domain.Status) (Transition, error) {
	previous, _, err := s.repo.TransitionStatus(ctx, id, from, to, nil, s.now().UTC())
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) && slices.Contains(settled, previous) {
			return Transition{QuoteID: id, From: previous, To: previous}, nil
		}
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityQuote, string(to))
		}
		return Transition{}, err
	}
	return Transition{QuoteID: id, From: previous, To: to, Changed: true}, nil
}

// PublishTransition logs and announces a committed transition.
func (s *Service) PublishTransition(ctx context.Context, t Transition) {
	if !t.Changed {
		return
	}
	s.publishStatusChanged(ctx, t.QuoteID, t.From, t.To, false)
}

func (s *Service) publishStatusChanged(ctx context.Context, id uuid.UUID, from, to domain.Status, manual bool) {
	s.log.Transition(entityQuote, id.String(), string(from), string(to))
	s.metrics.Transition(entityQuote, string(to))
	s.bus.Publish(ctx, events.QuoteStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   id,
		OldStatus: string(from),
		NewStatus: string(to),
		Manual:    manual,
	})
}

// ExpireOverdue expires up to limit overdue quotes and returns how many changed.
func (s *Service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.ExpireOverdue(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.afterExpiry(ctx, id, "")
	}
	return len(ids), nil
}

func (s *Service) afterExpiry(ctx context.Context, id uuid.UUID, from domain.Status) {
	s.log.Transition(entityQuote, id.String(), string(from), string(domain.StatusExpired))
	s.metrics.Transition(entityQuote, string(domain.StatusExpired))
	s.bus.Publish(ctx, events.QuoteExpired{BaseEvent: events.NewBaseEvent(), QuoteID: id})
}

// Delete removes a quote. Administrators only.
func (s *Service) Delete(ctx context.Context, a actor.Actor, id uuid.UUID) error {
	if !a.IsAdmin() {
		return apperr.Forbidden("only administrators may delete quotes")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("quote deleted", "quoteId", id, "actorId", a.UserID)
	return nil
}

func (s *Service) isOverdue(q repository.Quote) bool {
	return q.Status.IsOpen() && q.ExpiresAt != nil && q.ExpiresAt.Before(s.now())
}

func authorizeView(a actor.Actor, q repository.Quote) error {
	if a.IsPrivileged() {
		return nil
	}
	if a.Role == actor.RoleCustomer && q.CustomerID != nil && *q.CustomerID == a.UserID {
		return nil
	}
	return apperr.NotFound("quote not found")
}

func applyDetails(q repository.Quote, d transport.QuoteDetails) (repository.Quote, error) {
	moveDate, err := time.Parse(dateLayout, d.MoveDate)
	if err != nil {
		return repository.Quote{}, apperr.Validation("moveDate must be YYYY-MM-DD")
	}

	q.CustomerName = sanitize.Text(d.CustomerName)
	q.CustomerPhone = normalizePhone(d.CustomerPhone)
	q.From = applyLeg(d.From)
	q.To = applyLeg(d.To)
	q.MoveDate = moveDate
	q.MoveTimeWindow = optionalText(d.MoveTimeWindow)
	q.PackingHours = d.PackingHours
	q.AssemblyHours = d.AssemblyHours
	q.HeavyItems = optionalText(d.HeavyItems)
	q.ParkingRestriction = d.ParkingRestriction
	q.HomeVisitRequested = d.HomeVisitRequested
	q.Notes = optionalText(d.Notes)

	if q.From.PostalCode == "" || q.To.PostalCode == "" {
		return repository.Quote{}, apperr.Validation("postal codes are required")
	}
	return q, nil
}

func applyLeg(l transport.LegRequest) repository.Leg {
	elevator := l.Elevator
	if elevator == "" {
		elevator = "none"
	}
	return repository.Leg{
		Address:    sanitize.Text(l.Address),
		PostalCode: sanitize.PostalCode(l.PostalCode),
		Lat:        l.Lat,
		Lng:        l.Lng,
		AreaM2:     l.AreaM2,
		Rooms:      l.Rooms,
		Floor:      l.Floor,
		Elevator:   elevator,
	}
}

func normalizePhone(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if e164, ok := phone.NormalizeE164(raw); ok {
		return e164
	}
	return strings.TrimSpace(raw)
}

func optionalText(s string) *string {
	return sanitize.TextPtr(&s)
}

func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func mapQuote(q repository.Quote) transport.QuoteResponse {
	return transport.QuoteResponse{
		ID:                 q.ID,
		CustomerID:         q.CustomerID,
		CustomerName:       q.CustomerName,
		CustomerEmail:      q.CustomerEmail,
		CustomerPhone:      q.CustomerPhone,
		From:               mapLeg(q.From),
		To:                 mapLeg(q.To),
		MoveDate:           q.MoveDate.Format(dateLayout),
		MoveTimeWindow:     q.MoveTimeWindow,
		PackingHours:       q.PackingHours,
		AssemblyHours:      q.AssemblyHours,
		HeavyItems:         q.HeavyItems,
		ParkingRestriction: q.ParkingRestriction,
		HomeVisitRequested: q.HomeVisitRequested,
		Notes:              q.Notes,
		Status:             string(q.Status),
		CancelledReason:    q.CancelledReason,
		StatusChangedAt:    q.StatusChangedAt,
		ExpiresAt:          q.ExpiresAt,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
	}
}

func mapLeg(l repository.Leg) transport.LegResponse {
	return transport.LegResponse{
		Address:    l.Address,
		PostalCode: l.PostalCode,
		Lat:        l.Lat,
		Lng:        l.Lng,
		AreaM2:     l.AreaM2,
		Rooms:      l.Rooms,
		Floor:      l.Floor,
		Elevator:   l.Elevator,
	}
}
