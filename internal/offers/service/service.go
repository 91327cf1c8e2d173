package service

import (
	"context"
	"time"

	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/offers/domain"
	"flyttbas_backend/internal/offers/repository"
	"flyttbas_backend/internal/offers/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"
	"flyttbas_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
	entityOffer     = "offer"
	entityJob       = "job"
)

// Repository is the persistence the offer service needs.
type Repository interface {
	Create(ctx context.Context, o repository.Offer) (repository.Offer, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Offer, error)
	ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]repository.Offer, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	Approve(ctx context.Context, id uuid.UUID, now time.Time) (repository.Offer, error)
	Close(ctx context.Context, id uuid.UUID, to domain.Status, reason *string, now time.Time) (repository.Offer, error)
	ExpireIfOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to domain.JobStatus, notes *string, now time.Time) (repository.Offer, error)
}

// QuoteFacts is the part of a quote the offer lifecycle reads.
type QuoteFacts struct {
	ID             uuid.UUID
	Status         string
	Terminal       bool
	CustomerName   string
	CustomerEmail  string
	FromAddress    string
	FromPostalCode string
	ToAddress      string
	ToPostalCode   string
	MoveDate       time.Time
}

// QuoteTransition is an automatic quote advance made inside an offer transaction.
type QuoteTransition struct {
	QuoteID uuid.UUID
	From    string
	To      string
	Changed bool
}

// QuoteGateway reads quotes and drives their automatic advances.
type QuoteGateway interface {
	GetQuote(ctx context.Context, id uuid.UUID) (QuoteFacts, error)
	Authorize(ctx context.Context, a actor.Actor, id uuid.UUID) (QuoteFacts, error)
	MarkOffersReceived(ctx context.Context, id uuid.UUID) (QuoteTransition, error)
	MarkOfferApproved(ctx context.Context, id uuid.UUID) (QuoteTransition, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (QuoteTransition, error)
	PublishTransition(ctx context.Context, t QuoteTransition)
}

// Assessment is a partner's standing on a quote at bid time.
type Assessment struct {
	CompanyName      string
	DistanceKm       *float64
	DriveTimeMinutes *int
	Score            float64
}

// PartnerGateway checks eligibility and maintains partner reputation.
type PartnerGateway interface {
	Assess(ctx context.Context, partnerID uuid.UUID, q QuoteFacts) (Assessment, error)
	IncrementCompletedJobs(ctx context.Context, partnerID uuid.UUID) error
}

// RecordedFee is the ledger line written for a completed job.
type RecordedFee struct {
	ID         uuid.UUID
	OrderValue int64
	Amount     int64
}

// Ledger records commission for completed jobs. Record joins the caller's
// transaction and fails with Conflict if the offer already has a fee.
type Ledger interface {
	Record(ctx context.Context, offerID, partnerID uuid.UUID, priceBeforeRUT int64) (RecordedFee, error)
}

// Config is the lifecycle configuration the offer service reads.
type Config interface {
	GetOfferValidity() time.Duration
}

// Service implements the offer and job lifecycles.
type Service struct {
	repo     Repository
	tx       db.Transactor
	quotes   QuoteGateway
	partners PartnerGateway
	ledger   Ledger
	policy   *domain.TransitionPolicy
	rut      domain.RUTRules
	validity time.Duration
	bus      events.Bus
	metrics  *metrics.TransitionMetrics
	log      *logger.Logger
	now      func() time.Time
}

// Deps groups the collaborators of the offer service.
type Deps struct {
	Repo     Repository
	Tx       db.Transactor
	Quotes   QuoteGateway
	Partners PartnerGateway
	Ledger   Ledger
	Policy   *domain.TransitionPolicy
	RUT      domain.RUTRules
	Config   Config
	Bus      events.Bus
	Metrics  *metrics.TransitionMetrics
	Log      *logger.Logger
}

// New creates a new offers service.
func New(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		tx:       d.Tx,
		quotes:   d.Quotes,
		partners: d.Partners,
		ledger:   d.Ledger,
		policy:   d.Policy,
		rut:      d.RUT,
		validity: d.Config.GetOfferValidity(),
		bus:      d.Bus,
		metrics:  d.Metrics,
		log:      d.Log,
		now:      time.Now,
	}
}

// Create submits a bid. Partners bid for themselves; administrators name the partner.
func (s *Service) Create(ctx context.Context, a actor.Actor, req transport.CreateOfferRequest) (transport.OfferResponse, error) {
	partnerID, err := biddingPartner(a, req.PartnerID)
	if err != nil {
		return transport.OfferResponse{}, err
	}

	availableDate, err := time.Parse(dateLayout, req.AvailableDate)
	if err != nil {
		return transport.OfferResponse{}, apperr.Validation("availableDate must be YYYY-MM-DD")
	}
	now := s.now().UTC()
	validUntil := now.Add(s.validity)
	if req.ValidUntil != nil {
		validUntil = req.ValidUntil.UTC()
	}
	if !validUntil.After(now) {
		return transport.OfferResponse{}, apperr.Validation("validUntil must be in the future")
	}

	applyRUT := true
	if req.ApplyRUT != nil {
		applyRUT = *req.ApplyRUT
	}
	pricing, err := domain.DeriveRUT(req.PriceBeforeRUT, applyRUT, s.rut)
	if err != nil {
		return transport.OfferResponse{}, err
	}

	q, err := s.quotes.GetQuote(ctx, req.QuoteID)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if q.Terminal {
		return transport.OfferResponse{}, apperr.Validationf("quote is %s", q.Status)
	}

	assessment, err := s.partners.Assess(ctx, partnerID, q)
	if err != nil {
		return transport.OfferResponse{}, err
	}

	o := repository.Offer{
		ID:               uuid.New(),
		QuoteID:          q.ID,
		PartnerID:        partnerID,
		CreatedBy:        a.UserIDPtr(),
		AvailableDate:    availableDate,
		TimeWindow:       optionalText(req.TimeWindow),
		EstimatedHours:   decimal.NewFromFloat(req.EstimatedHours).Round(1),
		TeamSize:         req.TeamSize,
		ApplyRUT:         applyRUT,
		PriceBeforeRUT:   pricing.PriceBeforeRUT,
		RUTDeduction:     pricing.RUTDeduction,
		TotalPrice:       pricing.TotalPrice,
		Terms:            optionalText(req.Terms),
		ValidUntil:       validUntil,
		DriveTimeMinutes: assessment.DriveTimeMinutes,
		RankingScore:     assessment.Score,
		CreatedAt:        now,
	}
	if assessment.DistanceKm != nil {
		o.DistanceKm = decimal.NewNullDecimal(decimal.NewFromFloat(*assessment.DistanceKm).Round(1))
	}

	var created repository.Offer
	var advanced QuoteTransition
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if created, err = s.repo.Create(ctx, o); err != nil {
			return err
		}
		advanced, err = s.quotes.MarkOffersReceived(ctx, q.ID)
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityOffer, string(domain.StatusPending))
		}
		return transport.OfferResponse{}, err
	}

	s.quotes.PublishTransition(ctx, advanced)
	s.metrics.Transition(entityOffer, string(domain.StatusPending))
	s.log.Info("offer submitted", "offerId", created.ID, "quoteId", q.ID, "partnerId", partnerID, "totalPrice", created.TotalPrice)
	s.bus.Publish(ctx, events.OfferSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		OfferID:       created.ID,
		QuoteID:       q.ID,
		PartnerID:     partnerID,
		CompanyName:   assessment.CompanyName,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		TotalPrice:    created.TotalPrice,
		RUTDeduction:  created.RUTDeduction,
		AvailableDate: created.AvailableDate,
		ValidUntil:    created.ValidUntil,
		Move:          moveSummary(q),
	})
	return mapOffer(created), nil
}

// Get returns an offer visible to the actor: administrators, the bidding
// partner, or the customer who owns the quote.
func (s *Service) Get(ctx context.Context, a actor.Actor, id uuid.UUID) (transport.OfferResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if err := s.authorizeView(ctx, a, o); err != nil {
		return transport.OfferResponse{}, err
	}
	return mapOffer(o), nil
}

// ListForQuote returns a quote's offers, best ranked first.
func (s *Service) ListForQuote(ctx context.Context, a actor.Actor, quoteID uuid.UUID) ([]transport.OfferResponse, error) {
	if _, err := s.quotes.Authorize(ctx, a, quoteID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	out := make([]transport.OfferResponse, 0, len(items))
	for _, o := range items {
		if s.isOverdue(o) {
			if o, err = s.reconcile(ctx, o); err != nil {
				return nil, err
			}
		}
		out = append(out, mapOffer(o))
	}
	return out, nil
}

// ListForPartner returns the partner's own offers, newest first.
func (s *Service) ListForPartner(ctx context.Context, partnerID uuid.UUID, req transport.ListOffersRequest) (transport.ListOffersResponse, error) {
	return s.list(ctx, &partnerID, req)
}

// List returns offers across all partners for administrators.
func (s *Service) List(ctx context.Context, req transport.ListOffersRequest) (transport.ListOffersResponse, error) {
	return s.list(ctx, nil, req)
}

func (s *Service) list(ctx context.Context, partnerID *uuid.UUID, req transport.ListOffersRequest) (transport.ListOffersResponse, error) {
	page, pageSize := normalizePaging(req.Page, req.PageSize)
	params := repository.ListParams{PartnerID: partnerID, Page: page, PageSize: pageSize}
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.ListOffersResponse{}, err
		}
		params.Status = &st
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListOffersResponse{}, err
	}
	items := make([]transport.OfferResponse, len(result.Items))
	for i, o := range result.Items {
		if s.isOverdue(o) {
			if o, err = s.reconcile(ctx, o); err != nil {
				return transport.ListOffersResponse{}, err
			}
		}
		items[i] = mapOffer(o)
	}
	return transport.ListOffersResponse{
		Items:      items,
		Total:      result.Total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (result.Total + pageSize - 1) / pageSize,
	}, nil
}

// Approve accepts an offer. The first approval on a quote wins; later
// attempts fail with Conflict. The quote advances in the same transaction.
func (s *Service) Approve(ctx context.Context, a actor.Actor, id uuid.UUID) (transport.OfferResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if err := s.authorizeDecision(ctx, a, o); err != nil {
		return transport.OfferResponse{}, err
	}
	switch o.Status {
	case domain.StatusPending:
	case domain.StatusApproved:
		s.metrics.Conflict(entityOffer, string(domain.StatusApproved))
		return transport.OfferResponse{}, apperr.Conflict("offer is already approved")
	default:
		return transport.OfferResponse{}, apperr.Validationf("offer is %s", o.Status)
	}
	q, err := s.quotes.GetQuote(ctx, o.QuoteID)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if q.Terminal {
		return transport.OfferResponse{}, apperr.Validationf("quote is %s", q.Status)
	}

	var approved repository.Offer
	var advanced QuoteTransition
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if approved, err = s.repo.Approve(ctx, id, s.now().UTC()); err != nil {
			return err
		}
		advanced, err = s.quotes.MarkOfferApproved(ctx, o.QuoteID)
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityOffer, string(domain.StatusApproved))
		}
		return transport.OfferResponse{}, err
	}

	s.quotes.PublishTransition(ctx, advanced)
	s.afterOfferTransition(o, domain.StatusApproved)
	s.log.Transition(entityJob, id.String(), "", string(domain.JobConfirmed))
	s.bus.Publish(ctx, events.OfferApproved{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   id,
		QuoteID:   o.QuoteID,
		PartnerID: o.PartnerID,
		ActorID:   a.UserID,
	})
	return mapOffer(approved), nil
}

// Reject declines a pending offer.
func (s *Service) Reject(ctx context.Context, a actor.Actor, id uuid.UUID, reason string) (transport.OfferResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if err := s.authorizeDecision(ctx, a, o); err != nil {
		return transport.OfferResponse{}, err
	}

	closed, err := s.close(ctx, o, domain.StatusRejected, sanitize.TextPtr(&reason))
	if err != nil {
		return transport.OfferResponse{}, err
	}
	s.bus.Publish(ctx, events.OfferRejected{
		BaseEvent: events.NewBaseEvent(),
		OfferID:   id,
		QuoteID:   o.QuoteID,
		PartnerID: o.PartnerID,
		Reason:    deref(closed.RejectionReason),
	})
	return mapOffer(closed), nil
}

// Withdraw retracts a pending offer. Only the bidding partner or an administrator may.
func (s *Service) Withdraw(ctx context.Context, a actor.Actor, id uuid.UUID) (transport.OfferResponse, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if !a.IsAdmin() && !a.OwnsPartner(o.PartnerID) {
		return transport.OfferResponse{}, apperr.NotFound("offer not found")
	}

	closed, err := s.close(ctx, o, domain.StatusWithdrawn, nil)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	return mapOffer(closed), nil
}

func (s *Service) close(ctx context.Context, o repository.Offer, to domain.Status, reason *string) (repository.Offer, error) {
	if o.Status != domain.StatusPending {
		return repository.Offer{}, apperr.Validationf("offer is %s", o.Status)
	}
	closed, err := s.repo.Close(ctx, o.ID, to, reason, s.now().UTC())
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityOffer, string(to))
		}
		return repository.Offer{}, err
	}
	s.afterOfferTransition(o, to)
	return closed, nil
}

// ExpireOverdue expires up to limit overdue pending offers.
func (s *Service) ExpireOverdue(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.ExpireOverdue(ctx, s.now().UTC(), limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.log.Transition(entityOffer, id.String(), string(domain.StatusPending), string(domain.StatusExpired))
		s.metrics.Transition(entityOffer, string(domain.StatusExpired))
		s.bus.Publish(ctx, events.OfferExpired{BaseEvent: events.NewBaseEvent(), OfferID: id})
	}
	return len(ids), nil
}

// UpdateJobStatus moves the job of an approved offer. Completion increments
// the partner's job count, records the commission fee and completes the
// quote, all in one transaction.
func (s *Service) UpdateJobStatus(ctx context.Context, a actor.Actor, id uuid.UUID, req transport.UpdateJobStatusRequest) (transport.OfferResponse, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	if !a.IsPrivileged() && !a.OwnsPartner(o.PartnerID) {
		return transport.OfferResponse{}, apperr.NotFound("offer not found")
	}
	if o.Status != domain.StatusApproved || o.JobStatus == nil {
		return transport.OfferResponse{}, apperr.Validation("offer is not approved")
	}

	to, err := domain.ParseJobStatus(req.Status)
	if err != nil {
		return transport.OfferResponse{}, err
	}
	from := *o.JobStatus
	if err := s.policy.Validate(from, to); err != nil {
		return transport.OfferResponse{}, err
	}

	q, err := s.quotes.GetQuote(ctx, o.QuoteID)
	if err != nil {
		return transport.OfferResponse{}, err
	}

	var updated repository.Offer
	var fee RecordedFee
	var advanced QuoteTransition
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.repo.UpdateJobStatus(ctx, id, from, to, sanitize.TextPtr(req.Notes), s.now().UTC())
		if err != nil {
			return err
		}
		if to != domain.JobCompleted {
			return nil
		}

		if err := s.partners.IncrementCompletedJobs(ctx, o.PartnerID); err != nil {
			return err
		}
		if fee, err = s.ledger.Record(ctx, o.ID, o.PartnerID, o.PriceBeforeRUT); err != nil {
			return err
		}
		advanced, err = s.quotes.MarkCompleted(ctx, o.QuoteID)
		return err
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			s.metrics.Conflict(entityJob, string(to))
		}
		return transport.OfferResponse{}, err
	}

	s.log.Transition(entityJob, id.String(), string(from), string(to))
	s.metrics.Transition(entityJob, string(to))
	if to == domain.JobCompleted {
		s.quotes.PublishTransition(ctx, advanced)
		s.log.Info("commission fee recorded", "offerId", id, "partnerId", o.PartnerID, "feeId", fee.ID, "feeAmount", fee.Amount)
		s.bus.Publish(ctx, events.CommissionFeeRecorded{
			BaseEvent:  events.NewBaseEvent(),
			FeeID:      fee.ID,
			OfferID:    id,
			PartnerID:  o.PartnerID,
			OrderValue: fee.OrderValue,
			FeeAmount:  fee.Amount,
		})
	}
	s.bus.Publish(ctx, events.JobStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		OfferID:       id,
		QuoteID:       o.QuoteID,
		PartnerID:     o.PartnerID,
		CompanyName:   updated.CompanyName,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		OldStatus:     string(from),
		NewStatus:     string(to),
		Notes:         deref(updated.JobNotes),
		Move:          moveSummary(q),
	})
	return mapOffer(updated), nil
}

// load fetches an offer, expiring it first when its validity has passed.
func (s *Service) load(ctx context.Context, id uuid.UUID) (repository.Offer, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Offer{}, err
	}
	if s.isOverdue(o) {
		return s.reconcile(ctx, o)
	}
	return o, nil
}

func (s *Service) reconcile(ctx context.Context, o repository.Offer) (repository.Offer, error) {
	expired, err := s.repo.ExpireIfOverdue(ctx, o.ID, s.now().UTC())
	if err != nil {
		return repository.Offer{}, err
	}
	if expired {
		s.afterOfferTransition(o, domain.StatusExpired)
		s.bus.Publish(ctx, events.OfferExpired{
			BaseEvent: events.NewBaseEvent(),
			OfferID:   o.ID,
			QuoteID:   o.QuoteID,
			PartnerID: o.PartnerID,
		})
	}
	return s.repo.GetByID(ctx, o.ID)
}

func (s *Service) isOverdue(o repository.Offer) bool {
	return o.Status == domain.StatusPending && o.ValidUntil.Before(s.now())
}

func (s *Service) afterOfferTransition(o repository.Offer, to domain.Status) {
	s.log.Transition(entityOffer, o.ID.String(), string(o.Status), string(to))
	s.metrics.Transition(entityOffer, string(to))
}

func (s *Service) authorizeView(ctx context.Context, a actor.Actor, o repository.Offer) error {
	if a.IsPrivileged() || a.OwnsPartner(o.PartnerID) {
		return nil
	}
	if _, err := s.quotes.Authorize(ctx, a, o.QuoteID); err != nil {
		return apperr.NotFound("offer not found")
	}
	return nil
}

// authorizeDecision allows administrators and the customer who owns the quote.
func (s *Service) authorizeDecision(ctx context.Context, a actor.Actor, o repository.Offer) error {
	if a.IsAdmin() {
		return nil
	}
	if a.Role != actor.RoleCustomer {
		return apperr.Forbidden("only the customer or an administrator may decide on offers")
	}
	if _, err := s.quotes.Authorize(ctx, a, o.QuoteID); err != nil {
		return apperr.NotFound("offer not found")
	}
	return nil
}

func biddingPartner(a actor.Actor, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case a.IsAdmin():
		if requested == nil || *requested == uuid.Nil {
			return uuid.Nil, apperr.Validation("partnerId is required")
		}
		return *requested, nil
	case a.Role == actor.RolePartner && a.PartnerID != nil:
		if requested != nil && *requested != *a.PartnerID {
			return uuid.Nil, apperr.Forbidden("cannot bid on behalf of another partner")
		}
		return *a.PartnerID, nil
	default:
		return uuid.Nil, apperr.Forbidden("only partners may submit offers")
	}
}

func moveSummary(q QuoteFacts) events.MoveSummary {
	return events.MoveSummary{
		FromAddress:    q.FromAddress,
		FromPostalCode: q.FromPostalCode,
		ToAddress:      q.ToAddress,
		ToPostalCode:   q.ToPostalCode,
		MoveDate:       q.MoveDate,
	}
}

func optionalText(s string) *string {
	return sanitize.TextPtr(&s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
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

func mapOffer(o repository.Offer) transport.OfferResponse {
	resp := transport.OfferResponse{
		ID:                 o.ID,
		QuoteID:            o.QuoteID,
		PartnerID:          o.PartnerID,
		CompanyName:        o.CompanyName,
		AvailableDate:      o.AvailableDate.Format(dateLayout),
		TimeWindow:         o.TimeWindow,
		EstimatedHours:     o.EstimatedHours.StringFixed(1),
		TeamSize:           o.TeamSize,
		ApplyRUT:           o.ApplyRUT,
		PriceBeforeRUT:     o.PriceBeforeRUT,
		RUTDeduction:       o.RUTDeduction,
		TotalPrice:         o.TotalPrice,
		Terms:              o.Terms,
		ValidUntil:         o.ValidUntil,
		DriveTimeMinutes:   o.DriveTimeMinutes,
		RankingScore:       o.RankingScore,
		Status:             string(o.Status),
		RejectionReason:    o.RejectionReason,
		ApprovedAt:         o.ApprovedAt,
		JobStatusUpdatedAt: o.JobStatusUpdatedAt,
		JobNotes:           o.JobNotes,
		CreatedAt:          o.CreatedAt,
	}
	if o.DistanceKm.Valid {
		d := o.DistanceKm.Decimal.StringFixed(1)
		resp.DistanceKm = &d
	}
	if o.JobStatus != nil {
		js := string(*o.JobStatus)
		resp.JobStatus = &js
	}
	return resp
}
