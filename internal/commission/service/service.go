package service

import (
	"context"
	"strings"
	"time"

	"flyttbas_backend/internal/commission/policy"
	"flyttbas_backend/internal/commission/repository"
	"flyttbas_backend/internal/commission/transport"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository is the persistence the commission service needs.
type Repository interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	UpsertSetting(ctx context.Context, key, value string, updatedBy uuid.UUID) error
	InsertFee(ctx context.Context, fee repository.Fee) (repository.Fee, error)
	GetFee(ctx context.Context, id uuid.UUID) (repository.Fee, error)
	GetFeeByOffer(ctx context.Context, offerID uuid.UUID) (repository.Fee, error)
	ListFees(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	MarkInvoiced(ctx context.Context, id uuid.UUID, now time.Time) (repository.Fee, error)
	MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (repository.Fee, error)
	IssueCreditNote(ctx context.Context, id uuid.UUID, amount int64, reason string, now time.Time) (repository.Fee, error)
	PartnerSummary(ctx context.Context, partnerID uuid.UUID) (repository.Summary, error)
}

// OverrideReader supplies a partner's commission override.
type OverrideReader interface {
	CommissionOverride(ctx context.Context, partnerID uuid.UUID) (policy.Override, error)
}

// OfferFacts is what the ledger needs to know about a completed job.
type OfferFacts struct {
	OfferID        uuid.UUID
	PartnerID      uuid.UUID
	PriceBeforeRUT int64
}

// Service provides the commission settings collaborator and the fee ledger.
type Service struct {
	repo      Repository
	tx        db.Transactor
	overrides OverrideReader
	fallback  policy.Defaults
	bounds    policy.Bounds
	log       *logger.Logger
	now       func() time.Time
}

// New creates a new commission service. fallback is used for any default
// not yet stored in system_settings.
func New(repo Repository, tx db.Transactor, fallback policy.Defaults, bounds policy.Bounds, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		fallback: fallback,
		bounds:   bounds,
		log:      log,
		now:      time.Now,
	}
}

// SetOverrideReader wires the partner registry after both modules exist.
func (s *Service) SetOverrideReader(r OverrideReader) {
	s.overrides = r
}

// GetDefaults returns the stored system default, falling back to configuration per field.
func (s *Service) GetDefaults(ctx context.Context) (policy.Defaults, error) {
	out := s.fallback

	rawRate, ok, err := s.repo.GetSetting(ctx, repository.SettingDefaultRate)
	if err != nil {
		return policy.Defaults{}, err
	}
	if ok {
		rate, err := decimal.NewFromString(rawRate)
		if err != nil {
			s.log.Warn("ignoring malformed commission default rate", "value", rawRate, "error", err)
		} else {
			out.Rate = rate
		}
	}

	rawType, ok, err := s.repo.GetSetting(ctx, repository.SettingDefaultType)
	if err != nil {
		return policy.Defaults{}, err
	}
	if ok {
		t, err := policy.ParseType(rawType)
		if err != nil {
			s.log.Warn("ignoring malformed commission default type", "value", rawType)
		} else {
			out.Type = t
		}
	}

	return out, nil
}

func (s *Service) GetSettings(ctx context.Context) (transport.SettingsResponse, error) {
	defaults, err := s.GetDefaults(ctx)
	if err != nil {
		return transport.SettingsResponse{}, err
	}
	return s.mapSettings(defaults), nil
}

// SetDefaults validates and stores the system default. Out-of-range rates are rejected.
func (s *Service) SetDefaults(ctx context.Context, actorID uuid.UUID, req transport.UpdateSettingsRequest) (transport.SettingsResponse, error) {
	t, err := policy.ParseType(req.Type)
	if err != nil {
		return transport.SettingsResponse{}, err
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(req.Rate))
	if err != nil {
		return transport.SettingsResponse{}, apperr.Validation("rate must be a decimal number")
	}
	if err := s.bounds.Validate(t, rate); err != nil {
		return transport.SettingsResponse{}, err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpsertSetting(ctx, repository.SettingDefaultRate, rate.String(), actorID); err != nil {
			return err
		}
		return s.repo.UpsertSetting(ctx, repository.SettingDefaultType, string(t), actorID)
	})
	if err != nil {
		return transport.SettingsResponse{}, err
	}

	s.log.Info("commission defaults updated", "rate", rate.String(), "type", string(t), "actorId", actorID)
	return s.mapSettings(policy.Defaults{Rate: rate, Type: t}), nil
}

// ValidateOverride checks a partner override against the bounds once it is
// resolved against the current defaults.
func (s *Service) ValidateOverride(ctx context.Context, override policy.Override) error {
	if override.IsZero() {
		return nil
	}
	defaults, err := s.GetDefaults(ctx)
	if err != nil {
		return err
	}
	p := policy.Resolve(defaults, override)
	return s.bounds.Validate(p.Type, p.Rate)
}

// PolicyFor resolves the effective commission for a partner.
func (s *Service) PolicyFor(ctx context.Context, partnerID uuid.UUID) (policy.Policy, error) {
	defaults, err := s.GetDefaults(ctx)
	if err != nil {
		return policy.Policy{}, err
	}

	var override policy.Override
	if s.overrides != nil {
		override, err = s.overrides.CommissionOverride(ctx, partnerID)
		if err != nil {
			return policy.Policy{}, err
		}
	}
	return policy.Resolve(defaults, override), nil
}

// Record computes and stores the fee for a completed job. It joins the
// caller's transaction; a second call for the same offer returns Conflict.
func (s *Service) Record(ctx context.Context, facts OfferFacts) (repository.Fee, error) {
	resolved, err := s.PolicyFor(ctx, facts.PartnerID)
	if err != nil {
		return repository.Fee{}, err
	}
	p, clamped, err := s.bounds.Clamp(resolved)
	if err != nil {
		return repository.Fee{}, err
	}
	if clamped {
		s.log.Warn("commission rate outside bounds, clamped",
			"partnerId", facts.PartnerID,
			"offerId", facts.OfferID,
			"type", string(p.Type),
			"resolvedRate", resolved.Rate.String(),
			"appliedRate", p.Rate.String(),
		)
	}

	fee, err := policy.Compute(p, facts.PriceBeforeRUT)
	if err != nil {
		return repository.Fee{}, err
	}

	row := repository.Fee{
		ID:         uuid.New(),
		OfferID:    facts.OfferID,
		PartnerID:  facts.PartnerID,
		OrderValue: fee.OrderValue,
		FeeAmount:  fee.Amount,
	}
	if fee.Percentage != nil {
		row.FeePercentage = decimal.NullDecimal{Decimal: *fee.Percentage, Valid: true}
	}

	return s.repo.InsertFee(ctx, row)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.FeeResponse, error) {
	fee, err := s.repo.GetFee(ctx, id)
	if err != nil {
		return transport.FeeResponse{}, err
	}
	return mapFee(fee), nil
}

func (s *Service) GetByOffer(ctx context.Context, offerID uuid.UUID) (transport.FeeResponse, error) {
	fee, err := s.repo.GetFeeByOffer(ctx, offerID)
	if err != nil {
		return transport.FeeResponse{}, err
	}
	return mapFee(fee), nil
}

// List returns ledger lines. partnerScope, when set, overrides any partner filter in req.
func (s *Service) List(ctx context.Context, req transport.ListFeesRequest, partnerScope *uuid.UUID) (transport.ListFeesResponse, error) {
	page, pageSize := normalizePaging(req.Page, req.PageSize)

	params := repository.ListParams{State: req.State, Page: page, PageSize: pageSize}
	switch {
	case partnerScope != nil:
		params.PartnerID = partnerScope
	case req.PartnerID != "":
		id, err := uuid.Parse(req.PartnerID)
		if err != nil {
			return transport.ListFeesResponse{}, apperr.Validation("invalid partnerId")
		}
		params.PartnerID = &id
	}

	result, err := s.repo.ListFees(ctx, params)
	if err != nil {
		return transport.ListFeesResponse{}, err
	}

	items := make([]transport.FeeResponse, len(result.Items))
	for i, fee := range result.Items {
		items[i] = mapFee(fee)
	}

	totalPages := (result.Total + pageSize - 1) / pageSize
	return transport.ListFeesResponse{
		Items:      items,
		Total:      result.Total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) GenerateInvoice(ctx context.Context, id uuid.UUID) (transport.FeeResponse, error) {
	fee, err := s.repo.MarkInvoiced(ctx, id, s.now().UTC())
	if err != nil {
		return transport.FeeResponse{}, err
	}
	s.log.Info("commission invoice generated", "feeId", id, "invoiceNumber", deref(fee.InvoiceNumber))
	return mapFee(fee), nil
}

func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (transport.FeeResponse, error) {
	fee, err := s.repo.MarkPaid(ctx, id, s.now().UTC())
	if err != nil {
		return transport.FeeResponse{}, err
	}
	return mapFee(fee), nil
}

// IssueCreditNote reverses up to the full fee amount, once.
func (s *Service) IssueCreditNote(ctx context.Context, id uuid.UUID, req transport.CreditNoteRequest) (transport.FeeResponse, error) {
	if req.Amount <= 0 {
		return transport.FeeResponse{}, apperr.Validation("credit note amount must be positive")
	}
	reason := sanitize.Text(req.Reason)
	if reason == "" {
		return transport.FeeResponse{}, apperr.Validation("credit note reason is required")
	}

	current, err := s.repo.GetFee(ctx, id)
	if err != nil {
		return transport.FeeResponse{}, err
	}
	if req.Amount > current.FeeAmount {
		return transport.FeeResponse{}, apperr.Validationf("credit note amount %d exceeds fee amount %d", req.Amount, current.FeeAmount)
	}

	fee, err := s.repo.IssueCreditNote(ctx, id, req.Amount, reason, s.now().UTC())
	if err != nil {
		return transport.FeeResponse{}, err
	}
	s.log.Info("commission credit note issued", "feeId", id, "creditNoteNumber", deref(fee.CreditNoteNumber), "amount", req.Amount)
	return mapFee(fee), nil
}

func (s *Service) PartnerSummary(ctx context.Context, partnerID uuid.UUID) (transport.SummaryResponse, error) {
	sum, err := s.repo.PartnerSummary(ctx, partnerID)
	if err != nil {
		return transport.SummaryResponse{}, err
	}
	return transport.SummaryResponse{
		PartnerID:     partnerID,
		FeeCount:      sum.FeeCount,
		TotalFees:     sum.TotalFees,
		TotalInvoiced: sum.TotalInvoiced,
		TotalPaid:     sum.TotalPaid,
		TotalCredited: sum.TotalCredited,
		Outstanding:   sum.TotalInvoiced - sum.TotalPaid,
	}, nil
}

func (s *Service) mapSettings(d policy.Defaults) transport.SettingsResponse {
	return transport.SettingsResponse{
		DefaultRate: d.Rate.String(),
		DefaultType: string(d.Type),
		MinRate:     s.bounds.MinRate.String(),
		MaxRate:     s.bounds.MaxRate.String(),
		MaxFixed:    s.bounds.MaxFixed.String(),
	}
}

func mapFee(f repository.Fee) transport.FeeResponse {
	var pct *string
	if f.FeePercentage.Valid {
		v := f.FeePercentage.Decimal.String()
		pct = &v
	}
	return transport.FeeResponse{
		ID:                 f.ID,
		OfferID:            f.OfferID,
		PartnerID:          f.PartnerID,
		OrderValue:         f.OrderValue,
		FeeAmount:          f.FeeAmount,
		FeePercentage:      pct,
		InvoiceNumber:      f.InvoiceNumber,
		InvoiceGeneratedAt: f.InvoiceGeneratedAt,
		InvoicePaidAt:      f.InvoicePaidAt,
		CreditNoteNumber:   f.CreditNoteNumber,
		CreditNoteAmount:   f.CreditNoteAmount,
		CreditNoteReason:   f.CreditNoteReason,
		CreditedAt:         f.CreditedAt,
		CreatedAt:          f.CreatedAt,
	}
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

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
