package service

import (
	"context"
	"io"
	"strings"
	"time"

	"flyttbas_backend/internal/commission/policy"
	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/partners/domain"
	"flyttbas_backend/internal/partners/repository"
	"flyttbas_backend/internal/partners/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/config"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/phone"
	"flyttbas_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
	entityPartner   = "partner"
)

// Repository is the persistence the partner service needs.
type Repository interface {
	Create(ctx context.Context, p repository.Partner) (repository.Partner, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Partner, error)
	List(ctx context.Context, params repository.ListParams) (repository.ListResult, error)
	ListEligibilityPool(ctx context.Context, originPostalCode string) ([]repository.Partner, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, reviewedBy uuid.UUID, note *string, now time.Time) (domain.Status, repository.Partner, error)
	UpdateServiceArea(ctx context.Context, id uuid.UUID, maxKm *int, postalCodes []string, now time.Time) (repository.Partner, error)
	SetCommissionOverride(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal, typ *string, now time.Time) (repository.Partner, error)
	SetSponsored(ctx context.Context, id uuid.UUID, sponsored bool, now time.Time) (repository.Partner, error)
	SetDocumentKey(ctx context.Context, id uuid.UUID, kind domain.DocumentKind, key string, now time.Time) (repository.Partner, error)
	IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error
}

// QuoteFacts is the part of a quote the eligibility filter reads.
type QuoteFacts struct {
	ID             uuid.UUID
	Status         string
	Open           bool
	FromAddress    string
	FromPostalCode string
	FromLat        *float64
	FromLng        *float64
	ToAddress      string
	ToPostalCode   string
	ToLat          *float64
	ToLng          *float64
	MoveDate       time.Time
}

// QuoteReader loads quotes after lazy expiry.
type QuoteReader interface {
	GetQuote(ctx context.Context, id uuid.UUID) (QuoteFacts, error)
	ListOpenQuotes(ctx context.Context, page, pageSize int) ([]QuoteFacts, int, error)
}

// DistanceCalculator measures the move from origin to destination.
type DistanceCalculator interface {
	MoveDistance(ctx context.Context, q QuoteFacts) (domain.Distance, error)
}

// OfferIndex reports which partners already hold a non-withdrawn offer.
type OfferIndex interface {
	ActivePartnerIDs(ctx context.Context, quoteID uuid.UUID) (map[uuid.UUID]bool, error)
	ActiveQuoteIDs(ctx context.Context, partnerID uuid.UUID) (map[uuid.UUID]bool, error)
}

// OverrideValidator checks a commission override against the configured bounds.
type OverrideValidator interface {
	ValidateOverride(ctx context.Context, override policy.Override) error
}

// DocumentStore keeps uploaded eligibility documents.
type DocumentStore interface {
	Upload(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)
	DownloadURL(ctx context.Context, bucket, key string) (string, error)
}

// Config is the lifecycle configuration the partner service reads.
type Config interface {
	GetDefaultMaxDriveDistanceKm() int
	GetRankingWeights() config.RankingWeights
}

// Assessment is an eligible partner's standing on one quote.
type Assessment struct {
	Partner  repository.Partner
	Distance *domain.Distance
	Score    float64
}

// Service manages the partner registry and the eligibility filter.
type Service struct {
	repo      Repository
	quotes    QuoteReader
	distances DistanceCalculator
	overrides OverrideValidator
	offers    OfferIndex
	docs      DocumentStore
	bucket    string
	bus       events.Bus
	log       *logger.Logger
	maxKm     int
	weights   domain.Weights
	now       func() time.Time
}

// New creates a new partners service. distances may be nil, in which case
// only postal-code lists make partners eligible.
func New(repo Repository, quotes QuoteReader, distances DistanceCalculator, overrides OverrideValidator, bus events.Bus, cfg Config, log *logger.Logger) *Service {
	w := cfg.GetRankingWeights()
	weights := domain.Weights{Distance: w.Distance, Rating: w.Rating, Volume: w.Volume}
	if weights == (domain.Weights{}) {
		weights = domain.DefaultWeights
	}
	return &Service{
		repo:      repo,
		quotes:    quotes,
		distances: distances,
		overrides: overrides,
		bus:       bus,
		log:       log,
		maxKm:     cfg.GetDefaultMaxDriveDistanceKm(),
		weights:   weights,
		now:       time.Now,
	}
}

// SetOfferIndex injects the offer lookup. The offers module is built after
// this one, so the dependency is wired late.
func (s *Service) SetOfferIndex(idx OfferIndex) {
	s.offers = idx
}

// SetDocumentStore enables document uploads into bucket.
func (s *Service) SetDocumentStore(store DocumentStore, bucket string) {
	s.docs = store
	s.bucket = bucket
}

// Apply registers a moving company as a pending partner.
func (s *Service) Apply(ctx context.Context, a actor.Actor, req transport.ApplyRequest) (transport.PartnerResponse, error) {
	contactPhone, ok := phone.NormalizeE164(req.ContactPhone)
	if !ok {
		return transport.PartnerResponse{}, apperr.Validation("invalid request").WithDetails(map[string]string{
			"ContactPhone": "must be a valid phone number",
		})
	}

	var insuranceValidUntil *time.Time
	if req.InsuranceValidUntil != "" {
		d, err := time.Parse(dateLayout, req.InsuranceValidUntil)
		if err != nil {
			return transport.PartnerResponse{}, apperr.Validation("insuranceValidUntil must be YYYY-MM-DD")
		}
		insuranceValidUntil = &d
	}

	now := s.now().UTC()
	p := repository.Partner{
		ID:                  uuid.New(),
		UserID:              a.UserIDPtr(),
		CompanyName:         sanitize.Text(req.CompanyName),
		OrgNumber:           sanitize.OrgNumber(req.OrgNumber),
		ContactName:         sanitize.Text(req.ContactName),
		ContactEmail:        sanitize.Email(req.ContactEmail),
		ContactPhone:        contactPhone,
		Status:              domain.StatusPending,
		LicenseNumber:       optionalText(req.LicenseNumber),
		InsuranceProvider:   optionalText(req.InsuranceProvider),
		InsuranceValidUntil: insuranceValidUntil,
		HasTaxCertificate:   req.HasTaxCertificate,
		MaxDriveDistanceKm:  req.MaxDriveDistanceKm,
		ServicePostalCodes:  sanitize.PostalCodes(req.ServicePostalCodes),
		CreatedAt:           now,
	}
	if p.CompanyName == "" || p.ContactName == "" {
		return transport.PartnerResponse{}, apperr.Validation("company and contact name are required")
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return transport.PartnerResponse{}, err
	}

	s.log.Info("partner application received", "partnerId", created.ID, "orgNumber", created.OrgNumber)
	s.bus.Publish(ctx, events.PartnerApplicationReceived{
		BaseEvent:    events.NewBaseEvent(),
		PartnerID:    created.ID,
		CompanyName:  created.CompanyName,
		OrgNumber:    created.OrgNumber,
		ContactName:  created.ContactName,
		ContactEmail: created.ContactEmail,
	})
	return mapPartner(created), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.PartnerResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	return mapPartner(p), nil
}

func (s *Service) List(ctx context.Context, req transport.ListPartnersRequest) (transport.ListPartnersResponse, error) {
	page, pageSize := normalizePaging(req.Page, req.PageSize)
	params := repository.ListParams{Page: page, PageSize: pageSize}
	if req.Status != "" {
		st, err := domain.ParseStatus(req.Status)
		if err != nil {
			return transport.ListPartnersResponse{}, err
		}
		params.Status = &st
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListPartnersResponse{}, err
	}
	items := make([]transport.PartnerResponse, len(result.Items))
	for i, p := range result.Items {
		items[i] = mapPartner(p)
	}
	return transport.ListPartnersResponse{
		Items:      items,
		Total:      result.Total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (result.Total + pageSize - 1) / pageSize,
	}, nil
}

// UpdateStatus records an administrator's review of a partner.
func (s *Service) UpdateStatus(ctx context.Context, a actor.Actor, id uuid.UUID, req transport.UpdateStatusRequest) (transport.PartnerResponse, error) {
	if !a.IsAdmin() {
		return transport.PartnerResponse{}, apperr.Forbidden("only administrators may review partners")
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		return transport.PartnerResponse{}, err
	}

	note := sanitize.TextPtr(&req.Note)
	previous, updated, err := s.repo.UpdateStatus(ctx, id, status, a.UserID, note, s.now().UTC())
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	if previous == status {
		return mapPartner(updated), nil
	}

	s.log.Transition(entityPartner, id.String(), string(previous), string(status))
	s.bus.Publish(ctx, events.PartnerStatusChanged{
		BaseEvent:    events.NewBaseEvent(),
		PartnerID:    updated.ID,
		CompanyName:  updated.CompanyName,
		ContactName:  updated.ContactName,
		ContactEmail: updated.ContactEmail,
		OldStatus:    string(previous),
		NewStatus:    string(status),
		Note:         deref(note),
		ReviewedBy:   a.UserID,
	})
	return mapPartner(updated), nil
}

func (s *Service) UpdateServiceArea(ctx context.Context, id uuid.UUID, req transport.UpdateServiceAreaRequest) (transport.PartnerResponse, error) {
	updated, err := s.repo.UpdateServiceArea(ctx, id, req.MaxDriveDistanceKm, sanitize.PostalCodes(req.ServicePostalCodes), s.now().UTC())
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	return mapPartner(updated), nil
}

// SetCommissionOverride stores a per-partner rate and/or type. Sending
// neither clears the override.
func (s *Service) SetCommissionOverride(ctx context.Context, id uuid.UUID, req transport.CommissionOverrideRequest) (transport.PartnerResponse, error) {
	var override policy.Override
	rate := decimal.NullDecimal{}
	if req.Rate != nil && strings.TrimSpace(*req.Rate) != "" {
		r, err := decimal.NewFromString(strings.TrimSpace(*req.Rate))
		if err != nil {
			return transport.PartnerResponse{}, apperr.Validation("rate must be a number")
		}
		override.Rate = &r
		rate = decimal.NewNullDecimal(r)
	}
	var typ *string
	if req.Type != nil && *req.Type != "" {
		t, err := policy.ParseType(*req.Type)
		if err != nil {
			return transport.PartnerResponse{}, err
		}
		override.Type = &t
		v := string(t)
		typ = &v
	}

	if !override.IsZero() && s.overrides != nil {
		if err := s.overrides.ValidateOverride(ctx, override); err != nil {
			return transport.PartnerResponse{}, err
		}
	}

	updated, err := s.repo.SetCommissionOverride(ctx, id, rate, typ, s.now().UTC())
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	s.log.Info("partner commission override set", "partnerId", id, "rate", deref(req.Rate), "type", deref(typ))
	return mapPartner(updated), nil
}

func (s *Service) SetSponsored(ctx context.Context, id uuid.UUID, sponsored bool) (transport.PartnerResponse, error) {
	updated, err := s.repo.SetSponsored(ctx, id, sponsored, s.now().UTC())
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	return mapPartner(updated), nil
}

// CommissionOverride returns the partner's override for the commission ledger.
func (s *Service) CommissionOverride(ctx context.Context, partnerID uuid.UUID) (policy.Override, error) {
	p, err := s.repo.GetByID(ctx, partnerID)
	if err != nil {
		return policy.Override{}, err
	}
	var out policy.Override
	if p.CommissionRateOverride.Valid {
		r := p.CommissionRateOverride.Decimal
		out.Rate = &r
	}
	if p.CommissionTypeOverride != nil {
		t, err := policy.ParseType(*p.CommissionTypeOverride)
		if err != nil {
			return policy.Override{}, err
		}
		out.Type = &t
	}
	return out, nil
}

// IncrementCompletedJobs bumps the partner's completed job counter inside the caller's transaction.
func (s *Service) IncrementCompletedJobs(ctx context.Context, partnerID uuid.UUID) error {
	return s.repo.IncrementCompletedJobs(ctx, partnerID)
}

// UploadDocument stores an eligibility document and records its key.
// Partners may only upload their own documents.
func (s *Service) UploadDocument(ctx context.Context, a actor.Actor, partnerID uuid.UUID, kind, fileName, contentType string, size int64, r io.Reader) (transport.PartnerResponse, error) {
	if !a.IsAdmin() && !a.OwnsPartner(partnerID) {
		return transport.PartnerResponse{}, apperr.Forbidden("cannot upload documents for another partner")
	}
	k, err := domain.ParseDocumentKind(kind)
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	if s.docs == nil {
		return transport.PartnerResponse{}, apperr.Collaborator("document storage is not configured", nil)
	}
	if _, err := s.repo.GetByID(ctx, partnerID); err != nil {
		return transport.PartnerResponse{}, err
	}

	key, err := s.docs.Upload(ctx, s.bucket, "partners/"+partnerID.String()+"/"+string(k), fileName, contentType, r, size)
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	updated, err := s.repo.SetDocumentKey(ctx, partnerID, k, key, s.now().UTC())
	if err != nil {
		return transport.PartnerResponse{}, err
	}
	s.log.Info("partner document uploaded", "partnerId", partnerID, "kind", k)
	return mapPartner(updated), nil
}

// DocumentURL returns a short-lived download link for an uploaded document.
func (s *Service) DocumentURL(ctx context.Context, partnerID uuid.UUID, kind string) (transport.DocumentURLResponse, error) {
	k, err := domain.ParseDocumentKind(kind)
	if err != nil {
		return transport.DocumentURLResponse{}, err
	}
	if s.docs == nil {
		return transport.DocumentURLResponse{}, apperr.Collaborator("document storage is not configured", nil)
	}
	p, err := s.repo.GetByID(ctx, partnerID)
	if err != nil {
		return transport.DocumentURLResponse{}, err
	}

	key := documentKey(p, k)
	if key == nil {
		return transport.DocumentURLResponse{}, apperr.NotFound("document not uploaded")
	}
	url, err := s.docs.DownloadURL(ctx, s.bucket, *key)
	if err != nil {
		return transport.DocumentURLResponse{}, err
	}
	return transport.DocumentURLResponse{URL: url}, nil
}

// LookupDistance asks the collaborator for the move distance. A failure is
// logged and reported as unknown.
func (s *Service) LookupDistance(ctx context.Context, q QuoteFacts) *domain.Distance {
	if s.distances == nil {
		return nil
	}
	d, err := s.distances.MoveDistance(ctx, q)
	if err != nil {
		s.log.CollaboratorFailure("maps", err, "quoteId", q.ID)
		return nil
	}
	return &d
}

// EligibleForQuote returns approved partners that may bid on the quote,
// best first.
func (s *Service) EligibleForQuote(ctx context.Context, quoteID uuid.UUID) (transport.EligibilityResponse, error) {
	q, err := s.quotes.GetQuote(ctx, quoteID)
	if err != nil {
		return transport.EligibilityResponse{}, err
	}
	if !q.Open {
		return transport.EligibilityResponse{}, apperr.Validationf("quote is %s", q.Status)
	}

	pool, err := s.repo.ListEligibilityPool(ctx, q.FromPostalCode)
	if err != nil {
		return transport.EligibilityResponse{}, err
	}
	active := map[uuid.UUID]bool{}
	if s.offers != nil {
		if active, err = s.offers.ActivePartnerIDs(ctx, quoteID); err != nil {
			return transport.EligibilityResponse{}, err
		}
	}
	dist := s.LookupDistance(ctx, q)

	candidates := make([]domain.Candidate, len(pool))
	for i, p := range pool {
		candidates[i] = toCandidate(p)
	}
	ranked := domain.Rank(candidates, q.FromPostalCode, dist, s.maxKm, s.weights, active)

	resp := transport.EligibilityResponse{
		QuoteID:       quoteID,
		DistanceKnown: dist != nil,
		Partners:      make([]transport.EligiblePartnerResponse, len(ranked)),
	}
	if dist != nil {
		km, minutes := dist.Km, dist.Minutes
		resp.DistanceKm = &km
		resp.DriveTimeMinutes = &minutes
	}
	for i, r := range ranked {
		resp.Partners[i] = transport.EligiblePartnerResponse{
			PartnerID:          r.Candidate.PartnerID,
			CompanyName:        r.Candidate.CompanyName,
			RankingScore:       r.Score,
			IsSponsored:        r.Candidate.IsSponsored,
			AverageRating:      r.Candidate.AverageRating,
			CompletedJobs:      r.Candidate.CompletedJobs,
			MaxDriveDistanceKm: domain.MaxDistance(r.Candidate, s.maxKm),
		}
	}
	return resp, nil
}

// Assess checks one partner against a quote and returns the distance and
// ranking score used for the offer. Ineligible partners get a Validation error.
// Duplicate offers are left to the offer insert.
func (s *Service) Assess(ctx context.Context, partnerID uuid.UUID, q QuoteFacts) (Assessment, error) {
	p, err := s.repo.GetByID(ctx, partnerID)
	if err != nil {
		return Assessment{}, err
	}
	c := toCandidate(p)
	if c.Status != domain.StatusApproved {
		return Assessment{}, apperr.Validation(domain.ReasonNotApproved)
	}

	dist := s.LookupDistance(ctx, q)
	if d := domain.Evaluate(c, q.FromPostalCode, dist, s.maxKm, false); !d.Eligible {
		return Assessment{}, apperr.Validation(d.Reason)
	}
	return Assessment{Partner: p, Distance: dist, Score: domain.Score(s.weights, c, dist, s.maxKm)}, nil
}

// OpenQuotesForPartner lists open quotes the partner may still bid on.
// Filtering happens after paging, so a page can hold fewer than pageSize items.
func (s *Service) OpenQuotesForPartner(ctx context.Context, partnerID uuid.UUID, req transport.ListOpenQuotesRequest) (transport.ListOpenQuotesResponse, error) {
	p, err := s.repo.GetByID(ctx, partnerID)
	if err != nil {
		return transport.ListOpenQuotesResponse{}, err
	}
	if p.Status != domain.StatusApproved {
		return transport.ListOpenQuotesResponse{}, apperr.Forbidden(domain.ReasonNotApproved)
	}

	page, pageSize := normalizePaging(req.Page, req.PageSize)
	open, _, err := s.quotes.ListOpenQuotes(ctx, page, pageSize)
	if err != nil {
		return transport.ListOpenQuotesResponse{}, err
	}
	active := map[uuid.UUID]bool{}
	if s.offers != nil {
		if active, err = s.offers.ActiveQuoteIDs(ctx, partnerID); err != nil {
			return transport.ListOpenQuotesResponse{}, err
		}
	}

	c := toCandidate(p)
	items := make([]transport.OpenQuoteResponse, 0, len(open))
	for _, q := range open {
		if active[q.ID] {
			continue
		}
		dist := s.LookupDistance(ctx, q)
		if !domain.Evaluate(c, q.FromPostalCode, dist, s.maxKm, false).Eligible {
			continue
		}
		item := transport.OpenQuoteResponse{
			QuoteID:        q.ID,
			FromPostalCode: q.FromPostalCode,
			ToPostalCode:   q.ToPostalCode,
			MoveDate:       q.MoveDate.Format(dateLayout),
			Status:         q.Status,
			RankingScore:   domain.Score(s.weights, c, dist, s.maxKm),
		}
		if dist != nil {
			km, minutes := dist.Km, dist.Minutes
			item.DistanceKm = &km
			item.DriveTimeMinutes = &minutes
		}
		items = append(items, item)
	}
	return transport.ListOpenQuotesResponse{Items: items, Page: page, PageSize: pageSize}, nil
}

func toCandidate(p repository.Partner) domain.Candidate {
	return domain.Candidate{
		PartnerID:          p.ID,
		CompanyName:        p.CompanyName,
		Status:             p.Status,
		MaxDriveDistanceKm: p.MaxDriveDistanceKm,
		ServicePostalCodes: p.ServicePostalCodes,
		AverageRating:      p.AverageRating,
		CompletedJobs:      p.CompletedJobs,
		IsSponsored:        p.IsSponsored,
	}
}

func documentKey(p repository.Partner, k domain.DocumentKind) *string {
	switch k {
	case domain.DocumentLicense:
		return p.LicenseDocumentKey
	case domain.DocumentInsurance:
		return p.InsuranceDocumentKey
	case domain.DocumentTaxCertificate:
		return p.TaxCertificateDocumentKey
	}
	return nil
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

func mapPartner(p repository.Partner) transport.PartnerResponse {
	resp := transport.PartnerResponse{
		ID:                p.ID,
		CompanyName:       p.CompanyName,
		OrgNumber:         p.OrgNumber,
		ContactName:       p.ContactName,
		ContactEmail:      p.ContactEmail,
		ContactPhone:      p.ContactPhone,
		Status:            string(p.Status),
		LicenseNumber:     p.LicenseNumber,
		InsuranceProvider: p.InsuranceProvider,
		HasTaxCertificate: p.HasTaxCertificate,
		Documents: transport.DocumentsResponse{
			License:        p.LicenseDocumentKey != nil,
			Insurance:      p.InsuranceDocumentKey != nil,
			TaxCertificate: p.TaxCertificateDocumentKey != nil,
		},
		MaxDriveDistanceKm:     p.MaxDriveDistanceKm,
		ServicePostalCodes:     p.ServicePostalCodes,
		AverageRating:          p.AverageRating,
		TotalReviews:           p.TotalReviews,
		CompletedJobs:          p.CompletedJobs,
		IsSponsored:            p.IsSponsored,
		CommissionTypeOverride: p.CommissionTypeOverride,
		ReviewedAt:             p.ReviewedAt,
		ReviewNote:             p.ReviewNote,
		CreatedAt:              p.CreatedAt,
	}
	if resp.ServicePostalCodes == nil {
		resp.ServicePostalCodes = []string{}
	}
	if p.InsuranceValidUntil != nil {
		d := p.InsuranceValidUntil.Format(dateLayout)
		resp.InsuranceValidUntil = &d
	}
	if p.CommissionRateOverride.Valid {
		r := p.CommissionRateOverride.Decimal.String()
		resp.CommissionRateOverride = &r
	}
	return resp
}
