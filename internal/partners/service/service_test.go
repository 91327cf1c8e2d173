package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu       sync.Mutex
	partners map[uuid.UUID]repository.Partner
}

func newFakeRepo(ps ...repository.Partner) *fakeRepo {
	f := &fakeRepo{partners: map[uuid.UUID]repository.Partner{}}
	for _, p := range ps {
		f.partners[p.ID] = p
	}
	return f
}

func (f *fakeRepo) Create(_ context.Context, p repository.Partner) (repository.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.partners {
		if existing.OrgNumber == p.OrgNumber {
			return repository.Partner{}, apperr.Conflict("a partner with this organisation number already exists")
		}
	}
	f.partners[p.ID] = p
	return p, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partners[id]
	if !ok {
		return repository.Partner{}, apperr.NotFound("partner not found")
	}
	return p, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.Partner
	for _, p := range f.partners {
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		items = append(items, p)
	}
	return repository.ListResult{Items: items, Total: len(items)}, nil
}

func (f *fakeRepo) ListEligibilityPool(_ context.Context, _ string) ([]repository.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.Partner
	for _, p := range f.partners {
		if p.Status == domain.StatusApproved {
			items = append(items, p)
		}
	}
	return items, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.Status, reviewedBy uuid.UUID, note *string, now time.Time) (domain.Status, repository.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partners[id]
	if !ok {
		return "", repository.Partner{}, apperr.NotFound("partner not found")
	}
	prev := p.Status
	p.Status = status
	p.ReviewedBy = &reviewedBy
	p.ReviewedAt = &now
	p.ReviewNote = note
	f.partners[id] = p
	return prev, p, nil
}

func (f *fakeRepo) update(id uuid.UUID, fn func(*repository.Partner)) (repository.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.partners[id]
	if !ok {
		return repository.Partner{}, apperr.NotFound("partner not found")
	}
	fn(&p)
	f.partners[id] = p
	return p, nil
}

func (f *fakeRepo) UpdateServiceArea(_ context.Context, id uuid.UUID, maxKm *int, postalCodes []string, _ time.Time) (repository.Partner, error) {
	return f.update(id, func(p *repository.Partner) {
		p.MaxDriveDistanceKm = maxKm
		p.ServicePostalCodes = postalCodes
	})
}

func (f *fakeRepo) SetCommissionOverride(_ context.Context, id uuid.UUID, rate decimal.NullDecimal, typ *string, _ time.Time) (repository.Partner, error) {
	return f.update(id, func(p *repository.Partner) {
		p.CommissionRateOverride = rate
		p.CommissionTypeOverride = typ
	})
}

func (f *fakeRepo) SetSponsored(_ context.Context, id uuid.UUID, sponsored bool, _ time.Time) (repository.Partner, error) {
	return f.update(id, func(p *repository.Partner) { p.IsSponsored = sponsored })
}

func (f *fakeRepo) SetDocumentKey(_ context.Context, id uuid.UUID, kind domain.DocumentKind, key string, _ time.Time) (repository.Partner, error) {
	return f.update(id, func(p *repository.Partner) {
		switch kind {
		case domain.DocumentLicense:
			p.LicenseDocumentKey = &key
		case domain.DocumentInsurance:
			p.InsuranceDocumentKey = &key
		case domain.DocumentTaxCertificate:
			p.TaxCertificateDocumentKey = &key
		}
	})
}

func (f *fakeRepo) IncrementCompletedJobs(_ context.Context, id uuid.UUID) error {
	_, err := f.update(id, func(p *repository.Partner) { p.CompletedJobs++ })
	return err
}

type fakeQuotes struct {
	quotes []QuoteFacts
}

func (f *fakeQuotes) GetQuote(_ context.Context, id uuid.UUID) (QuoteFacts, error) {
	for _, q := range f.quotes {
		if q.ID == id {
			return q, nil
		}
	}
	return QuoteFacts{}, apperr.NotFound("quote not found")
}

func (f *fakeQuotes) ListOpenQuotes(_ context.Context, _, _ int) ([]QuoteFacts, int, error) {
	var out []QuoteFacts
	for _, q := range f.quotes {
		if q.Open {
			out = append(out, q)
		}
	}
	return out, len(out), nil
}

type fakeDistances struct {
	km    float64
	err   error
	calls int
}

func (f *fakeDistances) MoveDistance(context.Context, QuoteFacts) (domain.Distance, error) {
	f.calls++
	if f.err != nil {
		return domain.Distance{}, f.err
	}
	return domain.Distance{Km: f.km, Minutes: int(f.km)}, nil
}

type fakeOffers struct {
	byQuote   map[uuid.UUID]map[uuid.UUID]bool
	byPartner map[uuid.UUID]map[uuid.UUID]bool
}

func (f fakeOffers) ActivePartnerIDs(_ context.Context, quoteID uuid.UUID) (map[uuid.UUID]bool, error) {
	return f.byQuote[quoteID], nil
}

func (f fakeOffers) ActiveQuoteIDs(_ context.Context, partnerID uuid.UUID) (map[uuid.UUID]bool, error) {
	return f.byPartner[partnerID], nil
}

type boundsValidator struct{ max decimal.Decimal }

func (b boundsValidator) ValidateOverride(_ context.Context, o policy.Override) error {
	if o.Rate != nil && o.Rate.GreaterThan(b.max) {
		return apperr.Validation("commission rate out of bounds")
	}
	return nil
}

type memoryStore struct {
	uploads map[string]string
}

func (m *memoryStore) Upload(_ context.Context, bucket, folder, fileName, _ string, reader io.Reader, _ int64) (string, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := folder + "/" + fileName
	m.uploads[bucket+"/"+key] = string(body)
	return key, nil
}

func (m *memoryStore) DownloadURL(_ context.Context, bucket, key string) (string, error) {
	return "https://files.example/" + bucket + "/" + key, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type stubConfig struct{}

func (stubConfig) GetDefaultMaxDriveDistanceKm() int { return 50 }
func (stubConfig) GetRankingWeights() config.RankingWeights {
	return config.RankingWeights{Distance: 0.5, Rating: 0.35, Volume: 0.15}
}

func intPtr(v int) *int { return &v }

func approvedPartner(name string) repository.Partner {
	return repository.Partner{
		ID:          uuid.New(),
		CompanyName: name,
		OrgNumber:   uuid.NewString()[:11],
		Status:      domain.StatusApproved,
	}
}

func openQuote(postal string) QuoteFacts {
	return QuoteFacts{ID: uuid.New(), Status: "pending", Open: true, FromPostalCode: postal, ToPostalCode: "41101", MoveDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)}
}

func newTestService(repo *fakeRepo, quotes *fakeQuotes, dist DistanceCalculator, bus *recordingBus) *Service {
	return New(repo, quotes, dist, boundsValidator{max: decimal.NewFromInt(30)}, bus, stubConfig{}, logger.Discard())
}

func TestApplyNormalisesAndAnnounces(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeQuotes{}, nil, bus)

	resp, err := svc.Apply(context.Background(), actor.Anonymous(), transport.ApplyRequest{
		CompanyName:        " Snabbflytt AB ",
		OrgNumber:          "165566778899",
		ContactName:        "Kim Berg",
		ContactEmail:       "Kim@Snabbflytt.se",
		ContactPhone:       "070-123 45 67",
		ServicePostalCodes: []string{"111 22", "11122", "113 30"},
	})
	require.NoError(t, err)
	require.Equal(t, "pending", resp.Status)
	require.Equal(t, "556677-8899", resp.OrgNumber)
	require.Equal(t, "+46701234567", resp.ContactPhone)
	require.Equal(t, "kim@snabbflytt.se", resp.ContactEmail)
	require.Equal(t, []string{"11122", "11330"}, resp.ServicePostalCodes)
	require.Len(t, bus.events, 1)
	require.Equal(t, "partners.application.received", bus.events[0].EventName())
}

func TestApplyRejectsInvalidPhone(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeQuotes{}, nil, &recordingBus{})

	_, err := svc.Apply(context.Background(), actor.Anonymous(), transport.ApplyRequest{
		CompanyName: "Flytt AB", OrgNumber: "5566778899", ContactName: "Kim",
		ContactEmail: "kim@flytt.se", ContactPhone: "not a number",
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestUpdateStatusPublishesOnlyOnChange(t *testing.T) {
	p := approvedPartner("Flytt AB")
	p.Status = domain.StatusPending
	repo := newFakeRepo(p)
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeQuotes{}, nil, bus)
	admin := actor.Admin(uuid.New())

	resp, err := svc.UpdateStatus(context.Background(), admin, p.ID, transport.UpdateStatusRequest{Status: "approved", Note: "välkommen"})
	require.NoError(t, err)
	require.Equal(t, "approved", resp.Status)
	require.Len(t, bus.events, 1)

	changed := bus.events[0].(events.PartnerStatusChanged)
	require.Equal(t, "pending", changed.OldStatus)
	require.Equal(t, "approved", changed.NewStatus)
	require.Equal(t, admin.UserID, changed.ReviewedBy)

	_, err = svc.UpdateStatus(context.Background(), admin, p.ID, transport.UpdateStatusRequest{Status: "approved"})
	require.NoError(t, err)
	require.Len(t, bus.events, 1)

	_, err = svc.UpdateStatus(context.Background(), actor.Customer(uuid.New()), p.ID, transport.UpdateStatusRequest{Status: "suspended"})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCommissionOverrideRoundTrip(t *testing.T) {
	p := approvedPartner("Flytt AB")
	svc := newTestService(newFakeRepo(p), &fakeQuotes{}, nil, &recordingBus{})
	ctx := context.Background()

	rate, typ := "5", "percentage"
	_, err := svc.SetCommissionOverride(ctx, p.ID, transport.CommissionOverrideRequest{Rate: &rate, Type: &typ})
	require.NoError(t, err)

	o, err := svc.CommissionOverride(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, o.Rate)
	require.True(t, o.Rate.Equal(decimal.NewFromInt(5)))
	require.Equal(t, policy.TypePercentage, *o.Type)

	tooHigh := "45"
	_, err = svc.SetCommissionOverride(ctx, p.ID, transport.CommissionOverrideRequest{Rate: &tooHigh})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.SetCommissionOverride(ctx, p.ID, transport.CommissionOverrideRequest{})
	require.NoError(t, err)
	o, err = svc.CommissionOverride(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, o.IsZero())
}

func TestEligibleForQuoteRanksAndExcludesActiveOffers(t *testing.T) {
	near := approvedPartner("Alfa Flytt")
	near.AverageRating = 4.5
	far := approvedPartner("Beta Flytt")
	far.MaxDriveDistanceKm = intPtr(10)
	bidder := approvedPartner("Gamma Flytt")
	pending := approvedPartner("Delta Flytt")
	pending.Status = domain.StatusPending

	q := openQuote("11122")
	svc := newTestService(newFakeRepo(near, far, bidder, pending), &fakeQuotes{quotes: []QuoteFacts{q}}, &fakeDistances{km: 20}, &recordingBus{})
	svc.SetOfferIndex(fakeOffers{byQuote: map[uuid.UUID]map[uuid.UUID]bool{q.ID: {bidder.ID: true}}})

	resp, err := svc.EligibleForQuote(context.Background(), q.ID)
	require.NoError(t, err)
	require.True(t, resp.DistanceKnown)
	require.Len(t, resp.Partners, 1)
	require.Equal(t, near.ID, resp.Partners[0].PartnerID)
	require.Equal(t, 50, resp.Partners[0].MaxDriveDistanceKm)
}

func TestEligibleForQuoteFallsBackToPostalCodesWhenDistanceFails(t *testing.T) {
	byDistance := approvedPartner("Alfa Flytt")
	byPostal := approvedPartner("Beta Flytt")
	byPostal.ServicePostalCodes = []string{"11122"}

	q := openQuote("11122")
	svc := newTestService(newFakeRepo(byDistance, byPostal), &fakeQuotes{quotes: []QuoteFacts{q}}, &fakeDistances{err: errors.New("geocoder down")}, &recordingBus{})

	resp, err := svc.EligibleForQuote(context.Background(), q.ID)
	require.NoError(t, err)
	require.False(t, resp.DistanceKnown)
	require.Nil(t, resp.DistanceKm)
	require.Len(t, resp.Partners, 1)
	require.Equal(t, byPostal.ID, resp.Partners[0].PartnerID)
}

func TestEligibleForQuoteRejectsClosedQuote(t *testing.T) {
	q := openQuote("11122")
	q.Open = false
	q.Status = "expired"
	svc := newTestService(newFakeRepo(), &fakeQuotes{quotes: []QuoteFacts{q}}, nil, &recordingBus{})

	_, err := svc.EligibleForQuote(context.Background(), q.ID)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAssessReportsReasonAndScore(t *testing.T) {
	p := approvedPartner("Alfa Flytt")
	p.MaxDriveDistanceKm = intPtr(40)
	q := openQuote("11122")
	dist := &fakeDistances{km: 20}
	svc := newTestService(newFakeRepo(p), &fakeQuotes{quotes: []QuoteFacts{q}}, dist, &recordingBus{})

	a, err := svc.Assess(context.Background(), p.ID, q)
	require.NoError(t, err)
	require.NotNil(t, a.Distance)
	require.InDelta(t, 0.25, a.Score, 1e-9)

	dist.km = 60
	_, err = svc.Assess(context.Background(), p.ID, q)
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Contains(t, err.Error(), domain.ReasonTooFar)
}

func TestOpenQuotesForPartnerSkipsIneligibleAndBidQuotes(t *testing.T) {
	p := approvedPartner("Alfa Flytt")
	p.ServicePostalCodes = []string{"11122"}
	match := openQuote("11122")
	other := openQuote("90210")
	bid := openQuote("11122")

	svc := newTestService(newFakeRepo(p), &fakeQuotes{quotes: []QuoteFacts{match, other, bid}}, nil, &recordingBus{})
	svc.SetOfferIndex(fakeOffers{byPartner: map[uuid.UUID]map[uuid.UUID]bool{p.ID: {bid.ID: true}}})

	resp, err := svc.OpenQuotesForPartner(context.Background(), p.ID, transport.ListOpenQuotesRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	require.Equal(t, match.ID, resp.Items[0].QuoteID)
	require.Equal(t, "2026-11-02", resp.Items[0].MoveDate)
}

func TestOpenQuotesForPartnerRequiresApproval(t *testing.T) {
	p := approvedPartner("Alfa Flytt")
	p.Status = domain.StatusSuspended
	svc := newTestService(newFakeRepo(p), &fakeQuotes{}, nil, &recordingBus{})

	_, err := svc.OpenQuotesForPartner(context.Background(), p.ID, transport.ListOpenQuotesRequest{})
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUploadDocumentStoresKeyForOwner(t *testing.T) {
	p := approvedPartner("Alfa Flytt")
	repo := newFakeRepo(p)
	store := &memoryStore{uploads: map[string]string{}}
	svc := newTestService(repo, &fakeQuotes{}, nil, &recordingBus{})
	ctx := context.Background()

	owner := actor.Partner(uuid.New(), p.ID)
	_, err := svc.UploadDocument(ctx, owner, p.ID, "insurance", "f.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.True(t, apperr.Is(err, apperr.KindCollaborator))

	svc.SetDocumentStore(store, "partner-documents")
	resp, err := svc.UploadDocument(ctx, owner, p.ID, "insurance", "f.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.NoError(t, err)
	require.True(t, resp.Documents.Insurance)
	require.False(t, resp.Documents.License)

	url, err := svc.DocumentURL(ctx, p.ID, "insurance")
	require.NoError(t, err)
	require.Contains(t, url.URL, "partner-documents/partners/"+p.ID.String()+"/insurance")

	stranger := actor.Partner(uuid.New(), uuid.New())
	_, err = svc.UploadDocument(ctx, stranger, p.ID, "license", "f.pdf", "application/pdf", 3, strings.NewReader("pdf"))
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.DocumentURL(ctx, p.ID, "license")
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestIncrementCompletedJobs(t *testing.T) {
	p := approvedPartner("Alfa Flytt")
	repo := newFakeRepo(p)
	svc := newTestService(repo, &fakeQuotes{}, nil, &recordingBus{})

	require.NoError(t, svc.IncrementCompletedJobs(context.Background(), p.ID))
	require.Equal(t, 1, repo.partners[p.ID].CompletedJobs)
	require.True(t, apperr.Is(svc.IncrementCompletedJobs(context.Background(), uuid.New()), apperr.KindNotFound))
}
