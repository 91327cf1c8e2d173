package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/offers/domain"
	"flyttbas_backend/internal/offers/repository"
	"flyttbas_backend/internal/offers/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu     sync.Mutex
	offers map[uuid.UUID]repository.Offer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{offers: map[uuid.UUID]repository.Offer{}}
}

func (f *fakeRepo) Create(_ context.Context, o repository.Offer) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.offers {
		if existing.QuoteID == o.QuoteID && existing.PartnerID == o.PartnerID && existing.Status != domain.StatusWithdrawn {
			return repository.Offer{}, apperr.Conflict("partner already has an offer on this quote")
		}
	}
	o.Status = domain.StatusPending
	o.CompanyName = "Snabbflytt AB"
	f.offers[o.ID] = o
	return o, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.offers[id]
	if !ok {
		return repository.Offer{}, apperr.NotFound("offer not found")
	}
	return o, nil
}

func (f *fakeRepo) ListByQuote(_ context.Context, quoteID uuid.UUID) ([]repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Offer
	for _, o := range f.offers {
		if o.QuoteID == quoteID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Offer
	for _, o := range f.offers {
		if params.PartnerID != nil && o.PartnerID != *params.PartnerID {
			continue
		}
		if params.Status != nil && o.Status != *params.Status {
			continue
		}
		out = append(out, o)
	}
	return repository.ListResult{Items: out, Total: len(out)}, nil
}

func (f *fakeRepo) Approve(_ context.Context, id uuid.UUID, now time.Time) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.offers[id]
	if o.Status != domain.StatusPending {
		return repository.Offer{}, apperr.Conflict("offer is " + string(o.Status))
	}
	for _, sibling := range f.offers {
		if sibling.QuoteID == o.QuoteID && sibling.Status == domain.StatusApproved {
			return repository.Offer{}, apperr.Conflict("another offer on this quote is already approved")
		}
	}
	confirmed := domain.JobConfirmed
	o.Status = domain.StatusApproved
	o.ApprovedAt = &now
	o.JobStatus = &confirmed
	f.offers[id] = o
	return o, nil
}

func (f *fakeRepo) Close(_ context.Context, id uuid.UUID, to domain.Status, reason *string, _ time.Time) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.offers[id]
	if o.Status != domain.StatusPending {
		return repository.Offer{}, apperr.Conflict("offer is " + string(o.Status))
	}
	o.Status = to
	o.RejectionReason = reason
	f.offers[id] = o
	return o, nil
}

func (f *fakeRepo) ExpireIfOverdue(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.offers[id]
	if o.Status != domain.StatusPending || !o.ValidUntil.Before(now) {
		return false, nil
	}
	o.Status = domain.StatusExpired
	f.offers[id] = o
	return true, nil
}

func (f *fakeRepo) ExpireOverdue(_ context.Context, now time.Time, _ int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, o := range f.offers {
		if o.Status == domain.StatusPending && o.ValidUntil.Before(now) {
			o.Status = domain.StatusExpired
			f.offers[id] = o
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRepo) UpdateJobStatus(_ context.Context, id uuid.UUID, from, to domain.JobStatus, notes *string, now time.Time) (repository.Offer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.offers[id]
	if o.Status != domain.StatusApproved {
		return repository.Offer{}, apperr.Validation("offer is not approved")
	}
	if *o.JobStatus != from {
		return repository.Offer{}, apperr.Conflict("job status changed concurrently")
	}
	o.JobStatus = &to
	o.JobStatusUpdatedAt = &now
	if notes != nil {
		o.JobNotes = notes
	}
	f.offers[id] = o
	return o, nil
}

type fakeQuotes struct {
	mu       sync.Mutex
	quotes   map[uuid.UUID]QuoteFacts
	owners   map[uuid.UUID]uuid.UUID
	advances []QuoteTransition
	// closeAfterRead moves a quote to the given status right after it is
	// read, as a concurrent cancel or expiry would.
	closeAfterRead map[uuid.UUID]string
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[uuid.UUID]QuoteFacts{}, owners: map[uuid.UUID]uuid.UUID{}}
}

func (f *fakeQuotes) add(status string, owner uuid.UUID) QuoteFacts {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := QuoteFacts{
		ID:             uuid.New(),
		Status:         status,
		CustomerName:   "Kim Berg",
		CustomerEmail:  "kim@example.se",
		FromAddress:    "Storgatan 1",
		FromPostalCode: "11122",
		ToAddress:      "Lillgatan 2",
		ToPostalCode:   "41101",
		MoveDate:       time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
	}
	q.Terminal = isTerminal(status)
	f.quotes[q.ID] = q
	f.owners[q.ID] = owner
	return q
}

func isTerminal(status string) bool {
	return status == "completed" || status == "cancelled" || status == "expired"
}

func (f *fakeQuotes) status(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quotes[id].Status
}

func (f *fakeQuotes) GetQuote(_ context.Context, id uuid.UUID) (QuoteFacts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return QuoteFacts{}, apperr.NotFound("quote not found")
	}
	if status, ok := f.closeAfterRead[id]; ok {
		closed := q
		closed.Status = status
		closed.Terminal = true
		f.quotes[id] = closed
		delete(f.closeAfterRead, id)
	}
	return q, nil
}

func (f *fakeQuotes) Authorize(ctx context.Context, a actor.Actor, id uuid.UUID) (QuoteFacts, error) {
	q, err := f.GetQuote(ctx, id)
	if err != nil {
		return QuoteFacts{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.IsPrivileged() || (a.Role == actor.RoleCustomer && f.owners[id] == a.UserID) {
		return q, nil
	}
	return QuoteFacts{}, apperr.NotFound("quote not found")
}

func (f *fakeQuotes) advance(id uuid.UUID, from []string, to string, settled ...string) (QuoteTransition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quotes[id]
	for _, st := range from {
		if q.Status == st {
			t := QuoteTransition{QuoteID: id, From: q.Status, To: to, Changed: true}
			q.Status = to
			q.Terminal = isTerminal(to)
			f.quotes[id] = q
			return t, nil
		}
	}
	if slices.Contains(settled, q.Status) {
		return QuoteTransition{QuoteID: id, From: q.Status, To: q.Status}, nil
	}
	return QuoteTransition{}, apperr.Conflict("quote is " + q.Status)
}

func (f *fakeQuotes) MarkOffersReceived(_ context.Context, id uuid.UUID) (QuoteTransition, error) {
	return f.advance(id, []string{"pending"}, "offers_received", "offers_received", "offer_approved")
}

func (f *fakeQuotes) MarkOfferApproved(_ context.Context, id uuid.UUID) (QuoteTransition, error) {
	return f.advance(id, []string{"pending", "offers_received"}, "offer_approved")
}

func (f *fakeQuotes) MarkCompleted(_ context.Context, id uuid.UUID) (QuoteTransition, error) {
	return f.advance(id, []string{"offer_approved"}, "completed")
}

func (f *fakeQuotes) PublishTransition(_ context.Context, t QuoteTransition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.Changed {
		f.advances = append(f.advances, t)
	}
}

type fakePartners struct {
	mu        sync.Mutex
	eligible  map[uuid.UUID]bool
	completed map[uuid.UUID]int
}

func newFakePartners(ids ...uuid.UUID) *fakePartners {
	f := &fakePartners{eligible: map[uuid.UUID]bool{}, completed: map[uuid.UUID]int{}}
	for _, id := range ids {
		f.eligible[id] = true
	}
	return f
}

func (f *fakePartners) Assess(_ context.Context, partnerID uuid.UUID, _ QuoteFacts) (Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.eligible[partnerID] {
		return Assessment{}, apperr.Validation("partner is not approved")
	}
	km, minutes := 12.34, 25
	return Assessment{CompanyName: "Snabbflytt AB", DistanceKm: &km, DriveTimeMinutes: &minutes, Score: 0.7}, nil
}

func (f *fakePartners) IncrementCompletedJobs(_ context.Context, partnerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[partnerID]++
	return nil
}

type fakeLedger struct {
	mu   sync.Mutex
	fees map[uuid.UUID]RecordedFee
}

func (f *fakeLedger) Record(_ context.Context, offerID, _ uuid.UUID, priceBeforeRUT int64) (RecordedFee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fees[offerID]; ok {
		return RecordedFee{}, apperr.Conflict("commission already recorded for this offer")
	}
	fee := RecordedFee{ID: uuid.New(), OrderValue: priceBeforeRUT, Amount: priceBeforeRUT * 7 / 100}
	f.fees[offerID] = fee
	return fee, nil
}

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

type stubConfig struct{}

func (stubConfig) GetOfferValidity() time.Duration { return 14 * 24 * time.Hour }

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	quotes   *fakeQuotes
	partners *fakePartners
	ledger   *fakeLedger
	bus      *recordingBus
	customer actor.Actor
	partner  actor.Actor
	quote    QuoteFacts
}

func newFixture(t *testing.T, policy *domain.TransitionPolicy) *fixture {
	t.Helper()
	rules, err := domain.NewRUTRules(75000, "0.5")
	require.NoError(t, err)

	partnerID := uuid.New()
	f := &fixture{
		repo:     newFakeRepo(),
		quotes:   newFakeQuotes(),
		partners: newFakePartners(partnerID),
		ledger:   &fakeLedger{fees: map[uuid.UUID]RecordedFee{}},
		bus:      &recordingBus{},
		customer: actor.Customer(uuid.New()),
		partner:  actor.Partner(uuid.New(), partnerID),
	}
	f.quote = f.quotes.add("pending", f.customer.UserID)
	f.svc = New(Deps{
		Repo:     f.repo,
		Tx:       inlineTx{},
		Quotes:   f.quotes,
		Partners: f.partners,
		Ledger:   f.ledger,
		Policy:   policy,
		RUT:      rules,
		Config:   stubConfig{},
		Bus:      f.bus,
		Metrics:  metrics.NewTransitionMetrics(nil),
		Log:      logger.Discard(),
	})
	return f
}

func (f *fixture) bid(t *testing.T, a actor.Actor, price int64) transport.OfferResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), a, transport.CreateOfferRequest{
		QuoteID:        f.quote.ID,
		AvailableDate:  "2026-11-02",
		EstimatedHours: 6,
		TeamSize:       3,
		PriceBeforeRUT: price,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) addPartner() actor.Actor {
	id := uuid.New()
	f.partners.mu.Lock()
	f.partners.eligible[id] = true
	f.partners.mu.Unlock()
	return actor.Partner(uuid.New(), id)
}

func TestCreateDerivesRUTAndAdvancesQuote(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())

	offer := f.bid(t, f.partner, 10000)
	require.Equal(t, "pending", offer.Status)
	require.Equal(t, int64(5000), offer.RUTDeduction)
	require.Equal(t, int64(5000), offer.TotalPrice)
	require.Equal(t, "12.3", *offer.DistanceKm)
	require.Equal(t, "6.0", offer.EstimatedHours)
	require.Equal(t, "offers_received", f.quotes.status(f.quote.ID))
	require.Equal(t, 1, f.bus.count("offers.offer.submitted"))

	second := f.addPartner()
	f.bid(t, second, 8000)
	require.Len(t, f.quotes.advances, 1, "only the first offer advances the quote")
}

func TestCreateRejectsDuplicateIneligibleAndClosedQuote(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	ctx := context.Background()
	f.bid(t, f.partner, 10000)

	req := transport.CreateOfferRequest{QuoteID: f.quote.ID, AvailableDate: "2026-11-02", EstimatedHours: 4, TeamSize: 2, PriceBeforeRUT: 9000}
	_, err := f.svc.Create(ctx, f.partner, req)
	require.True(t, apperr.Is(err, apperr.KindConflict))

	stranger := actor.Partner(uuid.New(), uuid.New())
	_, err = f.svc.Create(ctx, stranger, req)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	closed := f.quotes.add("cancelled", f.customer.UserID)
	req.QuoteID = closed.ID
	_, err = f.svc.Create(ctx, f.addPartner(), req)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, f.customer, req)
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCreateFailsWhenQuoteClosesMidway(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	f.quotes.closeAfterRead = map[uuid.UUID]string{f.quote.ID: "cancelled"}

	_, err := f.svc.Create(context.Background(), f.partner, transport.CreateOfferRequest{
		QuoteID:        f.quote.ID,
		AvailableDate:  "2026-11-02",
		EstimatedHours: 4,
		TeamSize:       2,
		PriceBeforeRUT: 9000,
	})
	require.True(t, apperr.Is(err, apperr.KindConflict))
	require.Equal(t, "cancelled", f.quotes.status(f.quote.ID))
	require.Zero(t, f.bus.count("offers.offer.submitted"))
}

func TestAdminBidsOnBehalfOfPartner(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	admin := actor.Admin(uuid.New())

	req := transport.CreateOfferRequest{QuoteID: f.quote.ID, AvailableDate: "2026-11-02", EstimatedHours: 4, TeamSize: 2, PriceBeforeRUT: 200000}
	_, err := f.svc.Create(context.Background(), admin, req)
	require.True(t, apperr.Is(err, apperr.KindValidation), "admin must name the partner")

	req.PartnerID = f.partner.PartnerID
	offer, err := f.svc.Create(context.Background(), admin, req)
	require.NoError(t, err)
	require.Equal(t, *f.partner.PartnerID, offer.PartnerID)
	require.Equal(t, int64(75000), offer.RUTDeduction)
}

func TestFirstApprovalWins(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	ids := []uuid.UUID{f.bid(t, f.partner, 10000).ID}
	for i := 0; i < 7; i++ {
		ids = append(ids, f.bid(t, f.addPartner(), int64(9000+i)).ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.svc.Approve(context.Background(), f.customer, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, len(ids)-1, conflicts)
	require.Equal(t, "offer_approved", f.quotes.status(f.quote.ID))
	require.Equal(t, 1, f.bus.count("offers.offer.approved"))
}

func TestApproveOpensJobAndRejectsRepeat(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	offer := f.bid(t, f.partner, 10000)

	approved, err := f.svc.Approve(context.Background(), f.customer, offer.ID)
	require.NoError(t, err)
	require.Equal(t, "approved", approved.Status)
	require.Equal(t, "confirmed", *approved.JobStatus)

	_, err = f.svc.Approve(context.Background(), f.customer, offer.ID)
	require.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestApproveAuthorization(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	offer := f.bid(t, f.partner, 10000)

	_, err := f.svc.Approve(context.Background(), actor.Customer(uuid.New()), offer.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Approve(context.Background(), f.partner, offer.ID)
	require.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = f.svc.Approve(context.Background(), actor.Admin(uuid.New()), offer.ID)
	require.NoError(t, err)
}

func TestApproveFailsWhenQuoteNoLongerOpen(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	offer := f.bid(t, f.partner, 10000)

	f.quotes.mu.Lock()
	q := f.quotes.quotes[f.quote.ID]
	q.Status, q.Terminal = "cancelled", true
	f.quotes.quotes[f.quote.ID] = q
	f.quotes.mu.Unlock()

	_, err := f.svc.Approve(context.Background(), f.customer, offer.ID)
	require.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestExpiredOfferCannotBeApproved(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	offer := f.bid(t, f.partner, 10000)

	f.svc.now = func() time.Time { return time.Now().Add(15 * 24 * time.Hour) }
	_, err := f.svc.Approve(context.Background(), f.customer, offer.ID)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	got, err := f.svc.Get(context.Background(), f.customer, offer.ID)
	require.NoError(t, err)
	require.Equal(t, "expired", got.Status)
	require.Equal(t, 1, f.bus.count("offers.offer.expired"))
}

func TestRejectAndWithdrawOnlyWhilePending(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	ctx := context.Background()
	first := f.bid(t, f.partner, 10000)
	other := f.addPartner()
	second := f.bid(t, other, 9000)

	rejected, err := f.svc.Reject(ctx, f.customer, first.ID, "för dyrt")
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)
	require.Equal(t, "för dyrt", *rejected.RejectionReason)

	_, err = f.svc.Withdraw(ctx, f.partner, first.ID)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Withdraw(ctx, f.partner, second.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound), "partners only withdraw their own offers")

	withdrawn, err := f.svc.Withdraw(ctx, other, second.ID)
	require.NoError(t, err)
	require.Equal(t, "withdrawn", withdrawn.Status)
}

func TestJobCompletionRecordsCommissionExactlyOnce(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	ctx := context.Background()
	offer := f.bid(t, f.partner, 20000)
	_, err := f.svc.Approve(ctx, f.customer, offer.ID)
	require.NoError(t, err)

	notes := "Bärhjälp bokad"
	scheduled, err := f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "scheduled", Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, "scheduled", *scheduled.JobStatus)
	require.Empty(t, f.ledger.fees)

	done, err := f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, "completed", *done.JobStatus)
	require.Equal(t, "Bärhjälp bokad", *done.JobNotes)

	require.Len(t, f.ledger.fees, 1)
	require.Equal(t, int64(20000), f.ledger.fees[offer.ID].OrderValue)
	require.Equal(t, 1, f.partners.completed[*f.partner.PartnerID])
	require.Equal(t, "completed", f.quotes.status(f.quote.ID))
	require.Equal(t, 1, f.bus.count("commission.fee.recorded"))
	require.Equal(t, 2, f.bus.count("offers.job.status_changed"))

	_, err = f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "completed"})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "in_progress"})
	require.True(t, apperr.Is(err, apperr.KindValidation), "completed is terminal")
	require.Len(t, f.ledger.fees, 1)
}

func TestJobStatusEventCarriesMoveDetails(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	ctx := context.Background()
	offer := f.bid(t, f.partner, 10000)
	_, err := f.svc.Approve(ctx, f.customer, offer.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateJobStatus(ctx, actor.Admin(uuid.New()), offer.ID, transport.UpdateJobStatusRequest{Status: "in_progress"})
	require.NoError(t, err)

	var changed events.JobStatusChanged
	for _, e := range f.bus.events {
		if c, ok := e.(events.JobStatusChanged); ok {
			changed = c
		}
	}
	require.Equal(t, "confirmed", changed.OldStatus)
	require.Equal(t, "in_progress", changed.NewStatus)
	require.Equal(t, "kim@example.se", changed.CustomerEmail)
	require.Equal(t, "Storgatan 1", changed.Move.FromAddress)
	require.Equal(t, "41101", changed.Move.ToPostalCode)
}

func TestJobStatusRequiresApprovedOfferAndOwnership(t *testing.T) {
	f := newFixture(t, domain.StrictPolicy())
	ctx := context.Background()
	offer := f.bid(t, f.partner, 10000)

	_, err := f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "scheduled"})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Approve(ctx, f.customer, offer.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateJobStatus(ctx, f.customer, offer.ID, transport.UpdateJobStatusRequest{Status: "scheduled"})
	require.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "in_progress"})
	require.NoError(t, err)
	_, err = f.svc.UpdateJobStatus(ctx, f.partner, offer.ID, transport.UpdateJobStatusRequest{Status: "scheduled"})
	require.True(t, apperr.Is(err, apperr.KindValidation), "strict mode is forward only")
}

func TestExpireOverduePublishesOncePerOffer(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	f.bid(t, f.partner, 10000)
	f.bid(t, f.addPartner(), 9000)

	f.svc.now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }
	n, err := f.svc.ExpireOverdue(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = f.svc.ExpireOverdue(context.Background(), 100)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, 2, f.bus.count("offers.offer.expired"))
}

func TestListForQuoteIsScopedToOwner(t *testing.T) {
	f := newFixture(t, domain.FreePolicy())
	f.bid(t, f.partner, 10000)

	items, err := f.svc.ListForQuote(context.Background(), f.customer, f.quote.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = f.svc.ListForQuote(context.Background(), actor.Customer(uuid.New()), f.quote.ID)
	require.True(t, apperr.Is(err, apperr.KindNotFound))
}
