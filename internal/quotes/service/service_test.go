package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"flyttbas_backend/internal/events"
	"flyttbas_backend/internal/quotes/domain"
	"flyttbas_backend/internal/quotes/repository"
	"flyttbas_backend/internal/quotes/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/logger"
	"flyttbas_backend/platform/metrics"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu       sync.Mutex
	quotes   map[uuid.UUID]repository.Quote
	approved map[uuid.UUID]bool
	offers   map[uuid.UUID]int
	jobs     map[uuid.UUID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quotes:   map[uuid.UUID]repository.Quote{},
		approved: map[uuid.UUID]bool{},
		offers:   map[uuid.UUID]int{},
		jobs:     map[uuid.UUID]string{},
	}
}

func (f *fakeRepo) Create(_ context.Context, q repository.Quote) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.StatusChangedAt = q.CreatedAt
	q.UpdatedAt = q.CreatedAt
	f.quotes[q.ID] = q
	return q, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	return q, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []repository.Quote
	for _, q := range f.quotes {
		if params.Status != nil && q.Status != *params.Status {
			continue
		}
		if params.CustomerID != nil && (q.CustomerID == nil || *q.CustomerID != *params.CustomerID) {
			continue
		}
		if params.OpenOnly && !q.Status.IsOpen() {
			continue
		}
		items = append(items, q)
	}
	return repository.ListResult{Items: items, Total: len(items)}, nil
}

func (f *fakeRepo) UpdateDetails(_ context.Context, q repository.Quote, pristineOnly bool, now time.Time) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.quotes[q.ID]
	if pristineOnly && (current.Status != domain.StatusPending || f.offers[q.ID] > 0) {
		return repository.Quote{}, apperr.Validation("quote can no longer be edited")
	}
	q.UpdatedAt = now
	f.quotes[q.ID] = q
	return q, nil
}

func (f *fakeRepo) TransitionStatus(_ context.Context, id uuid.UUID, from []domain.Status, to domain.Status, reason *string, now time.Time) (domain.Status, repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return "", repository.Quote{}, apperr.NotFound("quote not found")
	}
	for _, st := range from {
		if q.Status == st {
			prev := q.Status
			q.Status = to
			if reason != nil {
				q.CancelledReason = reason
			}
			q.StatusChangedAt = now
			f.quotes[id] = q
			return prev, q, nil
		}
	}
	return q.Status, q, apperr.Conflict(fmt.Sprintf("quote is %s", q.Status))
}

func (f *fakeRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, now time.Time) (domain.Status, repository.Quote, error) {
	var from []domain.Status
	for _, st := range []domain.Status{domain.StatusPending, domain.StatusOffersReceived, domain.StatusOfferApproved, domain.StatusCompleted, domain.StatusCancelled, domain.StatusExpired} {
		if st != status {
			from = append(from, st)
		}
	}
	return f.TransitionStatus(ctx, id, from, status, nil, now)
}

func (f *fakeRepo) overdue(q repository.Quote, now time.Time) bool {
	return q.Status.IsOpen() && q.ExpiresAt != nil && q.ExpiresAt.Before(now) && !f.approved[q.ID]
}

func (f *fakeRepo) ExpireIfOverdue(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quotes[id]
	if !f.overdue(q, now) {
		return false, nil
	}
	q.Status = domain.StatusExpired
	f.quotes[id] = q
	return true, nil
}

func (f *fakeRepo) ExpireOverdue(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, q := range f.quotes {
		if len(ids) >= limit {
			break
		}
		if f.overdue(q, now) {
			q.Status = domain.StatusExpired
			f.quotes[id] = q
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRepo) HasApprovedOffer(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approved[id], nil
}

func (f *fakeRepo) ApprovedJobStatus(_ context.Context, id uuid.UUID) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.jobs[id]
	return status, ok, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.quotes[id]; !ok {
		return apperr.NotFound("quote not found")
	}
	delete(f.quotes, id)
	return nil
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

type stubConfig struct {
	ttl    time.Duration
	strict bool
}

func (c stubConfig) GetQuoteTTL() time.Duration           { return c.ttl }
func (c stubConfig) GetStrictOfferApprovedOverride() bool { return c.strict }

func newTestService(repo *fakeRepo, bus *recordingBus, strict bool) *Service {
	return New(repo, inlineTx{}, bus, stubConfig{ttl: 30 * 24 * time.Hour, strict: strict}, metrics.NewTransitionMetrics(nil), logger.Discard())
}

func sampleRequest() transport.CreateQuoteRequest {
	return transport.CreateQuoteRequest{
		QuoteDetails: transport.QuoteDetails{
			CustomerName:  "Anna Svensson",
			CustomerPhone: "070-123 45 67",
			From:          transport.LegRequest{Address: "Storgatan 1, Stockholm", PostalCode: "114 32"},
			To:            transport.LegRequest{Address: "Kungsgatan 5, Uppsala", PostalCode: "753 21", Elevator: "small"},
			MoveDate:      "2026-11-20",
			PackingHours:  2,
		},
		CustomerEmail: " Anna@Example.se ",
	}
}

func TestCreateNormalisesAndSetsExpiry(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus, true)
	customerID := uuid.New()

	req := sampleRequest()
	area, rooms := 80, 3
	req.To.AreaM2, req.To.Rooms = &area, &rooms

	created, err := svc.Create(context.Background(), actor.Customer(customerID), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != string(domain.StatusPending) {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.From.PostalCode != "11432" || created.CustomerEmail != "anna@example.se" {
		t.Fatalf("expected normalised fields, got %s / %s", created.From.PostalCode, created.CustomerEmail)
	}
	if created.CustomerPhone != "+46701234567" {
		t.Fatalf("expected E.164 phone, got %s", created.CustomerPhone)
	}
	if created.ExpiresAt == nil || created.CustomerID == nil || *created.CustomerID != customerID {
		t.Fatal("expected expiry and customer binding")
	}
	if created.To.AreaM2 == nil || *created.To.AreaM2 != 80 || created.To.Rooms == nil || *created.To.Rooms != 3 {
		t.Fatalf("destination dwelling lost: %+v", created.To)
	}
	if created.From.Elevator != "none" {
		t.Fatalf("expected default elevator none, got %s", created.From.Elevator)
	}
	if bus.count(events.QuoteCreated{}.EventName()) != 1 {
		t.Fatal("expected QuoteCreated event")
	}
}

func TestGetExpiresOverdueQuoteOnRead(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus, true)

	created, err := svc.Create(context.Background(), actor.Anonymous(), sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }

	got, err := svc.Get(context.Background(), actor.Admin(uuid.New()), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(domain.StatusExpired) {
		t.Fatalf("expected expired, got %s", got.Status)
	}

	// A second read must not fire the expiry side effects again.
	if _, err := svc.Get(context.Background(), actor.Admin(uuid.New()), created.ID); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if n := bus.count(events.QuoteExpired{}.EventName()); n != 1 {
		t.Fatalf("expected exactly one QuoteExpired event, got %d", n)
	}
}

func TestQuoteWithApprovedOfferNeverExpires(t *testing.T) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, bus, true)
	ctx := context.Background()

	created, err := svc.Create(ctx, actor.Anonymous(), sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.MarkOffersReceived(ctx, created.ID); err != nil {
		t.Fatalf("offers received: %v", err)
	}
	if _, err := svc.MarkOfferApproved(ctx, created.ID); err != nil {
		t.Fatalf("offer approved: %v", err)
	}
	repo.approved[created.ID] = true

	svc.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	got, err := svc.Get(ctx, actor.Admin(uuid.New()), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != string(domain.StatusOfferApproved) {
		t.Fatalf("expected offer_approved to survive, got %s", got.Status)
	}
	if n, _ := svc.ExpireOverdue(ctx, 10); n != 0 {
		t.Fatalf("sweep expired %d quotes with approved offers", n)
	}
}

func TestCustomerCannotSeeOthersQuote(t *testing.T) {
	svc := newTestService(newFakeRepo(), &recordingBus{}, true)
	created, err := svc.Create(context.Background(), actor.Customer(uuid.New()), sampleRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(context.Background(), actor.Customer(uuid.New()), created.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for other customer, got %v", err)
	}
}

func TestAutomaticAdvances(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{}, true)
	ctx := context.Background()
	created, _ := svc.Create(ctx, actor.Anonymous(), sampleRequest())

	tr, err := svc.MarkOffersReceived(ctx, created.ID)
	if err != nil || !tr.Changed {
		t.Fatalf("expected first offer to advance quote: %+v %v", tr, err)
	}
	tr, err = svc.MarkOffersReceived(ctx, created.ID)
	if err != nil || tr.Changed {
		t.Fatalf("second offer must be a no-op: %+v %v", tr, err)
	}

	if _, err := svc.MarkCompleted(ctx, created.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict completing an unapproved quote, got %v", err)
	}
	if _, err := svc.MarkOfferApproved(ctx, created.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.MarkCompleted(ctx, created.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if repo.quotes[created.ID].Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", repo.quotes[created.ID].Status)
	}
}

func TestOfferOnClosedQuoteConflicts(t *testing.T) {
	ctx := context.Background()
	for _, closed := range []domain.Status{domain.StatusCancelled, domain.StatusExpired, domain.StatusCompleted} {
		repo := newFakeRepo()
		svc := newTestService(repo, &recordingBus{}, true)
		created, _ := svc.Create(ctx, actor.Anonymous(), sampleRequest())
		q := repo.quotes[created.ID]
		q.Status = closed
		repo.quotes[created.ID] = q

		tr, err := svc.MarkOffersReceived(ctx, created.ID)
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("%s: expected conflict so the offer insert rolls back, got %+v %v", closed, tr, err)
		}
	}

	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{}, true)
	created, _ := svc.Create(ctx, actor.Anonymous(), sampleRequest())
	if _, err := svc.MarkOfferApproved(ctx, created.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if tr, err := svc.MarkOffersReceived(ctx, created.ID); err != nil || tr.Changed {
		t.Fatalf("offer on an approved quote must be a no-op: %+v %v", tr, err)
	}
}

func TestCancelRefusedWhileMoveInProgress(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{}, true)
	ctx := context.Background()
	created, _ := svc.Create(ctx, actor.Anonymous(), sampleRequest())
	if _, err := svc.MarkOfferApproved(ctx, created.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	admin := actor.Admin(uuid.New())

	repo.jobs[created.ID] = "in_progress"
	if _, err := svc.Cancel(ctx, admin, created.ID, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.quotes[created.ID].Status != domain.StatusOfferApproved {
		t.Fatalf("quote changed to %s", repo.quotes[created.ID].Status)
	}

	repo.jobs[created.ID] = "scheduled"
	cancelled, err := svc.Cancel(ctx, admin, created.ID, "")
	if err != nil {
		t.Fatalf("cancel before the move starts: %v", err)
	}
	if cancelled.Status != string(domain.StatusCancelled) {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestCancelRejectsCompletedQuote(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{}, true)
	ctx := context.Background()
	customer := uuid.New()
	created, _ := svc.Create(ctx, actor.Customer(customer), sampleRequest())

	cancelled, err := svc.Cancel(ctx, actor.Customer(customer), created.ID, "flyttar inte längre")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != string(domain.StatusCancelled) || cancelled.CancelledReason == nil {
		t.Fatalf("unexpected cancelled quote %+v", cancelled)
	}

	q := repo.quotes[created.ID]
	q.Status = domain.StatusCompleted
	repo.quotes[created.ID] = q
	if _, err := svc.Cancel(ctx, actor.Admin(uuid.New()), created.ID, ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error cancelling completed quote, got %v", err)
	}
}

func TestAdminSetStatusGuardsOfferApproved(t *testing.T) {
	ctx := context.Background()
	admin := actor.Admin(uuid.New())

	strictRepo := newFakeRepo()
	strict := newTestService(strictRepo, &recordingBus{}, true)
	q1, _ := strict.Create(ctx, actor.Anonymous(), sampleRequest())
	if _, err := strict.AdminSetStatus(ctx, admin, q1.ID, "offer_approved"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected strict mode to reject, got %v", err)
	}
	if strictRepo.quotes[q1.ID].Status != domain.StatusPending {
		t.Fatal("rejected override must not change state")
	}

	lenient := newTestService(newFakeRepo(), &recordingBus{}, false)
	q2, _ := lenient.Create(ctx, actor.Anonymous(), sampleRequest())
	got, err := lenient.AdminSetStatus(ctx, admin, q2.ID, "offer_approved")
	if err != nil {
		t.Fatalf("lenient override: %v", err)
	}
	if got.Status != string(domain.StatusOfferApproved) {
		t.Fatalf("expected offer_approved, got %s", got.Status)
	}

	if _, err := lenient.AdminSetStatus(ctx, actor.Customer(uuid.New()), q2.ID, "pending"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
}

func TestCustomerUpdateOnlyWhilePristine(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &recordingBus{}, true)
	ctx := context.Background()
	customer := uuid.New()
	created, _ := svc.Create(ctx, actor.Customer(customer), sampleRequest())

	update := transport.UpdateQuoteRequest{QuoteDetails: sampleRequest().QuoteDetails}
	update.Notes = "Piano i källaren"
	got, err := svc.UpdateDetails(ctx, actor.Customer(customer), created.ID, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Notes == nil || *got.Notes != "Piano i källaren" {
		t.Fatalf("expected notes to be updated, got %v", got.Notes)
	}

	repo.offers[created.ID] = 1
	if _, err := svc.UpdateDetails(ctx, actor.Customer(customer), created.ID, update); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error once offers exist, got %v", err)
	}
	if _, err := svc.UpdateDetails(ctx, actor.Admin(uuid.New()), created.ID, update); err != nil {
		t.Fatalf("admin update should succeed: %v", err)
	}
}
