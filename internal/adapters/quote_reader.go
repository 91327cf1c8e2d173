package adapters

import (
	"context"

	"flyttbas_backend/internal/offers/service"
	partnersvc "flyttbas_backend/internal/partners/service"
	quotesdomain "flyttbas_backend/internal/quotes/domain"
	quotesrepo "flyttbas_backend/internal/quotes/repository"
	quotesvc "flyttbas_backend/internal/quotes/service"
	"flyttbas_backend/internal/shared/actor"

	"github.com/google/uuid"
)

// QuoteReader exposes the quote lifecycle to the partners and offers modules.
// It implements partners/service.QuoteReader and offers/service.QuoteGateway.
type QuoteReader struct {
	quotes *quotesvc.Service
}

// NewQuoteReader creates a new quote reader adapter.
func NewQuoteReader(quotes *quotesvc.Service) *QuoteReader {
	return &QuoteReader{quotes: quotes}
}

// PartnerView narrows the adapter to the partners module's port.
func (a *QuoteReader) PartnerView() partnersvc.QuoteReader {
	return partnerQuoteReader{quotes: a.quotes}
}

// GetQuote implements offers/service.QuoteGateway.
func (a *QuoteReader) GetQuote(ctx context.Context, id uuid.UUID) (service.QuoteFacts, error) {
	q, err := a.quotes.GetQuote(ctx, id)
	if err != nil {
		return service.QuoteFacts{}, err
	}
	return offerFacts(q), nil
}

func (a *QuoteReader) Authorize(ctx context.Context, act actor.Actor, id uuid.UUID) (service.QuoteFacts, error) {
	q, err := a.quotes.Authorize(ctx, act, id)
	if err != nil {
		return service.QuoteFacts{}, err
	}
	return offerFacts(q), nil
}

func (a *QuoteReader) MarkOffersReceived(ctx context.Context, id uuid.UUID) (service.QuoteTransition, error) {
	t, err := a.quotes.MarkOffersReceived(ctx, id)
	return offerTransition(t), err
}

func (a *QuoteReader) MarkOfferApproved(ctx context.Context, id uuid.UUID) (service.QuoteTransition, error) {
	t, err := a.quotes.MarkOfferApproved(ctx, id)
	return offerTransition(t), err
}

func (a *QuoteReader) MarkCompleted(ctx context.Context, id uuid.UUID) (service.QuoteTransition, error) {
	t, err := a.quotes.MarkCompleted(ctx, id)
	return offerTransition(t), err
}

// PublishTransition announces a committed automatic advance.
func (a *QuoteReader) PublishTransition(ctx context.Context, t service.QuoteTransition) {
	a.quotes.PublishTransition(ctx, quotesvc.Transition{
		QuoteID: t.QuoteID,
		From:    quotesdomain.Status(t.From),
		To:      quotesdomain.Status(t.To),
		Changed: t.Changed,
	})
}

func offerFacts(q quotesrepo.Quote) service.QuoteFacts {
	return service.QuoteFacts{
		ID:             q.ID,
		Status:         string(q.Status),
		Terminal:       q.Status.IsTerminal(),
		CustomerName:   q.CustomerName,
		CustomerEmail:  q.CustomerEmail,
		FromAddress:    q.From.Address,
		FromPostalCode: q.From.PostalCode,
		ToAddress:      q.To.Address,
		ToPostalCode:   q.To.PostalCode,
		MoveDate:       q.MoveDate,
	}
}

func offerTransition(t quotesvc.Transition) service.QuoteTransition {
	return service.QuoteTransition{
		QuoteID: t.QuoteID,
		From:    string(t.From),
		To:      string(t.To),
		Changed: t.Changed,
	}
}

type partnerQuoteReader struct {
	quotes *quotesvc.Service
}

func (r partnerQuoteReader) GetQuote(ctx context.Context, id uuid.UUID) (partnersvc.QuoteFacts, error) {
	q, err := r.quotes.GetQuote(ctx, id)
	if err != nil {
		return partnersvc.QuoteFacts{}, err
	}
	return partnerFacts(q), nil
}

func (r partnerQuoteReader) ListOpenQuotes(ctx context.Context, page, pageSize int) ([]partnersvc.QuoteFacts, int, error) {
	quotes, total, err := r.quotes.ListOpen(ctx, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]partnersvc.QuoteFacts, len(quotes))
	for i, q := range quotes {
		out[i] = partnerFacts(q)
	}
	return out, total, nil
}

func partnerFacts(q quotesrepo.Quote) partnersvc.QuoteFacts {
	return partnersvc.QuoteFacts{
		ID:             q.ID,
		Status:         string(q.Status),
		Open:           q.Status.IsOpen(),
		FromAddress:    q.From.Address,
		FromPostalCode: q.From.PostalCode,
		FromLat:        q.From.Lat,
		FromLng:        q.From.Lng,
		ToAddress:      q.To.Address,
		ToPostalCode:   q.To.PostalCode,
		ToLat:          q.To.Lat,
		ToLng:          q.To.Lng,
		MoveDate:       q.MoveDate,
	}
}

var _ service.QuoteGateway = (*QuoteReader)(nil)
var _ partnersvc.QuoteReader = partnerQuoteReader{}
