package adapters

import (
	"context"

	offersvc "flyttbas_backend/internal/offers/service"
	partnersvc "flyttbas_backend/internal/partners/service"

	"github.com/google/uuid"
)

// OfferPartners lets the offer lifecycle check bidders against the
// eligibility filter. It implements offers/service.PartnerGateway.
type OfferPartners struct {
	partners *partnersvc.Service
	quotes   partnersvc.QuoteReader
}

// NewOfferPartners creates the adapter. The quote reader supplies the
// coordinates the offer module does not carry.
func NewOfferPartners(partners *partnersvc.Service, quotes partnersvc.QuoteReader) *OfferPartners {
	return &OfferPartners{partners: partners, quotes: quotes}
}

func (a *OfferPartners) Assess(ctx context.Context, partnerID uuid.UUID, q offersvc.QuoteFacts) (offersvc.Assessment, error) {
	facts, err := a.quotes.GetQuote(ctx, q.ID)
	if err != nil {
		return offersvc.Assessment{}, err
	}
	assessment, err := a.partners.Assess(ctx, partnerID, facts)
	if err != nil {
		return offersvc.Assessment{}, err
	}

	out := offersvc.Assessment{
		CompanyName: assessment.Partner.CompanyName,
		Score:       assessment.Score,
	}
	if d := assessment.Distance; d != nil {
		km, minutes := d.Km, d.Minutes
		out.DistanceKm = &km
		out.DriveTimeMinutes = &minutes
	}
	return out, nil
}

func (a *OfferPartners) IncrementCompletedJobs(ctx context.Context, partnerID uuid.UUID) error {
	return a.partners.IncrementCompletedJobs(ctx, partnerID)
}

var _ offersvc.PartnerGateway = (*OfferPartners)(nil)
