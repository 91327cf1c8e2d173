package adapters

import (
	"context"

	commissionsvc "flyttbas_backend/internal/commission/service"
	offersvc "flyttbas_backend/internal/offers/service"

	"github.com/google/uuid"
)

// CommissionLedger records fees for completed jobs.
// It implements offers/service.Ledger.
type CommissionLedger struct {
	commission *commissionsvc.Service
}

func NewCommissionLedger(commission *commissionsvc.Service) *CommissionLedger {
	return &CommissionLedger{commission: commission}
}

// Record joins the caller's transaction.
func (a *CommissionLedger) Record(ctx context.Context, offerID, partnerID uuid.UUID, priceBeforeRUT int64) (offersvc.RecordedFee, error) {
	fee, err := a.commission.Record(ctx, commissionsvc.OfferFacts{
		OfferID:        offerID,
		PartnerID:      partnerID,
		PriceBeforeRUT: priceBeforeRUT,
	})
	if err != nil {
		return offersvc.RecordedFee{}, err
	}
	return offersvc.RecordedFee{ID: fee.ID, OrderValue: fee.OrderValue, Amount: fee.FeeAmount}, nil
}

var _ offersvc.Ledger = (*CommissionLedger)(nil)
