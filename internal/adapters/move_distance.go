package adapters

import (
	"context"

	"flyttbas_backend/internal/maps"
	"flyttbas_backend/internal/partners/domain"
	partnersvc "flyttbas_backend/internal/partners/service"
)

// MoveDistance measures a quote's move with the maps service.
// It implements partners/service.DistanceCalculator.
type MoveDistance struct {
	maps *maps.Service
}

func NewMoveDistance(svc *maps.Service) *MoveDistance {
	return &MoveDistance{maps: svc}
}

func (a *MoveDistance) MoveDistance(ctx context.Context, q partnersvc.QuoteFacts) (domain.Distance, error) {
	route, err := a.maps.Distance(ctx,
		maps.Point{Address: joinAddress(q.FromAddress, q.FromPostalCode), Lat: q.FromLat, Lng: q.FromLng},
		maps.Point{Address: joinAddress(q.ToAddress, q.ToPostalCode), Lat: q.ToLat, Lng: q.ToLng},
	)
	if err != nil {
		return domain.Distance{}, err
	}
	return domain.Distance{Km: route.DistanceKm, Minutes: route.DurationMinutes}, nil
}

func joinAddress(address, postalCode string) string {
	if postalCode == "" {
		return address
	}
	if address == "" {
		return postalCode
	}
	return address + ", " + postalCode
}

var _ partnersvc.DistanceCalculator = (*MoveDistance)(nil)
