package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateOfferRequest is a partner's bid. PartnerID is only read when an
// administrator bids on a partner's behalf.
type CreateOfferRequest struct {
	QuoteID        uuid.UUID  `json:"quoteId" validate:"required"`
	PartnerID      *uuid.UUID `json:"partnerId,omitempty"`
	AvailableDate  string     `json:"availableDate" validate:"required,datetime=2006-01-02"`
	TimeWindow     string     `json:"timeWindow,omitempty" validate:"omitempty,max=100"`
	EstimatedHours float64    `json:"estimatedHours" validate:"required,gt=0,lte=500"`
	TeamSize       int        `json:"teamSize" validate:"required,min=1,max=50"`
	PriceBeforeRUT int64      `json:"priceBeforeRut" validate:"required,gt=0"`
	ApplyRUT       *bool      `json:"applyRut,omitempty"`
	Terms          string     `json:"terms,omitempty" validate:"omitempty,max=4000"`
	ValidUntil     *time.Time `json:"validUntil,omitempty"`
}

type RejectOfferRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=1000"`
}

type UpdateJobStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=confirmed scheduled in_progress completed cancelled"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

type ListOffersRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending approved rejected expired withdrawn"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type OfferResponse struct {
	ID                 uuid.UUID  `json:"id"`
	QuoteID            uuid.UUID  `json:"quoteId"`
	PartnerID          uuid.UUID  `json:"partnerId"`
	CompanyName        string     `json:"companyName"`
	AvailableDate      string     `json:"availableDate"`
	TimeWindow         *string    `json:"timeWindow,omitempty"`
	EstimatedHours     string     `json:"estimatedHours"`
	TeamSize           int        `json:"teamSize"`
	ApplyRUT           bool       `json:"applyRut"`
	PriceBeforeRUT     int64      `json:"priceBeforeRut"`
	RUTDeduction       int64      `json:"rutDeduction"`
	TotalPrice         int64      `json:"totalPrice"`
	Terms              *string    `json:"terms,omitempty"`
	ValidUntil         time.Time  `json:"validUntil"`
	DistanceKm         *string    `json:"distanceKm,omitempty"`
	DriveTimeMinutes   *int       `json:"driveTimeMinutes,omitempty"`
	RankingScore       float64    `json:"rankingScore"`
	Status             string     `json:"status"`
	RejectionReason    *string    `json:"rejectionReason,omitempty"`
	ApprovedAt         *time.Time `json:"approvedAt,omitempty"`
	JobStatus          *string    `json:"jobStatus,omitempty"`
	JobStatusUpdatedAt *time.Time `json:"jobStatusUpdatedAt,omitempty"`
	JobNotes           *string    `json:"jobNotes,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type ListOffersResponse struct {
	Items      []OfferResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}
