package transport

import (
	"time"

	"github.com/google/uuid"
)

type LegRequest struct {
	Address    string   `json:"address" validate:"required,max=300"`
	PostalCode string   `json:"postalCode" validate:"required,postalcode"`
	Lat        *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng        *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	AreaM2     *int     `json:"areaM2,omitempty" validate:"omitempty,min=1,max=2000"`
	Rooms      *int     `json:"rooms,omitempty" validate:"omitempty,min=1,max=50"`
	Floor      *int     `json:"floor,omitempty" validate:"omitempty,min=-5,max=60"`
	Elevator   string   `json:"elevator,omitempty" validate:"omitempty,oneof=none small large"`
}

// QuoteDetails is the editable move description.
type QuoteDetails struct {
	CustomerName       string     `json:"customerName" validate:"required,max=200"`
	CustomerPhone      string     `json:"customerPhone,omitempty" validate:"omitempty,max=50"`
	From               LegRequest `json:"from"`
	To                 LegRequest `json:"to"`
	MoveDate           string     `json:"moveDate" validate:"required,datetime=2006-01-02"`
	MoveTimeWindow     string     `json:"moveTimeWindow,omitempty" validate:"omitempty,max=50"`
	PackingHours       float64    `json:"packingHours" validate:"gte=0,lte=200"`
	AssemblyHours      float64    `json:"assemblyHours" validate:"gte=0,lte=200"`
	HeavyItems         string     `json:"heavyItems,omitempty" validate:"omitempty,max=1000"`
	ParkingRestriction bool       `json:"parkingRestriction"`
	HomeVisitRequested bool       `json:"homeVisitRequested"`
	Notes              string     `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

type CreateQuoteRequest struct {
	QuoteDetails
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
}

type UpdateQuoteRequest struct {
	QuoteDetails
}

type CancelQuoteRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending offers_received offer_approved completed cancelled expired"`
}

type ListQuotesRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending offers_received offer_approved completed cancelled expired"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type LegResponse struct {
	Address    string   `json:"address"`
	PostalCode string   `json:"postalCode"`
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	AreaM2     *int     `json:"areaM2,omitempty"`
	Rooms      *int     `json:"rooms,omitempty"`
	Floor      *int     `json:"floor,omitempty"`
	Elevator   string   `json:"elevator"`
}

type QuoteResponse struct {
	ID                 uuid.UUID   `json:"id"`
	CustomerID         *uuid.UUID  `json:"customerId,omitempty"`
	CustomerName       string      `json:"customerName"`
	CustomerEmail      string      `json:"customerEmail"`
	CustomerPhone      string      `json:"customerPhone,omitempty"`
	From               LegResponse `json:"from"`
	To                 LegResponse `json:"to"`
	MoveDate           string      `json:"moveDate"`
	MoveTimeWindow     *string     `json:"moveTimeWindow,omitempty"`
	PackingHours       float64     `json:"packingHours"`
	AssemblyHours      float64     `json:"assemblyHours"`
	HeavyItems         *string     `json:"heavyItems,omitempty"`
	ParkingRestriction bool        `json:"parkingRestriction"`
	HomeVisitRequested bool        `json:"homeVisitRequested"`
	Notes              *string     `json:"notes,omitempty"`
	Status             string      `json:"status"`
	CancelledReason    *string     `json:"cancelledReason,omitempty"`
	StatusChangedAt    time.Time   `json:"statusChangedAt"`
	ExpiresAt          *time.Time  `json:"expiresAt,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

type ListQuotesResponse struct {
	Items      []QuoteResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}
