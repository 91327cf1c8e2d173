package transport

import (
	"time"

	"github.com/google/uuid"
)

type SettingsResponse struct {
	DefaultRate string `json:"defaultRate"`
	DefaultType string `json:"defaultType"`
	MinRate     string `json:"minRate"`
	MaxRate     string `json:"maxRate"`
	MaxFixed    string `json:"maxFixed"`
}

type UpdateSettingsRequest struct {
	Rate string `json:"rate" validate:"required,numeric"`
	Type string `json:"type" validate:"required,oneof=percentage fixed"`
}

type FeeResponse struct {
	ID                 uuid.UUID  `json:"id"`
	OfferID            uuid.UUID  `json:"offerId"`
	PartnerID          uuid.UUID  `json:"partnerId"`
	OrderValue         int64      `json:"orderValue"`
	FeeAmount          int64      `json:"feeAmount"`
	FeePercentage      *string    `json:"feePercentage"`
	InvoiceNumber      *string    `json:"invoiceNumber,omitempty"`
	InvoiceGeneratedAt *time.Time `json:"invoiceGeneratedAt,omitempty"`
	InvoicePaidAt      *time.Time `json:"invoicePaidAt,omitempty"`
	CreditNoteNumber   *string    `json:"creditNoteNumber,omitempty"`
	CreditNoteAmount   *int64     `json:"creditNoteAmount,omitempty"`
	CreditNoteReason   *string    `json:"creditNoteReason,omitempty"`
	CreditedAt         *time.Time `json:"creditedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type ListFeesRequest struct {
	PartnerID string `form:"partnerId" validate:"omitempty,uuid"`
	State     string `form:"state" validate:"omitempty,oneof=uninvoiced invoiced paid credited"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListFeesResponse struct {
	Items      []FeeResponse `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

type CreditNoteRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Reason string `json:"reason" validate:"required,max=500"`
}

type SummaryResponse struct {
	PartnerID     uuid.UUID `json:"partnerId"`
	FeeCount      int       `json:"feeCount"`
	TotalFees     int64     `json:"totalFees"`
	TotalInvoiced int64     `json:"totalInvoiced"`
	TotalPaid     int64     `json:"totalPaid"`
	TotalCredited int64     `json:"totalCredited"`
	Outstanding   int64     `json:"outstanding"`
}
