package email

import (
	"context"
	"time"
)

// Sender delivers the marketplace's transactional emails.
type Sender interface {
	SendOfferSubmittedEmail(ctx context.Context, toEmail string, data OfferSubmitted) error
	SendJobStatusEmail(ctx context.Context, toEmail string, data JobStatus) error
	SendPartnerStatusEmail(ctx context.Context, toEmail string, data PartnerStatus) error
	SendPartnerApplicationEmail(ctx context.Context, toEmail string, data PartnerApplication) error
}

// Move is the move summary shown in customer emails.
type Move struct {
	FromAddress    string    `json:"fromAddress"`
	FromPostalCode string    `json:"fromPostalCode"`
	ToAddress      string    `json:"toAddress"`
	ToPostalCode   string    `json:"toPostalCode"`
	MoveDate       time.Time `json:"moveDate"`
}

// OfferSubmitted tells a customer that a moving company has bid.
type OfferSubmitted struct {
	CustomerName  string    `json:"customerName"`
	CompanyName   string    `json:"companyName"`
	TotalPrice    int64     `json:"totalPrice"`
	RUTDeduction  int64     `json:"rutDeduction"`
	AvailableDate time.Time `json:"availableDate"`
	ValidUntil    time.Time `json:"validUntil"`
	Move          Move      `json:"move"`
	OffersURL     string    `json:"offersUrl"`
}

// JobStatus tells a customer their move has progressed.
type JobStatus struct {
	CustomerName string `json:"customerName"`
	CompanyName  string `json:"companyName"`
	Status       string `json:"status"`
	Notes        string `json:"notes,omitempty"`
	Move         Move   `json:"move"`
}

// PartnerStatus tells a moving company the outcome of a review.
type PartnerStatus struct {
	ContactName string `json:"contactName"`
	CompanyName string `json:"companyName"`
	Status      string `json:"status"`
	Note        string `json:"note,omitempty"`
	PortalURL   string `json:"portalUrl"`
}

// PartnerApplication tells administrators a new company has applied.
type PartnerApplication struct {
	CompanyName  string `json:"companyName"`
	OrgNumber    string `json:"orgNumber"`
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ReviewURL    string `json:"reviewUrl"`
}

// NoopSender drops every email. Used when delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendOfferSubmittedEmail(context.Context, string, OfferSubmitted) error {
	return nil
}

func (NoopSender) SendJobStatusEmail(context.Context, string, JobStatus) error {
	return nil
}

func (NoopSender) SendPartnerStatusEmail(context.Context, string, PartnerStatus) error {
	return nil
}

func (NoopSender) SendPartnerApplicationEmail(context.Context, string, PartnerApplication) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
