package transport

import (
	"time"

	"github.com/google/uuid"
)

type ApplyRequest struct {
	CompanyName         string   `json:"companyName" validate:"required,max=200"`
	OrgNumber           string   `json:"orgNumber" validate:"required,max=20"`
	ContactName         string   `json:"contactName" validate:"required,max=120"`
	ContactEmail        string   `json:"contactEmail" validate:"required,email"`
	ContactPhone        string   `json:"contactPhone" validate:"required,max=50"`
	LicenseNumber       string   `json:"licenseNumber,omitempty" validate:"omitempty,max=50"`
	InsuranceProvider   string   `json:"insuranceProvider,omitempty" validate:"omitempty,max=120"`
	InsuranceValidUntil string   `json:"insuranceValidUntil,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HasTaxCertificate   bool     `json:"hasTaxCertificate"`
	MaxDriveDistanceKm  *int     `json:"maxDriveDistanceKm,omitempty" validate:"omitempty,min=1,max=2000"`
	ServicePostalCodes  []string `json:"servicePostalCodes,omitempty" validate:"omitempty,max=500,dive,postalcode"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected suspended more_info_requested"`
	Note   string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type UpdateServiceAreaRequest struct {
	MaxDriveDistanceKm *int     `json:"maxDriveDistanceKm" validate:"omitempty,min=1,max=2000"`
	ServicePostalCodes []string `json:"servicePostalCodes" validate:"omitempty,max=500,dive,postalcode"`
}

type CommissionOverrideRequest struct {
	Rate *string `json:"rate" validate:"omitempty,numeric"`
	Type *string `json:"type" validate:"omitempty,oneof=percentage fixed"`
}

type SponsoredRequest struct {
	IsSponsored bool `json:"isSponsored"`
}

type ListPartnersRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=pending approved rejected suspended more_info_requested"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type ListOpenQuotesRequest struct {
	Page     int `form:"page" validate:"omitempty,min=1"`
	PageSize int `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type DocumentsResponse struct {
	License        bool `json:"license"`
	Insurance      bool `json:"insurance"`
	TaxCertificate bool `json:"taxCertificate"`
}

type PartnerResponse struct {
	ID                     uuid.UUID         `json:"id"`
	CompanyName            string            `json:"companyName"`
	OrgNumber              string            `json:"orgNumber"`
	ContactName            string            `json:"contactName"`
	ContactEmail           string            `json:"contactEmail"`
	ContactPhone           string            `json:"contactPhone"`
	Status                 string            `json:"status"`
	LicenseNumber          *string           `json:"licenseNumber,omitempty"`
	InsuranceProvider      *string           `json:"insuranceProvider,omitempty"`
	InsuranceValidUntil    *string           `json:"insuranceValidUntil,omitempty"`
	HasTaxCertificate      bool              `json:"hasTaxCertificate"`
	Documents              DocumentsResponse `json:"documents"`
	MaxDriveDistanceKm     *int              `json:"maxDriveDistanceKm,omitempty"`
	ServicePostalCodes     []string          `json:"servicePostalCodes"`
	AverageRating          float64           `json:"averageRating"`
	TotalReviews           int               `json:"totalReviews"`
	CompletedJobs          int               `json:"completedJobs"`
	IsSponsored            bool              `json:"isSponsored"`
	CommissionRateOverride *string           `json:"commissionRateOverride"`
	CommissionTypeOverride *string           `json:"commissionTypeOverride"`
	ReviewedAt             *time.Time        `json:"reviewedAt,omitempty"`
	ReviewNote             *string           `json:"reviewNote,omitempty"`
	CreatedAt              time.Time         `json:"createdAt"`
}

type ListPartnersResponse struct {
	Items      []PartnerResponse `json:"items"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

type EligiblePartnerResponse struct {
	PartnerID          uuid.UUID `json:"partnerId"`
	CompanyName        string    `json:"companyName"`
	RankingScore       float64   `json:"rankingScore"`
	IsSponsored        bool      `json:"isSponsored"`
	AverageRating      float64   `json:"averageRating"`
	CompletedJobs      int       `json:"completedJobs"`
	MaxDriveDistanceKm int       `json:"maxDriveDistanceKm"`
}

type EligibilityResponse struct {
	QuoteID          uuid.UUID                 `json:"quoteId"`
	DistanceKm       *float64                  `json:"distanceKm,omitempty"`
	DriveTimeMinutes *int                      `json:"driveTimeMinutes,omitempty"`
	DistanceKnown    bool                      `json:"distanceKnown"`
	Partners         []EligiblePartnerResponse `json:"partners"`
}

type OpenQuoteResponse struct {
	QuoteID          uuid.UUID `json:"quoteId"`
	FromPostalCode   string    `json:"fromPostalCode"`
	ToPostalCode     string    `json:"toPostalCode"`
	MoveDate         string    `json:"moveDate"`
	Status           string    `json:"status"`
	DistanceKm       *float64  `json:"distanceKm,omitempty"`
	DriveTimeMinutes *int      `json:"driveTimeMinutes,omitempty"`
	RankingScore     float64   `json:"rankingScore"`
}

type ListOpenQuotesResponse struct {
	Items    []OpenQuoteResponse `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

type DocumentURLResponse struct {
	URL string `json:"url"`
}
