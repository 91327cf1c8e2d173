package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyttbas_backend/internal/partners/domain"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const partnerNotFoundMsg = "partner not found"

// Repository provides database operations for partners.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new partners repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Partner struct {
	ID                        uuid.UUID
	UserID                    *uuid.UUID
	CompanyName               string
	OrgNumber                 string
	ContactName               string
	ContactEmail              string
	ContactPhone              string
	Status                    domain.Status
	LicenseNumber             *string
	InsuranceProvider         *string
	InsuranceValidUntil       *time.Time
	HasTaxCertificate         bool
	LicenseDocumentKey        *string
	InsuranceDocumentKey      *string
	TaxCertificateDocumentKey *string
	MaxDriveDistanceKm        *int
	ServicePostalCodes        []string
	AverageRating             float64
	TotalReviews              int
	CompletedJobs             int
	IsSponsored               bool
	CommissionRateOverride    decimal.NullDecimal
	CommissionTypeOverride    *string
	ReviewedBy                *uuid.UUID
	ReviewedAt                *time.Time
	ReviewNote                *string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type ListParams struct {
	Status   *domain.Status
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Partner
	Total int
}

const partnerColumns = `
	id, user_id, company_name, org_number, contact_name, contact_email, contact_phone, status,
	license_number, insurance_provider, insurance_valid_until, has_tax_certificate,
	license_document_key, insurance_document_key, tax_certificate_document_key,
	max_drive_distance_km, service_postal_codes,
	average_rating::float8, total_reviews, completed_jobs, is_sponsored,
	commission_rate_override, commission_type_override,
	reviewed_by, reviewed_at, review_note, created_at, updated_at`

func scanPartner(row pgx.Row, lead ...any) (Partner, error) {
	var p Partner
	var status string
	dest := append(lead,
		&p.ID, &p.UserID, &p.CompanyName, &p.OrgNumber, &p.ContactName, &p.ContactEmail, &p.ContactPhone, &status,
		&p.LicenseNumber, &p.InsuranceProvider, &p.InsuranceValidUntil, &p.HasTaxCertificate,
		&p.LicenseDocumentKey, &p.InsuranceDocumentKey, &p.TaxCertificateDocumentKey,
		&p.MaxDriveDistanceKm, &p.ServicePostalCodes,
		&p.AverageRating, &p.TotalReviews, &p.CompletedJobs, &p.IsSponsored,
		&p.CommissionRateOverride, &p.CommissionTypeOverride,
		&p.ReviewedBy, &p.ReviewedAt, &p.ReviewNote, &p.CreatedAt, &p.UpdatedAt,
	)
	err := row.Scan(dest...)
	p.Status = domain.Status(status)
	return p, err
}

func collectPartners(rows pgx.Rows) ([]Partner, error) {
	defer rows.Close()
	items := make([]Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partners: %w", err)
	}
	return items, nil
}

func (r *Repository) Create(ctx context.Context, p Partner) (Partner, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO partners (
			id, user_id, company_name, org_number, contact_name, contact_email, contact_phone, status,
			license_number, insurance_provider, insurance_valid_until, has_tax_certificate,
			max_drive_distance_km, service_postal_codes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $15
		)
		RETURNING`+partnerColumns,
		p.ID, p.UserID, p.CompanyName, p.OrgNumber, p.ContactName, p.ContactEmail, p.ContactPhone, string(p.Status),
		p.LicenseNumber, p.InsuranceProvider, p.InsuranceValidUntil, p.HasTaxCertificate,
		p.MaxDriveDistanceKm, p.ServicePostalCodes, p.CreatedAt,
	)
	out, err := scanPartner(row)
	if db.IsUniqueViolation(err, "partners_org_number_key") {
		return Partner{}, apperr.Conflict("a partner with this organisation number already exists")
	}
	if err != nil {
		return Partner{}, fmt.Errorf("insert partner: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Partner, error) {
	p, err := scanPartner(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT`+partnerColumns+` FROM partners WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, apperr.NotFound(partnerNotFoundMsg)
	}
	if err != nil {
		return Partner{}, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM partners WHERE ($1::text IS NULL OR status = $1)`, status).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count partners: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT`+partnerColumns+` FROM partners
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		status, params.PageSize, (params.Page-1)*params.PageSize,
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("list partners: %w", err)
	}
	items, err := collectPartners(rows)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// ListEligibilityPool returns approved partners whose postal allow-list is
// empty or contains originPostalCode. The full rules run in domain.Evaluate.
func (r *Repository) ListEligibilityPool(ctx context.Context, originPostalCode string) ([]Partner, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT`+partnerColumns+` FROM partners
		WHERE status = 'approved'
		  AND (cardinality(service_postal_codes) = 0 OR $1 = ANY(service_postal_codes))
		ORDER BY company_name`,
		originPostalCode,
	)
	if err != nil {
		return nil, fmt.Errorf("list eligibility pool: %w", err)
	}
	return collectPartners(rows)
}

// UpdateStatus records an administrator review and returns the previous status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, reviewedBy uuid.UUID, note *string, now time.Time) (domain.Status, Partner, error) {
	var previous string
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		WITH prev AS (SELECT id, status FROM partners WHERE id = $1 FOR UPDATE)
		UPDATE partners p SET
			status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5, updated_at = $4
		FROM prev
		WHERE p.id = prev.id
		RETURNING prev.status,`+db.Qualify("p", partnerColumns),
		id, string(status), reviewedBy, now, note,
	)
	p, err := scanPartner(row, &previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", Partner{}, apperr.NotFound(partnerNotFoundMsg)
	}
	if err != nil {
		return "", Partner{}, fmt.Errorf("update partner status: %w", err)
	}
	return domain.Status(previous), p, nil
}

func (r *Repository) UpdateServiceArea(ctx context.Context, id uuid.UUID, maxKm *int, postalCodes []string, now time.Time) (Partner, error) {
	return r.updateReturning(ctx, `
		UPDATE partners SET max_drive_distance_km = $2, service_postal_codes = $3, updated_at = $4
		WHERE id = $1
		RETURNING`+partnerColumns, id, maxKm, postalCodes, now)
}

func (r *Repository) SetCommissionOverride(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal, typ *string, now time.Time) (Partner, error) {
	return r.updateReturning(ctx, `
		UPDATE partners SET commission_rate_override = $2, commission_type_override = $3, updated_at = $4
		WHERE id = $1
		RETURNING`+partnerColumns, id, rate, typ, now)
}

func (r *Repository) SetSponsored(ctx context.Context, id uuid.UUID, sponsored bool, now time.Time) (Partner, error) {
	return r.updateReturning(ctx, `
		UPDATE partners SET is_sponsored = $2, updated_at = $3
		WHERE id = $1
		RETURNING`+partnerColumns, id, sponsored, now)
}

// SetDocumentKey stores the object key for an uploaded eligibility document.
func (r *Repository) SetDocumentKey(ctx context.Context, id uuid.UUID, kind domain.DocumentKind, key string, now time.Time) (Partner, error) {
	var column string
	switch kind {
	case domain.DocumentLicense:
		column = "license_document_key"
	case domain.DocumentInsurance:
		column = "insurance_document_key"
	case domain.DocumentTaxCertificate:
		column = "tax_certificate_document_key"
	default:
		return Partner{}, apperr.Validationf("unknown document kind %q", kind)
	}

	return r.updateReturning(ctx, `
		UPDATE partners SET `+column+` = $2, updated_at = $3
		WHERE id = $1
		RETURNING`+partnerColumns, id, key, now)
}

// IncrementCompletedJobs bumps the reputation counter. It joins the caller's transaction.
func (r *Repository) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE partners SET completed_jobs = completed_jobs + 1, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("increment completed jobs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(partnerNotFoundMsg)
	}
	return nil
}

func (r *Repository) updateReturning(ctx context.Context, query string, args ...any) (Partner, error) {
	p, err := scanPartner(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, apperr.NotFound(partnerNotFoundMsg)
	}
	if err != nil {
		return Partner{}, fmt.Errorf("update partner: %w", err)
	}
	return p, nil
}
