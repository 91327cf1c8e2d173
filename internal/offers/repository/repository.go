package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyttbas_backend/internal/offers/domain"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const offerNotFoundMsg = "offer not found"

// Repository provides database operations for offers and their jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new offers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Offer struct {
	ID                 uuid.UUID
	QuoteID            uuid.UUID
	PartnerID          uuid.UUID
	CompanyName        string
	CreatedBy          *uuid.UUID
	AvailableDate      time.Time
	TimeWindow         *string
	EstimatedHours     decimal.Decimal
	TeamSize           int
	ApplyRUT           bool
	PriceBeforeRUT     int64
	RUTDeduction       int64
	TotalPrice         int64
	Terms              *string
	ValidUntil         time.Time
	DistanceKm         decimal.NullDecimal
	DriveTimeMinutes   *int
	RankingScore       float64
	Status             domain.Status
	RejectionReason    *string
	ApprovedAt         *time.Time
	RejectedAt         *time.Time
	WithdrawnAt        *time.Time
	JobStatus          *domain.JobStatus
	JobStatusUpdatedAt *time.Time
	JobNotes           *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ListParams struct {
	PartnerID *uuid.UUID
	Status    *domain.Status
	Page      int
	PageSize  int
}

type ListResult struct {
	Items []Offer
	Total int
}

// offerColumns reads from the alias o and joins the partner's company name.
const offerColumns = `
	o.id, o.quote_request_id, o.partner_id,
	(SELECT p.company_name FROM partners p WHERE p.id = o.partner_id),
	o.created_by, o.available_date, o.time_window, o.estimated_hours, o.team_size,
	o.apply_rut, o.price_before_rut, o.rut_deduction, o.total_price, o.terms, o.valid_until,
	o.distance_km, o.drive_time_minutes, o.ranking_score, o.status, o.rejection_reason,
	o.approved_at, o.rejected_at, o.withdrawn_at,
	o.job_status, o.job_status_updated_at, o.job_notes, o.created_at, o.updated_at`

func scanOffer(row pgx.Row, lead ...any) (Offer, error) {
	var o Offer
	var status string
	var jobStatus *string
	dest := append(lead,
		&o.ID, &o.QuoteID, &o.PartnerID,
		&o.CompanyName,
		&o.CreatedBy, &o.AvailableDate, &o.TimeWindow, &o.EstimatedHours, &o.TeamSize,
		&o.ApplyRUT, &o.PriceBeforeRUT, &o.RUTDeduction, &o.TotalPrice, &o.Terms, &o.ValidUntil,
		&o.DistanceKm, &o.DriveTimeMinutes, &o.RankingScore, &status, &o.RejectionReason,
		&o.ApprovedAt, &o.RejectedAt, &o.WithdrawnAt,
		&jobStatus, &o.JobStatusUpdatedAt, &o.JobNotes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return Offer{}, err
	}
	o.Status = domain.Status(status)
	if jobStatus != nil {
		js := domain.JobStatus(*jobStatus)
		o.JobStatus = &js
	}
	return o, nil
}

func collectOffers(rows pgx.Rows) ([]Offer, error) {
	defer rows.Close()
	items := make([]Offer, 0)
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		items = append(items, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return items, nil
}

// Create inserts a pending offer. A second non-withdrawn offer from the same
// partner on the same quote is a Conflict.
func (r *Repository) Create(ctx context.Context, o Offer) (Offer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO offers AS o (
			id, quote_request_id, partner_id, created_by, available_date, time_window,
			estimated_hours, team_size, apply_rut, price_before_rut, rut_deduction, total_price,
			terms, valid_until, distance_km, drive_time_minutes, ranking_score, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, 'pending',
			$18, $18
		)
		RETURNING`+offerColumns,
		o.ID, o.QuoteID, o.PartnerID, o.CreatedBy, o.AvailableDate, o.TimeWindow,
		o.EstimatedHours, o.TeamSize, o.ApplyRUT, o.PriceBeforeRUT, o.RUTDeduction, o.TotalPrice,
		o.Terms, o.ValidUntil, o.DistanceKm, o.DriveTimeMinutes, o.RankingScore,
		o.CreatedAt,
	)
	out, err := scanOffer(row)
	if db.IsUniqueViolation(err, "offers_active_partner_key") {
		return Offer{}, apperr.Conflict("partner already has an offer on this quote")
	}
	if err != nil {
		return Offer{}, fmt.Errorf("insert offer: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Offer, error) {
	o, err := scanOffer(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT`+offerColumns+` FROM offers o WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, apperr.NotFound(offerNotFoundMsg)
	}
	if err != nil {
		return Offer{}, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

// ListByQuote returns every offer on a quote, best ranked first.
func (r *Repository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]Offer, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT`+offerColumns+` FROM offers o
		WHERE o.quote_request_id = $1
		ORDER BY o.ranking_score DESC, o.created_at`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list offers by quote: %w", err)
	}
	return collectOffers(rows)
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `
		SELECT count(*) FROM offers o
		WHERE ($1::uuid IS NULL OR o.partner_id = $1) AND ($2::text IS NULL OR o.status = $2)`,
		params.PartnerID, status,
	).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count offers: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT`+offerColumns+` FROM offers o
		WHERE ($1::uuid IS NULL OR o.partner_id = $1) AND ($2::text IS NULL OR o.status = $2)
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4`,
		params.PartnerID, status, params.PageSize, (params.Page-1)*params.PageSize,
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("list offers: %w", err)
	}
	items, err := collectOffers(rows)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Approve moves a pending, unexpired offer to approved and opens its job at
// confirmed. The write only succeeds while no sibling offer is approved; the
// partial unique index on approved offers backs it up.
func (r *Repository) Approve(ctx context.Context, id uuid.UUID, now time.Time) (Offer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE offers o SET
			status = 'approved', approved_at = $2,
			job_status = 'confirmed', job_status_updated_at = $2, updated_at = $2
		WHERE o.id = $1
		  AND o.status = 'pending'
		  AND o.valid_until >= $2
		  AND NOT EXISTS (
			SELECT 1 FROM offers a
			WHERE a.quote_request_id = o.quote_request_id AND a.status = 'approved'
		  )
		RETURNING`+offerColumns, id, now)
	out, err := scanOffer(row)
	if db.IsUniqueViolation(err, "offers_single_approval_key") {
		return Offer{}, apperr.Conflict("another offer on this quote is already approved")
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, r.explainMiss(ctx, id, func(current Offer) error {
			switch {
			case current.Status == domain.StatusApproved:
				return apperr.Conflict("offer is already approved")
			case current.Status != domain.StatusPending:
				return apperr.Conflict("offer is " + string(current.Status))
			case current.ValidUntil.Before(now):
				return apperr.Validation("offer has expired")
			default:
				return apperr.Conflict("another offer on this quote is already approved")
			}
		})
	}
	if err != nil {
		return Offer{}, fmt.Errorf("approve offer: %w", err)
	}
	return out, nil
}

// Close moves a pending offer to rejected or withdrawn.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, to domain.Status, reason *string, now time.Time) (Offer, error) {
	var stamp string
	switch to {
	case domain.StatusRejected:
		stamp = "rejected_at"
	case domain.StatusWithdrawn:
		stamp = "withdrawn_at"
	default:
		return Offer{}, apperr.Validationf("offer cannot be closed as %s", to)
	}

	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE offers o SET
			status = $2, `+stamp+` = $3, rejection_reason = COALESCE($4, o.rejection_reason), updated_at = $3
		WHERE o.id = $1 AND o.status = 'pending'
		RETURNING`+offerColumns, id, string(to), now, reason)
	out, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, r.explainMiss(ctx, id, func(current Offer) error {
			return apperr.Conflict("offer is " + string(current.Status))
		})
	}
	if err != nil {
		return Offer{}, fmt.Errorf("close offer: %w", err)
	}
	return out, nil
}

// ExpireIfOverdue expires a single pending offer whose validity has passed.
func (r *Repository) ExpireIfOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE offers SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status = 'pending' AND valid_until < $2
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("expire offer: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireOverdue expires up to limit overdue pending offers and returns their ids.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		UPDATE offers SET status = 'expired', updated_at = $1
		WHERE id IN (
			SELECT id FROM offers
			WHERE status = 'pending' AND valid_until < $1
			ORDER BY valid_until
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		AND status = 'pending'
		RETURNING id`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("expire overdue offers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect expired offers: %w", err)
	}
	return ids, nil
}

// UpdateJobStatus moves an approved offer's job from → to. A job that moved
// in the meantime is a Conflict. Nil notes keep the existing notes.
func (r *Repository) UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to domain.JobStatus, notes *string, now time.Time) (Offer, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE offers o SET
			job_status = $3, job_status_updated_at = $4,
			job_notes = COALESCE($5, o.job_notes), updated_at = $4
		WHERE o.id = $1 AND o.status = 'approved' AND o.job_status = $2
		RETURNING`+offerColumns, id, string(from), string(to), now, notes)
	out, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, r.explainMiss(ctx, id, func(current Offer) error {
			if current.Status != domain.StatusApproved {
				return apperr.Validation("offer is not approved")
			}
			return apperr.Conflict("job status changed concurrently")
		})
	}
	if err != nil {
		return Offer{}, fmt.Errorf("update job status: %w", err)
	}
	return out, nil
}

// ActivePartnerIDs returns partners holding a non-withdrawn offer on the quote.
func (r *Repository) ActivePartnerIDs(ctx context.Context, quoteID uuid.UUID) (map[uuid.UUID]bool, error) {
	return r.idSet(ctx, `SELECT partner_id FROM offers WHERE quote_request_id = $1 AND status <> 'withdrawn'`, quoteID)
}

// ActiveQuoteIDs returns quotes on which the partner holds a non-withdrawn offer.
func (r *Repository) ActiveQuoteIDs(ctx context.Context, partnerID uuid.UUID) (map[uuid.UUID]bool, error) {
	return r.idSet(ctx, `SELECT quote_request_id FROM offers WHERE partner_id = $1 AND status <> 'withdrawn'`, partnerID)
}

func (r *Repository) idSet(ctx context.Context, query string, arg uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query offer ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect offer ids: %w", err)
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// explainMiss classifies a conditional update that matched no row.
func (r *Repository) explainMiss(ctx context.Context, id uuid.UUID, classify func(Offer) error) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return classify(current)
}
