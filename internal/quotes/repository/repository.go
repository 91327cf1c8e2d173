package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyttbas_backend/internal/quotes/domain"
	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quoteNotFoundMsg = "quote not found"

// Repository provides database operations for quote requests.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Leg struct {
	Address    string
	PostalCode string
	Lat        *float64
	Lng        *float64
	AreaM2     *int
	Rooms      *int
	Floor      *int
	Elevator   string
}

type Quote struct {
	ID                 uuid.UUID
	CustomerID         *uuid.UUID
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	From               Leg
	To                 Leg
	MoveDate           time.Time
	MoveTimeWindow     *string
	PackingHours       float64
	AssemblyHours      float64
	HeavyItems         *string
	ParkingRestriction bool
	HomeVisitRequested bool
	Notes              *string
	Status             domain.Status
	CancelledReason    *string
	StatusChangedAt    time.Time
	ExpiresAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ListParams struct {
	Status     *domain.Status
	CustomerID *uuid.UUID
	// OpenOnly restricts to pending and offers_received.
	OpenOnly bool
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Quote
	Total int
}

const quoteColumns = `
	id, customer_id, customer_name, customer_email, customer_phone,
	from_address, from_postal_code, from_lat, from_lng, from_area_m2, from_rooms, from_floor, from_elevator,
	to_address, to_postal_code, to_lat, to_lng, to_area_m2, to_rooms, to_floor, to_elevator,
	move_date, move_time_window, packing_hours, assembly_hours, heavy_items,
	parking_restriction, home_visit_requested, notes,
	status, cancelled_reason, status_changed_at, expires_at, created_at, updated_at`

func scanQuote(row pgx.Row, lead ...any) (Quote, error) {
	var q Quote
	var status string
	dest := append(lead,
		&q.ID, &q.CustomerID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone,
		&q.From.Address, &q.From.PostalCode, &q.From.Lat, &q.From.Lng, &q.From.AreaM2, &q.From.Rooms, &q.From.Floor, &q.From.Elevator,
		&q.To.Address, &q.To.PostalCode, &q.To.Lat, &q.To.Lng, &q.To.AreaM2, &q.To.Rooms, &q.To.Floor, &q.To.Elevator,
		&q.MoveDate, &q.MoveTimeWindow, &q.PackingHours, &q.AssemblyHours, &q.HeavyItems,
		&q.ParkingRestriction, &q.HomeVisitRequested, &q.Notes,
		&status, &q.CancelledReason, &q.StatusChangedAt, &q.ExpiresAt, &q.CreatedAt, &q.UpdatedAt,
	)
	err := row.Scan(dest...)
	q.Status = domain.Status(status)
	return q, err
}

func (r *Repository) Create(ctx context.Context, q Quote) (Quote, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO quote_requests (
			id, customer_id, customer_name, customer_email, customer_phone,
			from_address, from_postal_code, from_lat, from_lng, from_area_m2, from_rooms, from_floor, from_elevator,
			to_address, to_postal_code, to_lat, to_lng, to_area_m2, to_rooms, to_floor, to_elevator,
			move_date, move_time_window, packing_hours, assembly_hours, heavy_items,
			parking_restriction, home_visit_requested, notes,
			status, status_changed_at, expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26,
			$27, $28, $29,
			$30, $31, $32, $31, $31
		)
		RETURNING`+quoteColumns,
		q.ID, q.CustomerID, q.CustomerName, q.CustomerEmail, q.CustomerPhone,
		q.From.Address, q.From.PostalCode, q.From.Lat, q.From.Lng, q.From.AreaM2, q.From.Rooms, q.From.Floor, q.From.Elevator,
		q.To.Address, q.To.PostalCode, q.To.Lat, q.To.Lng, q.To.AreaM2, q.To.Rooms, q.To.Floor, q.To.Elevator,
		q.MoveDate, q.MoveTimeWindow, q.PackingHours, q.AssemblyHours, q.HeavyItems,
		q.ParkingRestriction, q.HomeVisitRequested, q.Notes,
		string(q.Status), q.CreatedAt, q.ExpiresAt,
	)
	out, err := scanQuote(row)
	if err != nil {
		return Quote{}, fmt.Errorf("insert quote: %w", err)
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quote, error) {
	q, err := scanQuote(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT`+quoteColumns+` FROM quote_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(quoteNotFoundMsg)
	}
	if err != nil {
		return Quote{}, fmt.Errorf("get quote: %w", err)
	}
	return q, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}

	where := `
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR customer_id = $2)
		  AND (NOT $3 OR status IN ('pending', 'offers_received'))`

	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT count(*) FROM quote_requests`+where,
		status, params.CustomerID, params.OpenOnly).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count quotes: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT`+quoteColumns+` FROM quote_requests`+where+`
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		status, params.CustomerID, params.OpenOnly, params.PageSize, (params.Page-1)*params.PageSize,
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, q)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate quotes: %w", err)
	}
	return ListResult{Items: items, Total: total}, nil
}

// UpdateDetails rewrites the move description. When pristineOnly is set the
// write only succeeds while the quote is pending with no offers; a miss is
// reported as a Validation error.
func (r *Repository) UpdateDetails(ctx context.Context, q Quote, pristineOnly bool, now time.Time) (Quote, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE quote_requests SET
			customer_name = $2, customer_phone = $3,
			from_address = $4, from_postal_code = $5, from_lat = $6, from_lng = $7,
			from_area_m2 = $8, from_rooms = $9, from_floor = $10, from_elevator = $11,
			to_address = $12, to_postal_code = $13, to_lat = $14, to_lng = $15,
			to_area_m2 = $16, to_rooms = $17, to_floor = $18, to_elevator = $19,
			move_date = $20, move_time_window = $21, packing_hours = $22, assembly_hours = $23,
			heavy_items = $24, parking_restriction = $25, home_visit_requested = $26, notes = $27,
			updated_at = $28
		WHERE id = $1
		  AND (NOT $29 OR (
			status = 'pending'
			AND NOT EXISTS (SELECT 1 FROM offers o WHERE o.quote_request_id = quote_requests.id)
		  ))
		RETURNING`+quoteColumns,
		q.ID, q.CustomerName, q.CustomerPhone,
		q.From.Address, q.From.PostalCode, q.From.Lat, q.From.Lng,
		q.From.AreaM2, q.From.Rooms, q.From.Floor, q.From.Elevator,
		q.To.Address, q.To.PostalCode, q.To.Lat, q.To.Lng,
		q.To.AreaM2, q.To.Rooms, q.To.Floor, q.To.Elevator,
		q.MoveDate, q.MoveTimeWindow, q.PackingHours, q.AssemblyHours,
		q.HeavyItems, q.ParkingRestriction, q.HomeVisitRequested, q.Notes,
		now, pristineOnly,
	)
	out, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, q.ID); getErr != nil {
			return Quote{}, getErr
		}
		return Quote{}, apperr.Validation("quote can no longer be edited")
	}
	if err != nil {
		return Quote{}, fmt.Errorf("update quote: %w", err)
	}
	return out, nil
}

// TransitionStatus moves the quote to `to` only if its current status is one
// of from. It returns the previous status and the updated row. A miss yields
// NotFound or Conflict.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.Status, to domain.Status, reason *string, now time.Time) (domain.Status, Quote, error) {
	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	var previous string
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		WITH prev AS (
			SELECT id, status FROM quote_requests WHERE id = $1 FOR UPDATE
		)
		UPDATE quote_requests q SET
			status = $3,
			cancelled_reason = COALESCE($4, q.cancelled_reason),
			status_changed_at = $5,
			updated_at = $5
		FROM prev
		WHERE q.id = prev.id AND prev.status = ANY($2)
		RETURNING prev.status,`+db.Qualify("q", quoteColumns),
		id, fromStrings, string(to), reason, now,
	)

	q, err := scanQuote(row, &previous)
	if errors.Is(err, pgx.ErrNoRows) {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return "", Quote{}, getErr
		}
		return current.Status, current, apperr.Conflict(fmt.Sprintf("quote is %s", current.Status))
	}
	if err != nil {
		return "", Quote{}, fmt.Errorf("transition quote: %w", err)
	}
	return domain.Status(previous), q, nil
}

// ExpireIfOverdue is the lazy expiry write. It reports whether this call
// performed the transition, so side effects fire once.
func (r *Repository) ExpireIfOverdue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE quote_requests SET status = 'expired', status_changed_at = $2, updated_at = $2
		WHERE id = $1
		  AND status IN ('pending', 'offers_received')
		  AND expires_at IS NOT NULL AND expires_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM offers o WHERE o.quote_request_id = quote_requests.id AND o.status = 'approved'
		  )
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("expire quote: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireOverdue expires up to limit overdue quotes and returns their ids.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		UPDATE quote_requests SET status = 'expired', status_changed_at = $1, updated_at = $1
		WHERE id IN (
			SELECT q.id FROM quote_requests q
			WHERE q.status IN ('pending', 'offers_received')
			  AND q.expires_at IS NOT NULL AND q.expires_at < $1
			  AND NOT EXISTS (
				SELECT 1 FROM offers o WHERE o.quote_request_id = q.id AND o.status = 'approved'
			  )
			ORDER BY q.expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		AND status IN ('pending', 'offers_received')
		RETURNING id
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("expire overdue quotes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *Repository) HasApprovedOffer(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM offers WHERE quote_request_id = $1 AND status = 'approved')
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check approved offer: %w", err)
	}
	return exists, nil
}

// ApprovedJobStatus returns the job status of the quote's approved offer, if any.
func (r *Repository) ApprovedJobStatus(ctx context.Context, id uuid.UUID) (string, bool, error) {
	var status *string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT job_status FROM offers WHERE quote_request_id = $1 AND status = 'approved'
	`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get approved job status: %w", err)
	}
	if status == nil {
		return "", false, nil
	}
	return *status, true, nil
}

// SetStatus writes status unconditionally. Used for administrator corrections.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status domain.Status, now time.Time) (domain.Status, Quote, error) {
	return r.TransitionStatus(ctx, id, allStatusesExcept(status), status, nil, now)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)
	var blocked bool
	if err := conn.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM commission_fees f JOIN offers o ON o.id = f.offer_id WHERE o.quote_request_id = $1)
	`, id).Scan(&blocked); err != nil {
		return fmt.Errorf("check quote ledger: %w", err)
	}
	if blocked {
		return apperr.Conflict("quote has recorded commission and cannot be deleted")
	}

	tag, err := conn.Exec(ctx, `DELETE FROM quote_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(quoteNotFoundMsg)
	}
	return nil
}

func allStatusesExcept(s domain.Status) []domain.Status {
	all := []domain.Status{
		domain.StatusPending, domain.StatusOffersReceived, domain.StatusOfferApproved,
		domain.StatusCompleted, domain.StatusCancelled, domain.StatusExpired,
	}
	out := make([]domain.Status, 0, len(all)-1)
	for _, st := range all {
		if st != s {
			out = append(out, st)
		}
	}
	return out
}
