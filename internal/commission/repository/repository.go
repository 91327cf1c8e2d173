package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const feeNotFoundMsg = "commission fee not found"

const (
	SettingDefaultRate = "commission_default_rate"
	SettingDefaultType = "commission_default_type"
)

// Repository provides database operations for commission settings and the fee ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new commission repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Fee struct {
	ID                 uuid.UUID
	OfferID            uuid.UUID
	PartnerID          uuid.UUID
	OrderValue         int64
	FeeAmount          int64
	FeePercentage      decimal.NullDecimal
	InvoiceNumber      *string
	InvoiceGeneratedAt *time.Time
	InvoicePaidAt      *time.Time
	CreditNoteNumber   *string
	CreditNoteAmount   *int64
	CreditNoteReason   *string
	CreditedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ListParams struct {
	PartnerID *uuid.UUID
	// State is one of uninvoiced, invoiced, paid, credited or empty for all.
	State    string
	Page     int
	PageSize int
}

type ListResult struct {
	Items []Fee
	Total int
}

type Summary struct {
	FeeCount      int
	TotalFees     int64
	TotalInvoiced int64
	TotalPaid     int64
	TotalCredited int64
}

const feeColumns = `
	id, offer_id, partner_id, order_value, fee_amount, fee_percentage,
	invoice_number, invoice_generated_at, invoice_paid_at,
	credit_note_number, credit_note_amount, credit_note_reason, credited_at,
	created_at, updated_at`

func scanFee(row pgx.Row) (Fee, error) {
	var f Fee
	err := row.Scan(
		&f.ID, &f.OfferID, &f.PartnerID, &f.OrderValue, &f.FeeAmount, &f.FeePercentage,
		&f.InvoiceNumber, &f.InvoiceGeneratedAt, &f.InvoicePaidAt,
		&f.CreditNoteNumber, &f.CreditNoteAmount, &f.CreditNoteReason, &f.CreditedAt,
		&f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

// GetSetting returns a system setting value and whether it exists.
func (r *Repository) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// UpsertSetting writes a system setting.
func (r *Repository) UpsertSetting(ctx context.Context, key, value string, updatedBy uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO system_settings (key, value, updated_by, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = now()
	`, key, value, updatedBy)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// InsertFee records a ledger line. A second fee for the same offer is a conflict.
func (r *Repository) InsertFee(ctx context.Context, fee Fee) (Fee, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO commission_fees (id, offer_id, partner_id, order_value, fee_amount, fee_percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING`+feeColumns,
		fee.ID, fee.OfferID, fee.PartnerID, fee.OrderValue, fee.FeeAmount, fee.FeePercentage,
	)
	out, err := scanFee(row)
	if db.IsUniqueViolation(err, "commission_fees_offer_key") {
		return Fee{}, apperr.Conflict("commission fee already recorded for offer")
	}
	if err != nil {
		return Fee{}, fmt.Errorf("insert commission fee: %w", err)
	}
	return out, nil
}

func (r *Repository) GetFee(ctx context.Context, id uuid.UUID) (Fee, error) {
	fee, err := scanFee(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT`+feeColumns+` FROM commission_fees WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, apperr.NotFound(feeNotFoundMsg)
	}
	if err != nil {
		return Fee{}, fmt.Errorf("get commission fee: %w", err)
	}
	return fee, nil
}

func (r *Repository) GetFeeByOffer(ctx context.Context, offerID uuid.UUID) (Fee, error) {
	fee, err := scanFee(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT`+feeColumns+` FROM commission_fees WHERE offer_id = $1`, offerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, apperr.NotFound(feeNotFoundMsg)
	}
	if err != nil {
		return Fee{}, fmt.Errorf("get commission fee by offer: %w", err)
	}
	return fee, nil
}

func (r *Repository) ListFees(ctx context.Context, params ListParams) (ListResult, error) {
	stateFilter := `
		AND (
			$2 = ''
			OR ($2 = 'uninvoiced' AND invoice_number IS NULL)
			OR ($2 = 'invoiced' AND invoice_number IS NOT NULL AND invoice_paid_at IS NULL)
			OR ($2 = 'paid' AND invoice_paid_at IS NOT NULL)
			OR ($2 = 'credited' AND credited_at IS NOT NULL)
		)`

	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `
		SELECT count(*) FROM commission_fees
		WHERE ($1::uuid IS NULL OR partner_id = $1)`+stateFilter,
		params.PartnerID, params.State,
	).Scan(&total); err != nil {
		return ListResult{}, fmt.Errorf("count commission fees: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	rows, err := conn.Query(ctx, `
		SELECT`+feeColumns+` FROM commission_fees
		WHERE ($1::uuid IS NULL OR partner_id = $1)`+stateFilter+`
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		params.PartnerID, params.State, params.PageSize, offset,
	)
	if err != nil {
		return ListResult{}, fmt.Errorf("list commission fees: %w", err)
	}
	defer rows.Close()

	items := make([]Fee, 0)
	for rows.Next() {
		fee, err := scanFee(rows)
		if err != nil {
			return ListResult{}, fmt.Errorf("scan commission fee: %w", err)
		}
		items = append(items, fee)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, fmt.Errorf("iterate commission fees: %w", err)
	}
	return ListResult{Items: items, Total: total}, nil
}

// MarkInvoiced assigns the next invoice number. Returns Conflict when already invoiced.
func (r *Repository) MarkInvoiced(ctx context.Context, id uuid.UUID, now time.Time) (Fee, error) {
	prefix := fmt.Sprintf("FB-%d-", now.Year())
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE commission_fees
		SET invoice_number = $2 || lpad(nextval('commission_invoice_seq')::text, 6, '0'),
			invoice_generated_at = $3,
			updated_at = $3
		WHERE id = $1 AND invoice_number IS NULL
		RETURNING`+feeColumns,
		id, prefix, now,
	)
	fee, err := scanFee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, r.explainMiss(ctx, id, func(Fee) error {
			return apperr.Conflict("commission fee already invoiced")
		})
	}
	if err != nil {
		return Fee{}, fmt.Errorf("mark commission fee invoiced: %w", err)
	}
	return fee, nil
}

// MarkPaid stamps invoice_paid_at on an invoiced, unpaid fee.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, now time.Time) (Fee, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE commission_fees
		SET invoice_paid_at = $2, updated_at = $2
		WHERE id = $1 AND invoice_number IS NOT NULL AND invoice_paid_at IS NULL
		RETURNING`+feeColumns,
		id, now,
	)
	fee, err := scanFee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, r.explainMiss(ctx, id, func(f Fee) error {
			if f.InvoiceNumber == nil {
				return apperr.Validation("commission fee has not been invoiced")
			}
			return apperr.Conflict("commission fee already paid")
		})
	}
	if err != nil {
		return Fee{}, fmt.Errorf("mark commission fee paid: %w", err)
	}
	return fee, nil
}

// IssueCreditNote records a single credit note not exceeding the fee amount.
func (r *Repository) IssueCreditNote(ctx context.Context, id uuid.UUID, amount int64, reason string, now time.Time) (Fee, error) {
	prefix := fmt.Sprintf("KN-%d-", now.Year())
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE commission_fees
		SET credit_note_number = $2 || lpad(nextval('commission_credit_note_seq')::text, 6, '0'),
			credit_note_amount = $3,
			credit_note_reason = $4,
			credited_at = $5,
			updated_at = $5
		WHERE id = $1 AND credited_at IS NULL AND fee_amount >= $3
		RETURNING`+feeColumns,
		id, prefix, amount, reason, now,
	)
	fee, err := scanFee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Fee{}, r.explainMiss(ctx, id, func(f Fee) error {
			if f.CreditedAt == nil {
				return apperr.Validation("credit note amount exceeds fee amount")
			}
			return apperr.Conflict("credit note already issued")
		})
	}
	if err != nil {
		return Fee{}, fmt.Errorf("issue credit note: %w", err)
	}
	return fee, nil
}

func (r *Repository) PartnerSummary(ctx context.Context, partnerID uuid.UUID) (Summary, error) {
	var s Summary
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			count(*),
			COALESCE(sum(fee_amount), 0),
			COALESCE(sum(fee_amount) FILTER (WHERE invoice_number IS NOT NULL), 0),
			COALESCE(sum(fee_amount) FILTER (WHERE invoice_paid_at IS NOT NULL), 0),
			COALESCE(sum(credit_note_amount), 0)
		FROM commission_fees
		WHERE partner_id = $1
	`, partnerID).Scan(&s.FeeCount, &s.TotalFees, &s.TotalInvoiced, &s.TotalPaid, &s.TotalCredited)
	if err != nil {
		return Summary{}, fmt.Errorf("commission summary: %w", err)
	}
	return s, nil
}

// explainMiss turns a zero-row conditional update into NotFound or the
// error classify derives from the current row.
func (r *Repository) explainMiss(ctx context.Context, id uuid.UUID, classify func(Fee) error) error {
	fee, err := r.GetFee(ctx, id)
	if err != nil {
		return err
	}
	return classify(fee)
}
