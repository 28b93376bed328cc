package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/hostel-residence/internal/model"
	"github.com/iliyamo/hostel-residence/internal/policy"
)

// PaymentRepo persists payments. Provider fields are stored as received.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = "id, user_id, amount, currency, payment_type, provider, provider_order_id, provider_payment_id, provider_signature, status, due_date, paid_date, description, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (model.Payment, error) {
	var (
		p         model.Payment
		due, paid sql.NullTime
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.PaymentType, &p.Provider, &p.ProviderOrderID,
		&p.ProviderPaymentID, &p.ProviderSignature, &p.Status, &due, &paid, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	p.DueDate = nullTime(due)
	p.PaidDate = nullTime(paid)
	return p, err
}

// Create inserts a pending payment.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (user_id, amount, currency, payment_type, provider, provider_order_id, status, due_date, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Amount, p.Currency, p.PaymentType, p.Provider, p.ProviderOrderID, model.PaymentPending, p.DueDate, p.Description)
	if err != nil {
		if mysqlCode(err) == mysqlNoReferencedRow {
			return ErrNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, policy.All, uint64(id))
	if err != nil {
		return err
	}
	*p = got
	return nil
}

// Get returns a payment visible under scope.
func (r *PaymentRepo) Get(ctx context.Context, scope policy.Predicate, id uint64) (model.Payment, error) {
	w := &where{}
	w.add("id = ?", id)
	w.scope(scope)
	p, err := scanPayment(r.db.QueryRowContext(ctx, "SELECT "+paymentCols+" FROM payments"+w.String(), w.args...))
	return p, notFound(err)
}

// PaymentFilter narrows List.
type PaymentFilter struct {
	Status      string
	PaymentType string
	UserID      uint64
}

// List returns payments under scope, newest first.
func (r *PaymentRepo) List(ctx context.Context, scope policy.Predicate, f PaymentFilter, p Page) ([]model.Payment, error) {
	w := &where{}
	w.scope(scope)
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if f.PaymentType != "" {
		w.add("payment_type = ?", f.PaymentType)
	}
	if f.UserID != 0 {
		w.add("user_id = ?", f.UserID)
	}
	limit, offset := p.limitOffset()
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+paymentCols+" FROM payments"+w.String()+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(w.args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		pm, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

// StatusUpdate carries a status change and the opaque provider fields
// reported with it.
type StatusUpdate struct {
	Status            string
	ProviderPaymentID string
	ProviderSignature string
}

// SetStatus applies u. Moving to success stamps paid_date; refunded is only
// reachable from success.
func (r *PaymentRepo) SetStatus(ctx context.Context, id uint64, u StatusUpdate, now time.Time) (model.Payment, error) {
	cur, err := r.Get(ctx, policy.All, id)
	if err != nil {
		return model.Payment{}, err
	}
	if u.Status == model.PaymentRefunded && cur.Status != model.PaymentSuccess {
		return model.Payment{}, ErrConflict
	}
	var paid any
	if u.Status == model.PaymentSuccess {
		paid = now
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE payments
		    SET status = ?,
		        paid_date = COALESCE(?, paid_date),
		        provider_payment_id = COALESCE(NULLIF(?, ''), provider_payment_id),
		        provider_signature = COALESCE(NULLIF(?, ''), provider_signature)
		  WHERE id = ?`,
		u.Status, paid, u.ProviderPaymentID, u.ProviderSignature, id)
	if err != nil {
		return model.Payment{}, err
	}
	return r.Get(ctx, policy.All, id)
}

// Stats aggregates payments under scope. MonthlyRevenue sums successful
// payments paid in the month containing now.
func (r *PaymentRepo) Stats(ctx context.Context, scope policy.Predicate, now time.Time) (model.PaymentStats, error) {
	w := &where{}
	w.scope(scope)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := monthStart.AddDate(0, 1, 0)

	var st model.PaymentStats
	var pendingAmt, collected, monthly decimal.NullDecimal
	args := append([]any{monthStart, next}, w.args...)
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status = 'pending'), 0),
		        COALESCE(SUM(status = 'success'), 0),
		        COALESCE(SUM(status = 'failed'), 0),
		        COALESCE(SUM(status = 'refunded'), 0),
		        SUM(CASE WHEN status = 'pending' THEN amount END),
		        SUM(CASE WHEN status = 'success' THEN amount END),
		        SUM(CASE WHEN status = 'success' AND paid_date >= ? AND paid_date < ? THEN amount END)
		   FROM payments`+w.String(), args...).
		Scan(&st.TotalCount, &st.PendingCount, &st.SuccessCount, &st.FailedCount, &st.RefundedCount,
			&pendingAmt, &collected, &monthly)
	if err != nil {
		return st, err
	}
	st.PendingAmount = pendingAmt.Decimal
	st.CollectedTotal = collected.Decimal
	st.MonthlyRevenue = monthly.Decimal
	return st, nil
}
