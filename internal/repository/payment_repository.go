package repository

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, fine_id, borrower_id, amount, method, transaction_id, status, gateway_status,
	raw_payload, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, fine_id, borrower_id, amount, method, transaction_id, status, gateway_status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		payment.ID,
		payment.FineID,
		payment.BorrowerID,
		payment.Amount,
		payment.Method,
		payment.TransactionID,
		payment.Status,
		payment.GatewayStatus,
		payment.RawPayload,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return translate(err)
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID)
}

func (r *paymentRepository) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return r.get(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1 FOR UPDATE`, transactionID)
}

func (r *paymentRepository) get(ctx context.Context, query, transactionID string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &payment, query, transactionID); err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *paymentRepository) HasPending(ctx context.Context, fineID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE fine_id = $1 AND status = $2)`

	var exists bool
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists, query, fineID, domain.PaymentStatusPending); err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, gateway_status = $3, raw_payload = $4, updated_at = $5
		WHERE id = $1
	`

	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		payment.ID,
		payment.Status,
		payment.GatewayStatus,
		payment.RawPayload,
		payment.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter PaymentFilter) ([]*domain.Payment, error) {
	ds := dialect.From("payments").
		Select(goqu.L(paymentColumns)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())

	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.C("borrower_id").Eq(filter.BorrowerID))
	}

	payments := []*domain.Payment{}
	if err := selectAll(ctx, conn(ctx, r.db), &payments, ds); err != nil {
		return nil, translate(err)
	}
	return payments, nil
}
