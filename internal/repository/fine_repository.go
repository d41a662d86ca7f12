package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type fineRepository struct {
	db *sqlx.DB
}

func NewFineRepository(db *sqlx.DB) FineRepository {
	return &fineRepository{db: db}
}

const fineColumns = `id, borrower_id, loan_id, amount, days_late, description, status, created_at, paid_at`

func (r *fineRepository) Create(ctx context.Context, fine *domain.Fine) error {
	query := `
		INSERT INTO fines (id, borrower_id, loan_id, amount, days_late, description, status, created_at, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		fine.ID,
		fine.BorrowerID,
		fine.LoanID,
		fine.Amount,
		fine.DaysLate,
		fine.Description,
		fine.Status,
		fine.CreatedAt,
		fine.PaidAt,
	)
	return translate(err)
}

func (r *fineRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return r.get(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1`, id)
}

func (r *fineRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return r.get(ctx, `SELECT `+fineColumns+` FROM fines WHERE id = $1 FOR UPDATE`, id)
}

func (r *fineRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Fine, error) {
	var fine domain.Fine
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &fine, query, id); err != nil {
		return nil, translate(err)
	}
	return &fine, nil
}

func (r *fineRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	query := `UPDATE fines SET status = 'paid', paid_at = $2 WHERE id = $1 AND status = 'pending'`

	res, err := conn(ctx, r.db).ExecContext(ctx, query, id, paidAt)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *fineRepository) List(ctx context.Context, filter FineFilter) ([]*domain.Fine, error) {
	ds := dialect.From("fines").
		Select(goqu.L(fineColumns)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())

	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.C("borrower_id").Eq(filter.BorrowerID))
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}

	fines := []*domain.Fine{}
	if err := selectAll(ctx, conn(ctx, r.db), &fines, ds); err != nil {
		return nil, translate(err)
	}
	return fines, nil
}

func (r *fineRepository) SumPending(ctx context.Context, borrowerID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM fines WHERE borrower_id = $1 AND status = 'pending'`

	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &total, query, borrowerID); err != nil {
		return decimal.Zero, translate(err)
	}
	return total, nil
}
