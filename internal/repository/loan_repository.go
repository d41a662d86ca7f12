package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `l.id, l.item_id, l.borrower_id, l.start_date, l.due_date, l.return_date,
	l.renewal_count, l.status, l.notified, l.created_at, l.updated_at`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, item_id, borrower_id, start_date, due_date, return_date, renewal_count, status, notified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		loan.ID,
		loan.ItemID,
		loan.BorrowerID,
		loan.StartDate,
		loan.DueDate,
		loan.ReturnDate,
		loan.RenewalCount,
		loan.Status,
		loan.Notified,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return translate(err)
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.id = $1`, id)
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.get(ctx, `SELECT `+loanColumns+` FROM loans l WHERE l.id = $1 FOR UPDATE`, id)
}

func (r *loanRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Loan, error) {
	var loan domain.Loan
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &loan, query, id); err != nil {
		return nil, translate(err)
	}
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET due_date = $2, return_date = $3, renewal_count = $4, status = $5, notified = $6, updated_at = $7
		WHERE id = $1
	`

	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		loan.ID,
		loan.DueDate,
		loan.ReturnDate,
		loan.RenewalCount,
		loan.Status,
		loan.Notified,
		loan.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *loanRepository) HasOpenLoan(ctx context.Context, borrowerID, itemID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM loans WHERE borrower_id = $1 AND item_id = $2 AND return_date IS NULL)`

	var exists bool
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists, query, borrowerID, itemID); err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (r *loanRepository) CountOpenByBorrower(ctx context.Context, borrowerID int64) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE borrower_id = $1 AND return_date IS NULL`

	var count int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &count, query, borrowerID); err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *loanRepository) List(ctx context.Context, filter LoanFilter) ([]*domain.Loan, error) {
	ds := dialect.From(goqu.T("loans").As("l")).
		Select(goqu.L(loanColumns)).
		Order(goqu.I("l.created_at").Desc(), goqu.I("l.id").Asc())

	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.I("l.borrower_id").Eq(filter.BorrowerID))
	}
	if filter.OpenOnly {
		ds = ds.Where(goqu.I("l.return_date").IsNull())
	}
	if !filter.DueBefore.IsZero() {
		ds = ds.Where(goqu.I("l.due_date").Lt(filter.DueBefore))
	}

	loans := []*domain.Loan{}
	if err := selectAll(ctx, conn(ctx, r.db), &loans, ds); err != nil {
		return nil, translate(err)
	}
	return loans, nil
}

func (r *loanRepository) ListUnfinedOverdue(ctx context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans l
		WHERE l.return_date IS NULL
		  AND l.due_date < $1
		  AND NOT EXISTS (SELECT 1 FROM fines f WHERE f.loan_id = l.id AND f.status = 'pending')
		ORDER BY l.due_date, l.id
	`

	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &loans, query, cutoff); err != nil {
		return nil, translate(err)
	}
	return loans, nil
}

const noticeColumns = loanColumns + `,
	u.name AS borrower_name, u.email AS borrower_email, i.title AS item_title`

func (r *loanRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*domain.LoanNotice, error) {
	query := `
		SELECT ` + noticeColumns + `, 0::numeric AS pending_fines
		FROM loans l
		JOIN users u ON u.id = l.borrower_id
		JOIN items i ON i.id = l.item_id
		WHERE l.return_date IS NULL
		  AND l.notified = FALSE
		  AND l.due_date BETWEEN $1 AND $2
		ORDER BY l.due_date, l.id
	`

	notices := []*domain.LoanNotice{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &notices, query, from, to); err != nil {
		return nil, translate(err)
	}
	return notices, nil
}

func (r *loanRepository) ListOverdueNotices(ctx context.Context, cutoff time.Time) ([]*domain.LoanNotice, error) {
	query := `
		SELECT ` + noticeColumns + `,
			COALESCE((SELECT SUM(f.amount) FROM fines f WHERE f.loan_id = l.id AND f.status = 'pending'), 0) AS pending_fines
		FROM loans l
		JOIN users u ON u.id = l.borrower_id
		JOIN items i ON i.id = l.item_id
		WHERE l.return_date IS NULL
		  AND l.notified = FALSE
		  AND l.due_date < $1
		ORDER BY l.due_date, l.id
	`

	notices := []*domain.LoanNotice{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &notices, query, cutoff); err != nil {
		return nil, translate(err)
	}
	return notices, nil
}

func (r *loanRepository) MarkNotified(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE loans SET notified = TRUE, updated_at = now() WHERE id = $1`

	_, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	return translate(err)
}
