package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.Borrower, error) {
	query := `SELECT id, name, email, role FROM users WHERE id = $1`

	var user domain.Borrower
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &user, query, id); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// cascadeStatements run in dependency order so no foreign key is left dangling.
var cascadeStatements = []struct {
	table string
	query string
}{
	{"payments", `DELETE FROM payments WHERE borrower_id = $1`},
	{"fines", `DELETE FROM fines WHERE borrower_id = $1`},
	{"reservations", `DELETE FROM reservations WHERE borrower_id = $1`},
	{"loans", `DELETE FROM loans WHERE borrower_id = $1`},
}

func (r *userRepository) DeleteCascade(ctx context.Context, id int64) error {
	q := conn(ctx, r.db)

	for _, stmt := range cascadeStatements {
		if _, err := q.ExecContext(ctx, stmt.query, id); err != nil {
			return fmt.Errorf("delete %s: %w", stmt.table, translate(err))
		}
	}

	res, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translate(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
