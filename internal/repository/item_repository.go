package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type itemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) ItemRepository {
	return &itemRepository{db: db}
}

const itemColumns = `id, title, total_copies, active, popularity`

func (r *itemRepository) Get(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	var item domain.Item
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &item, query, id); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *itemRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	var item domain.Item
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &item, query, id); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *itemRepository) CountCheckedOut(ctx context.Context, id int64) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE item_id = $1 AND return_date IS NULL`

	var count int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &count, query, id); err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *itemRepository) IncrementPopularity(ctx context.Context, id int64) error {
	query := `UPDATE items SET popularity = popularity + 1 WHERE id = $1`

	res, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
