package repository

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/circulation-engine/internal/domain"
)

type reservationRepository struct {
	db *sqlx.DB
}

func NewReservationRepository(db *sqlx.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

const reservationColumns = `id, item_id, borrower_id, status, notified_at, expires_at, created_at, updated_at`

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
		INSERT INTO reservations (id, item_id, borrower_id, status, notified_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		res.ID,
		res.ItemID,
		res.BorrowerID,
		res.Status,
		res.NotifiedAt,
		res.ExpiresAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return translate(err)
}

func (r *reservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *reservationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *reservationRepository) get(ctx context.Context, query string, args ...any) (*domain.Reservation, error) {
	var res domain.Reservation
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &res, query, args...); err != nil {
		return nil, translate(err)
	}
	return &res, nil
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `
		UPDATE reservations
		SET status = $2, notified_at = $3, expires_at = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		res.ID,
		res.Status,
		res.NotifiedAt,
		res.ExpiresAt,
		res.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reservationRepository) HasActive(ctx context.Context, borrowerID, itemID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE borrower_id = $1 AND item_id = $2 AND status = 'active')`

	var exists bool
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &exists, query, borrowerID, itemID); err != nil {
		return false, translate(err)
	}
	return exists, nil
}

func (r *reservationRepository) Head(ctx context.Context, itemID int64) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE item_id = $1 AND status = 'active'
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	return r.get(ctx, query, itemID)
}

func (r *reservationRepository) FindAwaitingPickup(ctx context.Context, borrowerID, itemID int64) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE borrower_id = $1 AND item_id = $2 AND status = 'awaiting_pickup'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE
	`
	return r.get(ctx, query, borrowerID, itemID)
}

func (r *reservationRepository) CountAwaitingPickup(ctx context.Context, itemID int64) (int, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE item_id = $1 AND status = 'awaiting_pickup'`

	var count int
	if err := sqlx.GetContext(ctx, conn(ctx, r.db), &count, query, itemID); err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *reservationRepository) ListExpired(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE status = 'awaiting_pickup' AND expires_at < $1
		ORDER BY expires_at, id
	`

	reservations := []*domain.Reservation{}
	if err := sqlx.SelectContext(ctx, conn(ctx, r.db), &reservations, query, now); err != nil {
		return nil, translate(err)
	}
	return reservations, nil
}

func (r *reservationRepository) List(ctx context.Context, filter ReservationFilter) ([]*domain.Reservation, error) {
	ds := dialect.From("reservations").
		Select(goqu.L(reservationColumns)).
		Order(goqu.C("item_id").Asc(), goqu.C("created_at").Asc(), goqu.C("id").Asc())

	if filter.BorrowerID != 0 {
		ds = ds.Where(goqu.C("borrower_id").Eq(filter.BorrowerID))
	}
	if filter.OpenOnly {
		ds = ds.Where(goqu.C("status").In(
			string(domain.ReservationStatusActive),
			string(domain.ReservationStatusAwaitingPickup),
		))
	}

	reservations := []*domain.Reservation{}
	if err := selectAll(ctx, conn(ctx, r.db), &reservations, ds); err != nil {
		return nil, translate(err)
	}
	return reservations, nil
}
