package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
)

type itemRepo struct{ s *Store }

func (r itemRepo) Get(_ context.Context, id int64) (*domain.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(item), nil
}

func (r itemRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return r.Get(ctx, id)
}

func (r itemRepo) CountCheckedOut(_ context.Context, id int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.loans {
		if l.ItemID == id && l.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (r itemRepo) IncrementPopularity(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	item.Popularity++
	return nil
}

type loanRepo struct{ s *Store }

func (r loanRepo) Create(_ context.Context, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.loans[loan.ID]; ok {
		return repository.ErrConflict
	}
	for _, l := range r.s.loans {
		if l.IsOpen() && l.BorrowerID == loan.BorrowerID && l.ItemID == loan.ItemID {
			return repository.ErrConflict
		}
	}
	r.s.loans[loan.ID] = clone(loan)
	return nil
}

func (r loanRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.loans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(l), nil
}

func (r loanRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r loanRepo) Update(_ context.Context, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.loans[loan.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.loans[loan.ID] = clone(loan)
	return nil
}

func (r loanRepo) HasOpenLoan(_ context.Context, borrowerID, itemID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.loans {
		if l.IsOpen() && l.BorrowerID == borrowerID && l.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (r loanRepo) CountOpenByBorrower(_ context.Context, borrowerID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, l := range r.s.loans {
		if l.IsOpen() && l.BorrowerID == borrowerID {
			n++
		}
	}
	return n, nil
}

func (r loanRepo) List(_ context.Context, filter repository.LoanFilter) ([]*domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Loan{}
	for _, l := range r.s.loans {
		if filter.BorrowerID != 0 && l.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.OpenOnly && !l.IsOpen() {
			continue
		}
		if !filter.DueBefore.IsZero() && !l.DueDate.Before(filter.DueBefore) {
			continue
		}
		out = append(out, clone(l))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r loanRepo) hasPendingFine(loanID uuid.UUID) bool {
	for _, f := range r.s.fines {
		if f.LoanID == loanID && f.Status == domain.FineStatusPending {
			return true
		}
	}
	return false
}

func (r loanRepo) pendingFor(loanID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, f := range r.s.fines {
		if f.LoanID == loanID && f.Status == domain.FineStatusPending {
			total = total.Add(f.Amount)
		}
	}
	return total
}

func (r loanRepo) ListUnfinedOverdue(_ context.Context, cutoff time.Time) ([]*domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Loan{}
	for _, l := range r.s.loans {
		if l.IsOpen() && l.DueDate.Before(cutoff) && !r.hasPendingFine(l.ID) {
			out = append(out, clone(l))
		}
	}
	sortByDue(out)
	return out, nil
}

func (r loanRepo) notice(l *domain.Loan) *domain.LoanNotice {
	n := &domain.LoanNotice{Loan: *l}
	if u, ok := r.s.users[l.BorrowerID]; ok {
		n.BorrowerName = u.Name
		n.BorrowerEmail = u.Email
	}
	if i, ok := r.s.items[l.ItemID]; ok {
		n.ItemTitle = i.Title
	}
	return n
}

func (r loanRepo) ListDueBetween(_ context.Context, from, to time.Time) ([]*domain.LoanNotice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var loans []*domain.Loan
	for _, l := range r.s.loans {
		if l.IsOpen() && !l.Notified && !l.DueDate.Before(from) && !l.DueDate.After(to) {
			loans = append(loans, l)
		}
	}
	sortByDue(loans)
	out := []*domain.LoanNotice{}
	for _, l := range loans {
		out = append(out, r.notice(l))
	}
	return out, nil
}

func (r loanRepo) ListOverdueNotices(_ context.Context, cutoff time.Time) ([]*domain.LoanNotice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var loans []*domain.Loan
	for _, l := range r.s.loans {
		if l.IsOpen() && !l.Notified && l.DueDate.Before(cutoff) {
			loans = append(loans, l)
		}
	}
	sortByDue(loans)
	out := []*domain.LoanNotice{}
	for _, l := range loans {
		n := r.notice(l)
		n.PendingFines = r.pendingFor(l.ID)
		out = append(out, n)
	}
	return out, nil
}

func (r loanRepo) MarkNotified(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.loans[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Notified = true
	return nil
}

func sortByDue(loans []*domain.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].DueDate.Equal(loans[j].DueDate) {
			return loans[i].DueDate.Before(loans[j].DueDate)
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) Create(_ context.Context, res *domain.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[res.ID]; ok {
		return repository.ErrConflict
	}
	if res.Status == domain.ReservationStatusActive {
		for _, other := range r.s.reservations {
			if other.Status == domain.ReservationStatusActive && other.BorrowerID == res.BorrowerID && other.ItemID == res.ItemID {
				return repository.ErrConflict
			}
		}
	}
	r.s.reservations[res.ID] = clone(res)
	return nil
}

func (r reservationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(res), nil
}

func (r reservationRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r reservationRepo) Update(_ context.Context, res *domain.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reservations[res.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.reservations[res.ID] = clone(res)
	return nil
}

func (r reservationRepo) HasActive(_ context.Context, borrowerID, itemID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range r.s.reservations {
		if res.Status == domain.ReservationStatusActive && res.BorrowerID == borrowerID && res.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (r reservationRepo) Head(_ context.Context, itemID int64) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var head *domain.Reservation
	for _, res := range r.s.reservations {
		if res.ItemID != itemID || res.Status != domain.ReservationStatusActive {
			continue
		}
		if head == nil || queuedBefore(res, head) {
			head = res
		}
	}
	if head == nil {
		return nil, repository.ErrNotFound
	}
	return clone(head), nil
}

func (r reservationRepo) FindAwaitingPickup(_ context.Context, borrowerID, itemID int64) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range r.s.reservations {
		if res.Status == domain.ReservationStatusAwaitingPickup && res.BorrowerID == borrowerID && res.ItemID == itemID {
			return clone(res), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r reservationRepo) CountAwaitingPickup(_ context.Context, itemID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, res := range r.s.reservations {
		if res.ItemID == itemID && res.Status == domain.ReservationStatusAwaitingPickup {
			n++
		}
	}
	return n, nil
}

func (r reservationRepo) ListExpired(_ context.Context, now time.Time) ([]*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Reservation{}
	for _, res := range r.s.reservations {
		if res.PickupExpired(now) {
			out = append(out, clone(res))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(*out[j].ExpiresAt) })
	return out, nil
}

func (r reservationRepo) List(_ context.Context, filter repository.ReservationFilter) ([]*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Reservation{}
	for _, res := range r.s.reservations {
		if filter.BorrowerID != 0 && res.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.OpenOnly && !res.IsOpen() {
			continue
		}
		out = append(out, clone(res))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID < out[j].ItemID
		}
		return queuedBefore(out[i], out[j])
	})
	return out, nil
}

func queuedBefore(a, b *domain.Reservation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

type fineRepo struct{ s *Store }

func (r fineRepo) Create(_ context.Context, fine *domain.Fine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if fine.Status == domain.FineStatusPending {
		for _, f := range r.s.fines {
			if f.LoanID == fine.LoanID && f.Status == domain.FineStatusPending {
				return repository.ErrConflict
			}
		}
	}
	r.s.fines[fine.ID] = clone(fine)
	return nil
}

func (r fineRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Fine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(f), nil
}

func (r fineRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Fine, error) {
	return r.GetByID(ctx, id)
}

func (r fineRepo) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.fines[id]
	if !ok || f.Status != domain.FineStatusPending {
		return repository.ErrNotFound
	}
	f.Status = domain.FineStatusPaid
	f.PaidAt = &paidAt
	return nil
}

func (r fineRepo) List(_ context.Context, filter repository.FineFilter) ([]*domain.Fine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Fine{}
	for _, f := range r.s.fines {
		if filter.BorrowerID != 0 && f.BorrowerID != filter.BorrowerID {
			continue
		}
		if filter.Status != "" && f.Status != filter.Status {
			continue
		}
		out = append(out, clone(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r fineRepo) SumPending(_ context.Context, borrowerID int64) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	total := decimal.Zero
	for _, f := range r.s.fines {
		if f.BorrowerID == borrowerID && f.Status == domain.FineStatusPending {
			total = total.Add(f.Amount)
		}
	}
	return total, nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.payments {
		if other.ID == p.ID || other.TransactionID == p.TransactionID {
			return repository.ErrConflict
		}
		if p.Status == domain.PaymentStatusPending && other.FineID == p.FineID && other.Status == domain.PaymentStatusPending {
			return repository.ErrConflict
		}
	}
	r.s.payments[p.ID] = clone(p)
	return nil
}

func (r paymentRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.TransactionID == transactionID {
			return clone(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r paymentRepo) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r paymentRepo) HasPending(_ context.Context, fineID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.FineID == fineID && p.Status == domain.PaymentStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r paymentRepo) Update(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.payments[p.ID] = clone(p)
	return nil
}

func (r paymentRepo) List(_ context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*domain.Payment{}
	for _, p := range r.s.payments {
		if filter.BorrowerID != 0 && p.BorrowerID != filter.BorrowerID {
			continue
		}
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.Borrower, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r userRepo) DeleteCascade(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for k, p := range r.s.payments {
		if p.BorrowerID == id {
			delete(r.s.payments, k)
		}
	}
	for k, f := range r.s.fines {
		if f.BorrowerID == id {
			delete(r.s.fines, k)
		}
	}
	for k, res := range r.s.reservations {
		if res.BorrowerID == id {
			delete(r.s.reservations, k)
		}
	}
	for k, l := range r.s.loans {
		if l.BorrowerID == id {
			delete(r.s.loans, k)
		}
	}
	delete(r.s.users, id)
	return nil
}
