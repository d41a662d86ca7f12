// Package memory is an in-process implementation of the repository interfaces.
// Transactions are serialized and roll back by restoring a snapshot.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/repository"
)

type txKey struct{}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users        map[int64]*domain.Borrower
	items        map[int64]*domain.Item
	loans        map[uuid.UUID]*domain.Loan
	reservations map[uuid.UUID]*domain.Reservation
	fines        map[uuid.UUID]*domain.Fine
	payments     map[uuid.UUID]*domain.Payment
}

var _ repository.Transactor = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[int64]*domain.Borrower),
		items:        make(map[int64]*domain.Item),
		loans:        make(map[uuid.UUID]*domain.Loan),
		reservations: make(map[uuid.UUID]*domain.Reservation),
		fines:        make(map[uuid.UUID]*domain.Fine),
		payments:     make(map[uuid.UUID]*domain.Payment),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	users        map[int64]*domain.Borrower
	items        map[int64]*domain.Item
	loans        map[uuid.UUID]*domain.Loan
	reservations map[uuid.UUID]*domain.Reservation
	fines        map[uuid.UUID]*domain.Fine
	payments     map[uuid.UUID]*domain.Payment
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot{
		users:        cloneMap(s.users),
		items:        cloneMap(s.items),
		loans:        cloneMap(s.loans),
		reservations: cloneMap(s.reservations),
		fines:        cloneMap(s.fines),
		payments:     cloneMap(s.payments),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.items = snap.items
	s.loans = snap.loans
	s.reservations = snap.reservations
	s.fines = snap.fines
	s.payments = snap.payments
}

func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func clone[V any](v *V) *V {
	c := *v
	return &c
}

// AddUser seeds a borrower.
func (s *Store) AddUser(u domain.Borrower) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

// AddItem seeds a catalog item.
func (s *Store) AddItem(i domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[i.ID] = &i
}

func (s *Store) Items() repository.ItemRepository {
	return itemRepo{s}
}

func (s *Store) Loans() repository.LoanRepository {
	return loanRepo{s}
}

func (s *Store) Reservations() repository.ReservationRepository {
	return reservationRepo{s}
}

func (s *Store) Fines() repository.FineRepository {
	return fineRepo{s}
}

func (s *Store) Payments() repository.PaymentRepository {
	return paymentRepo{s}
}

func (s *Store) Users() repository.UserRepository {
	return userRepo{s}
}
