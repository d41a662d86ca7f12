package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/mocks"
	"github.com/segyhp/circulation-engine/internal/repository/memory"
	"github.com/segyhp/circulation-engine/internal/scheduler"
	"github.com/segyhp/circulation-engine/internal/service"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
	"github.com/segyhp/circulation-engine/pkg/logger"
)

const (
	aliceID     int64 = 1
	bobID       int64 = 2
	carolID     int64 = 3
	librarianID int64 = 10
	adminID     int64 = 20

	singleCopyItem int64 = 100
	twoCopyItem    int64 = 200
	inactiveItem   int64 = 300
)

var (
	alice     = domain.Actor{UserID: aliceID, Role: domain.RoleReader}
	bob       = domain.Actor{UserID: bobID, Role: domain.RoleReader}
	carol     = domain.Actor{UserID: carolID, Role: domain.RoleReader}
	librarian = domain.Actor{UserID: librarianID, Role: domain.RoleLibrarian}
	admin     = domain.Actor{UserID: adminID, Role: domain.RoleAdministrator}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store   *memory.Store
	clock   *testClock
	cfg     *config.Config
	mailer  *mocks.MockMailer
	gateway *mocks.MockGateway

	loans         *service.LoanService
	reservations  *service.ReservationService
	fines         *service.FineService
	payments      *service.PaymentService
	notifications *service.NotificationService
	users         *service.UserService
}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Business: config.BusinessConfig{
			LoanPeriodDays:    14,
			MaxRenewals:       1,
			FinePerDay:        "2.00",
			ReservationHold:   48 * time.Hour,
			DueSoonWindowDays: 3,
		},
		Gateway: config.GatewayConfig{Timeout: time.Second},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.New()
	store.AddUser(domain.Borrower{ID: aliceID, Name: "Alice", Email: "alice@example.com", Role: domain.RoleReader})
	store.AddUser(domain.Borrower{ID: bobID, Name: "Bob", Email: "bob@example.com", Role: domain.RoleReader})
	store.AddUser(domain.Borrower{ID: carolID, Name: "Carol", Email: "carol@example.com", Role: domain.RoleReader})
	store.AddUser(domain.Borrower{ID: librarianID, Name: "Lia", Email: "lia@example.com", Role: domain.RoleLibrarian})
	store.AddUser(domain.Borrower{ID: adminID, Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdministrator})
	store.AddItem(domain.Item{ID: singleCopyItem, Title: "Dom Casmurro", TotalCopies: 1, Active: true})
	store.AddItem(domain.Item{ID: twoCopyItem, Title: "Iracema", TotalCopies: 2, Active: true})
	store.AddItem(domain.Item{ID: inactiveItem, Title: "Withdrawn", TotalCopies: 1, Active: false})

	clock := &testClock{now: time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)}
	cfg := testConfig()
	log := logger.Discard()
	guard := scheduler.NewGuard(scheduler.NewLocalLocker(), time.Minute, log)
	mailer := &mocks.MockMailer{}
	gw := &mocks.MockGateway{}

	notifications := service.NewNotificationService(store.Loans(), store.Items(), store.Users(), mailer, guard, clock, cfg, log)
	reservations := service.NewReservationService(store, store.Items(), store.Reservations(), notifications, guard, clock, cfg, log)

	return &harness{
		store:         store,
		clock:         clock,
		cfg:           cfg,
		mailer:        mailer,
		gateway:       gw,
		notifications: notifications,
		reservations:  reservations,
		loans:         service.NewLoanService(store, store.Items(), store.Loans(), store.Reservations(), reservations, clock, cfg, log),
		fines:         service.NewFineService(store, store.Loans(), store.Fines(), guard, clock, cfg, log),
		payments:      service.NewPaymentService(store, store.Fines(), store.Payments(), store.Users(), gw, clock, cfg, log),
		users:         service.NewUserService(store, store.Users(), store.Loans(), log),
	}
}

// acceptMail makes every Send succeed.
func (h *harness) acceptMail() {
	h.mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (h *harness) borrow(t *testing.T, actor domain.Actor, itemID int64) *domain.Loan {
	t.Helper()
	loan, err := h.loans.CreateLoan(context.Background(), actor, &domain.CreateLoanRequest{ItemID: itemID})
	require.NoError(t, err)
	return loan
}

func (h *harness) reserve(t *testing.T, actor domain.Actor, itemID int64) *domain.Reservation {
	t.Helper()
	res, err := h.reservations.CreateReservation(context.Background(), actor, &domain.CreateReservationRequest{ItemID: itemID})
	require.NoError(t, err)
	return res
}

func assertKind(t *testing.T, err error, kind customError.Kind, sentinel error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, customError.KindOf(err), "unexpected kind for %v", err)
	if sentinel != nil {
		assert.ErrorIs(t, err, sentinel)
	}
}
