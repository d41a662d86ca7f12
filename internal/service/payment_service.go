package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/circulation-engine/internal/config"
	"github.com/segyhp/circulation-engine/internal/domain"
	"github.com/segyhp/circulation-engine/internal/gateway"
	"github.com/segyhp/circulation-engine/internal/repository"
	customError "github.com/segyhp/circulation-engine/pkg/errors"
)

type PaymentService struct {
	tx       repository.Transactor
	fines    repository.FineRepository
	payments repository.PaymentRepository
	users    repository.UserRepository
	gateway  gateway.Gateway
	clock    Clock
	config   *config.Config
	logger   *slog.Logger
}

func NewPaymentService(
	tx repository.Transactor,
	fines repository.FineRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	gateway gateway.Gateway,
	clock Clock,
	config *config.Config,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		tx:       tx,
		fines:    fines,
		payments: payments,
		users:    users,
		gateway:  gateway,
		clock:    clock,
		config:   config,
		logger:   logger,
	}
}

// CreatePayment charges a fine through the gateway and records the attempt. An
// approved charge marks the fine paid in the same transaction as the payment row.
func (s *PaymentService) CreatePayment(ctx context.Context, actor domain.Actor, request *domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	if !request.Method.Valid() {
		return nil, customError.WrapInvalidPaymentMethod(string(request.Method))
	}

	fine, err := s.fines.GetByID(ctx, request.FineID)
	if isNotFound(err) {
		return nil, customError.WrapFineNotFound(request.FineID.String())
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, fine.BorrowerID, "pay fine"); err != nil {
		return nil, err
	}
	if fine.Status == domain.FineStatusPaid {
		return nil, customError.WrapFineAlreadyPaid(fine.ID.String())
	}
	pending, err := s.payments.HasPending(ctx, fine.ID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if pending {
		return nil, customError.WrapPaymentPending(fine.ID.String())
	}

	customer := gateway.Customer{}
	if user, err := s.users.GetByID(ctx, fine.BorrowerID); err == nil {
		customer.Name = user.Name
		customer.Email = user.Email
	} else if !isNotFound(err) {
		return nil, customError.WrapDatabaseError(err)
	}

	charge, err := s.charge(ctx, gateway.ChargeRequest{
		Reference:  fine.ID.String(),
		Amount:     fine.Amount,
		Method:     request.Method,
		Customer:   customer,
		MethodData: request.MethodData,
	})
	if err != nil {
		s.logger.Error("gateway charge failed", "fine_id", fine.ID, "method", request.Method, "error", err)
		return nil, customError.WrapGatewayError(err)
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		ID:            uuid.New(),
		FineID:        fine.ID,
		BorrowerID:    fine.BorrowerID,
		Amount:        fine.Amount,
		Method:        request.Method,
		TransactionID: charge.TransactionID,
		Status:        domain.MapGatewayStatus(charge.Status),
		GatewayStatus: charge.Status,
		RawPayload:    charge.Raw,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.payments.Create(ctx, payment); err != nil {
			if isConflict(err) {
				s.logger.Error("charge raced another pending payment", "fine_id", fine.ID, "transaction_id", payment.TransactionID)
				return customError.WrapPaymentPending(fine.ID.String())
			}
			return customError.WrapDatabaseError(err)
		}
		if payment.Status == domain.PaymentStatusApproved {
			return s.settleFine(ctx, fine.ID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		"payment_id", payment.ID,
		"fine_id", fine.ID,
		"transaction_id", payment.TransactionID,
		"status", payment.Status,
	)
	return &domain.CreatePaymentResponse{Payment: payment, MethodData: charge.MethodData}, nil
}

func (s *PaymentService) charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	ctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	return s.gateway.Charge(ctx, req)
}

func (s *PaymentService) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Gateway.Timeout > 0 {
		return context.WithTimeout(ctx, s.config.Gateway.Timeout)
	}
	return context.WithCancel(ctx)
}

// Reconcile polls the gateway for a payment's status. When the gateway cannot
// be reached the last persisted state is returned instead of an error.
func (s *PaymentService) Reconcile(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Payment, error) {
	payment, err := s.payments.GetByTransactionID(ctx, transactionID)
	if isNotFound(err) {
		return nil, customError.WrapPaymentNotFound(transactionID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, payment.BorrowerID, "view payment"); err != nil {
		return nil, err
	}
	if payment.Status.IsTerminal() {
		return payment, nil
	}

	gctx, cancel := s.gatewayContext(ctx)
	status, err := s.gateway.Status(gctx, transactionID)
	cancel()
	if err != nil {
		s.logger.Warn("gateway status unavailable, returning last known state", "transaction_id", transactionID, "error", err)
		return payment, nil
	}

	return s.applyGatewayStatus(ctx, transactionID, status.Status, status.Raw)
}

// HandleWebhook treats a push notification as a hint: the status applied is the
// one the gateway reports for the transaction, never the posted one. Redelivery
// is a no-op. A gateway failure is returned so the sender retries.
func (s *PaymentService) HandleWebhook(ctx context.Context, notification *domain.WebhookNotification) (*domain.Payment, error) {
	payment, err := s.payments.GetByTransactionID(ctx, notification.ID)
	if isNotFound(err) {
		return nil, customError.WrapPaymentNotFound(notification.ID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if payment.Status.IsTerminal() {
		return payment, nil
	}

	gctx, cancel := s.gatewayContext(ctx)
	status, err := s.gateway.Status(gctx, notification.ID)
	cancel()
	if err != nil {
		s.logger.Error("gateway status lookup failed for webhook", "transaction_id", notification.ID, "error", err)
		return nil, customError.WrapGatewayError(err)
	}
	if status.Status != notification.Status {
		s.logger.Warn("webhook status does not match gateway",
			"transaction_id", notification.ID,
			"notified", notification.Status,
			"gateway_status", status.Status,
		)
	}

	return s.applyGatewayStatus(ctx, notification.ID, status.Status, status.Raw)
}

// applyGatewayStatus is the single state transition shared by polling and
// webhooks. Unchanged statuses are ignored and terminal payments never move.
func (s *PaymentService) applyGatewayStatus(ctx context.Context, transactionID, gatewayStatus string, raw domain.RawPayload) (*domain.Payment, error) {
	var payment *domain.Payment

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.payments.GetByTransactionIDForUpdate(ctx, transactionID)
		if isNotFound(err) {
			return customError.WrapPaymentNotFound(transactionID)
		}
		if err != nil {
			return customError.WrapDatabaseError(err)
		}

		next := domain.MapGatewayStatus(gatewayStatus)
		if next == payment.Status {
			return nil
		}
		if payment.Status.IsTerminal() {
			s.logger.Warn("ignoring status change on settled payment",
				"transaction_id", transactionID,
				"status", payment.Status,
				"gateway_status", gatewayStatus,
			)
			return nil
		}

		now := s.clock.Now()
		payment.Status = next
		payment.GatewayStatus = gatewayStatus
		if len(raw) > 0 {
			payment.RawPayload = raw
		}
		payment.UpdatedAt = now
		if err := s.payments.Update(ctx, payment); err != nil {
			return customError.WrapDatabaseError(err)
		}

		s.logger.Info("payment status changed", "transaction_id", transactionID, "status", next)
		if next == domain.PaymentStatusApproved {
			return s.settleFine(ctx, payment.FineID, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// settleFine marks the fine paid unless another payment already settled it.
func (s *PaymentService) settleFine(ctx context.Context, fineID uuid.UUID, now time.Time) error {
	fine, err := s.fines.GetByIDForUpdate(ctx, fineID)
	if isNotFound(err) {
		return customError.WrapFineNotFound(fineID.String())
	}
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	if fine.Status == domain.FineStatusPaid {
		s.logger.Warn("fine already paid by another payment", "fine_id", fineID)
		return nil
	}
	if err := s.fines.MarkPaid(ctx, fineID, now); err != nil {
		return customError.WrapDatabaseError(err)
	}
	s.logger.Info("fine paid", "fine_id", fineID)
	return nil
}

func (s *PaymentService) ListPayments(ctx context.Context, actor domain.Actor) ([]*domain.Payment, error) {
	if err := authorize(actor, domain.CapabilityStaff, 0, "list payments"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.PaymentFilter{})
}

func (s *PaymentService) ListBorrowerPayments(ctx context.Context, actor domain.Actor, borrowerID int64) ([]*domain.Payment, error) {
	if err := authorize(actor, domain.CapabilitySelf|domain.CapabilityStaff, borrowerID, "list payments"); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.PaymentFilter{BorrowerID: borrowerID})
}

func (s *PaymentService) list(ctx context.Context, filter repository.PaymentFilter) ([]*domain.Payment, error) {
	payments, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return payments, nil
}
