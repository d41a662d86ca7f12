package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a BusinessError for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindUnavailable
	KindValidation
	KindUnauthorized
	KindGateway
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindGateway:
		return "gateway"
	default:
		return "internal"
	}
}

// Domain errors
var (
	ErrItemNotFound         = errors.New("item not found")
	ErrItemUnavailable      = errors.New("no copies available")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanAlreadyOpen      = errors.New("borrower already has an open loan for this item")
	ErrLoanAlreadyReturned  = errors.New("loan is already returned")
	ErrLoanOverdue          = errors.New("loan is overdue")
	ErrRenewalLimit         = errors.New("renewal limit reached")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationExists    = errors.New("borrower already holds an active reservation")
	ErrItemAvailable        = errors.New("item has available copies")
	ErrReservationClosed    = errors.New("reservation is no longer open")
	ErrFineNotFound         = errors.New("fine not found")
	ErrFineAlreadyPaid      = errors.New("fine is already paid")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentPending       = errors.New("fine already has a pending payment")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserHasOpenLoans     = errors.New("user has open loans")
	ErrSelfDelete           = errors.New("cannot delete own account")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrGateway              = errors.New("payment gateway failure")
	ErrSweepAlreadyRunning  = errors.New("sweep already running")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the first BusinessError in err's chain,
// KindInternal when there is none.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Error codes
const (
	ErrCodeItemNotFound         = "ITEM_NOT_FOUND"
	ErrCodeItemUnavailable      = "ITEM_UNAVAILABLE"
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyOpen      = "LOAN_ALREADY_OPEN"
	ErrCodeLoanAlreadyReturned  = "LOAN_ALREADY_RETURNED"
	ErrCodeLoanOverdue          = "LOAN_OVERDUE"
	ErrCodeRenewalLimit         = "RENEWAL_LIMIT_REACHED"
	ErrCodeReservationNotFound  = "RESERVATION_NOT_FOUND"
	ErrCodeReservationExists    = "RESERVATION_EXISTS"
	ErrCodeItemAvailable        = "ITEM_AVAILABLE"
	ErrCodeReservationClosed    = "RESERVATION_CLOSED"
	ErrCodeFineNotFound         = "FINE_NOT_FOUND"
	ErrCodeFineAlreadyPaid      = "FINE_ALREADY_PAID"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodePaymentPending       = "PAYMENT_PENDING"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeUserHasOpenLoans     = "USER_HAS_OPEN_LOANS"
	ErrCodeSelfDelete           = "SELF_DELETE"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ErrCodeGatewayError         = "GATEWAY_ERROR"
	ErrCodeSweepAlreadyRunning  = "SWEEP_ALREADY_RUNNING"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
	ErrCodeCacheError           = "CACHE_ERROR"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Wrap common errors with business context
func WrapItemNotFound(itemID int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeItemNotFound,
		fmt.Sprintf("Item with ID %d not found", itemID),
		ErrItemNotFound,
	)
}

func WrapItemUnavailable(itemID int64) *BusinessError {
	return NewBusinessError(
		KindUnavailable,
		ErrCodeItemUnavailable,
		fmt.Sprintf("Item with ID %d has no copies available", itemID),
		ErrItemUnavailable,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyOpen(itemID int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanAlreadyOpen,
		fmt.Sprintf("An open loan for item %d already exists", itemID),
		ErrLoanAlreadyOpen,
	)
}

func WrapLoanAlreadyReturned(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanAlreadyReturned,
		fmt.Sprintf("Loan with ID %s is already returned", loanID),
		ErrLoanAlreadyReturned,
	)
}

func WrapLoanOverdue(loanID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeLoanOverdue,
		fmt.Sprintf("Loan with ID %s is overdue and cannot be renewed", loanID),
		ErrLoanOverdue,
	)
}

func WrapRenewalLimit(loanID string, max int) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeRenewalLimit,
		fmt.Sprintf("Loan with ID %s already renewed %d time(s)", loanID, max),
		ErrRenewalLimit,
	)
}

func WrapReservationNotFound(reservationID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeReservationNotFound,
		fmt.Sprintf("Reservation with ID %s not found", reservationID),
		ErrReservationNotFound,
	)
}

func WrapReservationExists(itemID int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeReservationExists,
		fmt.Sprintf("An active reservation for item %d already exists", itemID),
		ErrReservationExists,
	)
}

func WrapItemAvailable(itemID int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeItemAvailable,
		fmt.Sprintf("Item with ID %d has copies available, borrow it instead", itemID),
		ErrItemAvailable,
	)
}

func WrapReservationClosed(reservationID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeReservationClosed,
		fmt.Sprintf("Reservation with ID %s is no longer open", reservationID),
		ErrReservationClosed,
	)
}

func WrapFineNotFound(fineID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeFineNotFound,
		fmt.Sprintf("Fine with ID %s not found", fineID),
		ErrFineNotFound,
	)
}

func WrapFineAlreadyPaid(fineID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeFineAlreadyPaid,
		fmt.Sprintf("Fine with ID %s is already paid", fineID),
		ErrFineAlreadyPaid,
	)
}

func WrapPaymentNotFound(transactionID string) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with transaction ID %s not found", transactionID),
		ErrPaymentNotFound,
	)
}

func WrapPaymentPending(fineID string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodePaymentPending,
		fmt.Sprintf("Fine %s already has a pending payment", fineID),
		ErrPaymentPending,
	)
}

func WrapUserNotFound(userID int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeUserNotFound,
		fmt.Sprintf("User with ID %d not found", userID),
		ErrUserNotFound,
	)
}

func WrapUserHasOpenLoans(userID int64) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeUserHasOpenLoans,
		fmt.Sprintf("User with ID %d still has open loans", userID),
		ErrUserHasOpenLoans,
	)
}

func WrapSelfDelete() *BusinessError {
	return NewBusinessError(KindConflict, ErrCodeSelfDelete, "You cannot delete your own account", ErrSelfDelete)
}

func WrapForbidden(action string) *BusinessError {
	return NewBusinessError(
		KindForbidden,
		ErrCodeForbidden,
		fmt.Sprintf("Not allowed to %s", action),
		ErrForbidden,
	)
}

func WrapUnauthorized(err error) *BusinessError {
	return NewBusinessError(KindUnauthorized, ErrCodeUnauthorized, "Missing or invalid credentials", err)
}

func WrapValidation(err error) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeValidation, "Request validation failed", err)
}

func WrapInvalidPaymentMethod(method string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentMethod,
		fmt.Sprintf("Invalid payment method: %s", method),
		ErrInvalidPaymentMethod,
	)
}

func WrapGatewayError(err error) *BusinessError {
	return NewBusinessError(
		KindGateway,
		ErrCodeGatewayError,
		"Payment gateway request failed",
		errors.Join(ErrGateway, err),
	)
}

func WrapSweepAlreadyRunning(kind string) *BusinessError {
	return NewBusinessError(
		KindConflict,
		ErrCodeSweepAlreadyRunning,
		fmt.Sprintf("Task %s is already running", kind),
		ErrSweepAlreadyRunning,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}
