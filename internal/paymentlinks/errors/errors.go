package errors

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "payrouter/pkg/errors"
	"payrouter/pkg/model"
)

var (
	ErrNotFound = errors.New("payment link not found")

	ErrDuplicate = errors.New("payment link already exists for payment")

	// ErrStateConflict means the link was not in the expected status when a transition
	// was written.
	ErrStateConflict = errors.New("payment link status changed")
)

const (
	CodeInvalidState = "PAYMENT_LINK_INVALID_STATE"
	CodeExpired      = "PAYMENT_LINK_EXPIRED"
	CodeExists       = "PAYMENT_LINK_EXISTS"
)

func InvalidState(action string, status model.PaymentLinkStatus) *apperrors.AppError {
	return apperrors.Business(CodeInvalidState,
		fmt.Sprintf("Payment link cannot be %s while %s", action, status),
		http.StatusConflict,
	).WithDetails(map[string]any{"status": status, "terminal": status.Terminal()})
}

func Expired(id string) *apperrors.AppError {
	return apperrors.Business(CodeExpired, "Payment link has expired", http.StatusGone).
		WithDetails(map[string]any{"payment_link_id": id})
}

func Exists(paymentID string) *apperrors.AppError {
	return apperrors.Business(CodeExists, "A payment link already exists for this payment", http.StatusConflict).
		WithDetails(map[string]any{"payment_id": paymentID})
}
