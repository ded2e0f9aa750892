package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity, ClassBusiness)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
	if err.Class != ClassBusiness {
		t.Errorf("expected class %s, got %s", ClassBusiness, err.Class)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "resource not found"},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError, ClassInternal)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should find the original error")
	}
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      string
		status    int
		class     Class
		retryable bool
	}{
		{"authentication", AuthenticationFailed(CodeUnknownKey, "API key not recognized"), CodeUnknownKey, http.StatusUnauthorized, ClassAuthentication, false},
		{"authorization", AuthorizationFailed("not allowed"), CodeInsufficientScope, http.StatusForbidden, ClassAuthorization, false},
		{"resource conflict", ResourceConflict("busy"), CodeResourceLocked, http.StatusConflict, ClassConflict, true},
		{"infrastructure", Unavailable("Lock store"), CodeUnavailable, http.StatusServiceUnavailable, ClassInfrastructure, true},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout, ClassInfrastructure, true},
		{"business", Business("PAYMENT_LINK_EXPIRED", "expired", http.StatusGone), "PAYMENT_LINK_EXPIRED", http.StatusGone, ClassBusiness, false},
		{"not found", NotFound("Payment link"), CodeNotFound, http.StatusNotFound, ClassNotFound, false},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity, ClassBusiness, false},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest, ClassBusiness, false},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError, ClassInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.HTTPStatus != tt.status {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus, tt.status)
			}
			if tt.err.Class != tt.class {
				t.Errorf("class = %s, want %s", tt.err.Class, tt.class)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Payment link", "plink_123")

	if err.Message != "Payment link not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["id"] != "plink_123" {
		t.Errorf("expected id 'plink_123', got %v", err.Details["id"])
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Payment link")

	if got := AsAppError(appErr); got != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	wrapped := fmt.Errorf("service: %w", appErr)
	if got := AsAppError(wrapped); got != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	regularErr := errors.New("regular error")
	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should keep the original error as cause")
	}
	if !IsAppError(wrapped) || IsAppError(regularErr) {
		t.Errorf("IsAppError() mismatch")
	}
}

func TestAppError_ToJSONHidesCause(t *testing.T) {
	err := Internal("An unexpected error occurred", errors.New("mongo: connection refused 10.0.0.4"))
	body := string(err.ToJSON())

	if !strings.Contains(body, CodeInternal) {
		t.Errorf("ToJSON() should contain error code, got %s", body)
	}
	if strings.Contains(body, "10.0.0.4") {
		t.Errorf("ToJSON() leaked internal cause: %s", body)
	}
	if !strings.Contains(body, `"retryable":false`) {
		t.Errorf("ToJSON() should carry retryable flag, got %s", body)
	}
}
