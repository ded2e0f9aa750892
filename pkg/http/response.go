package http

import (
	"encoding/json"
	"net/http"
	apperrors "payrouter/pkg/errors"
)

// Envelope is the single response shape every route produces. Exactly one of Data or
// Error is set.
type Envelope struct {
	Status int                      `json:"-"`
	Data   any                      `json:"data,omitempty"`
	Error  *apperrors.ErrorResponse `json:"error,omitempty"`
}

func Success(status int, data any) Envelope {
	return Envelope{Status: status, Data: data}
}

// Failure projects err onto a merchant-safe envelope. Errors that are not AppErrors
// become INTERNAL_ERROR.
func Failure(err error) Envelope {
	appErr := apperrors.AsAppError(err)
	body := appErr.Response()
	return Envelope{Status: appErr.StatusCode(), Error: &body}
}

func (e Envelope) OK() bool {
	return e.Error == nil
}

func (e Envelope) Write(w http.ResponseWriter) {
	if e.Status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	WriteJSON(w, e.Status, e)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, err error) {
	Failure(err).Write(w)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	Success(http.StatusOK, data).Write(w)
}
