package pipeline

import (
	"time"

	apperrors "payrouter/pkg/errors"
)

// Event is the structured record of one execution. Detail may hold internal diagnostics
// and never reaches the response envelope.
type Event struct {
	Flow       Flow            `json:"-"`
	FlowName   string          `json:"flow"`
	Duration   time.Duration   `json:"-"`
	DurationMS int64           `json:"duration_ms"`
	Outcome    apperrors.Class `json:"outcome"`
	Status     int             `json:"status"`
	MerchantID string          `json:"merchant_id,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	ErrorCode  string          `json:"error_code,omitempty"`
	Detail     string          `json:"detail,omitempty"`
	Locked     bool            `json:"locked"`
	Timestamp  time.Time       `json:"timestamp"`
}
