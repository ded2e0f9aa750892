package model

import "time"

type PaymentLinkStatus string

const (
	PaymentLinkCreated   PaymentLinkStatus = "created"
	PaymentLinkInitiated PaymentLinkStatus = "initiated"
	PaymentLinkCompleted PaymentLinkStatus = "completed"
	PaymentLinkExpired   PaymentLinkStatus = "expired"
)

// Terminal reports whether no further transition is possible.
func (s PaymentLinkStatus) Terminal() bool {
	return s == PaymentLinkCompleted || s == PaymentLinkExpired
}

type PaymentLink struct {
	ID           string            `json:"payment_link_id" bson:"_id"`
	MerchantID   string            `json:"merchant_id" bson:"merchant_id"`
	PaymentID    string            `json:"payment_id" bson:"payment_id"`
	Amount       int64             `json:"amount" bson:"amount"`
	Currency     string            `json:"currency" bson:"currency"`
	Description  string            `json:"description,omitempty" bson:"description,omitempty"`
	LinkToPay    string            `json:"link_to_pay" bson:"link_to_pay"`
	ClientSecret string            `json:"client_secret,omitempty" bson:"client_secret"`
	Status       PaymentLinkStatus `json:"status" bson:"status"`
	CreatedAt    time.Time         `json:"created_at" bson:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at" bson:"expires_at"`
	UpdatedAt    time.Time         `json:"updated_at" bson:"updated_at"`
}

// ExpiredAt reports whether a link still waiting to be acted on has passed its expiry.
// Only Created links expire; an initiated payment is allowed to finish.
func (l *PaymentLink) ExpiredAt(now time.Time) bool {
	return l.Status == PaymentLinkCreated && !now.Before(l.ExpiresAt)
}

// View is the link as callers see it at now: expiry is applied without writing, and
// the client secret is omitted.
func (l *PaymentLink) View(now time.Time) *PaymentLink {
	v := *l
	v.ClientSecret = ""
	if l.ExpiredAt(now) {
		v.Status = PaymentLinkExpired
	}
	return &v
}

type PaymentLinkCreate struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"required,iso4217"`
	Description string `json:"description,omitempty" validate:"omitempty,max=255"`
	// ExpiresIn is in seconds; zero uses the configured default.
	ExpiresIn int64 `json:"expires_in,omitempty" validate:"omitempty,min=60,max=7776000"`
}

type PaymentLinkListConstraints struct {
	Limit      int               `json:"limit" validate:"min=1,max=100"`
	Created    *time.Time        `json:"created,omitempty"`
	CreatedLT  *time.Time        `json:"created.lt,omitempty"`
	CreatedGT  *time.Time        `json:"created.gt,omitempty"`
	CreatedLTE *time.Time        `json:"created.lte,omitempty"`
	CreatedGTE *time.Time        `json:"created.gte,omitempty"`
	Status     PaymentLinkStatus `json:"status,omitempty" validate:"omitempty,oneof=created initiated completed expired"`
}

type PaymentLinkList struct {
	Data       []*PaymentLink `json:"data"`
	Count      int            `json:"count"`
	TotalCount int64          `json:"total_count"`
}

// PaymentLinkEvent is one entry of a link's lifecycle history.
type PaymentLinkEvent struct {
	ID            string            `json:"id" bson:"_id"`
	PaymentLinkID string            `json:"payment_link_id" bson:"payment_link_id"`
	MerchantID    string            `json:"merchant_id" bson:"merchant_id"`
	From          PaymentLinkStatus `json:"from,omitempty" bson:"from,omitempty"`
	To            PaymentLinkStatus `json:"to" bson:"to"`
	At            time.Time         `json:"at" bson:"at"`
}
