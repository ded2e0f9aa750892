package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPaymentLinkStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   PaymentLinkStatus
		terminal bool
	}{
		{PaymentLinkCreated, false},
		{PaymentLinkInitiated, false},
		{PaymentLinkCompleted, true},
		{PaymentLinkExpired, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.terminal {
				t.Errorf("Terminal() = %v, want %v", got, tt.terminal)
			}
		})
	}
}

func TestPaymentLink_ExpiredAt(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status PaymentLinkStatus
		now    time.Time
		want   bool
	}{
		{"created before expiry", PaymentLinkCreated, expiry.Add(-time.Second), false},
		{"created at expiry", PaymentLinkCreated, expiry, true},
		{"created after expiry", PaymentLinkCreated, expiry.Add(time.Hour), true},
		{"initiated after expiry", PaymentLinkInitiated, expiry.Add(time.Hour), false},
		{"completed after expiry", PaymentLinkCompleted, expiry.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &PaymentLink{Status: tt.status, ExpiresAt: expiry}
			if got := link.ExpiredAt(tt.now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPaymentLink_View(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	link := &PaymentLink{
		ID:           "plink_1",
		Status:       PaymentLinkCreated,
		ClientSecret: "plink_1_secret_abc",
		ExpiresAt:    expiry,
	}

	view := link.View(expiry.Add(time.Minute))

	if view.Status != PaymentLinkExpired {
		t.Errorf("view status = %s, want expired", view.Status)
	}
	if view.ClientSecret != "" {
		t.Error("view must not carry the client secret")
	}
	if link.Status != PaymentLinkCreated || link.ClientSecret == "" {
		t.Error("View must not modify the stored link")
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := fields["client_secret"]; ok {
		t.Error("client_secret should be omitted from the JSON view")
	}
}
