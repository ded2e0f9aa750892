package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Order 1042  ", "Order 1042"},
		{"multiple spaces between words", "Order    1042", "Order 1042"},
		{"tabs and newlines", "Order\t\n1042", "Order 1042"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve special characters", " Café & Spa™ ", "Café & Spa™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimAndNormalize(tt.input))
		})
	}
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "Invoice 7 for March", NormalizeDescription(" Invoice\x00 7\x07 for\n March "))
	assert.Equal(t, NormalizeDescription("a  b"), NormalizeDescription(NormalizeDescription("a  b")))
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"usd", "USD"},
		{" eur ", "EUR"},
		{"GBP", "GBP"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCurrency(tt.input))
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"adds https", "pay.example.com", "https://pay.example.com"},
		{"keeps http", "http://localhost:8080", "http://localhost:8080"},
		{"lowercases host", "https://PAY.Example.com/Links", "https://pay.example.com/Links"},
		{"strips trailing slashes", "https://pay.example.com/links//", "https://pay.example.com/links"},
		{"drops query and fragment", "https://pay.example.com/?utm=1#x", "https://pay.example.com"},
		{"empty", "   ", ""},
		{"no host", "https://", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBaseURL(tt.input))
		})
	}
}

func TestNormalizePermissions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "payment_link:read", []string{"payment_link:read"}},
		{"trims and lowercases", " Payment_Link:Write , payment_link:read", []string{"payment_link:write", "payment_link:read"}},
		{"drops duplicates", "payment_link:read,payment_link:read", []string{"payment_link:read"}},
		{"drops blanks", ",, ,", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePermissions(tt.input))
		})
	}
}

func TestPipeline_AppliesInOrder(t *testing.T) {
	p := Pipeline{
		func(s string) string { return s + "a" },
		func(s string) string { return s + "b" },
	}
	assert.Equal(t, "xab", p.Apply("x"))
}
