package validator

import "testing"

type sample struct {
	Name     string `validate:"required,max=32"`
	Currency string `validate:"currency"`
	Type     string `validate:"account_type"`
	TZ       string `validate:"timezone"`
}

func TestCustomTags(t *testing.T) {
	tests := []struct {
		name  string
		input sample
		ok    bool
	}{
		{"valid", sample{"Checking", "RMB", "asset", "CN"}, true},
		{"unknown_currency", sample{"Checking", "GBP", "asset", "US"}, false},
		{"unknown_account_type", sample{"Checking", "USD", "cash", "US"}, false},
		{"unknown_timezone", sample{"Checking", "USD", "equity", "EU"}, false},
		{"name_too_long", sample{"abcdefghijklmnopqrstuvwxyz0123456789", "USD", "asset", "US"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.input)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
