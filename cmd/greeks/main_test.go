package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/atmx/options-engine/internal/contract"
)

func TestReport(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{contract.Invalid(contract.FieldSpot, "required"), "Error: --spot: required\n"},
		{contract.Invalid(contract.FieldStrike, "must be greater than zero"), "Error: --strike: must be greater than zero\n"},
		{contract.Invalid(contract.FieldDaysHeld, "must be non-negative"), "Error: --days-held: must be non-negative\n"},
		{errors.New("gateway down"), "Error: gateway down\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		report(&buf, tt.err)
		if buf.String() != tt.want {
			t.Errorf("expected %q, got %q", tt.want, buf.String())
		}
	}
}
