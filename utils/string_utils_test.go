package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatRupees(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "Rs. 0.00"},
		{"500", "Rs. 500.00"},
		{"1500.5", "Rs. 1,500.50"},
		{"125000", "Rs. 1,25,000.00"},
		{"12345678.9", "Rs. 1,23,45,678.90"},
		{"-2500", "Rs. -2,500.00"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRupees(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Asha Rao", Title("  aSHA   rao "))
	assert.Equal(t, "", Title(""))
}
