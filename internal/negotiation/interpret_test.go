package negotiation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInterpretUnits(t *testing.T) {
	tests := []struct {
		instruction string
		current     int
		want        int
	}{
		{"send 200 units", 500, 200},
		{"make it 100, no wait 300", 500, 300},
		{"300 then 20", 500, 300},
		{"only 49 please", 500, 500},
		{"exactly 50", 500, 50},
		{"49 50 51 10", 500, 51},
		{"no numbers here", 120, 120},
		{"model X200 in 75 boxes", 500, 75},
		{"order 99999999999999999999999 units", 500, 500},
		{"send 9223372036854775807 units", 500, 500},
		{"send 1000000001 units", 500, 500},
		{"send 1000000000 units", 500, 1000000000},
		{"", 500, 500},
	}
	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			got, _ := Interpret(tt.instruction, tt.current, decimal.NewFromInt(1))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInterpretDiscount(t *testing.T) {
	cost := decimal.NewFromInt(10)
	tests := []struct {
		instruction string
		want        string
	}{
		{"send 200 units with discount", "1700"},
		{"send 200 units with DISCOUNT", "1700"},
		{"200 and take 15% Off", "1700"},
		{"send 200 units", "2000"},
		// Substring match, as documented.
		{"200 to the office", "1700"},
	}
	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			units, price := Interpret(tt.instruction, 500, cost)
			assert.Equal(t, 200, units)
			assert.True(t, price.Equal(decimal.RequireFromString(tt.want)), "got %s", price)
		})
	}
}

func TestInterpretPriceUsesCurrentUnitsWithoutLiteral(t *testing.T) {
	units, price := Interpret("give us a discount", 500, decimal.NewFromInt(10))
	assert.Equal(t, 500, units)
	assert.True(t, price.Equal(decimal.NewFromInt(4250)))
}
