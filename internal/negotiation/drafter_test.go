package negotiation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erazemk/nabava/internal/oracle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgencyBoundaries(t *testing.T) {
	tests := []struct {
		stock, threshold int
		want             string
	}{
		{0, 20, UrgencyCritical},
		{3, 20, UrgencyCritical},
		{4, 20, UrgencyUrgent}, // 4 == 0.2*20
		{5, 20, UrgencyUrgent},
		{19, 20, UrgencyUrgent},
		{1, 10, UrgencyCritical},
		{2, 10, UrgencyUrgent},
		{0, 0, UrgencyUrgent},
		{1, 6, UrgencyCritical}, // 1 < 1.2
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Urgency(tt.stock, tt.threshold), "stock=%d threshold=%d", tt.stock, tt.threshold)
	}
}

func TestFallbackDraft(t *testing.T) {
	got := FallbackDraft(DraftInput{Item: "Bolts", CurrentStock: 2, Threshold: 20, SupplierName: "Acme"})
	want := "Subject: [CRITICAL] Restock Request for Bolts\n\n" +
		"Dear Acme,\n\n" +
		"Our system indicates Bolts is low (2 units). We need 500 units. Please provide an invoice."
	assert.Equal(t, want, got)
}

func TestDraftFallsBackOnOracleError(t *testing.T) {
	failing := oracle.Func(func(context.Context, oracle.Request) (string, error) {
		return "", errors.New("401 unauthorized")
	})
	d := NewDrafter(failing, nil)

	in := DraftInput{Item: "Bolts", CurrentStock: 10, Threshold: 20, SupplierName: "Acme", Units: 200}
	got := d.Draft(context.Background(), in)
	assert.Equal(t, FallbackDraft(in), got)
	assert.Contains(t, got, "[URGENT]")
	assert.Contains(t, got, "We need 200 units")
}

func TestDraftUsesOracle(t *testing.T) {
	var prompt string
	o := oracle.Func(func(_ context.Context, req oracle.Request) (string, error) {
		prompt = req.Prompt
		return "  Subject: Restock\n\nHello  ", nil
	})
	d := NewDrafter(o, nil)

	price := decimal.NewFromInt(1700)
	got := d.Draft(context.Background(), DraftInput{
		Item: "Bolts", CurrentStock: 5, Threshold: 20, SupplierName: "Acme",
		Units: 200, TargetPrice: &price, Instruction: "send 200 units with discount",
	})
	assert.Equal(t, "Subject: Restock\n\nHello", got)

	require.NotEmpty(t, prompt)
	for _, want := range []string{"Item: Bolts", "Current stock: 5", "Reorder threshold: 20", "Supplier: Acme",
		"Requested units: 200", "Target price: ₹1700.00", "Operator instruction: send 200 units with discount"} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q", want)
	}
}

func TestDraftWithoutOracle(t *testing.T) {
	d := NewDrafter(nil, nil)
	in := DraftInput{Item: "Nuts", CurrentStock: 1, Threshold: 10, SupplierName: "Nutco"}
	assert.Equal(t, FallbackDraft(in), d.Draft(context.Background(), in))
}
