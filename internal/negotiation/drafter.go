package negotiation

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/shopspring/decimal"
)

// Urgency labels used by the fallback draft.
const (
	UrgencyCritical = "CRITICAL"
	UrgencyUrgent   = "URGENT"
)

// DraftInput carries the shortage facts for one email.
type DraftInput struct {
	Item         string
	CurrentStock int
	Threshold    int
	SupplierName string
	// Units defaults to model.DefaultUnits when zero.
	Units int
	// TargetPrice is included in the prompt when set.
	TargetPrice *decimal.Decimal
	Instruction string
}

func (in DraftInput) units() int {
	if in.Units <= 0 {
		return model.DefaultUnits
	}
	return in.Units
}

// Drafter writes supplier inquiry emails, preferring the oracle and falling
// back to a fixed template.
type Drafter struct {
	oracle oracle.Oracle
	log    *logger.Logger
}

// NewDrafter creates a drafter. A nil oracle always uses the template.
func NewDrafter(o oracle.Oracle, log *logger.Logger) *Drafter {
	if log == nil {
		log = logger.Nop()
	}
	return &Drafter{oracle: o, log: log}
}

// Draft returns email text for in. It never fails.
func (d *Drafter) Draft(ctx context.Context, in DraftInput) string {
	if d.oracle == nil {
		return FallbackDraft(in)
	}
	out, err := d.oracle.Complete(ctx, oracle.Request{
		Prompt:  draftPrompt(in),
		Purpose: "draft",
	})
	if err != nil {
		d.log.Warn(d.log.WithField(ctx, "item", in.Item), "draft oracle failed, using template", err)
		return FallbackDraft(in)
	}
	return strings.TrimSpace(out)
}

func draftPrompt(in DraftInput) string {
	var b strings.Builder
	b.WriteString("You are the procurement assistant of a small manufacturing business. Draft a professional restocking email.\n")
	fmt.Fprintf(&b, "Item: %s\n", in.Item)
	fmt.Fprintf(&b, "Current stock: %d\n", in.CurrentStock)
	fmt.Fprintf(&b, "Reorder threshold: %d\n", in.Threshold)
	fmt.Fprintf(&b, "Supplier: %s\n", in.SupplierName)
	fmt.Fprintf(&b, "Requested units: %d\n", in.units())
	if in.TargetPrice != nil {
		fmt.Fprintf(&b, "Target price: ₹%s\n", in.TargetPrice.StringFixed(2))
	}
	if in.Instruction != "" {
		fmt.Fprintf(&b, "Operator instruction: %s\n", in.Instruction)
	}
	b.WriteString("Mention that automated stock monitoring raised this request because stock is low. ")
	b.WriteString("Keep the tone firm but respectful. Return only the email subject and body.")
	return b.String()
}

// Urgency labels a shortage CRITICAL when stock is under a fifth of the
// threshold.
func Urgency(stock, threshold int) string {
	// stock < 0.2*threshold, kept in integers.
	if 5*stock < threshold {
		return UrgencyCritical
	}
	return UrgencyUrgent
}

// FallbackDraft is the deterministic email used when the oracle fails.
func FallbackDraft(in DraftInput) string {
	return fmt.Sprintf("Subject: [%s] Restock Request for %s\n\n"+
		"Dear %s,\n\n"+
		"Our system indicates %s is low (%d units). We need %d units. Please provide an invoice.",
		Urgency(in.CurrentStock, in.Threshold), in.Item,
		in.SupplierName,
		in.Item, in.CurrentStock, in.units())
}
