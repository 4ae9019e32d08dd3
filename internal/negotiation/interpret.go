package negotiation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/erazemk/nabava/internal/model"
	"github.com/shopspring/decimal"
)

// MinUnitsLiteral is the smallest number in an instruction read as a unit count.
const MinUnitsLiteral = 50

// DiscountFactor is applied when an instruction asks for a discount.
var DiscountFactor = decimal.RequireFromString("0.85")

var integerLiteral = regexp.MustCompile(`\d+`)

// Interpret applies a free-text operator instruction to a pending order.
// The last integer literal between MinUnitsLiteral and model.MaxQuantity
// becomes the unit count. "discount" or "off" anywhere in the text takes 15% off the price.
func Interpret(instruction string, currentUnits int, unitCost decimal.Decimal) (int, decimal.Decimal) {
	units := currentUnits
	for _, lit := range integerLiteral.FindAllString(instruction, -1) {
		n, err := strconv.Atoi(lit)
		if err != nil {
			// Too large for int.
			continue
		}
		if n >= MinUnitsLiteral && n <= model.MaxQuantity {
			units = n
		}
	}

	price := unitCost.Mul(decimal.NewFromInt(int64(units)))
	if WantsDiscount(instruction) {
		price = price.Mul(DiscountFactor)
	}
	return units, price
}

// WantsDiscount reports whether instruction asks for a price reduction.
func WantsDiscount(instruction string) bool {
	lower := strings.ToLower(instruction)
	return strings.Contains(lower, "discount") || strings.Contains(lower, "off")
}
