package fetcher

import (
	"strings"

	"github.com/shopspring/decimal"
)

var cellCleaner = strings.NewReplacer("₹", "", ",", "")

// ParsePriceCell extracts a number from cells like "₹6,123" or "6,123.50 INR".
// The boolean is false when the cell is empty or the first token is not numeric.
func ParsePriceCell(cell string) (decimal.Decimal, bool) {
	fields := strings.Fields(cellCleaner.Replace(cell))
	if len(fields) == 0 {
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(fields[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return price, true
}
