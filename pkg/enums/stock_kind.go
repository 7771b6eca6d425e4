package enums

import "fmt"

// StockKind distinguishes the two resource families the ledger tracks:
// pharmacy medicines keyed by SKU and blood units keyed by type code.
type StockKind string

const (
	StockKindMedicine StockKind = "medicine"
	StockKindBlood    StockKind = "blood"
)

var validStockKinds = []StockKind{StockKindMedicine, StockKindBlood}

func (k StockKind) String() string {
	return string(k)
}

func (k StockKind) IsValid() bool {
	for _, candidate := range validStockKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseStockKind converts raw input into a StockKind.
func ParseStockKind(value string) (StockKind, error) {
	for _, candidate := range validStockKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock kind %q", value)
}
