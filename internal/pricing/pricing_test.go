package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLineTotalAppliesDiscountAfterMultiplication(t *testing.T) {
	// 1000.00 * 3 units at 25% off must come out to exactly 2250.00.
	got := LineTotal(LineInput{
		UnitPrice:       decimal.RequireFromString("1000.00"),
		DiscountPercent: decimal.RequireFromString("25"),
		Quantity:        3,
	})
	if want := decimal.RequireFromString("2250.00"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestLineTotalRoundsToTwoPlaces(t *testing.T) {
	got := LineTotal(LineInput{
		UnitPrice:       decimal.RequireFromString("9.99"),
		DiscountPercent: decimal.RequireFromString("7.5"),
		Quantity:        7,
	})
	// 9.99 * 7 = 69.93, * 0.925 = 64.68525 -> 64.69
	if want := decimal.RequireFromString("64.69"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got.Exponent() < -2 {
		t.Fatalf("expected at most 2 decimal places, got %s", got)
	}
}

func TestLineTotalZeroDiscount(t *testing.T) {
	got := LineTotal(LineInput{
		UnitPrice: decimal.RequireFromString("12.50"),
		Quantity:  4,
	})
	if want := decimal.RequireFromString("50.00"); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestClampDiscountBounds(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"negative clamps to zero", "-10", "0"},
		{"above hundred clamps", "150", "100"},
		{"in range unchanged", "33.5", "33.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClampDiscount(decimal.RequireFromString(tc.in))
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestLineTotalFullDiscountIsFree(t *testing.T) {
	got := LineTotal(LineInput{
		UnitPrice:       decimal.RequireFromString("42.00"),
		DiscountPercent: decimal.RequireFromString("100"),
		Quantity:        2,
	})
	if !got.IsZero() {
		t.Fatalf("expected zero, got %s", got)
	}
}

func TestLineTotalNonPositiveQuantity(t *testing.T) {
	got := LineTotal(LineInput{
		UnitPrice: decimal.RequireFromString("5.00"),
		Quantity:  0,
	})
	if !got.IsZero() {
		t.Fatalf("expected zero for zero quantity, got %s", got)
	}
}

func TestOrderTotalSumsLines(t *testing.T) {
	total := OrderTotal([]LineInput{
		{UnitPrice: decimal.RequireFromString("1000.00"), DiscountPercent: decimal.RequireFromString("25"), Quantity: 3},
		{UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
	})
	if want := decimal.RequireFromString("2270.00"); !total.Equal(want) {
		t.Fatalf("expected %s, got %s", want, total)
	}
}
