package interpreter

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// subDollar formats prices below one dollar with four decimals.
var subDollar = money.NewFormatter(4, ".", ",", "$", "$1")

// FormatUSD renders amount as US currency with thousands separators, e.g.
// "$67,234.56". Amounts below one dollar keep four decimals ("$0.4567").
func FormatUSD(amount decimal.Decimal) string {
	if amount.Abs().LessThan(decimal.NewFromInt(1)) && !amount.IsZero() {
		return subDollar.Format(amount.Shift(4).Round(0).IntPart())
	}
	cur := *money.New(0, money.USD).Currency()
	return cur.Formatter().Format(amount.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// FormatBillions renders amount in billions with two decimals, without
// grouping: 1.32e12 becomes "1320.00".
func FormatBillions(amount decimal.Decimal) string {
	return amount.Div(decimal.New(1, 9)).StringFixed(2)
}

// FormatPct renders the magnitude of pct with two decimals.
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.2f", math.Abs(pct))
}

func direction(pct float64) string {
	if pct > 0 {
		return "up"
	}
	return "down"
}
