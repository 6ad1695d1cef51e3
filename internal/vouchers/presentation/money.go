package presentation

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const defaultMinorScale = 2

var moneyPrinter = message.NewPrinter(language.English)

// Money formats an amount stored in minor units as "<ISO code> <grouped major amount>", e.g.
// "MYR 1,234.50". Unknown codes keep two decimal places.
func Money(minor int64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := defaultMinorScale
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	amount := groupedDecimal(decimal.New(minor, -int32(scale)), int32(scale))
	if code == "" {
		return amount
	}
	return code + " " + amount
}

// groupedDecimal renders value with thousands separators on the integer part and exactly scale
// fraction digits. The integer part is grouped as an int64 so no float conversion is involved.
func groupedDecimal(value decimal.Decimal, scale int32) string {
	whole := value.Truncate(0)
	amount := moneyPrinter.Sprint(number.Decimal(whole.Abs().IntPart()))
	if value.IsNegative() {
		amount = "-" + amount
	}
	if scale > 0 {
		// StringFixed yields "0.xx" for the fraction part.
		amount += value.Sub(whole).Abs().StringFixed(scale)[1:]
	}
	return amount
}

// Percentage formats basis points as a percentage without trailing zeros, e.g. 1250 → "12.5%".
func Percentage(basisPoints int64) string {
	return decimal.New(basisPoints, -2).String() + "%"
}
