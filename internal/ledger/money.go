package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	_, err := money.ParseCurr(code)
	return err == nil
}

// Zero returns a zero amount in curr.
func Zero(curr string) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, 0)
	return a
}

// FromMinor builds an amount from minor units (cents).
func FromMinor(curr string, units int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, units)
	return a
}

// Minor returns the amount in minor units, rounded to the currency scale.
func Minor(a money.Amount) int64 {
	units, _ := a.RoundToCurr().MinorUnits()
	return units
}

// ParseAmount parses a decimal string with at most two fractional digits.
func ParseAmount(curr, s string) (money.Amount, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.Parse(s)
	if err != nil {
		return money.Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if d.Scale() > 2 {
		return money.Amount{}, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	a, err := money.ParseAmount(curr, s)
	if err != nil {
		return money.Amount{}, err
	}
	return a.RoundToCurr(), nil
}

// MustAmount parses s or panics. Intended for tests and seeds.
func MustAmount(curr, s string) money.Amount {
	a, err := ParseAmount(curr, s)
	if err != nil {
		panic(err)
	}
	return a
}

// FormatAmount renders a as a decimal string with two places, e.g. "1250.50".
func FormatAmount(a money.Amount) string {
	units := Minor(a)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%02d", sign, units/100, units%100)
}

// Sum adds amounts in curr.
func Sum(curr string, amounts ...money.Amount) (money.Amount, error) {
	total := Zero(curr)
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return money.Amount{}, err
		}
	}
	return total, nil
}

// InterestFactor returns 1 + rate/100 * months/12 for simple annual interest.
func InterestFactor(rate decimal.Decimal, months int) (decimal.Decimal, error) {
	x, err := rate.Mul(decimal.MustNew(int64(months), 0))
	if err != nil {
		return decimal.Decimal{}, err
	}
	if x, err = x.Quo(decimal.MustNew(1200, 0)); err != nil {
		return decimal.Decimal{}, err
	}
	return x.Add(decimal.MustNew(1, 0))
}

// ApplyInterest returns principal * InterestFactor(rate, months) rounded to the currency.
func ApplyInterest(principal money.Amount, rate decimal.Decimal, months int) (money.Amount, error) {
	f, err := InterestFactor(rate, months)
	if err != nil {
		return money.Amount{}, err
	}
	out, err := principal.Mul(f)
	if err != nil {
		return money.Amount{}, err
	}
	return out.RoundToCurr(), nil
}

// Percent returns part/whole*100 rounded to two places, or zero when whole is zero.
func Percent(part, whole money.Amount) decimal.Decimal { return PercentExact(part, whole).Round(2) }

// PercentExact is Percent without the rounding, for threshold comparisons.
func PercentExact(part, whole money.Amount) decimal.Decimal {
	w := Minor(whole)
	if w == 0 {
		return decimal.MustNew(0, 0)
	}
	q, err := decimal.MustNew(Minor(part)*100, 0).Quo(decimal.MustNew(w, 0))
	if err != nil {
		return decimal.MustNew(0, 0)
	}
	return q
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.UTC().Format(DateLayout) }

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the calendar day n months after t.
func AddMonths(t time.Time, n int) time.Time { return Day(t).AddDate(0, n, 0) }
