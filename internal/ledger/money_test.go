package ledger

import (
	"testing"
	"time"

	"github.com/govalues/decimal"
)

func TestParseAndFormatAmount(t *testing.T) {
	cases := map[string]string{
		"1000":    "1000.00",
		"250.5":   "250.50",
		"0.01":    "0.01",
		" 300.00": "300.00",
	}
	for in, want := range cases {
		a, err := ParseAmount("USD", in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got := FormatAmount(a); got != want {
			t.Fatalf("format %q: got %s want %s", in, got, want)
		}
	}
	if _, err := ParseAmount("USD", "1.005"); err == nil {
		t.Fatalf("expected error for three decimal places")
	}
	if _, err := ParseAmount("USD", "abc"); err == nil {
		t.Fatalf("expected error for garbage")
	}
}

func TestFormatNegative(t *testing.T) {
	if got := FormatAmount(FromMinor("USD", -5)); got != "-0.05" {
		t.Fatalf("got %s", got)
	}
}

func TestApplyInterest(t *testing.T) {
	// 1200.00 at 6% for 12 months -> 1272.00
	got, err := ApplyInterest(MustAmount("USD", "1200.00"), decimal.MustNew(6, 0), 12)
	if err != nil {
		t.Fatalf("interest: %v", err)
	}
	if FormatAmount(got) != "1272.00" {
		t.Fatalf("got %s", FormatAmount(got))
	}
}

func TestPercentZeroWhole(t *testing.T) {
	p := Percent(MustAmount("USD", "10.00"), Zero("USD"))
	if p.Cmp(decimal.MustNew(0, 0)) != 0 {
		t.Fatalf("expected 0, got %s", p)
	}
	p = Percent(MustAmount("USD", "25.00"), MustAmount("USD", "100.00"))
	if p.Cmp(decimal.MustNew(25, 0)) != 0 {
		t.Fatalf("expected 25, got %s", p)
	}
}

func TestAddMonthsAndCovers(t *testing.T) {
	start := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	if got := FormatDate(AddMonths(start, 1)); got != "2024-02-15" {
		t.Fatalf("got %s", got)
	}
	b := Budget{StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}
	if !b.Covers(time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)) {
		t.Fatalf("end date must be inclusive")
	}
	if b.Covers(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after end must not be covered")
	}
}
