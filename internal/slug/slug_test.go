package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Eating Out":        "eating_out",
		"  Rent & Bills!! ": "rent_bills",
		"DPS__Payment":      "dps_payment",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
		if !IsSlug(want) {
			t.Fatalf("%q should be a slug", want)
		}
	}
	if IsSlug("x") || IsSlug("Has Space") {
		t.Fatalf("invalid slugs accepted")
	}
}

func TestUnique(t *testing.T) {
	taken := map[string]bool{"food": true, "food_2": true}
	if got := Unique("food", func(s string) bool { return taken[s] }); got != "food_3" {
		t.Fatalf("got %q", got)
	}
	if got := Unique("rent", func(s string) bool { return taken[s] }); got != "rent" {
		t.Fatalf("got %q", got)
	}
}
