// Package dictionary holds the curated default categories offered to new users.
package dictionary

import "github.com/tinoosan/finledger/internal/ledger"

type CategoryDef struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var curated = map[ledger.CategoryKind][]CategoryDef{
	ledger.CategoryExpense: {
		{Slug: "groceries", Label: "Groceries", Color: "#4caf50"},
		{Slug: "eating_out", Label: "Eating Out", Color: "#ff9800"},
		{Slug: "transport", Label: "Transport", Color: "#2196f3"},
		{Slug: "bills", Label: "Bills & Utilities", Color: "#9c27b0"},
		{Slug: "rent", Label: "Rent", Color: "#795548"},
		{Slug: "health", Label: "Health", Color: "#e91e63"},
		{Slug: "entertainment", Label: "Entertainment", Color: "#00bcd4"},
		{Slug: "shopping", Label: "Shopping", Color: "#ffc107"},
		{Slug: "savings", Label: "Savings & Investments", Color: "#607d8b"},
	},
	ledger.CategoryIncome: {
		{Slug: "salary", Label: "Salary", Color: "#388e3c"},
		{Slug: "business", Label: "Business", Color: "#1976d2"},
		{Slug: "interest", Label: "Interest", Color: "#fbc02d"},
		{Slug: "refund", Label: "Refund", Color: "#7b1fa2"},
		{Slug: "other_income", Label: "Other Income", Color: "#455a64"},
	},
}

// Categories returns the curated defaults for kind.
func Categories(kind ledger.CategoryKind) []CategoryDef {
	defs := curated[kind]
	out := make([]CategoryDef, len(defs))
	copy(out, defs)
	return out
}
