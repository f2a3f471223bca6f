package core

// Category taxonomy is static configuration: an ordered set of allowed
// labels per transaction type, validated at the boundary.
var categoriesByType = map[TransactionType][]string{
	Income: {
		"Salary",
		"Freelance",
		"Investments",
		"Other Income",
	},
	Expense: {
		"Rent",
		"Groceries",
		"Fuel",
		"Transport",
		"Utilities",
		"Health",
		"Entertainment",
		"Other Expense",
	},
}

// CategoriesFor returns the allowed category labels for a transaction type,
// in display order. The returned slice is a copy.
func CategoriesFor(t TransactionType) []string {
	labels, ok := categoriesByType[t]
	if !ok {
		return nil
	}
	return append([]string(nil), labels...)
}

// CategoryAllowed reports whether label is a valid category for the type.
func CategoryAllowed(t TransactionType, label string) bool {
	for _, l := range categoriesByType[t] {
		if l == label {
			return true
		}
	}
	return false
}
