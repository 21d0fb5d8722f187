package resource

import "strings"

// Employees describes the read-mostly employees collection. Its columns are
// whatever the server's table holds, so no field order is fixed.
func Employees() Definition {
	return Definition{
		Name:       "employees",
		Collection: "/api/employees",
		Health:     "/api/health",
		Required:   []string{"name"},
	}.WithDefaults()
}

// Holdings describes an investment holdings collection with a derived
// position value.
func Holdings() Definition {
	two := 2
	return Definition{
		Name:       "holdings",
		Collection: "/api/holdings",
		Health:     "/api/health",
		Fields:     []string{"id", "symbol", "amount", "price", "value", "currency", "purchased_on", "created_at"},
		Aliases: map[string]string{
			"ticker": "symbol",
			"date":   "purchased_on",
		},
		Required:         []string{"ticker", "amount", "price"},
		Numeric:          []string{"amount", "price", "value"},
		ResetAfterCreate: []string{"amount", "price", "value"},
		Defaults: map[string]any{
			"amount":   0,
			"price":    0,
			"value":    0,
			"currency": "USD",
		},
		Derived: []DerivedField{
			{Field: "value", Expr: "amount * price", Precision: &two},
		},
		Rules: []Rule{
			{Field: "amount", Expr: "amount >= 0", Message: "amount must not be negative"},
			{Field: "price", Expr: "price >= 0", Message: "price must not be negative"},
		},
	}.WithDefaults()
}

// Builtin returns the built-in definition called name.
func Builtin(name string) (Definition, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "employees":
		return Employees(), true
	case "holdings":
		return Holdings(), true
	default:
		return Definition{}, false
	}
}
