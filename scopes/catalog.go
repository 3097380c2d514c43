// Package scopes is the static registry of the permission strings an
// application can request. Scopes take the form "resource.action", are
// grouped by resource for the consent screen, and named presets map onto
// fixed scope lists.
package scopes

import "sort"

// Scope identifiers.
const (
	OrdersRead        = "orders.read"
	OrdersWrite       = "orders.write"
	ProductsRead      = "products.read"
	ProductsWrite     = "products.write"
	CustomersRead     = "customers.read"
	CustomersWrite    = "customers.write"
	InventoryRead     = "inventory.read"
	InventoryWrite    = "inventory.write"
	DiscountsRead     = "discounts.read"
	DiscountsWrite    = "discounts.write"
	FulfillmentsRead  = "fulfillments.read"
	FulfillmentsWrite = "fulfillments.write"
	AnalyticsRead     = "analytics.read"
	WebhooksManage    = "webhooks.manage"
)

var descriptions = map[string]string{
	OrdersRead:        "Read orders and order line items",
	OrdersWrite:       "Create and update orders",
	ProductsRead:      "Read products, variants and collections",
	ProductsWrite:     "Create and update products, variants and collections",
	CustomersRead:     "Read customer profiles",
	CustomersWrite:    "Create and update customer profiles",
	InventoryRead:     "Read inventory levels and locations",
	InventoryWrite:    "Adjust inventory levels",
	DiscountsRead:     "Read discounts and price rules",
	DiscountsWrite:    "Create and update discounts and price rules",
	FulfillmentsRead:  "Read fulfillments and shipments",
	FulfillmentsWrite: "Create and update fulfillments and shipments",
	AnalyticsRead:     "Read store reports and analytics",
	WebhooksManage:    "Register and manage webhook subscriptions",
}

var groups = map[string][]string{
	"orders":       {OrdersRead, OrdersWrite},
	"products":     {ProductsRead, ProductsWrite},
	"customers":    {CustomersRead, CustomersWrite},
	"inventory":    {InventoryRead, InventoryWrite},
	"discounts":    {DiscountsRead, DiscountsWrite},
	"fulfillments": {FulfillmentsRead, FulfillmentsWrite},
	"analytics":    {AnalyticsRead},
	"webhooks":     {WebhooksManage},
}

var presets = map[string][]string{
	"read_only": {
		OrdersRead, ProductsRead, CustomersRead, InventoryRead,
		DiscountsRead, FulfillmentsRead, AnalyticsRead,
	},
	"full_access": {
		OrdersRead, OrdersWrite, ProductsRead, ProductsWrite,
		CustomersRead, CustomersWrite, InventoryRead, InventoryWrite,
		DiscountsRead, DiscountsWrite, FulfillmentsRead, FulfillmentsWrite,
		AnalyticsRead, WebhooksManage,
	},
	"storefront": {
		ProductsRead, InventoryRead, DiscountsRead,
	},
	"fulfillment": {
		OrdersRead, FulfillmentsRead, FulfillmentsWrite, InventoryRead,
	},
}

// All returns every known scope with its human-readable description.
func All() map[string]string {
	out := make(map[string]string, len(descriptions))
	for scope, desc := range descriptions {
		out[scope] = desc
	}
	return out
}

// Grouped returns scopes grouped by resource, each group sorted.
func Grouped() map[string][]string {
	out := make(map[string][]string, len(groups))
	for category, list := range groups {
		cloned := append([]string(nil), list...)
		sort.Strings(cloned)
		out[category] = cloned
	}
	return out
}

// Presets returns the named scope presets.
func Presets() map[string][]string {
	out := make(map[string][]string, len(presets))
	for name, list := range presets {
		out[name] = append([]string(nil), list...)
	}
	return out
}

// IsValid reports whether the given scope is a known catalog entry.
func IsValid(scope string) bool {
	_, ok := descriptions[scope]
	return ok
}

// Describe returns the description for a scope, or an empty string for
// unknown scopes.
func Describe(scope string) string {
	return descriptions[scope]
}
