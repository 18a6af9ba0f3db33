// Package pricing resolves unit prices for item names. Resolution is a
// collaborator concern: amount-based adds ("$25 of bread") cannot proceed
// without a price, and failures surface as ErrPriceUnknown.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrPriceUnknown is returned when no resolver can produce a unit price for
// an item name.
var ErrPriceUnknown = errors.New("price unknown")

// Resolver resolves an item name to a unit price.
type Resolver interface {
	UnitPrice(ctx context.Context, name string) (decimal.Decimal, error)
}

// Catalog is a static in-memory price table, keyed case-insensitively.
type Catalog struct {
	prices map[string]decimal.Decimal
}

// NewCatalog creates a catalog seeded with the default grocery price table.
func NewCatalog() *Catalog {
	c := &Catalog{prices: make(map[string]decimal.Decimal)}
	for name, price := range map[string]string{
		"apple":          "3.50",
		"bread":          "5.00",
		"milk":           "2.80",
		"eggs":           "4.20",
		"chicken breast": "8.50",
		"pasta":          "3.00",
		"tomatoes":       "2.50",
	} {
		c.prices[name] = decimal.RequireFromString(price)
	}
	return c
}

// Set adds or replaces a catalog entry.
func (c *Catalog) Set(name string, price decimal.Decimal) {
	c.prices[normalize(name)] = price
}

// UnitPrice looks the name up in the catalog.
func (c *Catalog) UnitPrice(_ context.Context, name string) (decimal.Decimal, error) {
	price, ok := c.prices[normalize(name)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q is not in the catalog", ErrPriceUnknown, name)
	}
	return price, nil
}

// Chain tries each resolver in order, returning the first resolved price.
// Only ErrPriceUnknown falls through to the next resolver; any other failure
// stops the chain.
type Chain []Resolver

// UnitPrice implements Resolver.
func (ch Chain) UnitPrice(ctx context.Context, name string) (decimal.Decimal, error) {
	for _, r := range ch {
		price, err := r.UnitPrice(ctx, name)
		if err == nil {
			return price, nil
		}
		if !errors.Is(err, ErrPriceUnknown) {
			return decimal.Zero, err
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no resolver knows %q", ErrPriceUnknown, name)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
