package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a non-positive quantity or amount is supplied.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrItemNotFound is returned when a direct lookup names an item absent from the list.
	ErrItemNotFound = errors.New("item not found")
)

// Item is a single priced entry in a shopping list.
// A zero UnitPrice means the price is not known yet; line totals treat it as 0.
type Item struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns Quantity * UnitPrice, unrounded.
func (i Item) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// List is the authoritative in-memory table of items for one shopping list.
// Item names are a case-insensitive identity: re-adding a name merges
// quantities instead of creating a duplicate row. Insertion order is
// preserved for display.
type List struct {
	id    int64
	items []*Item
	index map[string]*Item
}

// NewList creates an empty list with the given id.
func NewList(id int64) *List {
	return &List{
		id:    id,
		index: make(map[string]*Item),
	}
}

// ID returns the stable identifier of this list.
func (l *List) ID() int64 {
	return l.id
}

// Len returns the number of distinct items on the list.
func (l *List) Len() int {
	return len(l.items)
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Add merges quantity into an existing entry or appends a new one.
// The display casing of the first add wins. A known unit price is adopted
// by an entry whose price was unknown; an already-known price is never
// overwritten, keeping the per-item price consistent.
func (l *List) Add(name string, quantity, unitPrice decimal.Decimal) (Item, error) {
	if !quantity.IsPositive() {
		return Item{}, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidQuantity, quantity)
	}
	if unitPrice.IsNegative() {
		return Item{}, fmt.Errorf("%w: unit price cannot be negative", ErrInvalidQuantity)
	}

	if existing, ok := l.index[key(name)]; ok {
		existing.Quantity = existing.Quantity.Add(quantity)
		if existing.UnitPrice.IsZero() && unitPrice.IsPositive() {
			existing.UnitPrice = unitPrice
		}
		return *existing, nil
	}

	item := &Item{Name: strings.TrimSpace(name), Quantity: quantity, UnitPrice: unitPrice}
	l.items = append(l.items, item)
	l.index[key(name)] = item
	return *item, nil
}

// Remove decrements an entry's quantity, clamping at zero and dropping the
// entry when nothing remains. Removing a name that is not on the list is a
// no-op success, reported via the second return value.
func (l *List) Remove(name string, quantity decimal.Decimal) (Item, bool, error) {
	if !quantity.IsPositive() {
		return Item{}, false, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidQuantity, quantity)
	}

	existing, ok := l.index[key(name)]
	if !ok {
		return Item{}, false, nil
	}

	remaining := existing.Quantity.Sub(quantity)
	if remaining.IsPositive() {
		existing.Quantity = remaining
		return *existing, true, nil
	}

	removed := *existing
	removed.Quantity = decimal.Zero
	l.drop(key(name))
	return removed, true, nil
}

// SetQuantity sets an entry's quantity absolutely. Setting zero drops the
// entry; setting a quantity for an unknown name creates the entry with an
// unknown price. Used by the constraint solver and the "set" intent.
func (l *List) SetQuantity(name string, quantity decimal.Decimal) (Item, error) {
	if quantity.IsNegative() {
		return Item{}, fmt.Errorf("%w: quantity cannot be negative, got %s", ErrInvalidQuantity, quantity)
	}

	existing, ok := l.index[key(name)]
	if !ok {
		if quantity.IsZero() {
			return Item{}, nil
		}
		return l.Add(name, quantity, decimal.Zero)
	}

	if quantity.IsZero() {
		removed := *existing
		removed.Quantity = decimal.Zero
		l.drop(key(name))
		return removed, nil
	}

	existing.Quantity = quantity
	return *existing, nil
}

// Get returns the current state of a named entry.
func (l *List) Get(name string) (Item, bool) {
	existing, ok := l.index[key(name)]
	if !ok {
		return Item{}, false
	}
	return *existing, true
}

// Snapshot returns a read-only copy of the items in insertion order.
func (l *List) Snapshot() []Item {
	out := make([]Item, len(l.items))
	for i, item := range l.items {
		out[i] = *item
	}
	return out
}

func (l *List) drop(k string) {
	delete(l.index, k)
	for i, item := range l.items {
		if key(item.Name) == k {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}
