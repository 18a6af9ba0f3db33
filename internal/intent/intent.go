// Package intent defines the structured command representation produced by
// the language-understanding collaborator, and the parser backends that talk
// to it. The core never sees raw text: a Parser turns free text into an
// Intent, and everything downstream is deterministic.
package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies what a parsed command asks for.
type Kind string

const (
	KindAdd             Kind = "add"
	KindRemove          Kind = "remove"
	KindSetQuantity     Kind = "set_quantity"
	KindQuery           Kind = "query"
	KindPriceLookup     Kind = "price_lookup"
	KindApplyBudget     Kind = "apply_budget"
	KindSolveExactTotal Kind = "solve_exact_total"
)

// ItemSpec describes one item referenced by a command. Exactly one of
// Quantity, Amount, or RelativeTo/Factor carries the requested size:
// Amount is a monetary value ("$25 of bread"), and RelativeTo names
// another item whose current quantity is multiplied by Factor ("twice as
// many eggs as tomatoes").
type ItemSpec struct {
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price,omitempty"`
	RelativeTo string          `json:"relative_to,omitempty"`
	Factor     decimal.Decimal `json:"factor,omitempty"`
}

// Constraints carries the target of a budget or exact-total command.
type Constraints struct {
	MaxPerItem decimal.Decimal `json:"max_per_item,omitempty"`
	MaxTotal   decimal.Decimal `json:"max_total,omitempty"`
	ExactTotal decimal.Decimal `json:"exact_total,omitempty"`
}

// Intent is a structured, already-parsed user command.
type Intent struct {
	Kind        Kind        `json:"kind"`
	Items       []ItemSpec  `json:"items,omitempty"`
	Constraints Constraints `json:"constraints"`
}

// TokenUsage tracks the tokens consumed by a parse request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Meta holds operational metadata for one parser execution.
type Meta struct {
	Backend string
	Usage   TokenUsage
	Latency time.Duration
}

// Result is a parsed intent plus execution metadata.
type Result struct {
	Intent Intent
	Meta   Meta
}

// Parser is the language-understanding collaborator interface.
type Parser interface {
	Parse(ctx context.Context, text string) (Result, error)
}

// Validate checks that the intent is dispatchable.
func (in Intent) Validate() error {
	switch in.Kind {
	case KindAdd, KindRemove, KindSetQuantity, KindPriceLookup:
		if len(in.Items) == 0 {
			return fmt.Errorf("intent %q names no items", in.Kind)
		}
	case KindQuery:
	case KindApplyBudget:
		if !in.Constraints.MaxPerItem.IsPositive() && !in.Constraints.MaxTotal.IsPositive() {
			return fmt.Errorf("budget intent carries no positive cap")
		}
	case KindSolveExactTotal:
		if !in.Constraints.ExactTotal.IsPositive() {
			return fmt.Errorf("exact-total intent carries no positive target")
		}
	default:
		return fmt.Errorf("unknown intent kind %q", in.Kind)
	}
	return nil
}
