// Package assistant dispatches parsed intents against the shopping-list
// core. It owns the per-command state machine
// (Idle -> Parsing -> Dispatching -> {Mutated, Queried, Rejected} -> Idle)
// and converts every component failure into a user-facing response, so a bad
// command never ends the session.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/8ft0/smolagent-cookbook/internal/intent"
	"github.com/8ft0/smolagent-cookbook/internal/ledger"
	"github.com/8ft0/smolagent-cookbook/internal/metrics"
	"github.com/8ft0/smolagent-cookbook/internal/pricing"
	"github.com/8ft0/smolagent-cookbook/internal/report"
	"github.com/8ft0/smolagent-cookbook/internal/solver"
)

// State is the dispatcher's position in the command lifecycle.
type State int

const (
	StateIdle State = iota
	StateParsing
	StateDispatching
	StateMutated
	StateQueried
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StateDispatching:
		return "dispatching"
	case StateMutated:
		return "mutated"
	case StateQueried:
		return "queried"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Error codes carried on rejected responses.
const (
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodePriceUnknown        = "PRICE_UNKNOWN"
	CodeUnsatisfiableTarget = "UNSATISFIABLE_TARGET"
	CodeItemNotFound        = "ITEM_NOT_FOUND"
	CodeParseFailure        = "PARSE_FAILURE"
)

// Response is the payload assembled for one executed command. It carries
// enough structure for either presentation shape: a plain confirmation
// message, or the structured {list_id, items} object plus the rendered bill.
type Response struct {
	State       State               `json:"-"`
	Outcome     string              `json:"outcome"`
	Message     string              `json:"message"`
	ListID      int64               `json:"list_id"`
	Items       []report.Line       `json:"items"`
	Total       decimal.Decimal     `json:"total"`
	Bill        string              `json:"bill,omitempty"`
	Adjustments []solver.Adjustment `json:"adjustments,omitempty"`
	ErrorCode   string              `json:"error_code,omitempty"`
}

// Assistant executes free-text commands against the ledger store. Commands
// are processed one at a time, fully, before the next is accepted.
type Assistant struct {
	parser  intent.Parser
	prices  pricing.Resolver
	lists   *ledger.Store
	metrics *metrics.Store // optional
	state   State
}

// New creates an Assistant. The metrics store may be nil.
func New(parser intent.Parser, prices pricing.Resolver, lists *ledger.Store, store *metrics.Store) *Assistant {
	return &Assistant{
		parser:  parser,
		prices:  prices,
		lists:   lists,
		metrics: store,
		state:   StateIdle,
	}
}

// State reports the dispatcher's current state.
func (a *Assistant) State() State {
	return a.state
}

// Execute runs one command end to end: parse via the language collaborator,
// dispatch, respond. The session always returns to Idle.
func (a *Assistant) Execute(ctx context.Context, listID int64, text string) Response {
	start := time.Now()
	defer func() { a.state = StateIdle }()

	a.state = StateParsing
	parsed, err := a.parser.Parse(ctx, text)
	if err != nil {
		log.Printf("Failed to parse command %q: %v", text, err)
		resp := a.reject(listID, CodeParseFailure, "Sorry, I couldn't understand that command. Try something like \"add 2 tomatoes\".")
		a.record(ctx, listID, "unparsed", resp, parsed.Meta, time.Since(start))
		return resp
	}

	a.state = StateDispatching
	resp := a.dispatch(ctx, listID, parsed.Intent)
	a.state = resp.State
	a.record(ctx, listID, string(parsed.Intent.Kind), resp, parsed.Meta, time.Since(start))
	return resp
}

func (a *Assistant) dispatch(ctx context.Context, listID int64, in intent.Intent) Response {
	switch in.Kind {
	case intent.KindAdd:
		return a.handleAdd(ctx, listID, in)
	case intent.KindRemove:
		return a.handleRemove(listID, in)
	case intent.KindSetQuantity:
		return a.handleSetQuantity(listID, in)
	case intent.KindQuery:
		return a.handleQuery(listID)
	case intent.KindPriceLookup:
		return a.handlePriceLookup(ctx, listID, in)
	case intent.KindApplyBudget:
		return a.handleApplyBudget(listID, in)
	case intent.KindSolveExactTotal:
		return a.handleExactTotal(listID, in)
	}
	return a.reject(listID, CodeParseFailure, fmt.Sprintf("I don't know how to handle a %q command.", in.Kind))
}

func (a *Assistant) handleAdd(ctx context.Context, listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)

	var confirmations []string
	for _, spec := range in.Items {
		quantity, unitPrice, err := a.resolveSpec(ctx, l, spec)
		if err != nil {
			return a.rejectErr(listID, err)
		}

		item, err := l.Add(spec.Name, quantity, unitPrice)
		if err != nil {
			return a.rejectErr(listID, err)
		}

		if item.UnitPrice.IsPositive() {
			confirmations = append(confirmations, fmt.Sprintf("Added %s %s (%s each), now %s on the list",
				quantity, item.Name, report.Currency(item.UnitPrice), item.Quantity))
		} else {
			confirmations = append(confirmations, fmt.Sprintf("Added %s %s, now %s on the list",
				quantity, item.Name, item.Quantity))
		}
	}

	resp := a.snapshotResponse(listID, StateMutated)
	resp.Message = strings.Join(confirmations, ". ") + "."
	return resp
}

func (a *Assistant) handleRemove(listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)

	var confirmations []string
	for _, spec := range in.Items {
		quantity := spec.Quantity
		if !quantity.IsPositive() {
			// No quantity means "remove it entirely".
			if current, ok := l.Get(spec.Name); ok {
				quantity = current.Quantity
			} else {
				quantity = decimal.NewFromInt(1)
			}
		}

		item, existed, err := l.Remove(spec.Name, quantity)
		if err != nil {
			return a.rejectErr(listID, err)
		}

		switch {
		case !existed:
			confirmations = append(confirmations, fmt.Sprintf("%s wasn't on the list", spec.Name))
		case item.Quantity.IsZero():
			confirmations = append(confirmations, fmt.Sprintf("Removed %s from the list", item.Name))
		default:
			confirmations = append(confirmations, fmt.Sprintf("Removed %s %s, %s left",
				quantity, item.Name, item.Quantity))
		}
	}

	resp := a.snapshotResponse(listID, StateMutated)
	resp.Message = strings.Join(confirmations, ". ") + "."
	if len(resp.Items) == 0 {
		resp.Message += " Your shopping list is now empty."
	}
	return resp
}

func (a *Assistant) handleSetQuantity(listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)

	var confirmations []string
	for _, spec := range in.Items {
		item, err := l.SetQuantity(spec.Name, spec.Quantity)
		if err != nil {
			return a.rejectErr(listID, err)
		}
		if spec.Quantity.IsZero() {
			confirmations = append(confirmations, fmt.Sprintf("Removed %s from the list", spec.Name))
		} else {
			confirmations = append(confirmations, fmt.Sprintf("Set %s to %s", item.Name, item.Quantity))
		}
	}

	resp := a.snapshotResponse(listID, StateMutated)
	resp.Message = strings.Join(confirmations, ". ") + "."
	return resp
}

func (a *Assistant) handleQuery(listID int64) Response {
	resp := a.snapshotResponse(listID, StateQueried)
	if len(resp.Items) == 0 {
		resp.Message = "Your shopping list is empty."
		return resp
	}
	resp.Message = fmt.Sprintf("You have %d item(s) on your list, totalling %s.",
		len(resp.Items), report.Currency(resp.Total))
	return resp
}

func (a *Assistant) handlePriceLookup(ctx context.Context, listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)

	var answers []string
	for _, spec := range in.Items {
		if item, ok := l.Get(spec.Name); ok && item.UnitPrice.IsPositive() {
			answers = append(answers, fmt.Sprintf("%s costs %s per unit", item.Name, report.Currency(item.UnitPrice)))
			continue
		}
		price, err := a.prices.UnitPrice(ctx, spec.Name)
		if err != nil {
			return a.rejectErr(listID, err)
		}
		answers = append(answers, fmt.Sprintf("%s costs %s per unit", spec.Name, report.Currency(price)))
	}

	resp := a.snapshotResponse(listID, StateQueried)
	resp.Message = strings.Join(answers, ". ") + "."
	return resp
}

func (a *Assistant) handleApplyBudget(listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)

	if perItem := in.Constraints.MaxPerItem; perItem.IsPositive() {
		check, err := solver.CheckPerItemCap(l.Snapshot(), perItem)
		if err != nil {
			return a.rejectErr(listID, err)
		}

		resp := a.snapshotResponse(listID, StateQueried)
		if check.Compliant {
			resp.Message = fmt.Sprintf("Every item is already within %s per item. No changes needed.", report.Currency(perItem))
			return resp
		}

		var offenders []string
		for _, line := range check.Offending {
			offenders = append(offenders, fmt.Sprintf("%s (%s)", line.Name, report.Currency(line.UnitPrice)))
		}
		resp.Message = fmt.Sprintf("These items exceed %s per item: %s. Unit prices are fixed, so nothing was changed.",
			report.Currency(perItem), strings.Join(offenders, ", "))
		return resp
	}

	budget := in.Constraints.MaxTotal
	result, err := solver.ApplyBudgetCap(l, budget)
	if err != nil {
		return a.rejectErr(listID, err)
	}

	if !result.Changed {
		resp := a.snapshotResponse(listID, StateQueried)
		resp.Message = fmt.Sprintf("Your list already fits the %s budget (total %s). No changes needed.",
			report.Currency(budget), report.Currency(result.Total))
		return resp
	}

	resp := a.snapshotResponse(listID, StateMutated)
	resp.Adjustments = result.Adjustments
	resp.Message = fmt.Sprintf("Scaled your list down to fit %s. New total: %s.",
		report.Currency(budget), report.Currency(result.Total))
	return resp
}

func (a *Assistant) handleExactTotal(listID int64, in intent.Intent) Response {
	l := a.lists.List(listID)
	target := in.Constraints.ExactTotal

	result, err := solver.SolveExactTotal(l, target)
	if err != nil {
		if errors.Is(err, solver.ErrUnsatisfiableTarget) {
			resp := a.reject(listID, CodeUnsatisfiableTarget, fmt.Sprintf(
				"I can't hit exactly %s by adjusting a single item. The nearest achievable total is %s.",
				report.Currency(target), report.Currency(result.Nearest)))
			return resp
		}
		return a.rejectErr(listID, err)
	}

	if !result.Changed {
		resp := a.snapshotResponse(listID, StateQueried)
		resp.Message = fmt.Sprintf("Your total is already exactly %s. No changes needed.", report.Currency(target))
		return resp
	}

	adj := result.Adjustments[0]
	resp := a.snapshotResponse(listID, StateMutated)
	resp.Adjustments = result.Adjustments
	resp.Message = fmt.Sprintf("Adjusted %s from %s to %s. Your total is now exactly %s.",
		adj.Name, adj.From, adj.To, report.Currency(result.Total))
	return resp
}

// resolveSpec turns an ItemSpec into a concrete quantity and unit price.
// Relative quantities resolve against the referenced item's quantity at this
// moment; later changes to the referenced item do not back-propagate.
func (a *Assistant) resolveSpec(ctx context.Context, l *ledger.List, spec intent.ItemSpec) (quantity, unitPrice decimal.Decimal, err error) {
	unitPrice = spec.UnitPrice

	switch {
	case spec.RelativeTo != "":
		ref, ok := l.Get(spec.RelativeTo)
		if !ok {
			return decimal.Zero, decimal.Zero,
				fmt.Errorf("%w: %q is not on the list to compare against", ledger.ErrItemNotFound, spec.RelativeTo)
		}
		if !spec.Factor.IsPositive() {
			return decimal.Zero, decimal.Zero,
				fmt.Errorf("%w: relative factor must be positive", ledger.ErrInvalidQuantity)
		}
		quantity = ref.Quantity.Mul(spec.Factor)

	case spec.Amount.IsPositive():
		if !unitPrice.IsPositive() {
			unitPrice, err = a.prices.UnitPrice(ctx, spec.Name)
			if err != nil {
				return decimal.Zero, decimal.Zero, err
			}
		}
		quantity = spec.Amount.Div(unitPrice)

	default:
		quantity = spec.Quantity
	}

	// Count-based adds work without a price; resolution is best effort and
	// an unknown price stays at zero.
	if !unitPrice.IsPositive() {
		if resolved, lookupErr := a.prices.UnitPrice(ctx, spec.Name); lookupErr == nil {
			unitPrice = resolved
		}
	}

	return quantity, unitPrice, nil
}

// snapshotResponse builds a response carrying the list's current itemized
// state and rendered bill.
func (a *Assistant) snapshotResponse(listID int64, state State) Response {
	bill := report.BuildBill(a.lists.List(listID).Snapshot())
	return Response{
		State:   state,
		Outcome: state.String(),
		ListID:  listID,
		Items:   bill.Lines,
		Total:   bill.Total,
		Bill:    report.RenderBill(bill),
	}
}

func (a *Assistant) reject(listID int64, code, message string) Response {
	resp := a.snapshotResponse(listID, StateRejected)
	resp.ErrorCode = code
	resp.Message = message
	return resp
}

func (a *Assistant) rejectErr(listID int64, err error) Response {
	code := CodeParseFailure
	switch {
	case errors.Is(err, ledger.ErrInvalidQuantity):
		code = CodeInvalidQuantity
	case errors.Is(err, pricing.ErrPriceUnknown):
		code = CodePriceUnknown
	case errors.Is(err, ledger.ErrItemNotFound):
		code = CodeItemNotFound
	case errors.Is(err, solver.ErrUnsatisfiableTarget):
		code = CodeUnsatisfiableTarget
	}
	return a.reject(listID, code, fmt.Sprintf("Sorry, that didn't work: %v.", err))
}

func (a *Assistant) record(ctx context.Context, listID int64, kind string, resp Response, meta intent.Meta, latency time.Duration) {
	if a.metrics == nil {
		return
	}
	err := a.metrics.Record(ctx, metrics.CommandMetric{
		ListID:           listID,
		IntentKind:       kind,
		Outcome:          resp.State.String(),
		Model:            meta.Usage.Model,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        latency.Milliseconds(),
	})
	if err != nil {
		log.Printf("Warning: failed to record command metric: %v", err)
	}
}
