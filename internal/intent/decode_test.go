package intent

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestBuildPromptEmbedsCommand(t *testing.T) {
	prompt, err := buildPrompt("add 2 apples")
	if err != nil {
		t.Fatalf("buildPrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "add 2 apples") {
		t.Error("Expected the command to appear in the rendered prompt")
	}
}

func TestDecodeIntentPlainJSON(t *testing.T) {
	in, err := decodeIntent(`{"kind":"add","items":[{"name":"apples","quantity":"2"}]}`)
	if err != nil {
		t.Fatalf("decodeIntent failed: %v", err)
	}
	if in.Kind != KindAdd {
		t.Errorf("Expected kind add, got %q", in.Kind)
	}
	if len(in.Items) != 1 || in.Items[0].Name != "apples" {
		t.Fatalf("Expected one apples item, got %+v", in.Items)
	}
	if !in.Items[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected quantity 2, got %s", in.Items[0].Quantity)
	}
}

func TestDecodeIntentStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"kind\":\"query\"}\n```"
	in, err := decodeIntent(raw)
	if err != nil {
		t.Fatalf("decodeIntent failed: %v", err)
	}
	if in.Kind != KindQuery {
		t.Errorf("Expected kind query, got %q", in.Kind)
	}
}

func TestDecodeIntentToleratesSurroundingProse(t *testing.T) {
	raw := `Sure! Here is the intent: {"kind":"solve_exact_total","constraints":{"exact_total":"50"}} Hope that helps.`
	in, err := decodeIntent(raw)
	if err != nil {
		t.Fatalf("decodeIntent failed: %v", err)
	}
	if in.Kind != KindSolveExactTotal {
		t.Errorf("Expected kind solve_exact_total, got %q", in.Kind)
	}
	if !in.Constraints.ExactTotal.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expected exact total 50, got %s", in.Constraints.ExactTotal)
	}
}

func TestDecodeIntentRejectsGarbage(t *testing.T) {
	if _, err := decodeIntent("I could not understand that."); err == nil {
		t.Error("Expected an error for a response with no JSON object")
	}
}

func TestDecodeIntentRejectsInvalidIntent(t *testing.T) {
	if _, err := decodeIntent(`{"kind":"add","items":[]}`); err == nil {
		t.Error("Expected validation to reject an add intent with no items")
	}
}

func TestIntentValidate(t *testing.T) {
	dec := decimal.RequireFromString

	cases := []struct {
		name    string
		intent  Intent
		wantErr bool
	}{
		{"QueryNeedsNothing", Intent{Kind: KindQuery}, false},
		{"AddNeedsItems", Intent{Kind: KindAdd}, true},
		{"RemoveNeedsItems", Intent{Kind: KindRemove}, true},
		{"PriceLookupNeedsItems", Intent{Kind: KindPriceLookup}, true},
		{"BudgetNeedsCap", Intent{Kind: KindApplyBudget}, true},
		{"BudgetMaxTotal", Intent{Kind: KindApplyBudget, Constraints: Constraints{MaxTotal: dec("40")}}, false},
		{"BudgetMaxPerItem", Intent{Kind: KindApplyBudget, Constraints: Constraints{MaxPerItem: dec("4")}}, false},
		{"ExactTotalNeedsTarget", Intent{Kind: KindSolveExactTotal}, true},
		{"UnknownKind", Intent{Kind: Kind("teleport")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.intent.Validate()
			if tc.wantErr && err == nil {
				t.Error("Expected a validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Unexpected validation error: %v", err)
			}
		})
	}
}
