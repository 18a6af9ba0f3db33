package report

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/8ft0/smolagent-cookbook/internal/ledger"
)

func groceryList(t *testing.T) *ledger.List {
	t.Helper()
	l := ledger.NewList(0)
	add := func(name, qty, price string) {
		t.Helper()
		if _, err := l.Add(name, decimal.RequireFromString(qty), decimal.RequireFromString(price)); err != nil {
			t.Fatalf("Add %s failed: %v", name, err)
		}
	}
	add("bread", "2", "5.00")
	add("tomatoes", "4", "2.50")
	add("pasta", "3", "3.00")
	add("eggs", "4", "4.20")
	return l
}

func TestTotalIsExactSum(t *testing.T) {
	l := groceryList(t)

	// 2*5 + 4*2.5 + 3*3 + 4*4.2 = 45.8
	total := Total(l.Snapshot())
	if !total.Equal(decimal.RequireFromString("45.8")) {
		t.Errorf("Expected total 45.8, got %s", total)
	}

	// Recomputed, never cached: a mutation is reflected immediately.
	if _, err := l.SetQuantity("eggs", decimal.RequireFromString("5")); err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	total = Total(l.Snapshot())
	if !total.Equal(decimal.RequireFromString("50")) {
		t.Errorf("Expected total 50 after mutation, got %s", total)
	}
}

func TestTotalEmptyList(t *testing.T) {
	if total := Total(nil); !total.IsZero() {
		t.Errorf("Expected zero total for empty list, got %s", total)
	}
}

func TestBuildBillOrderingAndLineTotals(t *testing.T) {
	bill := BuildBill(groceryList(t).Snapshot())

	expected := []struct {
		name, lineTotal string
	}{
		{"bread", "10"},
		{"tomatoes", "10"},
		{"pasta", "9"},
		{"eggs", "16.8"},
	}

	if len(bill.Lines) != len(expected) {
		t.Fatalf("Expected %d lines, got %d", len(expected), len(bill.Lines))
	}
	for i, e := range expected {
		if bill.Lines[i].Name != e.name {
			t.Errorf("Line %d: expected %s, got %s", i, e.name, bill.Lines[i].Name)
		}
		if !bill.Lines[i].LineTotal.Equal(decimal.RequireFromString(e.lineTotal)) {
			t.Errorf("Line %d: expected line total %s, got %s", i, e.lineTotal, bill.Lines[i].LineTotal)
		}
	}
	if !bill.Total.Equal(decimal.RequireFromString("45.8")) {
		t.Errorf("Expected grand total 45.8, got %s", bill.Total)
	}
}

func TestBuildBillIsPure(t *testing.T) {
	l := groceryList(t)
	first := BuildBill(l.Snapshot())
	second := BuildBill(l.Snapshot())

	if !first.Total.Equal(second.Total) || len(first.Lines) != len(second.Lines) {
		t.Error("Repeated BuildBill calls over unchanged state must agree")
	}
}

func TestRenderBillLayout(t *testing.T) {
	out := RenderBill(BuildBill(groceryList(t).Snapshot()))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Header, four item rows, total line.
	if len(lines) != 6 {
		t.Fatalf("Expected 6 lines, got %d:\n%s", len(lines), out)
	}

	header := lines[0]
	for _, col := range []string{"Item Name", "Quantity", "Unit Price", "Total Price"} {
		if !strings.Contains(header, col) {
			t.Errorf("Header missing column %q: %s", col, header)
		}
	}

	if !strings.Contains(lines[1], "bread") || !strings.Contains(lines[1], "$5.00") || !strings.Contains(lines[1], "$10.00") {
		t.Errorf("Unexpected bread row: %s", lines[1])
	}
	if !strings.Contains(lines[4], "eggs") || !strings.Contains(lines[4], "$16.80") {
		t.Errorf("Unexpected eggs row: %s", lines[4])
	}
	if lines[5] != "Total Cost: $45.80" {
		t.Errorf("Unexpected total line: %q", lines[5])
	}
}

func TestCurrencyFormatting(t *testing.T) {
	cases := map[string]string{
		"5":    "$5.00",
		"2.5":  "$2.50",
		"48.8": "$48.80",
		"0":    "$0.00",
	}
	for in, want := range cases {
		if got := Currency(decimal.RequireFromString(in)); got != want {
			t.Errorf("Currency(%s): expected %s, got %s", in, want, got)
		}
	}
}
