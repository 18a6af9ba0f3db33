package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/8ft0/smolagent-cookbook/internal/ledger"
)

// Line is one row of an itemized bill.
type Line struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Bill is an itemized breakdown of a snapshot, rows in insertion order.
type Bill struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Total sums quantity * unit price across the snapshot. The sum is exact;
// rounding to currency precision happens only when rendering.
func Total(items []ledger.Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// BuildBill computes the itemized breakdown plus grand total for a snapshot.
func BuildBill(items []ledger.Item) Bill {
	bill := Bill{Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		line := Line{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		bill.Lines = append(bill.Lines, line)
		bill.Total = bill.Total.Add(line.LineTotal)
	}
	return bill
}

// RenderBill renders the fixed-layout bill text:
//
//	Item Name | Quantity | Unit Price | Total Price
//	<one row per item, insertion order>
//	Total Cost: $<grand total>
func RenderBill(bill Bill) string {
	headers := [4]string{"Item Name", "Quantity", "Unit Price", "Total Price"}
	widths := [4]int{len(headers[0]), len(headers[1]), len(headers[2]), len(headers[3])}

	rows := make([][4]string, 0, len(bill.Lines))
	for _, line := range bill.Lines {
		row := [4]string{
			line.Name,
			line.Quantity.String(),
			Currency(line.UnitPrice),
			Currency(line.LineTotal),
		}
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
		rows = append(rows, row)
	}

	var sb strings.Builder
	writeRow := func(row [4]string) {
		for i, cell := range row {
			if i > 0 {
				sb.WriteString(" | ")
			}
			fmt.Fprintf(&sb, "%-*s", widths[i], cell)
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	fmt.Fprintf(&sb, "Total Cost: %s\n", Currency(bill.Total))

	return sb.String()
}

// Currency formats a monetary value for display, two decimal places.
func Currency(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}
