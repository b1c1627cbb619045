package order

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMergeFields(t *testing.T) {
	o := &Order{
		ID:           "o1",
		CustomerName: "Ana",
		Items: []Item{
			{ID: "i1", Name: "Adobo", Price: decimal.NewFromInt(100), Quantity: 2, Status: "pending"},
		},
	}

	merged, err := MergeFields(o, map[string]any{"customerName": "Maria"})
	if err != nil {
		t.Fatal(err)
	}
	if merged.CustomerName != "Maria" {
		t.Fatalf("customer = %q", merged.CustomerName)
	}
	// Untouched fields survive; the input is not modified.
	if len(merged.Items) != 1 || merged.Items[0].Quantity != 2 {
		t.Fatalf("items lost in merge: %+v", merged.Items)
	}
	if o.CustomerName != "Ana" {
		t.Fatalf("input mutated: %q", o.CustomerName)
	}
}

func TestMergeFieldsRejectsBadShape(t *testing.T) {
	o := &Order{ID: "o1"}
	if _, err := MergeFields(o, map[string]any{"items": "not a list"}); err == nil {
		t.Fatal("mismatched field shape accepted")
	}
}
