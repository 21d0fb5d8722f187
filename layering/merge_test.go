package layering

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type settings struct {
	Name     string
	Items    string
	Fields   []string
	Aliases  map[string]string
	Defaults map[string]any
	Limit    *int
}

func TestMergeStrongestFirst(t *testing.T) {
	five := 5
	user := settings{
		Name:     "holdings",
		Aliases:  map[string]string{"date": "purchased_on"},
		Defaults: map[string]any{"currency": "EUR"},
	}
	defaults := settings{
		Name:     "default",
		Items:    "items",
		Fields:   []string{"id"},
		Aliases:  map[string]string{"ticker": "symbol"},
		Defaults: map[string]any{"currency": "USD", "amount": 0},
		Limit:    &five,
	}

	got := Merge(user, defaults)
	want := settings{
		Name:     "holdings",
		Items:    "items",
		Fields:   []string{"id"},
		Aliases:  map[string]string{"date": "purchased_on", "ticker": "symbol"},
		Defaults: map[string]any{"currency": "EUR", "amount": 0},
		Limit:    &five,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if got.Limit == defaults.Limit {
		t.Fatalf("expected pointer fields to be cloned")
	}

	got.Aliases["extra"] = "x"
	if _, ok := user.Aliases["extra"]; ok {
		t.Fatalf("expected inputs untouched")
	}
}

func TestMergeSlicesReplaceWholesale(t *testing.T) {
	got := Merge(settings{Fields: []string{"a", "b"}}, settings{Fields: []string{"c"}})
	if diff := cmp.Diff([]string{"a", "b"}, got.Fields); diff != "" {
		t.Fatalf("slice mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeZeroInput(t *testing.T) {
	if got := Merge[settings](); got.Name != "" || got.Fields != nil {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestMergeMapsNested(t *testing.T) {
	strong := map[string]any{"a": 1, "nested": map[string]any{"x": "strong"}}
	weak := map[string]any{"b": 2, "nested": map[string]any{"x": "weak", "y": "weak"}}

	got := MergeMaps(strong, weak)
	want := map[string]any{
		"a":      1,
		"b":      2,
		"nested": map[string]any{"x": "strong", "y": "weak"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("MergeMaps mismatch (-want +got):\n%s", diff)
	}
}
