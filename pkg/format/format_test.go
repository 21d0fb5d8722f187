package format_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/language"

	"github.com/goliatone/go-resync/pkg/format"
	"github.com/goliatone/go-resync/pkg/resource"
)

func TestCell(t *testing.T) {
	f := format.New()
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Ada", "Ada"},
		{1234567, "1,234,567"},
		{json.Number("4200"), "4,200"},
		{25.0, "25"},
		{1234.5678, "1,234.57"},
		{json.Number("0.126"), "0.13"},
		{"2024-05-01", "May 1, 2024"},
		{"2024-05-01T14:03:09", "May 1, 2024 2:03:09 PM"},
		{"2024-05-01 14:03:09.123456", "May 1, 2024 2:03:09 PM"},
		{"2024-13-45", "2024-13-45"},
		{"2024-05-01 is a date", "2024-05-01 is a date"},
		{true, "true"},
	}
	for _, tc := range cases {
		if got := f.Cell(tc.in); got != tc.want {
			t.Errorf("Cell(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCellLocaleGrouping(t *testing.T) {
	f := format.New(format.WithLocale(language.German))
	if got := f.Cell(1234567); got != "1.234.567" {
		t.Fatalf("expected German grouping, got %q", got)
	}
	if got := format.New(format.WithMaxFractionDigits(0)).Number(2.4); got != "2" {
		t.Fatalf("expected no fraction digits, got %q", got)
	}
}

func TestCurrency(t *testing.T) {
	f := format.New()
	got, err := f.Currency(1234.5, "usd")
	if err != nil {
		t.Fatalf("currency: %v", err)
	}
	if !strings.Contains(got, "$") || !strings.Contains(got, "234") {
		t.Fatalf("unexpected USD rendering %q", got)
	}
	if _, err := f.Currency(1, "not-a-code"); err == nil {
		t.Fatalf("expected invalid currency error")
	}
}

func TestTitle(t *testing.T) {
	f := format.New()
	if got := f.Title("purchased_on"); got != "Purchased On" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := f.Title("created-at"); got != "Created At" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestParseLocale(t *testing.T) {
	tag, err := format.ParseLocale("")
	if err != nil || tag != language.AmericanEnglish {
		t.Fatalf("expected default locale, got %v %v", tag, err)
	}
	if _, err := format.ParseLocale("!!"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestColumns(t *testing.T) {
	records := []resource.Record{{"name": "Ada", "id": 1, "age": 36}}
	if diff := cmp.Diff([]string{"id", "age", "name"}, format.Columns(records, resource.Employees())); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	holdings := resource.Holdings()
	if diff := cmp.Diff(holdings.Fields, format.Columns(nil, holdings)); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if got := format.Columns(nil, resource.Employees()); got != nil {
		t.Fatalf("expected no columns, got %v", got)
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	records := []resource.Record{
		{"id": 2, "name": "Grace\tHopper", "salary": 1500.5},
		{"id": 1, "name": "Ada", "salary": nil},
	}
	if err := format.New().WriteTable(&buf, records, []string{"id", "name", "salary"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "Id") || !strings.Contains(lines[0], "Salary") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Grace Hopper") || !strings.Contains(lines[1], "1,500.5") {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
