// Package format renders records for people: table columns, cell values,
// column titles and currency amounts.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/goliatone/go-resync/pkg/resource"
)

const (
	DefaultDateLayout     = "Jan 2, 2006"
	DefaultDateTimeLayout = "Jan 2, 2006 3:04:05 PM"
)

var isoLike = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[ T]\d{2}:\d{2}:\d{2}(?:\.\d+)?)?$`)

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Formatter formats values for one locale.
type Formatter struct {
	tag            language.Tag
	printer        *message.Printer
	caser          cases.Caser
	dateLayout     string
	dateTimeLayout string
	maxFraction    int
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLocale selects the locale for number grouping, currency and titles.
func WithLocale(tag language.Tag) Option {
	return func(f *Formatter) {
		f.tag = tag
	}
}

// WithDateLayouts overrides the time layouts for dates and date-times.
func WithDateLayouts(date, dateTime string) Option {
	return func(f *Formatter) {
		if date != "" {
			f.dateLayout = date
		}
		if dateTime != "" {
			f.dateTimeLayout = dateTime
		}
	}
}

// WithMaxFractionDigits caps the fraction digits shown for non-integers.
func WithMaxFractionDigits(n int) Option {
	return func(f *Formatter) {
		if n >= 0 {
			f.maxFraction = n
		}
	}
}

// New returns a Formatter, American English unless WithLocale says
// otherwise.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		tag:            language.AmericanEnglish,
		dateLayout:     DefaultDateLayout,
		dateTimeLayout: DefaultDateTimeLayout,
		maxFraction:    2,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	f.printer = message.NewPrinter(f.tag)
	f.caser = cases.Title(f.tag)
	return f
}

// ParseLocale resolves a BCP 47 tag such as "de-DE", falling back to
// American English when s is empty.
func ParseLocale(s string) (language.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return language.AmericanEnglish, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("format: locale %q: %w", s, err)
	}
	return tag, nil
}

// Cell renders one record value. nil is empty, ISO-like dates and
// date-times are prettified, integers are grouped and other numbers show at
// most two fraction digits.
func (f *Formatter) Cell(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return f.text(typed)
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return f.printer.Sprint(number.Decimal(n))
		}
		if x, err := typed.Float64(); err == nil {
			return f.Number(x)
		}
		return typed.String()
	case float64:
		return f.Number(typed)
	case float32:
		return f.Number(float64(typed))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return f.printer.Sprint(number.Decimal(typed))
	case bool:
		return strconv.FormatBool(typed)
	case time.Time:
		return typed.Format(f.dateTimeLayout)
	default:
		return fmt.Sprint(typed)
	}
}

// Number formats x with locale grouping.
func (f *Formatter) Number(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	if x == math.Trunc(x) && math.Abs(x) < 1e15 {
		return f.printer.Sprint(number.Decimal(int64(x)))
	}
	return f.printer.Sprint(number.Decimal(x, number.MaxFractionDigits(f.maxFraction)))
}

// Currency formats amount in the ISO 4217 currency code.
func (f *Formatter) Currency(amount float64, code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("format: currency %q: %w", code, err)
	}
	return f.printer.Sprint(currency.Symbol(unit.Amount(amount))), nil
}

// Title turns a column name such as "purchased_on" into a header.
func (f *Formatter) Title(column string) string {
	words := strings.FieldsFunc(column, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	return f.caser.String(strings.Join(words, " "))
}

func (f *Formatter) text(s string) string {
	if !isoLike.MatchString(s) {
		return s
	}
	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if len(s) == len("2006-01-02") {
			return t.Format(f.dateLayout)
		}
		return t.Format(f.dateTimeLayout)
	}
	return s
}

// Columns returns the table columns for records: the definition's field
// order when it has one, else the first record's field names sorted with id
// leading.
func Columns(records []resource.Record, def resource.Definition) []string {
	if len(def.Fields) > 0 {
		return append([]string{}, def.Fields...)
	}
	if len(records) == 0 {
		return nil
	}
	cols := make([]string, 0, len(records[0]))
	if _, ok := records[0]["id"]; ok {
		cols = append(cols, "id")
	}
	for _, name := range records[0].Fields() {
		if name != "id" {
			cols = append(cols, name)
		}
	}
	return cols
}
