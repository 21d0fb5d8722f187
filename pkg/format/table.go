package format

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/goliatone/go-resync/pkg/resource"
)

// WriteTable renders records as aligned text columns with a title row.
func (f *Formatter) WriteTable(w io.Writer, records []resource.Record, columns []string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = f.Title(c)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	cells := make([]string, len(columns))
	for _, r := range records {
		for i, c := range columns {
			cells[i] = sanitize(f.Cell(r[c]))
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(s)
}
