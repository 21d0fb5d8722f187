package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	resync "github.com/goliatone/go-resync"
)

func (c *cli) createCommand() *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new record",
		Long: `Submit a new record built from --set field=value pairs. Fields use the
definition's input names (e.g. ticker, date for holdings); numeric fields are
coerced and derived fields such as value are computed when left empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fields, err := parseSets(sets)
			if err != nil {
				return err
			}
			ctrl, err := c.controller(nil)
			if err != nil {
				return err
			}
			ctrl.UpdateDraft(fields)
			record, err := ctrl.Submit(cmd.Context())
			if err != nil {
				var verr *resync.ValidationError
				if errors.As(err, &verr) {
					return &cliError{Operation: "create " + ctrl.Definition().Name, Cause: verr.Error(), Underlying: err,
						Suggestions: []string{"pass the missing fields with --set field=value"}}
				}
				return &cliError{Operation: "create " + ctrl.Definition().Name, Cause: resync.ErrorMessage(err), Underlying: err}
			}
			enc := json.NewEncoder(c.out)
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Draft field as field=value (repeatable)")
	return cmd
}

// parseSets turns field=value pairs into a draft. Values stay strings; the
// controller coerces numeric fields.
func parseSets(sets []string) (map[string]any, error) {
	fields := make(map[string]any, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &cliError{
				Operation:   "parse --set",
				Cause:       fmt.Sprintf("invalid pair %q", s),
				Suggestions: []string{"use --set field=value, e.g. --set ticker=ACME"},
			}
		}
		fields[key] = value
	}
	return fields, nil
}
