package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	resync "github.com/goliatone/go-resync"
	"github.com/goliatone/go-resync/pkg/format"
	"github.com/goliatone/go-resync/pkg/resource"
	"github.com/goliatone/go-resync/pkg/state"
)

func (c *cli) listCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Fetch the collection and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.controller(nil)
			if err != nil {
				return err
			}
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return &cliError{Operation: "list " + ctrl.Definition().Name, Cause: resync.ErrorMessage(err), Underlying: err}
			}
			return c.printRecords(ctrl.Snapshot(), ctrl.Definition(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table|json")
	return cmd
}

func (c *cli) printRecords(s state.State, def resource.Definition, output string) error {
	switch output {
	case "json":
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(s.Records)
	case "table", "":
		if s.Empty() {
			_, err := fmt.Fprintln(c.out, "No records found.")
			return err
		}
		f, err := c.formatter()
		if err != nil {
			return err
		}
		return f.WriteTable(c.out, s.Records, format.Columns(s.Records, def))
	default:
		return newConfigError("print records", fmt.Sprintf("unknown output %q", output), "use table or json")
	}
}
