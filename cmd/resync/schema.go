package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-resync/pkg/openapi"
)

func (c *cli) schemaCommand() *cobra.Command {
	var output, server string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the resource's OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			def, err := c.definition()
			if err != nil {
				return err
			}
			var opts []openapi.Option
			if server != "" {
				opts = append(opts, openapi.WithServer(server))
			}
			doc, err := openapi.Generate(def, opts...)
			if err != nil {
				return &cliError{Operation: "generate schema", Cause: err.Error(), Underlying: err}
			}
			switch output {
			case "json":
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			case "yaml", "":
				enc := yaml.NewEncoder(c.out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			default:
				return newConfigError("print schema", fmt.Sprintf("unknown output %q", output), "use yaml or json")
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format: yaml|json")
	cmd.Flags().StringVar(&server, "server", "", "Server URL to list in the document")
	return cmd
}
