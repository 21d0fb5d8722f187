package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-resync/pkg/resource"
)

func (c *cli) healthCommand() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the service's health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.controller(nil)
			if err != nil {
				return err
			}
			status := ctrl.CheckHealth(cmd.Context())
			if _, err := fmt.Fprintln(c.out, healthLine(status)); err != nil {
				return err
			}
			if strict && !status.OK {
				return &cliError{Operation: "check health", Cause: "service is down"}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the service is down")
	return cmd
}

func healthLine(status resource.HealthStatus) string {
	if !status.OK {
		if status.Detail != "" {
			return "DOWN: " + status.Detail
		}
		return "DOWN"
	}
	if status.ServerTime != "" {
		return "OK · " + status.ServerTime
	}
	return "OK"
}
