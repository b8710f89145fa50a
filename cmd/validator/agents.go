package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List specialist agents",
	Long: `List the specialist agents the analyst can dispatch.

Agents come from specialists.agents_file, or the built-in set when unset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		for _, a := range reg.All() {
			fmt.Fprintf(out, "%s  %s\n", bold.Sprintf("%-16s", a.ID), a.Label)
			fmt.Fprintf(out, "%-18s%s\n", "", a.Description)
			if len(a.Tools) > 0 {
				fmt.Fprintf(out, "%-18stools: %s\n", "", strings.Join(a.Tools, ", "))
			}
		}
		return nil
	},
}
