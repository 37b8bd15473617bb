package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/pkg/pathos"
)

var profileCmd = &cobra.Command{
	Use:   "profile <user-id>",
	Short: "Show another user's public roadmap progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func runProfile(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		p, err := c.PublicProfile(cmd.Context(), args[0])
		if errors.Is(err, pathos.ErrNotFound) {
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"found": false})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile not found")
			return nil
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), p)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(p.Name))
		fmt.Fprintln(out, labelStyle.Render("Working towards ")+p.Role)
		fmt.Fprintln(out, progressBar(p.Stats))
		if p.Roadmap != nil {
			fmt.Fprintln(out)
			for _, s := range p.Roadmap.Steps {
				fmt.Fprintln(out, stepLine(s, false))
			}
		}
		return nil
	})
}
